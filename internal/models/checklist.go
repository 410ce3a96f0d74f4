package models

import "time"

// Inspection status values
const (
	InspectionInProgress = "in_progress"
	InspectionCompleted  = "completed"
)

// ChecklistItem checklist item definition (checklist_items table)
type ChecklistItem struct {
	ItemID            string   `json:"item_id" db:"item_id"`
	TemplateID        string   `json:"template_id" db:"template_id"`
	Title             string   `json:"title" db:"title"`
	Category          string   `json:"category" db:"category"`
	Subcategory       string   `json:"subcategory" db:"subcategory"`
	Section           string   `json:"section" db:"section"`
	Required          bool     `json:"required" db:"required"`
	IsCritical        bool     `json:"is_critical" db:"is_critical"`
	Weight            float64  `json:"weight" db:"weight"`
	IsTimeBased       bool     `json:"is_time_based" db:"is_time_based"`
	TargetTimeMinutes *float64 `json:"target_time_minutes,omitempty" db:"target_time_minutes"`
}

// ItemOption selectable answer for an item; Mark is numeric text or "NA"
type ItemOption struct {
	OptionID string `json:"option_id" db:"option_id"`
	ItemID   string `json:"item_id" db:"item_id"`
	Text     string `json:"text" db:"option_text"`
	Mark     string `json:"mark" db:"mark"`
}

// Inspection one run of a template against a location (inspections table)
type Inspection struct {
	InspectionID string     `json:"inspection_id" db:"inspection_id"`
	TemplateID   string     `json:"template_id" db:"template_id"`
	LocationID   string     `json:"location_id" db:"location_id"`
	CreatedBy    string     `json:"created_by" db:"created_by"`
	Status       string     `json:"status" db:"status"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	// joined from users
	CreatorName *string `json:"creator_name,omitempty"`
}

// ItemResponse recorded answer for one item within one inspection
type ItemResponse struct {
	ResponseID         string    `json:"response_id" db:"response_id"`
	InspectionID       string    `json:"inspection_id" db:"inspection_id"`
	ItemID             string    `json:"item_id" db:"item_id"`
	SelectedOptionID   *string   `json:"selected_option_id,omitempty" db:"selected_option_id"`
	Mark               *string   `json:"mark,omitempty" db:"mark"`
	Comment            *string   `json:"comment,omitempty" db:"comment"`
	PhotoRef           *string   `json:"photo_ref,omitempty" db:"photo_ref"`
	TimeEntries        []float64 `json:"time_entries,omitempty" db:"time_entries"`
	AverageTimeMinutes *float64  `json:"average_time_minutes,omitempty" db:"average_time_minutes"`
	Status             string    `json:"status" db:"status"`
}

// ScanRow is one response joined with its item definition, selected option
// and the item's maximum achievable numeric mark. MaxMark is nil when the
// item has no numeric options.
type ScanRow struct {
	Response ItemResponse
	Item     ChecklistItem

	OptionText *string
	OptionMark *string
	MaxMark    *float64
}
