package models

import "time"

// RemediationStatusOpen is the only status this engine writes.
const RemediationStatusOpen = "OPEN"

// RemediationEntry corrective-action record generated from a selected deviation
// (remediation_entries table)
type RemediationEntry struct {
	EntryID           string    `json:"entry_id" db:"entry_id"`
	InspectionID      string    `json:"inspection_id" db:"inspection_id"`
	ItemID            string    `json:"item_id" db:"item_id"`
	Category          string    `json:"category" db:"category"`
	Question          string    `json:"question" db:"question"`
	DeviationReason   string    `json:"deviation_reason" db:"deviation_reason"`
	Severity          Severity  `json:"severity" db:"severity"`
	RootCause         string    `json:"root_cause" db:"root_cause"`
	CorrectiveAction  string    `json:"corrective_action" db:"corrective_action"`
	PreventiveAction  string    `json:"preventive_action" db:"preventive_action"`
	OwnerRole         string    `json:"owner_role" db:"owner_role"`
	ResponsiblePerson string    `json:"responsible_person" db:"responsible_person"`
	TargetDate        time.Time `json:"target_date" db:"target_date"`
	Status            string    `json:"status" db:"status"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}
