package models

import "time"

// ActionItemStatusCompleted terminal status; completed items are never escalated.
const ActionItemStatusCompleted = "completed"

// ActionItem long-lived remediation tracked for escalation (action_items table)
type ActionItem struct {
	ActionItemID string     `json:"action_item_id" db:"action_item_id"`
	Title        string     `json:"title" db:"title"`
	DueDate      time.Time  `json:"due_date" db:"due_date"`
	Status       string     `json:"status" db:"status"`
	Escalated    bool       `json:"escalated" db:"escalated"`
	EscalatedTo  *string    `json:"escalated_to,omitempty" db:"escalated_to"`
	EscalatedAt  *time.Time `json:"escalated_at,omitempty" db:"escalated_at"`
	AssignedTo   *string    `json:"assigned_to,omitempty" db:"assigned_to"`
	LocationID   *string    `json:"location_id,omitempty" db:"location_id"`
}

// ActionItemComment audit-trail entry (action_item_comments table, optional)
type ActionItemComment struct {
	CommentID    string    `json:"comment_id" db:"comment_id"`
	ActionItemID string    `json:"action_item_id" db:"action_item_id"`
	AuthorID     *string   `json:"author_id,omitempty" db:"author_id"`
	Body         string    `json:"body" db:"body"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Capabilities optional schema features detected once at startup
type Capabilities struct {
	HasEscalatedTo   bool `json:"has_escalated_to"`
	HasCommentsTable bool `json:"has_comments_table"`
}
