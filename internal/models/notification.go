package models

import "time"

// Notification categories
const (
	NotificationActionItemEscalated  = "action_item_escalated"
	NotificationActionItemReassigned = "action_item_reassigned"
)

// Notification outbound message handed to the external notifier
type Notification struct {
	NotificationID string    `json:"notification_id"`
	RecipientID    string    `json:"recipient_id"`
	Category       string    `json:"category"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	DeepLink       string    `json:"deep_link"`
	CreatedAt      time.Time `json:"created_at"`
}
