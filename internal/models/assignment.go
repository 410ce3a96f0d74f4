package models

// Role names used by the assignment and escalation chains
const (
	RoleManager    = "manager"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
)

// AssignmentRule category -> role routing rule (assignment_rules table).
// TemplateID nil means the rule applies to every template.
type AssignmentRule struct {
	RuleID        string  `json:"rule_id" db:"rule_id"`
	Category      string  `json:"category" db:"category"`
	TemplateID    *string `json:"template_id,omitempty" db:"template_id"`
	AssignedRole  string  `json:"assigned_role" db:"assigned_role"`
	PriorityLevel int     `json:"priority_level" db:"priority_level"`
	IsActive      bool    `json:"is_active" db:"is_active"`
}

// User users table projection
type User struct {
	UserID       string  `json:"user_id" db:"user_id"`
	DisplayName  string  `json:"display_name" db:"display_name"`
	Role         string  `json:"role" db:"role"`
	SupervisorID *string `json:"supervisor_id,omitempty" db:"supervisor_id"`
}

// Location locations table projection
type Location struct {
	LocationID string  `json:"location_id" db:"location_id"`
	Name       string  `json:"name" db:"name"`
	ManagerID  *string `json:"manager_id,omitempty" db:"manager_id"`
}
