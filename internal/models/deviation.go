package models

// Severity deviation severity
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityMajor    Severity = "MAJOR"
	SeverityMinor    Severity = "MINOR"
)

// Level returns 3 for CRITICAL, 2 for MAJOR, 1 for MINOR, 0 otherwise.
func (s Severity) Level() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityMajor:
		return 2
	case SeverityMinor:
		return 1
	default:
		return 0
	}
}

// Deviation a response flagged as violating a rule. Derived, never persisted.
type Deviation struct {
	InspectionID string
	ResponseID   string
	ItemID       string
	Category     string // normalized uppercase
	Question     string
	Comment      string

	Severity      Severity
	SeverityLevel int
	IsCritical    bool
	NumericMark   *float64
	MaxMark       float64

	AvgMinutes    *float64
	TargetMinutes float64
	SosBreach     bool

	ScoreLoss              float64
	BusinessPriorityWeight int

	OwnerRole        string
	Reason           string
	RootCause        string
	PreventiveAction string
}
