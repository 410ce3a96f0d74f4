package deviation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"audit-remediation/internal/config"
	"audit-remediation/internal/models"
)

// Reason fragments, in the order they are joined.
const (
	ReasonZeroScore        = "Selected option score = 0"
	ReasonAnsweredNo       = "Answer marked as No"
	ReasonCriticalBelowMax = "Critical item with score below maximum"
	ReasonRequiredMissing  = "Required item with missing answer"
	ReasonAckMissing       = "Acknowledgement missing"
	ReasonSosBreach        = "Speed of Service Avg exceeds SLA"
	ReasonDefault          = "Deviation detected"
)

const (
	categorySpeedOfService = "SPEED OF SERVICE"
	categoryService        = "SERVICE"
	categoryQuality        = "QUALITY"
	categoryHygiene        = "HYGIENE"
	categoryCleanliness    = "CLEANLINESS"
	categoryProcess        = "PROCESS"
	categoryAcknowledg     = "ACKNOWLEDG"
)

// priorityCategories is ordered; earlier entries weigh more.
var priorityCategories = []string{categoryQuality, categoryService, categoryHygiene, categorySpeedOfService}

// Owner roles written to remediation entries
const (
	OwnerFOH          = "FOH"
	OwnerChef         = "Chef"
	OwnerStoreManager = "Store Manager"
)

// facts are the per-response values the rules are evaluated against.
type facts struct {
	markText    string
	numericMark *float64
	maxMark     float64
	optionText  string

	category     string
	isCritical   bool
	isRequired   bool
	isSos        bool
	isAvgSection bool
	isAck        bool
	isMissing    bool

	avgMinutes    *float64
	targetMinutes float64
}

func deriveFacts(row *models.ScanRow, engine config.Engine) facts {
	f := facts{
		markText:   strings.TrimSpace(deref(row.Response.Mark)),
		optionText: strings.ToLower(strings.TrimSpace(deref(row.OptionText))),
		category:   strings.ToUpper(strings.TrimSpace(row.Item.Category)),
		isCritical: row.Item.IsCritical,
		isRequired: row.Item.Required,
	}

	f.numericMark = parseMark(f.markText)
	if f.numericMark == nil && row.OptionMark != nil {
		f.numericMark = parseMark(*row.OptionMark)
	}

	f.maxMark = engine.DefaultMaxMark
	if row.MaxMark != nil {
		f.maxMark = *row.MaxMark
	}

	f.isSos = strings.Contains(f.category, categorySpeedOfService)
	f.isAvgSection = strings.Contains(strings.ToLower(row.Item.Section), "avg")
	f.isAck = strings.Contains(f.category, categoryAcknowledg)

	f.avgMinutes = averageMinutes(row.Response)
	f.targetMinutes = engine.DefaultSosTargetMinutes
	if t := row.Item.TargetTimeMinutes; t != nil && *t > 0 {
		f.targetMinutes = *t
	}

	hasOption := row.Response.SelectedOptionID != nil && *row.Response.SelectedOptionID != ""
	hasComment := strings.TrimSpace(deref(row.Response.Comment)) != ""
	hasPhoto := strings.TrimSpace(deref(row.Response.PhotoRef)) != ""
	// recorded timings count as an answer
	f.isMissing = !hasOption && f.markText == "" && !hasComment && !hasPhoto && f.avgMinutes == nil

	return f
}

// evaluate applies rules a-e. The returned deviation is only meaningful when
// flagged is true.
func evaluate(row *models.ScanRow, f facts) (d models.Deviation, flagged bool) {
	zeroScore := f.markText == "0" || (f.numericMark != nil && *f.numericMark == 0)
	answeredNo := f.optionText == "no"
	criticalBelowMax := f.isCritical && f.numericMark != nil && *f.numericMark < f.maxMark
	requiredMissing := f.isRequired && f.isMissing
	sosBreach := f.isSos && f.isAvgSection && f.avgMinutes != nil && *f.avgMinutes > f.targetMinutes
	ackMissing := f.isAck && f.isMissing

	if !(zeroScore || answeredNo || criticalBelowMax || requiredMissing || sosBreach || ackMissing) {
		return d, false
	}

	var reasons []string
	if zeroScore {
		reasons = append(reasons, ReasonZeroScore)
	}
	if answeredNo {
		reasons = append(reasons, ReasonAnsweredNo)
	}
	if criticalBelowMax {
		reasons = append(reasons, ReasonCriticalBelowMax)
	}
	if requiredMissing {
		reasons = append(reasons, ReasonRequiredMissing)
	}
	if ackMissing {
		reasons = append(reasons, ReasonAckMissing)
	}
	if sosBreach {
		reasons = append(reasons, ReasonSosBreach)
	}
	reason := ReasonDefault
	if len(reasons) > 0 {
		reason = strings.Join(reasons, "; ")
	}

	severity := severityFor(f)
	d = models.Deviation{
		ResponseID:             row.Response.ResponseID,
		ItemID:                 row.Item.ItemID,
		Category:               f.category,
		Question:               row.Item.Title,
		Comment:                strings.TrimSpace(deref(row.Response.Comment)),
		Severity:               severity,
		SeverityLevel:          severity.Level(),
		IsCritical:             f.isCritical,
		NumericMark:            f.numericMark,
		MaxMark:                f.maxMark,
		AvgMinutes:             f.avgMinutes,
		TargetMinutes:          f.targetMinutes,
		SosBreach:              sosBreach,
		ScoreLoss:              scoreLoss(f),
		BusinessPriorityWeight: BusinessPriorityWeight(f.category),
		OwnerRole:              OwnerRole(f.category),
		Reason:                 reason,
		RootCause:              reason,
		PreventiveAction:       PreventiveAction(f.category),
	}
	return d, true
}

func severityFor(f facts) models.Severity {
	if f.isCritical {
		return models.SeverityCritical
	}
	for _, c := range priorityCategories {
		if strings.Contains(f.category, c) {
			return models.SeverityMajor
		}
	}
	return models.SeverityMinor
}

func scoreLoss(f facts) float64 {
	switch {
	case f.numericMark != nil:
		return math.Max(0, f.maxMark-*f.numericMark)
	case f.isMissing:
		return f.maxMark
	case f.avgMinutes != nil:
		return round2(math.Max(0, *f.avgMinutes-f.targetMinutes))
	default:
		return 0
	}
}

// BusinessPriorityWeight ranks QUALITY > SERVICE > HYGIENE > SPEED OF SERVICE.
// The first list entry contained in category wins; unlisted categories weigh 0.
func BusinessPriorityWeight(category string) int {
	category = strings.ToUpper(category)
	for i, c := range priorityCategories {
		if strings.Contains(category, c) {
			return len(priorityCategories) - i
		}
	}
	return 0
}

// OwnerRole maps a normalized category to the role expected to own the fix.
func OwnerRole(category string) string {
	category = strings.ToUpper(category)
	switch {
	case strings.Contains(category, categoryService):
		return OwnerFOH
	case strings.Contains(category, categoryQuality),
		strings.Contains(category, categoryHygiene),
		strings.Contains(category, categoryCleanliness):
		return OwnerChef
	case strings.Contains(category, categoryProcess),
		strings.Contains(category, categoryAcknowledg):
		return OwnerStoreManager
	default:
		return OwnerStoreManager
	}
}

// PreventiveAction is the templated follow-up for a category.
func PreventiveAction(category string) string {
	if category == "" {
		category = "GENERAL"
	}
	return fmt.Sprintf("Reinforce %s standards through refresher training and daily checks", category)
}

// parseMark returns nil for empty, "NA" or non-numeric marks.
func parseMark(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "NA") {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// averageMinutes prefers the stored average and otherwise averages the
// positive time entries.
func averageMinutes(r models.ItemResponse) *float64 {
	if r.AverageTimeMinutes != nil && *r.AverageTimeMinutes > 0 {
		v := *r.AverageTimeMinutes
		return &v
	}
	var sum float64
	var n int
	for _, t := range r.TimeEntries {
		if t > 0 {
			sum += t
			n++
		}
	}
	if n == 0 {
		return nil
	}
	v := round2(sum / float64(n))
	return &v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
