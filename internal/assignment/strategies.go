package assignment

import (
	"context"
	"errors"
	"sort"
	"strings"

	"audit-remediation/internal/models"
	"audit-remediation/internal/repository"

	"go.uber.org/zap"
)

// builtinCategoryRoles is consulted when no configured rule yields a user.
// First contained entry wins.
var builtinCategoryRoles = []struct {
	category string
	role     string
}{
	{"FOOD SAFETY", models.RoleManager},
	{"HYGIENE", models.RoleManager},
	{"QUALITY", models.RoleManager},
	{"CLEANLINESS", models.RoleSupervisor},
	{"SPEED OF SERVICE", models.RoleSupervisor},
	{"SERVICE", models.RoleSupervisor},
	{"ACKNOWLEDG", models.RoleManager},
	{"PROCESS", models.RoleManager},
}

// BuiltinRole returns the fallback role for category, or "".
func BuiltinRole(category string) string {
	category = strings.ToUpper(strings.TrimSpace(category))
	for _, e := range builtinCategoryRoles {
		if strings.Contains(category, e.category) {
			return e.role
		}
	}
	return ""
}

// PickRule returns the rule that governs a lookup scoped to templateID:
// template-specific matches beat unscoped ones regardless of priority_level,
// then higher priority_level wins. Returns nil for no rules.
func PickRule(rules []models.AssignmentRule, templateID string) *models.AssignmentRule {
	if len(rules) == 0 {
		return nil
	}
	sorted := make([]models.AssignmentRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := templateMatch(sorted[i], templateID), templateMatch(sorted[j], templateID)
		if ti != tj {
			return ti
		}
		if sorted[i].PriorityLevel != sorted[j].PriorityLevel {
			return sorted[i].PriorityLevel > sorted[j].PriorityLevel
		}
		return sorted[i].RuleID < sorted[j].RuleID
	})
	return &sorted[0]
}

func templateMatch(rule models.AssignmentRule, templateID string) bool {
	return templateID != "" && rule.TemplateID != nil && *rule.TemplateID == templateID
}

// CategoryRuleStrategy resolves the configured rule's role, then the built-in role.
type CategoryRuleStrategy struct {
	rules  RuleSource
	dir    Directory
	logger *zap.Logger
}

// NewCategoryRuleStrategy creates a CategoryRuleStrategy
func NewCategoryRuleStrategy(rules RuleSource, dir Directory, logger *zap.Logger) *CategoryRuleStrategy {
	return &CategoryRuleStrategy{rules: rules, dir: dir, logger: logger}
}

// Name implements Strategy
func (s *CategoryRuleStrategy) Name() string { return StageCategoryRule }

// Resolve implements Strategy
func (s *CategoryRuleStrategy) Resolve(ctx context.Context, req Request) (*models.User, error) {
	if strings.TrimSpace(req.Category) == "" {
		return nil, nil
	}

	rules, err := s.rules.ListActiveRules(ctx, req.Category, req.TemplateID)
	if err != nil {
		s.logger.Warn("Failed to load assignment rules, using built-in roles",
			zap.String("category", req.Category),
			zap.Error(err),
		)
	} else if rule := PickRule(rules, req.TemplateID); rule != nil {
		u, err := findRoleHolder(ctx, s.dir, req.LocationID, rule.AssignedRole)
		if err != nil {
			s.logger.Warn("Failed to resolve rule role",
				zap.String("rule_id", rule.RuleID),
				zap.String("role", rule.AssignedRole),
				zap.Error(err),
			)
		} else if u != nil {
			return u, nil
		}
	}

	role := BuiltinRole(req.Category)
	if role == "" {
		return nil, nil
	}
	return findRoleHolder(ctx, s.dir, req.LocationID, role)
}

// LocationStrategy picks the location's manager, else a co-located manager or supervisor.
type LocationStrategy struct {
	dir Directory
}

// NewLocationStrategy creates a LocationStrategy
func NewLocationStrategy(dir Directory) *LocationStrategy {
	return &LocationStrategy{dir: dir}
}

// Name implements Strategy
func (s *LocationStrategy) Name() string { return StageLocation }

// Resolve implements Strategy
func (s *LocationStrategy) Resolve(ctx context.Context, req Request) (*models.User, error) {
	if req.LocationID == "" {
		return nil, nil
	}

	loc, err := s.dir.GetLocation(ctx, req.LocationID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if loc != nil && loc.ManagerID != nil && *loc.ManagerID != "" {
		u, err := s.dir.GetUser(ctx, *loc.ManagerID)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	u, err := s.dir.FindUserAtLocation(ctx, req.LocationID, models.RoleManager, models.RoleSupervisor)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// SeverityStrategy only applies to critical items.
type SeverityStrategy struct {
	dir Directory
}

// NewSeverityStrategy creates a SeverityStrategy
func NewSeverityStrategy(dir Directory) *SeverityStrategy {
	return &SeverityStrategy{dir: dir}
}

// Name implements Strategy
func (s *SeverityStrategy) Name() string { return StageSeverity }

// Resolve implements Strategy
func (s *SeverityStrategy) Resolve(ctx context.Context, req Request) (*models.User, error) {
	if !req.IsCritical {
		return nil, nil
	}
	return findRoleHolder(ctx, s.dir, req.LocationID, models.RoleManager, models.RoleSupervisor)
}

// CreatorStrategy falls back to the inspection creator.
type CreatorStrategy struct {
	dir    Directory
	logger *zap.Logger
}

// NewCreatorStrategy creates a CreatorStrategy
func NewCreatorStrategy(dir Directory, logger *zap.Logger) *CreatorStrategy {
	return &CreatorStrategy{dir: dir, logger: logger}
}

// Name implements Strategy
func (s *CreatorStrategy) Name() string { return StageCreator }

// Resolve implements Strategy
func (s *CreatorStrategy) Resolve(ctx context.Context, req Request) (*models.User, error) {
	if req.CreatorID == "" {
		return nil, nil
	}
	u, err := s.dir.GetUser(ctx, req.CreatorID)
	if err != nil {
		s.logger.Debug("Creator profile unavailable, assigning by id",
			zap.String("creator_id", req.CreatorID),
			zap.Error(err),
		)
		return &models.User{UserID: req.CreatorID}, nil
	}
	return u, nil
}
