package assignment

import (
	"context"
	"errors"

	"audit-remediation/internal/models"
	"audit-remediation/internal/repository"

	"go.uber.org/zap"
)

// Stage names reported with a resolved assignment
const (
	StageCategoryRule = "category_rule"
	StageLocation     = "location"
	StageSeverity     = "severity"
	StageCreator      = "creator"
)

// Request is one assignment lookup
type Request struct {
	Category   string
	LocationID string
	IsCritical bool
	CreatorID  string
	TemplateID string
}

// Assignment is a resolved owner and the stage that produced it
type Assignment struct {
	User  *models.User `json:"user"`
	Stage string       `json:"stage"`
}

// RuleSource lists active assignment rules
type RuleSource interface {
	ListActiveRules(ctx context.Context, category, templateID string) ([]models.AssignmentRule, error)
}

// Directory looks up users and locations
type Directory interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetLocation(ctx context.Context, locationID string) (*models.Location, error)
	FindUserAtLocation(ctx context.Context, locationID string, roles ...string) (*models.User, error)
	FindUserByRole(ctx context.Context, roles ...string) (*models.User, error)
}

// Strategy is one stage of the cascade. A nil user with a nil error means
// the stage does not apply or found nobody.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, req Request) (*models.User, error)
}

// Resolver walks its strategies in order and stops at the first user found
type Resolver struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewResolver creates a Resolver over the given strategies
func NewResolver(logger *zap.Logger, strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies, logger: logger}
}

// NewDefaultResolver builds the category rule -> location -> severity ->
// creator cascade.
func NewDefaultResolver(rules RuleSource, dir Directory, logger *zap.Logger) *Resolver {
	return NewResolver(logger,
		NewCategoryRuleStrategy(rules, dir, logger),
		NewLocationStrategy(dir),
		NewSeverityStrategy(dir),
		NewCreatorStrategy(dir, logger),
	)
}

// Resolve returns nil only if every stage fails. Stage errors are logged and
// treated as a miss.
func (r *Resolver) Resolve(ctx context.Context, req Request) *Assignment {
	for _, s := range r.strategies {
		if ctx.Err() != nil {
			return nil
		}
		user, err := s.Resolve(ctx, req)
		if err != nil {
			r.logger.Warn("Assignment stage failed",
				zap.String("stage", s.Name()),
				zap.String("category", req.Category),
				zap.String("location_id", req.LocationID),
				zap.Error(err),
			)
			continue
		}
		if user != nil {
			r.logger.Debug("Assignment resolved",
				zap.String("stage", s.Name()),
				zap.String("user_id", user.UserID),
			)
			return &Assignment{User: user, Stage: s.Name()}
		}
	}

	r.logger.Info("No assignee resolved",
		zap.String("category", req.Category),
		zap.String("location_id", req.LocationID),
	)
	return nil
}

// findRoleHolder prefers a holder co-located at locationID, then any holder.
// Not-found is reported as nil, nil.
func findRoleHolder(ctx context.Context, dir Directory, locationID string, roles ...string) (*models.User, error) {
	if locationID != "" {
		u, err := dir.FindUserAtLocation(ctx, locationID, roles...)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	u, err := dir.FindUserByRole(ctx, roles...)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}
