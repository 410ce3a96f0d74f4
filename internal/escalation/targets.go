package escalation

import (
	"context"
	"errors"

	"audit-remediation/internal/models"
	"audit-remediation/internal/repository"
)

// Directory is the user lookup surface the target chain needs
type Directory interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	FindUserAtLocation(ctx context.Context, locationID string, roles ...string) (*models.User, error)
	FindUserByRole(ctx context.Context, roles ...string) (*models.User, error)
}

// TargetStrategy proposes an escalation target for an item. A nil user with
// a nil error means the stage does not apply or found nobody.
type TargetStrategy interface {
	Name() string
	Target(ctx context.Context, item *models.ActionItem) (*models.User, error)
}

// DefaultTargets is supervisor -> location manager -> global manager -> global admin.
func DefaultTargets(dir Directory) []TargetStrategy {
	return []TargetStrategy{
		&supervisorTarget{dir: dir},
		&locationManagerTarget{dir: dir},
		&globalRoleTarget{dir: dir, role: models.RoleManager},
		&globalRoleTarget{dir: dir, role: models.RoleAdmin},
	}
}

// supervisorTarget only applies to assigned items: the assignee's supervisor,
// else any manager.
type supervisorTarget struct {
	dir Directory
}

func (t *supervisorTarget) Name() string { return "assignee_supervisor" }

func (t *supervisorTarget) Target(ctx context.Context, item *models.ActionItem) (*models.User, error) {
	if item.AssignedTo == nil || *item.AssignedTo == "" {
		return nil, nil
	}

	assignee, err := t.dir.GetUser(ctx, *item.AssignedTo)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if assignee != nil && assignee.SupervisorID != nil && *assignee.SupervisorID != "" {
		sup, err := t.dir.GetUser(ctx, *assignee.SupervisorID)
		if err == nil {
			return sup, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	return notFoundAsNil(t.dir.FindUserByRole(ctx, models.RoleManager))
}

type locationManagerTarget struct {
	dir Directory
}

func (t *locationManagerTarget) Name() string { return "location_manager" }

func (t *locationManagerTarget) Target(ctx context.Context, item *models.ActionItem) (*models.User, error) {
	if item.LocationID == nil || *item.LocationID == "" {
		return nil, nil
	}
	return notFoundAsNil(t.dir.FindUserAtLocation(ctx, *item.LocationID, models.RoleManager))
}

type globalRoleTarget struct {
	dir  Directory
	role string
}

func (t *globalRoleTarget) Name() string { return "global_" + t.role }

func (t *globalRoleTarget) Target(ctx context.Context, item *models.ActionItem) (*models.User, error) {
	return notFoundAsNil(t.dir.FindUserByRole(ctx, t.role))
}

func notFoundAsNil(u *models.User, err error) (*models.User, error) {
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}
