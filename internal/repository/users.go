package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"audit-remediation/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// UsersRepository user/location/hierarchy lookups used by assignment and escalation
type UsersRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUsersRepository creates a UsersRepository
func NewUsersRepository(db *sql.DB, logger *zap.Logger) *UsersRepository {
	return &UsersRepository{db: db, logger: logger}
}

const userColumns = `u.user_id, COALESCE(u.display_name, ''), COALESCE(u.role, ''), u.supervisor_id`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var supervisorID sql.NullString
	if err := row.Scan(&u.UserID, &u.DisplayName, &u.Role, &supervisorID); err != nil {
		return nil, err
	}
	u.SupervisorID = nullStringPtr(supervisorID)
	return &u, nil
}

// GetUser loads a user by id.
func (r *UsersRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.user_id = $1`,
		userID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetLocation loads a location by id.
func (r *UsersRepository) GetLocation(ctx context.Context, locationID string) (*models.Location, error) {
	if locationID == "" {
		return nil, fmt.Errorf("location_id is required")
	}

	var loc models.Location
	var managerID sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT location_id, COALESCE(name, ''), manager_id FROM locations WHERE location_id = $1`,
		locationID,
	).Scan(&loc.LocationID, &loc.Name, &managerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("location %s: %w", locationID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	loc.ManagerID = nullStringPtr(managerID)
	return &loc, nil
}

// FindUserAtLocation returns a member of the location holding one of roles.
// Roles are matched case-insensitively and earlier roles are preferred.
func (r *UsersRepository) FindUserAtLocation(ctx context.Context, locationID string, roles ...string) (*models.User, error) {
	if locationID == "" {
		return nil, fmt.Errorf("location_id is required")
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("roles are required")
	}

	query := `
		SELECT ` + userColumns + `
		FROM users u
		JOIN user_locations ul ON ul.user_id = u.user_id
		WHERE ul.location_id = $1
		  AND LOWER(u.role) = ANY($2::text[])
		ORDER BY array_position($2::text[], LOWER(u.role)), u.user_id
		LIMIT 1
	`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, locationID, pq.Array(lowerAll(roles))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no %s at location %s: %w", strings.Join(roles, "/"), locationID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find user at location: %w", err)
	}
	return u, nil
}

// FindUserByRole returns any user holding one of roles, earlier roles preferred.
func (r *UsersRepository) FindUserByRole(ctx context.Context, roles ...string) (*models.User, error) {
	if len(roles) == 0 {
		return nil, fmt.Errorf("roles are required")
	}

	query := `
		SELECT ` + userColumns + `
		FROM users u
		WHERE LOWER(u.role) = ANY($1::text[])
		ORDER BY array_position($1::text[], LOWER(u.role)), u.user_id
		LIMIT 1
	`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, pq.Array(lowerAll(roles))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no %s user: %w", strings.Join(roles, "/"), ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find user by role: %w", err)
	}
	return u, nil
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}
