package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var userRowColumns = []string{"user_id", "display_name", "role", "supervisor_id"}

func TestGetUser(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUsersRepository(db, zap.NewNop())

	mock.ExpectQuery(`FROM users u WHERE u.user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow("user-1", "Sam", "staff", "user-9"))

	u, err := repo.GetUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Sam", u.DisplayName)
	require.NotNil(t, u.SupervisorID)
	assert.Equal(t, "user-9", *u.SupervisorID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUser_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUsersRepository(db, zap.NewNop())

	mock.ExpectQuery(`FROM users u`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	u, err := repo.GetUser(context.Background(), "ghost")
	assert.Nil(t, u)
	assert.True(t, errors.Is(err, ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLocation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUsersRepository(db, zap.NewNop())

	mock.ExpectQuery(`FROM locations`).
		WithArgs("loc-1").
		WillReturnRows(sqlmock.NewRows([]string{"location_id", "name", "manager_id"}).AddRow("loc-1", "Main St", nil))

	loc, err := repo.GetLocation(context.Background(), "loc-1")
	require.NoError(t, err)
	assert.Equal(t, "Main St", loc.Name)
	assert.Nil(t, loc.ManagerID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUserAtLocation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUsersRepository(db, zap.NewNop())

	mock.ExpectQuery(`JOIN user_locations ul`).
		WithArgs("loc-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow("user-2", "Lee", "Manager", nil))

	u, err := repo.FindUserAtLocation(context.Background(), "loc-1", "Manager", "supervisor")
	require.NoError(t, err)
	assert.Equal(t, "user-2", u.UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUserByRole_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUsersRepository(db, zap.NewNop())

	mock.ExpectQuery(`WHERE LOWER\(u.role\) = ANY`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	u, err := repo.FindUserByRole(context.Background(), "admin")
	assert.Nil(t, u)
	assert.True(t, errors.Is(err, ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUserByRole_RequiresRoles(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUsersRepository(db, zap.NewNop())

	_, err := repo.FindUserByRole(context.Background())
	assert.EqualError(t, err, "roles are required")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveRules(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAssignmentRulesRepository(db, zap.NewNop())

	mock.ExpectQuery(`FROM assignment_rules`).
		WithArgs("Food Safety", sql.NullString{String: "tmpl-1", Valid: true}).
		WillReturnRows(sqlmock.NewRows([]string{
			"rule_id", "category", "template_id", "assigned_role", "priority_level", "is_active",
		}).
			AddRow("r-1", "FOOD SAFETY", nil, "manager", 10, true).
			AddRow("r-2", "FOOD SAFETY", "tmpl-1", "chef", 5, true))

	rules, err := repo.ListActiveRules(context.Background(), "Food Safety", "tmpl-1")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Nil(t, rules[0].TemplateID)
	require.NotNil(t, rules[1].TemplateID)
	assert.Equal(t, "tmpl-1", *rules[1].TemplateID)
	require.NoError(t, mock.ExpectationsWereMet())
}
