package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"audit-remediation/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var scanRowColumns = []string{
	"response_id", "inspection_id", "item_id", "selected_option_id", "mark", "comment", "photo_ref",
	"time_entries", "average_time_minutes", "status",
	"template_id", "title", "category", "subcategory", "section",
	"required", "is_critical", "weight", "is_time_based", "target_time_minutes",
	"option_text", "option_mark", "max_mark",
}

func TestListScanRows_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewResponsesRepository(db, zap.NewNop())

	rows := sqlmock.NewRows(scanRowColumns).
		AddRow("resp-1", "insp-1", "item-1", "opt-no", "0", nil, nil,
			nil, nil, "answered",
			"tmpl-1", "Greeted within 30s?", "Service", "", "Front",
			true, false, 1.0, false, nil,
			"No", "0", 3.0).
		AddRow("resp-2", "insp-1", "item-2", nil, nil, nil, nil,
			"{4,5}", 4.5, "answered",
			"tmpl-1", "Drive-thru time", "Speed of Service", "", "Avg Times",
			false, false, 1.0, true, 2.0,
			nil, nil, nil)

	mock.ExpectQuery(`FROM item_responses r`).
		WithArgs("insp-1").
		WillReturnRows(rows)

	result, err := repo.ListScanRows(context.Background(), "insp-1")
	require.NoError(t, err)
	require.Len(t, result, 2)

	first := result[0]
	assert.Equal(t, "item-1", first.Item.ItemID)
	assert.Equal(t, "Service", first.Item.Category)
	assert.True(t, first.Item.Required)
	require.NotNil(t, first.Response.Mark)
	assert.Equal(t, "0", *first.Response.Mark)
	require.NotNil(t, first.OptionText)
	assert.Equal(t, "No", *first.OptionText)
	require.NotNil(t, first.MaxMark)
	assert.Equal(t, 3.0, *first.MaxMark)
	assert.Nil(t, first.Response.Comment)

	second := result[1]
	assert.Equal(t, []float64{4, 5}, second.Response.TimeEntries)
	require.NotNil(t, second.Response.AverageTimeMinutes)
	assert.Equal(t, 4.5, *second.Response.AverageTimeMinutes)
	require.NotNil(t, second.Item.TargetTimeMinutes)
	assert.Equal(t, 2.0, *second.Item.TargetTimeMinutes)
	assert.Nil(t, second.MaxMark)
	assert.Nil(t, second.Response.SelectedOptionID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListScanRows_QueryError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewResponsesRepository(db, zap.NewNop())

	mock.ExpectQuery(`FROM item_responses r`).
		WithArgs("insp-1").
		WillReturnError(errors.New("connection reset"))

	result, err := repo.ListScanRows(context.Background(), "insp-1")
	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListScanRows_RequiresInspectionID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewResponsesRepository(db, zap.NewNop())

	_, err := repo.ListScanRows(context.Background(), "")
	assert.EqualError(t, err, "inspection_id is required")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInspection_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInspectionsRepository(db, zap.NewNop())
	completed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM inspections i`).
		WithArgs("insp-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"inspection_id", "template_id", "location_id", "created_by", "status", "completed_at", "display_name",
		}).AddRow("insp-1", "tmpl-1", "loc-1", "user-1", "completed", completed, "Dana Auditor"))

	insp, err := repo.GetInspection(context.Background(), "insp-1")
	require.NoError(t, err)
	assert.Equal(t, "tmpl-1", insp.TemplateID)
	assert.Equal(t, "loc-1", insp.LocationID)
	require.NotNil(t, insp.CompletedAt)
	assert.True(t, completed.Equal(*insp.CompletedAt))
	require.NotNil(t, insp.CreatorName)
	assert.Equal(t, "Dana Auditor", *insp.CreatorName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInspection_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInspectionsRepository(db, zap.NewNop())

	mock.ExpectQuery(`FROM inspections i`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	insp, err := repo.GetInspection(context.Background(), "missing")
	assert.Nil(t, insp)
	assert.True(t, errors.Is(err, ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemediationEntries_CountAndCreate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRemediationEntriesRepository(db, zap.NewNop())
	ctx := context.Background()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM remediation_entries`).
		WithArgs("insp-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	count, err := repo.CountByInspection(ctx, "insp-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	now := time.Now()
	entry := &models.RemediationEntry{
		EntryID:           "entry-1",
		InspectionID:      "insp-1",
		ItemID:            "item-1",
		Category:          "SERVICE",
		Question:          "Greeted within 30s?",
		DeviationReason:   "Answer marked as No",
		Severity:          models.SeverityMajor,
		RootCause:         "Answer marked as No",
		CorrectiveAction:  "Answer marked as No",
		PreventiveAction:  "Reinforce SERVICE standards",
		OwnerRole:         "FOH",
		ResponsiblePerson: "Auditor",
		TargetDate:        now.AddDate(0, 0, 7),
		Status:            models.RemediationStatusOpen,
		CreatedAt:         now,
	}

	mock.ExpectExec(`INSERT INTO remediation_entries`).
		WithArgs("entry-1", "insp-1", "item-1", "SERVICE", "Greeted within 30s?", "Answer marked as No",
			"MAJOR", "Answer marked as No", "Answer marked as No", "Reinforce SERVICE standards",
			"FOH", "Auditor", entry.TargetDate, "OPEN", now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	created, err := repo.CreateEntry(ctx, entry)
	require.NoError(t, err)
	assert.True(t, created)

	// unique key conflict
	mock.ExpectExec(`INSERT INTO remediation_entries`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	created, err = repo.CreateEntry(ctx, entry)
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemediationEntries_CreateValidation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRemediationEntriesRepository(db, zap.NewNop())

	_, err := repo.CreateEntry(context.Background(), &models.RemediationEntry{InspectionID: "insp-1"})
	assert.EqualError(t, err, "item_id is required")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemediationEntries_ListByInspection(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRemediationEntriesRepository(db, zap.NewNop())
	target := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM remediation_entries`).
		WithArgs("insp-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"entry_id", "inspection_id", "item_id", "category", "question", "deviation_reason", "severity",
			"root_cause", "corrective_action", "preventive_action", "owner_role", "responsible_person",
			"target_date", "status", "created_at",
		}).AddRow("entry-1", "insp-1", "item-1", "HYGIENE", "Hand sink stocked?", "Critical item with score below maximum",
			"CRITICAL", "Critical item with score below maximum", "Restock", "Reinforce HYGIENE standards",
			"Chef", "Dana Auditor", target, "OPEN", target))

	entries, err := repo.ListByInspection(context.Background(), "insp-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.SeverityCritical, entries[0].Severity)
	assert.Equal(t, "Chef", entries[0].OwnerRole)
	require.NoError(t, mock.ExpectationsWereMet())
}
