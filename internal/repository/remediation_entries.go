package repository

import (
	"context"
	"database/sql"
	"fmt"

	"audit-remediation/internal/models"

	"go.uber.org/zap"
)

// RemediationEntriesRepository remediation_entries reads/writes
type RemediationEntriesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRemediationEntriesRepository creates a RemediationEntriesRepository
func NewRemediationEntriesRepository(db *sql.DB, logger *zap.Logger) *RemediationEntriesRepository {
	return &RemediationEntriesRepository{db: db, logger: logger}
}

// CountByInspection returns how many entries already exist for the inspection.
func (r *RemediationEntriesRepository) CountByInspection(ctx context.Context, inspectionID string) (int, error) {
	if inspectionID == "" {
		return 0, fmt.Errorf("inspection_id is required")
	}

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM remediation_entries WHERE inspection_id = $1`,
		inspectionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count remediation entries: %w", err)
	}
	return count, nil
}

// CreateEntry inserts one entry. The (inspection_id, item_id) unique key makes
// a concurrent duplicate a no-op; created reports whether a row was written.
func (r *RemediationEntriesRepository) CreateEntry(ctx context.Context, entry *models.RemediationEntry) (created bool, err error) {
	if entry == nil {
		return false, fmt.Errorf("entry is required")
	}
	if entry.InspectionID == "" {
		return false, fmt.Errorf("inspection_id is required")
	}
	if entry.ItemID == "" {
		return false, fmt.Errorf("item_id is required")
	}

	query := `
		INSERT INTO remediation_entries (
			entry_id,
			inspection_id,
			item_id,
			category,
			question,
			deviation_reason,
			severity,
			root_cause,
			corrective_action,
			preventive_action,
			owner_role,
			responsible_person,
			target_date,
			status,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
		ON CONFLICT (inspection_id, item_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		entry.EntryID,
		entry.InspectionID,
		entry.ItemID,
		entry.Category,
		entry.Question,
		entry.DeviationReason,
		string(entry.Severity),
		entry.RootCause,
		entry.CorrectiveAction,
		entry.PreventiveAction,
		entry.OwnerRole,
		entry.ResponsiblePerson,
		entry.TargetDate,
		entry.Status,
		entry.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create remediation entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListByInspection returns the inspection's entries ordered by target date.
func (r *RemediationEntriesRepository) ListByInspection(ctx context.Context, inspectionID string) ([]models.RemediationEntry, error) {
	if inspectionID == "" {
		return nil, fmt.Errorf("inspection_id is required")
	}

	query := `
		SELECT
			entry_id,
			inspection_id,
			item_id,
			COALESCE(category, ''),
			COALESCE(question, ''),
			COALESCE(deviation_reason, ''),
			COALESCE(severity, ''),
			COALESCE(root_cause, ''),
			COALESCE(corrective_action, ''),
			COALESCE(preventive_action, ''),
			COALESCE(owner_role, ''),
			COALESCE(responsible_person, ''),
			target_date,
			COALESCE(status, ''),
			created_at
		FROM remediation_entries
		WHERE inspection_id = $1
		ORDER BY target_date, item_id
	`

	rows, err := r.db.QueryContext(ctx, query, inspectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list remediation entries: %w", err)
	}
	defer rows.Close()

	var entries []models.RemediationEntry
	for rows.Next() {
		var e models.RemediationEntry
		var severity string
		if err := rows.Scan(
			&e.EntryID,
			&e.InspectionID,
			&e.ItemID,
			&e.Category,
			&e.Question,
			&e.DeviationReason,
			&severity,
			&e.RootCause,
			&e.CorrectiveAction,
			&e.PreventiveAction,
			&e.OwnerRole,
			&e.ResponsiblePerson,
			&e.TargetDate,
			&e.Status,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan remediation entry: %w", err)
		}
		e.Severity = models.Severity(severity)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate remediation entries: %w", err)
	}
	return entries, nil
}
