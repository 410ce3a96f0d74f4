package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"audit-remediation/internal/models"

	"go.uber.org/zap"
)

// InspectionsRepository inspections reads
type InspectionsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInspectionsRepository creates an InspectionsRepository
func NewInspectionsRepository(db *sql.DB, logger *zap.Logger) *InspectionsRepository {
	return &InspectionsRepository{db: db, logger: logger}
}

// GetInspection loads an inspection with its creator's display name.
func (r *InspectionsRepository) GetInspection(ctx context.Context, inspectionID string) (*models.Inspection, error) {
	if inspectionID == "" {
		return nil, fmt.Errorf("inspection_id is required")
	}

	query := `
		SELECT
			i.inspection_id,
			i.template_id,
			i.location_id,
			i.created_by,
			COALESCE(i.status, ''),
			i.completed_at,
			u.display_name
		FROM inspections i
		LEFT JOIN users u ON u.user_id = i.created_by
		WHERE i.inspection_id = $1
	`

	var insp models.Inspection
	var templateID, locationID, createdBy, creatorName sql.NullString
	var completedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, inspectionID).Scan(
		&insp.InspectionID,
		&templateID,
		&locationID,
		&createdBy,
		&insp.Status,
		&completedAt,
		&creatorName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("inspection %s: %w", inspectionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get inspection: %w", err)
	}

	insp.TemplateID = templateID.String
	insp.LocationID = locationID.String
	insp.CreatedBy = createdBy.String
	if completedAt.Valid {
		t := completedAt.Time
		insp.CompletedAt = &t
	}
	insp.CreatorName = nullStringPtr(creatorName)

	return &insp, nil
}
