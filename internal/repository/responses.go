package repository

import (
	"context"
	"database/sql"
	"fmt"

	"audit-remediation/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ResponsesRepository reads inspection responses for deviation scanning
type ResponsesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewResponsesRepository creates a ResponsesRepository
func NewResponsesRepository(db *sql.DB, logger *zap.Logger) *ResponsesRepository {
	return &ResponsesRepository{db: db, logger: logger}
}

// ListScanRows returns every response of the inspection joined with its item
// definition, selected option and the item's maximum numeric option mark, in
// one round trip. Non-numeric marks ("NA") are excluded from the maximum.
func (r *ResponsesRepository) ListScanRows(ctx context.Context, inspectionID string) ([]models.ScanRow, error) {
	if inspectionID == "" {
		return nil, fmt.Errorf("inspection_id is required")
	}

	query := `
		SELECT
			r.response_id,
			r.inspection_id,
			r.item_id,
			r.selected_option_id,
			r.mark,
			r.comment,
			r.photo_ref,
			r.time_entries,
			r.average_time_minutes,
			COALESCE(r.status, ''),
			COALESCE(ci.template_id::text, ''),
			COALESCE(ci.title, ''),
			COALESCE(ci.category, ''),
			COALESCE(ci.subcategory, ''),
			COALESCE(ci.section, ''),
			COALESCE(ci.required, false),
			COALESCE(ci.is_critical, false),
			COALESCE(ci.weight, 0),
			COALESCE(ci.is_time_based, false),
			ci.target_time_minutes,
			o.option_text,
			o.mark,
			mm.max_mark
		FROM item_responses r
		JOIN checklist_items ci ON ci.item_id = r.item_id
		LEFT JOIN item_options o ON o.option_id = r.selected_option_id
		LEFT JOIN LATERAL (
			SELECT MAX(
				CASE WHEN TRIM(opt.mark) ~ '^-?[0-9]+(\.[0-9]+)?$'
				     THEN TRIM(opt.mark)::numeric
				END
			) AS max_mark
			FROM item_options opt
			WHERE opt.item_id = ci.item_id
		) mm ON true
		WHERE r.inspection_id = $1
		ORDER BY ci.item_id
	`

	rows, err := r.db.QueryContext(ctx, query, inspectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inspection responses: %w", err)
	}
	defer rows.Close()

	var result []models.ScanRow
	for rows.Next() {
		var row models.ScanRow
		var selectedOption, mark, comment, photo sql.NullString
		var optionText, optionMark sql.NullString
		var avg, target, maxMark sql.NullFloat64
		var timeEntries pq.Float64Array

		if err := rows.Scan(
			&row.Response.ResponseID,
			&row.Response.InspectionID,
			&row.Response.ItemID,
			&selectedOption,
			&mark,
			&comment,
			&photo,
			&timeEntries,
			&avg,
			&row.Response.Status,
			&row.Item.TemplateID,
			&row.Item.Title,
			&row.Item.Category,
			&row.Item.Subcategory,
			&row.Item.Section,
			&row.Item.Required,
			&row.Item.IsCritical,
			&row.Item.Weight,
			&row.Item.IsTimeBased,
			&target,
			&optionText,
			&optionMark,
			&maxMark,
		); err != nil {
			return nil, fmt.Errorf("failed to scan inspection response: %w", err)
		}

		row.Item.ItemID = row.Response.ItemID
		row.Response.SelectedOptionID = nullStringPtr(selectedOption)
		row.Response.Mark = nullStringPtr(mark)
		row.Response.Comment = nullStringPtr(comment)
		row.Response.PhotoRef = nullStringPtr(photo)
		row.Response.TimeEntries = []float64(timeEntries)
		row.Response.AverageTimeMinutes = nullFloatPtr(avg)
		row.Item.TargetTimeMinutes = nullFloatPtr(target)
		row.OptionText = nullStringPtr(optionText)
		row.OptionMark = nullStringPtr(optionMark)
		row.MaxMark = nullFloatPtr(maxMark)

		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inspection responses: %w", err)
	}

	return result, nil
}
