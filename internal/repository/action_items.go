package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"audit-remediation/internal/models"

	"go.uber.org/zap"
)

// ErrCommentsUnsupported is returned by AddComment when the comment log table
// does not exist in this deployment.
var ErrCommentsUnsupported = errors.New("action item comments not supported by schema")

// ActionItemsRepository action_items reads/writes used by escalation.
// Optional schema features start from the probed capabilities and are turned
// off permanently the first time a write reports them missing.
type ActionItemsRepository struct {
	db     *sql.DB
	logger *zap.Logger

	hasEscalatedTo   atomic.Bool
	hasCommentsTable atomic.Bool
}

// NewActionItemsRepository creates an ActionItemsRepository
func NewActionItemsRepository(db *sql.DB, logger *zap.Logger, caps models.Capabilities) *ActionItemsRepository {
	r := &ActionItemsRepository{db: db, logger: logger}
	r.hasEscalatedTo.Store(caps.HasEscalatedTo)
	r.hasCommentsTable.Store(caps.HasCommentsTable)
	return r
}

// Capabilities returns the current view of the optional schema features.
func (r *ActionItemsRepository) Capabilities() models.Capabilities {
	return models.Capabilities{
		HasEscalatedTo:   r.hasEscalatedTo.Load(),
		HasCommentsTable: r.hasCommentsTable.Load(),
	}
}

// ListEscalationCandidates returns items that are not completed, not yet
// escalated and due before cutoff.
func (r *ActionItemsRepository) ListEscalationCandidates(ctx context.Context, cutoff time.Time) ([]models.ActionItem, error) {
	query := `
		SELECT
			action_item_id,
			COALESCE(title, ''),
			due_date,
			COALESCE(status, ''),
			COALESCE(escalated, false),
			assigned_to,
			location_id
		FROM action_items
		WHERE LOWER(COALESCE(status, '')) <> 'completed'
		  AND COALESCE(escalated, false) = false
		  AND due_date < $1
		ORDER BY due_date, action_item_id
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list escalation candidates: %w", err)
	}
	defer rows.Close()

	var items []models.ActionItem
	for rows.Next() {
		var item models.ActionItem
		var assignedTo, locationID sql.NullString
		if err := rows.Scan(
			&item.ActionItemID,
			&item.Title,
			&item.DueDate,
			&item.Status,
			&item.Escalated,
			&assignedTo,
			&locationID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan action item: %w", err)
		}
		item.AssignedTo = nullStringPtr(assignedTo)
		item.LocationID = nullStringPtr(locationID)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate action items: %w", err)
	}
	return items, nil
}

// MarkEscalated flips escalated false->true, records the target and
// reassigns the item. The update only applies while escalated is still
// false; applied=false means another run already escalated the item.
func (r *ActionItemsRepository) MarkEscalated(ctx context.Context, actionItemID, targetID string, at time.Time) (applied bool, err error) {
	if actionItemID == "" {
		return false, fmt.Errorf("action_item_id is required")
	}
	if targetID == "" {
		return false, fmt.Errorf("target_id is required")
	}

	if r.hasEscalatedTo.Load() {
		applied, err = r.markEscalatedWithTarget(ctx, actionItemID, targetID, at)
		if err == nil {
			return applied, nil
		}
		if !IsUndefinedColumn(err) {
			return false, err
		}
		r.hasEscalatedTo.Store(false)
		r.logger.Warn("action_items.escalated_to missing, retrying without it",
			zap.String("action_item_id", actionItemID),
		)
	}

	return r.markEscalatedWithoutTarget(ctx, actionItemID, targetID, at)
}

func (r *ActionItemsRepository) markEscalatedWithTarget(ctx context.Context, actionItemID, targetID string, at time.Time) (bool, error) {
	query := `
		UPDATE action_items
		SET escalated = true,
		    escalated_to = $1,
		    escalated_at = $2,
		    assigned_to = $1
		WHERE action_item_id = $3
		  AND COALESCE(escalated, false) = false
	`
	return r.execEscalation(ctx, query, targetID, at, actionItemID)
}

func (r *ActionItemsRepository) markEscalatedWithoutTarget(ctx context.Context, actionItemID, targetID string, at time.Time) (bool, error) {
	query := `
		UPDATE action_items
		SET escalated = true,
		    escalated_at = $2,
		    assigned_to = $1
		WHERE action_item_id = $3
		  AND COALESCE(escalated, false) = false
	`
	return r.execEscalation(ctx, query, targetID, at, actionItemID)
}

func (r *ActionItemsRepository) execEscalation(ctx context.Context, query string, args ...interface{}) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to escalate action item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// AddComment appends to the action item comment log.
func (r *ActionItemsRepository) AddComment(ctx context.Context, comment *models.ActionItemComment) error {
	if comment == nil {
		return fmt.Errorf("comment is required")
	}
	if comment.ActionItemID == "" {
		return fmt.Errorf("action_item_id is required")
	}
	if !r.hasCommentsTable.Load() {
		return ErrCommentsUnsupported
	}

	query := `
		INSERT INTO action_item_comments (
			comment_id,
			action_item_id,
			author_id,
			body,
			created_at
		) VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		comment.CommentID,
		comment.ActionItemID,
		toNullString(comment.AuthorID),
		comment.Body,
		comment.CreatedAt,
	)
	if err != nil {
		if IsUndefinedTable(err) {
			r.hasCommentsTable.Store(false)
			return ErrCommentsUnsupported
		}
		return fmt.Errorf("failed to add action item comment: %w", err)
	}
	return nil
}
