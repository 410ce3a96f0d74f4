package repository

import (
	"context"
	"database/sql"
	"fmt"

	"audit-remediation/internal/models"

	"go.uber.org/zap"
)

// SchemaProbe detects optional columns/tables once at startup
type SchemaProbe struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSchemaProbe creates a SchemaProbe
func NewSchemaProbe(db *sql.DB, logger *zap.Logger) *SchemaProbe {
	return &SchemaProbe{db: db, logger: logger}
}

// Probe reads information_schema for action_items.escalated_to and the
// action_item_comments table.
func (p *SchemaProbe) Probe(ctx context.Context) (models.Capabilities, error) {
	query := `
		SELECT
			EXISTS (
				SELECT 1 FROM information_schema.columns
				WHERE table_schema = current_schema()
				  AND table_name = 'action_items'
				  AND column_name = 'escalated_to'
			),
			EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_schema = current_schema()
				  AND table_name = 'action_item_comments'
			)
	`

	var caps models.Capabilities
	if err := p.db.QueryRowContext(ctx, query).Scan(&caps.HasEscalatedTo, &caps.HasCommentsTable); err != nil {
		return models.Capabilities{}, fmt.Errorf("failed to probe schema: %w", err)
	}

	p.logger.Info("Schema capabilities detected",
		zap.Bool("has_escalated_to", caps.HasEscalatedTo),
		zap.Bool("has_comments_table", caps.HasCommentsTable),
	)
	return caps, nil
}
