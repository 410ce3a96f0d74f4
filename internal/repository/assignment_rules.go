package repository

import (
	"context"
	"database/sql"
	"fmt"

	"audit-remediation/internal/models"

	"go.uber.org/zap"
)

// AssignmentRulesRepository assignment_rules reads
type AssignmentRulesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAssignmentRulesRepository creates an AssignmentRulesRepository
func NewAssignmentRulesRepository(db *sql.DB, logger *zap.Logger) *AssignmentRulesRepository {
	return &AssignmentRulesRepository{db: db, logger: logger}
}

// ListActiveRules returns active rules whose category matches (case-insensitive)
// and whose template scope is either templateID or unscoped. Precedence between
// them is decided by the caller.
func (r *AssignmentRulesRepository) ListActiveRules(ctx context.Context, category, templateID string) ([]models.AssignmentRule, error) {
	if category == "" {
		return nil, fmt.Errorf("category is required")
	}

	query := `
		SELECT
			rule_id,
			category,
			template_id,
			assigned_role,
			COALESCE(priority_level, 0),
			is_active
		FROM assignment_rules
		WHERE is_active = true
		  AND UPPER(TRIM(category)) = UPPER(TRIM($1))
		  AND (template_id IS NULL OR template_id = $2)
	`

	tmpl := sql.NullString{String: templateID, Valid: templateID != ""}
	rows, err := r.db.QueryContext(ctx, query, category, tmpl)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignment rules: %w", err)
	}
	defer rows.Close()

	var rules []models.AssignmentRule
	for rows.Next() {
		var rule models.AssignmentRule
		var ruleTemplate sql.NullString
		if err := rows.Scan(
			&rule.RuleID,
			&rule.Category,
			&ruleTemplate,
			&rule.AssignedRole,
			&rule.PriorityLevel,
			&rule.IsActive,
		); err != nil {
			return nil, fmt.Errorf("failed to scan assignment rule: %w", err)
		}
		rule.TemplateID = nullStringPtr(ruleTemplate)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignment rules: %w", err)
	}
	return rules, nil
}
