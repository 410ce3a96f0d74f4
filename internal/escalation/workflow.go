package escalation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"audit-remediation/internal/models"
	"audit-remediation/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CommentPrefix marks audit-trail comments written by the sweep
const CommentPrefix = "[AUTO-ESCALATED]"

// ItemStore is the action item storage used by the sweep
type ItemStore interface {
	ListEscalationCandidates(ctx context.Context, cutoff time.Time) ([]models.ActionItem, error)
	MarkEscalated(ctx context.Context, actionItemID, targetID string, at time.Time) (bool, error)
	AddComment(ctx context.Context, comment *models.ActionItemComment) error
}

// Notifier hands notifications to the external delivery system
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// ItemError is a per-item failure collected in a Report
type ItemError struct {
	ActionItemID string
	Err          error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("action item %s: %v", e.ActionItemID, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// Report is the outcome of one sweep
type Report struct {
	Candidates int
	Escalated  []models.ActionItem
	Errors     []ItemError
	Skipped    int // no target, or already escalated by an overlapping run
}

// Workflow escalates overdue action items
type Workflow struct {
	items          ItemStore
	targets        []TargetStrategy
	notifier       Notifier
	escalationDays int
	logger         *zap.Logger
	now            func() time.Time
}

// NewWorkflow creates a Workflow using the default target chain
func NewWorkflow(items ItemStore, dir Directory, notifier Notifier, escalationDays int, logger *zap.Logger) *Workflow {
	return NewWorkflowWithTargets(items, DefaultTargets(dir), notifier, escalationDays, logger)
}

// NewWorkflowWithTargets creates a Workflow with an explicit target chain
func NewWorkflowWithTargets(items ItemStore, targets []TargetStrategy, notifier Notifier, escalationDays int, logger *zap.Logger) *Workflow {
	if escalationDays <= 0 {
		escalationDays = 3
	}
	return &Workflow{
		items:          items,
		targets:        targets,
		notifier:       notifier,
		escalationDays: escalationDays,
		logger:         logger,
		now:            time.Now,
	}
}

// Run sweeps items overdue by more than escalationDays. Items are processed
// independently; only a failure to list candidates is returned as an error.
func (w *Workflow) Run(ctx context.Context) (Report, error) {
	var report Report
	now := w.now()
	cutoff := now.AddDate(0, 0, -w.escalationDays)

	candidates, err := w.items.ListEscalationCandidates(ctx, cutoff)
	if err != nil {
		return report, fmt.Errorf("failed to list escalation candidates: %w", err)
	}
	report.Candidates = len(candidates)

	for i := range candidates {
		if ctx.Err() != nil {
			break
		}
		item := candidates[i]

		target, err := w.resolveTarget(ctx, &item)
		if err != nil {
			report.Errors = append(report.Errors, ItemError{ActionItemID: item.ActionItemID, Err: err})
			continue
		}
		if target == nil {
			w.logger.Info("No escalation target, skipping",
				zap.String("action_item_id", item.ActionItemID),
			)
			report.Skipped++
			continue
		}

		escalated, applied, err := w.escalate(ctx, item, target, now)
		if err != nil {
			w.logger.Error("Failed to escalate action item",
				zap.String("action_item_id", item.ActionItemID),
				zap.Error(err),
			)
			report.Errors = append(report.Errors, ItemError{ActionItemID: item.ActionItemID, Err: err})
			continue
		}
		if !applied {
			report.Skipped++
			continue
		}
		report.Escalated = append(report.Escalated, escalated)
	}

	w.logger.Info("Escalation sweep finished",
		zap.Time("cutoff", cutoff),
		zap.Int("candidates", report.Candidates),
		zap.Int("escalated", len(report.Escalated)),
		zap.Int("skipped", report.Skipped),
		zap.Int("errors", len(report.Errors)),
	)
	return report, nil
}

// resolveTarget walks the chain, ignoring stages that propose the current
// assignee. Stage errors are logged and the next stage is tried; the last one
// is returned if no stage produced a target.
func (w *Workflow) resolveTarget(ctx context.Context, item *models.ActionItem) (*models.User, error) {
	var lastErr error
	for _, t := range w.targets {
		u, err := t.Target(ctx, item)
		if err != nil {
			w.logger.Warn("Escalation target stage failed",
				zap.String("stage", t.Name()),
				zap.String("action_item_id", item.ActionItemID),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if u == nil || u.UserID == "" {
			continue
		}
		if item.AssignedTo != nil && *item.AssignedTo == u.UserID {
			w.logger.Debug("Escalation target is the current assignee, trying next stage",
				zap.String("stage", t.Name()),
				zap.String("action_item_id", item.ActionItemID),
				zap.String("user_id", u.UserID),
			)
			continue
		}
		return u, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("failed to resolve escalation target: %w", lastErr)
	}
	return nil, nil
}

// escalate commits the state transition, then attaches the comment and
// notifications. Side-effect failures are logged only.
func (w *Workflow) escalate(ctx context.Context, item models.ActionItem, target *models.User, now time.Time) (models.ActionItem, bool, error) {
	applied, err := w.items.MarkEscalated(ctx, item.ActionItemID, target.UserID, now)
	if err != nil {
		return item, false, err
	}
	if !applied {
		w.logger.Info("Action item already escalated, skipping",
			zap.String("action_item_id", item.ActionItemID),
		)
		return item, false, nil
	}

	originalAssignee := item.AssignedTo
	daysOverdue := DaysOverdue(item.DueDate, now)

	item.Escalated = true
	item.EscalatedTo = &target.UserID
	item.EscalatedAt = &now
	item.AssignedTo = &target.UserID

	w.logger.Info("Action item escalated",
		zap.String("action_item_id", item.ActionItemID),
		zap.String("target_id", target.UserID),
		zap.Int("days_overdue", daysOverdue),
	)

	comment := &models.ActionItemComment{
		CommentID:    uuid.New().String(),
		ActionItemID: item.ActionItemID,
		Body:         fmt.Sprintf("%s Auto-escalated after %d days overdue", CommentPrefix, daysOverdue),
		CreatedAt:    now,
	}
	if err := w.items.AddComment(ctx, comment); err != nil {
		if errors.Is(err, repository.ErrCommentsUnsupported) {
			w.logger.Debug("Comment log unavailable, escalation comment not written",
				zap.String("action_item_id", item.ActionItemID),
			)
		} else {
			w.logger.Warn("Failed to write escalation comment",
				zap.String("action_item_id", item.ActionItemID),
				zap.Error(err),
			)
		}
	}

	w.notify(ctx, models.Notification{
		NotificationID: uuid.New().String(),
		RecipientID:    target.UserID,
		Category:       models.NotificationActionItemEscalated,
		Title:          "Action item escalated to you",
		Body:           fmt.Sprintf("%q is %d days overdue and has been escalated to you", item.Title, daysOverdue),
		DeepLink:       DeepLink(item.ActionItemID),
		CreatedAt:      now,
	})

	if originalAssignee != nil && *originalAssignee != "" && *originalAssignee != target.UserID {
		w.notify(ctx, models.Notification{
			NotificationID: uuid.New().String(),
			RecipientID:    *originalAssignee,
			Category:       models.NotificationActionItemReassigned,
			Title:          "Action item reassigned",
			Body:           fmt.Sprintf("%q was %d days overdue and has been escalated to %s", item.Title, daysOverdue, displayName(target)),
			DeepLink:       DeepLink(item.ActionItemID),
			CreatedAt:      now,
		})
	}

	return item, true, nil
}

func (w *Workflow) notify(ctx context.Context, n models.Notification) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.Notify(ctx, n); err != nil {
		w.logger.Warn("Failed to send notification",
			zap.String("recipient_id", n.RecipientID),
			zap.String("category", n.Category),
			zap.Error(err),
		)
	}
}

// DaysOverdue counts whole days between due and now, never negative.
func DaysOverdue(due, now time.Time) int {
	if !now.After(due) {
		return 0
	}
	return int(now.Sub(due).Hours() / 24)
}

// DeepLink is the in-app route of an action item.
func DeepLink(actionItemID string) string {
	return "/action-items/" + actionItemID
}

func displayName(u *models.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.UserID
}
