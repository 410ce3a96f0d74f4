package service

import (
	"context"
	"fmt"
	"time"

	"audit-remediation/internal/actionplan"
	"audit-remediation/internal/assignment"
	"audit-remediation/internal/config"
	"audit-remediation/internal/deviation"
	"audit-remediation/internal/escalation"
	"audit-remediation/internal/export"
	"audit-remediation/internal/lock"
	"audit-remediation/internal/metrics"
	"audit-remediation/internal/models"

	"go.uber.org/zap"
)

// Lock keys
const (
	escalationLockKey = "escalation"
	planLockPrefix    = "plan:"
)

// Outcome labels recorded per processed inspection
const (
	OutcomeCreated = "created"
	OutcomeSkipped = "skipped"
	OutcomeLocked  = "locked"
	OutcomeFailed  = "failed"
)

// EntryLister reads back written plans
type EntryLister interface {
	ListByInspection(ctx context.Context, inspectionID string) ([]models.RemediationEntry, error)
}

// Engine bundles the rule-engine components. It is the part of the service
// that does not own connections and can be built over any storage.
type Engine struct {
	Config   config.Engine
	Scanner  *deviation.Scanner
	Writer   *actionplan.Writer
	Resolver *assignment.Resolver
	Workflow *escalation.Workflow
	Entries  EntryLister
	Locker   lock.Locker
	Metrics  *metrics.Metrics
	Logger   *zap.Logger

	PlanLockTTL       time.Duration
	EscalationLockTTL time.Duration
}

// ProcessInspection scans the inspection, ranks its deviations and writes
// the top-N as remediation entries. Only scan failures are returned as errors.
func (e *Engine) ProcessInspection(ctx context.Context, inspectionID string) (actionplan.Result, error) {
	if inspectionID == "" {
		return actionplan.Result{}, fmt.Errorf("inspection_id is required")
	}

	lease, ok := e.acquire(ctx, planLockPrefix+inspectionID, e.PlanLockTTL)
	if !ok {
		e.Logger.Info("Action plan already being built, skipping",
			zap.String("inspection_id", inspectionID),
		)
		e.Metrics.RecordInspection(OutcomeLocked, 0)
		return actionplan.Result{Skipped: true}, nil
	}
	defer e.release(lease)

	deviations, err := e.Scanner.Scan(ctx, inspectionID)
	if err != nil {
		e.Metrics.RecordInspection(OutcomeFailed, 0)
		return actionplan.Result{}, err
	}
	ranked := deviation.Rank(deviations)
	chosen := deviation.Select(ranked, e.Config.TopN)

	result, err := e.Writer.Write(ctx, inspectionID, chosen, len(ranked))
	if err != nil {
		e.Metrics.RecordInspection(OutcomeFailed, 0)
		return result, err
	}

	outcome := OutcomeCreated
	if result.Skipped {
		outcome = OutcomeSkipped
	} else {
		for _, d := range deviations {
			e.Metrics.RecordDeviation(string(d.Severity))
		}
	}
	e.Metrics.RecordInspection(outcome, result.Created)

	e.Logger.Info("Action plan built",
		zap.String("inspection_id", inspectionID),
		zap.Int("flagged", result.Flagged),
		zap.Int("selected", result.Selected),
		zap.Int("created", result.Created),
		zap.Bool("skipped", result.Skipped),
	)
	return result, nil
}

// RunEscalation runs one sweep unless another instance holds the run lock.
func (e *Engine) RunEscalation(ctx context.Context) (escalation.Report, error) {
	lease, ok := e.acquire(ctx, escalationLockKey, e.EscalationLockTTL)
	if !ok {
		e.Logger.Info("Escalation sweep already running elsewhere, skipping")
		e.Metrics.RecordEscalationLocked()
		return escalation.Report{}, nil
	}
	defer e.release(lease)

	start := time.Now()
	report, err := e.Workflow.Run(ctx)
	if err != nil {
		return report, err
	}
	e.Metrics.RecordEscalationRun(time.Since(start), len(report.Escalated), report.Skipped, len(report.Errors))
	return report, nil
}

// ResolveAssignee runs the assignment cascade.
func (e *Engine) ResolveAssignee(ctx context.Context, req assignment.Request) *assignment.Assignment {
	a := e.Resolver.Resolve(ctx, req)
	stage := ""
	if a != nil {
		stage = a.Stage
	}
	e.Metrics.RecordAssignment(stage)
	return a
}

// ExportPlan renders the inspection's remediation entries as XLSX.
func (e *Engine) ExportPlan(ctx context.Context, inspectionID string) ([]byte, error) {
	if inspectionID == "" {
		return nil, fmt.Errorf("inspection_id is required")
	}
	entries, err := e.Entries.ListByInspection(ctx, inspectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load action plan: %w", err)
	}
	return export.GeneratePlanXLSX(entries)
}

// acquire treats lock backend errors as granted; the unique constraint on
// remediation entries and the escalation CAS still hold without the lock.
func (e *Engine) acquire(ctx context.Context, key string, ttl time.Duration) (*lock.Lease, bool) {
	if e.Locker == nil {
		return nil, true
	}
	lease, ok, err := e.Locker.Acquire(ctx, key, ttl)
	if err != nil {
		e.Logger.Warn("Lock unavailable, continuing without it",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, true
	}
	return lease, ok
}

func (e *Engine) release(lease *lock.Lease) {
	if e.Locker == nil || lease == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Locker.Release(ctx, lease); err != nil {
		e.Logger.Warn("Failed to release lock",
			zap.String("key", lease.Key),
			zap.Error(err),
		)
	}
}
