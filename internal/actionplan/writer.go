package actionplan

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"audit-remediation/internal/config"
	"audit-remediation/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultResponsiblePerson is written when the inspection creator has no display name.
const DefaultResponsiblePerson = "Auditor"

// EntryStore persists remediation entries
type EntryStore interface {
	CountByInspection(ctx context.Context, inspectionID string) (int, error)
	CreateEntry(ctx context.Context, entry *models.RemediationEntry) (bool, error)
}

// InspectionReader loads the inspection header
type InspectionReader interface {
	GetInspection(ctx context.Context, inspectionID string) (*models.Inspection, error)
}

// Result summarizes one Write call
type Result struct {
	Flagged  int  `json:"flagged"`
	Selected int  `json:"selected"`
	Created  int  `json:"created"`
	Skipped  bool `json:"skipped"` // entries already existed
}

// Writer turns selected deviations into remediation entries
type Writer struct {
	entries     EntryStore
	inspections InspectionReader
	engine      config.Engine
	logger      *zap.Logger
	now         func() time.Time
}

// NewWriter creates a Writer
func NewWriter(entries EntryStore, inspections InspectionReader, engine config.Engine, logger *zap.Logger) *Writer {
	return &Writer{
		entries:     entries,
		inspections: inspections,
		engine:      engine,
		logger:      logger,
		now:         time.Now,
	}
}

// Write persists chosen for the inspection unless entries already exist.
// Entries are written concurrently; the first write failure stops the
// remaining writes and is reported through Result.Created, not as an error.
// Only the existence check can fail the call.
func (w *Writer) Write(ctx context.Context, inspectionID string, chosen []models.Deviation, flagged int) (Result, error) {
	result := Result{Flagged: flagged, Selected: len(chosen)}
	if inspectionID == "" {
		return result, fmt.Errorf("inspection_id is required")
	}

	existing, err := w.entries.CountByInspection(ctx, inspectionID)
	if err != nil {
		return result, fmt.Errorf("failed to check existing entries: %w", err)
	}
	if existing > 0 {
		w.logger.Info("Remediation entries already exist, skipping",
			zap.String("inspection_id", inspectionID),
			zap.Int("existing", existing),
		)
		result.Skipped = true
		return result, nil
	}
	if len(chosen) == 0 {
		return result, nil
	}

	baseDate, responsible := w.resolveHeader(ctx, inspectionID)
	createdAt := w.now()

	// In-flight writes run to completion on ctx; after a failure, rows that
	// have not started are not written.
	var created atomic.Int64
	var failed atomic.Bool
	var g errgroup.Group
	for i := range chosen {
		entry := w.buildEntry(inspectionID, &chosen[i], baseDate, responsible, createdAt)
		g.Go(func() error {
			if failed.Load() {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			ok, err := w.entries.CreateEntry(ctx, entry)
			if err != nil {
				failed.Store(true)
				w.logger.Error("Failed to write remediation entry",
					zap.String("inspection_id", inspectionID),
					zap.String("item_id", entry.ItemID),
					zap.Error(err),
				)
				return err
			}
			if ok {
				created.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		w.logger.Warn("Action plan partially written",
			zap.String("inspection_id", inspectionID),
			zap.Int64("created", created.Load()),
			zap.Int("selected", len(chosen)),
		)
	}

	result.Created = int(created.Load())
	return result, nil
}

// resolveHeader returns the SLA base date and the responsible person snapshot.
func (w *Writer) resolveHeader(ctx context.Context, inspectionID string) (time.Time, string) {
	baseDate := w.now()
	responsible := DefaultResponsiblePerson

	insp, err := w.inspections.GetInspection(ctx, inspectionID)
	if err != nil {
		w.logger.Warn("Failed to load inspection, using defaults",
			zap.String("inspection_id", inspectionID),
			zap.Error(err),
		)
		return baseDate, responsible
	}
	if insp.CompletedAt != nil && !insp.CompletedAt.IsZero() {
		baseDate = *insp.CompletedAt
	}
	if insp.CreatorName != nil && strings.TrimSpace(*insp.CreatorName) != "" {
		responsible = strings.TrimSpace(*insp.CreatorName)
	}
	return baseDate, responsible
}

func (w *Writer) buildEntry(inspectionID string, d *models.Deviation, baseDate time.Time, responsible string, createdAt time.Time) *models.RemediationEntry {
	return &models.RemediationEntry{
		EntryID:           uuid.New().String(),
		InspectionID:      inspectionID,
		ItemID:            d.ItemID,
		Category:          d.Category,
		Question:          d.Question,
		DeviationReason:   d.Reason,
		Severity:          d.Severity,
		RootCause:         firstNonEmpty(d.RootCause, d.Reason),
		CorrectiveAction:  correctiveAction(d),
		PreventiveAction:  d.PreventiveAction,
		OwnerRole:         d.OwnerRole,
		ResponsiblePerson: responsible,
		TargetDate:        baseDate.AddDate(0, 0, w.engine.SLADays(d.Severity)),
		Status:            models.RemediationStatusOpen,
		CreatedAt:         createdAt,
	}
}

func correctiveAction(d *models.Deviation) string {
	if s := firstNonEmpty(d.Comment, d.Reason); s != "" {
		return s
	}
	if d.Question != "" {
		return fmt.Sprintf("Correct the deviation on %q and verify compliance", d.Question)
	}
	return "Correct the deviation and verify compliance"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
