package deviation

import (
	"context"
	"fmt"

	"audit-remediation/internal/config"
	"audit-remediation/internal/models"

	"go.uber.org/zap"
)

// ResponseReader bulk-loads an inspection's responses joined with item
// definitions, selected options and max marks.
type ResponseReader interface {
	ListScanRows(ctx context.Context, inspectionID string) ([]models.ScanRow, error)
}

// Scanner flags rule violations in one inspection
type Scanner struct {
	reader ResponseReader
	engine config.Engine
	logger *zap.Logger
}

// NewScanner creates a Scanner
func NewScanner(reader ResponseReader, engine config.Engine, logger *zap.Logger) *Scanner {
	return &Scanner{
		reader: reader,
		engine: engine,
		logger: logger,
	}
}

// Scan returns the unordered deviations of one inspection. A read failure
// aborts the scan and no deviations are returned.
func (s *Scanner) Scan(ctx context.Context, inspectionID string) ([]models.Deviation, error) {
	if inspectionID == "" {
		return nil, fmt.Errorf("inspection_id is required")
	}

	rows, err := s.reader.ListScanRows(ctx, inspectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read responses for inspection %s: %w", inspectionID, err)
	}

	var deviations []models.Deviation
	for i := range rows {
		facts := deriveFacts(&rows[i], s.engine)
		d, flagged := evaluate(&rows[i], facts)
		if !flagged {
			continue
		}
		d.InspectionID = inspectionID
		deviations = append(deviations, d)
	}

	s.logger.Debug("Inspection scanned",
		zap.String("inspection_id", inspectionID),
		zap.Int("responses", len(rows)),
		zap.Int("deviations", len(deviations)),
	)
	return deviations, nil
}
