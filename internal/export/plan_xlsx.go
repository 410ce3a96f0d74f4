package export

import (
	"bytes"
	"fmt"

	"audit-remediation/internal/models"

	"github.com/xuri/excelize/v2"
)

// PlanSheetName is the worksheet holding the action plan
const PlanSheetName = "Action Plan"

// PlanHeader column order of the exported sheet
var PlanHeader = []string{
	"Item",
	"Category",
	"Question",
	"Severity",
	"Deviation Reason",
	"Root Cause",
	"Corrective Action",
	"Preventive Action",
	"Owner Role",
	"Responsible Person",
	"Target Date",
	"Status",
}

var planColumnWidths = []float64{14, 18, 40, 12, 40, 40, 40, 40, 16, 20, 14, 10}

// GeneratePlanXLSX renders an inspection's remediation entries as a workbook.
func GeneratePlanXLSX(entries []models.RemediationEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(PlanSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#FDE9D9"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return nil, fmt.Errorf("failed to create date style: %w", err)
	}

	header := make([]interface{}, len(PlanHeader))
	for i, h := range PlanHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(PlanSheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(PlanHeader))
	if err != nil {
		return nil, fmt.Errorf("failed to convert column number: %w", err)
	}
	if err := f.SetCellStyle(PlanSheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	for i, width := range planColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(PlanSheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, e := range entries {
		row := i + 2
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		values := []interface{}{
			e.ItemID,
			e.Category,
			e.Question,
			string(e.Severity),
			e.DeviationReason,
			e.RootCause,
			e.CorrectiveAction,
			e.PreventiveAction,
			e.OwnerRole,
			e.ResponsiblePerson,
			e.TargetDate,
			e.Status,
		}
		if err := f.SetSheetRow(PlanSheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
		dateCell, err := excelize.CoordinatesToCellName(11, row)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellStyle(PlanSheetName, dateCell, dateCell, dateStyle); err != nil {
			return nil, fmt.Errorf("failed to set date style: %w", err)
		}
	}

	if err := f.SetPanes(PlanSheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
