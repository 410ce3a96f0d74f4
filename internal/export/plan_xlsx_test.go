package export

import (
	"bytes"
	"testing"
	"time"

	"audit-remediation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestGeneratePlanXLSX(t *testing.T) {
	entries := []models.RemediationEntry{
		{
			ItemID:            "item-1",
			Category:          "HYGIENE",
			Question:          "Hand sink stocked?",
			Severity:          models.SeverityCritical,
			DeviationReason:   "Critical item with score below maximum",
			RootCause:         "Critical item with score below maximum",
			CorrectiveAction:  "Restock soap and towels",
			PreventiveAction:  "Reinforce HYGIENE standards through refresher training and daily checks",
			OwnerRole:         "Chef",
			ResponsiblePerson: "Dana Auditor",
			TargetDate:        time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
			Status:            models.RemediationStatusOpen,
		},
	}

	data, err := GeneratePlanXLSX(entries)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{PlanSheetName}, f.GetSheetList())

	rows, err := f.GetRows(PlanSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, PlanHeader, rows[0])
	assert.Equal(t, "item-1", rows[1][0])
	assert.Equal(t, "CRITICAL", rows[1][3])
	assert.Equal(t, "Restock soap and towels", rows[1][6])
	assert.Equal(t, "OPEN", rows[1][11])
}

func TestGeneratePlanXLSX_Empty(t *testing.T) {
	data, err := GeneratePlanXLSX(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(PlanSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
