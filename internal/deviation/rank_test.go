package deviation

import (
	"math/rand"
	"testing"

	"audit-remediation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dev(id string, sev models.Severity, loss float64, weight int, critical bool, mark *float64) models.Deviation {
	return models.Deviation{
		ItemID:                 id,
		Severity:               sev,
		SeverityLevel:          sev.Level(),
		ScoreLoss:              loss,
		BusinessPriorityWeight: weight,
		IsCritical:             critical,
		NumericMark:            mark,
	}
}

func ids(devs []models.Deviation) []string {
	out := make([]string, len(devs))
	for i, d := range devs {
		out[i] = d.ItemID
	}
	return out
}

func TestRank_KeyOrder(t *testing.T) {
	input := []models.Deviation{
		dev("minor", models.SeverityMinor, 9, 4, false, nil),
		dev("major-low-loss", models.SeverityMajor, 1, 4, false, nil),
		dev("major-high-loss", models.SeverityMajor, 2, 0, false, nil),
		dev("critical", models.SeverityCritical, 0, 0, true, floatPtr(3)),
		dev("major-weight", models.SeverityMajor, 1, 4, false, floatPtr(0)),
		dev("major-weight-mark", models.SeverityMajor, 1, 4, false, floatPtr(1)),
	}

	ranked := Rank(input)
	assert.Equal(t, []string{
		"critical",
		"major-high-loss",
		"major-low-loss",
		"major-weight",
		"major-weight-mark",
		"minor",
	}, ids(ranked))
}

func TestRank_CriticalFlagBreaksTie(t *testing.T) {
	a := dev("a", models.SeverityMajor, 1, 2, false, nil)
	b := dev("b", models.SeverityMajor, 1, 2, true, nil)

	ranked := Rank([]models.Deviation{a, b})
	assert.Equal(t, []string{"b", "a"}, ids(ranked))
}

func TestRank_Deterministic(t *testing.T) {
	var input []models.Deviation
	for _, id := range []string{"e", "d", "c", "b", "a"} {
		input = append(input, dev(id, models.SeverityMajor, 1, 3, false, nil))
	}
	input = append(input, dev("z", models.SeverityCritical, 2, 4, true, floatPtr(1)))

	first := ids(Rank(input))
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := make([]models.Deviation, len(input))
		copy(shuffled, input)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, first, ids(Rank(shuffled)))
	}
	assert.Equal(t, []string{"z", "a", "b", "c", "d", "e"}, first)
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	input := []models.Deviation{
		dev("b", models.SeverityMinor, 0, 0, false, nil),
		dev("a", models.SeverityCritical, 0, 0, true, nil),
	}
	_ = Rank(input)
	assert.Equal(t, "b", input[0].ItemID)
}

func TestSelect(t *testing.T) {
	ranked := Rank([]models.Deviation{
		dev("a", models.SeverityMinor, 0, 0, false, nil),
		dev("b", models.SeverityMajor, 0, 0, false, nil),
		dev("c", models.SeverityCritical, 0, 0, true, nil),
		dev("d", models.SeverityMajor, 5, 0, false, nil),
	})

	chosen := Select(ranked, 3)
	require.Len(t, chosen, 3)
	assert.Equal(t, []string{"c", "d", "b"}, ids(chosen))

	assert.Len(t, Select(ranked[:2], 3), 2)
	assert.Empty(t, Select(ranked, 0))
	assert.Empty(t, Select(nil, 3))
}
