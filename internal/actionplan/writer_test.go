package actionplan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"audit-remediation/internal/config"
	"audit-remediation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryStore keys entries by (inspection, item) like the unique constraint.
type memoryStore struct {
	mu       sync.Mutex
	entries  map[string]*models.RemediationEntry
	failItem string
	countErr error
	onCreate func(ctx context.Context, entry *models.RemediationEntry) error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[string]*models.RemediationEntry)}
}

func (s *memoryStore) CountByInspection(ctx context.Context, inspectionID string) (int, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.InspectionID == inspectionID {
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) CreateEntry(ctx context.Context, entry *models.RemediationEntry) (bool, error) {
	if entry.ItemID == s.failItem {
		return false, errors.New("insert failed")
	}
	if s.onCreate != nil {
		if err := s.onCreate(ctx, entry); err != nil {
			return false, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entry.InspectionID + "/" + entry.ItemID
	if _, ok := s.entries[key]; ok {
		return false, nil
	}
	s.entries[key] = entry
	return true, nil
}

func (s *memoryStore) get(inspectionID, itemID string) *models.RemediationEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[inspectionID+"/"+itemID]
}

type mockInspections struct {
	mock.Mock
}

func (m *mockInspections) GetInspection(ctx context.Context, inspectionID string) (*models.Inspection, error) {
	args := m.Called(ctx, inspectionID)
	if insp, ok := args.Get(0).(*models.Inspection); ok {
		return insp, args.Error(1)
	}
	return nil, args.Error(1)
}

func strPtr(s string) *string { return &s }

func sampleDeviations() []models.Deviation {
	return []models.Deviation{
		{ItemID: "item-crit", Category: "FOOD SAFETY", Question: "Fridge below 5C?", Severity: models.SeverityCritical,
			Reason: "Critical item with score below maximum", RootCause: "Critical item with score below maximum",
			OwnerRole: "Store Manager", PreventiveAction: "Reinforce FOOD SAFETY standards", Comment: "Fridge at 9C"},
		{ItemID: "item-major", Category: "SERVICE", Question: "Greeted?", Severity: models.SeverityMajor,
			Reason: "Answer marked as No", OwnerRole: "FOH"},
		{ItemID: "item-minor", Category: "FACILITIES", Question: "", Severity: models.SeverityMinor,
			OwnerRole: "Store Manager"},
	}
}

func TestWrite_CreatesEntriesWithSLADates(t *testing.T) {
	store := newMemoryStore()
	inspections := new(mockInspections)
	completed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	inspections.On("GetInspection", mock.Anything, "insp-1").Return(&models.Inspection{
		InspectionID: "insp-1",
		CompletedAt:  &completed,
		CreatorName:  strPtr("Dana Auditor"),
	}, nil)

	w := NewWriter(store, inspections, config.DefaultEngine(), zap.NewNop())
	result, err := w.Write(context.Background(), "insp-1", sampleDeviations(), 5)
	require.NoError(t, err)

	assert.Equal(t, Result{Flagged: 5, Selected: 3, Created: 3}, result)

	crit := store.get("insp-1", "item-crit")
	require.NotNil(t, crit)
	assert.Equal(t, completed.AddDate(0, 0, 3), crit.TargetDate)
	assert.Equal(t, "Fridge at 9C", crit.CorrectiveAction)
	assert.Equal(t, "Dana Auditor", crit.ResponsiblePerson)
	assert.Equal(t, models.RemediationStatusOpen, crit.Status)
	assert.NotEmpty(t, crit.EntryID)

	major := store.get("insp-1", "item-major")
	require.NotNil(t, major)
	assert.Equal(t, completed.AddDate(0, 0, 7), major.TargetDate)
	assert.Equal(t, "Answer marked as No", major.CorrectiveAction)
	assert.Equal(t, "Answer marked as No", major.RootCause)

	minor := store.get("insp-1", "item-minor")
	require.NotNil(t, minor)
	assert.Equal(t, completed.AddDate(0, 0, 14), minor.TargetDate)
	assert.Equal(t, "Correct the deviation and verify compliance", minor.CorrectiveAction)

	inspections.AssertExpectations(t)
}

func TestWrite_Idempotent(t *testing.T) {
	store := newMemoryStore()
	inspections := new(mockInspections)
	inspections.On("GetInspection", mock.Anything, "insp-1").Return(&models.Inspection{InspectionID: "insp-1"}, nil)

	w := NewWriter(store, inspections, config.DefaultEngine(), zap.NewNop())

	first, err := w.Write(context.Background(), "insp-1", sampleDeviations(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Created)

	second, err := w.Write(context.Background(), "insp-1", sampleDeviations(), 3)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, 0, second.Created)

	count, _ := store.CountByInspection(context.Background(), "insp-1")
	assert.Equal(t, 3, count)
	inspections.AssertNumberOfCalls(t, "GetInspection", 1)
}

func TestWrite_DefaultsWhenInspectionUnavailable(t *testing.T) {
	store := newMemoryStore()
	inspections := new(mockInspections)
	inspections.On("GetInspection", mock.Anything, "insp-1").Return(nil, errors.New("timeout"))

	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	w := NewWriter(store, inspections, config.DefaultEngine(), zap.NewNop())
	w.now = func() time.Time { return now }

	result, err := w.Write(context.Background(), "insp-1", sampleDeviations()[1:2], 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	entry := store.get("insp-1", "item-major")
	require.NotNil(t, entry)
	assert.Equal(t, DefaultResponsiblePerson, entry.ResponsiblePerson)
	assert.Equal(t, now.AddDate(0, 0, 7), entry.TargetDate)
}

func TestWrite_WriteFailureReportsPartialCount(t *testing.T) {
	store := newMemoryStore()
	store.failItem = "item-major"
	inspections := new(mockInspections)
	inspections.On("GetInspection", mock.Anything, "insp-1").Return(&models.Inspection{InspectionID: "insp-1"}, nil)

	w := NewWriter(store, inspections, config.DefaultEngine(), zap.NewNop())
	result, err := w.Write(context.Background(), "insp-1", sampleDeviations(), 3)
	require.NoError(t, err)
	assert.Less(t, result.Created, 3)
	assert.Nil(t, store.get("insp-1", "item-major"))

	count, _ := store.CountByInspection(context.Background(), "insp-1")
	assert.Equal(t, result.Created, count)
}

func TestWrite_FailureDoesNotCancelInFlightWrites(t *testing.T) {
	store := newMemoryStore()
	var started sync.WaitGroup
	started.Add(2)
	store.onCreate = func(ctx context.Context, entry *models.RemediationEntry) error {
		if entry.ItemID == "item-major" {
			started.Wait()
			return errors.New("insert failed")
		}
		started.Done()
		select {
		case <-time.After(50 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	inspections := new(mockInspections)
	inspections.On("GetInspection", mock.Anything, "insp-1").Return(&models.Inspection{InspectionID: "insp-1"}, nil)

	w := NewWriter(store, inspections, config.DefaultEngine(), zap.NewNop())
	result, err := w.Write(context.Background(), "insp-1", sampleDeviations(), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.NotNil(t, store.get("insp-1", "item-crit"))
	assert.NotNil(t, store.get("insp-1", "item-minor"))
	assert.Nil(t, store.get("insp-1", "item-major"))
}

func TestWrite_CountFailureIsAnError(t *testing.T) {
	store := newMemoryStore()
	store.countErr = errors.New("read failed")
	inspections := new(mockInspections)

	w := NewWriter(store, inspections, config.DefaultEngine(), zap.NewNop())
	_, err := w.Write(context.Background(), "insp-1", sampleDeviations(), 3)
	assert.Error(t, err)
	inspections.AssertNotCalled(t, "GetInspection", mock.Anything, mock.Anything)
}

func TestWrite_NothingChosen(t *testing.T) {
	store := newMemoryStore()
	inspections := new(mockInspections)

	w := NewWriter(store, inspections, config.DefaultEngine(), zap.NewNop())
	result, err := w.Write(context.Background(), "insp-1", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, Result{}, result)
	inspections.AssertNotCalled(t, "GetInspection", mock.Anything, mock.Anything)
}
