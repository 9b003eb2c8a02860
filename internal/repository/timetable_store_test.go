package repository

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

func newTestStore(t *testing.T) *TimetableStore {
	t.Helper()
	data := models.TimetableData{
		"Monday": {
			{Class: "9A", Subject: "Physics", Teacher: models.StringPtr("A")},
			{Class: "9B", Subject: "English", Teacher: models.StringPtr("C")},
		},
		"Tuesday": {
			{Class: "9A", Subject: "Mathematics", Teacher: models.StringPtr("B")},
			{Class: "9B", Subject: "Free", Teacher: nil},
		},
	}
	store, err := NewTimetableStore(data, []string{"Monday", "Tuesday"}, 2)
	require.NoError(t, err)
	return store
}

func TestNewTimetableStoreRejectsRaggedDays(t *testing.T) {
	data := models.TimetableData{
		"Monday":  {{Class: "9A"}, {Class: "9B"}},
		"Tuesday": {{Class: "9A"}},
	}
	_, err := NewTimetableStore(data, []string{"Monday", "Tuesday"}, 2)
	assert.Error(t, err)

	_, err = NewTimetableStore(data, []string{"Monday", "Wednesday"}, 2)
	assert.Error(t, err)
}

func TestGetSlotOutOfRange(t *testing.T) {
	store := newTestStore(t)

	for _, tc := range []struct {
		day    string
		period int
	}{
		{"Saturday", 1},
		{"Monday", 0},
		{"Monday", 3},
	} {
		_, err := store.GetSlot(tc.day, tc.period)
		assert.True(t, errors.Is(err, appErrors.ErrOutOfRange), "%s/%d", tc.day, tc.period)
	}
}

func TestApplySubstitutionRecordsOriginalTeacher(t *testing.T) {
	store := newTestStore(t)

	for _, day := range store.Days() {
		for period := 1; period <= store.PeriodsPerDay(); period++ {
			before, err := store.GetSlot(day, period)
			require.NoError(t, err)

			_, err = store.ApplySubstitution(day, period, "Z")
			require.NoError(t, err)

			after, err := store.GetSlot(day, period)
			require.NoError(t, err)
			assert.True(t, after.IsSubstitute)
			assert.Equal(t, before.Teacher, after.OriginalTeacher)
			assert.Equal(t, "Z", after.TeacherName())
			assert.Equal(t, before.Class, after.Class)
		}
	}
}

func TestApplySubstitutionUnknownSlot(t *testing.T) {
	store := newTestStore(t)
	_, err := store.ApplySubstitution("Friday", 1, "Z")
	assert.True(t, errors.Is(err, appErrors.ErrSlotNotFound))
}

func TestClearSubstitutionForcesFlagsOff(t *testing.T) {
	store := newTestStore(t)
	_, err := store.ApplySubstitution("Monday", 1, "B")
	require.NoError(t, err)

	slot, err := store.ClearSubstitution("Monday", 1, models.TimetableSlot{
		Class:           "9C",
		Subject:         "Chemistry",
		Teacher:         models.StringPtr("D"),
		IsSubstitute:    true,
		OriginalTeacher: models.StringPtr("A"),
	})
	require.NoError(t, err)
	assert.False(t, slot.IsSubstitute)
	assert.Nil(t, slot.OriginalTeacher)

	stored, err := store.GetSlot("Monday", 1)
	require.NoError(t, err)
	assert.Equal(t, "9C", stored.Class)
	assert.False(t, stored.IsSubstitute)
	assert.Nil(t, stored.OriginalTeacher)
}

func TestSnapshotIsDetached(t *testing.T) {
	store := newTestStore(t)
	snap := store.Snapshot()
	*snap["Monday"][0].Teacher = "mutated"
	snap["Monday"][1].Class = "mutated"

	slot, err := store.GetSlot("Monday", 1)
	require.NoError(t, err)
	assert.Equal(t, "A", slot.TeacherName())
	slot, err = store.GetSlot("Monday", 2)
	require.NoError(t, err)
	assert.Equal(t, "9B", slot.Class)
}

func TestVersionAdvancesOnMutation(t *testing.T) {
	store := newTestStore(t)
	v0 := store.Version()
	_, err := store.ApplySubstitution("Monday", 1, "B")
	require.NoError(t, err)
	_, err = store.ClearSubstitution("Monday", 1, models.TimetableSlot{Class: "9A"})
	require.NoError(t, err)
	assert.Equal(t, v0+2, store.Version())
}

func TestPeriodAcrossWeek(t *testing.T) {
	store := newTestStore(t)
	slots, err := store.PeriodAcrossWeek(1)
	require.NoError(t, err)
	assert.Len(t, slots, 2)
	assert.Equal(t, "B", slots["Tuesday"].TeacherName())

	_, err = store.PeriodAcrossWeek(5)
	assert.True(t, errors.Is(err, appErrors.ErrOutOfRange))
}

func TestWeeklyLoadSkipsEmptySlots(t *testing.T) {
	store := newTestStore(t)
	load := store.WeeklyLoad()
	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 1}, load)
}

func TestConcurrentReadersNeverSeeHalfWrittenSlot(t *testing.T) {
	store := newTestStore(t)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_, _ = store.ApplySubstitution("Monday", 1, "B")
			_, _ = store.ClearSubstitution("Monday", 1, models.TimetableSlot{Class: "9A", Subject: "Physics", Teacher: models.StringPtr("A")})
		}
		close(stop)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				slot, err := store.GetSlot("Monday", 1)
				if err != nil {
					t.Error(err)
					return
				}
				if slot.IsSubstitute != (slot.OriginalTeacher != nil) {
					t.Errorf("inconsistent slot: %+v", slot)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestLockSlotSerialisesSameKey(t *testing.T) {
	store := newTestStore(t)
	release, err := store.LockSlot("Monday", 1)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		unlock, err := store.LockSlot("Monday", 1)
		if err == nil {
			unlock()
		}
		close(acquired)
	}()

	other, err := store.LockSlot("Monday", 2)
	require.NoError(t, err)
	other()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first was held")
	default:
	}
	release()
	<-acquired

	_, err = store.LockSlot("Sunday", 1)
	assert.True(t, errors.Is(err, appErrors.ErrOutOfRange))
}
