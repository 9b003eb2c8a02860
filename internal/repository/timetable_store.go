package repository

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type slotKey struct {
	day   string
	index int
}

// TimetableStore owns the week's grid. Slots are stored by value and replaced
// whole under the write lock, so readers never observe a partially written
// slot. Per-slot mutexes let callers serialise a read-decide-write sequence on
// one (day, period) without blocking other slots.
type TimetableStore struct {
	mu      sync.RWMutex
	days    []string
	periods int
	grid    map[string][]models.TimetableSlot

	slotLocks map[slotKey]*sync.Mutex
	version   atomic.Uint64
}

// NewTimetableStore copies data into a new store. Every day in days must be
// present with exactly periods slots.
func NewTimetableStore(data models.TimetableData, days []string, periods int) (*TimetableStore, error) {
	if periods <= 0 {
		return nil, fmt.Errorf("periods per day must be positive, got %d", periods)
	}
	s := &TimetableStore{
		days:      append([]string(nil), days...),
		periods:   periods,
		grid:      make(map[string][]models.TimetableSlot, len(days)),
		slotLocks: make(map[slotKey]*sync.Mutex, len(days)*periods),
	}
	for _, day := range days {
		slots, ok := data[day]
		if !ok {
			return nil, fmt.Errorf("timetable missing day %s", day)
		}
		if len(slots) != periods {
			return nil, fmt.Errorf("timetable day %s has %d periods, want %d", day, len(slots), periods)
		}
		row := make([]models.TimetableSlot, periods)
		for i, slot := range slots {
			row[i] = slot.Clone()
			s.slotLocks[slotKey{day: day, index: i}] = &sync.Mutex{}
		}
		s.grid[day] = row
	}
	return s, nil
}

// Days returns the instructional days in order.
func (s *TimetableStore) Days() []string {
	return append([]string(nil), s.days...)
}

// PeriodsPerDay returns the fixed number of periods.
func (s *TimetableStore) PeriodsPerDay() int {
	return s.periods
}

// Version increases on every mutation.
func (s *TimetableStore) Version() uint64 {
	return s.version.Load()
}

// GetSlot returns a copy of the slot at (day, period), period being 1-based.
func (s *TimetableStore) GetSlot(day string, period int) (models.TimetableSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, idx, ok := s.locate(day, period)
	if !ok {
		return models.TimetableSlot{}, outOfRange(day, period)
	}
	return row[idx].Clone(), nil
}

// Day returns a copy of all slots for day.
func (s *TimetableStore) Day(day string) ([]models.TimetableSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.grid[day]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrOutOfRange, fmt.Sprintf("unknown day %q", day))
	}
	return cloneRow(row), nil
}

// PeriodAcrossWeek returns the slot at period for every day.
func (s *TimetableStore) PeriodAcrossWeek(period int) (map[string]models.TimetableSlot, error) {
	if period < 1 || period > s.periods {
		return nil, outOfRange("", period)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.TimetableSlot, len(s.days))
	for _, day := range s.days {
		out[day] = s.grid[day][period-1].Clone()
	}
	return out, nil
}

// Snapshot returns a deep copy of the whole grid.
func (s *TimetableStore) Snapshot() models.TimetableData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(models.TimetableData, len(s.grid))
	for day, row := range s.grid {
		out[day] = cloneRow(row)
	}
	return out
}

// LockSlot serialises work on a single slot. The returned func releases it.
func (s *TimetableStore) LockSlot(day string, period int) (func(), error) {
	lock, ok := s.slotLocks[slotKey{day: day, index: period - 1}]
	if !ok {
		return nil, outOfRange(day, period)
	}
	lock.Lock()
	return lock.Unlock, nil
}

// ApplySubstitution assigns substitute to the slot, remembering the previous
// teacher as the original one.
func (s *TimetableStore) ApplySubstitution(day string, period int, substitute string) (models.TimetableSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, idx, ok := s.locate(day, period)
	if !ok {
		return models.TimetableSlot{}, slotNotFound(day, period)
	}
	next := row[idx].Clone()
	next.OriginalTeacher = next.Teacher
	next.Teacher = models.StringPtr(substitute)
	next.IsSubstitute = true
	row[idx] = next
	s.version.Add(1)
	return next.Clone(), nil
}

// ClearSubstitution installs replacement as the slot and always drops the
// substitution flags, whatever replacement carries.
func (s *TimetableStore) ClearSubstitution(day string, period int, replacement models.TimetableSlot) (models.TimetableSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, idx, ok := s.locate(day, period)
	if !ok {
		return models.TimetableSlot{}, slotNotFound(day, period)
	}
	next := replacement.Clone()
	next.IsSubstitute = false
	next.OriginalTeacher = nil
	row[idx] = next
	s.version.Add(1)
	return next.Clone(), nil
}

// WeeklyLoad counts the periods assigned to each teacher across the week.
func (s *TimetableStore) WeeklyLoad() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	load := make(map[string]int)
	for _, row := range s.grid {
		for _, slot := range row {
			if slot.Teacher != nil {
				load[*slot.Teacher]++
			}
		}
	}
	return load
}

func (s *TimetableStore) locate(day string, period int) ([]models.TimetableSlot, int, bool) {
	row, ok := s.grid[day]
	if !ok || period < 1 || period > s.periods {
		return nil, 0, false
	}
	return row, period - 1, true
}

func cloneRow(row []models.TimetableSlot) []models.TimetableSlot {
	out := make([]models.TimetableSlot, len(row))
	for i, slot := range row {
		out[i] = slot.Clone()
	}
	return out
}

func outOfRange(day string, period int) error {
	if day == "" {
		return appErrors.Clone(appErrors.ErrOutOfRange, fmt.Sprintf("period %d out of range", period))
	}
	return appErrors.Clone(appErrors.ErrOutOfRange, fmt.Sprintf("no slot for %s period %d", day, period))
}

func slotNotFound(day string, period int) error {
	return appErrors.Clone(appErrors.ErrSlotNotFound, fmt.Sprintf("no slot for %s period %d", day, period))
}
