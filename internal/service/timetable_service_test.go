package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/internal/repository"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type memoryCache struct {
	mu          sync.Mutex
	items       map[string][]byte
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, pattern)
	for key := range m.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.items, key)
		}
	}
	return nil
}

type timetableFixture struct {
	store         *repository.TimetableStore
	cache         *memoryCache
	notifications *NotificationService
	service       *TimetableService
}

func newTimetableFixture(t *testing.T) *timetableFixture {
	t.Helper()
	store, err := repository.NewTimetableStore(fixtureTimetable(), models.Weekdays, 3)
	require.NoError(t, err)
	dir, err := repository.NewTeacherDirectory(fixtureTeachers())
	require.NoError(t, err)
	directory := NewDirectoryService(dir, map[string]string{"Physics": "Science"}, map[string]string{"Science": "Dr. Shetty"}, nil)
	notifications := NewNotificationService(repository.NewNotificationRepository(), nil, nil, nil)
	cache := newMemoryCache()
	metrics := NewMetricsService()
	svc := NewTimetableService(store, directory, notifications, NewCacheService(cache, metrics, time.Minute, nil, true), nil, nil)
	return &timetableFixture{store: store, cache: cache, notifications: notifications, service: svc}
}

func TestTimetableServiceUpdateSlotMerges(t *testing.T) {
	f := newTimetableFixture(t)
	ctx := context.Background()

	updated, err := f.service.UpdateSlot(ctx, "Monday", 2, models.SlotPatch{Teacher: models.StringPtr(teacherB)})
	require.NoError(t, err)
	assert.Equal(t, "9B", updated.Class)
	assert.Equal(t, "Physics", updated.Subject)
	assert.Equal(t, teacherB, updated.TeacherName())
	assert.False(t, updated.IsSubstitute)
	assert.Nil(t, updated.OriginalTeacher)

	notes, err := f.notifications.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Timetable for Monday, Period 2 updated successfully.", notes[0].Message)
	assert.Equal(t, models.NotificationSuccess, notes[0].Type)
	assert.Equal(t, []string{exportCachePattern}, f.cache.invalidated)
}

func TestTimetableServiceUpdateClearsSubstitution(t *testing.T) {
	f := newTimetableFixture(t)
	_, err := f.store.ApplySubstitution("Monday", 2, teacherB)
	require.NoError(t, err)

	updated, err := f.service.UpdateSlot(context.Background(), "Monday", 2, models.SlotPatch{ClearTeacher: true, Subject: models.StringPtr("Chemistry")})
	require.NoError(t, err)
	assert.Nil(t, updated.Teacher)
	assert.Equal(t, "Chemistry", updated.Subject)
	assert.False(t, updated.IsSubstitute)
	assert.Nil(t, updated.OriginalTeacher)
}

func TestTimetableServiceUpdateSlotErrors(t *testing.T) {
	f := newTimetableFixture(t)
	ctx := context.Background()

	_, err := f.service.UpdateSlot(ctx, "Monday", 2, models.SlotPatch{Teacher: models.StringPtr("Nobody")})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = f.service.UpdateSlot(ctx, "Saturday", 1, models.SlotPatch{})
	assert.True(t, errors.Is(err, appErrors.ErrOutOfRange))

	_, err = f.service.UpdateSlot(ctx, "Monday", 1, models.SlotPatch{Class: models.StringPtr("")})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	notes, err := f.notifications.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestTimetableServiceExportCachesByVersion(t *testing.T) {
	f := newTimetableFixture(t)
	ctx := context.Background()

	first, err := f.service.Export(ctx, "CSV")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", first.ContentType)
	assert.True(t, bytes.HasPrefix(first.Payload, []byte("Day,Period,Class,Subject,Teacher,Substitute For\n")))
	assert.Len(t, f.cache.items, 1)

	again, err := f.service.Export(ctx, "csv")
	require.NoError(t, err)
	assert.Equal(t, first.Payload, again.Payload)

	_, err = f.service.UpdateSlot(ctx, "Monday", 2, models.SlotPatch{Teacher: models.StringPtr(teacherB)})
	require.NoError(t, err)
	assert.Empty(t, f.cache.items)

	fresh, err := f.service.Export(ctx, "csv")
	require.NoError(t, err)
	assert.NotEqual(t, first.Filename, fresh.Filename)
	assert.Contains(t, string(fresh.Payload), "Monday,2,9B,Physics,Mrs. Kavya,")
}

func TestTimetableServiceExportFormats(t *testing.T) {
	f := newTimetableFixture(t)
	ctx := context.Background()

	pdf, err := f.service.Export(ctx, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, bytes.HasPrefix(pdf.Payload, []byte("%PDF")))

	_, err = f.service.Export(ctx, "xlsx")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestTimetableServiceReference(t *testing.T) {
	f := newTimetableFixture(t)

	ref, err := f.service.Reference(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Weekdays, ref.Days)
	assert.Equal(t, []int{1, 2, 3}, ref.Periods)
	assert.Equal(t, []string{"Chemistry", "English", "Mathematics", "Physics"}, ref.Subjects)
	assert.Equal(t, "Dr. Shetty", ref.DepartmentHeads["Science"])
}
