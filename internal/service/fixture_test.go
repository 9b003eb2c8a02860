package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/internal/repository"
	"github.com/noah-isme/sma-substitution-api/pkg/config"
)

const (
	teacherA = "Mr. Prakash"
	teacherB = "Mrs. Kavya"
	teacherC = "Ms. Anitha"
	teacherD = "Ms. Ramya"
)

var (
	monday2026 = time.Date(2026, time.October, 12, 8, 0, 0, 0, time.UTC)
	friday2026 = time.Date(2026, time.October, 16, 8, 59, 0, 0, time.UTC)
	sunday2026 = time.Date(2026, time.October, 11, 8, 0, 0, 0, time.UTC)
)

func slot(class, subject, teacher string) models.TimetableSlot {
	return models.TimetableSlot{Class: class, Subject: subject, Teacher: models.StringPtr(teacher)}
}

func fixtureTeachers() []models.Teacher {
	return []models.Teacher{
		{ID: 1, Name: teacherA, Subjects: []string{"Physics"}},
		{ID: 2, Name: teacherB, Subjects: []string{"Physics", "Chemistry"}},
		{ID: 3, Name: teacherC, Subjects: []string{"Mathematics", "Chemistry"}},
		{ID: 4, Name: teacherD, Subjects: []string{"English"}},
	}
}

// Monday P2 is Physics with A; C holds all of Tuesday.
func fixtureTimetable() models.TimetableData {
	regular := []models.TimetableSlot{
		slot("9A", "English", teacherD),
		slot("9B", "Physics", teacherA),
		slot("9C", "Mathematics", teacherC),
	}
	data := models.TimetableData{
		"Monday": {
			slot("9A", "Chemistry", teacherC),
			slot("9B", "Physics", teacherA),
			slot("9C", "Mathematics", teacherC),
		},
		"Tuesday": {
			slot("9A", "Chemistry", teacherC),
			slot("9B", "Mathematics", teacherC),
			slot("9C", "Chemistry", teacherC),
		},
	}
	for _, day := range []string{"Wednesday", "Thursday", "Friday"} {
		row := make([]models.TimetableSlot, len(regular))
		for i, s := range regular {
			row[i] = s.Clone()
		}
		data[day] = row
	}
	return data
}

type countingSelector struct {
	inner substituteSelector
	calls int32
}

func (s *countingSelector) Select(ctx context.Context, absent models.Teacher, day string, period int, slot models.TimetableSlot, candidates []models.Teacher) (*Selection, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.inner.Select(ctx, absent, day, period, slot, candidates)
}

type recordingDispatcher struct {
	ids []int64
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, ids ...int64) error {
	d.ids = append(d.ids, ids...)
	return nil
}

type workflowFixture struct {
	store         *repository.TimetableStore
	requests      *repository.AbsenceRepository
	notifications *NotificationService
	directory     *DirectoryService
	selector      *countingSelector
	metrics       *MetricsService
	service       *AbsenceService
}

func newWorkflowFixture(t *testing.T, teachers []models.Teacher, now time.Time) *workflowFixture {
	t.Helper()
	store, err := repository.NewTimetableStore(fixtureTimetable(), models.Weekdays, 3)
	require.NoError(t, err)
	dir, err := repository.NewTeacherDirectory(teachers)
	require.NoError(t, err)

	metrics := NewMetricsService()
	directory := NewDirectoryService(dir,
		map[string]string{"Physics": "Science", "Chemistry": "Science", "English": "Humanities"},
		map[string]string{"Science": "Dr. Shetty"},
		nil,
	)
	availability := NewAvailabilityService(store, dir, config.ScopeSameDay, nil)
	ranker := NewDeterministicRanker(store)
	selector := &countingSelector{inner: NewSubstituteSelector(ranker, ranker, SelectorOptions{Metrics: metrics})}
	notifications := NewNotificationService(repository.NewNotificationRepository(), nil, metrics, nil)
	requests := repository.NewAbsenceRepository()

	svc := NewAbsenceService(requests, store, availability, selector, notifications, directory, nil, metrics, nil, nil, AbsenceOptions{
		Cutoff:   config.Clock{Hour: 9},
		Location: time.UTC,
		Now:      func() time.Time { return now },
	})
	return &workflowFixture{
		store:         store,
		requests:      requests,
		notifications: notifications,
		directory:     directory,
		selector:      selector,
		metrics:       metrics,
		service:       svc,
	}
}

// emitted returns notifications oldest first.
func (f *workflowFixture) emitted(t *testing.T) []models.Notification {
	t.Helper()
	items, err := f.notifications.List(context.Background(), 0)
	require.NoError(t, err)
	out := make([]models.Notification, len(items))
	for i, n := range items {
		out[len(items)-1-i] = n
	}
	return out
}

var admin = models.Actor{UserID: "admin", Role: models.RoleAdmin}
