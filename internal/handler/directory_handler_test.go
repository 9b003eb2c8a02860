package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/internal/service"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type directoryServiceMock struct {
	teachers  []models.Teacher
	lastActor models.Actor
}

func (m *directoryServiceMock) List(ctx context.Context, actor models.Actor) ([]models.Teacher, error) {
	m.lastActor = actor
	return m.teachers, nil
}

type availabilityServiceMock struct {
	free        []models.Teacher
	err         error
	lastDay     string
	lastPeriod  int
	lastExclude int
}

func (m *availabilityServiceMock) Scope() string { return "same_day" }

func (m *availabilityServiceMock) FreeTeachers(ctx context.Context, day string, period int, excludingID int) ([]models.Teacher, error) {
	m.lastDay, m.lastPeriod, m.lastExclude = day, period, excludingID
	return m.free, m.err
}

type notificationServiceMock struct {
	lastLimit int
}

func (m *notificationServiceMock) List(ctx context.Context, limit int) ([]models.Notification, error) {
	m.lastLimit = limit
	return []models.Notification{{ID: "n1", Message: "hello", Type: models.NotificationInfo}}, nil
}

type tokenIssuerMock struct{}

func (tokenIssuerMock) IssueToken(req models.IssueTokenRequest) (*service.IssuedToken, error) {
	if req.Role == models.RoleTeacher && req.TeacherID == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid token request")
	}
	return &service.IssuedToken{AccessToken: "signed"}, nil
}

func TestDirectoryHandlerTeachersPassesActor(t *testing.T) {
	svc := &directoryServiceMock{teachers: []models.Teacher{{ID: 1, Name: "Mr. Sharma"}}}
	h := NewDirectoryHandler(svc, &availabilityServiceMock{})
	c, w := newContext(http.MethodGet, "/teachers", nil, &models.JWTClaims{Role: models.RoleHOD, Department: "Science"})

	h.Teachers(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Science", svc.lastActor.Department)
}

func TestDirectoryHandlerAvailability(t *testing.T) {
	avail := &availabilityServiceMock{free: []models.Teacher{{ID: 2, Name: "Ms. Gupta"}}}
	h := NewDirectoryHandler(&directoryServiceMock{}, avail)
	c, w := newContext(http.MethodGet, "/availability?day=Monday&period=2&exclude=1", nil, &models.JWTClaims{Role: models.RoleTeacher, TeacherID: 1})

	h.Availability(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Monday", avail.lastDay)
	assert.Equal(t, 2, avail.lastPeriod)
	assert.Equal(t, 1, avail.lastExclude)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "same_day", env.Meta["scope"])
}

func TestDirectoryHandlerAvailabilityRequiresSlot(t *testing.T) {
	h := NewDirectoryHandler(&directoryServiceMock{}, &availabilityServiceMock{})
	c, w := newContext(http.MethodGet, "/availability?day=Monday", nil, &models.JWTClaims{Role: models.RoleAdmin})

	h.Availability(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificationHandlerLimit(t *testing.T) {
	svc := &notificationServiceMock{}
	h := NewNotificationHandler(svc)

	c, w := newContext(http.MethodGet, "/notifications", nil, &models.JWTClaims{Role: models.RoleStudent})
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaultNotificationLimit, svc.lastLimit)

	c, _ = newContext(http.MethodGet, "/notifications?limit=0", nil, &models.JWTClaims{Role: models.RoleStudent})
	h.List(c)
	assert.Equal(t, 0, svc.lastLimit)

	c, w = newContext(http.MethodGet, "/notifications?limit=-3", nil, &models.JWTClaims{Role: models.RoleStudent})
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(service.NewMetricsService(), map[string]ReadinessCheck{
		"redis": func(context.Context) error { return nil },
	})
	c, w := newContext(http.MethodGet, "/ready", nil, nil)
	h.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	h = NewMetricsHandler(nil, map[string]ReadinessCheck{
		"postgres": func(context.Context) error { return errors.New("connection refused") },
	})
	c, w = newContext(http.MethodGet, "/ready", nil, nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestMetricsHandlerStats(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordAbsenceReported("SINGLE", 2)
	h := NewMetricsHandler(metrics, nil)
	c, w := newContext(http.MethodGet, "/stats", nil, &models.JWTClaims{Role: models.RoleAdmin})

	h.Stats(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"absencesReported":2`)
}

func TestAuthHandlerIssueToken(t *testing.T) {
	h := NewAuthHandler(tokenIssuerMock{})
	c, w := newContext(http.MethodPost, "/auth/dev-token", []byte(`{"user_id":"a","role":"ADMIN"}`), nil)
	h.IssueToken(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "signed")

	c, w = newContext(http.MethodPost, "/auth/dev-token", []byte(`{`), nil)
	h.IssueToken(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
