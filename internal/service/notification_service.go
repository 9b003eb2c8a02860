package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
)

type notificationStore interface {
	Prepend(ctx context.Context, n models.Notification) error
	List(ctx context.Context, limit int) ([]models.Notification, error)
}

type notificationAudit interface {
	RecordNotification(ctx context.Context, n models.Notification) error
}

// NotificationService appends workflow announcements to the notification log.
type NotificationService struct {
	store   notificationStore
	audit   notificationAudit
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewNotificationService constructs a NotificationService. audit may be nil.
func NewNotificationService(store notificationStore, audit notificationAudit, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{store: store, audit: audit, metrics: metrics, logger: logger, now: time.Now}
}

// Emit stamps and stores a notification, newest first. Storage is in memory
// and cannot fail; audit failures are logged only.
func (s *NotificationService) Emit(ctx context.Context, message string, kind models.NotificationType) models.Notification {
	n := models.Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Type:      kind,
		Timestamp: s.now().UTC(),
	}
	if err := s.store.Prepend(ctx, n); err != nil {
		s.logger.Error("notification store rejected entry", zap.String("notification_id", n.ID), zap.Error(err))
	}
	s.metrics.RecordNotification(string(kind))
	s.logger.Info("notification emitted", zap.String("type", string(kind)), zap.String("message", message))

	if s.audit != nil {
		start := time.Now()
		if err := s.audit.RecordNotification(ctx, n); err != nil {
			s.logger.Warn("failed to persist notification", zap.String("notification_id", n.ID), zap.Error(err))
		}
		s.metrics.ObserveAuditWrite("notification", time.Since(start))
	}
	return n
}

// List returns up to limit notifications, newest first. A non-positive limit returns all.
func (s *NotificationService) List(ctx context.Context, limit int) ([]models.Notification, error) {
	return s.store.List(ctx, limit)
}
