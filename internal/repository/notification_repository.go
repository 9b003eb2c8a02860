package repository

import (
	"context"
	"sync"

	"github.com/noah-isme/sma-substitution-api/internal/models"
)

// NotificationRepository keeps the notification log, newest first.
type NotificationRepository struct {
	mu    sync.RWMutex
	items []models.Notification
}

// NewNotificationRepository constructs an empty log.
func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{}
}

// Prepend stores n at the front of the log.
func (r *NotificationRepository) Prepend(ctx context.Context, n models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, models.Notification{})
	copy(r.items[1:], r.items)
	r.items[0] = n
	return nil
}

// List returns up to limit notifications, newest first. A non-positive limit
// returns everything.
func (r *NotificationRepository) List(ctx context.Context, limit int) ([]models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := len(r.items)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.Notification, n)
	copy(out, r.items[:n])
	return out, nil
}
