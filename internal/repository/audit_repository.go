package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-substitution-api/internal/models"
)

// AbsenceEvent is one persisted status change of an absence request.
type AbsenceEvent struct {
	ID          int64     `db:"id" json:"id"`
	RequestID   int64     `db:"request_id" json:"requestId"`
	Status      string    `db:"status" json:"status"`
	TeacherID   int       `db:"teacher_id" json:"teacherId"`
	Day         string    `db:"day" json:"day"`
	Period      int       `db:"period" json:"period"`
	Substitute  *string   `db:"substitute" json:"substitute,omitempty"`
	FailureCode *string   `db:"failure_code" json:"failureCode,omitempty"`
	Reasoning   *string   `db:"reasoning" json:"reasoning,omitempty"`
	RecordedAt  time.Time `db:"recorded_at" json:"recordedAt"`
}

// AuditRepository appends workflow history to Postgres. It is a write-behind
// log only; the in-memory stores stay authoritative.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs an AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// RecordAbsence appends the current state of req.
func (r *AuditRepository) RecordAbsence(ctx context.Context, req models.AbsenceRequest) error {
	const query = `INSERT INTO absence_events (request_id, status, teacher_id, day, period, substitute, failure_code, reasoning, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(ctx, query,
		req.ID,
		string(req.Status),
		req.AbsentTeacherID,
		req.Day,
		req.Period,
		req.Substitute,
		nullableString(req.FailureCode),
		nullableString(req.Reasoning),
		time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("record absence event %d: %w", req.ID, err)
	}
	return nil
}

// RecordNotification appends n to the notification history.
func (r *AuditRepository) RecordNotification(ctx context.Context, n models.Notification) error {
	const query = `INSERT INTO notification_log (id, message, type, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, n.ID, n.Message, string(n.Type), n.Timestamp); err != nil {
		return fmt.Errorf("record notification %s: %w", n.ID, err)
	}
	return nil
}

// ListAbsenceEvents returns the persisted history of one request, oldest first.
func (r *AuditRepository) ListAbsenceEvents(ctx context.Context, requestID int64) ([]AbsenceEvent, error) {
	const query = `SELECT id, request_id, status, teacher_id, day, period, substitute, failure_code, reasoning, recorded_at
FROM absence_events WHERE request_id = $1 ORDER BY id ASC`
	var events []AbsenceEvent
	if err := r.db.SelectContext(ctx, &events, query, requestID); err != nil {
		return nil, fmt.Errorf("list absence events %d: %w", requestID, err)
	}
	return events, nil
}

func nullableString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
