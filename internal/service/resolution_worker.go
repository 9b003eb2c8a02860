package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
	"github.com/noah-isme/sma-substitution-api/pkg/jobs"
)

// JobTypeResolveAbsence identifies background resolution jobs.
const JobTypeResolveAbsence = "absence.resolve"

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

type absenceResolver interface {
	Resolve(ctx context.Context, id int64) (*models.AbsenceRequest, error)
	PendingBefore(ctx context.Context, cutoff time.Time) ([]models.AbsenceRequest, error)
}

// ResolutionWorker turns pending absence requests into queue jobs and
// resolves them off the request path.
type ResolutionWorker struct {
	queue    jobQueue
	resolver absenceResolver
	logger   *zap.Logger
}

// NewResolutionWorker constructs a ResolutionWorker. Attach the queue with
// SetQueue once it has been built around Handle.
func NewResolutionWorker(resolver absenceResolver, logger *zap.Logger) *ResolutionWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResolutionWorker{resolver: resolver, logger: logger}
}

// SetQueue attaches the queue used by Dispatch.
func (w *ResolutionWorker) SetQueue(q jobQueue) {
	w.queue = q
}

// Dispatch enqueues one job per request id. Requests already queued are skipped.
func (w *ResolutionWorker) Dispatch(ctx context.Context, ids ...int64) error {
	if w.queue == nil {
		return fmt.Errorf("resolution queue not configured")
	}
	var errs []error
	for _, id := range ids {
		err := w.queue.Enqueue(jobs.Job{
			ID:      uuid.NewString(),
			Key:     fmt.Sprintf("absence:%d", id),
			Type:    JobTypeResolveAbsence,
			Payload: id,
		})
		if err != nil && !errors.Is(err, jobs.ErrDuplicate) {
			errs = append(errs, fmt.Errorf("enqueue absence %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Handle is the queue handler. Business failures are terminal for the request
// and are not retried; only unexpected errors are returned to the queue.
func (w *ResolutionWorker) Handle(ctx context.Context, job jobs.Job) error {
	id, ok := job.Payload.(int64)
	if !ok {
		w.logger.Error("unexpected job payload", zap.String("job_id", job.ID), zap.Any("payload", job.Payload))
		return nil
	}
	req, err := w.resolver.Resolve(ctx, id)
	if err != nil {
		if req != nil && req.Status.Terminal() {
			return nil
		}
		if appErrors.CodeOf(err) != appErrors.ErrInternal.Code {
			w.logger.Warn("background resolution rejected", zap.Int64("request_id", id), zap.Error(err))
			return nil
		}
		return err
	}
	w.logger.Info("background resolution finished", zap.Int64("request_id", id), zap.String("status", string(req.Status)))
	return nil
}

// PendingSweeper periodically re-dispatches requests stuck in PENDING_RESOLUTION.
type PendingSweeper struct {
	cron       *cron.Cron
	schedule   string
	staleAfter time.Duration
	resolver   absenceResolver
	dispatcher ResolutionDispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewPendingSweeper constructs a sweeper running on a standard five-field cron
// schedule. A non-positive staleAfter defaults to one schedule interval.
func NewPendingSweeper(schedule string, staleAfter time.Duration, loc *time.Location, resolver absenceResolver, dispatcher ResolutionDispatcher, logger *zap.Logger) *PendingSweeper {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if staleAfter <= 0 {
		staleAfter = sweepInterval(schedule, loc)
	}
	return &PendingSweeper{
		cron:       cron.New(cron.WithLocation(loc)),
		schedule:   schedule,
		staleAfter: staleAfter,
		resolver:   resolver,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Start registers the sweep and starts the cron engine.
func (s *PendingSweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Warn("pending sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("register sweep %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.Info("pending sweeper started", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the cron engine and waits for a running sweep.
func (s *PendingSweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep dispatches every request pending for longer than staleAfter and
// returns how many were found.
func (s *PendingSweeper) Sweep(ctx context.Context) (int, error) {
	stale, err := s.resolver.PendingBefore(ctx, s.now().UTC().Add(-s.staleAfter))
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}
	ids := make([]int64, 0, len(stale))
	for _, req := range stale {
		ids = append(ids, req.ID)
	}
	s.logger.Info("re-dispatching stale absence requests", zap.Int64s("request_ids", ids))
	return len(ids), s.dispatcher.Dispatch(ctx, ids...)
}

func sweepInterval(schedule string, loc *time.Location) time.Duration {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return 5 * time.Minute
	}
	next := sched.Next(time.Now().In(loc))
	return sched.Next(next).Sub(next)
}
