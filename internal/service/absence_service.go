package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/internal/repository"
	"github.com/noah-isme/sma-substitution-api/pkg/config"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type absenceStore interface {
	Create(ctx context.Context, req *models.AbsenceRequest) error
	CreateBatch(ctx context.Context, reqs []*models.AbsenceRequest) error
	GetByID(ctx context.Context, id int64) (*models.AbsenceRequest, error)
	List(ctx context.Context, filter models.AbsenceFilter) ([]models.AbsenceRequest, error)
	Transition(ctx context.Context, id int64, from models.AbsenceStatus, mutate func(*models.AbsenceRequest)) (*models.AbsenceRequest, error)
}

type slotWriter interface {
	GetSlot(day string, period int) (models.TimetableSlot, error)
	Day(day string) ([]models.TimetableSlot, error)
	LockSlot(day string, period int) (func(), error)
	ApplySubstitution(day string, period int, substitute string) (models.TimetableSlot, error)
}

type availabilityResolver interface {
	CheckOwnership(teacher models.Teacher, day string, period int) (models.TimetableSlot, error)
	FreeTeachers(ctx context.Context, day string, period int, excludingID int) ([]models.Teacher, error)
}

type substituteSelector interface {
	Select(ctx context.Context, absent models.Teacher, day string, period int, slot models.TimetableSlot, candidates []models.Teacher) (*Selection, error)
}

type notifier interface {
	Emit(ctx context.Context, message string, kind models.NotificationType) models.Notification
}

type teacherScope interface {
	Get(ctx context.Context, id int) (*models.Teacher, error)
	InScope(ctx context.Context, actor models.Actor, teacherID int) (bool, error)
	ScopeTeacherIDs(ctx context.Context, actor models.Actor) (map[int]struct{}, error)
	DepartmentHead(subject string) (department, head string, ok bool)
}

type absenceAudit interface {
	RecordAbsence(ctx context.Context, req models.AbsenceRequest) error
}

// ResolutionDispatcher schedules background resolution of pending requests.
type ResolutionDispatcher interface {
	Dispatch(ctx context.Context, ids ...int64) error
}

// ReportAbsenceRequest is the payload for reporting one absent slot.
type ReportAbsenceRequest struct {
	TeacherID int    `json:"teacherId" validate:"required,gt=0"`
	Day       string `json:"day" validate:"required,oneof=Monday Tuesday Wednesday Thursday Friday"`
	Period    int    `json:"period" validate:"required,gt=0"`
	Resolve   bool   `json:"resolve"`
}

// ReportTomorrowRequest is the payload for reporting a full next-day absence.
type ReportTomorrowRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// AbsenceListFilter narrows listings from the HTTP layer.
type AbsenceListFilter struct {
	TeacherID int                  `form:"teacherId"`
	Status    models.AbsenceStatus `form:"status" validate:"omitempty,oneof=CREATED PENDING_RESOLUTION RESOLVED_SUCCESS RESOLVED_FAILURE"`
}

// AbsenceOptions configures the workflow policies.
type AbsenceOptions struct {
	Cutoff   config.Clock
	Location *time.Location
	Now      func() time.Time
}

// AbsenceService runs the absence request state machine.
type AbsenceService struct {
	requests     absenceStore
	timetable    slotWriter
	availability availabilityResolver
	selector     substituteSelector
	notifier     notifier
	directory    teacherScope
	audit        absenceAudit
	dispatcher   ResolutionDispatcher
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger

	cutoff   config.Clock
	location *time.Location
	now      func() time.Time
}

// NewAbsenceService wires the workflow. audit and metrics may be nil.
func NewAbsenceService(
	requests absenceStore,
	timetable slotWriter,
	availability availabilityResolver,
	selector substituteSelector,
	notifier notifier,
	directory teacherScope,
	audit absenceAudit,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	opts AbsenceOptions,
) *AbsenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Cutoff == (config.Clock{}) {
		opts.Cutoff = config.Clock{Hour: 9}
	}
	return &AbsenceService{
		requests:     requests,
		timetable:    timetable,
		availability: availability,
		selector:     selector,
		notifier:     notifier,
		directory:    directory,
		audit:        audit,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		cutoff:       opts.Cutoff,
		location:     opts.Location,
		now:          opts.Now,
	}
}

// SetDispatcher enables background resolution for next-day reports.
func (s *AbsenceService) SetDispatcher(d ResolutionDispatcher) {
	s.dispatcher = d
}

// Report records that a teacher will miss one slot. With Resolve set the
// request is resolved before returning.
func (s *AbsenceService) Report(ctx context.Context, actor models.Actor, req ReportAbsenceRequest) (*models.AbsenceRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid absence payload")
	}

	teacher, err := s.directory.Get(ctx, req.TeacherID)
	if err != nil {
		s.notifier.Emit(ctx, "Error: Selected teacher not found.", models.NotificationError)
		return nil, err
	}
	ok, err := s.directory.InScope(ctx, actor, teacher.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher is outside your department")
	}

	slot, err := s.availability.CheckOwnership(*teacher, req.Day, req.Period)
	if err != nil {
		if errors.Is(err, appErrors.ErrPreconditionFailed) {
			s.notifier.Emit(ctx, fmt.Sprintf("Error: %s does not have a class at the selected time.", teacher.Name), models.NotificationError)
		} else {
			s.notifier.Emit(ctx, "Error: "+appErrors.FromError(err).Message+".", models.NotificationError)
		}
		return nil, err
	}

	created := s.newRequest(*teacher, req.Day, req.Period, slot, models.AbsenceSourceSingle, "")
	if err := s.requests.Create(ctx, created); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record absence")
	}
	pending, err := s.markPending(ctx, created)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAbsenceReported(string(models.AbsenceSourceSingle), 1)

	if req.Resolve {
		return s.Resolve(ctx, pending.ID)
	}
	return pending, nil
}

// ReportForTomorrow creates one pending request for every slot the teacher
// holds tomorrow. It is only accepted before the daily cutoff.
func (s *AbsenceService) ReportForTomorrow(ctx context.Context, teacherID int, req ReportTomorrowRequest) ([]models.AbsenceRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid absence payload")
	}

	now := s.now().In(s.location)
	if !s.cutoff.Before(now) {
		msg := fmt.Sprintf("Absence reporting for tomorrow is only available before %s.", s.cutoff)
		s.notifier.Emit(ctx, msg, models.NotificationError)
		return nil, appErrors.Clone(appErrors.ErrOutsideReportingWindow, msg)
	}

	day, ok := models.DayName(now.AddDate(0, 0, 1).Weekday())
	if !ok {
		msg := "Cannot report absence for a weekend."
		s.notifier.Emit(ctx, msg, models.NotificationError)
		return nil, appErrors.Clone(appErrors.ErrWeekendNotReportable, msg)
	}

	teacher, err := s.directory.Get(ctx, teacherID)
	if err != nil {
		s.notifier.Emit(ctx, "Error: Selected teacher not found.", models.NotificationError)
		return nil, err
	}

	slots, err := s.timetable.Day(day)
	if err != nil {
		return nil, err
	}
	batch := make([]*models.AbsenceRequest, 0, len(slots))
	for i, slot := range slots {
		if slot.AssignedTo(teacher.Name) {
			batch = append(batch, s.newRequest(*teacher, day, i+1, slot, models.AbsenceSourceTomorrow, req.Reason))
		}
	}
	if len(batch) == 0 {
		msg := fmt.Sprintf("You have no classes scheduled for tomorrow, %s.", day)
		s.notifier.Emit(ctx, msg, models.NotificationError)
		return nil, appErrors.Clone(appErrors.ErrNoClassesScheduled, msg)
	}

	if err := s.requests.CreateBatch(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record absences")
	}
	out := make([]models.AbsenceRequest, 0, len(batch))
	ids := make([]int64, 0, len(batch))
	for _, created := range batch {
		pending, err := s.markPending(ctx, created)
		if err != nil {
			return nil, err
		}
		out = append(out, *pending)
		ids = append(ids, pending.ID)
	}
	s.metrics.RecordAbsenceReported(string(models.AbsenceSourceTomorrow), len(out))
	s.notifier.Emit(ctx, fmt.Sprintf("Absence for %s reported for %s: %d class(es) need a substitute.", teacher.Name, day, len(out)), models.NotificationInfo)

	if s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(ctx, ids...); err != nil {
			s.logger.Warn("failed to schedule resolution", zap.Int64s("request_ids", ids), zap.Error(err))
		}
	}
	return out, nil
}

// Resolve finds and applies a substitute for a pending request. A request
// already in a terminal state is returned as stored without re-running.
func (s *AbsenceService) Resolve(ctx context.Context, id int64) (*models.AbsenceRequest, error) {
	req, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status.Terminal() {
		return terminalResult(req)
	}

	unlock, err := s.timetable.LockSlot(req.Day, req.Period)
	if err != nil {
		return s.fail(ctx, req, err)
	}
	defer unlock()

	// Another resolver may have finished while we waited for the slot.
	req, err = s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status.Terminal() {
		return terminalResult(req)
	}
	if req.Status != models.AbsenceStatusPendingResolution {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("request %d is %s", id, req.Status))
	}

	logger := s.logger.With(zap.Int64("request_id", req.ID), zap.String("day", req.Day), zap.Int("period", req.Period))

	current, err := s.timetable.GetSlot(req.Day, req.Period)
	if err != nil {
		return s.fail(ctx, req, err)
	}
	if !current.AssignedTo(req.AbsentTeacherName) {
		msg := fmt.Sprintf("%s no longer holds this class", req.AbsentTeacherName)
		if current.IsSubstitute {
			msg = fmt.Sprintf("the class is already covered by %s", current.TeacherName())
		}
		return s.fail(ctx, req, appErrors.Clone(appErrors.ErrConflict, msg))
	}

	absent, err := s.directory.Get(ctx, req.AbsentTeacherID)
	if err != nil {
		return s.fail(ctx, req, err)
	}
	candidates, err := s.availability.FreeTeachers(ctx, req.Day, req.Period, absent.ID)
	if err != nil {
		return s.fail(ctx, req, err)
	}
	selection, err := s.selector.Select(ctx, *absent, req.Day, req.Period, current, candidates)
	if err != nil {
		return s.fail(ctx, req, err)
	}

	// The mutation and its notifications form one unit; a cancelled caller
	// must not cut it short.
	commitCtx := context.WithoutCancel(ctx)
	applied, err := s.timetable.ApplySubstitution(req.Day, req.Period, selection.Teacher.Name)
	if err != nil {
		return s.fail(commitCtx, req, err)
	}

	resolvedAt := s.now().UTC()
	resolved, err := s.requests.Transition(commitCtx, req.ID, models.AbsenceStatusPendingResolution, func(r *models.AbsenceRequest) {
		r.Status = models.AbsenceStatusResolvedSuccess
		r.Slot = applied
		r.Substitute = models.StringPtr(selection.Teacher.Name)
		r.Reasoning = selection.Reasoning
		r.ResolvedAt = &resolvedAt
	})
	if err != nil {
		logger.Error("substitution applied but request transition failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record resolution")
	}

	s.announce(commitCtx, resolved, applied, selection.Teacher.Name)
	s.record(commitCtx, *resolved)
	s.metrics.RecordAbsenceOutcome(string(resolved.Status), "")
	logger.Info("absence resolved",
		zap.String("substitute", selection.Teacher.Name),
		zap.Bool("subject_match", selection.SubjectMatch),
		zap.Bool("fallback", selection.Fallback),
	)
	return resolved, nil
}

// Get returns a request visible to actor.
func (s *AbsenceService) Get(ctx context.Context, actor models.Actor, id int64) (*models.AbsenceRequest, error) {
	req, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.directory.InScope(ctx, actor, req.AbsentTeacherID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("absence request %d not found", id))
	}
	return req, nil
}

// List returns the requests visible to actor, oldest first.
func (s *AbsenceService) List(ctx context.Context, actor models.Actor, filter AbsenceListFilter) ([]models.AbsenceRequest, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter")
	}
	scope, err := s.directory.ScopeTeacherIDs(ctx, actor)
	if err != nil {
		return nil, err
	}
	items, err := s.requests.List(ctx, models.AbsenceFilter{
		TeacherID: filter.TeacherID,
		Status:    filter.Status,
		Teachers:  scope,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list absence requests")
	}
	return items, nil
}

// PendingBefore lists requests still pending that were created before cutoff.
func (s *AbsenceService) PendingBefore(ctx context.Context, cutoff time.Time) ([]models.AbsenceRequest, error) {
	return s.requests.List(ctx, models.AbsenceFilter{
		Status:        models.AbsenceStatusPendingResolution,
		CreatedBefore: cutoff,
	})
}

func (s *AbsenceService) newRequest(teacher models.Teacher, day string, period int, slot models.TimetableSlot, source models.AbsenceSource, reason string) *models.AbsenceRequest {
	return &models.AbsenceRequest{
		AbsentTeacherID:   teacher.ID,
		AbsentTeacherName: teacher.Name,
		Day:               day,
		Period:            period,
		Slot:              slot.Clone(),
		Status:            models.AbsenceStatusCreated,
		Source:            source,
		Reason:            reason,
		CreatedAt:         s.now().UTC(),
	}
}

func (s *AbsenceService) markPending(ctx context.Context, created *models.AbsenceRequest) (*models.AbsenceRequest, error) {
	s.record(ctx, *created)
	pending, err := s.requests.Transition(ctx, created.ID, models.AbsenceStatusCreated, func(r *models.AbsenceRequest) {
		r.Status = models.AbsenceStatusPendingResolution
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue absence")
	}
	s.record(ctx, *pending)
	s.logger.Debug("absence pending",
		zap.Int64("request_id", pending.ID),
		zap.String("teacher", pending.AbsentTeacherName),
		zap.String("day", pending.Day),
		zap.Int("period", pending.Period),
	)
	return pending, nil
}

func (s *AbsenceService) fetch(ctx context.Context, id int64) (*models.AbsenceRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAbsenceNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("absence request %d not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absence request")
	}
	return req, nil
}

// fail moves req to RESOLVED_FAILURE and emits exactly one error notification.
func (s *AbsenceService) fail(ctx context.Context, req *models.AbsenceRequest, cause error) (*models.AbsenceRequest, error) {
	appErr := appErrors.FromError(cause)
	resolvedAt := s.now().UTC()
	failed, err := s.requests.Transition(ctx, req.ID, models.AbsenceStatusPendingResolution, func(r *models.AbsenceRequest) {
		r.Status = models.AbsenceStatusResolvedFailure
		r.FailureCode = appErr.Code
		r.FailureReason = appErr.Message
		r.ResolvedAt = &resolvedAt
	})
	if err != nil {
		if errors.Is(err, repository.ErrStaleTransition) {
			if current, getErr := s.fetch(ctx, req.ID); getErr == nil && current.Status.Terminal() {
				return terminalResult(current)
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record resolution failure")
	}

	s.notifier.Emit(ctx, "Failed to find substitute. "+sentence(appErr.Message), models.NotificationError)
	s.record(ctx, *failed)
	s.metrics.RecordAbsenceOutcome(string(failed.Status), appErr.Code)
	s.logger.Warn("absence resolution failed",
		zap.Int64("request_id", failed.ID),
		zap.String("day", failed.Day),
		zap.Int("period", failed.Period),
		zap.String("reason", appErr.Code),
		zap.Error(cause),
	)
	return failed, appErr
}

func (s *AbsenceService) announce(ctx context.Context, req *models.AbsenceRequest, slot models.TimetableSlot, substitute string) {
	s.notifier.Emit(ctx, fmt.Sprintf("Success! %s will substitute for %s in Period %d.", substitute, req.AbsentTeacherName, req.Period), models.NotificationSuccess)
	s.notifier.Emit(ctx, fmt.Sprintf("Students of Class %s have been notified about the teacher change.", slot.Class), models.NotificationInfo)
	s.notifier.Emit(ctx, fmt.Sprintf("Faculty member %s has been assigned a substitute class.", substitute), models.NotificationInfo)
	if _, head, ok := s.directory.DepartmentHead(slot.Subject); ok {
		s.notifier.Emit(ctx, fmt.Sprintf("HOD Alert (%s): For the %s class in Period %d on %s, %s is substituting for %s.",
			head, slot.Subject, req.Period, req.Day, substitute, req.AbsentTeacherName), models.NotificationInfo)
	}
}

func (s *AbsenceService) record(ctx context.Context, req models.AbsenceRequest) {
	if s.audit == nil {
		return
	}
	start := time.Now()
	if err := s.audit.RecordAbsence(ctx, req); err != nil {
		s.logger.Warn("failed to persist absence event", zap.Int64("request_id", req.ID), zap.Error(err))
	}
	s.metrics.ObserveAuditWrite("absence", time.Since(start))
}

// terminalResult replays a stored outcome, rebuilding the typed error for failures.
func terminalResult(req *models.AbsenceRequest) (*models.AbsenceRequest, error) {
	if req.Status != models.AbsenceStatusResolvedFailure {
		return req, nil
	}
	return req, failureError(req.FailureCode, req.FailureReason)
}

var failureTemplates = map[string]*appErrors.Error{
	appErrors.ErrNoCandidates.Code:        appErrors.ErrNoCandidates,
	appErrors.ErrInvalidSelection.Code:    appErrors.ErrInvalidSelection,
	appErrors.ErrSelectorUnavailable.Code: appErrors.ErrSelectorUnavailable,
	appErrors.ErrConflict.Code:            appErrors.ErrConflict,
	appErrors.ErrNotFound.Code:            appErrors.ErrNotFound,
	appErrors.ErrOutOfRange.Code:          appErrors.ErrOutOfRange,
	appErrors.ErrSlotNotFound.Code:        appErrors.ErrSlotNotFound,
}

func failureError(code, reason string) *appErrors.Error {
	if tmpl, ok := failureTemplates[code]; ok {
		return appErrors.Clone(tmpl, reason)
	}
	return appErrors.Clone(appErrors.ErrInternal, reason)
}

func sentence(msg string) string {
	if msg == "" {
		return msg
	}
	msg = strings.ToUpper(msg[:1]) + msg[1:]
	switch msg[len(msg)-1] {
	case '.', '!', '?':
		return msg
	}
	return msg + "."
}
