package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/pkg/config"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

// Selection is a validated substitute choice. SubjectMatch is set when the
// substitute teaches the slot's subject; Fallback when the deterministic ranker
// stood in for a failed collaborator.
type Selection struct {
	Teacher      models.Teacher
	Reasoning    string
	SubjectMatch bool
	Fallback     bool
}

// SelectorOptions configures a SubstituteSelector.
type SelectorOptions struct {
	Timeout  time.Duration
	Fallback string
	Metrics  *MetricsService
	Logger   *zap.Logger
}

// SubstituteSelector applies the subject-first policy and validates every
// ranker answer against the candidate pool.
type SubstituteSelector struct {
	ranker   Ranker
	backup   Ranker
	timeout  time.Duration
	fallback string
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewSubstituteSelector constructs a SubstituteSelector. backup is consulted
// when ranker fails and the fallback policy is secondary.
func NewSubstituteSelector(ranker, backup Ranker, opts SelectorOptions) *SubstituteSelector {
	if ranker == nil {
		ranker = backup
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Fallback != config.FallbackFail {
		opts.Fallback = config.FallbackSecondary
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &SubstituteSelector{
		ranker:   ranker,
		backup:   backup,
		timeout:  opts.Timeout,
		fallback: opts.Fallback,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
}

// Select chooses a substitute for slot from candidates.
func (s *SubstituteSelector) Select(ctx context.Context, absent models.Teacher, day string, period int, slot models.TimetableSlot, candidates []models.Teacher) (*Selection, error) {
	if len(candidates) == 0 {
		return nil, appErrors.ErrNoCandidates
	}

	pool := make([]models.Teacher, 0, len(candidates))
	for _, c := range candidates {
		if c.Teaches(slot.Subject) {
			pool = append(pool, c)
		}
	}
	subjectMatch := len(pool) > 0
	if !subjectMatch {
		pool = candidates
	}

	if len(pool) == 1 {
		only := pool[0]
		reason := fmt.Sprintf("%s is the only available teacher for period %d on %s", only.Name, period, day)
		if subjectMatch {
			reason = fmt.Sprintf("%s is the only available teacher who teaches %s", only.Name, slot.Subject)
		}
		s.metrics.ObserveSelection("single", "accepted", 0)
		return &Selection{Teacher: only, Reasoning: reason, SubjectMatch: subjectMatch}, nil
	}

	req := RankRequest{
		AbsentTeacher: absent.Name,
		Subject:       slot.Subject,
		Day:           day,
		Period:        period,
		Candidates:    pool,
	}

	selection, err := s.rank(ctx, s.ranker, "primary", req)
	if err == nil {
		selection.SubjectMatch = subjectMatch
		return selection, nil
	}
	if !errors.Is(err, appErrors.ErrSelectorUnavailable) {
		return nil, err
	}
	if s.fallback == config.FallbackFail || s.backup == nil || s.backup == s.ranker {
		return nil, err
	}

	s.logger.Warn("ranker failed, using deterministic fallback",
		zap.String("day", day),
		zap.Int("period", period),
		zap.String("reason", appErrors.CodeOf(err)),
		zap.Error(err),
	)
	selection, fbErr := s.rank(ctx, s.backup, "fallback", req)
	if fbErr != nil {
		return nil, fbErr
	}
	selection.SubjectMatch = subjectMatch
	selection.Fallback = true
	return selection, nil
}

func (s *SubstituteSelector) rank(ctx context.Context, ranker Ranker, strategy string, req RankRequest) (*Selection, error) {
	rankCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := ranker.Rank(rankCtx, req)
	duration := time.Since(start)
	if err != nil {
		if errors.Is(rankCtx.Err(), context.DeadlineExceeded) || !errors.Is(err, appErrors.ErrSelectorUnavailable) {
			err = appErrors.Wrap(err, appErrors.ErrSelectorUnavailable.Code, appErrors.ErrSelectorUnavailable.Status, appErrors.ErrSelectorUnavailable.Message)
		}
		s.metrics.ObserveSelection(strategy, "unavailable", duration)
		return nil, err
	}

	for _, c := range req.Candidates {
		if c.Name == result.Name {
			s.metrics.ObserveSelection(strategy, "accepted", duration)
			return &Selection{Teacher: c, Reasoning: result.Reasoning}, nil
		}
	}
	s.metrics.ObserveSelection(strategy, "invalid", duration)
	return nil, appErrors.Clone(appErrors.ErrInvalidSelection,
		fmt.Sprintf("suggested substitute %q is not an available teacher", result.Name))
}
