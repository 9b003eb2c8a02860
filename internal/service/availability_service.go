package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/pkg/config"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type timetableReader interface {
	GetSlot(day string, period int) (models.TimetableSlot, error)
	PeriodAcrossWeek(period int) (map[string]models.TimetableSlot, error)
}

type teacherDirectory interface {
	List(ctx context.Context) ([]models.Teacher, error)
	FindByID(ctx context.Context, id int) (*models.Teacher, error)
	FindByName(ctx context.Context, name string) (*models.Teacher, error)
}

// AvailabilityService computes which teachers are free for a slot.
type AvailabilityService struct {
	timetable timetableReader
	teachers  teacherDirectory
	scope     string
	logger    *zap.Logger
}

// NewAvailabilityService constructs an AvailabilityService. An unknown scope
// falls back to same-day scoping.
func NewAvailabilityService(timetable timetableReader, teachers teacherDirectory, scope string, logger *zap.Logger) *AvailabilityService {
	if scope != config.ScopeWeek {
		scope = config.ScopeSameDay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{timetable: timetable, teachers: teachers, scope: scope, logger: logger}
}

// Scope returns the active availability scope.
func (s *AvailabilityService) Scope() string {
	return s.scope
}

// CheckOwnership returns the slot at (day, period) when teacher is assigned to it.
func (s *AvailabilityService) CheckOwnership(teacher models.Teacher, day string, period int) (models.TimetableSlot, error) {
	slot, err := s.timetable.GetSlot(day, period)
	if err != nil {
		return models.TimetableSlot{}, err
	}
	if !slot.AssignedTo(teacher.Name) {
		return models.TimetableSlot{}, appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("%s does not have a class at the selected time", teacher.Name))
	}
	return slot, nil
}

// FreeTeachers returns directory teachers not occupying the slot, minus excludingID.
func (s *AvailabilityService) FreeTeachers(ctx context.Context, day string, period int, excludingID int) ([]models.Teacher, error) {
	occupied, err := s.occupied(day, period)
	if err != nil {
		return nil, err
	}
	all, err := s.teachers.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}

	free := make([]models.Teacher, 0, len(all))
	for _, t := range all {
		if t.ID == excludingID {
			continue
		}
		if _, busy := occupied[t.Name]; busy {
			continue
		}
		free = append(free, t)
	}
	s.logger.Debug("availability computed",
		zap.String("day", day),
		zap.Int("period", period),
		zap.String("scope", s.scope),
		zap.Int("free", len(free)),
	)
	return free, nil
}

func (s *AvailabilityService) occupied(day string, period int) (map[string]struct{}, error) {
	names := make(map[string]struct{})
	if s.scope == config.ScopeWeek {
		if _, err := s.timetable.GetSlot(day, period); err != nil {
			return nil, err
		}
		slots, err := s.timetable.PeriodAcrossWeek(period)
		if err != nil {
			return nil, err
		}
		for _, slot := range slots {
			if slot.Teacher != nil {
				names[*slot.Teacher] = struct{}{}
			}
		}
		return names, nil
	}

	slot, err := s.timetable.GetSlot(day, period)
	if err != nil {
		return nil, err
	}
	if slot.Teacher != nil {
		names[*slot.Teacher] = struct{}{}
	}
	return names, nil
}
