package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
	"github.com/noah-isme/sma-substitution-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

const exportCachePattern = "timetable:export:*"

type timetableStore interface {
	Days() []string
	PeriodsPerDay() int
	Version() uint64
	Snapshot() models.TimetableData
	GetSlot(day string, period int) (models.TimetableSlot, error)
	LockSlot(day string, period int) (func(), error)
	ClearSubstitution(day string, period int, replacement models.TimetableSlot) (models.TimetableSlot, error)
}

type referenceSource interface {
	List(ctx context.Context, actor models.Actor) ([]models.Teacher, error)
	SubjectDepartments() map[string]string
	DepartmentHeads() map[string]string
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type titledRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered timetable document.
type ExportFile struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Payload     []byte `json:"payload"`
}

// TimetableService serves reads and administrative overrides of the timetable.
type TimetableService struct {
	store     timetableStore
	directory referenceSource
	notifier  notifier
	cache     *CacheService
	csv       datasetRenderer
	pdf       titledRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService constructs a TimetableService. cache may be nil.
func NewTimetableService(store timetableStore, directory referenceSource, notifier notifier, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		store:     store,
		directory: directory,
		notifier:  notifier,
		cache:     cache,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
	}
}

// Snapshot returns a detached copy of the whole week.
func (s *TimetableService) Snapshot(ctx context.Context) models.TimetableData {
	return s.store.Snapshot()
}

// Days returns the instructional days in order.
func (s *TimetableService) Days() []string {
	return s.store.Days()
}

// UpdateSlot merges patch over the current slot and installs the result with
// substitution flags cleared.
func (s *TimetableService) UpdateSlot(ctx context.Context, day string, period int, patch models.SlotPatch) (models.TimetableSlot, error) {
	if err := s.validator.Struct(patch); err != nil {
		return models.TimetableSlot{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	if patch.Teacher != nil && *patch.Teacher != "" {
		if err := s.ensureTeacher(ctx, *patch.Teacher); err != nil {
			return models.TimetableSlot{}, err
		}
	}

	unlock, err := s.store.LockSlot(day, period)
	if err != nil {
		return models.TimetableSlot{}, err
	}
	defer unlock()

	current, err := s.store.GetSlot(day, period)
	if err != nil {
		return models.TimetableSlot{}, err
	}
	next := current.Clone()
	if patch.Class != nil {
		next.Class = *patch.Class
	}
	if patch.Subject != nil {
		next.Subject = *patch.Subject
	}
	switch {
	case patch.ClearTeacher:
		next.Teacher = nil
	case patch.Teacher != nil && *patch.Teacher == "":
		next.Teacher = nil
	case patch.Teacher != nil:
		next.Teacher = models.StringPtr(*patch.Teacher)
	}

	updated, err := s.store.ClearSubstitution(day, period, next)
	if err != nil {
		return models.TimetableSlot{}, err
	}
	s.cache.Invalidate(ctx, exportCachePattern)
	s.notifier.Emit(ctx, fmt.Sprintf("Timetable for %s, Period %d updated successfully.", day, period), models.NotificationSuccess)
	s.logger.Info("timetable slot updated",
		zap.String("day", day),
		zap.Int("period", period),
		zap.String("teacher", updated.TeacherName()),
	)
	return updated, nil
}

// Export renders the timetable as CSV or PDF, reusing a cached rendering of
// the same timetable version when available.
func (s *TimetableService) Export(ctx context.Context, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	version := s.store.Version()
	key := fmt.Sprintf("timetable:export:%s:v%d", format, version)
	var cached ExportFile
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	dataset := s.dataset()
	file := &ExportFile{Filename: fmt.Sprintf("timetable-v%d.%s", version, format)}
	var err error
	switch format {
	case ExportFormatPDF:
		file.ContentType = "application/pdf"
		file.Payload, err = s.pdf.Render(dataset, "Weekly Timetable")
	default:
		file.ContentType = "text/csv"
		file.Payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}
	s.cache.Set(ctx, key, file, 0)
	return file, nil
}

// Reference returns the static lookup data used by clients.
func (s *TimetableService) Reference(ctx context.Context) (models.Reference, error) {
	teachers, err := s.directory.List(ctx, models.SystemActor)
	if err != nil {
		return models.Reference{}, err
	}
	seen := make(map[string]struct{})
	for _, t := range teachers {
		for _, subject := range t.Subjects {
			seen[subject] = struct{}{}
		}
	}
	for _, row := range s.store.Snapshot() {
		for _, slot := range row {
			if slot.Subject != "" {
				seen[slot.Subject] = struct{}{}
			}
		}
	}
	subjects := make([]string, 0, len(seen))
	for subject := range seen {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	periods := make([]int, s.store.PeriodsPerDay())
	for i := range periods {
		periods[i] = i + 1
	}
	return models.Reference{
		Days:               s.store.Days(),
		Periods:            periods,
		Subjects:           subjects,
		SubjectDepartments: s.directory.SubjectDepartments(),
		DepartmentHeads:    s.directory.DepartmentHeads(),
	}, nil
}

func (s *TimetableService) ensureTeacher(ctx context.Context, name string) error {
	teachers, err := s.directory.List(ctx, models.SystemActor)
	if err != nil {
		return err
	}
	for _, t := range teachers {
		if t.Name == name {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("teacher %q not found", name))
}

func (s *TimetableService) dataset() export.Dataset {
	headers := []string{"Day", "Period", "Class", "Subject", "Teacher", "Substitute For"}
	snapshot := s.store.Snapshot()
	data := export.Dataset{Headers: headers}
	for _, day := range s.store.Days() {
		for i, slot := range snapshot[day] {
			row := map[string]string{
				"Day":     day,
				"Period":  strconv.Itoa(i + 1),
				"Class":   slot.Class,
				"Subject": slot.Subject,
				"Teacher": slot.TeacherName(),
			}
			substitute := slot.IsSubstitute && slot.OriginalTeacher != nil
			if substitute {
				row["Substitute For"] = *slot.OriginalTeacher
			}
			data.Rows = append(data.Rows, row)
			data.Marked = append(data.Marked, substitute)
		}
	}
	return data
}
