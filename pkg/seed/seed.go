// Package seed loads the initial directory and timetable grid.
package seed

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/sma-substitution-api/internal/models"
)

//go:embed default.yaml
var defaultSeed []byte

// Data is the seed payload supplied by the directory provider.
type Data struct {
	PeriodsPerDay      int                  `yaml:"periodsPerDay" validate:"required,gt=0"`
	Teachers           []models.Teacher     `yaml:"teachers" validate:"required,min=1,dive"`
	Timetable          models.TimetableData `yaml:"timetable" validate:"required"`
	SubjectDepartments map[string]string    `yaml:"subjectToDepartment"`
	DepartmentHeads    map[string]string    `yaml:"departmentHODs"`
}

// Load reads seed data from path, or the embedded default when path is empty.
func Load(path string) (*Data, error) {
	raw := defaultSeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}
		raw = b
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML (or JSON) seed document.
func Parse(raw []byte) (*Data, error) {
	var data Data
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := data.Validate(validator.New()); err != nil {
		return nil, err
	}
	return &data, nil
}

// Validate checks that the grid is complete and references known teachers.
func (d *Data) Validate(v *validator.Validate) error {
	if err := v.Struct(d); err != nil {
		return fmt.Errorf("invalid seed: %w", err)
	}

	names := make(map[string]struct{}, len(d.Teachers))
	ids := make(map[int]struct{}, len(d.Teachers))
	for _, t := range d.Teachers {
		if _, dup := ids[t.ID]; dup {
			return fmt.Errorf("invalid seed: duplicate teacher id %d", t.ID)
		}
		if _, dup := names[t.Name]; dup {
			return fmt.Errorf("invalid seed: duplicate teacher name %q", t.Name)
		}
		ids[t.ID] = struct{}{}
		names[t.Name] = struct{}{}
	}

	for _, day := range models.Weekdays {
		slots, ok := d.Timetable[day]
		if !ok {
			return fmt.Errorf("invalid seed: missing day %s", day)
		}
		if len(slots) != d.PeriodsPerDay {
			return fmt.Errorf("invalid seed: %s has %d periods, want %d", day, len(slots), d.PeriodsPerDay)
		}
		for i, slot := range slots {
			if slot.Teacher == nil {
				continue
			}
			if _, ok := names[*slot.Teacher]; !ok {
				return fmt.Errorf("invalid seed: %s period %d references unknown teacher %q", day, i+1, *slot.Teacher)
			}
		}
	}
	if len(d.Timetable) != len(models.Weekdays) {
		return fmt.Errorf("invalid seed: timetable must contain exactly the weekdays")
	}
	return nil
}

// Subjects returns the distinct subjects taught, sorted.
func (d *Data) Subjects() []string {
	seen := make(map[string]struct{})
	for _, t := range d.Teachers {
		for _, s := range t.Subjects {
			seen[s] = struct{}{}
		}
	}
	for _, slots := range d.Timetable {
		for _, s := range slots {
			if s.Subject != "" {
				seen[s.Subject] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
