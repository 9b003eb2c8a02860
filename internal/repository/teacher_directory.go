package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

// TeacherDirectory is an append-only, in-memory teacher registry.
type TeacherDirectory struct {
	mu     sync.RWMutex
	byID   map[int]models.Teacher
	byName map[string]int
}

// NewTeacherDirectory seeds the directory.
func NewTeacherDirectory(teachers []models.Teacher) (*TeacherDirectory, error) {
	d := &TeacherDirectory{
		byID:   make(map[int]models.Teacher, len(teachers)),
		byName: make(map[string]int, len(teachers)),
	}
	for _, t := range teachers {
		if err := d.Add(context.Background(), t); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// List returns all teachers ordered by ID.
func (d *TeacherDirectory) List(ctx context.Context) ([]models.Teacher, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.Teacher, 0, len(d.byID))
	for _, t := range d.byID {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindByID fetches a teacher by ID.
func (d *TeacherDirectory) FindByID(ctx context.Context, id int) (*models.Teacher, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.byID[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("teacher %d not found", id))
	}
	cp := t.Clone()
	return &cp, nil
}

// FindByName fetches a teacher by exact name.
func (d *TeacherDirectory) FindByName(ctx context.Context, name string) (*models.Teacher, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byName[name]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("teacher %q not found", name))
	}
	cp := d.byID[id].Clone()
	return &cp, nil
}

// Add appends a teacher. IDs and names are unique.
func (d *TeacherDirectory) Add(ctx context.Context, t models.Teacher) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.byID[t.ID]; exists {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("teacher id %d already registered", t.ID))
	}
	if _, exists := d.byName[t.Name]; exists {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("teacher %q already registered", t.Name))
	}
	d.byID[t.ID] = t.Clone()
	d.byName[t.Name] = t.ID
	return nil
}
