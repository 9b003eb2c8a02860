package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/noah-isme/sma-substitution-api/internal/models"
)

// ErrAbsenceNotFound is returned when a request id is unknown.
var ErrAbsenceNotFound = errors.New("absence request not found")

// ErrStaleTransition is returned when a request is not in the expected status.
var ErrStaleTransition = errors.New("absence request status changed")

// AbsenceRepository is the in-memory request log. IDs increase monotonically
// and requests are never removed.
type AbsenceRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]*models.AbsenceRequest
}

// NewAbsenceRepository constructs an empty log.
func NewAbsenceRepository() *AbsenceRepository {
	return &AbsenceRepository{items: make(map[int64]*models.AbsenceRequest)}
}

// Create assigns the next id and stores a copy of req.
func (r *AbsenceRepository) Create(ctx context.Context, req *models.AbsenceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	req.ID = r.nextID
	cp := req.Clone()
	r.items[req.ID] = &cp
	return nil
}

// CreateBatch stores all requests under one lock so their ids are contiguous.
func (r *AbsenceRepository) CreateBatch(ctx context.Context, reqs []*models.AbsenceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range reqs {
		r.nextID++
		req.ID = r.nextID
		cp := req.Clone()
		r.items[req.ID] = &cp
	}
	return nil
}

// GetByID returns a copy of the request.
func (r *AbsenceRepository) GetByID(ctx context.Context, id int64) (*models.AbsenceRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, ErrAbsenceNotFound
	}
	cp := item.Clone()
	return &cp, nil
}

// List returns matching requests ordered by id.
func (r *AbsenceRepository) List(ctx context.Context, filter models.AbsenceFilter) ([]models.AbsenceRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.AbsenceRequest, 0, len(r.items))
	for _, item := range r.items {
		if filter.Matches(*item) {
			out = append(out, item.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Transition applies mutate to the request if it is currently in from.
func (r *AbsenceRepository) Transition(ctx context.Context, id int64, from models.AbsenceStatus, mutate func(*models.AbsenceRequest)) (*models.AbsenceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, ErrAbsenceNotFound
	}
	if item.Status != from {
		return nil, fmt.Errorf("%w: request %d is %s, want %s", ErrStaleTransition, id, item.Status, from)
	}
	next := item.Clone()
	mutate(&next)
	next.ID = item.ID
	r.items[id] = &next
	cp := next.Clone()
	return &cp, nil
}
