package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

// DirectoryService exposes the teacher directory with department scoping.
type DirectoryService struct {
	teachers           teacherDirectory
	subjectDepartments map[string]string
	departmentHeads    map[string]string
	logger             *zap.Logger
}

// NewDirectoryService constructs a DirectoryService.
func NewDirectoryService(teachers teacherDirectory, subjectDepartments, departmentHeads map[string]string, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{
		teachers:           teachers,
		subjectDepartments: copyStringMap(subjectDepartments),
		departmentHeads:    copyStringMap(departmentHeads),
		logger:             logger,
	}
}

// List returns the teachers visible to actor. Heads of department only see
// teachers with at least one subject in their department.
func (s *DirectoryService) List(ctx context.Context, actor models.Actor) ([]models.Teacher, error) {
	all, err := s.teachers.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	if actor.Role != models.RoleHOD {
		return all, nil
	}
	scoped := make([]models.Teacher, 0, len(all))
	for _, t := range all {
		if s.inDepartment(t, actor.Department) {
			scoped = append(scoped, t)
		}
	}
	return scoped, nil
}

// Get fetches a teacher by id.
func (s *DirectoryService) Get(ctx context.Context, id int) (*models.Teacher, error) {
	return s.teachers.FindByID(ctx, id)
}

// Departments returns the sorted departments covered by t's subjects.
func (s *DirectoryService) Departments(t models.Teacher) []string {
	seen := make(map[string]struct{})
	for _, subject := range t.Subjects {
		if dept, ok := s.subjectDepartments[subject]; ok {
			seen[dept] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for dept := range seen {
		out = append(out, dept)
	}
	sort.Strings(out)
	return out
}

// ScopeTeacherIDs returns the teacher ids actor may act on. A nil map means no restriction.
func (s *DirectoryService) ScopeTeacherIDs(ctx context.Context, actor models.Actor) (map[int]struct{}, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return nil, nil
	case models.RoleTeacher:
		return map[int]struct{}{actor.TeacherID: {}}, nil
	case models.RoleHOD:
		teachers, err := s.List(ctx, actor)
		if err != nil {
			return nil, err
		}
		ids := make(map[int]struct{}, len(teachers))
		for _, t := range teachers {
			ids[t.ID] = struct{}{}
		}
		return ids, nil
	default:
		return map[int]struct{}{}, nil
	}
}

// InScope reports whether actor may act on teacherID.
func (s *DirectoryService) InScope(ctx context.Context, actor models.Actor, teacherID int) (bool, error) {
	ids, err := s.ScopeTeacherIDs(ctx, actor)
	if err != nil {
		return false, err
	}
	if ids == nil {
		return true, nil
	}
	_, ok := ids[teacherID]
	return ok, nil
}

// DepartmentHead resolves the department owning subject and its head.
func (s *DirectoryService) DepartmentHead(subject string) (department, head string, ok bool) {
	department, ok = s.subjectDepartments[subject]
	if !ok {
		return "", "", false
	}
	head, ok = s.departmentHeads[department]
	if !ok || head == "" {
		return department, "", false
	}
	return department, head, true
}

// SubjectDepartments returns a copy of the subject to department mapping.
func (s *DirectoryService) SubjectDepartments() map[string]string {
	return copyStringMap(s.subjectDepartments)
}

// DepartmentHeads returns a copy of the department to head mapping.
func (s *DirectoryService) DepartmentHeads() map[string]string {
	return copyStringMap(s.departmentHeads)
}

func (s *DirectoryService) inDepartment(t models.Teacher, department string) bool {
	if department == "" {
		return false
	}
	for _, subject := range t.Subjects {
		if s.subjectDepartments[subject] == department {
			return true
		}
	}
	return false
}

func copyStringMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
