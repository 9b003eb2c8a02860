package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/internal/repository"
)

func newDirectory(t *testing.T) *DirectoryService {
	t.Helper()
	dir, err := repository.NewTeacherDirectory(fixtureTeachers())
	require.NoError(t, err)
	return NewDirectoryService(dir,
		map[string]string{"Physics": "Science", "Chemistry": "Science", "English": "Humanities"},
		map[string]string{"Science": "Dr. Shetty", "Humanities": ""},
		nil,
	)
}

func TestDirectoryServiceListScopesHOD(t *testing.T) {
	svc := newDirectory(t)
	ctx := context.Background()

	all, err := svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	science, err := svc.List(ctx, models.Actor{Role: models.RoleHOD, Department: "Science"})
	require.NoError(t, err)
	assert.Equal(t, []string{teacherA, teacherB, teacherC}, names(science))

	none, err := svc.List(ctx, models.Actor{Role: models.RoleHOD})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDirectoryServiceScope(t *testing.T) {
	svc := newDirectory(t)
	ctx := context.Background()

	ids, err := svc.ScopeTeacherIDs(ctx, admin)
	require.NoError(t, err)
	assert.Nil(t, ids)

	ok, err := svc.InScope(ctx, models.Actor{Role: models.RoleTeacher, TeacherID: 2}, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.InScope(ctx, models.Actor{Role: models.RoleTeacher, TeacherID: 2}, 3)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = svc.InScope(ctx, models.Actor{Role: models.RoleStudent}, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = svc.InScope(ctx, models.Actor{Role: models.RoleHOD, Department: "Humanities"}, 4)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDirectoryServiceDepartmentHead(t *testing.T) {
	svc := newDirectory(t)

	dept, head, ok := svc.DepartmentHead("Physics")
	assert.True(t, ok)
	assert.Equal(t, "Science", dept)
	assert.Equal(t, "Dr. Shetty", head)

	_, _, ok = svc.DepartmentHead("English")
	assert.False(t, ok)
	_, _, ok = svc.DepartmentHead("Mathematics")
	assert.False(t, ok)

	assert.Equal(t, []string{"Science"}, svc.Departments(fixtureTeachers()[1]))

	heads := svc.DepartmentHeads()
	heads["Science"] = "changed"
	_, head, _ = svc.DepartmentHead("Physics")
	assert.Equal(t, "Dr. Shetty", head)
}
