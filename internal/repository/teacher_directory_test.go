package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

func TestTeacherDirectoryLookups(t *testing.T) {
	dir, err := NewTeacherDirectory([]models.Teacher{
		{ID: 2, Name: "B", Subjects: []string{"Physics"}},
		{ID: 1, Name: "A", Subjects: []string{"Physics", "Mathematics"}},
	})
	require.NoError(t, err)
	ctx := context.Background()

	list, err := dir.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].ID)

	list[0].Subjects[0] = "mutated"
	teacher, err := dir.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Physics", teacher.Subjects[0])

	teacher, err = dir.FindByName(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, 2, teacher.ID)

	_, err = dir.FindByID(ctx, 99)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	_, err = dir.FindByName(ctx, "Nobody")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestTeacherDirectoryRejectsDuplicates(t *testing.T) {
	dir, err := NewTeacherDirectory([]models.Teacher{{ID: 1, Name: "A"}})
	require.NoError(t, err)

	err = dir.Add(context.Background(), models.Teacher{ID: 1, Name: "Other"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	err = dir.Add(context.Background(), models.Teacher{ID: 2, Name: "A"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = NewTeacherDirectory([]models.Teacher{{ID: 1, Name: "A"}, {ID: 1, Name: "B"}})
	assert.Error(t, err)
}
