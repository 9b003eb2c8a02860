package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefault(t *testing.T) {
	data, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 6, data.PeriodsPerDay)
	assert.Len(t, data.Timetable, 5)
	for _, slots := range data.Timetable {
		assert.Len(t, slots, data.PeriodsPerDay)
	}
	assert.Equal(t, "CSE", data.SubjectDepartments["Java Programming"])
	assert.Equal(t, "Mrs. Sahana", data.DepartmentHeads["CSE"])
	assert.Nil(t, data.Timetable["Tuesday"][5].Teacher)
	assert.Contains(t, data.Subjects(), "Physics")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validSeed), 0o600))

	data, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, data.PeriodsPerDay)
	assert.Equal(t, "A", data.Timetable["Monday"][0].TeacherName())
}

func TestParseRejectsUnevenGrid(t *testing.T) {
	_, err := Parse([]byte(`
periodsPerDay: 2
teachers:
  - {id: 1, name: A, subjects: [Physics]}
timetable:
  Monday: [{class: 9A, subject: Physics, teacher: A}]
  Tuesday: [{class: 9A, subject: Physics, teacher: A}, {class: 9A, subject: Physics, teacher: null}]
  Wednesday: [{class: 9A, subject: Physics, teacher: A}, {class: 9A, subject: Physics, teacher: null}]
  Thursday: [{class: 9A, subject: Physics, teacher: A}, {class: 9A, subject: Physics, teacher: null}]
  Friday: [{class: 9A, subject: Physics, teacher: A}, {class: 9A, subject: Physics, teacher: null}]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Monday has 1 periods")
}

func TestParseRejectsUnknownTeacher(t *testing.T) {
	_, err := Parse([]byte(`
periodsPerDay: 1
teachers:
  - {id: 1, name: A, subjects: [Physics]}
timetable:
  Monday: [{class: 9A, subject: Physics, teacher: Ghost}]
  Tuesday: [{class: 9A, subject: Physics, teacher: A}]
  Wednesday: [{class: 9A, subject: Physics, teacher: A}]
  Thursday: [{class: 9A, subject: Physics, teacher: A}]
  Friday: [{class: 9A, subject: Physics, teacher: A}]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown teacher")
}

func TestParseRejectsDuplicateTeacher(t *testing.T) {
	_, err := Parse([]byte(`
periodsPerDay: 1
teachers:
  - {id: 1, name: A, subjects: [Physics]}
  - {id: 1, name: B, subjects: [Physics]}
timetable:
  Monday: [{class: 9A, subject: Physics, teacher: A}]
  Tuesday: [{class: 9A, subject: Physics, teacher: A}]
  Wednesday: [{class: 9A, subject: Physics, teacher: A}]
  Thursday: [{class: 9A, subject: Physics, teacher: A}]
  Friday: [{class: 9A, subject: Physics, teacher: A}]
`))
	require.Error(t, err)
}

const validSeed = `
periodsPerDay: 1
teachers:
  - {id: 1, name: A, subjects: [Physics]}
timetable:
  Monday: [{class: 9A, subject: Physics, teacher: A}]
  Tuesday: [{class: 9A, subject: Physics, teacher: null}]
  Wednesday: [{class: 9A, subject: Physics, teacher: null}]
  Thursday: [{class: 9A, subject: Physics, teacher: null}]
  Friday: [{class: 9A, subject: Physics, teacher: null}]
`
