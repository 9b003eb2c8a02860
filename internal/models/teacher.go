package models

import "strings"

// Teacher is an instructor in the directory. Teachers are immutable once added.
type Teacher struct {
	ID       int      `json:"id" yaml:"id" validate:"required,gt=0"`
	Name     string   `json:"name" yaml:"name" validate:"required"`
	Subjects []string `json:"subjects" yaml:"subjects"`
}

// Teaches reports whether subject is one of the teacher's competencies.
func (t Teacher) Teaches(subject string) bool {
	for _, s := range t.Subjects {
		if strings.EqualFold(s, subject) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot alias directory state.
func (t Teacher) Clone() Teacher {
	t.Subjects = append([]string(nil), t.Subjects...)
	return t
}

// TeacherFilter narrows directory listings.
type TeacherFilter struct {
	Department string
}
