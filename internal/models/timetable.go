package models

import "time"

// TimetableSlot is one (day, period) cell.
type TimetableSlot struct {
	Class           string  `json:"class" yaml:"class"`
	Subject         string  `json:"subject" yaml:"subject"`
	Teacher         *string `json:"teacher" yaml:"teacher"`
	IsSubstitute    bool    `json:"isSubstitute" yaml:"-"`
	OriginalTeacher *string `json:"originalTeacher,omitempty" yaml:"-"`
}

// TeacherName returns the assigned teacher or an empty string.
func (s TimetableSlot) TeacherName() string {
	if s.Teacher == nil {
		return ""
	}
	return *s.Teacher
}

// AssignedTo reports whether name currently holds the slot.
func (s TimetableSlot) AssignedTo(name string) bool {
	return s.Teacher != nil && *s.Teacher == name
}

// Clone returns a copy that shares no pointers with s.
func (s TimetableSlot) Clone() TimetableSlot {
	out := s
	out.Teacher = cloneString(s.Teacher)
	out.OriginalTeacher = cloneString(s.OriginalTeacher)
	return out
}

// TimetableData maps a day name to its slots, indexed by period-1.
type TimetableData map[string][]TimetableSlot

// SlotPatch carries an administrative override. Nil fields keep the current value.
type SlotPatch struct {
	Class        *string `json:"class" validate:"omitempty,min=1"`
	Subject      *string `json:"subject" validate:"omitempty,min=1"`
	Teacher      *string `json:"teacher"`
	ClearTeacher bool    `json:"clearTeacher"`
}

// Weekdays are the instructional days, in timetable order.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// DayName maps a calendar weekday to its timetable day. Weekend days are not
// instructional and return false.
func DayName(w time.Weekday) (string, bool) {
	if w < time.Monday || w > time.Friday {
		return "", false
	}
	return Weekdays[int(w)-1], true
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

// StringPtr is a small helper for optional string fields.
func StringPtr(v string) *string {
	return &v
}
