package models

import "time"

// AbsenceStatus captures workflow states for absence requests.
type AbsenceStatus string

const (
	AbsenceStatusCreated           AbsenceStatus = "CREATED"
	AbsenceStatusPendingResolution AbsenceStatus = "PENDING_RESOLUTION"
	AbsenceStatusResolvedSuccess   AbsenceStatus = "RESOLVED_SUCCESS"
	AbsenceStatusResolvedFailure   AbsenceStatus = "RESOLVED_FAILURE"
)

// Terminal reports whether no further transition is allowed.
func (s AbsenceStatus) Terminal() bool {
	return s == AbsenceStatusResolvedSuccess || s == AbsenceStatusResolvedFailure
}

// AbsenceSource records which path created the request.
type AbsenceSource string

const (
	AbsenceSourceSingle   AbsenceSource = "SINGLE"
	AbsenceSourceTomorrow AbsenceSource = "TOMORROW"
)

// AbsenceRequest tracks one absent slot from report to resolution. Requests
// are never deleted.
type AbsenceRequest struct {
	ID                int64         `json:"id"`
	AbsentTeacherID   int           `json:"absentTeacherId"`
	AbsentTeacherName string        `json:"absentTeacherName"`
	Day               string        `json:"day"`
	Period            int           `json:"period"`
	Slot              TimetableSlot `json:"slot"`
	Status            AbsenceStatus `json:"status"`
	Source            AbsenceSource `json:"source"`
	Reason            string        `json:"reason,omitempty"`
	Reasoning         string        `json:"reasoning,omitempty"`
	Substitute        *string       `json:"substitute,omitempty"`
	FailureCode       string        `json:"failureCode,omitempty"`
	FailureReason     string        `json:"failureReason,omitempty"`
	CreatedAt         time.Time     `json:"timestamp"`
	ResolvedAt        *time.Time    `json:"resolvedAt,omitempty"`
}

// Clone returns a copy detached from the request log.
func (r AbsenceRequest) Clone() AbsenceRequest {
	out := r
	out.Slot = r.Slot.Clone()
	out.Substitute = cloneString(r.Substitute)
	if r.ResolvedAt != nil {
		ts := *r.ResolvedAt
		out.ResolvedAt = &ts
	}
	return out
}

// AbsenceFilter narrows request listings.
type AbsenceFilter struct {
	TeacherID     int
	Status        AbsenceStatus
	Teachers      map[int]struct{}
	CreatedBefore time.Time
}

// Matches reports whether r satisfies the filter.
func (f AbsenceFilter) Matches(r AbsenceRequest) bool {
	if f.TeacherID != 0 && r.AbsentTeacherID != f.TeacherID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if !f.CreatedBefore.IsZero() && !r.CreatedAt.Before(f.CreatedBefore) {
		return false
	}
	if f.Teachers != nil {
		if _, ok := f.Teachers[r.AbsentTeacherID]; !ok {
			return false
		}
	}
	return true
}
