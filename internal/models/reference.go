package models

// Reference bundles the static lookup data consumed by clients.
type Reference struct {
	Days               []string          `json:"days"`
	Periods            []int             `json:"periods"`
	Subjects           []string          `json:"subjects"`
	SubjectDepartments map[string]string `json:"subjectToDepartment"`
	DepartmentHeads    map[string]string `json:"departmentHODs"`
}
