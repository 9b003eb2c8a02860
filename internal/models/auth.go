package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access token payload issued by the identity provider.
type JWTClaims struct {
	UserID     string   `json:"user_id"`
	Role       UserRole `json:"role"`
	FullName   string   `json:"full_name,omitempty"`
	TeacherID  int      `json:"teacher_id,omitempty"`
	Department string   `json:"department,omitempty"`
	jwt.RegisteredClaims
}

// IssueTokenRequest describes a development token.
type IssueTokenRequest struct {
	UserID     string   `json:"user_id" validate:"required"`
	Role       UserRole `json:"role" validate:"required,oneof=ADMIN HOD TEACHER STUDENT"`
	FullName   string   `json:"full_name"`
	TeacherID  int      `json:"teacher_id" validate:"required_if=Role TEACHER"`
	Department string   `json:"department" validate:"required_if=Role HOD"`
}

// Actor is the caller on whose behalf an operation runs.
type Actor struct {
	UserID     string
	Role       UserRole
	TeacherID  int
	Department string
}

// Actor extracts the caller identity from the claims.
func (c *JWTClaims) Actor() Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{UserID: c.UserID, Role: c.Role, TeacherID: c.TeacherID, Department: c.Department}
}

// SystemActor is used by background workers.
var SystemActor = Actor{UserID: "system", Role: RoleAdmin}
