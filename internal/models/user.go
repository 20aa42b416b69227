package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserRole enumerates the supported account roles.
type UserRole string

const (
	RolePrincipal UserRole = "principal"
	RoleTeacher   UserRole = "teacher"
	RoleStudent   UserRole = "student"
)

// Valid returns true when the role is a supported value.
func (r UserRole) Valid() bool {
	switch r {
	case RolePrincipal, RoleTeacher, RoleStudent:
		return true
	default:
		return false
	}
}

// User is an authenticated account. SchoolID is set for principals and
// teachers, ClassID for class teachers (their homeroom), StudentID for
// student accounts.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Role         UserRole  `db:"role" json:"role"`
	SchoolID     *string   `db:"school_id" json:"school_id,omitempty"`
	ClassID      *string   `db:"class_id" json:"class_id,omitempty"`
	StudentID    *string   `db:"student_id" json:"student_id,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// JWTClaims represents the JWT payload for access tokens. The scoping ids
// are resolved server-side at login; core operations trust only these,
// never a client-supplied class or school id.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	FullName  string   `json:"full_name"`
	SchoolID  string   `json:"school_id,omitempty"`
	ClassID   string   `json:"class_id,omitempty"`
	StudentID string   `json:"student_id,omitempty"`
	jwt.RegisteredClaims
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
	SchoolID string   `json:"school_id,omitempty"`
	ClassID  string   `json:"class_id,omitempty"`
}
