package models

import (
	"strings"
	"time"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPER ADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RolePOS        UserRole = "POS"
	RoleInmate     UserRole = "INMATE"
)

// NormalizeRole maps external role strings onto the canonical closed set.
// Legacy records use "STUDENT" for the inmate role; both spellings collapse
// to RoleInmate here so the rest of the system sees a single token.
func NormalizeRole(raw string) (UserRole, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUPER ADMIN", "SUPERADMIN":
		return RoleSuperAdmin, true
	case "ADMIN":
		return RoleAdmin, true
	case "POS":
		return RolePOS, true
	case "INMATE", "STUDENT":
		return RoleInmate, true
	}
	return "", false
}

// User represents a staff or inmate account stored in the users table. An
// inmate account carries the inmate business key it belongs to; staff
// accounts leave it null.
type User struct {
	ID             string     `db:"id" json:"id"`
	Username       string     `db:"username" json:"username"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	Fullname       string     `db:"fullname" json:"fullname"`
	Role           UserRole   `db:"role" json:"role"`
	InmateID       *string    `db:"inmate_id" json:"inmateId,omitempty"`
	Active         bool       `db:"active" json:"active"`
	FaceDescriptor Descriptor `db:"face_descriptor" json:"-"`
	LastLogin      *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// CreateUserRequest is the payload for registering an account. InmateID is
// required for the INMATE role and rejected for staff roles.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
	Fullname string `json:"fullname" validate:"required"`
	Role     string `json:"role" validate:"required"`
	InmateID string `json:"inmateId"`
}

// UpdateUserRequest is the payload for modifying an account.
type UpdateUserRequest struct {
	Fullname string `json:"fullname" validate:"required"`
	Role     string `json:"role" validate:"required"`
	Active   bool   `json:"active"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *UserRole
	Active   *bool
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
