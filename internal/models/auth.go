package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// FaceLoginRequest authenticates via a biometric feature vector.
type FaceLoginRequest struct {
	Descriptor Descriptor `json:"descriptor" validate:"required,min=1"`
	IP         string     `json:"-"`
	UserAgent  string     `json:"-"`
}

// LoginResponse returns the issued token and user info. Password and
// biometric logins both normalize to this shape.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expires_in"`
	User      UserInfo  `json:"user"`
	IssuedAt  time.Time `json:"issued_at"`
}

// ChangePasswordRequest payload for updating a password. The current
// password must be confirmed.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Fullname string   `json:"fullname"`
	Role     UserRole `json:"role"`
	InmateID string   `json:"inmateId,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens. InmateID carries
// the inmate business key for INMATE-role tokens so self-scoped routes can
// check it without a database round trip; it is empty for staff.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Username string   `json:"username"`
	Fullname string   `json:"fullname"`
	InmateID string   `json:"inmate_id,omitempty"`
	jwt.RegisteredClaims
}
