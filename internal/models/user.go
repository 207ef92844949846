package models

import (
	"time"
)

type UserRole string
type Role = UserRole

const (
	RoleStudent   UserRole = "student"
	RoleProfessor UserRole = "professor"
	RoleAdmin     UserRole = "admin"
)

// Identity is an authenticated staff member as resolved from Casdoor.
// Students never authenticate this way; they are identified by username only.
type Identity struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Email       string   `json:"email"`
	Role        UserRole `json:"role"`

	AvatarURL *string `json:"avatarUrl,omitempty"`

	EmailVerified bool `json:"emailVerified"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
