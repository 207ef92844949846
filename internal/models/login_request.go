package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuthProvider string

const (
	ProviderApple  AuthProvider = "apple"
	ProviderGoogle AuthProvider = "google"
	ProviderUnset  AuthProvider = ""
)

// Valid reports whether the provider may be chosen by a student at login.
// ProviderUnset only exists on rows created before providers were recorded.
func (p AuthProvider) Valid() bool {
	return p == ProviderApple || p == ProviderGoogle
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

type LoginRequest struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	Username         string         `json:"username" gorm:"not null;size:255;index:idx_login_requests_username_created,priority:1"`
	Password         string         `json:"-" gorm:"not null"`
	AuthProvider     AuthProvider   `json:"authProvider" gorm:"size:20;default:''"`
	Status           RequestStatus  `json:"status" gorm:"not null;size:20;default:'pending';index"`
	VerificationCode *string        `json:"verificationCode" gorm:"size:6"`
	Message          *string        `json:"message"`
	ClientInfo       datatypes.JSON `json:"clientInfo,omitempty" gorm:"type:jsonb"`

	CreatedAt   time.Time  `json:"createdAt" gorm:"index:idx_login_requests_username_created,priority:2"`
	ProcessedAt *time.Time `json:"processedAt"`
}

func (LoginRequest) TableName() string {
	return "login_requests"
}

// ClientInfo is what the server records about the submitting client.
type ClientInfo struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// PendingRequest is a pending login request with the code the student most
// recently attached, falling back to the latest code submitted for the user.
type PendingRequest struct {
	LoginRequest
	Code *string `json:"code"`
}
