package models

import "time"

// ===== STUDENT REQUESTS =====

type LoginSubmission struct {
	Username     string       `json:"username" validate:"required,username,max=255"`
	Password     string       `json:"password" validate:"required"`
	AuthProvider AuthProvider `json:"authProvider" validate:"required,auth_provider"`
}

type CodeSubmission struct {
	Username         string `json:"username" validate:"required,username,max=255"`
	VerificationCode string `json:"verificationCode" validate:"required,verification_code"`
	RequestID        *uint  `json:"requestId" validate:"omitempty,min=1"`
}

type FinalVerificationSubmission struct {
	Username string `json:"username" validate:"required,username,max=255"`
}

// ===== PROFESSOR REQUESTS =====

type ApproveRequest struct {
	RequestID uint    `json:"requestId" validate:"required,min=1"`
	Username  string  `json:"username" validate:"required,username,max=255"`
	Message   *string `json:"message" validate:"omitempty,max=1000"`
}

type RejectRequest struct {
	RequestID uint   `json:"requestId" validate:"required,min=1"`
	Username  string `json:"username" validate:"required,username,max=255"`
}

type CodeDecisionRequest struct {
	Username string  `json:"username" validate:"required,username,max=255"`
	Code     string  `json:"verificationCode" validate:"required,verification_code"`
	Message  *string `json:"message" validate:"omitempty,max=1000"`
}

type ValidateCodeRequest struct {
	Username      string `json:"username" validate:"required,username,max=255"`
	SubmittedCode string `json:"verificationCode" validate:"required"`
}

type UsernameRequest struct {
	Username string `json:"username" validate:"required,username,max=255"`
}

type UpsertUserRequest struct {
	Username string `json:"username" validate:"required,username,max=255"`
	Password string `json:"password" validate:"required"`
}

type FeatureFlagUpdate struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// ===== RESULTS =====

type LoginResult struct {
	Success   bool          `json:"success"`
	Message   string        `json:"message"`
	RequestID uint          `json:"requestId"`
	Status    RequestStatus `json:"status"`
}

type CodeSubmissionResult struct {
	Success   bool          `json:"success"`
	Message   string        `json:"message"`
	Status    RequestStatus `json:"status"`
	RequestID uint          `json:"requestId"`
}

type ApprovalResult struct {
	Success                   bool    `json:"success"`
	Message                   string  `json:"message"`
	RequestID                 uint    `json:"requestId"`
	Username                  string  `json:"username"`
	VerificationCode          *string `json:"verificationCode"`
	AccessGranted             bool    `json:"accessGranted"`
	RequiresFinalVerification bool    `json:"requiresFinalVerification"`
}

type ValidationResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Username      string `json:"username"`
	AccessGranted bool   `json:"accessGranted"`
}

type FinalDecisionResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Updated       int64  `json:"updated"`
	AccessGranted bool   `json:"accessGranted"`
}

type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ===== POLL VIEWS =====

type RequestStatusView struct {
	ID               uint          `json:"id"`
	Status           RequestStatus `json:"status"`
	VerificationCode *string       `json:"verificationCode"`
	ProcessedAt      *time.Time    `json:"processedAt"`
	Message          *string       `json:"message"`
	AuthProvider     AuthProvider  `json:"authProvider"`
}

type CodeStatusView struct {
	Success     bool       `json:"success"`
	Status      string     `json:"status"`
	ValidatedAt *time.Time `json:"validatedAt"`
	Used        bool       `json:"used"`
}

type AccessStatusView struct {
	Username  string     `json:"username"`
	Granted   bool       `json:"granted"`
	GrantedAt *time.Time `json:"grantedAt,omitempty"`
}

type FinalStatusView struct {
	Status      string     `json:"status"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
}
