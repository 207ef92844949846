package models

import "time"

type CodeStatus string

const (
	CodePending  CodeStatus = "pending"
	CodeApproved CodeStatus = "approved"
	CodeRejected CodeStatus = "rejected"
)

type VerificationCode struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	Username         string     `json:"username" gorm:"not null;size:255;uniqueIndex:uq_verification_codes_username_code,priority:1"`
	Code             string     `json:"code" gorm:"not null;size:6;uniqueIndex:uq_verification_codes_username_code,priority:2"`
	ValidationStatus CodeStatus `json:"validationStatus" gorm:"not null;size:20;default:'pending'"`
	Used             bool       `json:"used" gorm:"default:false"`
	CreatedAt        time.Time  `json:"createdAt"`
	ValidatedAt      *time.Time `json:"validatedAt"`
}

func (VerificationCode) TableName() string {
	return "verification_codes"
}

type FinalStatus string

const (
	FinalPending  FinalStatus = "pending"
	FinalApproved FinalStatus = "approved"
	FinalRejected FinalStatus = "rejected"
)

// FinalVerification is the extra confirmation gate for Google logins.
// Several rows may exist per username; the most recent one is authoritative.
type FinalVerification struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	Username    string      `json:"username" gorm:"not null;size:255;index"`
	Status      FinalStatus `json:"status" gorm:"not null;size:20;default:'pending'"`
	CreatedAt   time.Time   `json:"createdAt"`
	ProcessedAt *time.Time  `json:"processedAt"`
}

func (FinalVerification) TableName() string {
	return "final_verifications"
}

// PollStatusNotFound is reported by poll endpoints when no row exists yet.
// It is never stored.
const PollStatusNotFound = "not_found"
