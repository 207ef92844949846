package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
)

// ===== FILTERS =====

// ListFilters defines paging and ordering for list queries.
// SortBy is checked against a per-table whitelist by implementations.
type ListFilters struct {
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

type LoginRequestFilters struct {
	ListFilters
	Status   *models.RequestStatus
	Username *string
	DateFrom *time.Time
	DateTo   *time.Time
}

// RequestUpdate is the set of columns a decision writes on a login request.
type RequestUpdate struct {
	Status models.RequestStatus
	// FillCode is stored only when the row has no code at write time
	FillCode    *string
	Message     *string
	ProcessedAt *time.Time
}

// ===== REPOSITORIES =====

// LoginRequestRepository stores login requests. "Latest" always means
// ordered by created_at DESC, id DESC.
type LoginRequestRepository interface {
	Create(ctx context.Context, tx *gorm.DB, req *models.LoginRequest) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.LoginRequest, error)
	GetLatestByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.LoginRequest, error)

	// ApplyDecision writes update only if the row still has status from.
	// It reports false when another writer moved the row first.
	ApplyDecision(ctx context.Context, tx *gorm.DB, id uint, from models.RequestStatus, update RequestUpdate) (bool, error)
	SetVerificationCode(ctx context.Context, tx *gorm.DB, id uint, code string) error

	List(ctx context.Context, tx *gorm.DB, filters LoginRequestFilters) ([]*models.LoginRequest, int64, error)
}

type VerificationCodeRepository interface {
	// Upsert inserts (username, code) or updates the status of the existing pair.
	Upsert(ctx context.Context, tx *gorm.DB, username, code string, status models.CodeStatus) (*models.VerificationCode, error)
	GetByUsernameAndCode(ctx context.Context, tx *gorm.DB, username, code string) (*models.VerificationCode, error)
	GetLatestByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.VerificationCode, error)

	// GetLatestUnusedForApproved returns the newest unused code of a username
	// that has at least one approved login request.
	GetLatestUnusedForApproved(ctx context.Context, tx *gorm.DB, username string) (*models.VerificationCode, error)

	// MarkValidated sets status and validated_at. With markUsed it also sets
	// used=true, guarded on the row still being unused.
	MarkValidated(ctx context.Context, tx *gorm.DB, id uint, status models.CodeStatus, markUsed bool) (bool, error)

	ListByStatus(ctx context.Context, tx *gorm.DB, status models.CodeStatus) ([]*models.VerificationCode, error)
	List(ctx context.Context, tx *gorm.DB, filters ListFilters) ([]*models.VerificationCode, error)
}

type FinalVerificationRepository interface {
	Create(ctx context.Context, tx *gorm.DB, fv *models.FinalVerification) error
	GetLatestByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.FinalVerification, error)

	// DecidePending moves every pending row of username to status and returns
	// how many rows changed.
	DecidePending(ctx context.Context, tx *gorm.DB, username string, status models.FinalStatus) (int64, error)
	List(ctx context.Context, tx *gorm.DB, status *models.FinalStatus) ([]*models.FinalVerification, error)
}

type AccessGrantRepository interface {
	Upsert(ctx context.Context, tx *gorm.DB, username string, granted bool) (*models.AccessGrant, error)
	GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.AccessGrant, error)
}

type UserRepository interface {
	Upsert(ctx context.Context, tx *gorm.DB, username, password string) (*models.User, error)
	GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.User, error)
	List(ctx context.Context, tx *gorm.DB, filters ListFilters) ([]*models.User, error)
}

type FeatureFlagRepository interface {
	Get(ctx context.Context, tx *gorm.DB, key string) (*models.FeatureFlag, error)
	Set(ctx context.Context, tx *gorm.DB, key string, enabled bool) (*models.FeatureFlag, error)
	List(ctx context.Context, tx *gorm.DB) ([]*models.FeatureFlag, error)
}
