package repositories

import "context"

// Repository aggregates every store the workflow uses
type Repository interface {
	LoginRequest() LoginRequestRepository
	VerificationCode() VerificationCodeRepository
	FinalVerification() FinalVerificationRepository
	AccessGrant() AccessGrantRepository
	User() UserRepository
	FeatureFlag() FeatureFlagRepository

	// Staff identities (external, read-only)
	Identity() IdentityRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
