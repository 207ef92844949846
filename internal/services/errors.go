package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/login-approval-service/internal/validator"
)

// Error families. Handlers map these onto HTTP status codes.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// Login requests
var (
	ErrLoginRequestNotFound = fmt.Errorf("login request %w", ErrNotFound)
	ErrUnknownRequestID     = fmt.Errorf("%w: unknown request id", ErrBadRequest)
	ErrRequestOwnership     = fmt.Errorf("%w: request does not belong to user", ErrBadRequest)
	ErrInvalidTransition    = fmt.Errorf("%w: invalid status transition", ErrConflict)
	ErrConcurrentUpdate     = fmt.Errorf("%w: request was modified concurrently", ErrConflict)
	ErrProviderDisabled     = fmt.Errorf("%w: auth provider is disabled", ErrConflict)
)

// Verification codes
var (
	ErrVerificationCodeNotFound = fmt.Errorf("verification code %w", ErrNotFound)
	ErrNoCodeToValidate         = fmt.Errorf("no unused verification code for an approved request: %w", ErrNotFound)
	ErrCodeAlreadyUsed          = fmt.Errorf("%w: verification code already used", ErrConflict)
)

// Final verification
var (
	ErrFinalVerificationNotApplicable = fmt.Errorf("%w: final verification requires an approved google login", ErrConflict)
)

// Feature flags
var (
	ErrFeatureFlagNotFound = fmt.Errorf("feature flag %w", ErrNotFound)
)

type ValidationError = validator.ValidationError
type ValidationErrors = validator.ValidationErrors

func IsValidationError(err error) bool {
	var ve ValidationErrors
	return errors.As(err, &ve)
}
