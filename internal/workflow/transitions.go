// Package workflow holds the pure decision logic of the login approval flow.
// Nothing here touches storage: callers read the current rows, ask for a
// decision, then persist what the decision says.
package workflow

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrOwnershipMismatch = errors.New("request does not belong to user")
)

// RequestDecision describes the write a professor action results in.
type RequestDecision struct {
	From models.RequestStatus
	To   models.RequestStatus
	// FillCode is attached by the store only if the row has no code when the
	// write lands. Nil leaves the stored code alone.
	FillCode *string
	Message  *string
	// Changed is false when the request already was in the target state.
	Changed bool
}

// CheckOwnership verifies that a request addressed by id belongs to username.
func CheckOwnership(req *models.LoginRequest, username string) error {
	if req.Username != username {
		return fmt.Errorf("%w: request %d", ErrOwnershipMismatch, req.ID)
	}
	return nil
}

// Approve decides a professor approval. Re-approving is allowed and keeps the
// request approved; approving a rejected request is refused.
func Approve(req *models.LoginRequest, message *string) (RequestDecision, error) {
	switch req.Status {
	case models.RequestPending, models.RequestApproved:
	default:
		return RequestDecision{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.Status, models.RequestApproved)
	}

	return RequestDecision{
		From:    req.Status,
		To:      models.RequestApproved,
		Message: PreferIncoming(message, req.Message),
		Changed: req.Status != models.RequestApproved,
	}, nil
}

// Reject decides a professor rejection. Rejecting an approved request is refused.
func Reject(req *models.LoginRequest) (RequestDecision, error) {
	switch req.Status {
	case models.RequestPending, models.RequestRejected:
	default:
		return RequestDecision{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.Status, models.RequestRejected)
	}

	return RequestDecision{
		From:    req.Status,
		To:      models.RequestRejected,
		Message: req.Message,
		Changed: req.Status != models.RequestRejected,
	}, nil
}

// ForceApproveWithCode is the code shortcut: the latest request becomes
// approved whatever its status, and the code is only filled when absent.
func ForceApproveWithCode(req *models.LoginRequest, code string, message *string) RequestDecision {
	return RequestDecision{
		From:     req.Status,
		To:       models.RequestApproved,
		FillCode: &code,
		Message:  PreferIncoming(message, req.Message),
		Changed:  req.Status != models.RequestApproved,
	}
}

// CodeValidation is the outcome of comparing a submitted code to the stored one.
type CodeValidation struct {
	Match  bool
	Status models.CodeStatus
	// Grant is true when access must be granted as a consequence.
	Grant bool
}

// DecideCodeValidation compares codes as strings, so "012345" never equals "12345".
func DecideCodeValidation(stored *models.VerificationCode, submitted string) CodeValidation {
	if stored.Code == submitted {
		return CodeValidation{Match: true, Status: models.CodeApproved, Grant: true}
	}
	return CodeValidation{Match: false, Status: models.CodeRejected}
}

// CodeStatusFor maps a request decision onto the status its attached code takes.
func CodeStatusFor(to models.RequestStatus) models.CodeStatus {
	if to == models.RequestApproved {
		return models.CodeApproved
	}
	if to == models.RequestRejected {
		return models.CodeRejected
	}
	return models.CodePending
}

// FinalVerificationAllowed reports whether a final verification may be opened
// given the user's latest request.
func FinalVerificationAllowed(latest *models.LoginRequest) bool {
	return latest != nil &&
		latest.Status == models.RequestApproved &&
		PolicyFor(latest.AuthProvider).RequiresFinalVerification
}
