package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
	"github.com/SAP-F-2025/login-approval-service/internal/services"
	"github.com/SAP-F-2025/login-approval-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ProfessorHandler serves the review dashboard
type ProfessorHandler struct {
	BaseHandler
	review services.ReviewService
	export services.ExportService
}

func NewProfessorHandler(review services.ReviewService, export services.ExportService, logger utils.Logger) *ProfessorHandler {
	return &ProfessorHandler{
		BaseHandler: NewBaseHandler(logger),
		review:      review,
		export:      export,
	}
}

// ===== REQUEST DECISIONS =====

// Approve approves a pending login request
// @Summary Approve login request
// @Tags professor
// @Accept json
// @Produce json
// @Param body body models.ApproveRequest true "Decision"
// @Success 200 {object} models.ApprovalResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /professor/approve [post]
func (h *ProfessorHandler) Approve(c *gin.Context) {
	var req models.ApproveRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Approving login request", "request_id", req.RequestID, "username", req.Username, "reviewer", reviewerName(c))

	result, err := h.review.Approve(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Reject rejects a pending login request
// @Summary Reject login request
// @Tags professor
// @Accept json
// @Produce json
// @Param body body models.RejectRequest true "Decision"
// @Success 200 {object} models.ActionResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /professor/reject [post]
func (h *ProfessorHandler) Reject(c *gin.Context) {
	var req models.RejectRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Rejecting login request", "request_id", req.RequestID, "username", req.Username, "reviewer", reviewerName(c))

	result, err := h.review.Reject(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ===== CODE DECISIONS =====

// ApproveCode approves a code and the user's latest request in one step
// @Summary Approve verification code
// @Tags professor
// @Accept json
// @Produce json
// @Param body body models.CodeDecisionRequest true "Code"
// @Success 200 {object} models.ApprovalResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /professor/approve-code [post]
func (h *ProfessorHandler) ApproveCode(c *gin.Context) {
	var req models.CodeDecisionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Approving verification code", "username", req.Username, "reviewer", reviewerName(c))

	result, err := h.review.ApproveCode(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RejectCode rejects one submitted code without touching the request
// @Summary Reject verification code
// @Tags professor
// @Accept json
// @Produce json
// @Param body body models.CodeDecisionRequest true "Code"
// @Success 200 {object} models.ActionResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /professor/reject-code [post]
func (h *ProfessorHandler) RejectCode(c *gin.Context) {
	var req models.CodeDecisionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Rejecting verification code", "username", req.Username, "reviewer", reviewerName(c))

	result, err := h.review.RejectCode(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ValidateCode compares the code the student read out with the stored one.
// A mismatch is a 200 with success=false.
// @Summary Validate verification code
// @Tags professor
// @Accept json
// @Produce json
// @Param body body models.ValidateCodeRequest true "Code"
// @Success 200 {object} models.ValidationResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /professor/validate-code [post]
func (h *ProfessorHandler) ValidateCode(c *gin.Context) {
	var req models.ValidateCodeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Validating verification code", "username", req.Username, "reviewer", reviewerName(c))

	result, err := h.review.ValidateCode(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ===== FINAL VERIFICATION & ACCESS =====

// ApproveFinal approves the user's pending final verifications
// @Summary Approve final verification
// @Tags professor
// @Accept json
// @Produce json
// @Param body body models.UsernameRequest true "Username"
// @Success 200 {object} models.FinalDecisionResult
// @Router /professor/final-verification/approve [post]
func (h *ProfessorHandler) ApproveFinal(c *gin.Context) {
	var req models.UsernameRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Approving final verification", "username", req.Username, "reviewer", reviewerName(c))

	result, err := h.review.ApproveFinal(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RejectFinal rejects the user's pending final verifications
// @Summary Reject final verification
// @Tags professor
// @Accept json
// @Produce json
// @Param body body models.UsernameRequest true "Username"
// @Success 200 {object} models.FinalDecisionResult
// @Router /professor/final-verification/reject [post]
func (h *ProfessorHandler) RejectFinal(c *gin.Context) {
	var req models.UsernameRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Rejecting final verification", "username", req.Username, "reviewer", reviewerName(c))

	result, err := h.review.RejectFinal(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GrantAccess grants access unconditionally
// @Summary Grant access
// @Tags professor
// @Accept json
// @Produce json
// @Param body body models.UsernameRequest true "Username"
// @Success 200 {object} models.ActionResult
// @Router /professor/grant-access [post]
func (h *ProfessorHandler) GrantAccess(c *gin.Context) {
	var req models.UsernameRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Granting access", "username", req.Username, "reviewer", reviewerName(c))

	result, err := h.review.GrantAccess(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ===== LISTINGS =====

// @Summary List pending login requests, oldest first
// @Tags professor
// @Produce json
// @Success 200 {array} models.PendingRequest
// @Router /professor/pending-requests [get]
func (h *ProfessorHandler) ListPending(c *gin.Context) {
	requests, err := h.review.ListPending(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// @Summary List approved login requests
// @Tags professor
// @Produce json
// @Success 200 {array} models.LoginRequest
// @Router /professor/approved-requests [get]
func (h *ProfessorHandler) ListApproved(c *gin.Context) {
	requests, err := h.review.ListApproved(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// @Summary List rejected login requests
// @Tags professor
// @Produce json
// @Success 200 {array} models.LoginRequest
// @Router /professor/rejected-requests [get]
func (h *ProfessorHandler) ListRejected(c *gin.Context) {
	requests, err := h.review.ListRejected(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// @Summary List verification codes awaiting review
// @Tags professor
// @Produce json
// @Success 200 {array} models.VerificationCode
// @Router /professor/pending-codes [get]
func (h *ProfessorHandler) ListPendingCodes(c *gin.Context) {
	codes, err := h.review.ListPendingCodes(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, codes)
}

// @Summary List every verification code
// @Tags professor
// @Produce json
// @Param limit query int false "Page size (default: 50, max: 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.VerificationCode
// @Router /professor/codes [get]
func (h *ProfessorHandler) ListCodes(c *gin.Context) {
	limit, offset := parsePaging(c)
	codes, err := h.review.ListCodes(c.Request.Context(), repositories.ListFilters{Limit: limit, Offset: offset})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, codes)
}

// @Summary List final verifications
// @Tags professor
// @Produce json
// @Param status query string false "pending, approved or rejected"
// @Success 200 {array} models.FinalVerification
// @Router /professor/final-verifications [get]
func (h *ProfessorHandler) ListFinalVerifications(c *gin.Context) {
	var status *models.FinalStatus
	if s := c.Query("status"); s != "" {
		fs := models.FinalStatus(s)
		switch fs {
		case models.FinalPending, models.FinalApproved, models.FinalRejected:
			status = &fs
		default:
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid status",
				Details: "status must be pending, approved or rejected",
			})
			return
		}
	}

	rows, err := h.review.ListFinalVerifications(c.Request.Context(), status)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// ExportRequests downloads login requests as a workbook
// @Summary Export login requests
// @Tags professor
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param status query string false "pending, approved or rejected"
// @Success 200 {file} file
// @Router /professor/export/requests [get]
func (h *ProfessorHandler) ExportRequests(c *gin.Context) {
	filters := repositories.LoginRequestFilters{}
	if s := c.Query("status"); s != "" {
		rs := models.RequestStatus(s)
		switch rs {
		case models.RequestPending, models.RequestApproved, models.RequestRejected:
			filters.Status = &rs
		default:
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid status",
				Details: "status must be pending, approved or rejected",
			})
			return
		}
	}

	h.LogRequest(c, "Exporting login requests", "status", c.Query("status"), "reviewer", reviewerName(c))

	data, err := h.export.ExportRequests(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("login-requests-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ===== ERROR HANDLING =====

func (h *ProfessorHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrLoginRequestNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Login request not found",
		})
	case errors.Is(err, services.ErrVerificationCodeNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Verification code not found",
		})
	case errors.Is(err, services.ErrNoCodeToValidate):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "No unused code for an approved request",
		})
	case errors.Is(err, services.ErrRequestOwnership):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Request does not belong to user",
		})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Request was already decided the other way",
		})
	case errors.Is(err, services.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Request was modified concurrently, reload and retry",
		})
	case errors.Is(err, services.ErrCodeAlreadyUsed):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Verification code already used",
		})
	case errors.Is(err, services.ErrBadRequest):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Bad request", Details: err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Resource not found", Details: err.Error()})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Conflict", Details: err.Error()})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
