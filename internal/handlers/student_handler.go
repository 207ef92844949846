package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/services"
	"github.com/SAP-F-2025/login-approval-service/internal/utils"
)

type StudentHandler struct {
	BaseHandler
	login  services.LoginService
	status services.StatusService
	access services.AccessService
}

func NewStudentHandler(
	login services.LoginService,
	status services.StatusService,
	access services.AccessService,
	logger utils.Logger,
) *StudentHandler {
	return &StudentHandler{
		BaseHandler: NewBaseHandler(logger),
		login:       login,
		status:      status,
		access:      access,
	}
}

// ===== SUBMISSIONS =====

// Login submits credentials for professor review
// @Summary Submit login request
// @Tags student
// @Accept json
// @Produce json
// @Param body body models.LoginSubmission true "Credentials"
// @Success 200 {object} models.LoginResult
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Provider disabled"
// @Router /login [post]
func (h *StudentHandler) Login(c *gin.Context) {
	var req models.LoginSubmission
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Submitting login request", "username", req.Username, "auth_provider", req.AuthProvider)

	client := models.ClientInfo{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
	result, err := h.login.SubmitLogin(c.Request.Context(), &req, client)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Verify attaches a verification code to the student's request
// @Summary Submit verification code
// @Tags student
// @Accept json
// @Produce json
// @Param body body models.CodeSubmission true "Code"
// @Success 200 {object} models.CodeSubmissionResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "No login request for user"
// @Router /verify [post]
func (h *StudentHandler) Verify(c *gin.Context) {
	var req models.CodeSubmission
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Submitting verification code", "username", req.Username)

	result, err := h.login.SubmitVerificationCode(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RequestFinalVerification opens the second gate for an approved Google login
// @Summary Request final verification
// @Tags student
// @Accept json
// @Produce json
// @Param body body models.FinalVerificationSubmission true "Username"
// @Success 200 {object} models.ActionResult
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Latest request is not an approved Google login"
// @Router /student/final-verification/request [post]
func (h *StudentHandler) RequestFinalVerification(c *gin.Context) {
	var req models.FinalVerificationSubmission
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Requesting final verification", "username", req.Username)

	result, err := h.login.RequestFinalVerification(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ===== POLLING =====

// RequestStatus returns the user's latest login request
// @Summary Poll login request status
// @Tags student
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} map[string]models.RequestStatusView
// @Failure 404 {object} ErrorResponse
// @Router /student/request-status/{username} [get]
func (h *StudentHandler) RequestStatus(c *gin.Context) {
	noStore(c)

	view, err := h.status.RequestStatus(c.Request.Context(), c.Param("username"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": view})
}

// CodeStatus returns the validation state of one submitted code
// @Summary Poll verification code status
// @Tags student
// @Produce json
// @Param username path string true "Username"
// @Param code path string true "Verification code"
// @Success 200 {object} models.CodeStatusView
// @Router /student/code-status/{username}/{code} [get]
func (h *StudentHandler) CodeStatus(c *gin.Context) {
	noStore(c)

	view, err := h.status.CodeStatus(c.Request.Context(), c.Param("username"), c.Param("code"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// FinalStatus returns the user's latest final verification
// @Summary Poll final verification status
// @Tags student
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.FinalStatusView
// @Router /student/final-verification/status/{username} [get]
func (h *StudentHandler) FinalStatus(c *gin.Context) {
	noStore(c)

	view, err := h.status.FinalStatus(c.Request.Context(), c.Param("username"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// AccessStatus reports whether the user passed every gate
// @Summary Poll access grant
// @Tags student
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.AccessStatusView
// @Router /student/access-status/{username} [get]
func (h *StudentHandler) AccessStatus(c *gin.Context) {
	noStore(c)

	username := c.Param("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Username is required"})
		return
	}

	view, err := h.access.AccessStatus(c.Request.Context(), username)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// ===== PROTECTED =====

type Track struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Duration string `json:"duration"`
}

var playlist = []Track{
	{Title: "Demo Song 1", Artist: "Sample Artist", Duration: "3:45"},
	{Title: "Relaxing Melody", Artist: "Virtual Composer", Duration: "4:12"},
	{Title: "Energetic Rhythm", Artist: "Digital Band", Duration: "3:28"},
	{Title: "Sounds of Nature", Artist: "Natural Ambience", Duration: "5:30"},
	{Title: "Smooth Jazz", Artist: "Classic Ensemble", Duration: "4:45"},
}

// Playlist is the protected resource behind the access gate
// @Summary Get playlist
// @Tags protected
// @Produce json
// @Param X-Username header string true "Username"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} ErrorResponse
// @Router /protected/playlist [get]
func (h *StudentHandler) Playlist(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"username": c.GetString(grantedUserKey),
		"tracks":   playlist,
	})
}

// ===== ERROR HANDLING =====

func (h *StudentHandler) handleServiceError(c *gin.Context, err error) {
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
			Message: "No login request found for user",
		})
	case errors.Is(err, services.ErrUnknownRequestID):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Unknown request id",
		})
	case errors.Is(err, services.ErrRequestOwnership):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Request does not belong to user",
		})
	case errors.Is(err, services.ErrProviderDisabled):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Auth provider is disabled",
		})
	case errors.Is(err, services.ErrFinalVerificationNotApplicable):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Final verification requires an approved Google login",
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
