package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
	"github.com/SAP-F-2025/login-approval-service/internal/services"
	"github.com/SAP-F-2025/login-approval-service/internal/utils"
)

// UserHandler manages student accounts and lists staff identities
type UserHandler struct {
	BaseHandler
	users    services.UserService
	identity repositories.IdentityRepository
}

func NewUserHandler(users services.UserService, identity repositories.IdentityRepository, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		users:       users,
		identity:    identity,
	}
}

// UpsertUser creates or updates a student account and grants access
// @Summary Create or update user
// @Tags users
// @Accept json
// @Produce json
// @Param body body models.UpsertUserRequest true "User"
// @Success 200 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Router /professor/users [post]
func (h *UserHandler) UpsertUser(c *gin.Context) {
	var req models.UpsertUserRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Upserting user", "username", req.Username, "reviewer", reviewerName(c))

	user, err := h.users.Upsert(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListUsers lists student accounts
// @Summary List users
// @Tags users
// @Produce json
// @Param limit query int false "Page size (default: 50, max: 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.User
// @Router /professor/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	limit, offset := parsePaging(c)

	users, err := h.users.List(c.Request.Context(), repositories.ListFilters{Limit: limit, Offset: offset})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

// Me returns the authenticated reviewer
// @Summary Current reviewer
// @Tags users
// @Produce json
// @Success 200 {object} models.Identity
// @Failure 401 {object} ErrorResponse
// @Router /professor/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	identity, err := GetIdentityFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}
	c.JSON(http.StatusOK, identity)
}

// ListStaff lists reviewers known to the identity provider
// @Summary List staff
// @Tags users
// @Produce json
// @Param q query string false "Search query (name or email)"
// @Param limit query int false "Page size (default: 50, max: 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} map[string]interface{}
// @Router /professor/staff [get]
func (h *UserHandler) ListStaff(c *gin.Context) {
	limit, offset := parsePaging(c)
	filters := repositories.IdentityFilters{
		Query:  c.Query("q"),
		Limit:  limit,
		Offset: offset,
	}

	h.LogRequest(c, "Listing staff", "query", filters.Query)

	staff, total, err := h.identity.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":  staff,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *UserHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	switch {
	case errors.Is(err, repositories.ErrNotFound), errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "User not found",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
