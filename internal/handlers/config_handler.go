package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/services"
	"github.com/SAP-F-2025/login-approval-service/internal/utils"
)

// ConfigHandler publishes client configuration: feature flags and the
// polling contract.
type ConfigHandler struct {
	BaseHandler
	flags  services.FeatureFlagService
	status services.StatusService
}

func NewConfigHandler(flags services.FeatureFlagService, status services.StatusService, logger utils.Logger) *ConfigHandler {
	return &ConfigHandler{
		BaseHandler: NewBaseHandler(logger),
		flags:       flags,
		status:      status,
	}
}

// @Summary List feature flags
// @Tags config
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /config/features [get]
func (h *ConfigHandler) GetFeatures(c *gin.Context) {
	flags, err := h.flags.List(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, flags)
}

// @Summary Polling contract
// @Description Interval, timeout and terminal states of every student polling loop
// @Tags config
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /config/polling [get]
func (h *ConfigHandler) GetPolling(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"loops": h.status.PollingContract()})
}

// @Summary Set feature flag
// @Tags config
// @Accept json
// @Produce json
// @Param key path string true "Flag key"
// @Param body body models.FeatureFlagUpdate true "Value"
// @Success 200 {object} models.FeatureFlag
// @Failure 404 {object} ErrorResponse
// @Router /professor/features/{key} [put]
func (h *ConfigHandler) SetFeature(c *gin.Context) {
	var req models.FeatureFlagUpdate
	if !h.bindJSON(c, &req) {
		return
	}
	if req.Enabled == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: "enabled is required",
		})
		return
	}

	key := c.Param("key")
	h.LogRequest(c, "Setting feature flag", "key", key, "enabled", *req.Enabled, "reviewer", reviewerName(c))

	flag, err := h.flags.Set(c.Request.Context(), key, *req.Enabled)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, flag)
}

func (h *ConfigHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrFeatureFlagNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Feature flag not found",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}

// HealthHandler reports whether the store is reachable
type HealthHandler struct {
	BaseHandler
	services services.ServiceManager
}

func NewHealthHandler(sm services.ServiceManager, logger utils.Logger) *HealthHandler {
	return &HealthHandler{BaseHandler: NewBaseHandler(logger), services: sm}
}

func (h *HealthHandler) Health(c *gin.Context) {
	if err := h.services.HealthCheck(c.Request.Context()); err != nil {
		h.LogError(c, err, "Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "login-approval-service",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "login-approval-service",
	})
}
