package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/attendance-service/internal/services"
	"github.com/SAP-F-2025/attendance-service/internal/utils"
)

type SessionHandler struct {
	BaseHandler
	service services.SessionService
}

func NewSessionHandler(service services.SessionService, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// Login syncs a fresh login into the identity cache
// @Summary Register device session
// @Description Bind the authenticated user to a device after login. For students this enables background geofence attendance on that device; for any other role the device binding is cleared.
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body services.SessionLoginRequest true "Device binding"
// @Success 204 "Session registered"
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Failure 404 {object} ErrorResponse "User not found"
// @Router /sessions/login [post]
func (h *SessionHandler) Login(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req services.SessionLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Registering session", "device_id", req.DeviceID)

	if err := h.service.Login(c.Request.Context(), userID, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Logout clears a device's session state
// @Summary Clear device session
// @Description Clear the device's identity binding and geofence state on logout. Crossings reported by the device afterwards are dropped.
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body services.SessionLogoutRequest true "Device binding"
// @Success 204 "Session cleared"
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Router /sessions/logout [post]
func (h *SessionHandler) Logout(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req services.SessionLogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Clearing session", "device_id", req.DeviceID)

	if err := h.service.Logout(c.Request.Context(), userID, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
