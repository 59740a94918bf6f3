package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/attendance-service/internal/services"
	"github.com/SAP-F-2025/attendance-service/internal/utils"
)

type GeofenceHandler struct {
	BaseHandler
	service services.GeofenceService
}

func NewGeofenceHandler(service services.GeofenceService, logger utils.Logger) *GeofenceHandler {
	return &GeofenceHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// GetZone returns the configured geofence zone
// @Summary Get geofence zone
// @Description Get the school's geofence zone and whether monitoring is active. No zone configured is a valid empty state, not an error.
// @Tags geofence
// @Produce json
// @Success 200 {object} map[string]interface{} "Zone or configured=false"
// @Router /zone [get]
func (h *GeofenceHandler) GetZone(c *gin.Context) {
	actorID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Getting geofence zone")

	zone, err := h.service.GetZone(c.Request.Context(), actorID)
	if err != nil {
		if errors.Is(err, services.ErrZoneNotConfigured) {
			c.JSON(http.StatusOK, gin.H{"configured": false})
			return
		}
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"configured": true,
		"zone":       zone.GeofenceZone,
		"monitoring": zone.Monitoring,
	})
}

// SetZone replaces the geofence zone
// @Summary Set geofence zone
// @Description Replace the school's singleton geofence zone (management only). An active monitor picks up the new region immediately.
// @Tags geofence
// @Accept json
// @Produce json
// @Param request body services.SetZoneRequest true "Zone definition"
// @Success 200 {object} models.GeofenceZone
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /zone [put]
func (h *GeofenceHandler) SetZone(c *gin.Context) {
	actorID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req services.SetZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Setting geofence zone", "latitude", req.Latitude, "longitude", req.Longitude, "radius_m", req.RadiusM)

	zone, err := h.service.SetZone(c.Request.Context(), &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, zone)
}

// StartMonitoring starts the geofence monitor
// @Summary Start geofence monitoring
// @Description Start background crossing detection for the configured zone (management only)
// @Tags geofence
// @Produce json
// @Success 200 {object} map[string]interface{} "Monitoring status"
// @Failure 403 {object} ErrorResponse "Forbidden or location not permitted"
// @Failure 404 {object} ErrorResponse "No zone configured"
// @Router /zone/monitor/start [post]
func (h *GeofenceHandler) StartMonitoring(c *gin.Context) {
	actorID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting geofence monitoring")

	if err := h.service.StartMonitoring(c.Request.Context(), actorID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"monitoring": true})
}

// StopMonitoring stops the geofence monitor
// @Summary Stop geofence monitoring
// @Description Stop background crossing detection (management only)
// @Tags geofence
// @Produce json
// @Success 200 {object} map[string]interface{} "Monitoring status"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /zone/monitor/stop [post]
func (h *GeofenceHandler) StopMonitoring(c *gin.Context) {
	actorID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Stopping geofence monitoring")

	if err := h.service.StopMonitoring(c.Request.Context(), actorID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"monitoring": false})
}

// GetMonitorStatus reports whether the monitor is running
// @Summary Get monitoring status
// @Tags geofence
// @Produce json
// @Success 200 {object} map[string]interface{} "Monitoring status"
// @Router /zone/monitor [get]
func (h *GeofenceHandler) GetMonitorStatus(c *gin.Context) {
	if _, ok := h.requireUserID(c); !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"monitoring": h.service.IsMonitoring()})
}

// LocationPing feeds a device position sample to the monitor
// @Summary Report device location
// @Description Report a device position sample. Zone crossings detected here flow through the background attendance pipeline.
// @Tags geofence
// @Accept json
// @Produce json
// @Param request body services.LocationPingRequest true "Position sample"
// @Success 202 {object} map[string]interface{} "Accepted"
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Router /locations/ping [post]
func (h *GeofenceHandler) LocationPing(c *gin.Context) {
	if _, ok := h.requireUserID(c); !ok {
		return
	}

	var req services.LocationPingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	if err := h.service.ProcessLocationPing(c.Request.Context(), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	// Crossing side effects are asynchronous; acceptance is all the device
	// needs to know.
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}
