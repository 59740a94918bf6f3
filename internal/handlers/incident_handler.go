package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/attendance-service/internal/models"
	"github.com/SAP-F-2025/attendance-service/internal/repositories"
	"github.com/SAP-F-2025/attendance-service/internal/services"
	"github.com/SAP-F-2025/attendance-service/internal/utils"
)

type IncidentHandler struct {
	BaseHandler
	service services.IncidentService
}

func NewIncidentHandler(service services.IncidentService, logger utils.Logger) *IncidentHandler {
	return &IncidentHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ReportIncident files a safety incident
// @Summary Report safety incident
// @Description File a safety incident for a student (faculty and management)
// @Tags incidents
// @Accept json
// @Produce json
// @Param request body services.ReportIncidentRequest true "Incident report"
// @Success 201 {object} models.SafetyIncident
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /incidents [post]
func (h *IncidentHandler) ReportIncident(c *gin.Context) {
	reporterID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req services.ReportIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Reporting incident", "student_id", req.StudentID, "severity", req.Severity)

	incident, err := h.service.Report(c.Request.Context(), &req, reporterID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, incident)
}

// GetIncident returns one incident
// @Summary Get incident
// @Description Get a safety incident by ID. Reporters may read their own incidents; management reads all.
// @Tags incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} models.SafetyIncident
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Incident not found"
// @Router /incidents/{id} [get]
func (h *IncidentHandler) GetIncident(c *gin.Context) {
	actorID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	id := c.Param("id")

	h.LogRequest(c, "Getting incident", "incident_id", id)

	incident, err := h.service.GetByID(c.Request.Context(), id, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, incident)
}

// ListIncidents lists safety incidents
// @Summary List incidents
// @Description List safety incidents with filters (management only)
// @Tags incidents
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20, max: 100)"
// @Param student_id query string false "Filter by student"
// @Param reported_by query string false "Filter by reporter"
// @Param severity query string false "Filter by severity: low, medium, high"
// @Param from query string false "Reported after (RFC3339)"
// @Param to query string false "Reported before (RFC3339)"
// @Success 200 {object} services.IncidentListResponse
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /incidents [get]
func (h *IncidentHandler) ListIncidents(c *gin.Context) {
	actorID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	filters := h.parseIncidentFilters(c)

	h.LogRequest(c, "Listing incidents")

	list, err := h.service.List(c.Request.Context(), filters, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// ===== HELPER METHODS =====

func (h *IncidentHandler) parseIncidentFilters(c *gin.Context) repositories.IncidentFilters {
	limit, offset := parsePagination(c)

	filters := repositories.IncidentFilters{
		Limit:     limit,
		Offset:    offset,
		SortBy:    c.DefaultQuery("sort_by", "reported_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	if studentID := c.Query("student_id"); studentID != "" {
		filters.StudentID = &studentID
	}
	if reportedBy := c.Query("reported_by"); reportedBy != "" {
		filters.ReportedBy = &reportedBy
	}
	if severity := c.Query("severity"); severity != "" {
		s := models.IncidentSeverity(severity)
		filters.Severity = &s
	}

	if from := c.Query("from"); from != "" {
		if parsed, err := time.Parse(time.RFC3339, from); err == nil {
			filters.DateFrom = &parsed
		}
	}
	if to := c.Query("to"); to != "" {
		if parsed, err := time.Parse(time.RFC3339, to); err == nil {
			filters.DateTo = &parsed
		}
	}

	return filters
}
