package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/attendance-service/internal/models"
	"github.com/SAP-F-2025/attendance-service/internal/repositories"
	"github.com/SAP-F-2025/attendance-service/internal/services"
	"github.com/SAP-F-2025/attendance-service/internal/utils"
	"github.com/SAP-F-2025/attendance-service/internal/validator"
)

type AttendanceHandler struct {
	BaseHandler
	service       services.AttendanceService
	exportService services.ExportService
	validator     *validator.Validator
}

func NewAttendanceHandler(service services.AttendanceService, exportService services.ExportService, validator *validator.Validator, logger utils.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		BaseHandler:   NewBaseHandler(logger),
		service:       service,
		exportService: exportService,
		validator:     validator,
	}
}

// MarkAttendance records or corrects today's attendance for a student
// @Summary Mark attendance manually
// @Description Mark a student present or absent for today. Corrections merge into the existing record; a geofence check-out is never overwritten.
// @Tags attendance
// @Accept json
// @Produce json
// @Param request body services.MarkAttendanceRequest true "Mark attendance request"
// @Success 200 {object} models.AttendanceRecord
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /attendance/mark [post]
func (h *AttendanceHandler) MarkAttendance(c *gin.Context) {
	facultyID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req services.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Marking attendance", "student_id", req.StudentID, "status", req.Status)

	record, err := h.service.MarkManually(c.Request.Context(), &req, facultyID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// GetRecord returns one attendance record
// @Summary Get attendance record
// @Description Get the attendance record for a student on a given date
// @Tags attendance
// @Produce json
// @Param student_id path string true "Student ID"
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} models.AttendanceRecord
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Record not found"
// @Router /attendance/{student_id}/{date} [get]
func (h *AttendanceHandler) GetRecord(c *gin.Context) {
	actorID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	studentID := c.Param("student_id")
	date := c.Param("date")

	h.LogRequest(c, "Getting attendance record", "student_id", studentID, "date", date)

	record, err := h.service.GetRecord(c.Request.Context(), studentID, date, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// GetStudentHistory returns a student's attendance history
// @Summary Get student attendance history
// @Description Get the attendance history for one student, newest first
// @Tags attendance
// @Produce json
// @Param student_id path string true "Student ID"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20, max: 100)"
// @Param date_from query string false "From date (YYYY-MM-DD, inclusive)"
// @Param date_to query string false "To date (YYYY-MM-DD, inclusive)"
// @Success 200 {object} services.AttendanceListResponse
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /attendance/student/{student_id} [get]
func (h *AttendanceHandler) GetStudentHistory(c *gin.Context) {
	actorID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	studentID := c.Param("student_id")
	filters := h.parseAttendanceFilters(c)

	h.LogRequest(c, "Getting attendance history", "student_id", studentID)

	history, err := h.service.GetStudentHistory(c.Request.Context(), studentID, filters, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// ListAttendance lists attendance records across students
// @Summary List attendance records
// @Description List attendance records with filters (management and assigned faculty)
// @Tags attendance
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20, max: 100)"
// @Param student_id query string false "Filter by student"
// @Param status query string false "Filter by status: present, absent, leave"
// @Param origin query string false "Filter by origin: enter, exit, manual"
// @Param date_from query string false "From date (YYYY-MM-DD, inclusive)"
// @Param date_to query string false "To date (YYYY-MM-DD, inclusive)"
// @Success 200 {object} services.AttendanceListResponse
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /attendance [get]
func (h *AttendanceHandler) ListAttendance(c *gin.Context) {
	actorID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	filters := h.parseAttendanceFilters(c)

	h.LogRequest(c, "Listing attendance records")

	list, err := h.service.List(c.Request.Context(), filters, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// GetDailyStats returns aggregated counts for one attendance day
// @Summary Get daily attendance statistics
// @Description Get present/absent/leave counts for a date (defaults to today)
// @Tags attendance
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD, default: today)"
// @Success 200 {object} repositories.DailyAttendanceStats
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /attendance/stats [get]
func (h *AttendanceHandler) GetDailyStats(c *gin.Context) {
	actorID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	date := c.Query("date")

	h.LogRequest(c, "Getting daily attendance stats", "date", date)

	stats, err := h.service.GetDailyStats(c.Request.Context(), date, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportAttendance downloads the filtered ledger as an xlsx workbook
// @Summary Export attendance report
// @Description Export attendance records matching the filters as an Excel file
// @Tags attendance
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param student_id query string false "Filter by student"
// @Param status query string false "Filter by status: present, absent, leave"
// @Param date_from query string false "From date (YYYY-MM-DD, inclusive)"
// @Param date_to query string false "To date (YYYY-MM-DD, inclusive)"
// @Success 200 {file} binary "Excel workbook"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /attendance/export [get]
func (h *AttendanceHandler) ExportAttendance(c *gin.Context) {
	actorID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	filters := h.parseAttendanceFilters(c)

	h.LogRequest(c, "Exporting attendance report")

	data, err := h.exportService.ExportAttendance(c.Request.Context(), filters, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("attendance_%s.xlsx", h.service.Today())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// ===== HELPER METHODS =====

func (h *AttendanceHandler) parseAttendanceFilters(c *gin.Context) repositories.AttendanceFilters {
	limit, offset := parsePagination(c)

	filters := repositories.AttendanceFilters{
		Limit:     limit,
		Offset:    offset,
		SortBy:    c.DefaultQuery("sort_by", "date"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	if studentID := c.Query("student_id"); studentID != "" {
		filters.StudentID = &studentID
	}

	if status := c.Query("status"); status != "" {
		s := models.AttendanceStatus(status)
		filters.Status = &s
	}

	if origin := c.Query("origin"); origin != "" {
		o := models.AttendanceOrigin(origin)
		filters.Origin = &o
	}

	if from := c.Query("date_from"); from != "" {
		filters.DateFrom = &from
	}

	if to := c.Query("date_to"); to != "" {
		filters.DateTo = &to
	}

	return filters
}
