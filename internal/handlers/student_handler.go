package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/attendance-service/internal/repositories"
	"github.com/SAP-F-2025/attendance-service/internal/services"
	"github.com/SAP-F-2025/attendance-service/internal/utils"
)

type StudentHandler struct {
	BaseHandler
	service services.StudentService
}

func NewStudentHandler(service services.StudentService, logger utils.Logger) *StudentHandler {
	return &StudentHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// CreateStudent onboards a new student
// @Summary Create student
// @Description Onboard a student: verify the identity exists, create the profile, and optionally link a parent (management only). A partial failure reports which steps failed; completed steps are kept.
// @Tags students
// @Accept json
// @Produce json
// @Param request body services.CreateStudentRequest true "Create student request"
// @Success 201 {object} services.StudentResponse
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 409 {object} ErrorResponse "Student already exists"
// @Router /students [post]
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	actorID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req services.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Creating student", "student_id", req.StudentID)

	student, err := h.service.Create(c.Request.Context(), &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, student)
}

// GetStudent returns one student profile
// @Summary Get student
// @Description Get a student's profile. Students see themselves, parents their children, faculty their assigned students.
// @Tags students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} services.StudentResponse
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Student not found"
// @Router /students/{id} [get]
func (h *StudentHandler) GetStudent(c *gin.Context) {
	actorID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	studentID := c.Param("id")

	h.LogRequest(c, "Getting student", "student_id", studentID)

	student, err := h.service.GetByID(c.Request.Context(), studentID, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, student)
}

// ListStudents lists student profiles
// @Summary List students
// @Description List student profiles with optional filters (management only)
// @Tags students
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20, max: 100)"
// @Param parent_id query string false "Filter by linked parent"
// @Param faculty_id query string false "Filter by assigned faculty"
// @Success 200 {object} services.StudentListResponse
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /students [get]
func (h *StudentHandler) ListStudents(c *gin.Context) {
	actorID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	limit, offset := parsePagination(c)
	filters := repositories.StudentDetailsFilters{
		Limit:  limit,
		Offset: offset,
	}

	if parentID := c.Query("parent_id"); parentID != "" {
		filters.ParentID = &parentID
	}
	if facultyID := c.Query("faculty_id"); facultyID != "" {
		filters.FacultyID = &facultyID
	}

	h.LogRequest(c, "Listing students")

	list, err := h.service.List(c.Request.Context(), filters, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// GetMyChildren returns the caller's linked children
// @Summary Get my children
// @Description Get the student profiles linked to the authenticated parent
// @Tags students
// @Produce json
// @Success 200 {array} services.StudentResponse
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /students/children [get]
func (h *StudentHandler) GetMyChildren(c *gin.Context) {
	parentID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Getting children", "parent_id", parentID)

	children, err := h.service.GetChildren(c.Request.Context(), parentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, children)
}

// UpdateCaseHistory updates a student's case-history notes
// @Summary Update case history
// @Description Replace a student's case-history text (management only)
// @Tags students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param request body services.UpdateCaseHistoryRequest true "Case history"
// @Success 204 "Updated"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Student not found"
// @Router /students/{id}/case-history [put]
func (h *StudentHandler) UpdateCaseHistory(c *gin.Context) {
	actorID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	studentID := c.Param("id")

	var req services.UpdateCaseHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Updating case history", "student_id", studentID)

	if err := h.service.UpdateCaseHistory(c.Request.Context(), studentID, &req, actorID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AssignFaculty replaces a student's assigned-faculty set
// @Summary Assign faculty
// @Description Replace the set of faculty members responsible for a student (management only)
// @Tags students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param request body services.AssignFacultyRequest true "Faculty IDs"
// @Success 204 "Updated"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Student not found"
// @Router /students/{id}/faculty [put]
func (h *StudentHandler) AssignFaculty(c *gin.Context) {
	actorID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	studentID := c.Param("id")

	var req services.AssignFacultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Assigning faculty", "student_id", studentID, "faculty_count", len(req.FacultyIDs))

	if err := h.service.AssignFaculty(c.Request.Context(), studentID, &req, actorID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SetParent links a parent account to a student
// @Summary Set parent
// @Description Link a parent account to a student (management only)
// @Tags students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param request body services.SetParentRequest true "Parent ID"
// @Success 204 "Updated"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Student not found"
// @Router /students/{id}/parent [put]
func (h *StudentHandler) SetParent(c *gin.Context) {
	actorID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	studentID := c.Param("id")

	var req services.SetParentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Setting parent", "student_id", studentID, "parent_id", req.ParentID)

	if err := h.service.SetParent(c.Request.Context(), studentID, req.ParentID, actorID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ReconcileOrphans repairs students left without a profile
// @Summary Reconcile orphaned students
// @Description Find student identities with no profile row (the partial state a failed onboarding leaves behind) and create the missing rows (management only)
// @Tags students
// @Produce json
// @Success 200 {object} services.ReconcileResult
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /students/reconcile [post]
func (h *StudentHandler) ReconcileOrphans(c *gin.Context) {
	actorID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Reconciling orphaned students")

	result, err := h.service.ReconcileOrphans(c.Request.Context(), actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
