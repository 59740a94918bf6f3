package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/attendance-service/internal/config"
	"github.com/SAP-F-2025/attendance-service/internal/models"
	"github.com/SAP-F-2025/attendance-service/internal/repositories"
	"github.com/SAP-F-2025/attendance-service/internal/services"
	"github.com/SAP-F-2025/attendance-service/internal/utils"
	"github.com/SAP-F-2025/attendance-service/internal/validator"
)

type HandlerManager struct {
	attendanceHandler *AttendanceHandler
	geofenceHandler   *GeofenceHandler
	studentHandler    *StudentHandler
	incidentHandler   *IncidentHandler
	sessionHandler    *SessionHandler
	userHandler       *UserHandler
	authMiddleware    *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo)

	return &HandlerManager{
		attendanceHandler: NewAttendanceHandler(serviceManager.Attendance(), serviceManager.Export(), validator, logger),
		geofenceHandler:   NewGeofenceHandler(serviceManager.Geofence(), logger),
		studentHandler:    NewStudentHandler(serviceManager.Student(), logger),
		incidentHandler:   NewIncidentHandler(serviceManager.Incident(), logger),
		sessionHandler:    NewSessionHandler(serviceManager.Session(), logger),
		userHandler:       NewUserHandler(userRepo, logger),
		authMiddleware:    authMiddleware,
	}
}

// SetupRoutes sets up all API routes. The middleware gates are a coarse first
// pass; the services enforce the full policy including ownership scoping.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Attendance routes
		attendance := v1.Group("/attendance")
		{
			// Manual marking - assigned faculty and management
			attendance.POST("/mark", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleManagement), hm.attendanceHandler.MarkAttendance)

			// Reads - ownership scoping happens in the service
			attendance.GET("", hm.attendanceHandler.ListAttendance)
			attendance.GET("/stats", hm.authMiddleware.RequireRoleMiddleware(models.RoleManagement), hm.attendanceHandler.GetDailyStats)
			attendance.GET("/export", hm.authMiddleware.RequireRoleMiddleware(models.RoleManagement), hm.attendanceHandler.ExportAttendance)
			attendance.GET("/student/:student_id", hm.attendanceHandler.GetStudentHistory)
			attendance.GET("/:student_id/:date", hm.attendanceHandler.GetRecord)
		}

		// Geofence zone routes
		zone := v1.Group("/zone")
		{
			// All roles may read the zone
			zone.GET("", hm.geofenceHandler.GetZone)
			zone.GET("/monitor", hm.geofenceHandler.GetMonitorStatus)

			// Zone and monitor control - management only
			zone.PUT("", hm.authMiddleware.RequireRoleMiddleware(models.RoleManagement), hm.geofenceHandler.SetZone)
			zone.POST("/monitor/start", hm.authMiddleware.RequireRoleMiddleware(models.RoleManagement), hm.geofenceHandler.StartMonitoring)
			zone.POST("/monitor/stop", hm.authMiddleware.RequireRoleMiddleware(models.RoleManagement), hm.geofenceHandler.StopMonitoring)
		}

		// Device location reports
		locations := v1.Group("/locations")
		{
			locations.POST("/ping", hm.geofenceHandler.LocationPing)
		}

		// Student profile routes
		students := v1.Group("/students")
		{
			// Management-only administration
			students.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleManagement), hm.studentHandler.CreateStudent)
			students.POST("/reconcile", hm.authMiddleware.RequireRoleMiddleware(models.RoleManagement), hm.studentHandler.ReconcileOrphans)
			students.GET("", hm.authMiddleware.RequireRoleMiddleware(models.RoleManagement), hm.studentHandler.ListStudents)
			students.PUT("/:id/case-history", hm.authMiddleware.RequireRoleMiddleware(models.RoleManagement), hm.studentHandler.UpdateCaseHistory)
			students.PUT("/:id/faculty", hm.authMiddleware.RequireRoleMiddleware(models.RoleManagement), hm.studentHandler.AssignFaculty)
			students.PUT("/:id/parent", hm.authMiddleware.RequireRoleMiddleware(models.RoleManagement), hm.studentHandler.SetParent)

			// Scoped reads
			students.GET("/children", hm.authMiddleware.RequireRoleMiddleware(models.RoleParent), hm.studentHandler.GetMyChildren)
			students.GET("/:id", hm.studentHandler.GetStudent)
		}

		// Safety incident routes
		incidents := v1.Group("/incidents")
		{
			incidents.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleManagement), hm.incidentHandler.ReportIncident)
			incidents.GET("", hm.incidentHandler.ListIncidents)
			incidents.GET("/:id", hm.incidentHandler.GetIncident)
		}

		// Session routes (device identity binding)
		sessions := v1.Group("/sessions")
		{
			sessions.POST("/login", hm.sessionHandler.Login)
			sessions.POST("/logout", hm.sessionHandler.Logout)
		}

		// User directory routes
		users := v1.Group("/users")
		{
			users.GET("", hm.userHandler.ListUsers)
			users.GET("/search", hm.userHandler.SearchUsers)
			users.GET("/:id", hm.userHandler.GetUser)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "attendance-service",
		})
	})
}
