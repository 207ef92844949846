package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
	"github.com/SAP-F-2025/login-approval-service/internal/services"
	"github.com/SAP-F-2025/login-approval-service/internal/utils"
)

type HandlerManager struct {
	studentHandler   *StudentHandler
	professorHandler *ProfessorHandler
	userHandler      *UserHandler
	configHandler    *ConfigHandler
	healthHandler    *HealthHandler
	authMiddleware   *AuthMiddleware
	access           services.AccessService
	logger           utils.Logger
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	identity repositories.IdentityRepository,
	authMiddleware *AuthMiddleware,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		studentHandler:   NewStudentHandler(serviceManager.Login(), serviceManager.Status(), serviceManager.Access(), logger),
		professorHandler: NewProfessorHandler(serviceManager.Review(), serviceManager.Export(), logger),
		userHandler:      NewUserHandler(serviceManager.User(), identity, logger),
		configHandler:    NewConfigHandler(serviceManager.FeatureFlag(), serviceManager.Status(), logger),
		healthHandler:    NewHealthHandler(serviceManager, logger),
		authMiddleware:   authMiddleware,
		access:           serviceManager.Access(),
		logger:           logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.healthHandler.Health)

	api := router.Group("/api")
	{
		// Student submissions - public, students are identified by username only
		api.POST("/login", hm.studentHandler.Login)
		api.POST("/verify", hm.studentHandler.Verify)

		student := api.Group("/student")
		{
			student.GET("/request-status/:username", hm.studentHandler.RequestStatus)
			student.GET("/code-status/:username/:code", hm.studentHandler.CodeStatus)
			student.GET("/access-status/:username", hm.studentHandler.AccessStatus)
			student.POST("/final-verification/request", hm.studentHandler.RequestFinalVerification)
			student.GET("/final-verification/status/:username", hm.studentHandler.FinalStatus)
		}

		config := api.Group("/config")
		{
			config.GET("/features", hm.configHandler.GetFeatures)
			config.GET("/polling", hm.configHandler.GetPolling)
		}

		protected := api.Group("/protected")
		protected.Use(RequireAccess(hm.access, hm.logger))
		{
			protected.GET("/playlist", hm.studentHandler.Playlist)
		}

		// Review routes - Professors and Admins only
		professor := api.Group("/professor")
		professor.Use(hm.authMiddleware.AuthMiddleware(), hm.authMiddleware.RequireRoleMiddleware(models.RoleProfessor))
		{
			professor.POST("/approve", hm.professorHandler.Approve)
			professor.POST("/reject", hm.professorHandler.Reject)
			professor.POST("/approve-code", hm.professorHandler.ApproveCode)
			professor.POST("/reject-code", hm.professorHandler.RejectCode)
			professor.POST("/validate-code", hm.professorHandler.ValidateCode)
			professor.POST("/final-verification/approve", hm.professorHandler.ApproveFinal)
			professor.POST("/final-verification/reject", hm.professorHandler.RejectFinal)
			professor.POST("/grant-access", hm.professorHandler.GrantAccess)

			professor.GET("/pending-requests", hm.professorHandler.ListPending)
			professor.GET("/approved-requests", hm.professorHandler.ListApproved)
			professor.GET("/rejected-requests", hm.professorHandler.ListRejected)
			professor.GET("/pending-codes", hm.professorHandler.ListPendingCodes)
			professor.GET("/codes", hm.professorHandler.ListCodes)
			professor.GET("/final-verifications", hm.professorHandler.ListFinalVerifications)
			professor.GET("/export/requests", hm.professorHandler.ExportRequests)

			professor.POST("/users", hm.userHandler.UpsertUser)
			professor.GET("/users", hm.userHandler.ListUsers)
			professor.GET("/staff", hm.userHandler.ListStaff)
			professor.GET("/me", hm.userHandler.Me)

			professor.PUT("/features/:key", hm.configHandler.SetFeature)
		}
	}
}
