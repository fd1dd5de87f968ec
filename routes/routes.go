package routes

import (
	"eco-schools-api/controllers"
	"eco-schools-api/middleware"
	"eco-schools-api/services"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// Shared in-memory review state. Selection sets and batch intents live in
	// these two services; both route groups below must see the same instances.
	selectionSvc := services.NewSelectionService(0)
	batchSvc := services.NewBatchService(nil, nil, selectionSvc,
		services.NewNotifyService(nil),
		services.NewCountsService(nil, nil))

	selectionCtl := controllers.NewSelectionController(selectionSvc)
	batchCtl := controllers.NewBatchController(batchSvc)

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Authentication
			public.POST("/login", controllers.Login)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Eco-Schools API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Notification feed (all authenticated users)
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", controllers.GetNotifications)
				notifications.GET("/counter", controllers.GetNotificationCounter)
				notifications.PUT("/:id/read", controllers.MarkNotificationRead)
				notifications.PUT("/read-all", controllers.MarkAllNotificationsRead)
			}

			// Dashboard
			dashboard := protected.Group("/dashboard")
			{
				dashboard.GET("/stats", controllers.GetDashboardStats)
			}

			// School intake (school accounts only)
			school := protected.Group("/school")
			school.Use(middleware.RequireRole(1)) // 1 = school
			{
				school.GET("/submissions", controllers.GetSchoolSubmissions)
				school.GET("/submissions/:id", controllers.GetSchoolSubmissionDetail)

				school.POST("/evidence", controllers.CreateEvidenceSubmission)

				school.POST("/audits", controllers.CreateAuditDraft)
				school.PUT("/audits/:id", controllers.UpdateAuditDraft)
				school.POST("/audits/:id/submit", controllers.SubmitAudit)
			}

			// Administration (admins only)
			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRole(3)) // 3 = admin
			{
				// Submission review
				submissions := admin.Group("/submissions")
				{
					submissions.GET("", controllers.GetAdminSubmissions)
					submissions.GET("/pending-count", controllers.GetPendingReviewCount)
					submissions.GET("/:id", controllers.GetAdminSubmissionDetail)
					submissions.POST("/:id/approve", controllers.ApproveSubmission)
					submissions.POST("/:id/reject", controllers.RejectSubmission)
				}

				// Review view state: selection sets and bulk operations
				views := admin.Group("/review-views/:viewKey")
				{
					views.GET("/selection", selectionCtl.GetSelection)
					views.POST("/selection/toggle", selectionCtl.ToggleSelection)
					views.POST("/selection/select-all", selectionCtl.SelectAllVisible)
					views.DELETE("/selection", selectionCtl.ClearSelection)
					views.DELETE("", selectionCtl.CloseView)

					views.POST("/batch", batchCtl.OpenBatch)
					views.GET("/batch", batchCtl.GetBatch)
					views.POST("/batch/:intentId/confirm", batchCtl.ConfirmBatch)
					views.DELETE("/batch/:intentId", batchCtl.CancelBatch)
				}

				// User management
				users := admin.Group("/users")
				{
					users.GET("", controllers.GetUsers)
					users.GET("/:id", controllers.GetUser)
					users.POST("", controllers.CreateUser)
					users.PUT("/:id", controllers.UpdateUser)
					users.POST("/:id/reset-password", controllers.ResetUserPassword)
					users.DELETE("/:id", controllers.DeleteUser)
				}

				// School registry
				schools := admin.Group("/schools")
				{
					schools.GET("", controllers.GetSchools)
					schools.GET("/:id", controllers.GetSchool)
					schools.POST("", controllers.CreateSchool)
					schools.PUT("/:id", controllers.UpdateSchool)
					schools.DELETE("/:id", controllers.DeleteSchool)
				}

				// Notification templates
				templates := admin.Group("/notification-templates")
				{
					templates.GET("", controllers.ListNotificationTemplates)
					templates.POST("", controllers.CreateNotificationTemplate)
					templates.PUT("/:id", controllers.UpdateNotificationTemplate)
					templates.POST("/:id/reset", controllers.ResetNotificationTemplate)
				}
			}
		}
	}
}
