package routes

import (
	"github.com/gin-gonic/gin"

	"book-production-tracker/internal/handlers"
	"book-production-tracker/internal/middleware"
	"book-production-tracker/internal/models"
)

func SetupRoutes() *gin.Engine {
	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery())
	ginRouter.Use(middleware.RequestID())
	ginRouter.Use(middleware.RequestLogging())

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Book production tracker API is running",
		})
	})

	// Public routes (no authentication required)
	ginRouter.POST("/api/login", handlers.Login)

	// Protected routes (authentication required)
	protected := ginRouter.Group("")
	protected.Use(middleware.JWTAuthMiddleware())
	{
		// Record endpoints
		protected.GET("/records", handlers.ListRecords)
		protected.GET("/records/:id", handlers.GetRecord)
		protected.POST("/records/create", handlers.CreateRecord)
		protected.POST("/records/:id/status", handlers.UpdateRecordStatus)
		protected.POST("/records/:id/update", handlers.UpdateRecord)
		protected.POST("/records/:id/delete", handlers.DeleteRecord)

		// Developer dropdown
		protected.GET("/api/developers", handlers.GetDevelopers)

		// Realtime record events
		protected.GET("/ws", handlers.WebSocketHandler)
	}

	// Reporting and export (admin/lead only)
	reporting := protected.Group("")
	reporting.Use(middleware.RequireRoles(string(models.RoleAdmin), string(models.RoleLead)))
	{
		reporting.GET("/api/tracking/status-overview", handlers.StatusOverview)
		reporting.GET("/api/tracking/developer-stats", handlers.DeveloperStats)
		reporting.GET("/api/tracking/developer-records", handlers.DeveloperRecords)
		reporting.GET("/api/workload", handlers.Workload)
		reporting.GET("/export/csv", handlers.ExportCSV)
	}

	// User administration (admin only)
	admin := protected.Group("/admin")
	admin.Use(middleware.RequireRoles(string(models.RoleAdmin)))
	{
		admin.GET("/users", handlers.GetAllUsers)
		admin.POST("/create_user", handlers.CreateUser)
		admin.POST("/update_user", handlers.UpdateUser)
		admin.POST("/delete_user", handlers.DeleteUser)
	}

	return ginRouter
}
