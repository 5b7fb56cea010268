package routes

import (
	"elevator-memo/internal/api/handlers"
	"elevator-memo/internal/api/middleware"
	"elevator-memo/internal/config"
	"elevator-memo/internal/obs"
	"elevator-memo/internal/render"
	"elevator-memo/internal/services"
	"elevator-memo/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRoutes wires the route table. The render queue and renderer are owned
// by the composition root and injected here, so their lifetime outlives any
// request.
func SetupRoutes(r *gin.Engine, cfg *config.Config, logger *zap.Logger, renderer *render.Renderer, queue *render.Queue, store *storage.Store) {
	// Initialize services
	authService := services.NewAuthService(cfg)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(cfg, store, logger)
	memoHandler := handlers.NewMemoHandler(cfg, renderer, queue, store, logger)
	uploadHandler := handlers.NewUploadHandler(store, logger)

	// Middleware
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.ErrorHandler(logger))
	r.Use(obs.Instrument())
	if cfg.Security.RateLimit.Enabled {
		r.Use(middleware.RateLimit(cfg.Security.RateLimit))
	}

	r.GET("/metrics", obs.Handler())

	// Public routes
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"message": "Elevator memo API is running",
			})
		})

		api.POST("/users/login", authHandler.Login)
	}

	// Protected routes
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(authService, cfg))
	{
		users := protected.Group("/users")
		{
			users.POST("/register", middleware.RequireAdmin(), authHandler.Register)
			users.GET("/me", authHandler.GetMe)
			users.PUT("/me", authHandler.UpdateProfile)
			users.GET("", middleware.RequireAdmin(), userHandler.GetUsers)

			users.POST("/signatures", userHandler.UploadSignature)
			users.GET("/signatures", userHandler.GetSignatures)
			users.DELETE("/signatures/:signatureId", userHandler.DeleteSignature)

			users.PUT("/:id", middleware.RequireAdmin(), userHandler.UpdateUser)
			users.PUT("/:id/role", middleware.RequireAdmin(), userHandler.UpdateRole)
			users.DELETE("/:id", middleware.RequireAdmin(), userHandler.DeactivateUser)
			users.POST("/:id/signatures", middleware.RequireAdmin(), userHandler.UploadUserSignature)
			users.GET("/:id/signatures", middleware.RequireAdmin(), userHandler.GetUserSignatures)
		}

		memos := protected.Group("/memos")
		{
			memos.GET("", memoHandler.GetMemos)
			memos.POST("", memoHandler.CreateMemo)
			memos.GET("/export", memoHandler.ExportMemos)
			memos.POST("/batch-sign", memoHandler.BatchSign)
			memos.GET("/:id", memoHandler.GetMemo)
			memos.PUT("/:id", memoHandler.UpdateMemo)
			memos.POST("/:id/copy", memoHandler.CopyMemo)
			memos.DELETE("/:id", memoHandler.DeleteMemo)
			memos.GET("/:id/pdf", memoHandler.GeneratePDF)
		}

		protected.POST("/upload/tester-signature", uploadHandler.UploadTesterSignature)
	}
}
