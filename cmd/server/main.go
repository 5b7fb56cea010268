package main

import (
	"fmt"
	"log"

	"elevator-memo/internal/api/routes"
	"elevator-memo/internal/config"
	"elevator-memo/internal/logger"
	"elevator-memo/internal/models"
	"elevator-memo/internal/obs"
	"elevator-memo/internal/render"
	"elevator-memo/internal/scheduler"
	"elevator-memo/internal/services"
	"elevator-memo/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	// Initialize database
	if err := models.InitDB(cfg); err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}

	// Create default admin if the users table is empty
	authService := services.NewAuthService(cfg)
	if err := authService.CreateDefaultUser(); err != nil {
		zlog.Warn("failed to create default user", zap.Error(err))
	}

	obs.Init()

	store := storage.NewStore(cfg.Uploads.Dir, cfg.UploadMaxBytes(), zlog)

	engine := render.NewChromeEngine(cfg.Render.ChromePath)
	renderer, err := render.NewRenderer(cfg.Render.TemplatePath, engine)
	if err != nil {
		zlog.Fatal("failed to load memo template", zap.Error(err))
	}

	queue := render.NewQueue(cfg.Render.QueueSize, cfg.RenderTimeout(), zlog)
	defer queue.Close()

	jobs := scheduler.New(cfg, store, zlog)
	if err := jobs.Start(); err != nil {
		zlog.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer jobs.Stop()

	// Set Gin mode
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	// Serve uploaded signature images
	r.Static("/uploads", "uploads")

	routes.SetupRoutes(r, cfg, zlog, renderer, queue, store)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	zlog.Info("starting server", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		zlog.Fatal("server exited", zap.Error(err))
	}
}
