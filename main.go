package main

import (
	// standard library
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// third-party
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	// internal
	"github.com/patternforge/diamondgrid/internal/api"
	"github.com/patternforge/diamondgrid/internal/config"
	"github.com/patternforge/diamondgrid/internal/database"
	"github.com/patternforge/diamondgrid/internal/imageprocessing"
	"github.com/patternforge/diamondgrid/internal/logging"
	"github.com/patternforge/diamondgrid/internal/middleware"
	"github.com/patternforge/diamondgrid/internal/version"
)

func main() {
	_ = godotenv.Load()
	logging.InfoWithComponent(logging.ComponentStartup, "Starting Diamondgrid", "version", version.String())

	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Println(version.String())
		os.Exit(0)
	}

	if err := database.Initialize(); err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Sweep expired jobs and their uploads in the background.
	database.StartJobSweeper(ctx, time.Hour)

	server, err := api.NewServer(database.GetDB())
	if err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Failed to create API server", "error", err)
		os.Exit(1)
	}

	if mode := config.Get("GIN_MODE", ""); mode != "" {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// Configure CORS for the browser frontend
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))

	rateLimiter := middleware.NewUploadRateLimiter()

	router.GET("/api/health", server.HealthHandler)
	router.GET("/api/palettes", server.PalettesHandler)
	router.POST("/api/preview",
		middleware.RequestSizeLimit(imageprocessing.MaxUploadBytes+1<<20),
		rateLimiter.RateLimit(),
		server.PreviewHandler,
	)
	router.POST("/api/final",
		rateLimiter.RateLimit(),
		server.FinalHandler,
	)

	port := config.Get("PORT", "8000")
	addr := ":" + port

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logging.Info("Listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("Shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logging.Info("Server stopped")
}
