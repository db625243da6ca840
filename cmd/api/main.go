package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlog "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	_ "phototimeline/docs"
	"phototimeline/interfaces/api/middleware"
	"phototimeline/interfaces/api/routes"
	"phototimeline/pkg/di"
	"phototimeline/pkg/logger"
)

// @title Photo Timeline Ingest API
// @version 1.0
// @description Ingest, metadata extraction, and meeting clustering for a group's photo timeline.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token required for every /v1 route.

func main() {
	logger.Init(os.Getenv("APP_ENV"))

	container := di.NewContainer()
	if err := container.Initialize(); err != nil {
		logger.StartupError("container_init_failed", "failed to initialize container", err, nil)
		os.Exit(1)
	}

	setupGracefulShutdown(container)

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(),
		AppName:      container.Config.App.Name,
		BodyLimit:    64 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(fiberlog.New())
	app.Use(cors.New())

	routes.SetupRoutes(app, container.Handlers, container.Config)

	port := container.Config.App.Port
	logger.Startup("server_starting", "ingest API starting", map[string]interface{}{
		"port":   port,
		"env":    container.Config.App.Env,
		"health": fmt.Sprintf("http://localhost:%s/health", port),
	})

	if err := app.Listen(":" + port); err != nil {
		logger.StartupError("server_failed", "server failed to start", err, nil)
		os.Exit(1)
	}
}

func setupGracefulShutdown(container *di.Container) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sig
		logger.Startup("shutdown_started", "gracefully shutting down", nil)
		if err := container.Cleanup(); err != nil {
			logger.StartupError("cleanup_failed", "error during cleanup", err, nil)
		}
		logger.Startup("shutdown_complete", "shutdown complete", nil)
		os.Exit(0)
	}()
}
