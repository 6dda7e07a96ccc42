package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/juricore/courtsync/pkg/config"
	"github.com/juricore/courtsync/pkg/errx"
	"github.com/juricore/courtsync/pkg/logx"
)

func main() {
	logx.SetDefaultLogger(logx.NewLogger(logx.LoadFromEnv()))

	logx.Info("Starting courtsync API server...")

	cfg := config.Load()
	container := NewContainer(cfg)
	defer container.Cleanup()

	app := fiber.New(fiber.Config{
		AppName:               "courtsync API",
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${locals:requestid}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Get("/health", healthCheckHandler(container))
	registerRoutes(app, container)

	startServer(app, cfg)
}

// globalErrorHandler converts internal errors to standard HTTP responses.
func globalErrorHandler(c *fiber.Ctx, err error) error {
	logx.WithFields(logx.Fields{
		"path":   c.Path(),
		"method": c.Method(),
	}).WithError(err).Error("Request error")

	if e, ok := err.(*fiber.Error); ok {
		return c.Status(e.Code).JSON(fiber.Map{
			"code":    "FIBER_ERROR",
			"message": e.Message,
		})
	}

	var e *errx.Error
	if errx.As(err, &e) {
		return c.Status(e.HTTPStatus).JSON(e.ToHTTPResponse())
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"code":    "INTERNAL_ERROR",
		"message": "An unexpected error occurred",
	})
}

func startServer(app *fiber.App, cfg *config.Config) {
	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	go func() {
		logx.Infof("Server listening on %s", addr)
		if err := app.Listen(addr); err != nil {
			logx.Fatalf("Server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logx.Infof("Received signal: %v, shutting down...", sig)

	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}
	logx.Info("Server exited")
}
