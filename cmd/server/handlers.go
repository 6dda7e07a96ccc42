package main

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/juricore/courtsync/pkg/errx"
	"github.com/juricore/courtsync/pkg/kernel"
	"github.com/juricore/courtsync/pkg/syncx"
)

// enqueueRequest is the body of POST /api/v1/sync/jobs.
type enqueueRequest struct {
	Type         string          `json:"type"`
	Options      json.RawMessage `json:"options,omitempty"`
	Priority     int             `json:"priority,omitempty"`
	ScheduledFor *time.Time      `json:"scheduled_for,omitempty"`
	MaxRetries   int             `json:"max_retries,omitempty"`
}

var knownJobTypes = map[string]bool{
	syncx.TypeJudges:    true,
	syncx.TypeCourts:    true,
	syncx.TypeDecisions: true,
}

func registerRoutes(app *fiber.App, container *Container) {
	api := app.Group("/api/v1/sync")

	api.Post("/jobs", enqueueJobHandler(container))
	api.Get("/jobs/next", nextClaimableHandler(container))
	api.Get("/jobs/:id", getJobHandler(container))
	api.Get("/jobs", listJobsHandler(container))
	api.Get("/stats", statsHandler(container))
}

func enqueueJobHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req enqueueRequest
		if err := c.BodyParser(&req); err != nil {
			return errx.New("Invalid request body", errx.TypeValidation)
		}
		if !knownJobTypes[req.Type] {
			return errx.New("Unknown job type: "+req.Type, errx.TypeValidation)
		}

		opts := []syncx.EnqueueOption{syncx.WithPriority(req.Priority)}
		if req.ScheduledFor != nil {
			opts = append(opts, syncx.WithScheduledFor(*req.ScheduledFor))
		}
		if req.MaxRetries > 0 {
			opts = append(opts, syncx.WithMaxRetries(req.MaxRetries))
		}

		jobID, err := container.Sync.Enqueue(c.Context(), req.Type, req.Options, opts...)
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"job_id": jobID,
			"status": string(syncx.JobStatusPending),
		})
	}
}

func getJobHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		job, err := container.Sync.GetJob(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(job)
	}
}

// nextClaimableHandler reports which job a worker would claim right now,
// without claiming it. Diagnostic for stuck-queue investigations.
func nextClaimableHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		job, err := container.Sync.FindClaimable(c.Context(), time.Now().UTC())
		if err != nil {
			return err
		}
		if job == nil {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.JSON(job)
	}
}

func listJobsHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := syncx.JobFilter{
			Status: syncx.JobStatus(c.Query("status")),
			Type:   c.Query("type"),
		}
		page := kernel.PaginationOptions{
			Page:     c.QueryInt("page", 1),
			PageSize: c.QueryInt("page_size", 20),
		}

		jobs, err := container.Sync.ListJobs(c.Context(), filter, page)
		if err != nil {
			return err
		}
		return c.JSON(jobs)
	}
}

func statsHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := container.Sync.QueueStats(c.Context())
		if err != nil {
			return err
		}
		return c.JSON(stats)
	}
}

func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := fiber.Map{
			"status":  "healthy",
			"service": "courtsync-api",
		}

		if err := container.DB.Ping(); err != nil {
			health["db"] = "unhealthy"
			health["db_error"] = err.Error()
			health["status"] = "degraded"
		} else {
			health["db"] = "healthy"
		}

		if container.Redis != nil {
			if err := container.Redis.Ping(c.Context()).Err(); err != nil {
				health["redis"] = "unhealthy"
				health["redis_error"] = err.Error()
				health["status"] = "degraded"
			} else {
				health["redis"] = "healthy"
			}
		}

		status := fiber.StatusOK
		if health["status"] == "degraded" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(health)
	}
}
