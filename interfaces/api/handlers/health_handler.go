package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"phototimeline/domain/repositories"
	"phototimeline/infrastructure/metadata"
	"phototimeline/infrastructure/queue"
)

// HealthHandler backs both the liveness probe and the detailed
// component/metrics report (SPEC_FULL.md's supplemented health check,
// grounded on the teacher's DetailedHealth/ComponentHealth shape).
type HealthHandler struct {
	db        *gorm.DB
	rdb       *redis.Client
	photos    repositories.PhotoRepository
	extractor *metadata.Extractor
	queue     queue.Queue
}

func NewHealthHandler(db *gorm.DB, rdb *redis.Client, photos repositories.PhotoRepository, extractor *metadata.Extractor, q queue.Queue) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb, photos: photos, extractor: extractor, queue: q}
}

// ComponentHealth reports one dependency's reachability.
type ComponentHealth struct {
	Status  string `json:"status"` // "ok", "error", "unavailable"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// DetailedHealthResponse is the full system report.
type DetailedHealthResponse struct {
	Status     string                     `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
	Metrics    *HealthMetrics             `json:"metrics,omitempty"`
}

// HealthMetrics summarizes pipeline backlog, used to spot a stuck
// worker fleet before the recovery sweep would otherwise notice.
type HealthMetrics struct {
	StuckPhotos        int64 `json:"stuck_photos"`
	ExiftoolAvailable  bool  `json:"exiftool_available"`
	DefaultQueueDepth  int64 `json:"default_queue_depth"`
	ClusterQueueDepth  int64 `json:"cluster_queue_depth"`
	MismatchedMeetings int64 `json:"mismatched_meetings"`
}

// Liveness answers GET /health: the process is up and serving
// requests. It never touches a dependency.
// @Summary Liveness probe
// @Tags Health
// @Success 200 {object} fiber.Map
// @Router /health [get]
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// DetailedHealth answers GET /health/detailed: Postgres, Redis, and
// the stuck-photo backlog, degraded-vs-unhealthy the way an
// orchestrator's readiness probe would want to see it.
// @Summary Detailed system health
// @Description Reports Postgres, Redis, and pipeline backlog health
// @Tags Health
// @Success 200 {object} DetailedHealthResponse
// @Router /health/detailed [get]
func (h *HealthHandler) DetailedHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 10*time.Second)
	defer cancel()

	response := DetailedHealthResponse{
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}

	hasCriticalFailure := false
	allHealthy := true

	dbHealth := h.checkDatabase(ctx)
	response.Components["database"] = dbHealth
	if dbHealth.Status != "ok" {
		hasCriticalFailure = true
	}

	redisHealth := h.checkRedis(ctx)
	response.Components["redis"] = redisHealth
	if redisHealth.Status != "ok" {
		hasCriticalFailure = true
	}

	if dbHealth.Status == "ok" {
		metrics := h.getMetrics(ctx)
		response.Metrics = metrics
		if metrics != nil && (metrics.StuckPhotos > 0 || metrics.MismatchedMeetings > 0) {
			allHealthy = false
		}
	}

	switch {
	case hasCriticalFailure:
		response.Status = "unhealthy"
	case !allHealthy:
		response.Status = "degraded"
	default:
		response.Status = "healthy"
	}

	statusCode := fiber.StatusOK
	if response.Status == "unhealthy" {
		statusCode = fiber.StatusServiceUnavailable
	}
	return c.Status(statusCode).JSON(response)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) ComponentHealth {
	start := time.Now()
	if h.db == nil {
		return ComponentHealth{Status: "error", Message: "database not configured"}
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return ComponentHealth{Status: "error", Message: "failed to get underlying connection: " + err.Error()}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return ComponentHealth{Status: "error", Message: "ping failed: " + err.Error()}
	}
	return ComponentHealth{Status: "ok", Message: "connected", Latency: time.Since(start).String()}
}

func (h *HealthHandler) checkRedis(ctx context.Context) ComponentHealth {
	start := time.Now()
	if h.rdb == nil {
		return ComponentHealth{Status: "error", Message: "redis not configured"}
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		return ComponentHealth{Status: "error", Message: "ping failed: " + err.Error()}
	}
	return ComponentHealth{Status: "ok", Message: "connected", Latency: time.Since(start).String()}
}

func (h *HealthHandler) getMetrics(ctx context.Context) *HealthMetrics {
	metrics := &HealthMetrics{}

	if h.photos != nil {
		stuck, err := h.photos.ListStuckProcessing(ctx, 30*time.Minute, 1000)
		if err == nil {
			metrics.StuckPhotos = int64(len(stuck))
		}

		mismatches, err := h.photos.VerifyMeetingCounts(ctx)
		if err == nil {
			metrics.MismatchedMeetings = int64(len(mismatches))
		}
	}

	if h.extractor != nil {
		metrics.ExiftoolAvailable = h.extractor.CanShellOut()
	}

	if h.queue != nil {
		if ready, delayed, err := h.queue.Depth(ctx, "default"); err == nil {
			metrics.DefaultQueueDepth = ready + delayed
		}
		if ready, delayed, err := h.queue.Depth(ctx, "cluster"); err == nil {
			metrics.ClusterQueueDepth = ready + delayed
		}
	}

	return metrics
}
