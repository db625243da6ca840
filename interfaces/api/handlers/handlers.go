package handlers

import (
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"phototimeline/domain/repositories"
	"phototimeline/domain/services"
	"phototimeline/infrastructure/metadata"
	"phototimeline/infrastructure/queue"
)

// Handlers groups every HTTP handler the ingest API mounts.
type Handlers struct {
	Ingest *IngestHandler
	Health *HealthHandler
}

// NewHandlers wires the handler layer from its collaborators. Kept as
// a single constructor, teacher-style, so the DI container has one
// call site to assemble the whole interfaces/api/handlers package.
func NewHandlers(
	ingestService services.IngestService,
	db *gorm.DB,
	rdb *redis.Client,
	photos repositories.PhotoRepository,
	extractor *metadata.Extractor,
	q queue.Queue,
) *Handlers {
	return &Handlers{
		Ingest: NewIngestHandler(ingestService),
		Health: NewHealthHandler(db, rdb, photos, extractor, q),
	}
}
