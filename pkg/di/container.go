package di

import (
	"context"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"phototimeline/application/serviceimpl"
	"phototimeline/domain/repositories"
	"phototimeline/domain/services"
	"phototimeline/infrastructure/metadata"
	"phototimeline/infrastructure/postgres"
	infraqueue "phototimeline/infrastructure/queue"
	infraredis "phototimeline/infrastructure/redis"
	"phototimeline/infrastructure/storage"
	"phototimeline/infrastructure/thumbnail"
	"phototimeline/infrastructure/worker"
	"phototimeline/interfaces/api/handlers"
	"phototimeline/pkg/config"
	"phototimeline/pkg/logger"
	"phototimeline/pkg/scheduler"
)

// Container wires every collaborator the ingest API and the worker
// processes share, the teacher's single-struct-with-phased-init shape
// kept as-is and reduced to this domain's components.
type Container struct {
	Config *config.Config

	DB          *gorm.DB
	RedisClient *redisv9.Client
	Queue       infraqueue.Queue
	Debounce    *infraredis.DebounceCoordinator
	Storage     *storage.Storage
	Extractor   *metadata.Extractor
	Thumbnails  *thumbnail.Maker
	Scheduler   scheduler.EventScheduler

	PhotoRepository repositories.PhotoRepository

	IngestService services.IngestService

	Handlers *handlers.Handlers

	ProcessWorker *worker.ProcessWorker
	ClusterWorker *worker.ClusterWorker
}

func NewContainer() *Container {
	return &Container{}
}

// Initialize wires everything, including both background workers, but
// starts neither worker pool: cmd/worker starts them, cmd/api leaves
// them idle since the HTTP process only needs the ingest path.
func (c *Container) Initialize() error {
	if err := c.initConfig(); err != nil {
		return err
	}
	if err := c.initInfrastructure(); err != nil {
		return err
	}
	if err := c.initRepositories(); err != nil {
		return err
	}
	if err := c.initServices(); err != nil {
		return err
	}
	c.initWorkers()
	c.initScheduler()
	return nil
}

func (c *Container) initConfig() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	c.Config = cfg
	logger.Startup("config_loaded", "configuration loaded", nil)
	return nil
}

func (c *Container) initInfrastructure() error {
	dbConfig := postgres.DatabaseConfig{
		Host:     c.Config.Database.Host,
		Port:     c.Config.Database.Port,
		User:     c.Config.Database.User,
		Password: c.Config.Database.Password,
		DBName:   c.Config.Database.DBName,
		SSLMode:  c.Config.Database.SSLMode,
	}
	db, err := postgres.NewDatabase(dbConfig)
	if err != nil {
		return err
	}
	c.DB = db
	logger.Startup("db_connected", "database connected", nil)

	if err := postgres.Migrate(db); err != nil {
		return err
	}
	logger.Startup("db_migrated", "database migrated", nil)

	c.RedisClient = infraredis.NewClient(c.Config.Redis)
	if err := c.RedisClient.Ping(context.Background()).Err(); err != nil {
		logger.StartupWarn("redis_connection_failed", "redis connection failed", map[string]interface{}{"error": err.Error()})
	} else {
		logger.Startup("redis_connected", "redis connected", nil)
	}

	c.Queue = infraqueue.NewRedisQueue(c.RedisClient)
	kv := infraredis.NewKV(c.RedisClient)
	clusterQueue := infraqueue.ClusterJobAdapter{Queue: c.Queue}
	c.Debounce = infraredis.NewDebounceCoordinator(kv, clusterQueue, c.Config.Cluster)

	c.Storage = storage.New(c.Config.Storage.Root)
	c.Extractor = metadata.New()
	c.Thumbnails = thumbnail.New(c.Config.Thumbnail.MaxEdge)
	if !c.Extractor.CanShellOut() {
		logger.StartupWarn("exiftool_unavailable", "exiftool not found on PATH, HEIC metadata will be skipped", nil)
	}

	return nil
}

func (c *Container) initRepositories() error {
	c.PhotoRepository = postgres.NewPhotoRepository(c.DB)
	logger.Startup("repositories_initialized", "repositories initialized", nil)
	return nil
}

func (c *Container) initServices() error {
	c.IngestService = serviceimpl.NewIngestService(c.Storage, c.PhotoRepository, c.Queue, c.Debounce)
	c.Handlers = handlers.NewHandlers(c.IngestService, c.DB, c.RedisClient, c.PhotoRepository, c.Extractor, c.Queue)
	logger.Startup("services_initialized", "services initialized", nil)
	return nil
}

func (c *Container) initWorkers() {
	c.ProcessWorker = worker.NewProcessWorker(
		c.Queue,
		c.PhotoRepository,
		c.Storage,
		c.Extractor,
		c.Thumbnails,
		c.Debounce,
		c.Config.Cluster.ProcessWorkerCount,
		c.Config.Cluster.ProcessJobTimeout,
	)
	c.ClusterWorker = worker.NewClusterWorker(
		c.Queue,
		c.Debounce,
		c.PhotoRepository,
		c.Config.Cluster,
	)
}

// initScheduler schedules the two sweeps spec.md §8's recovery story
// needs and nothing else touches: promoting delayed queue jobs whose
// due time has passed (Dequeue alone never looks at the delayed set),
// and re-enqueuing photos that have sat unprocessed past the stuck
// threshold, in case a worker died mid-job.
func (c *Container) initScheduler() {
	c.Scheduler = scheduler.NewEventScheduler()
	c.Scheduler.Start()

	if err := c.Scheduler.AddJob("promote-due-default", "* * * * *", func() {
		c.promoteDue("default")
	}); err != nil {
		logger.StartupWarn("promote_due_schedule_failed", "failed to schedule default queue promotion", map[string]interface{}{"error": err.Error()})
	}
	if err := c.Scheduler.AddJob("promote-due-cluster", "* * * * *", func() {
		c.promoteDue("cluster")
	}); err != nil {
		logger.StartupWarn("promote_due_schedule_failed", "failed to schedule cluster queue promotion", map[string]interface{}{"error": err.Error()})
	}
	if err := c.Scheduler.AddJob("stuck-photo-sweep", "*/5 * * * *", c.sweepStuckPhotos); err != nil {
		logger.StartupWarn("stuck_sweep_schedule_failed", "failed to schedule stuck photo sweep", map[string]interface{}{"error": err.Error()})
	}

	logger.Startup("scheduler_started", "event scheduler started", nil)
}

func (c *Container) promoteDue(queueName string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	promoted, err := c.Queue.PromoteDue(ctx, queueName)
	if err != nil {
		logger.StartupWarn("promote_due_failed", "promote due jobs failed", map[string]interface{}{"queue": queueName, "error": err.Error()})
		return
	}
	if promoted > 0 {
		logger.Startup("promote_due", "promoted delayed jobs", map[string]interface{}{"queue": queueName, "count": promoted})
	}
}

// sweepStuckPhotos re-enqueues photos ListStuckProcessing finds: a
// worker that died mid-job leaves its photo row Processed=false
// forever with no job left on the queue to retry it.
func (c *Container) sweepStuckPhotos() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stuck, err := c.PhotoRepository.ListStuckProcessing(ctx, c.Config.Cluster.StuckThreshold, 100)
	if err != nil {
		logger.StartupWarn("stuck_sweep_list_failed", "failed to list stuck photos", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(stuck) == 0 {
		return
	}

	requeued := 0
	for _, photo := range stuck {
		if err := c.IngestService.RequeueProcessing(ctx, photo.ID); err != nil {
			logger.StartupWarn("stuck_sweep_requeue_failed", "failed to requeue stuck photo", map[string]interface{}{"photo_id": photo.ID.String(), "error": err.Error()})
			continue
		}
		requeued++
	}
	logger.Startup("stuck_sweep", "requeued stuck photos", map[string]interface{}{"found": len(stuck), "requeued": requeued})
}

func (c *Container) Cleanup() error {
	logger.Startup("cleanup_started", "starting cleanup", nil)

	if c.ProcessWorker != nil && c.ProcessWorker.IsRunning() {
		c.ProcessWorker.Stop()
	}
	if c.ClusterWorker != nil && c.ClusterWorker.IsRunning() {
		c.ClusterWorker.Stop()
	}
	if c.Scheduler != nil && c.Scheduler.IsRunning() {
		c.Scheduler.Stop()
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			logger.StartupWarn("redis_close_failed", "failed to close redis connection", map[string]interface{}{"error": err.Error()})
		} else {
			logger.Startup("redis_closed", "redis connection closed", nil)
		}
	}

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.StartupWarn("db_close_failed", "failed to close database connection", map[string]interface{}{"error": err.Error()})
			} else {
				logger.Startup("db_closed", "database connection closed", nil)
			}
		}
	}

	logger.Startup("cleanup_completed", "cleanup completed", nil)
	return nil
}
