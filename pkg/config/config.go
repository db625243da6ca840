package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cluster   ClusterConfig
	Storage   StorageConfig
	Thumbnail ThumbnailConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name  string
	Port  string
	Env   string
	Token string // HMAC secret for verifying the ingest API's bearer JWT; empty disables auth
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// ClusterConfig holds every tunable named in spec.md §6: the
// clustering gap, the debounce protocol's timings, and the per-job
// wall clock budgets.
type ClusterConfig struct {
	MeetingGap         time.Duration
	DebounceTTL        time.Duration
	RetryDelay         time.Duration
	MaxRetries         int
	ProcessJobTimeout  time.Duration
	ClusterJobTimeout  time.Duration
	StuckThreshold     time.Duration
	ProcessWorkerCount int
	ClusterWorkerCount int
}

type StorageConfig struct {
	Root string
}

type ThumbnailConfig struct {
	MaxEdge int
}

type RateLimitConfig struct {
	Enabled       bool
	MaxRequests   int
	WindowSeconds int
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // optional in production; env vars win either way

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	meetingGapHours, _ := strconv.ParseFloat(getEnv("MEETING_GAP_HOURS", "4"), 64)
	debounceTTL, _ := strconv.Atoi(getEnv("CLUSTER_DEBOUNCE_TTL", "5"))
	retryDelay, _ := strconv.Atoi(getEnv("CLUSTER_RETRY_DELAY", "3"))
	maxRetries, _ := strconv.Atoi(getEnv("CLUSTER_MAX_RETRIES", "2"))
	processTimeout, _ := strconv.Atoi(getEnv("PROCESS_JOB_TIMEOUT", "120"))
	clusterTimeout, _ := strconv.Atoi(getEnv("CLUSTER_JOB_TIMEOUT", "60"))
	stuckMinutes, _ := strconv.Atoi(getEnv("STUCK_THRESHOLD_MINUTES", "30"))
	processWorkers, _ := strconv.Atoi(getEnv("PROCESS_WORKER_COUNT", "4"))
	clusterWorkers, _ := strconv.Atoi(getEnv("CLUSTER_WORKER_COUNT", "1"))
	thumbMaxEdge, _ := strconv.Atoi(getEnv("THUMB_MAX_EDGE", "512"))
	rateLimitEnabled := getEnv("RATE_LIMIT_ENABLED", "true") == "true"
	rateLimitMax, _ := strconv.Atoi(getEnv("RATE_LIMIT_MAX_REQUESTS", "60"))
	rateLimitWindow, _ := strconv.Atoi(getEnv("RATE_LIMIT_WINDOW_SECONDS", "60"))

	config := &Config{
		App: AppConfig{
			Name:  getEnv("APP_NAME", "Photo Timeline"),
			Port:  getEnv("APP_PORT", "3000"),
			Env:   getEnv("APP_ENV", "development"),
			Token: getEnv("INGEST_TOKEN", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "phototimeline"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Cluster: ClusterConfig{
			MeetingGap:         time.Duration(meetingGapHours * float64(time.Hour)),
			DebounceTTL:        time.Duration(debounceTTL) * time.Second,
			RetryDelay:         time.Duration(retryDelay) * time.Second,
			MaxRetries:         maxRetries,
			ProcessJobTimeout:  time.Duration(processTimeout) * time.Second,
			ClusterJobTimeout:  time.Duration(clusterTimeout) * time.Second,
			StuckThreshold:     time.Duration(stuckMinutes) * time.Minute,
			ProcessWorkerCount: processWorkers,
			ClusterWorkerCount: clusterWorkers,
		},
		Storage: StorageConfig{
			Root: getEnv("STORAGE_ROOT", "./data"),
		},
		Thumbnail: ThumbnailConfig{
			MaxEdge: thumbMaxEdge,
		},
		RateLimit: RateLimitConfig{
			Enabled:       rateLimitEnabled,
			MaxRequests:   rateLimitMax,
			WindowSeconds: rateLimitWindow,
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
