// Package logger wraps zerolog behind the category-helper call shape
// used throughout this codebase (logger.Ingest, logger.ClusterError,
// ...) so call sites read like plain sentences instead of builder
// chains, while the actual sink, level filtering, and formatting are
// zerolog's.
package logger

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Category groups log lines by subsystem, mirroring the pipeline's own
// component boundaries (spec.md §4).
type Category string

const (
	CategoryIngest    Category = "ingest"
	CategoryProcess   Category = "process"
	CategoryCluster   Category = "cluster"
	CategoryDebounce  Category = "debounce"
	CategoryDB        Category = "db"
	CategoryStorage   Category = "storage"
	CategoryMetadata  Category = "metadata"
	CategoryThumbnail Category = "thumbnail"
	CategoryQueue     Category = "queue"
	CategoryAPI       Category = "api"
	CategoryStartup   Category = "startup"
)

var (
	base zerolog.Logger
	once sync.Once
)

// Init configures the process-wide zerolog sink. Safe to call once at
// startup; subsequent calls are no-ops.
func Init(env string) {
	once.Do(func() {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		writer := os.Stdout
		if env == "development" {
			base = zerolog.New(zerolog.ConsoleWriter{Out: writer}).With().Timestamp().Logger()
			return
		}
		base = zerolog.New(writer).With().Timestamp().Logger()
	})
}

func logger() zerolog.Logger {
	once.Do(func() { base = zerolog.New(os.Stdout).With().Timestamp().Logger() })
	return base
}

func fields(event *zerolog.Event, data map[string]interface{}) *zerolog.Event {
	if len(data) > 0 {
		event = event.Fields(data)
	}
	return event
}

func log(level zerolog.Level, category Category, action, message string, err error, data map[string]interface{}) {
	l := logger()
	event := l.WithLevel(level).Str("category", string(category)).Str("action", action)
	if err != nil {
		event = event.Err(err)
	}
	fields(event, data).Msg(message)
}

// Info logs an info-level message under an arbitrary category.
func Info(category Category, action, message string, data map[string]interface{}) {
	log(zerolog.InfoLevel, category, action, message, nil, data)
}

// Error logs an error-level message under an arbitrary category.
func Error(category Category, action, message string, err error, data map[string]interface{}) {
	log(zerolog.ErrorLevel, category, action, message, err, data)
}

// Debug logs a debug-level message under an arbitrary category.
func Debug(category Category, action, message string, data map[string]interface{}) {
	log(zerolog.DebugLevel, category, action, message, nil, data)
}

// Warn logs a warning-level message under an arbitrary category.
func Warn(category Category, action, message string, data map[string]interface{}) {
	log(zerolog.WarnLevel, category, action, message, nil, data)
}

// Ingest logs a successful step of the ingest API path.
func Ingest(action, message string, data map[string]interface{}) {
	Info(CategoryIngest, action, message, data)
}

// IngestError logs an ingest API failure.
func IngestError(action, message string, err error, data map[string]interface{}) {
	Error(CategoryIngest, action, message, err, data)
}

// Process logs a process-worker step (metadata extraction, thumbnailing).
func Process(action, message string, data map[string]interface{}) {
	Info(CategoryProcess, action, message, data)
}

// ProcessError logs a process-worker failure.
func ProcessError(action, message string, err error, data map[string]interface{}) {
	Error(CategoryProcess, action, message, err, data)
}

// Cluster logs a cluster-worker reconciliation step.
func Cluster(action, message string, data map[string]interface{}) {
	Info(CategoryCluster, action, message, data)
}

// ClusterError logs a cluster-worker failure.
func ClusterError(action, message string, err error, data map[string]interface{}) {
	Error(CategoryCluster, action, message, err, data)
}

// Debounce logs a debounce-coordinator decision (NX win/loss, reschedule).
func Debounce(action, message string, data map[string]interface{}) {
	Debug(CategoryDebounce, action, message, data)
}

// DebounceError logs a debounce-coordinator failure.
func DebounceError(action, message string, err error, data map[string]interface{}) {
	Error(CategoryDebounce, action, message, err, data)
}

// DB logs a database operation.
func DB(action, message string, data map[string]interface{}) {
	Debug(CategoryDB, action, message, data)
}

// DBError logs a database failure.
func DBError(action, message string, err error, data map[string]interface{}) {
	Error(CategoryDB, action, message, err, data)
}

// Startup logs a startup/initialization event.
func Startup(action, message string, data map[string]interface{}) {
	Info(CategoryStartup, action, message, data)
}

// StartupError logs a fatal-at-boot startup error.
func StartupError(action, message string, err error, data map[string]interface{}) {
	Error(CategoryStartup, action, message, err, data)
}

// StartupWarn logs a non-fatal startup warning.
func StartupWarn(action, message string, data map[string]interface{}) {
	Warn(CategoryStartup, action, message, data)
}

// API logs an inbound-request lifecycle event.
func API(action, message string, data map[string]interface{}) {
	Info(CategoryAPI, action, message, data)
}
