package main

import (
	"os"
	"os/signal"
	"syscall"

	"phototimeline/pkg/di"
	"phototimeline/pkg/logger"
)

// The worker process runs the two background pipelines (spec.md §5's
// "multiple parallel worker processes") without serving HTTP. Several
// copies of this binary can run side by side; concurrency within a
// single process is controlled by PROCESS_WORKER_COUNT/CLUSTER_WORKER_COUNT.
func main() {
	logger.Init(os.Getenv("APP_ENV"))

	container := di.NewContainer()
	if err := container.Initialize(); err != nil {
		logger.StartupError("container_init_failed", "failed to initialize container", err, nil)
		os.Exit(1)
	}

	container.ProcessWorker.Start()
	container.ClusterWorker.Start()
	logger.Startup("workers_started", "process and cluster workers started", nil)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Startup("shutdown_started", "gracefully shutting down", nil)
	if err := container.Cleanup(); err != nil {
		logger.StartupError("cleanup_failed", "error during cleanup", err, nil)
	}
	logger.Startup("shutdown_complete", "shutdown complete", nil)
}
