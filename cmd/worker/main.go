package main

import (
	"medwatch/config"
	"medwatch/internal/database"
	"medwatch/internal/events"
	"medwatch/internal/logger"
	"medwatch/internal/queue"
	"medwatch/internal/services"
	"os"

	"github.com/hibiken/asynq"
)

// The worker owns notification delivery. It shares the queue database with
// the API process and retries failed dispatches with asynq's backoff.
func main() {
	log := logger.New("worker").Function("main")

	config, err := config.InitConfig()
	if err != nil {
		log.Er("failed to initialize config", err)
		os.Exit(1)
	}

	db, err := database.New(config)
	if err != nil {
		log.Er("failed to create database", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Er("failed to close database", err)
		}
	}()

	eventBus := events.New(db.Cache.Events, config)
	defer func() {
		if err := eventBus.Close(); err != nil {
			log.Er("failed to close event bus", err)
		}
	}()

	appServices, err := services.New(db, config, eventBus)
	if err != nil {
		log.Er("failed to create services", err)
		os.Exit(1)
	}
	defer func() {
		if err := appServices.Close(); err != nil {
			log.Er("failed to close services", err)
		}
	}()

	concurrency := config.QueueConcurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	srv := asynq.NewServer(
		services.QueueRedisOpt(config),
		asynq.Config{
			Concurrency: concurrency,
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.DispatchNotificationTask, appServices.Notifier.HandleDispatchTask)

	log.Info("Starting notification worker", "concurrency", concurrency)
	if err := srv.Run(mux); err != nil {
		log.Er("worker stopped with error", err)
		os.Exit(1)
	}
}
