package services

import (
	"fmt"
	"medwatch/config"
	"medwatch/internal/database"
	"medwatch/internal/events"
	"medwatch/internal/repositories"

	"github.com/hibiken/asynq"
)

// QUEUE_DB_INDEX keeps asynq's keyspace out of the cache databases.
const QUEUE_DB_INDEX = 4

type Service struct {
	OIDC        *OIDCService
	SMS         *SMSService
	Notifier    *NotifierService
	Transaction *TransactionService
	Scheduler   *SchedulerService
	Storage     *StorageService

	queueClient *asynq.Client
}

func New(db database.DB, config config.Config, eventBus *events.EventBus) (Service, error) {
	transactionService := NewTransactionService(db)
	repos := repositories.New(db)

	oidcService, err := NewOIDCService(config)
	if err != nil {
		return Service{}, err
	}

	storageService, err := NewStorageService(config)
	if err != nil {
		return Service{}, err
	}

	queueClient := asynq.NewClient(QueueRedisOpt(config))

	smsService := NewSMSService(config)
	notifierService := NewNotifierService(repos.Notification, smsService, queueClient)
	schedulerService := NewSchedulerService(config.ReminderSweepAtHour)

	return Service{
		OIDC:        oidcService,
		SMS:         smsService,
		Notifier:    notifierService,
		Transaction: transactionService,
		Scheduler:   schedulerService,
		Storage:     storageService,
		queueClient: queueClient,
	}, nil
}

// QueueRedisOpt builds the asynq connection options from the cache server
// settings so the API and the worker always agree on the queue location.
func QueueRedisOpt(cfg config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr: fmt.Sprintf("%s:%d", cfg.DatabaseCacheAddress, cfg.DatabaseCachePort),
		DB:   QUEUE_DB_INDEX,
	}
}

// Close releases service-held resources.
func (s Service) Close() error {
	if s.queueClient != nil {
		if err := s.queueClient.Close(); err != nil {
			return err
		}
	}
	if s.OIDC != nil {
		return s.OIDC.Close()
	}
	return nil
}
