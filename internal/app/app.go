package app

import (
	"context"
	"medwatch/config"
	"medwatch/internal/controllers"
	"medwatch/internal/database"
	"medwatch/internal/events"
	"medwatch/internal/handlers/middleware"
	"medwatch/internal/jobs"
	"medwatch/internal/logger"
	"medwatch/internal/repositories"
	"medwatch/internal/services"
	"medwatch/internal/websockets"
)

type App struct {
	Database   database.DB
	Middleware middleware.Middleware
	Websocket  *websockets.Manager
	EventBus   *events.EventBus
	Config     config.Config

	Services    services.Service
	Repos       repositories.Repository
	Controllers controllers.Controllers
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.InitConfig()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	eventBus := events.New(db.Cache.Events, config)

	appServices, err := services.New(db, config, eventBus)
	if err != nil {
		return &App{}, log.Err("failed to create services", err)
	}

	repos := repositories.New(db)
	appControllers := controllers.New(appServices, repos, eventBus, config, db)

	websocket, err := websockets.New(db, eventBus, appServices.OIDC, repos.User, config)
	if err != nil {
		return &App{}, log.Err("failed to create websocket manager", err)
	}

	middleware := middleware.New(db, eventBus, config, repos)

	if config.SchedulerEnabled {
		reminderJob := jobs.NewReminderJob(appControllers.Lifecycle, services.Daily)
		if err := appServices.Scheduler.AddJob(reminderJob); err != nil {
			return &App{}, log.Err("failed to register reminder job", err)
		}
		log.Info("Registered reminder job with scheduler")

		notificationSweepJob := jobs.NewNotificationSweepJob(
			repos.Notification,
			appServices.Notifier,
			services.Hourly,
		)
		if err := appServices.Scheduler.AddJob(notificationSweepJob); err != nil {
			return &App{}, log.Err("failed to register notification sweep job", err)
		}
		log.Info("Registered notification sweep job with scheduler")

		if err := appServices.Scheduler.Start(context.Background()); err != nil {
			return &App{}, log.Err("failed to start scheduler", err)
		}
	}

	app := &App{
		Database:    db,
		Config:      config,
		Middleware:  middleware,
		Websocket:   websocket,
		EventBus:    eventBus,
		Services:    appServices,
		Repos:       repos,
		Controllers: appControllers,
	}

	if err := app.validate(); err != nil {
		return &App{}, log.Err("failed to validate app", err)
	}

	return app, nil
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")
	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}

	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := []any{
		a.Websocket,
		a.EventBus,
		a.Services.OIDC,
		a.Services.SMS,
		a.Services.Notifier,
		a.Services.Transaction,
		a.Services.Scheduler,
		a.Services.Storage,
		a.Repos.User,
		a.Repos.Inspection,
		a.Repos.Impoundment,
		a.Repos.Notification,
		a.Repos.Counter,
		a.Repos.Evidence,
		a.Controllers.User,
		a.Controllers.Auth,
		a.Controllers.Inspection,
		a.Controllers.Lifecycle,
		a.Controllers.Evidence,
	}

	for _, check := range nilChecks {
		if check == nil {
			return log.ErrMsg("nil check failed")
		}
	}

	return nil
}

func (a *App) Close() (err error) {
	if a.EventBus != nil {
		if closeErr := a.EventBus.Close(); closeErr != nil {
			err = closeErr
		}
	}

	if a.Services.Scheduler != nil && a.Services.Scheduler.IsRunning() {
		if closeErr := a.Services.Scheduler.Stop(context.Background()); closeErr != nil {
			err = closeErr
		}
	}

	if closeErr := a.Services.Close(); closeErr != nil {
		err = closeErr
	}

	if dbErr := a.Database.Close(); dbErr != nil {
		err = dbErr
	}

	return err
}
