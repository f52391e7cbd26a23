package controllers

import (
	"medwatch/config"
	"medwatch/internal/database"
	"medwatch/internal/events"
	"medwatch/internal/repositories"
	"medwatch/internal/services"

	authController "medwatch/internal/controllers/auth"
	evidenceController "medwatch/internal/controllers/evidence"
	inspectionController "medwatch/internal/controllers/inspections"
	lifecycleController "medwatch/internal/controllers/lifecycle"
	userController "medwatch/internal/controllers/users"
)

type Controllers struct {
	User       userController.UserControllerInterface
	Auth       authController.AuthControllerInterface
	Inspection inspectionController.InspectionControllerInterface
	Lifecycle  lifecycleController.LifecycleControllerInterface
	Evidence   evidenceController.EvidenceControllerInterface
}

func New(
	services services.Service,
	repos repositories.Repository,
	eventBus *events.EventBus,
	config config.Config,
	db database.DB,
) Controllers {
	return Controllers{
		User:       userController.New(repos, services, config, db),
		Auth:       authController.New(services, repos, db),
		Inspection: inspectionController.New(repos, services, eventBus, config, db),
		Lifecycle:  lifecycleController.New(repos, services, eventBus, config, db),
		Evidence:   evidenceController.New(repos, services, config, db),
	}
}
