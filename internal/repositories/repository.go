package repositories

import (
	"medwatch/internal/database"
)

type Repository struct {
	User         UserRepository
	Inspection   InspectionRepository
	Impoundment  ImpoundmentRepository
	Notification NotificationRepository
	Counter      CounterRepository
	Evidence     EvidenceRepository
}

func New(db database.DB) Repository {
	return Repository{
		User:         NewUserRepository(db), // User repo needs cache for caching
		Inspection:   NewInspectionRepository(db),
		Impoundment:  NewImpoundmentRepository(db),
		Notification: NewNotificationRepository(db),
		Counter:      NewCounterRepository(db),
		Evidence:     NewEvidenceRepository(db),
	}
}
