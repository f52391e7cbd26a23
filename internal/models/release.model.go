package models

import (
	"time"

	"github.com/google/uuid"
)

// Release is the terminal, irreversible act of returning stock to its owner.
// At most one exists per impoundment.
type Release struct {
	BaseUUIDModel
	ImpoundmentID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"impoundmentId"`

	ReleaseDate      time.Time `gorm:"type:timestamp;not null" json:"releaseDate"`
	ClientName       string    `gorm:"type:text;not null"      json:"clientName"`
	Telephone        string    `gorm:"type:text;not null"      json:"telephone"`
	ReleasingOfficer string    `gorm:"type:text;not null"      json:"releasingOfficer"`
	Comment          string    `gorm:"type:text"               json:"comment"`
	BoxesReleased    int       `gorm:"type:int;not null"       json:"boxesReleased"`

	CreatedByID uuid.UUID `gorm:"type:uuid" json:"createdById"`
}
