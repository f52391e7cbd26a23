package models

import (
	"github.com/google/uuid"
)

// Evidence is a photo or file captured during a facility visit, stored in the
// object store and referenced by key.
type Evidence struct {
	BaseUUIDModel
	InspectionID uuid.UUID `gorm:"type:uuid;index;not null" json:"inspectionId"`

	FileName    string `gorm:"type:text;not null" json:"fileName"`
	ObjectKey   string `gorm:"type:text;not null" json:"objectKey"`
	ContentType string `gorm:"type:text"          json:"contentType"`
	SizeBytes   int64  `gorm:"type:bigint"        json:"sizeBytes"`

	UploadedByID uuid.UUID `gorm:"type:uuid" json:"uploadedById"`
}
