package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type FacilityType string

const (
	FacilityHuman      FacilityType = "Human"
	FacilityVeterinary FacilityType = "Veterinary"
	FacilityPublic     FacilityType = "Public"
	FacilityPrivate    FacilityType = "Private"
)

func (t FacilityType) Valid() bool {
	switch t {
	case FacilityHuman, FacilityVeterinary, FacilityPublic, FacilityPrivate:
		return true
	}
	return false
}

// Inspection is one facility-visit case document. All writes go through the
// server and carry a revision counter; stale patches are rejected.
type Inspection struct {
	BaseUUIDModel
	SerialNumber  string       `gorm:"type:text;uniqueIndex" json:"serialNumber"`
	FacilityName  string       `gorm:"type:text;not null"    json:"facilityName"`
	ContactPhones string       `gorm:"type:text"             json:"contactPhones"`
	District      string       `gorm:"type:text;index"       json:"district"`
	FacilityType  FacilityType `gorm:"type:text"             json:"facilityType"`
	InspectionDate time.Time   `gorm:"type:timestamp"        json:"inspectionDate"`

	// Site coordinates captured on submission, when the device provided them
	Latitude  *float64 `gorm:"type:double precision" json:"latitude,omitempty"`
	Longitude *float64 `gorm:"type:double precision" json:"longitude,omitempty"`

	// Checklist answers keyed by question id; values are yes/no or free text
	Checklist datatypes.JSONMap `gorm:"type:jsonb" json:"checklist"`

	// Progress counters per checklist section (answered/total)
	Progress datatypes.JSONMap `gorm:"type:jsonb" json:"progress"`

	// Revision increments on every accepted patch; patches carry the expected
	// revision and lose with a conflict error when it does not match
	Revision int `gorm:"type:int;not null;default:1" json:"revision"`

	CreatedByID uuid.UUID `gorm:"type:uuid;index" json:"createdById"`
	CreatedBy   *User     `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`

	Impoundment *Impoundment `gorm:"foreignKey:InspectionID" json:"impoundment,omitempty"`
	Evidence    []Evidence   `gorm:"foreignKey:InspectionID" json:"evidence,omitempty"`
}

// SectionProgress recomputes answered/total for a checklist section given the
// section's question keys
func SectionProgress(checklist datatypes.JSONMap, questionKeys []string) map[string]int {
	answered := 0
	for _, key := range questionKeys {
		if v, ok := checklist[key]; ok {
			if s, isString := v.(string); !isString || s != "" {
				answered++
			}
		}
	}
	return map[string]int{
		"answered": answered,
		"total":    len(questionKeys),
	}
}
