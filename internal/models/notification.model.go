package models

import (
	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

type NotificationKind string

const (
	NotificationInStore  NotificationKind = "in_store"
	NotificationRelease  NotificationKind = "release"
	NotificationReminder NotificationKind = "reminder"
	NotificationAdHoc    NotificationKind = "ad_hoc"
)

// Notification is a persisted outbound SMS. Lifecycle transitions commit the
// row in the same transaction as the primary write, then the dispatcher sends
// it with independent retries. A failed send never rolls back the transition.
type Notification struct {
	BaseUUIDModel
	InspectionID *uuid.UUID `gorm:"type:uuid;index" json:"inspectionId,omitempty"`

	Kind       NotificationKind   `gorm:"type:text;not null"                    json:"kind"`
	Recipients string             `gorm:"type:text;not null"                    json:"recipients"`
	Message    string             `gorm:"type:text;not null"                    json:"message"`
	Status     NotificationStatus `gorm:"type:text;not null;default:'pending';index" json:"status"`
	Attempts   int                `gorm:"type:int;not null;default:0"           json:"attempts"`
	LastError  string             `gorm:"type:text"                             json:"lastError,omitempty"`
}
