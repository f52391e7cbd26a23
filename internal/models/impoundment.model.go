package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// BoxStatus is the custody state of seized stock. Transitions are linear and
// Released is terminal.
type BoxStatus string

const (
	BoxStatusNotYetInStore BoxStatus = "Not yet in store"
	BoxStatusInStore       BoxStatus = "In Store"
	BoxStatusReleased      BoxStatus = "Released"
)

func (s BoxStatus) Valid() bool {
	switch s {
	case BoxStatusNotYetInStore, BoxStatusInStore, BoxStatusReleased:
		return true
	}
	return false
}

// CanTransitionTo reports whether the linear lifecycle permits moving to the
// given status. No back-transitions; Released accepts nothing.
func (s BoxStatus) CanTransitionTo(to BoxStatus) bool {
	switch s {
	case BoxStatusNotYetInStore:
		return to == BoxStatusInStore
	case BoxStatusInStore:
		return to == BoxStatusReleased
	}
	return false
}

// InventoryStatus reflects completeness of the seized inventory, derived from
// remaining box count. Kept separate from custody on purpose: a partial
// release still moves custody to Released but leaves the case pending review.
type InventoryStatus string

const (
	InventoryPendingReview InventoryStatus = "Pending review"
	InventoryCompleted     InventoryStatus = "Completed"
)

// DeriveInventoryStatus maps remaining box count to inventory completeness
func DeriveInventoryStatus(remaining int) InventoryStatus {
	if remaining == 0 {
		return InventoryCompleted
	}
	return InventoryPendingReview
}

// Impoundment is the seized-stock block of an inspection, present only when
// stock was taken.
type Impoundment struct {
	BaseUUIDModel
	InspectionID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"inspectionId"`

	BoxesImpounded  int                 `gorm:"type:int;not null"  json:"boxesImpounded"`
	Officer         string              `gorm:"type:text;not null" json:"officer"`
	ImpoundmentDate time.Time           `gorm:"type:timestamp"     json:"impoundmentDate"`
	Reasons         datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"reasons"`

	BoxStatus       BoxStatus       `gorm:"type:text;not null;default:'Not yet in store';index" json:"boxStatus"`
	InventoryStatus InventoryStatus `gorm:"type:text;not null;default:'Pending review'"         json:"inventoryStatus"`

	// Set when custody moves to In Store. Stock may reach the store days after
	// impoundment; days-in-store counts from here, not the impoundment date
	InStoreAt *time.Time `gorm:"type:timestamp" json:"inStoreAt,omitempty"`

	// Set exactly once by the reminder sweep; a non-null value suppresses
	// further reminders for this record
	ReminderSentAt *time.Time `gorm:"type:timestamp" json:"reminderSentAt,omitempty"`

	Release *Release `gorm:"foreignKey:ImpoundmentID" json:"release,omitempty"`
}

// RemainingBoxes returns impounded minus released, floored at zero
func (i *Impoundment) RemainingBoxes() int {
	if i.Release == nil {
		return i.BoxesImpounded
	}
	remaining := i.BoxesImpounded - i.Release.BoxesReleased
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsReleased reports whether the record reached its terminal custody state
func (i *Impoundment) IsReleased() bool {
	return i.BoxStatus == BoxStatusReleased
}

// DaysInStore counts whole days since the stock entered the store. Rows
// predating the in-store timestamp fall back to the impoundment date.
func (i *Impoundment) DaysInStore(now time.Time) int {
	since := i.ImpoundmentDate
	if i.InStoreAt != nil {
		since = *i.InStoreAt
	}
	if since.IsZero() {
		return 0
	}
	return int(now.Sub(since).Hours() / 24)
}
