package models

// Counter holds a named monotonic sequence. Serial numbers for inspection
// documents are reserved through an atomic read-modify-write so concurrent
// submissions never collide.
type Counter struct {
	Name  string `gorm:"type:text;primaryKey" json:"name"`
	Value int64  `gorm:"type:bigint;not null;default:0" json:"value"`
}

const InspectionSerialCounter = "inspection_serial"
