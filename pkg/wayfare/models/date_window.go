package models

import (
	"time"

	"gorm.io/gorm"
)

// WindowPrecision records how a date window's range was obtained
type WindowPrecision string

const (
	// WindowPrecisionExact means the range came from explicit dates or clean parsing
	WindowPrecisionExact WindowPrecision = "exact"
	// WindowPrecisionUnstructured means the text could not be parsed; concrete
	// dates are deferred until the leader concretizes the window
	WindowPrecisionUnstructured WindowPrecision = "unstructured"
)

// DateWindow is a candidate date range proposed by one traveler.
// Immutable once created, except when a leader concretizes an unstructured
// window into exact dates.
type DateWindow struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
	TripID      uint            `gorm:"not null;index" json:"trip_id"`
	CreatedByID uint            `gorm:"not null" json:"created_by_id"`
	StartDate   string          `json:"start_date"` // empty while unstructured
	EndDate     string          `json:"end_date"`   // empty while unstructured
	Precision   WindowPrecision `gorm:"type:varchar(20);not null" json:"precision"`
	SourceText  string          `json:"source_text"`

	// Relationships
	Trip      Trip            `gorm:"foreignKey:TripID" json:"trip,omitempty"`
	CreatedBy User            `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	Supports  []WindowSupport `gorm:"foreignKey:WindowID" json:"supports,omitempty"`
}
