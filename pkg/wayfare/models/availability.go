package models

import (
	"time"

	"gorm.io/gorm"
)

// AvailabilityKind is the shape of one availability row
type AvailabilityKind string

const (
	// AvailabilityKindBroad applies to every day in the trip's planning window
	AvailabilityKindBroad AvailabilityKind = "broad"
	// AvailabilityKindWeekly applies to the days of its own sub-range
	AvailabilityKindWeekly AvailabilityKind = "weekly"
	// AvailabilityKindDay applies to exactly one day
	AvailabilityKindDay AvailabilityKind = "day"
)

// AvailabilityStatus is a traveler's signal for a day or range
type AvailabilityStatus string

const (
	AvailabilityAvailable   AvailabilityStatus = "available"
	AvailabilityMaybe       AvailabilityStatus = "maybe"
	AvailabilityUnavailable AvailabilityStatus = "unavailable"
)

// Availability is one submitted availability row for a (trip, user).
// All rows for a user are replaced atomically on each submission.
type Availability struct {
	ID        uint               `gorm:"primarykey" json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	DeletedAt gorm.DeletedAt     `gorm:"index" json:"-"`
	TripID    uint               `gorm:"not null;index" json:"trip_id"`
	UserID    uint               `gorm:"not null;index" json:"user_id"`
	Kind      AvailabilityKind   `gorm:"type:varchar(20);not null" json:"kind"`
	Status    AvailabilityStatus `gorm:"type:varchar(20);not null" json:"status"`
	Day       string             `json:"day"`        // day kind only
	StartDate string             `json:"start_date"` // weekly kind only
	EndDate   string             `json:"end_date"`   // weekly kind only

	// Relationships
	Trip Trip `gorm:"foreignKey:TripID" json:"trip,omitempty"`
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
