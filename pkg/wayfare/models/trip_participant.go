package models

import (
	"time"

	"gorm.io/gorm"
)

// ParticipantStatus is the stored override status for a trip participant
type ParticipantStatus string

const (
	ParticipantStatusActive  ParticipantStatus = "active"
	ParticipantStatusLeft    ParticipantStatus = "left"
	ParticipantStatusRemoved ParticipantStatus = "removed"
)

// TripParticipant is one override row per (trip, user). Absence of a row means
// "active by default" for collaborative trips and "not a participant" for
// hosted trips. Rows are created on join/invite and updated on leave/removal,
// never deleted.
type TripParticipant struct {
	ID        uint              `gorm:"primarykey" json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	DeletedAt gorm.DeletedAt    `gorm:"index" json:"-"`
	TripID    uint              `gorm:"not null;uniqueIndex:idx_trip_user" json:"trip_id"`
	UserID    uint              `gorm:"not null;uniqueIndex:idx_trip_user" json:"user_id"`
	Status    ParticipantStatus `gorm:"type:varchar(20);default:'active'" json:"status"`

	// Relationships
	Trip Trip `gorm:"foreignKey:TripID" json:"trip,omitempty"`
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
