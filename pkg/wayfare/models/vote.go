package models

import (
	"time"

	"gorm.io/gorm"
)

// Vote is a legacy-funnel vote for a candidate date range. Upserted; one
// active vote per (trip, user). OptionKey is "YYYY-MM-DD_YYYY-MM-DD".
type Vote struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	TripID    uint           `gorm:"not null;uniqueIndex:idx_vote_trip_user" json:"trip_id"`
	UserID    uint           `gorm:"not null;uniqueIndex:idx_vote_trip_user" json:"user_id"`
	OptionKey string         `gorm:"not null" json:"option_key"`

	// Relationships
	Trip Trip `gorm:"foreignKey:TripID" json:"trip,omitempty"`
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
