package models

import (
	"time"

	"gorm.io/gorm"
)

// Stay is an accommodation bookmark saved against a locked trip
type Stay struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	TripID        uint           `gorm:"not null;index" json:"trip_id"`
	CreatedByID   uint           `gorm:"not null" json:"created_by_id"`
	URL           string         `gorm:"not null" json:"url"`
	Title         string         `json:"title"`
	Notes         string         `json:"notes"`
	PricePerNight float64        `json:"price_per_night"`

	// Relationships
	Trip      Trip `gorm:"foreignKey:TripID" json:"trip,omitempty"`
	CreatedBy User `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
}
