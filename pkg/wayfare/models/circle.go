package models

import (
	"time"

	"gorm.io/gorm"
)

// Circle represents a friend circle that plans trips together.
// Collaborative trips treat circle membership as the default traveler population.
type Circle struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	OwnerID     uint           `gorm:"not null" json:"owner_id"`

	// Relationships
	Owner   User               `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Members []CircleMembership `gorm:"foreignKey:CircleID" json:"members,omitempty"`
	Trips   []Trip             `gorm:"foreignKey:CircleID" json:"trips,omitempty"`
}
