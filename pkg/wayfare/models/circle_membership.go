package models

import (
	"time"

	"gorm.io/gorm"
)

// CircleRole represents a user's role within a specific circle
type CircleRole string

const (
	CircleRoleOwner  CircleRole = "owner"
	CircleRoleMember CircleRole = "member"
)

// CircleMembership represents the many-to-many relationship between users and circles
type CircleMembership struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	UserID    uint           `gorm:"not null;uniqueIndex:idx_user_circle" json:"user_id"`
	CircleID  uint           `gorm:"not null;uniqueIndex:idx_user_circle" json:"circle_id"`
	Role      CircleRole     `gorm:"type:varchar(20);default:'member'" json:"role"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Circle Circle `gorm:"foreignKey:CircleID" json:"circle,omitempty"`
}
