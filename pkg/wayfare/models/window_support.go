package models

import (
	"time"
)

// WindowSupport is one traveler's endorsement of a date window.
// Auto-created for the window's own author; one per user per window.
// Deleted outright on withdrawal so the unique index never blocks re-support.
type WindowSupport struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	WindowID  uint      `gorm:"not null;uniqueIndex:idx_window_user" json:"window_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_window_user" json:"user_id"`

	// Relationships
	Window DateWindow `gorm:"foreignKey:WindowID" json:"window,omitempty"`
	User   User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
