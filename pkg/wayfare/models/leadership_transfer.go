package models

import (
	"time"
)

// PendingLeadershipTransfer is the single outstanding leadership hand-off for
// a trip, if any. Resolved by accept, decline, or cancel; voided when the
// recipient stops being an active traveler. Resolution deletes the row
// outright so the per-trip unique index never blocks a later hand-off.
type PendingLeadershipTransfer struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	TripID     uint      `gorm:"not null;uniqueIndex" json:"trip_id"`
	FromUserID uint      `gorm:"not null" json:"from_user_id"`
	ToUserID   uint      `gorm:"not null" json:"to_user_id"`

	// Relationships
	Trip     Trip `gorm:"foreignKey:TripID" json:"trip,omitempty"`
	FromUser User `gorm:"foreignKey:FromUserID" json:"from_user,omitempty"`
	ToUser   User `gorm:"foreignKey:ToUserID" json:"to_user,omitempty"`
}
