package models

import (
	"time"

	"gorm.io/gorm"
)

// TripType distinguishes how a trip sources its travelers
type TripType string

const (
	// TripTypeCollaborative treats circle membership as the default traveler set
	TripTypeCollaborative TripType = "collaborative"
	// TripTypeHosted treats participation as strictly opt-in
	TripTypeHosted TripType = "hosted"
)

// SchedulingMode selects which date-agreement mechanism a trip uses
type SchedulingMode string

const (
	// SchedulingModeLegacy is the original vote-based funnel (stored as empty string)
	SchedulingModeLegacy SchedulingMode = ""
	// SchedulingModeFunnel is the explicit vote-based funnel
	SchedulingModeFunnel SchedulingMode = "funnel"
	// SchedulingModeHeatmap locks from the top consensus pick
	SchedulingModeHeatmap SchedulingMode = "top3_heatmap"
	// SchedulingModeDateWindows is the windows + support funnel
	SchedulingModeDateWindows SchedulingMode = "date_windows"
)

// TripStatus is the fine-grained scheduling stage of a trip
type TripStatus string

const (
	TripStatusProposed   TripStatus = "proposed"
	TripStatusScheduling TripStatus = "scheduling"
	TripStatusVoting     TripStatus = "voting"
	TripStatusLocked     TripStatus = "locked"
	TripStatusCanceled   TripStatus = "canceled"
	TripStatusCompleted  TripStatus = "completed"
)

// TripLifecycle is the coarser lifecycle flag kept alongside Status for
// backward compatibility. CANCELLED/COMPLETED always implies Status mirrors it.
type TripLifecycle string

const (
	TripLifecycleActive    TripLifecycle = "ACTIVE"
	TripLifecycleCancelled TripLifecycle = "CANCELLED"
	TripLifecycleCompleted TripLifecycle = "COMPLETED"
)

// Trip represents a shared trip being scheduled by a group of travelers.
// Dates are ISO YYYY-MM-DD strings; all ranges are inclusive of both endpoints.
type Trip struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	CircleID       uint           `gorm:"index" json:"circle_id"` // zero for hosted trips
	Name           string         `gorm:"not null" json:"name"`
	Destination    string         `json:"destination"`
	Type           TripType       `gorm:"type:varchar(20);not null" json:"type"`
	SchedulingMode SchedulingMode `gorm:"type:varchar(20)" json:"scheduling_mode"`
	Status         TripStatus     `gorm:"type:varchar(20);default:'proposed'" json:"status"`
	Lifecycle      TripLifecycle  `gorm:"type:varchar(20);default:'ACTIVE'" json:"trip_status"`

	// Soft planning window and preferred duration (collaborative only)
	StartBound     string `json:"start_bound"`
	EndBound       string `json:"end_bound"`
	TripLengthDays int    `json:"trip_length_days"`

	// Set exactly once, immutable after locking
	LockedStartDate *string `json:"locked_start_date"`
	LockedEndDate   *string `json:"locked_end_date"`

	// Windows-funnel proposal; nil while collecting
	ProposedWindowID *uint `json:"proposed_window_id"`

	// Current leader, mutable only via the leadership transfer handshake
	CreatedByID uint `gorm:"not null" json:"created_by_id"`

	// Relationships
	Circle       Circle            `gorm:"foreignKey:CircleID" json:"circle,omitempty"`
	CreatedBy    User              `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	Participants []TripParticipant `gorm:"foreignKey:TripID" json:"participants,omitempty"`
	Windows      []DateWindow      `gorm:"foreignKey:TripID" json:"windows,omitempty"`
}

// DatesLocked reports whether the trip's dates have been locked.
// Derived from the locked fields rather than stored redundantly.
func (t *Trip) DatesLocked() bool {
	return t.LockedStartDate != nil && t.LockedEndDate != nil
}

// IsTerminal reports whether the trip has entered a terminal lifecycle state
// in which all scheduling mutation is blocked.
func (t *Trip) IsTerminal() bool {
	return t.Status == TripStatusCanceled || t.Status == TripStatusCompleted
}
