// Package participants derives the authoritative set of active travelers for
// a trip and manages the participant lifecycle (leave, removal, leadership
// transfer).
package participants

import (
	"sort"

	"github.com/wayfare/wayfare/pkg/wayfare/apperr"
	"github.com/wayfare/wayfare/pkg/wayfare/models"
	"gorm.io/gorm"
)

// State is the resolved participation state of one user on one trip.
// NoRecord is meaningful: for collaborative trips a circle member with no
// override row is active by default; for hosted trips no row means not a
// participant at all.
type State string

const (
	StateActive   State = "active"
	StateLeft     State = "left"
	StateRemoved  State = "removed"
	StateNoRecord State = "no_record"
)

// Resolve computes the per-user participation state for a trip from circle
// membership and the participant override rows. Pure; called before every
// scheduling mutation so results are never cached across requests.
//
// Collaborative trips start from the circle set: a member is active unless an
// override says left or removed. Hosted trips start empty: a user is a
// participant only if an override row exists, and is active unless that row
// says left or removed.
func Resolve(tripType models.TripType, circleUserIDs []uint, overrides []models.TripParticipant) map[uint]State {
	states := make(map[uint]State)

	overrideByUser := make(map[uint]models.TripParticipant, len(overrides))
	for _, o := range overrides {
		overrideByUser[o.UserID] = o
	}

	if tripType == models.TripTypeCollaborative {
		for _, id := range circleUserIDs {
			states[id] = StateActive
		}
	}

	for userID, o := range overrideByUser {
		switch o.Status {
		case models.ParticipantStatusLeft:
			states[userID] = StateLeft
		case models.ParticipantStatusRemoved:
			states[userID] = StateRemoved
		default:
			// A row with no explicit status counts as active, for both
			// trip types, because the row itself is the opt-in.
			states[userID] = StateActive
		}
	}

	return states
}

// ActiveUserIDs returns the effective active traveler IDs in ascending order.
func ActiveUserIDs(states map[uint]State) []uint {
	var ids []uint
	for id, s := range states {
		if s == StateActive {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsActive reports whether userID is an active traveler.
func IsActive(states map[uint]State, userID uint) bool {
	return states[userID] == StateActive
}

// LoadTrip fetches a trip or returns a not-found domain error. Callers who
// lack visibility get the same error as for an absent trip.
func LoadTrip(db *gorm.DB, tripID uint) (*models.Trip, error) {
	var trip models.Trip
	if err := db.First(&trip, tripID).Error; err != nil {
		return nil, apperr.NotFound("Trip not found")
	}
	return &trip, nil
}

// ResolveForTrip loads circle membership and override rows for the trip and
// resolves the participation state map from source-of-truth records.
func ResolveForTrip(db *gorm.DB, trip *models.Trip) (map[uint]State, error) {
	var circleUserIDs []uint
	if trip.Type == models.TripTypeCollaborative {
		var memberships []models.CircleMembership
		if err := db.Where("circle_id = ?", trip.CircleID).Find(&memberships).Error; err != nil {
			return nil, err
		}
		for _, m := range memberships {
			circleUserIDs = append(circleUserIDs, m.UserID)
		}
	}

	var overrides []models.TripParticipant
	if err := db.Where("trip_id = ?", trip.ID).Find(&overrides).Error; err != nil {
		return nil, err
	}

	return Resolve(trip.Type, circleUserIDs, overrides), nil
}

// RequireActive resolves the trip's participation states and rejects callers
// who are not active travelers. Returns the state map for reuse.
func RequireActive(db *gorm.DB, trip *models.Trip, userID uint) (map[uint]State, error) {
	states, err := ResolveForTrip(db, trip)
	if err != nil {
		return nil, err
	}
	if !IsActive(states, userID) {
		return nil, apperr.Permission("Not an active traveler on this trip")
	}
	return states, nil
}
