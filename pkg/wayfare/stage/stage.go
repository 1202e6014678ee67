// Package stage implements the trip stage state machine and the windows
// funnel phase derivation. Every mutating action declares the stages it is
// legal in; anything attempted outside them fails closed with a stage-guard
// error naming the required stage.
package stage

import (
	"fmt"

	"github.com/wayfare/wayfare/pkg/wayfare/apperr"
	"github.com/wayfare/wayfare/pkg/wayfare/models"
)

// Action is a mutating operation gated by the state machine
type Action string

const (
	ActionSubmitAvailability Action = "submit availability"
	ActionOpenVoting         Action = "open voting"
	ActionVote               Action = "vote"
	ActionCreateWindow       Action = "create date window"
	ActionToggleSupport      Action = "toggle window support"
	ActionProposeDates       Action = "propose dates"
	ActionWithdrawProposal   Action = "withdraw proposal"
	ActionLock               Action = "lock dates"
	ActionLeave              Action = "leave trip"
	ActionTransfer           Action = "transfer leadership"
	ActionCancel             Action = "cancel trip"
	ActionComplete           Action = "complete trip"
)

// Phase is the derived state of the windows funnel
type Phase string

const (
	PhaseCollecting Phase = "COLLECTING"
	PhaseProposed   Phase = "PROPOSED"
	PhaseLocked     Phase = "LOCKED"
)

// PhaseOf derives the windows-funnel phase from the proposal pointer and the
// lock status. The phase is never stored; this derivation is the single
// source used everywhere phase matters.
func PhaseOf(t *models.Trip) Phase {
	if t.DatesLocked() {
		return PhaseLocked
	}
	if t.ProposedWindowID != nil {
		return PhaseProposed
	}
	return PhaseCollecting
}

// legalStatuses maps each trip-status-gated action to the statuses it is
// legal in. Actions absent here are gated by funnel phase instead.
var legalStatuses = map[Action][]models.TripStatus{
	ActionSubmitAvailability: {models.TripStatusProposed, models.TripStatusScheduling, models.TripStatusVoting},
	ActionOpenVoting:         {models.TripStatusScheduling},
	ActionVote:               {models.TripStatusVoting},
	ActionCreateWindow:       {models.TripStatusProposed, models.TripStatusScheduling},
	ActionToggleSupport:      {models.TripStatusProposed, models.TripStatusScheduling},
	ActionProposeDates:       {models.TripStatusProposed, models.TripStatusScheduling},
	ActionWithdrawProposal:   {models.TripStatusProposed, models.TripStatusScheduling},
	ActionLock:               {models.TripStatusProposed, models.TripStatusScheduling, models.TripStatusVoting},
	ActionLeave:              {models.TripStatusProposed, models.TripStatusScheduling, models.TripStatusVoting, models.TripStatusLocked},
	ActionTransfer:           {models.TripStatusProposed, models.TripStatusScheduling, models.TripStatusVoting, models.TripStatusLocked},
	ActionCancel:             {models.TripStatusProposed, models.TripStatusScheduling, models.TripStatusVoting, models.TripStatusLocked},
	ActionComplete:           {models.TripStatusProposed, models.TripStatusScheduling, models.TripStatusVoting, models.TripStatusLocked},
}

// Check verifies that the action is legal for the trip's current status.
// Terminal trips reject every mutation; locked trips reject every further
// scheduling mutation.
func Check(t *models.Trip, a Action) error {
	if t.IsTerminal() {
		return apperr.StageGuard(fmt.Sprintf("Cannot %s: trip is %s", a, t.Status))
	}

	allowed, ok := legalStatuses[a]
	if !ok {
		return apperr.StageGuard(fmt.Sprintf("Cannot %s in stage %s", a, t.Status))
	}
	for _, s := range allowed {
		if t.Status == s {
			return nil
		}
	}
	return apperr.StageGuard(fmt.Sprintf("Cannot %s: requires stage %s, trip is %s", a, describeStatuses(allowed), t.Status))
}

// CheckPhase verifies that the windows funnel is in the required phase.
func CheckPhase(t *models.Trip, required Phase, a Action) error {
	current := PhaseOf(t)
	if current != required {
		return apperr.StageGuard(fmt.Sprintf("Cannot %s: requires funnel phase %s, currently %s", a, required, current))
	}
	return nil
}

func describeStatuses(statuses []models.TripStatus) string {
	out := ""
	for i, s := range statuses {
		if i > 0 {
			out += "|"
		}
		out += string(s)
	}
	return out
}
