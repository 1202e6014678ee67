package trips

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wayfare/wayfare/pkg/wayfare/apperr"
	"github.com/wayfare/wayfare/pkg/wayfare/auth"
	"github.com/wayfare/wayfare/pkg/wayfare/dates"
	"github.com/wayfare/wayfare/pkg/wayfare/models"
	"github.com/wayfare/wayfare/pkg/wayfare/participants"
	"github.com/wayfare/wayfare/pkg/wayfare/stage"
	"github.com/wayfare/wayfare/pkg/wayfare/windows"
	"gorm.io/gorm"
)

// LockRequest carries the mode-specific lock inputs: the winning option key
// for vote-based trips, the chosen start date for heatmap trips. The
// date-windows mode needs no payload; it locks the proposed window.
type LockRequest struct {
	OptionKey string `json:"option_key"`
	StartDate string `json:"start_date"`
}

// lockSource resolves the dates to lock for one scheduling mode. Exactly one
// source is selected per trip, dispatched on SchedulingMode rather than
// inferred from the payload shape.
type lockSource interface {
	resolve(db *gorm.DB, trip *models.Trip, req *LockRequest, activeIDs []uint) (start, end string, err error)
}

func lockSourceFor(mode models.SchedulingMode) lockSource {
	switch mode {
	case models.SchedulingModeDateWindows:
		return windowLock{}
	case models.SchedulingModeHeatmap:
		return heatmapLock{}
	default:
		// legacy trips and the explicit funnel mode both lock from votes
		return voteLock{}
	}
}

// voteLock locks the winning vote option, or an explicitly supplied key
type voteLock struct{}

func (voteLock) resolve(db *gorm.DB, trip *models.Trip, req *LockRequest, activeIDs []uint) (string, string, error) {
	if trip.Status != models.TripStatusVoting {
		return "", "", apperr.StageGuard("Cannot lock dates: requires stage voting, trip is " + string(trip.Status))
	}

	key := req.OptionKey
	if key == "" {
		winner, err := tallyWinner(db, trip, activeIDs)
		if err != nil {
			return "", "", err
		}
		key = winner
	}
	return parseOptionKey(key)
}

// tallyWinner counts active travelers' votes and returns the leading option
// key; ties break to the lexicographically smallest key for determinism.
func tallyWinner(db *gorm.DB, trip *models.Trip, activeIDs []uint) (string, error) {
	var votes []models.Vote
	if err := db.Where("trip_id = ?", trip.ID).Find(&votes).Error; err != nil {
		return "", err
	}

	active := make(map[uint]bool, len(activeIDs))
	for _, id := range activeIDs {
		active[id] = true
	}

	counts := make(map[string]int)
	for _, v := range votes {
		if active[v.UserID] {
			counts[v.OptionKey]++
		}
	}
	if len(counts) == 0 {
		return "", apperr.StageGuard("Cannot lock dates: no votes have been cast")
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	winner := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[winner] {
			winner = k
		}
	}
	return winner, nil
}

// heatmapLock locks the leader's chosen top pick plus the preferred duration
type heatmapLock struct{}

func (heatmapLock) resolve(db *gorm.DB, trip *models.Trip, req *LockRequest, activeIDs []uint) (string, string, error) {
	if !dates.Valid(req.StartDate) {
		return "", "", apperr.Validation("Heatmap lock requires a start_date")
	}
	if trip.TripLengthDays <= 0 {
		return "", "", apperr.Validation("Trip has no preferred duration to lock with")
	}
	return req.StartDate, dates.AddDays(req.StartDate, trip.TripLengthDays-1), nil
}

// windowLock locks the dates of the proposed window
type windowLock struct{}

func (windowLock) resolve(db *gorm.DB, trip *models.Trip, req *LockRequest, activeIDs []uint) (string, string, error) {
	if err := stage.CheckPhase(trip, stage.PhaseProposed, stage.ActionLock); err != nil {
		return "", "", err
	}
	return windows.ResolveProposedDates(db, trip)
}

// Lock locks the trip's dates via the mode-specific source (leader only)
// @Summary Lock trip dates
// @Description One-way transition: copies the winning dates into the trip and moves it to locked
// @Tags trips
// @Accept json
// @Produce json
// @Param id path int true "Trip ID"
// @Param request body LockRequest false "Mode-specific inputs"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Leader only"
// @Failure 409 {object} map[string]string "Stage guard"
// @Security BearerAuth
// @Router /trips/{id}/lock [post]
func (h *Handler) Lock(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	tripID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	var req LockRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trip, err := participants.LoadTrip(h.db, uint(tripID))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if trip.CreatedByID != userID {
		apperr.Respond(c, apperr.Permission("Only the trip leader may lock dates"))
		return
	}
	if trip.DatesLocked() {
		apperr.Respond(c, apperr.StageGuard("Dates are already locked"))
		return
	}
	if err := stage.Check(trip, stage.ActionLock); err != nil {
		apperr.Respond(c, err)
		return
	}

	states, err := participants.ResolveForTrip(h.db, trip)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve participants"})
		return
	}

	start, end, err := lockSourceFor(trip.SchedulingMode).resolve(h.db, trip, &req, participants.ActiveUserIDs(states))
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	if err := h.db.Model(trip).Updates(map[string]interface{}{
		"locked_start_date": start,
		"locked_end_date":   end,
		"status":            models.TripStatusLocked,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to lock dates"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            models.TripStatusLocked,
		"locked_start_date": start,
		"locked_end_date":   end,
	})
}
