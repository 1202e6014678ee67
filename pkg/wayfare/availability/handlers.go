package availability

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wayfare/wayfare/pkg/wayfare/apperr"
	"github.com/wayfare/wayfare/pkg/wayfare/auth"
	"github.com/wayfare/wayfare/pkg/wayfare/dates"
	"github.com/wayfare/wayfare/pkg/wayfare/models"
	"github.com/wayfare/wayfare/pkg/wayfare/participants"
	"github.com/wayfare/wayfare/pkg/wayfare/stage"
	"gorm.io/gorm"
)

// Handler handles availability submissions and reads
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new availability handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// BroadInput is the broad default signal for the whole planning window
type BroadInput struct {
	Status string `json:"status" binding:"required,oneof=available maybe unavailable"`
}

// WeeklyInput is one weekly block
type WeeklyInput struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Status    string `json:"status" binding:"required,oneof=available maybe unavailable"`
}

// DayInput is one per-day signal
type DayInput struct {
	Day    string `json:"day" binding:"required"`
	Status string `json:"status" binding:"required,oneof=available maybe unavailable"`
}

// SubmitRequest carries all three submission shapes. The caller's previous
// rows for this trip are replaced in full on every submission.
type SubmitRequest struct {
	Broad  *BroadInput   `json:"broad"`
	Weekly []WeeklyInput `json:"weekly"`
	Days   []DayInput    `json:"days"`
}

// Submit stores a traveler's availability, replacing any prior submission
// @Summary Submit availability
// @Description Replace the caller's availability for a trip
// @Tags availability
// @Accept json
// @Produce json
// @Param id path int true "Trip ID"
// @Param request body SubmitRequest true "Availability"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Not an active traveler"
// @Failure 409 {object} map[string]string "Stage guard"
// @Security BearerAuth
// @Router /trips/{id}/availability [post]
func (h *Handler) Submit(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	tripID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trip, err := participants.LoadTrip(h.db, uint(tripID))
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	if _, err := participants.RequireActive(h.db, trip, userID); err != nil {
		apperr.Respond(c, err)
		return
	}

	if err := stage.Check(trip, stage.ActionSubmitAvailability); err != nil {
		apperr.Respond(c, err)
		return
	}
	if trip.DatesLocked() {
		apperr.Respond(c, apperr.StageGuard("Cannot submit availability: dates are locked"))
		return
	}

	rows, err := buildRows(&req, trip, userID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	// Full replace, never a partial update
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("trip_id = ? AND user_id = ?", trip.ID, userID).Delete(&models.Availability{}).Error; err != nil {
			return err
		}
		for i := range rows {
			if err := tx.Create(&rows[i]).Error; err != nil {
				return err
			}
		}
		// First qualifying submission moves a proposed trip into scheduling
		if trip.Status == models.TripStatusProposed && len(rows) > 0 {
			trip.Status = models.TripStatusScheduling
			if err := tx.Model(trip).Update("status", trip.Status).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store availability"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Availability saved",
		"rows":        len(rows),
		"trip_status": trip.Status,
	})
}

// buildRows validates the request and converts it into rows in precedence
// order: broad, then weekly blocks in submitted order, then per-day rows.
func buildRows(req *SubmitRequest, trip *models.Trip, userID uint) ([]models.Availability, error) {
	var rows []models.Availability

	if req.Broad != nil {
		rows = append(rows, models.Availability{
			TripID: trip.ID,
			UserID: userID,
			Kind:   models.AvailabilityKindBroad,
			Status: models.AvailabilityStatus(req.Broad.Status),
		})
	}

	for _, w := range req.Weekly {
		if !dates.Valid(w.StartDate) || !dates.Valid(w.EndDate) {
			return nil, apperr.Validation("Weekly block dates must be YYYY-MM-DD")
		}
		if w.EndDate < w.StartDate {
			return nil, apperr.Validation("Weekly block end date precedes start date")
		}
		rows = append(rows, models.Availability{
			TripID:    trip.ID,
			UserID:    userID,
			Kind:      models.AvailabilityKindWeekly,
			Status:    models.AvailabilityStatus(w.Status),
			StartDate: w.StartDate,
			EndDate:   w.EndDate,
		})
	}

	seen := make(map[string]bool)
	for _, d := range req.Days {
		if !dates.Valid(d.Day) {
			return nil, apperr.Validation("Day must be YYYY-MM-DD")
		}
		if seen[d.Day] {
			return nil, apperr.Validation("Duplicate day: " + d.Day)
		}
		seen[d.Day] = true
		rows = append(rows, models.Availability{
			TripID: trip.ID,
			UserID: userID,
			Kind:   models.AvailabilityKindDay,
			Status: models.AvailabilityStatus(d.Status),
			Day:    d.Day,
		})
	}

	if len(rows) == 0 {
		return nil, apperr.Validation("Submission must include at least one availability signal")
	}
	return rows, nil
}

// Get returns the normalized per-day view across active travelers
// @Summary Get normalized availability
// @Description Normalized per-day availability for all active travelers
// @Tags availability
// @Produce json
// @Param id path int true "Trip ID"
// @Success 200 {array} DayEntry
// @Security BearerAuth
// @Router /trips/{id}/availability [get]
func (h *Handler) Get(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	tripID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	trip, err := participants.LoadTrip(h.db, uint(tripID))
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	states, err := participants.ResolveForTrip(h.db, trip)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve participants"})
		return
	}
	if _, ok := states[userID]; !ok {
		// Non-participants cannot tell a private trip from a missing one
		c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
		return
	}

	var rows []models.Availability
	if err := h.db.Where("trip_id = ?", trip.ID).Order("id").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch availability"})
		return
	}

	entries := NormalizeAll(rows, trip.StartBound, trip.EndBound, participants.ActiveUserIDs(states))
	if entries == nil {
		entries = []DayEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

// RegisterRoutes registers availability routes on the trips group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/availability", h.Submit)
	rg.GET("/:id/availability", h.Get)
}
