package participants

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wayfare/wayfare/pkg/wayfare/apperr"
	"github.com/wayfare/wayfare/pkg/wayfare/auth"
	"github.com/wayfare/wayfare/pkg/wayfare/models"
	"github.com/wayfare/wayfare/pkg/wayfare/stage"
	"gorm.io/gorm"
)

// Handler handles participant lifecycle requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new participants handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// upsertStatus creates or updates the override row for (trip, user).
// Override rows are never deleted.
func upsertStatus(tx *gorm.DB, tripID, userID uint, status models.ParticipantStatus) error {
	var existing models.TripParticipant
	if err := tx.Where("trip_id = ? AND user_id = ?", tripID, userID).First(&existing).Error; err == nil {
		existing.Status = status
		return tx.Save(&existing).Error
	}
	return tx.Create(&models.TripParticipant{TripID: tripID, UserID: userID, Status: status}).Error
}

// voidTransferTo deletes a pending transfer aimed at a user who is no longer
// an active traveler.
func voidTransferTo(tx *gorm.DB, tripID, userID uint) error {
	return tx.Where("trip_id = ? AND to_user_id = ?", tripID, userID).Delete(&models.PendingLeadershipTransfer{}).Error
}

// Leave marks the caller as having left the trip
// @Summary Leave a trip
// @Description A leader of a multi-member trip must transfer leadership first
// @Tags participants
// @Produce json
// @Param id path int true "Trip ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Leadership transfer required"
// @Security BearerAuth
// @Router /trips/{id}/leave [post]
func (h *Handler) Leave(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	tripID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	trip, err := LoadTrip(h.db, uint(tripID))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	states, err := RequireActive(h.db, trip, userID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if err := stage.Check(trip, stage.ActionLeave); err != nil {
		apperr.Respond(c, err)
		return
	}

	if trip.CreatedByID == userID {
		if len(ActiveUserIDs(states)) > 1 {
			apperr.Respond(c, apperr.Conflict("Leader must transfer leadership before leaving"))
			return
		}
		apperr.Respond(c, apperr.Conflict("Sole traveler cannot leave; delete the trip instead"))
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := upsertStatus(tx, trip.ID, userID, models.ParticipantStatusLeft); err != nil {
			return err
		}
		// A pending transfer aimed at the leaver is void
		return voidTransferTo(tx, trip.ID, userID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to leave trip"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": models.ParticipantStatusLeft})
}

// Join opts the caller into a trip. Hosted trips are strictly opt-in;
// collaborative circle members use it to rejoin after leaving.
// @Summary Join a trip
// @Tags participants
// @Produce json
// @Param id path int true "Trip ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not eligible"
// @Security BearerAuth
// @Router /trips/{id}/join [post]
func (h *Handler) Join(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	tripID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	trip, err := LoadTrip(h.db, uint(tripID))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if trip.IsTerminal() {
		apperr.Respond(c, apperr.StageGuard("Cannot join: trip is "+string(trip.Status)))
		return
	}

	states, err := ResolveForTrip(h.db, trip)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve participants"})
		return
	}

	switch states[userID] {
	case StateActive:
		apperr.Respond(c, apperr.Conflict("Already an active traveler"))
		return
	case StateRemoved:
		apperr.Respond(c, apperr.Permission("Removed travelers cannot rejoin"))
		return
	}

	// Collaborative rejoin requires circle membership; hosted join is open opt-in
	if trip.Type == models.TripTypeCollaborative {
		if err := h.db.Where("user_id = ? AND circle_id = ?", userID, trip.CircleID).First(&models.CircleMembership{}).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
			return
		}
	}

	if err := upsertStatus(h.db, trip.ID, userID, models.ParticipantStatusActive); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join trip"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": models.ParticipantStatusActive})
}

// Remove marks a traveler as removed (leader only)
// @Summary Remove a traveler
// @Tags participants
// @Produce json
// @Param id path int true "Trip ID"
// @Param userId path int true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Leader only"
// @Security BearerAuth
// @Router /trips/{id}/participants/{userId} [delete]
func (h *Handler) Remove(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	tripID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}
	targetID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	trip, err := LoadTrip(h.db, uint(tripID))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if trip.CreatedByID != userID {
		apperr.Respond(c, apperr.Permission("Only the trip leader may remove travelers"))
		return
	}
	if uint(targetID) == userID {
		apperr.Respond(c, apperr.Validation("Leader cannot remove themselves; leave or transfer instead"))
		return
	}
	if trip.IsTerminal() {
		apperr.Respond(c, apperr.StageGuard("Cannot remove travelers: trip is "+string(trip.Status)))
		return
	}

	states, err := ResolveForTrip(h.db, trip)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve participants"})
		return
	}
	if !IsActive(states, uint(targetID)) {
		apperr.Respond(c, apperr.NotFound("Traveler not found"))
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := upsertStatus(tx, trip.ID, uint(targetID), models.ParticipantStatusRemoved); err != nil {
			return err
		}
		return voidTransferTo(tx, trip.ID, uint(targetID))
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove traveler"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": models.ParticipantStatusRemoved})
}

// RegisterRoutes registers participant lifecycle routes on the trips group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/leave", h.Leave)
	rg.POST("/:id/join", h.Join)
	rg.DELETE("/:id/participants/:userId", h.Remove)
	rg.POST("/:id/transfer-leadership", h.InitiateTransfer)
	rg.POST("/:id/transfer-leadership/accept", h.AcceptTransfer)
	rg.POST("/:id/transfer-leadership/decline", h.DeclineTransfer)
	rg.POST("/:id/transfer-leadership/cancel", h.CancelTransfer)
}
