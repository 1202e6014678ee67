package trips

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wayfare/wayfare/pkg/wayfare/apperr"
	"github.com/wayfare/wayfare/pkg/wayfare/auth"
	"github.com/wayfare/wayfare/pkg/wayfare/models"
	"github.com/wayfare/wayfare/pkg/wayfare/participants"
	"github.com/wayfare/wayfare/pkg/wayfare/stage"
)

// canCancel reports whether the caller may cancel: the leader, or the owner
// of the trip's circle.
func (h *Handler) canCancel(trip *models.Trip, userID uint) bool {
	if trip.CreatedByID == userID {
		return true
	}
	if trip.Type != models.TripTypeCollaborative {
		return false
	}
	var circle models.Circle
	if err := h.db.First(&circle, trip.CircleID).Error; err != nil {
		return false
	}
	return circle.OwnerID == userID
}

// Cancel moves the trip to the canceled terminal state
// @Summary Cancel a trip
// @Description Terminal: blocks all further scheduling mutation; reads remain allowed
// @Tags trips
// @Produce json
// @Param id path int true "Trip ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Leader or circle owner only"
// @Security BearerAuth
// @Router /trips/{id}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	h.terminate(c, models.TripStatusCanceled, models.TripLifecycleCancelled, stage.ActionCancel)
}

// Complete moves the trip to the completed terminal state
// @Summary Complete a trip
// @Tags trips
// @Produce json
// @Param id path int true "Trip ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Leader or circle owner only"
// @Security BearerAuth
// @Router /trips/{id}/complete [post]
func (h *Handler) Complete(c *gin.Context) {
	h.terminate(c, models.TripStatusCompleted, models.TripLifecycleCompleted, stage.ActionComplete)
}

func (h *Handler) terminate(c *gin.Context, status models.TripStatus, lifecycle models.TripLifecycle, action stage.Action) {
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
	if !h.canCancel(trip, userID) {
		apperr.Respond(c, apperr.Permission("Only the trip leader or circle owner may do this"))
		return
	}
	if err := stage.Check(trip, action); err != nil {
		apperr.Respond(c, err)
		return
	}

	// The coarse lifecycle flag always mirrors the terminal status
	if err := h.db.Model(trip).Updates(map[string]interface{}{
		"status":    status,
		"lifecycle": lifecycle,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update trip"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      status,
		"trip_status": lifecycle,
	})
}
