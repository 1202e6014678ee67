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

// TransferRequest names the proposed new leader
type TransferRequest struct {
	ToUserID uint `json:"to_user_id" binding:"required"`
}

// loadTransferTrip is the shared front half of the transfer endpoints
func (h *Handler) loadTransferTrip(c *gin.Context) (*models.Trip, uint, bool) {
	userID, _ := auth.GetUserID(c)
	tripID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return nil, 0, false
	}
	trip, err := LoadTrip(h.db, uint(tripID))
	if err != nil {
		apperr.Respond(c, err)
		return nil, 0, false
	}
	return trip, userID, true
}

// InitiateTransfer starts the two-phase leadership hand-off
// @Summary Initiate leadership transfer
// @Description Current leader proposes a new leader; at most one transfer may be pending
// @Tags participants
// @Accept json
// @Produce json
// @Param id path int true "Trip ID"
// @Param request body TransferRequest true "Recipient"
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Transfer already pending"
// @Security BearerAuth
// @Router /trips/{id}/transfer-leadership [post]
func (h *Handler) InitiateTransfer(c *gin.Context) {
	trip, userID, ok := h.loadTransferTrip(c)
	if !ok {
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if trip.CreatedByID != userID {
		apperr.Respond(c, apperr.Permission("Only the trip leader may transfer leadership"))
		return
	}
	if req.ToUserID == userID {
		apperr.Respond(c, apperr.Validation("Cannot transfer leadership to yourself"))
		return
	}
	if err := stage.Check(trip, stage.ActionTransfer); err != nil {
		apperr.Respond(c, err)
		return
	}

	states, err := ResolveForTrip(h.db, trip)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve participants"})
		return
	}
	if !IsActive(states, req.ToUserID) {
		apperr.Respond(c, apperr.Validation("Recipient is not an active traveler"))
		return
	}
	// A sole traveler has nobody to transfer to
	if len(ActiveUserIDs(states)) < 2 {
		apperr.Respond(c, apperr.Conflict("Solo trip has no one to transfer leadership to"))
		return
	}

	var existing models.PendingLeadershipTransfer
	if err := h.db.Where("trip_id = ?", trip.ID).First(&existing).Error; err == nil {
		apperr.Respond(c, apperr.Conflict("A leadership transfer is already pending"))
		return
	}

	pending := models.PendingLeadershipTransfer{
		TripID:     trip.ID,
		FromUserID: userID,
		ToUserID:   req.ToUserID,
	}
	if err := h.db.Create(&pending).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initiate transfer"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"from_user_id": pending.FromUserID,
		"to_user_id":   pending.ToUserID,
	})
}

// loadPending fetches the trip's pending transfer or errors
func (h *Handler) loadPending(tripID uint) (*models.PendingLeadershipTransfer, error) {
	var pending models.PendingLeadershipTransfer
	if err := h.db.Where("trip_id = ?", tripID).First(&pending).Error; err != nil {
		return nil, apperr.NotFound("No pending leadership transfer")
	}
	return &pending, nil
}

// AcceptTransfer completes the hand-off (recipient only)
// @Summary Accept leadership transfer
// @Description Re-validates the recipient is still active; a stale transfer is voided
// @Tags participants
// @Produce json
// @Param id path int true "Trip ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Transfer voided"
// @Security BearerAuth
// @Router /trips/{id}/transfer-leadership/accept [post]
func (h *Handler) AcceptTransfer(c *gin.Context) {
	trip, userID, ok := h.loadTransferTrip(c)
	if !ok {
		return
	}

	pending, err := h.loadPending(trip.ID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if pending.ToUserID != userID {
		apperr.Respond(c, apperr.Permission("Only the transfer recipient may accept"))
		return
	}

	// Re-validate: a recipient who has since left voids the transfer
	states, err := ResolveForTrip(h.db, trip)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve participants"})
		return
	}
	if !IsActive(states, userID) {
		if err := h.db.Delete(pending).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to void transfer"})
			return
		}
		apperr.Respond(c, apperr.Conflict("Transfer voided: recipient is no longer an active traveler"))
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(trip).Update("created_by_id", userID).Error; err != nil {
			return err
		}
		return tx.Delete(pending).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to accept transfer"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"created_by_id": userID})
}

// DeclineTransfer clears the pending transfer without reassignment (recipient only)
// @Summary Decline leadership transfer
// @Tags participants
// @Produce json
// @Param id path int true "Trip ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /trips/{id}/transfer-leadership/decline [post]
func (h *Handler) DeclineTransfer(c *gin.Context) {
	trip, userID, ok := h.loadTransferTrip(c)
	if !ok {
		return
	}

	pending, err := h.loadPending(trip.ID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if pending.ToUserID != userID {
		apperr.Respond(c, apperr.Permission("Only the transfer recipient may decline"))
		return
	}

	if err := h.db.Delete(pending).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decline transfer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transfer declined"})
}

// CancelTransfer clears the pending transfer (initiator only)
// @Summary Cancel leadership transfer
// @Tags participants
// @Produce json
// @Param id path int true "Trip ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /trips/{id}/transfer-leadership/cancel [post]
func (h *Handler) CancelTransfer(c *gin.Context) {
	trip, userID, ok := h.loadTransferTrip(c)
	if !ok {
		return
	}

	pending, err := h.loadPending(trip.ID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if pending.FromUserID != userID {
		apperr.Respond(c, apperr.Permission("Only the transfer initiator may cancel"))
		return
	}

	if err := h.db.Delete(pending).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel transfer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transfer canceled"})
}
