package trips

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wayfare/wayfare/pkg/wayfare/apperr"
	"github.com/wayfare/wayfare/pkg/wayfare/auth"
	"github.com/wayfare/wayfare/pkg/wayfare/dates"
	"github.com/wayfare/wayfare/pkg/wayfare/models"
	"github.com/wayfare/wayfare/pkg/wayfare/participants"
	"github.com/wayfare/wayfare/pkg/wayfare/stage"
)

// OpenVoting moves a legacy-funnel trip from scheduling to voting (leader only)
// @Summary Open voting
// @Tags trips
// @Produce json
// @Param id path int true "Trip ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Leader only"
// @Failure 409 {object} map[string]string "Stage guard"
// @Security BearerAuth
// @Router /trips/{id}/open-voting [post]
func (h *Handler) OpenVoting(c *gin.Context) {
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
	if trip.CreatedByID != userID {
		apperr.Respond(c, apperr.Permission("Only the trip leader may open voting"))
		return
	}
	if err := stage.Check(trip, stage.ActionOpenVoting); err != nil {
		apperr.Respond(c, err)
		return
	}

	if err := h.db.Model(trip).Update("status", models.TripStatusVoting).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open voting"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": models.TripStatusVoting})
}

// VoteRequest carries the caller's option key, "YYYY-MM-DD_YYYY-MM-DD"
type VoteRequest struct {
	OptionKey string `json:"option_key" binding:"required"`
}

// parseOptionKey validates and splits a vote option key
func parseOptionKey(key string) (string, string, error) {
	parts := strings.SplitN(key, "_", 2)
	if len(parts) != 2 || !dates.Valid(parts[0]) || !dates.Valid(parts[1]) {
		return "", "", apperr.Validation("Option key must be YYYY-MM-DD_YYYY-MM-DD")
	}
	if parts[1] < parts[0] {
		return "", "", apperr.Validation("Option key end date precedes start date")
	}
	return parts[0], parts[1], nil
}

// Vote upserts the caller's vote; one active vote per traveler
// @Summary Vote for a date option
// @Tags trips
// @Accept json
// @Produce json
// @Param id path int true "Trip ID"
// @Param request body VoteRequest true "Vote"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not an active traveler"
// @Failure 409 {object} map[string]string "Stage guard"
// @Security BearerAuth
// @Router /trips/{id}/vote [post]
func (h *Handler) Vote(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	tripID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, _, err := parseOptionKey(req.OptionKey); err != nil {
		apperr.Respond(c, err)
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
	if err := stage.Check(trip, stage.ActionVote); err != nil {
		apperr.Respond(c, err)
		return
	}

	var vote models.Vote
	err = h.db.Where("trip_id = ? AND user_id = ?", trip.ID, userID).First(&vote).Error
	if err == nil {
		vote.OptionKey = req.OptionKey
		err = h.db.Save(&vote).Error
	} else {
		vote = models.Vote{TripID: trip.ID, UserID: userID, OptionKey: req.OptionKey}
		err = h.db.Create(&vote).Error
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record vote"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"option_key": vote.OptionKey})
}
