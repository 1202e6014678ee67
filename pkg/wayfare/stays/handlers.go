// Package stays manages accommodation bookmarks for locked trips. It is
// CRUD plumbing around the scheduling core: it only consumes the trip's
// lock status and active-traveler set.
package stays

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wayfare/wayfare/pkg/wayfare/apperr"
	"github.com/wayfare/wayfare/pkg/wayfare/auth"
	"github.com/wayfare/wayfare/pkg/wayfare/models"
	"github.com/wayfare/wayfare/pkg/wayfare/participants"
	"gorm.io/gorm"
)

// Handler handles stay bookmark requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new stays handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateStayRequest represents the request to bookmark a stay
type CreateStayRequest struct {
	URL           string  `json:"url" binding:"required,url"`
	Title         string  `json:"title"`
	Notes         string  `json:"notes"`
	PricePerNight float64 `json:"price_per_night"`
}

// StayResponse represents a stay in API responses
type StayResponse struct {
	ID            uint    `json:"id"`
	TripID        uint    `json:"trip_id"`
	CreatedByID   uint    `json:"created_by_id"`
	URL           string  `json:"url"`
	Title         string  `json:"title"`
	Notes         string  `json:"notes"`
	PricePerNight float64 `json:"price_per_night"`
}

func stayToResponse(s models.Stay) StayResponse {
	return StayResponse{
		ID:            s.ID,
		TripID:        s.TripID,
		CreatedByID:   s.CreatedByID,
		URL:           s.URL,
		Title:         s.Title,
		Notes:         s.Notes,
		PricePerNight: s.PricePerNight,
	}
}

// Create bookmarks a stay on a locked trip
// @Summary Bookmark a stay
// @Description Accommodation bookmarking begins once the trip's dates are locked
// @Tags stays
// @Accept json
// @Produce json
// @Param id path int true "Trip ID"
// @Param request body CreateStayRequest true "Stay details"
// @Success 201 {object} StayResponse
// @Failure 409 {object} map[string]string "Dates not locked"
// @Security BearerAuth
// @Router /trips/{id}/stays [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	tripID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	var req CreateStayRequest
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
	if trip.IsTerminal() {
		apperr.Respond(c, apperr.StageGuard("Cannot bookmark stays: trip is "+string(trip.Status)))
		return
	}
	if !trip.DatesLocked() {
		apperr.Respond(c, apperr.StageGuard("Cannot bookmark stays until dates are locked"))
		return
	}

	stay := models.Stay{
		TripID:        trip.ID,
		CreatedByID:   userID,
		URL:           req.URL,
		Title:         req.Title,
		Notes:         req.Notes,
		PricePerNight: req.PricePerNight,
	}
	if err := h.db.Create(&stay).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to bookmark stay"})
		return
	}

	c.JSON(http.StatusCreated, stayToResponse(stay))
}

// List returns the trip's bookmarked stays
// @Summary List stays
// @Tags stays
// @Produce json
// @Param id path int true "Trip ID"
// @Success 200 {array} StayResponse
// @Security BearerAuth
// @Router /trips/{id}/stays [get]
func (h *Handler) List(c *gin.Context) {
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
		c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
		return
	}

	var stays []models.Stay
	if err := h.db.Where("trip_id = ?", trip.ID).Order("id").Find(&stays).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stays"})
		return
	}

	responses := make([]StayResponse, len(stays))
	for i, s := range stays {
		responses[i] = stayToResponse(s)
	}
	c.JSON(http.StatusOK, responses)
}

// Delete removes a stay bookmark (author or leader)
// @Summary Delete a stay
// @Tags stays
// @Produce json
// @Param id path int true "Trip ID"
// @Param sid path int true "Stay ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /trips/{id}/stays/{sid} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	tripID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}
	stayID, err := strconv.ParseUint(c.Param("sid"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid stay ID"})
		return
	}

	trip, err := participants.LoadTrip(h.db, uint(tripID))
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	var stay models.Stay
	if err := h.db.Where("id = ? AND trip_id = ?", stayID, trip.ID).First(&stay).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Stay not found"})
		return
	}
	if stay.CreatedByID != userID && trip.CreatedByID != userID {
		apperr.Respond(c, apperr.Permission("Only the author or trip leader may delete a stay"))
		return
	}

	if err := h.db.Delete(&stay).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete stay"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stay deleted"})
}

// RegisterRoutes registers stay routes on the trips group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/stays", h.List)
	rg.POST("/:id/stays", h.Create)
	rg.DELETE("/:id/stays/:sid", h.Delete)
}
