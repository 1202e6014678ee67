package trips

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wayfare/wayfare/pkg/wayfare/apperr"
	"github.com/wayfare/wayfare/pkg/wayfare/auth"
	"github.com/wayfare/wayfare/pkg/wayfare/availability"
	"github.com/wayfare/wayfare/pkg/wayfare/consensus"
	"github.com/wayfare/wayfare/pkg/wayfare/dates"
	"github.com/wayfare/wayfare/pkg/wayfare/models"
	"github.com/wayfare/wayfare/pkg/wayfare/participants"
	"github.com/wayfare/wayfare/pkg/wayfare/stage"
	"gorm.io/gorm"
)

// Handler handles trip requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new trips handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateTripRequest represents the request to create a trip.
// Collaborative trips take a circle and a soft planning window; hosted trips
// take mandatory exact dates and lock immediately.
type CreateTripRequest struct {
	Name           string `json:"name" binding:"required"`
	Destination    string `json:"destination"`
	Type           string `json:"type" binding:"required,oneof=collaborative hosted"`
	CircleID       uint   `json:"circle_id"`
	SchedulingMode string `json:"scheduling_mode" binding:"omitempty,oneof=funnel top3_heatmap date_windows"`
	StartBound     string `json:"start_bound"`
	EndBound       string `json:"end_bound"`
	TripLengthDays int    `json:"trip_length_days"`
	StartDate      string `json:"start_date"` // hosted only
	EndDate        string `json:"end_date"`   // hosted only
}

// TripResponse represents a trip in API responses
type TripResponse struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	Destination     string  `json:"destination"`
	Type            string  `json:"type"`
	CircleID        uint    `json:"circle_id,omitempty"`
	SchedulingMode  string  `json:"scheduling_mode"`
	Status          string  `json:"status"`
	TripStatus      string  `json:"trip_status"`
	StartBound      string  `json:"start_bound,omitempty"`
	EndBound        string  `json:"end_bound,omitempty"`
	TripLengthDays  int     `json:"trip_length_days,omitempty"`
	LockedStartDate *string `json:"locked_start_date"`
	LockedEndDate   *string `json:"locked_end_date"`
	CreatedByID     uint    `json:"created_by_id"`
}

func tripToResponse(t *models.Trip) TripResponse {
	return TripResponse{
		ID:              t.ID,
		Name:            t.Name,
		Destination:     t.Destination,
		Type:            string(t.Type),
		CircleID:        t.CircleID,
		SchedulingMode:  string(t.SchedulingMode),
		Status:          string(t.Status),
		TripStatus:      string(t.Lifecycle),
		StartBound:      t.StartBound,
		EndBound:        t.EndBound,
		TripLengthDays:  t.TripLengthDays,
		LockedStartDate: t.LockedStartDate,
		LockedEndDate:   t.LockedEndDate,
		CreatedByID:     t.CreatedByID,
	}
}

// Create creates a trip
// @Summary Create a trip
// @Description Create a collaborative or hosted trip; hosted trips lock their dates immediately
// @Tags trips
// @Accept json
// @Produce json
// @Param request body CreateTripRequest true "Trip details"
// @Success 201 {object} TripResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Not a circle member"
// @Security BearerAuth
// @Router /trips [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trip := models.Trip{
		Name:           req.Name,
		Destination:    req.Destination,
		Type:           models.TripType(req.Type),
		SchedulingMode: models.SchedulingMode(req.SchedulingMode),
		CreatedByID:    userID,
		Lifecycle:      models.TripLifecycleActive,
	}

	switch trip.Type {
	case models.TripTypeCollaborative:
		if req.CircleID == 0 {
			apperr.Respond(c, apperr.Validation("Collaborative trip requires a circle"))
			return
		}
		// Leader must belong to the circle
		if err := h.db.Where("user_id = ? AND circle_id = ?", userID, req.CircleID).First(&models.CircleMembership{}).Error; err != nil {
			apperr.Respond(c, apperr.Permission("Not a member of this circle"))
			return
		}
		if req.StartBound != "" || req.EndBound != "" {
			if !dates.Valid(req.StartBound) || !dates.Valid(req.EndBound) {
				apperr.Respond(c, apperr.Validation("Planning window bounds must be YYYY-MM-DD"))
				return
			}
			if req.EndBound < req.StartBound {
				apperr.Respond(c, apperr.Validation("Planning window end precedes start"))
				return
			}
		}
		if req.TripLengthDays < 0 {
			apperr.Respond(c, apperr.Validation("Trip length must be positive"))
			return
		}
		trip.CircleID = req.CircleID
		trip.StartBound = req.StartBound
		trip.EndBound = req.EndBound
		trip.TripLengthDays = req.TripLengthDays
		trip.Status = models.TripStatusProposed

	case models.TripTypeHosted:
		// Dates are mandatory upfront; hosted trips skip straight to locked
		if !dates.Valid(req.StartDate) || !dates.Valid(req.EndDate) {
			apperr.Respond(c, apperr.Validation("Hosted trip requires start_date and end_date"))
			return
		}
		if req.EndDate < req.StartDate {
			apperr.Respond(c, apperr.Validation("Trip end date precedes start date"))
			return
		}
		start, end := req.StartDate, req.EndDate
		trip.LockedStartDate = &start
		trip.LockedEndDate = &end
		trip.Status = models.TripStatusLocked
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&trip).Error; err != nil {
			return err
		}
		if trip.Type == models.TripTypeHosted {
			// Hosted participation is opt-in; the host is the first participant
			participant := models.TripParticipant{
				TripID: trip.ID,
				UserID: userID,
				Status: models.ParticipantStatusActive,
			}
			return tx.Create(&participant).Error
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create trip"})
		return
	}

	c.JSON(http.StatusCreated, tripToResponse(&trip))
}

// List returns all trips visible to the current user
// @Summary List trips
// @Description Trips the user leads, participates in, or can join via circle membership
// @Tags trips
// @Produce json
// @Success 200 {array} TripResponse
// @Security BearerAuth
// @Router /trips [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	participantTrips := h.db.Model(&models.TripParticipant{}).Select("trip_id").Where("user_id = ?", userID)
	circleIDs := h.db.Model(&models.CircleMembership{}).Select("circle_id").Where("user_id = ?", userID)

	var trips []models.Trip
	if err := h.db.
		Where("created_by_id = ?", userID).
		Or("id IN (?)", participantTrips).
		Or("circle_id IN (?)", circleIDs).
		Order("id").
		Find(&trips).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch trips"})
		return
	}

	responses := make([]TripResponse, len(trips))
	for i := range trips {
		responses[i] = tripToResponse(&trips[i])
	}
	c.JSON(http.StatusOK, responses)
}

// TripDetailResponse is the full trip view: status, participants, consensus,
// funnel phase, and any pending leadership transfer.
type TripDetailResponse struct {
	Trip            TripResponse                      `json:"trip"`
	Phase           stage.Phase                       `json:"phase"`
	Participants    map[uint]participants.State       `json:"participants"`
	ActiveTravelers []uint                            `json:"active_travelers"`
	Consensus       []consensus.Window                `json:"consensus,omitempty"`
	PendingTransfer *models.PendingLeadershipTransfer `json:"pending_transfer,omitempty"`
}

// Get returns trip detail with recomputed consensus and status
// @Summary Get a trip
// @Description Trip detail including consensus windows recomputed from current availability
// @Tags trips
// @Produce json
// @Param id path int true "Trip ID"
// @Success 200 {object} TripDetailResponse
// @Failure 404 {object} map[string]string "Trip not found"
// @Security BearerAuth
// @Router /trips/{id} [get]
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
	if _, ok := states[userID]; !ok && trip.CreatedByID != userID {
		// Invisible trips are indistinguishable from missing ones
		c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
		return
	}

	detail := TripDetailResponse{
		Trip:            tripToResponse(trip),
		Phase:           stage.PhaseOf(trip),
		Participants:    states,
		ActiveTravelers: participants.ActiveUserIDs(states),
	}

	// Consensus over current active travelers only; recomputed on every read
	if trip.StartBound != "" && trip.EndBound != "" && trip.TripLengthDays > 0 {
		var rows []models.Availability
		if err := h.db.Where("trip_id = ?", trip.ID).Order("id").Find(&rows).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch availability"})
			return
		}
		entries := availability.NormalizeAll(rows, trip.StartBound, trip.EndBound, detail.ActiveTravelers)
		detail.Consensus = consensus.TopWindows(entries, trip.StartBound, trip.EndBound, trip.TripLengthDays)
	}

	var pending models.PendingLeadershipTransfer
	if err := h.db.Where("trip_id = ?", trip.ID).First(&pending).Error; err == nil {
		detail.PendingTransfer = &pending
	}

	c.JSON(http.StatusOK, detail)
}

// RegisterRoutes registers trip routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/open-voting", h.OpenVoting)
	rg.POST("/:id/vote", h.Vote)
	rg.POST("/:id/lock", h.Lock)
	rg.POST("/:id/cancel", h.Cancel)
	rg.POST("/:id/complete", h.Complete)
}
