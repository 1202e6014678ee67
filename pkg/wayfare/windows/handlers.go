package windows

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wayfare/wayfare/pkg/wayfare/apperr"
	"github.com/wayfare/wayfare/pkg/wayfare/auth"
	"github.com/wayfare/wayfare/pkg/wayfare/config"
	"github.com/wayfare/wayfare/pkg/wayfare/dates"
	"github.com/wayfare/wayfare/pkg/wayfare/models"
	"github.com/wayfare/wayfare/pkg/wayfare/participants"
	"github.com/wayfare/wayfare/pkg/wayfare/stage"
	"gorm.io/gorm"
)

// Handler handles the date-windows funnel requests
type Handler struct {
	db  *gorm.DB
	cfg config.SchedulingConfig
}

// NewHandler creates a new windows handler
func NewHandler(db *gorm.DB, cfg config.SchedulingConfig) *Handler {
	return &Handler{db: db, cfg: cfg}
}

// CreateWindowRequest carries either exact dates or free text. Setting
// AcknowledgeOverlap lets the caller create a window despite a similar one
// already existing.
type CreateWindowRequest struct {
	StartDate          string `json:"start_date"`
	EndDate            string `json:"end_date"`
	Text               string `json:"text"`
	AcknowledgeOverlap bool   `json:"acknowledge_overlap"`
}

// WindowResponse represents a date window in API responses
type WindowResponse struct {
	ID           uint   `json:"id"`
	TripID       uint   `json:"trip_id"`
	CreatedByID  uint   `json:"created_by_id"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	Precision    string `json:"precision"`
	SourceText   string `json:"source_text,omitempty"`
	SupportCount int    `json:"support_count"`
	Supported    bool   `json:"supported"` // by the caller
	Proposed     bool   `json:"proposed"`
}

// loadFunnelTrip loads the trip and verifies it uses the date-windows mode.
func (h *Handler) loadFunnelTrip(tripID uint) (*models.Trip, error) {
	trip, err := participants.LoadTrip(h.db, tripID)
	if err != nil {
		return nil, err
	}
	if trip.SchedulingMode != models.SchedulingModeDateWindows {
		return nil, apperr.StageGuard("Trip does not use the date-windows scheduling mode")
	}
	return trip, nil
}

// Create creates a candidate date window
// @Summary Create a date window
// @Description Propose a candidate date range while the funnel is collecting
// @Tags windows
// @Accept json
// @Produce json
// @Param id path int true "Trip ID"
// @Param request body CreateWindowRequest true "Window details"
// @Success 201 {object} WindowResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Similar window or stage guard"
// @Security BearerAuth
// @Router /trips/{id}/date-windows [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	tripID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	var req CreateWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trip, err := h.loadFunnelTrip(uint(tripID))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if _, err := participants.RequireActive(h.db, trip, userID); err != nil {
		apperr.Respond(c, err)
		return
	}
	if err := stage.Check(trip, stage.ActionCreateWindow); err != nil {
		apperr.Respond(c, err)
		return
	}
	if err := stage.CheckPhase(trip, stage.PhaseCollecting, stage.ActionCreateWindow); err != nil {
		apperr.Respond(c, err)
		return
	}

	window, err := buildWindow(&req, trip, userID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	// Per-user cap on open windows
	var openCount int64
	if err := h.db.Model(&models.DateWindow{}).Where("trip_id = ? AND created_by_id = ?", trip.ID, userID).Count(&openCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count windows"})
		return
	}
	if int(openCount) >= h.cfg.WindowCapPerUser {
		apperr.Respond(c, apperr.Conflict("Window cap reached for this trip"))
		return
	}

	// Similarity check against existing windows; an unacknowledged collision
	// is rejected with a hint instead of silently merging
	var existing []models.DateWindow
	if err := h.db.Where("trip_id = ?", trip.ID).Order("id").Find(&existing).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch windows"})
		return
	}
	if similar, score := MostSimilar(existing, *window); similar != nil && score >= h.cfg.SimilarityThreshold && !req.AcknowledgeOverlap {
		apperr.Respond(c, apperr.Conflict("A similar window already exists; support it or retry with acknowledge_overlap").WithDetails(map[string]interface{}{
			"similar_window_id": similar.ID,
			"similarity":        score,
		}))
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(window).Error; err != nil {
			return err
		}
		// The creator supports their own window
		support := models.WindowSupport{WindowID: window.ID, UserID: userID}
		if err := tx.Create(&support).Error; err != nil {
			return err
		}
		// First qualifying submission moves a proposed trip into scheduling
		if trip.Status == models.TripStatusProposed {
			trip.Status = models.TripStatusScheduling
			return tx.Model(trip).Update("status", trip.Status).Error
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create window"})
		return
	}

	c.JSON(http.StatusCreated, WindowResponse{
		ID:           window.ID,
		TripID:       window.TripID,
		CreatedByID:  window.CreatedByID,
		StartDate:    window.StartDate,
		EndDate:      window.EndDate,
		Precision:    string(window.Precision),
		SourceText:   window.SourceText,
		SupportCount: 1,
		Supported:    true,
	})
}

// buildWindow validates the request into an unsaved window record. Exact
// dates win over text; parseable text becomes an exact range; unparseable
// text is accepted as unstructured with dates deferred to proposal time.
func buildWindow(req *CreateWindowRequest, trip *models.Trip, userID uint) (*models.DateWindow, error) {
	window := &models.DateWindow{
		TripID:      trip.ID,
		CreatedByID: userID,
		SourceText:  req.Text,
	}

	switch {
	case req.StartDate != "" || req.EndDate != "":
		if !dates.Valid(req.StartDate) || !dates.Valid(req.EndDate) {
			return nil, apperr.Validation("Window dates must be YYYY-MM-DD")
		}
		if req.EndDate < req.StartDate {
			return nil, apperr.Validation("Window end date precedes start date")
		}
		window.StartDate = req.StartDate
		window.EndDate = req.EndDate
		window.Precision = models.WindowPrecisionExact
	case req.Text != "":
		if start, end, ok := ParseText(req.Text); ok {
			window.StartDate = start
			window.EndDate = end
			window.Precision = models.WindowPrecisionExact
		} else {
			window.Precision = models.WindowPrecisionUnstructured
		}
	default:
		return nil, apperr.Validation("Window requires dates or text")
	}
	return window, nil
}

// List returns the trip's windows with support tallies
// @Summary List date windows
// @Tags windows
// @Produce json
// @Param id path int true "Trip ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /trips/{id}/date-windows [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	tripID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	trip, err := h.loadFunnelTrip(uint(tripID))
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

	responses, err := h.windowResponses(trip, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch windows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"phase":   stage.PhaseOf(trip),
		"windows": responses,
	})
}

func (h *Handler) windowResponses(trip *models.Trip, userID uint) ([]WindowResponse, error) {
	var windows []models.DateWindow
	if err := h.db.Preload("Supports").Where("trip_id = ?", trip.ID).Order("id").Find(&windows).Error; err != nil {
		return nil, err
	}

	responses := make([]WindowResponse, len(windows))
	for i, w := range windows {
		supported := false
		for _, s := range w.Supports {
			if s.UserID == userID {
				supported = true
				break
			}
		}
		responses[i] = WindowResponse{
			ID:           w.ID,
			TripID:       w.TripID,
			CreatedByID:  w.CreatedByID,
			StartDate:    w.StartDate,
			EndDate:      w.EndDate,
			Precision:    string(w.Precision),
			SourceText:   w.SourceText,
			SupportCount: len(w.Supports),
			Supported:    supported,
			Proposed:     trip.ProposedWindowID != nil && *trip.ProposedWindowID == w.ID,
		}
	}
	return responses, nil
}

// loadWindow fetches a window belonging to the trip
func (h *Handler) loadWindow(tripID, windowID uint) (*models.DateWindow, error) {
	var window models.DateWindow
	if err := h.db.Where("id = ? AND trip_id = ?", windowID, tripID).First(&window).Error; err != nil {
		return nil, apperr.NotFound("Window not found")
	}
	return &window, nil
}

// Support records the caller's endorsement of a window; idempotent
// @Summary Support a window
// @Tags windows
// @Produce json
// @Param id path int true "Trip ID"
// @Param wid path int true "Window ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /trips/{id}/date-windows/{wid}/support [post]
func (h *Handler) Support(c *gin.Context) {
	h.toggleSupport(c, true)
}

// Unsupport removes the caller's endorsement; idempotent
// @Summary Withdraw support from a window
// @Tags windows
// @Produce json
// @Param id path int true "Trip ID"
// @Param wid path int true "Window ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /trips/{id}/date-windows/{wid}/support [delete]
func (h *Handler) Unsupport(c *gin.Context) {
	h.toggleSupport(c, false)
}

func (h *Handler) toggleSupport(c *gin.Context, add bool) {
	userID, _ := auth.GetUserID(c)
	tripID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}
	windowID, err := strconv.ParseUint(c.Param("wid"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid window ID"})
		return
	}

	trip, err := h.loadFunnelTrip(uint(tripID))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if _, err := participants.RequireActive(h.db, trip, userID); err != nil {
		apperr.Respond(c, err)
		return
	}
	if err := stage.Check(trip, stage.ActionToggleSupport); err != nil {
		apperr.Respond(c, err)
		return
	}
	if err := stage.CheckPhase(trip, stage.PhaseCollecting, stage.ActionToggleSupport); err != nil {
		apperr.Respond(c, err)
		return
	}

	window, err := h.loadWindow(trip.ID, uint(windowID))
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	if add {
		var existing models.WindowSupport
		if err := h.db.Where("window_id = ? AND user_id = ?", window.ID, userID).First(&existing).Error; err != nil {
			support := models.WindowSupport{WindowID: window.ID, UserID: userID}
			if err := h.db.Create(&support).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record support"})
				return
			}
		}
	} else {
		if err := h.db.Where("window_id = ? AND user_id = ?", window.ID, userID).Delete(&models.WindowSupport{}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove support"})
			return
		}
	}

	var count int64
	h.db.Model(&models.WindowSupport{}).Where("window_id = ?", window.ID).Count(&count)

	c.JSON(http.StatusOK, gin.H{
		"window_id":     window.ID,
		"supported":     add,
		"support_count": count,
	})
}

// ProposeRequest elevates a window to a binding proposal. StartDate/EndDate
// concretize an unstructured window at proposal time.
type ProposeRequest struct {
	WindowID       uint   `json:"window_id" binding:"required"`
	LeaderOverride bool   `json:"leader_override"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
}

// Propose elevates a window to the trip's proposed dates (leader only)
// @Summary Propose a window
// @Description Elevate a window to a binding proposal; requires support readiness or an override
// @Tags windows
// @Accept json
// @Produce json
// @Param id path int true "Trip ID"
// @Param request body ProposeRequest true "Proposal"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Leader only"
// @Failure 409 {object} map[string]string "Not ready or stage guard"
// @Security BearerAuth
// @Router /trips/{id}/propose-dates [post]
func (h *Handler) Propose(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	tripID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	var req ProposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trip, err := h.loadFunnelTrip(uint(tripID))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if trip.CreatedByID != userID {
		apperr.Respond(c, apperr.Permission("Only the trip leader may propose dates"))
		return
	}
	states, err := participants.ResolveForTrip(h.db, trip)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve participants"})
		return
	}
	if err := stage.Check(trip, stage.ActionProposeDates); err != nil {
		apperr.Respond(c, err)
		return
	}
	if err := stage.CheckPhase(trip, stage.PhaseCollecting, stage.ActionProposeDates); err != nil {
		apperr.Respond(c, err)
		return
	}

	window, err := h.loadWindow(trip.ID, req.WindowID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	// An unstructured window must be concretized with exact dates first
	if window.Precision == models.WindowPrecisionUnstructured {
		if req.StartDate == "" || req.EndDate == "" {
			apperr.Respond(c, apperr.Validation("Unstructured window requires start_date and end_date to be proposed"))
			return
		}
		if !dates.Valid(req.StartDate) || !dates.Valid(req.EndDate) || req.EndDate < req.StartDate {
			apperr.Respond(c, apperr.Validation("Invalid concretization dates"))
			return
		}
		window.StartDate = req.StartDate
		window.EndDate = req.EndDate
		window.Precision = models.WindowPrecisionExact
	}

	var supports []models.WindowSupport
	if err := h.db.Where("window_id = ?", window.ID).Find(&supports).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch support"})
		return
	}
	supporterIDs := make([]uint, len(supports))
	for i, s := range supports {
		supporterIDs[i] = s.UserID
	}

	readiness := ComputeReadiness(supporterIDs, participants.ActiveUserIDs(states), h.cfg.ProposalReadinessThreshold)
	if !readiness.Ready && !req.LeaderOverride {
		apperr.Respond(c, apperr.StageGuard("Window lacks the support required to be proposed").WithDetails(map[string]interface{}{
			"readiness": readiness,
		}))
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(window).Error; err != nil {
			return err
		}
		trip.ProposedWindowID = &window.ID
		return tx.Model(trip).Update("proposed_window_id", window.ID).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to propose window"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"phase":     stage.PhaseProposed,
		"window_id": window.ID,
		"readiness": readiness,
	})
}

// Withdraw returns the funnel to collecting, clearing the proposal
// @Summary Withdraw the proposal
// @Tags windows
// @Produce json
// @Param id path int true "Trip ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Leader only"
// @Security BearerAuth
// @Router /trips/{id}/withdraw-proposal [post]
func (h *Handler) Withdraw(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	tripID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	trip, err := h.loadFunnelTrip(uint(tripID))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if trip.CreatedByID != userID {
		apperr.Respond(c, apperr.Permission("Only the trip leader may withdraw the proposal"))
		return
	}
	if err := stage.Check(trip, stage.ActionWithdrawProposal); err != nil {
		apperr.Respond(c, err)
		return
	}
	if err := stage.CheckPhase(trip, stage.PhaseProposed, stage.ActionWithdrawProposal); err != nil {
		apperr.Respond(c, err)
		return
	}

	// Windows and support are kept; only the proposal pointer clears
	if err := h.db.Model(trip).Update("proposed_window_id", nil).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to withdraw proposal"})
		return
	}
	trip.ProposedWindowID = nil

	c.JSON(http.StatusOK, gin.H{"phase": stage.PhaseCollecting})
}

// ResolveProposedDates returns the dates of the trip's proposed window. Used
// by the lock dispatcher for the date-windows lock source.
func ResolveProposedDates(db *gorm.DB, trip *models.Trip) (string, string, error) {
	if trip.ProposedWindowID == nil {
		return "", "", apperr.StageGuard("Cannot lock dates: no window has been proposed")
	}
	var window models.DateWindow
	if err := db.First(&window, *trip.ProposedWindowID).Error; err != nil {
		return "", "", apperr.NotFound("Proposed window not found")
	}
	return window.StartDate, window.EndDate, nil
}

// LockProposed copies the proposed window's dates into the trip's immutable
// locked fields (leader only)
// @Summary Lock the proposed dates
// @Tags windows
// @Produce json
// @Param id path int true "Trip ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Leader only"
// @Failure 409 {object} map[string]string "Stage guard"
// @Security BearerAuth
// @Router /trips/{id}/lock-proposed [post]
func (h *Handler) LockProposed(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	tripID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	trip, err := h.loadFunnelTrip(uint(tripID))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if trip.CreatedByID != userID {
		apperr.Respond(c, apperr.Permission("Only the trip leader may lock dates"))
		return
	}
	if err := stage.Check(trip, stage.ActionLock); err != nil {
		apperr.Respond(c, err)
		return
	}
	if err := stage.CheckPhase(trip, stage.PhaseProposed, stage.ActionLock); err != nil {
		apperr.Respond(c, err)
		return
	}

	start, end, err := ResolveProposedDates(h.db, trip)
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

// RegisterRoutes registers the funnel routes on the trips group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/date-windows", h.List)
	rg.POST("/:id/date-windows", h.Create)
	rg.POST("/:id/date-windows/:wid/support", h.Support)
	rg.DELETE("/:id/date-windows/:wid/support", h.Unsupport)
	rg.POST("/:id/propose-dates", h.Propose)
	rg.POST("/:id/withdraw-proposal", h.Withdraw)
	rg.POST("/:id/lock-proposed", h.LockProposed)
}
