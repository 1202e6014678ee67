package circles

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wayfare/wayfare/pkg/wayfare/auth"
	"github.com/wayfare/wayfare/pkg/wayfare/models"
	"gorm.io/gorm"
)

// Handler handles circle-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new circles handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateCircleRequest represents the request to create a circle
type CreateCircleRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// UpdateCircleRequest represents the request to update a circle
type UpdateCircleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CircleResponse represents a circle in API responses
type CircleResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerID     uint   `json:"owner_id"`
	Role        string `json:"role,omitempty"` // User's role in this circle
	MemberCount int    `json:"member_count,omitempty"`
}

// List returns all circles the current user is a member of
// @Summary List circles
// @Description Get all circles the current user is a member of
// @Tags circles
// @Produce json
// @Success 200 {array} CircleResponse
// @Security BearerAuth
// @Router /circles [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var memberships []models.CircleMembership
	if err := h.db.Preload("Circle").Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch circles"})
		return
	}

	circles := make([]CircleResponse, len(memberships))
	for i, m := range memberships {
		var memberCount int64
		h.db.Model(&models.CircleMembership{}).Where("circle_id = ?", m.CircleID).Count(&memberCount)

		circles[i] = CircleResponse{
			ID:          m.Circle.ID,
			Name:        m.Circle.Name,
			Description: m.Circle.Description,
			OwnerID:     m.Circle.OwnerID,
			Role:        string(m.Role),
			MemberCount: int(memberCount),
		}
	}

	c.JSON(http.StatusOK, circles)
}

// Create creates a new circle and adds the creator as owner
// @Summary Create a circle
// @Description Create a new circle with the current user as owner
// @Tags circles
// @Accept json
// @Produce json
// @Param request body CreateCircleRequest true "Circle details"
// @Success 201 {object} CircleResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /circles [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateCircleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Create circle in a transaction
	var circle models.Circle
	err := h.db.Transaction(func(tx *gorm.DB) error {
		circle = models.Circle{
			Name:        req.Name,
			Description: req.Description,
			OwnerID:     userID,
		}
		if err := tx.Create(&circle).Error; err != nil {
			return err
		}

		// Add creator as owner
		membership := models.CircleMembership{
			UserID:   userID,
			CircleID: circle.ID,
			Role:     models.CircleRoleOwner,
		}
		return tx.Create(&membership).Error
	})

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create circle"})
		return
	}

	c.JSON(http.StatusCreated, CircleResponse{
		ID:          circle.ID,
		Name:        circle.Name,
		Description: circle.Description,
		OwnerID:     circle.OwnerID,
		Role:        string(models.CircleRoleOwner),
		MemberCount: 1,
	})
}

// Get returns a specific circle
// @Summary Get a circle
// @Description Get details of a specific circle
// @Tags circles
// @Produce json
// @Param id path int true "Circle ID"
// @Success 200 {object} CircleResponse
// @Failure 404 {object} map[string]string "Circle not found"
// @Security BearerAuth
// @Router /circles/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	circleID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid circle ID"})
		return
	}

	// Check membership; non-members cannot tell a private circle from a missing one
	var membership models.CircleMembership
	if err := h.db.Where("user_id = ? AND circle_id = ?", userID, circleID).First(&membership).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Circle not found"})
		return
	}

	var circle models.Circle
	if err := h.db.First(&circle, circleID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Circle not found"})
		return
	}

	var memberCount int64
	h.db.Model(&models.CircleMembership{}).Where("circle_id = ?", circleID).Count(&memberCount)

	c.JSON(http.StatusOK, CircleResponse{
		ID:          circle.ID,
		Name:        circle.Name,
		Description: circle.Description,
		OwnerID:     circle.OwnerID,
		Role:        string(membership.Role),
		MemberCount: int(memberCount),
	})
}

// Update updates a circle (owner only)
// @Summary Update a circle
// @Description Update a circle (requires owner role)
// @Tags circles
// @Accept json
// @Produce json
// @Param id path int true "Circle ID"
// @Param request body UpdateCircleRequest true "Updated circle details"
// @Success 200 {object} CircleResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Owner access required"
// @Security BearerAuth
// @Router /circles/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	circleID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid circle ID"})
		return
	}

	// Check owner membership
	var membership models.CircleMembership
	if err := h.db.Where("user_id = ? AND circle_id = ? AND role = ?", userID, circleID, models.CircleRoleOwner).First(&membership).Error; err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Owner access required"})
		return
	}

	var req UpdateCircleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var circle models.Circle
	if err := h.db.First(&circle, circleID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Circle not found"})
		return
	}

	// Update fields if provided
	if req.Name != "" {
		circle.Name = req.Name
	}
	if req.Description != "" {
		circle.Description = req.Description
	}

	if err := h.db.Save(&circle).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update circle"})
		return
	}

	var memberCount int64
	h.db.Model(&models.CircleMembership{}).Where("circle_id = ?", circleID).Count(&memberCount)

	c.JSON(http.StatusOK, CircleResponse{
		ID:          circle.ID,
		Name:        circle.Name,
		Description: circle.Description,
		OwnerID:     circle.OwnerID,
		Role:        string(membership.Role),
		MemberCount: int(memberCount),
	})
}

// Delete deletes a circle (owner only)
// @Summary Delete a circle
// @Description Delete a circle (requires owner role)
// @Tags circles
// @Produce json
// @Param id path int true "Circle ID"
// @Success 200 {object} map[string]string "Circle deleted"
// @Failure 403 {object} map[string]string "Owner access required"
// @Security BearerAuth
// @Router /circles/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	circleID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid circle ID"})
		return
	}

	// Check owner membership
	if err := h.db.Where("user_id = ? AND circle_id = ? AND role = ?", userID, circleID, models.CircleRoleOwner).First(&models.CircleMembership{}).Error; err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Owner access required"})
		return
	}

	// Delete circle (cascades to memberships via soft delete)
	if err := h.db.Delete(&models.Circle{}, circleID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete circle"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Circle deleted"})
}

// RegisterRoutes registers circle routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}
