package circles

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wayfare/wayfare/pkg/wayfare/auth"
	"github.com/wayfare/wayfare/pkg/wayfare/models"
)

// MemberResponse represents a circle member in API responses
type MemberResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// AddMemberRequest represents a request to add a member
type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ListMembers returns all members of a circle
func (h *Handler) ListMembers(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	circleID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid circle ID"})
		return
	}

	// Check membership
	if err := h.db.Where("user_id = ? AND circle_id = ?", userID, circleID).First(&models.CircleMembership{}).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Circle not found"})
		return
	}

	var memberships []models.CircleMembership
	if err := h.db.Preload("User").Where("circle_id = ?", circleID).Find(&memberships).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch members"})
		return
	}

	members := make([]MemberResponse, len(memberships))
	for i, m := range memberships {
		members[i] = MemberResponse{
			ID:    m.User.ID,
			Email: m.User.Email,
			Name:  m.User.Name,
			Role:  string(m.Role),
		}
	}

	c.JSON(http.StatusOK, members)
}

// AddMember adds a user to a circle (owner only)
func (h *Handler) AddMember(c *gin.Context) {
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

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Find user by email
	var targetUser models.User
	if err := h.db.Where("email = ?", req.Email).First(&targetUser).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	// Check if already a member
	var existingMembership models.CircleMembership
	if err := h.db.Where("user_id = ? AND circle_id = ?", targetUser.ID, circleID).First(&existingMembership).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User is already a member"})
		return
	}

	// Create membership
	membership := models.CircleMembership{
		UserID:   targetUser.ID,
		CircleID: uint(circleID),
		Role:     models.CircleRoleMember,
	}

	if err := h.db.Create(&membership).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add member"})
		return
	}

	c.JSON(http.StatusCreated, MemberResponse{
		ID:    targetUser.ID,
		Email: targetUser.Email,
		Name:  targetUser.Name,
		Role:  string(models.CircleRoleMember),
	})
}

// RemoveMember removes a user from a circle (owner only)
func (h *Handler) RemoveMember(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	circleID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid circle ID"})
		return
	}
	memberID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	// Check owner membership
	if err := h.db.Where("user_id = ? AND circle_id = ? AND role = ?", userID, circleID, models.CircleRoleOwner).First(&models.CircleMembership{}).Error; err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Owner access required"})
		return
	}

	// The owner cannot remove themselves; ownership has no transfer here
	if userID == uint(memberID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot remove the circle owner"})
		return
	}

	// Delete membership
	result := h.db.Where("user_id = ? AND circle_id = ?", memberID, circleID).Delete(&models.CircleMembership{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove member"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// RegisterMemberRoutes registers member management routes
func (h *Handler) RegisterMemberRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/members", h.ListMembers)
	rg.POST("/:id/members", h.AddMember)
	rg.DELETE("/:id/members/:userId", h.RemoveMember)
}
