package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"book-production-tracker/internal/database"
	"book-production-tracker/internal/models"
)

// DeveloperResponse is the safe wire shape of a developer account.
type DeveloperResponse struct {
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

// GetDevelopers handles GET /api/developers
// Returns every developer-role user for the assignee dropdowns.
func GetDevelopers(c *gin.Context) {
	var users []models.User
	err := database.GetDB().
		Where("role = ?", models.RoleDeveloper).
		Order("username asc").
		Find(&users).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch developers"})
		return
	}

	resp := make([]DeveloperResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, DeveloperResponse{Username: u.Username, Role: u.Role})
	}

	c.JSON(http.StatusOK, gin.H{
		"developers": resp,
		"count":      len(resp),
	})
}

// GetAllUsers handles GET /admin/users (admin only)
func GetAllUsers(c *gin.Context) {
	var users []models.User
	if err := database.GetDB().Order("username asc").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	type userResponse struct {
		Username string      `json:"username"`
		Role     models.Role `json:"role"`
	}
	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, userResponse{Username: u.Username, Role: u.Role})
	}

	c.JSON(http.StatusOK, gin.H{
		"users": resp,
		"count": len(resp),
	})
}
