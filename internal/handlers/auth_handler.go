package handlers

import (
	"net/http"

	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"github.com/ArowuTest/recyclehub-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication and profile HTTP requests
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	h.authService.Logout(user.Email)
	c.Status(http.StatusNoContent)
}

// Me handles GET /users/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	fresh, err := h.authService.CurrentUser(c.Request.Context(), user.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fresh)
}

// UpdateProfile handles PATCH /users/me
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	var patch models.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}

	updated, err := h.authService.UpdateProfile(c.Request.Context(), user, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

// ChangePassword handles PUT /users/me/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), user, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
