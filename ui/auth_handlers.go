package ui

import (
	"log"
	"net/http"

	"datapulse/internal/auth"
	"datapulse/internal/errors"
	"datapulse/models"

	"github.com/gin-gonic/gin"
)

// AuthHandler serves registration, login and identity lookups.
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// HandleRegister creates a new user account.
func (h *AuthHandler) HandleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.UserCreate
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid registration payload"})
			return
		}

		resp, err := h.authService.Register(c.Request.Context(), req)
		if err != nil {
			if errors.GetCode(err) == errors.CodeValidationError {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			log.Printf("[API] registration failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

// HandleLogin authenticates a user.
func (h *AuthHandler) HandleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.UserLogin
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid login payload"})
			return
		}

		resp, err := h.authService.Login(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

// HandleMe returns the authenticated user.
func (h *AuthHandler) HandleMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.authService.CurrentUser(c.Request.Context(), currentUserID(c))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}
