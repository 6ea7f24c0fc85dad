package handler

import (
	"net/http"

	"github.com/tea-tech/simple-inventory/internal/dto"
	"github.com/tea-tech/simple-inventory/internal/middleware"
	"github.com/tea-tech/simple-inventory/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct{ svc service.AuthService }

func NewAuthHandler(svc service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		// Always the same message and status, never which part was wrong.
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Me returns the authenticated user's claims.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	c.JSON(http.StatusOK, gin.H{
		"user_id":  claims.UserID,
		"username": claims.Username,
		"role":     claims.Role,
	})
}
