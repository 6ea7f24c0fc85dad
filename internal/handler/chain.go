package handler

import (
	"net/http"

	"github.com/tea-tech/simple-inventory/internal/dto"
	"github.com/tea-tech/simple-inventory/internal/middleware"
	"github.com/tea-tech/simple-inventory/internal/service"

	"github.com/gin-gonic/gin"
)

// ChainHandler exposes the scanner chain engine. The session id comes from
// the X-Session-ID header so several scanner stations can run independent
// chains under one user account; without the header the chain is scoped to
// the user.
type ChainHandler struct{ svc service.ChainService }

func NewChainHandler(svc service.ChainService) *ChainHandler {
	return &ChainHandler{svc: svc}
}

func sessionID(c *gin.Context) string {
	if sid := c.GetHeader("X-Session-ID"); sid != "" {
		return sid
	}
	if claims := middleware.GetClaims(c); claims != nil {
		return "user:" + claims.UserID
	}
	return "anonymous"
}

func (h *ChainHandler) Submit(c *gin.Context) {
	var req dto.SubmitTokenRequest
	if !bindAndValidate(c, &req) {
		return
	}
	outcome := h.svc.SubmitToken(c.Request.Context(), sessionID(c), req.Token, middleware.UserID(c))
	c.JSON(http.StatusOK, outcome)
}

func (h *ChainHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.State(sessionID(c)))
}

func (h *ChainHandler) Reset(c *gin.Context) {
	h.svc.Reset(sessionID(c))
	c.Status(http.StatusNoContent)
}
