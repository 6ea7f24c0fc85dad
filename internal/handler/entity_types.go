package handler

import (
	"net/http"

	"github.com/tea-tech/simple-inventory/internal/dto"
	"github.com/tea-tech/simple-inventory/internal/service"

	"github.com/gin-gonic/gin"
)

type EntityTypeHandler struct{ svc service.TypeRegistry }

func NewEntityTypeHandler(svc service.TypeRegistry) *EntityTypeHandler {
	return &EntityTypeHandler{svc: svc}
}

func (h *EntityTypeHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EntityTypeHandler) Get(c *gin.Context) {
	resp, err := h.svc.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EntityTypeHandler) Create(c *gin.Context) {
	var req dto.CreateEntityTypeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *EntityTypeHandler) Update(c *gin.Context) {
	var req dto.UpdateEntityTypeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), c.Param("code"), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EntityTypeHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("code")); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
