package handler

import (
	"net/http"

	"github.com/tea-tech/simple-inventory/internal/dto"
	"github.com/tea-tech/simple-inventory/internal/service"

	"github.com/gin-gonic/gin"
)

type SupplierPatternHandler struct{ svc service.LookupService }

func NewSupplierPatternHandler(svc service.LookupService) *SupplierPatternHandler {
	return &SupplierPatternHandler{svc: svc}
}

func (h *SupplierPatternHandler) List(c *gin.Context) {
	resp, err := h.svc.ListPatterns(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SupplierPatternHandler) Create(c *gin.Context) {
	var req dto.CreateSupplierPatternRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreatePattern(c.Request.Context(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *SupplierPatternHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateSupplierPatternRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdatePattern(c.Request.Context(), id, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SupplierPatternHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeletePattern(c.Request.Context(), id); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
