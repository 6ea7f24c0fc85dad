package handler

import (
	"net/http"

	"github.com/tea-tech/simple-inventory/internal/apierror"
	"github.com/tea-tech/simple-inventory/internal/service"

	"github.com/gin-gonic/gin"
)

type LookupHandler struct{ svc service.LookupService }

func NewLookupHandler(svc service.LookupService) *LookupHandler {
	return &LookupHandler{svc: svc}
}

// Lookup resolves an unknown barcode: format, pattern matches, supplier
// links, and external catalog product data.
func (h *LookupHandler) Lookup(c *gin.Context) {
	barcode := c.Param("barcode")
	if barcode == "" {
		c.JSON(http.StatusBadRequest, apierror.New("barcode is required"))
		return
	}
	resp, err := h.svc.Lookup(c.Request.Context(), barcode)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
