package handler

import (
	"github.com/tea-tech/simple-inventory/internal/infra"
	"github.com/tea-tech/simple-inventory/internal/service"

	"github.com/gin-gonic/gin"
)

type PackingHandler struct{ svc service.EntityService }

func NewPackingHandler(svc service.EntityService) *PackingHandler {
	return &PackingHandler{svc: svc}
}

// Slip renders a packing slip PDF for a package and its content claims.
func (h *PackingHandler) Slip(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pkg, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	contents, err := h.svc.ListRelations(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `attachment; filename="packing-`+pkg.Barcode+`.pdf"`)
	if err := infra.WritePackingSlip(c.Writer, pkg, contents); err != nil {
		_ = c.Error(err)
	}
}
