package handler

import (
	"net/http"

	"github.com/tea-tech/simple-inventory/internal/apierror"
	"github.com/tea-tech/simple-inventory/internal/dto"
	"github.com/tea-tech/simple-inventory/internal/middleware"
	"github.com/tea-tech/simple-inventory/internal/service"

	"github.com/gin-gonic/gin"
)

type CSVHandler struct{ svc service.ExportService }

func NewCSVHandler(svc service.ExportService) *CSVHandler {
	return &CSVHandler{svc: svc}
}

// Export streams the entity store as a CSV download.
func (h *CSVHandler) Export(c *gin.Context) {
	entityType := c.Query("entity_type")
	filename := h.svc.ExportFilename(entityType)

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	if _, err := h.svc.ExportCSV(c.Request.Context(), c.Writer, entityType); err != nil {
		_ = c.Error(err)
	}
}

// Import ingests a multipart CSV upload.
func (h *CSVHandler) Import(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("file upload is required"))
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("could not read uploaded file"))
		return
	}
	defer f.Close()

	resp, err := h.svc.ImportCSV(c.Request.Context(), f, middleware.UserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// EmailExport queues an export for background generation and delivery.
func (h *CSVHandler) EmailExport(c *gin.Context) {
	var req dto.EmailExportRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.EnqueueEmailExport(c.Request.Context(), req); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
