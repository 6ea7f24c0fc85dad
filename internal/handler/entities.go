package handler

import (
	"net/http"
	"strconv"

	"github.com/tea-tech/simple-inventory/internal/dto"
	"github.com/tea-tech/simple-inventory/internal/middleware"
	"github.com/tea-tech/simple-inventory/internal/service"

	"github.com/gin-gonic/gin"
)

type EntityHandler struct{ svc service.EntityService }

func NewEntityHandler(svc service.EntityService) *EntityHandler {
	return &EntityHandler{svc: svc}
}

func (h *EntityHandler) Create(c *gin.Context) {
	var req dto.CreateEntityRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req, middleware.UserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *EntityHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EntityHandler) GetByBarcode(c *gin.Context) {
	resp, err := h.svc.GetByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EntityHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter := dto.EntityFilter{
		EntityType:  c.Query("entity_type"),
		WarehouseID: c.Query("warehouse_id"),
		ParentID:    c.Query("parent_id"),
		RootOnly:    c.Query("root_only") == "true",
		Search:      c.Query("search"),
		Status:      c.Query("status"),
		Page:        page,
		Limit:       limit,
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EntityHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateEntityRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), id, req, middleware.UserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EntityHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	force := c.Query("force") == "true"
	if err := h.svc.Delete(c.Request.Context(), id, force, middleware.UserID(c)); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ── Operations ───────────────────────────────────────────────────────────────

func (h *EntityHandler) Move(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.MoveEntityRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Move(c.Request.Context(), id, req, middleware.UserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EntityHandler) Convert(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ConvertEntityRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Convert(c.Request.Context(), id, req, middleware.UserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EntityHandler) Split(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.SplitEntityRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Split(c.Request.Context(), id, req, middleware.UserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *EntityHandler) Merge(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.MergeEntitiesRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Merge(c.Request.Context(), id, req, middleware.UserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EntityHandler) AdjustQuantity(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AdjustQuantityRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AdjustQuantity(c.Request.Context(), id, req, middleware.UserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Children and relations ───────────────────────────────────────────────────

func (h *EntityHandler) AddChild(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AddChildRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddChild(c.Request.Context(), id, req, middleware.UserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *EntityHandler) RemoveChild(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	childID, ok := pathID(c, "child_id")
	if !ok {
		return
	}
	returnQty := c.DefaultQuery("return_quantity", "true") == "true"
	if err := h.svc.RemoveChild(c.Request.Context(), id, childID, returnQty, middleware.UserID(c)); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *EntityHandler) UpdateRelation(c *gin.Context) {
	relID, ok := pathID(c, "relation_id")
	if !ok {
		return
	}
	var req dto.UpdateRelationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateRelation(c.Request.Context(), relID, req, middleware.UserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EntityHandler) ListChildren(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListChildren(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EntityHandler) ListRelations(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListRelations(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EntityHandler) History(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	resp, err := h.svc.ListHistory(c.Request.Context(), id, page, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
