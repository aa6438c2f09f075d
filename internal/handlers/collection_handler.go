package handlers

import (
	"net/http"

	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"github.com/ArowuTest/recyclehub-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// CollectionHandler handles collection request HTTP requests
type CollectionHandler struct {
	collectionService *services.CollectionService
}

// NewCollectionHandler creates a new CollectionHandler
func NewCollectionHandler(collectionService *services.CollectionService) *CollectionHandler {
	return &CollectionHandler{collectionService: collectionService}
}

// CreateCollection handles POST /collections
func (h *CollectionHandler) CreateCollection(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	var in services.CreateCollectionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	collection, err := h.collectionService.CreateCollection(c.Request.Context(), user, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, collection)
}

// ListCollections handles GET /collections. Customers see their own
// requests, collectors see the pickup pool plus what they accepted.
func (h *CollectionHandler) ListCollections(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	collections, err := h.collectionService.ListVisibleCollections(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}

	if status := c.Query("status"); status != "" {
		filtered := collections[:0]
		for _, col := range collections {
			if string(col.Status) == status {
				filtered = append(filtered, col)
			}
		}
		collections = filtered
	}
	if collections == nil {
		collections = []*models.Collection{}
	}
	c.JSON(http.StatusOK, collections)
}

// GetCollection handles GET /collections/:id
func (h *CollectionHandler) GetCollection(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	collection, err := h.collectionService.GetCollection(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, collection)
}

type statusRequest struct {
	Status models.CollectionStatus `json:"status" binding:"required"`
	services.StatusUpdate
}

// UpdateStatus handles PUT /collections/:id/status
func (h *CollectionHandler) UpdateStatus(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.collectionService.UpdateCollectionStatus(c.Request.Context(), user, id, req.Status, req.StatusUpdate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UpdateCollection handles PATCH /collections/:id
func (h *CollectionHandler) UpdateCollection(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var patch models.CollectionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}

	collection, err := h.collectionService.UpdateCollection(c.Request.Context(), user, id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, collection)
}

// DeleteCollection handles DELETE /collections/:id
func (h *CollectionHandler) DeleteCollection(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.collectionService.DeleteCollection(c.Request.Context(), user, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CollectionHistory handles GET /collections/:id/history
func (h *CollectionHandler) CollectionHistory(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	events, err := h.collectionService.CollectionHistory(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
