package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"leaves-cms/internal/service"
)

// LeafHandler serves the type-agnostic leaf operations: translations and
// deletion. Everything content-specific goes through the page and post
// handlers.
type LeafHandler struct {
	leafService *service.LeafService
}

func NewLeafHandler(leafService *service.LeafService) *LeafHandler {
	return &LeafHandler{leafService: leafService}
}

// Translations lists the visible translations of a leaf's root.
func (h *LeafHandler) Translations(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid leaf id"})
		return
	}

	scope := scopeFrom(c)
	leaf, err := h.leafService.GetByID(id, scope)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, service.ErrLeafNotVisible) {
			c.JSON(http.StatusNotFound, gin.H{"error": "leaf not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leaf"})
		return
	}

	translations, err := h.leafService.Translations(leaf, scope)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load translations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"translations": translations})
}

func (h *LeafHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid leaf id"})
		return
	}

	if err := h.leafService.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "leaf not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete leaf"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "leaf deleted successfully"})
}
