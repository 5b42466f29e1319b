package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leaves-cms/internal/service"
)

type StreamHandler struct {
	leafService *service.LeafService
}

func NewStreamHandler(leafService *service.LeafService) *StreamHandler {
	return &StreamHandler{leafService: leafService}
}

// Recent serves the site's stream, newest first.
func (h *StreamHandler) Recent(c *gin.Context) {
	page, perPage := pagination(c, streamCount(c))

	stream, err := h.leafService.Stream(scopeFrom(c), page, perPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stream"})
		return
	}
	c.JSON(http.StatusOK, stream)
}

func (h *StreamHandler) ByTag(c *gin.Context) {
	page, perPage := pagination(c, streamCount(c))

	stream, err := h.leafService.StreamByTag(scopeFrom(c), c.Param("slug"), page, perPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stream"})
		return
	}
	if stream.Total == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no leaves for this tag"})
		return
	}
	c.JSON(http.StatusOK, stream)
}

func (h *StreamHandler) ByAuthor(c *gin.Context) {
	page, perPage := pagination(c, streamCount(c))

	stream, err := h.leafService.StreamByAuthor(scopeFrom(c), c.Param("username"), page, perPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stream"})
		return
	}
	c.JSON(http.StatusOK, stream)
}
