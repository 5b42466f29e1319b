package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"leaves-cms/internal/middleware"
	"leaves-cms/internal/models"
	"leaves-cms/internal/service"
)

type PageHandler struct {
	pageService *service.PageService
	renderer    *Renderer
}

func NewPageHandler(pageService *service.PageService, renderer *Renderer) *PageHandler {
	return &PageHandler{pageService: pageService, renderer: renderer}
}

// View is the canonical page route.
func (h *PageHandler) View(c *gin.Context) {
	page, err := h.pageService.GetBySlug(c.Param("slug"), scopeFrom(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, service.ErrLeafNotVisible) {
			c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load page"})
		return
	}
	h.renderer.Leaf(c, &page.Leaf, gin.H{"page": page})
}

// Navigation lists the visible navigation pages for the current site.
func (h *PageHandler) Navigation(c *gin.Context) {
	pages, err := h.pageService.Navigation(scopeFrom(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load navigation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pages": pages})
}

func (h *PageHandler) Create(c *gin.Context) {
	var req models.CreatePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	viewer := middleware.Viewer(c)
	page, err := h.pageService.Create(req, viewer.ID)
	if err != nil {
		c.JSON(writeErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"page": page})
}

func (h *PageHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page id"})
		return
	}

	var req models.UpdatePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.pageService.Update(id, req)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
			return
		}
		c.JSON(writeErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": page})
}

func (h *PageHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page id"})
		return
	}

	page, err := h.pageService.GetByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": page})
}

func (h *PageHandler) All(c *gin.Context) {
	pages, err := h.pageService.All()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load pages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pages": pages})
}

// writeErrorStatus maps service validation failures to 409/422 style codes
// instead of a blanket 500.
func writeErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrCustomURLTaken):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnknownSite):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}
