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

// SiteHandler is the admin surface for sites, their preferences and their
// redirect tables.
type SiteHandler struct {
	siteService     *service.SiteService
	redirectService *service.RedirectService
	homepageService *service.HomepageService
}

func NewSiteHandler(
	siteService *service.SiteService,
	redirectService *service.RedirectService,
	homepageService *service.HomepageService,
) *SiteHandler {
	return &SiteHandler{
		siteService:     siteService,
		redirectService: redirectService,
		homepageService: homepageService,
	}
}

// Current describes the site serving this request, including its homepage
// choices. Public, unlike the rest of this handler.
func (h *SiteHandler) Current(c *gin.Context) {
	site := middleware.Site(c)
	if site == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown site"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"site":             site,
		"homepage_choices": h.homepageService.Choices(),
	})
}

func (h *SiteHandler) List(c *gin.Context) {
	sites, err := h.siteService.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sites"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sites": sites})
}

func (h *SiteHandler) Create(c *gin.Context) {
	var req models.CreateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	site, err := h.siteService.Create(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"site": site})
}

func (h *SiteHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid site id"})
		return
	}

	if err := h.siteService.Delete(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete site"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "site deleted"})
}

func (h *SiteHandler) UpdatePreferences(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid site id"})
		return
	}

	var req models.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prefs, err := h.siteService.UpdatePreferences(id, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update preferences"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}

func (h *SiteHandler) ListRedirects(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid site id"})
		return
	}

	redirects, err := h.redirectService.ListBySite(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load redirects"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirects": redirects})
}

func (h *SiteHandler) CreateRedirect(c *gin.Context) {
	var req models.CreateRedirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	redirect, err := h.redirectService.Create(req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRedirectExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "site not found"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"redirect": redirect})
}

func (h *SiteHandler) DeleteRedirect(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid redirect id"})
		return
	}

	if err := h.redirectService.Delete(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete redirect"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "redirect deleted"})
}
