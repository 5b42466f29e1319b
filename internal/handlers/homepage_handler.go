package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leaves-cms/internal/middleware"
	"leaves-cms/internal/routes"
	"leaves-cms/internal/service"
)

// HomepageHandler serves the site root by dispatching to whichever named
// route the site's homepage preference points at.
type HomepageHandler struct {
	homepageService *service.HomepageService
	registry        *routes.Registry
}

func NewHomepageHandler(homepageService *service.HomepageService, registry *routes.Registry) *HomepageHandler {
	return &HomepageHandler{
		homepageService: homepageService,
		registry:        registry,
	}
}

func (h *HomepageHandler) Serve(c *gin.Context) {
	site := middleware.Site(c)
	if site == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown site"})
		return
	}

	routeName := h.homepageService.Resolve(site.Preferences.Homepage)
	if routeName == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no homepage configured"})
		return
	}

	route, ok := h.registry.ByName(routeName)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "homepage route missing"})
		return
	}
	route.Handler(c)
}
