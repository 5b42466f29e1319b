package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"leaves-cms/internal/models"
	"leaves-cms/internal/service"
	"leaves-cms/pkg/logger"
)

const (
	SiteKey     = "site"
	LanguageKey = "language"
)

// SiteMiddleware resolves the request host to a site and stores it in the
// context. Every public route runs behind it; a host no site claims and no
// default covers is a hard 404.
func SiteMiddleware(siteService *service.SiteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		site, err := siteService.ResolveHost(c.Request.Host)
		if err != nil {
			logger.Warn("Unresolvable host", map[string]interface{}{
				"host": c.Request.Host, "path": c.Request.URL.Path})
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown site"})
			c.Abort()
			return
		}
		c.Set(SiteKey, site)
		c.Next()
	}
}

// LanguageMiddleware picks the request language: an explicit lang query
// parameter wins, otherwise the site's default applies. An empty value means
// "root leaves only" and is never stored.
func LanguageMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		language := strings.TrimSpace(c.Query("lang"))
		if language == "" {
			if site := Site(c); site != nil {
				language = site.Preferences.DefaultLanguage
			}
		}
		if language != "" {
			c.Set(LanguageKey, language)
		}
		c.Next()
	}
}

// Site returns the site resolved for this request, or nil.
func Site(c *gin.Context) *models.Site {
	if value, exists := c.Get(SiteKey); exists {
		if site, ok := value.(*models.Site); ok {
			return site
		}
	}
	return nil
}

// Scope assembles the request's ambient values into one RequestScope.
func Scope(c *gin.Context) *models.RequestScope {
	return &models.RequestScope{
		Site:     Site(c),
		Viewer:   Viewer(c),
		Language: c.GetString(LanguageKey),
	}
}
