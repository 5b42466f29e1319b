package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"leaves-cms/internal/middleware"
	"leaves-cms/internal/repository"
)

// scopeFrom builds the leaf visibility scope for this request. Authenticated
// viewers get the widened bypass view automatically.
func scopeFrom(c *gin.Context) repository.LeafScope {
	requestScope := middleware.Scope(c)
	return repository.LeafScope{
		SiteID:   requestScope.SiteID(),
		Viewer:   requestScope.Viewer,
		Language: requestScope.Language,
		Bypass:   requestScope.Authenticated(),
	}
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// pagination reads page/per_page query parameters, with the given per-page
// default (usually the site's stream count preference).
func pagination(c *gin.Context, defaultPerPage int) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	return page, perPage
}

func streamCount(c *gin.Context) int {
	if site := middleware.Site(c); site != nil && site.Preferences.StreamCount > 0 {
		return site.Preferences.StreamCount
	}
	return 10
}
