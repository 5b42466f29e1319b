package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"leaves-cms/internal/models"
	"leaves-cms/internal/routes"
	"leaves-cms/internal/service"
	"leaves-cms/pkg/logger"
)

// FallbackHandler runs when no registered route matched the request. It
// tries, in order: a leaf claiming the path as its custom URL, the site's
// redirect table, and an appended trailing slash against the registered
// routes. Custom URLs are stored without a trailing slash and matched after
// normalizing the request path, so both spellings resolve directly and never
// need the slash probe. The probe runs last; an explicit redirect row for
// the unslashed path takes precedence over it. Only when all three steps
// miss does the original 404 stand.
type FallbackHandler struct {
	leafService     *service.LeafService
	redirectService *service.RedirectService
	registry        *routes.Registry

	appendSlash bool
	development bool
}

func NewFallbackHandler(
	leafService *service.LeafService,
	redirectService *service.RedirectService,
	registry *routes.Registry,
	appendSlash bool,
	development bool,
) *FallbackHandler {
	return &FallbackHandler{
		leafService:     leafService,
		redirectService: redirectService,
		registry:        registry,
		appendSlash:     appendSlash,
		development:     development,
	}
}

func (h *FallbackHandler) Handle(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		h.notFound(c)
		return
	}

	path := c.Request.URL.Path
	scope := scopeFrom(c)

	// A leaf's custom URL wins over everything, including a redirect row
	// for the same path.
	leaf, err := h.leafService.ResolveCustomURL(path, scope)
	if err == nil {
		h.serveLeaf(c, leaf)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, service.ErrLeafNotVisible) {
		h.chainFailure(c, err)
		return
	}

	if scope.SiteID != 0 {
		// Redirect rows store what the author typed, so the full request
		// path including the query string is tried before the bare path.
		targets := []string{path}
		if q := c.Request.URL.RawQuery; q != "" {
			targets = []string{path + "?" + q, path}
		}
		for _, target := range targets {
			redirect, err := h.redirectService.Lookup(scope.SiteID, target)
			if err == nil {
				if redirect.Gone() {
					c.JSON(http.StatusGone, gin.H{"error": "this resource is gone"})
					return
				}
				c.Redirect(redirect.RedirectType, redirect.NewPath)
				return
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				h.chainFailure(c, err)
				return
			}
		}
	}

	if h.appendSlash && !strings.HasSuffix(path, "/") {
		if _, ok := h.registry.Resolve(path + "/"); ok {
			c.Redirect(http.StatusMovedPermanently, path+"/")
			return
		}
	}

	h.notFound(c)
}

// serveLeaf re-dispatches the request onto the leaf's canonical handler, so
// a custom URL renders exactly what the canonical URL would, at the original
// address.
func (h *FallbackHandler) serveLeaf(c *gin.Context, leaf *models.Leaf) {
	content, err := leaf.Resolved()
	if err != nil {
		h.chainFailure(c, err)
		return
	}

	canonical, err := h.registry.Reverse(content.RouteName(), content.RouteParams())
	if err != nil {
		h.chainFailure(c, err)
		return
	}
	match, ok := h.registry.Resolve(canonical)
	if !ok {
		h.chainFailure(c, errors.New("canonical route did not resolve: "+canonical))
		return
	}

	c.Params = match.Params
	match.Route.Handler(c)
}

func (h *FallbackHandler) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

// chainFailure swallows unexpected lookup failures into the original 404
// outcome. In development the underlying error surfaces as a 500 instead of
// being swallowed.
func (h *FallbackHandler) chainFailure(c *gin.Context, err error) {
	logger.Error(err, "Fallback chain failed", map[string]interface{}{
		"path": c.Request.URL.Path,
	})
	if h.development {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.notFound(c)
}
