package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"leaves-cms/internal/middleware"
	"leaves-cms/internal/models"
	"leaves-cms/internal/repository"
	"leaves-cms/internal/routes"
	"leaves-cms/internal/service"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeLeafRepository backs the fallback tests with a fixed leaf set.
type fakeLeafRepository struct {
	leaves []models.Leaf
}

var _ repository.LeafRepository = (*fakeLeafRepository)(nil)

func (r *fakeLeafRepository) visible(scope repository.LeafScope) []models.Leaf {
	var out []models.Leaf
	for i := range r.leaves {
		if scope.Includes(&r.leaves[i]) {
			out = append(out, r.leaves[i])
		}
	}
	repository.SortLeaves(out)
	return out
}

func (r *fakeLeafRepository) Published(scope repository.LeafScope) ([]models.Leaf, error) {
	return r.visible(scope), nil
}

func (r *fakeLeafRepository) Stream(scope repository.LeafScope) ([]models.Leaf, error) {
	return r.visible(scope), nil
}

func (r *fakeLeafRepository) StreamPaged(scope repository.LeafScope, offset, limit int) ([]models.Leaf, int64, error) {
	all := r.visible(scope)
	return all, int64(len(all)), nil
}

func (r *fakeLeafRepository) StreamByTag(scope repository.LeafScope, tagSlug string, offset, limit int) ([]models.Leaf, int64, error) {
	return nil, 0, nil
}

func (r *fakeLeafRepository) StreamByAuthor(scope repository.LeafScope, username string, offset, limit int) ([]models.Leaf, int64, error) {
	return nil, 0, nil
}

func (r *fakeLeafRepository) GetByID(id uint) (*models.Leaf, error) {
	for i := range r.leaves {
		if r.leaves[i].ID == id {
			return &r.leaves[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeLeafRepository) GetByCustomURL(url string) (*models.Leaf, error) {
	for i := range r.leaves {
		if r.leaves[i].CustomURL == url {
			return &r.leaves[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeLeafRepository) ExistsByCustomURL(language, customURL string, excludeLeafID uint) (bool, error) {
	return false, nil
}

func (r *fakeLeafRepository) Translations(rootLeafID uint) ([]models.Leaf, error) {
	return nil, nil
}

func (r *fakeLeafRepository) Delete(id uint) error { return nil }

// fakeRedirectRepository holds redirect rows for one site.
type fakeRedirectRepository struct {
	redirects []models.Redirect
}

var _ repository.RedirectRepository = (*fakeRedirectRepository)(nil)

func (r *fakeRedirectRepository) GetByPath(siteID uint, oldPath string) (*models.Redirect, error) {
	for i := range r.redirects {
		if r.redirects[i].SiteID == siteID && r.redirects[i].OldPath == oldPath {
			return &r.redirects[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRedirectRepository) GetByID(id uint) (*models.Redirect, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRedirectRepository) ListBySite(siteID uint) ([]models.Redirect, error) {
	return r.redirects, nil
}

func (r *fakeRedirectRepository) Create(redirect *models.Redirect) error { return nil }
func (r *fakeRedirectRepository) Update(redirect *models.Redirect) error { return nil }
func (r *fakeRedirectRepository) Delete(id uint) error                   { return nil }

func (r *fakeRedirectRepository) ExistsByPath(siteID uint, oldPath string, excludeID uint) (bool, error) {
	return false, nil
}

// failingLeafRepository simulates a storage outage on custom URL lookups.
type failingLeafRepository struct {
	fakeLeafRepository
	err error
}

func (r *failingLeafRepository) GetByCustomURL(url string) (*models.Leaf, error) {
	return nil, r.err
}

func customURLLeaf() models.Leaf {
	return models.Leaf{
		ID:            1,
		Type:          models.LeafTypePage,
		Sites:         []models.Site{{ID: 1}},
		AuthorID:      7,
		Status:        models.StatusPublished,
		DatePublished: time.Now().UTC().Add(-time.Hour),
		Language:      "en",
		CustomURL:     "/about-us",
		Page:          &models.Page{ID: 1, LeafID: 1, Title: "About", Slug: "about"},
	}
}

func postCustomURLLeaf() models.Leaf {
	return models.Leaf{
		ID:            2,
		Type:          models.LeafTypePost,
		Sites:         []models.Site{{ID: 1}},
		AuthorID:      7,
		Status:        models.StatusPublished,
		DatePublished: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		Language:      "en",
		CustomURL:     "/my-post",
		Post:          &models.Post{ID: 1, LeafID: 2, Title: "Hello", Slug: "hello"},
	}
}

func newFallbackFixture(leaves []models.Leaf, redirects []models.Redirect) (*FallbackHandler, *routes.Registry) {
	registry := routes.NewRegistry()
	registry.GET("recent", "/recent", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"route": "recent"})
	})
	registry.GET("page-view", "/pages/:slug", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"route": "page-view", "slug": c.Param("slug")})
	})
	registry.GET("blog-post", "/blog/:year/:month/:slug", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"route": "blog-post",
			"year":  c.Param("year"),
			"month": c.Param("month"),
			"slug":  c.Param("slug"),
		})
	})

	leafService := service.NewLeafService(&fakeLeafRepository{leaves: leaves}, nil)
	redirectService := service.NewRedirectService(&fakeRedirectRepository{redirects: redirects}, nil)

	return NewFallbackHandler(leafService, redirectService, registry, true, false), registry
}

func fallbackRequest(handler *FallbackHandler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, nil)
	c.Set(middleware.SiteKey, &models.Site{ID: 1})
	c.Set(middleware.LanguageKey, "en")
	handler.Handle(c)
	return w
}

func TestFallbackServesCustomURL(t *testing.T) {
	handler, _ := newFallbackFixture([]models.Leaf{customURLLeaf()}, nil)

	w := fallbackRequest(handler, http.MethodGet, "/about-us")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"slug":"about"`) {
		t.Fatalf("expected the canonical page handler output, got %s", w.Body.String())
	}
}

func TestFallbackPostCustomURLUsesPublishDate(t *testing.T) {
	handler, _ := newFallbackFixture([]models.Leaf{postCustomURLLeaf()}, nil)

	w := fallbackRequest(handler, http.MethodGet, "/my-post")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, `"year":"2026"`) || !strings.Contains(body, `"month":"05"`) {
		t.Fatalf("expected the publish date in the re-dispatch params, got %s", body)
	}
	if !strings.Contains(body, `"slug":"hello"`) {
		t.Fatalf("expected the post slug, got %s", body)
	}
}

func TestFallbackCustomURLWinsOverRedirect(t *testing.T) {
	redirects := []models.Redirect{
		{ID: 1, SiteID: 1, OldPath: "/about-us", NewPath: "/elsewhere", RedirectType: 301},
	}
	handler, _ := newFallbackFixture([]models.Leaf{customURLLeaf()}, redirects)

	w := fallbackRequest(handler, http.MethodGet, "/about-us")
	if w.Code != http.StatusOK {
		t.Fatalf("expected the custom URL to win over the redirect, got %d", w.Code)
	}
}

func TestFallbackRedirects(t *testing.T) {
	redirects := []models.Redirect{
		{ID: 1, SiteID: 1, OldPath: "/old", NewPath: "/new", RedirectType: 301},
		{ID: 2, SiteID: 1, OldPath: "/moved", NewPath: "/target", RedirectType: 302},
	}
	handler, _ := newFallbackFixture(nil, redirects)

	w := fallbackRequest(handler, http.MethodGet, "/old")
	if w.Code != http.StatusMovedPermanently {
		t.Fatalf("expected 301, got %d", w.Code)
	}
	if got := w.Header().Get("Location"); got != "/new" {
		t.Fatalf("expected Location /new, got %q", got)
	}

	w = fallbackRequest(handler, http.MethodGet, "/moved")
	if w.Code != http.StatusFound {
		t.Fatalf("expected the stored redirect code, got %d", w.Code)
	}
}

func TestFallbackRedirectMatchesQueryString(t *testing.T) {
	redirects := []models.Redirect{
		{ID: 1, SiteID: 1, OldPath: "/old?ref=newsletter", NewPath: "/new", RedirectType: 301},
		{ID: 2, SiteID: 1, OldPath: "/moved", NewPath: "/target", RedirectType: 302},
	}
	handler, _ := newFallbackFixture(nil, redirects)

	w := fallbackRequest(handler, http.MethodGet, "/old?ref=newsletter")
	if w.Code != http.StatusMovedPermanently {
		t.Fatalf("expected the full request path to match, got %d", w.Code)
	}
	if got := w.Header().Get("Location"); got != "/new" {
		t.Fatalf("expected Location /new, got %q", got)
	}

	// A row without a query string still catches requests that carry one.
	w = fallbackRequest(handler, http.MethodGet, "/moved?utm=1")
	if w.Code != http.StatusFound {
		t.Fatalf("expected the bare path to match, got %d", w.Code)
	}
}

func TestFallbackSwallowsLookupFailures(t *testing.T) {
	repo := &failingLeafRepository{err: errors.New("connection refused")}
	leafService := service.NewLeafService(repo, nil)
	redirectService := service.NewRedirectService(&fakeRedirectRepository{}, nil)
	handler := NewFallbackHandler(leafService, redirectService, routes.NewRegistry(), true, false)

	w := fallbackRequest(handler, http.MethodGet, "/anything")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected a lookup failure to surface as 404, got %d", w.Code)
	}
}

func TestFallbackSurfacesFailuresInDevelopment(t *testing.T) {
	repo := &failingLeafRepository{err: errors.New("connection refused")}
	leafService := service.NewLeafService(repo, nil)
	redirectService := service.NewRedirectService(&fakeRedirectRepository{}, nil)
	handler := NewFallbackHandler(leafService, redirectService, routes.NewRegistry(), true, true)

	w := fallbackRequest(handler, http.MethodGet, "/anything")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected a 500 in development, got %d", w.Code)
	}
}

func TestFallbackGone(t *testing.T) {
	redirects := []models.Redirect{
		{ID: 1, SiteID: 1, OldPath: "/retired", NewPath: "", RedirectType: 410},
	}
	handler, _ := newFallbackFixture(nil, redirects)

	w := fallbackRequest(handler, http.MethodGet, "/retired")
	if w.Code != http.StatusGone {
		t.Fatalf("expected 410, got %d", w.Code)
	}
	if w.Header().Get("Location") != "" {
		t.Fatalf("a gone response must not redirect")
	}
}

func TestFallbackAppendSlash(t *testing.T) {
	registry := routes.NewRegistry()
	registry.GET("page-list", "/pages/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"route": "page-list"})
	})
	leafService := service.NewLeafService(&fakeLeafRepository{}, nil)
	redirectService := service.NewRedirectService(&fakeRedirectRepository{}, nil)
	handler := NewFallbackHandler(leafService, redirectService, registry, true, false)

	w := fallbackRequest(handler, http.MethodGet, "/pages")
	if w.Code != http.StatusMovedPermanently {
		t.Fatalf("expected 301, got %d", w.Code)
	}
	if got := w.Header().Get("Location"); got != "/pages/" {
		t.Fatalf("expected Location /pages/, got %q", got)
	}
}

func TestFallbackNotFound(t *testing.T) {
	handler, _ := newFallbackFixture(nil, nil)

	w := fallbackRequest(handler, http.MethodGet, "/nowhere")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestFallbackOnlyGetAndHead(t *testing.T) {
	redirects := []models.Redirect{
		{ID: 1, SiteID: 1, OldPath: "/old", NewPath: "/new", RedirectType: 301},
	}
	handler, _ := newFallbackFixture(nil, redirects)

	w := fallbackRequest(handler, http.MethodPost, "/old")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for POST, got %d", w.Code)
	}
}

func TestFallbackHiddenCustomURLIs404(t *testing.T) {
	leaf := customURLLeaf()
	leaf.Status = models.StatusDraft
	handler, _ := newFallbackFixture([]models.Leaf{leaf}, nil)

	w := fallbackRequest(handler, http.MethodGet, "/about-us")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected a hidden leaf's custom URL to 404, got %d", w.Code)
	}
}
