package service

import (
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"leaves-cms/internal/models"
	"leaves-cms/internal/repository"
)

type memoryPageRepository struct {
	pages  []models.Page
	nextID uint
}

var _ repository.PageRepository = (*memoryPageRepository)(nil)

func newMemoryPageRepository() *memoryPageRepository {
	return &memoryPageRepository{nextID: 1}
}

func (r *memoryPageRepository) Create(page *models.Page) error {
	page.Leaf.Type = models.LeafTypePage
	page.ID = r.nextID
	page.Leaf.ID = r.nextID
	page.LeafID = r.nextID
	r.nextID++
	r.pages = append(r.pages, *page)
	return nil
}

func (r *memoryPageRepository) Update(page *models.Page) error {
	for i := range r.pages {
		if r.pages[i].ID == page.ID {
			r.pages[i] = *page
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *memoryPageRepository) GetByID(id uint) (*models.Page, error) {
	for i := range r.pages {
		if r.pages[i].ID == id {
			return &r.pages[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryPageRepository) GetBySlug(slug string) (*models.Page, error) {
	for i := range r.pages {
		if r.pages[i].Slug == slug {
			return &r.pages[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryPageRepository) GetByLeafID(leafID uint) (*models.Page, error) {
	for i := range r.pages {
		if r.pages[i].LeafID == leafID {
			return &r.pages[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryPageRepository) Published(scope repository.LeafScope) ([]models.Page, error) {
	var out []models.Page
	for i := range r.pages {
		if scope.Includes(&r.pages[i].Leaf) {
			out = append(out, r.pages[i])
		}
	}
	return out, nil
}

func (r *memoryPageRepository) Navigation(scope repository.LeafScope) ([]models.Page, error) {
	var out []models.Page
	for i := range r.pages {
		if scope.Includes(&r.pages[i].Leaf) && r.pages[i].ShowInNavigation {
			out = append(out, r.pages[i])
		}
	}
	return out, nil
}

func (r *memoryPageRepository) ExistsBySlug(slug string, excludeID uint) (bool, error) {
	for _, page := range r.pages {
		if page.Slug == slug && page.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryPageRepository) All() ([]models.Page, error) {
	return r.pages, nil
}

func newTestPageService() (*PageService, *memoryPageRepository, *memoryLeafRepository) {
	pageRepo := newMemoryPageRepository()
	leafRepo := newMemoryLeafRepository()
	siteRepo := newMemorySiteRepository(models.Site{ID: 1, Domain: "example.com"})
	tagRepo := &memoryTagRepository{}
	svc := NewPageService(pageRepo, leafRepo, siteRepo, tagRepo, nil, models.StatusDraft)
	return svc, pageRepo, leafRepo
}

func pageRequest(title string) models.CreatePageRequest {
	return models.CreatePageRequest{
		LeafFields: models.LeafFields{SiteIDs: []uint{1}},
		Title:      title,
		Content:    "<p>Body</p>",
	}
}

func TestCreatePageGeneratesSlug(t *testing.T) {
	svc, _, _ := newTestPageService()

	page, err := svc.Create(pageRequest("Über Uns!"), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Slug != "uber-uns" {
		t.Fatalf("expected a transliterated slug, got %q", page.Slug)
	}
	if page.Leaf.Type != models.LeafTypePage {
		t.Fatalf("expected the page discriminator, got %q", page.Leaf.Type)
	}
	if page.Leaf.AuthorID != 7 {
		t.Fatalf("expected author 7, got %d", page.Leaf.AuthorID)
	}
	if page.Leaf.Status != models.StatusDraft {
		t.Fatalf("expected the default draft status, got %q", page.Leaf.Status)
	}
	if !page.ShowInNavigation {
		t.Fatalf("expected navigation on by default")
	}
}

func TestCreatePageExplicitSlugWins(t *testing.T) {
	svc, _, _ := newTestPageService()

	req := pageRequest("About Us")
	req.Slug = "about"
	page, err := svc.Create(req, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Slug != "about" {
		t.Fatalf("expected the explicit slug, got %q", page.Slug)
	}
}

func TestCreatePageRejectsDuplicateSlug(t *testing.T) {
	svc, _, _ := newTestPageService()

	if _, err := svc.Create(pageRequest("About"), 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Create(pageRequest("About"), 7); err == nil {
		t.Fatalf("expected a duplicate slug error")
	}
}

func TestCreatePageRejectsUnknownSite(t *testing.T) {
	svc, _, _ := newTestPageService()

	req := pageRequest("About")
	req.SiteIDs = []uint{1, 9}
	if _, err := svc.Create(req, 7); !errors.Is(err, ErrUnknownSite) {
		t.Fatalf("expected ErrUnknownSite, got %v", err)
	}
}

func TestCreatePageRejectsTakenCustomURL(t *testing.T) {
	svc, _, leafRepo := newTestPageService()
	leafRepo.leaves = append(leafRepo.leaves, models.Leaf{
		ID: 99, Type: models.LeafTypePost, Language: "en", CustomURL: "/about",
	})

	req := pageRequest("About")
	req.CustomURL = "about/"
	req.Language = "en"
	if _, err := svc.Create(req, 7); !errors.Is(err, ErrCustomURLTaken) {
		t.Fatalf("expected ErrCustomURLTaken, got %v", err)
	}
}

func TestCreatePageRejectsExpiryBeforePublish(t *testing.T) {
	svc, _, _ := newTestPageService()

	published := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	expires := published.Add(-time.Hour)

	req := pageRequest("About")
	req.DatePublished = &published
	req.DateExpires = &expires
	if _, err := svc.Create(req, 7); err == nil {
		t.Fatalf("expected an error for expiry before publish")
	}
}

func TestCreatePageResolvesTags(t *testing.T) {
	svc, _, _ := newTestPageService()

	req := pageRequest("About")
	req.TagSlugs = []string{"Go Programming", "go programming", "Web"}
	page, err := svc.Create(req, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Leaf.Tags) != 2 {
		t.Fatalf("expected duplicate tags collapsed, got %d", len(page.Leaf.Tags))
	}
	if page.Leaf.Tags[0].Slug != "go-programming" {
		t.Fatalf("expected slugified tag, got %q", page.Leaf.Tags[0].Slug)
	}
}

func TestCreatePageSanitizesContent(t *testing.T) {
	svc, _, _ := newTestPageService()

	req := pageRequest(`About <script>alert("x")</script>`)
	page, err := svc.Create(req, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range page.Title {
		if c == '<' {
			t.Fatalf("expected the title stripped of markup, got %q", page.Title)
		}
	}
}

func TestUpdatePageMergesFields(t *testing.T) {
	svc, _, _ := newTestPageService()

	page, err := svc.Create(pageRequest("About"), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	title := "About the Team"
	rank := 3
	updated, err := svc.Update(page.ID, models.UpdatePageRequest{
		LeafFields: models.LeafFields{SiteIDs: []uint{1}, Status: models.StatusPublished},
		Title:      &title,
		Rank:       &rank,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Title != "About the Team" || updated.Rank != 3 {
		t.Fatalf("expected merged fields, got %+v", updated)
	}
	if updated.Leaf.Status != models.StatusPublished {
		t.Fatalf("expected published, got %q", updated.Leaf.Status)
	}
	if updated.Slug != "about" {
		t.Fatalf("expected the slug untouched, got %q", updated.Slug)
	}
	if updated.Content != page.Content {
		t.Fatalf("expected untouched content")
	}
}

func TestGetPageBySlugEnforcesScope(t *testing.T) {
	svc, pageRepo, _ := newTestPageService()

	page := models.Page{
		Title: "Hidden", Slug: "hidden", Content: "x",
		Leaf: models.Leaf{
			Type:   models.LeafTypePage,
			Sites:  []models.Site{{ID: 1}},
			Status: models.StatusDraft, Language: "en", AuthorID: 7,
		},
	}
	if err := pageRepo.Create(&page); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scope := repository.LeafScope{SiteID: 1, Language: "en"}
	if _, err := svc.GetBySlug("hidden", scope); !errors.Is(err, ErrLeafNotVisible) {
		t.Fatalf("expected ErrLeafNotVisible, got %v", err)
	}

	scope.Viewer = &models.User{ID: 7}
	scope.Bypass = true
	got, err := svc.GetBySlug("hidden", scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Slug != "hidden" {
		t.Fatalf("expected the hidden page for its author, got %q", got.Slug)
	}
}
