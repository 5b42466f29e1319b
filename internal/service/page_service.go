package service

import (
	"errors"
	"fmt"

	"leaves-cms/internal/models"
	"leaves-cms/internal/repository"
	"leaves-cms/pkg/cache"
	"leaves-cms/pkg/logger"
	"leaves-cms/pkg/utils"
	"leaves-cms/pkg/validator"
)

type PageService struct {
	pageRepo repository.PageRepository
	writer   leafWriter
	cache    *cache.Cache
}

func NewPageService(
	pageRepo repository.PageRepository,
	leafRepo repository.LeafRepository,
	siteRepo repository.SiteRepository,
	tagRepo repository.TagRepository,
	cacheService *cache.Cache,
	defaultStatus string,
) *PageService {
	return &PageService{
		pageRepo: pageRepo,
		writer: leafWriter{
			leafRepo:      leafRepo,
			siteRepo:      siteRepo,
			tagRepo:       tagRepo,
			defaultStatus: defaultStatus,
		},
		cache: cacheService,
	}
}

func (s *PageService) Create(req models.CreatePageRequest, authorID uint) (*models.Page, error) {
	slug := req.Slug
	if slug == "" {
		slug = utils.GenerateSlug(req.Title)
	}
	if slug == "" {
		return nil, errors.New("page title must produce a non-empty slug")
	}

	exists, err := s.pageRepo.ExistsBySlug(slug, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to check page existence: %w", err)
	}
	if exists {
		return nil, errors.New("page with this slug already exists")
	}

	page := &models.Page{
		Title:   validator.SanitizeString(req.Title),
		Slug:    slug,
		Summary: validator.SanitizeHTML(req.Summary),
		Content: validator.SanitizeHTML(req.Content),
		Rank:    req.Rank,
	}
	if req.ShowInNavigation != nil {
		page.ShowInNavigation = *req.ShowInNavigation
	} else {
		page.ShowInNavigation = true
	}

	page.Leaf.AuthorID = authorID
	if err := s.writer.applyFields(&page.Leaf, req.LeafFields); err != nil {
		return nil, err
	}

	if err := s.pageRepo.Create(page); err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	s.invalidate(page)
	logger.Info("Page created", map[string]interface{}{"page_id": page.ID, "slug": page.Slug})
	return page, nil
}

func (s *PageService) Update(id uint, req models.UpdatePageRequest) (*models.Page, error) {
	page, err := s.pageRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		page.Title = validator.SanitizeString(*req.Title)
	}
	if req.Summary != nil {
		page.Summary = validator.SanitizeHTML(*req.Summary)
	}
	if req.Content != nil {
		page.Content = validator.SanitizeHTML(*req.Content)
	}
	if req.ShowInNavigation != nil {
		page.ShowInNavigation = *req.ShowInNavigation
	}
	if req.Rank != nil {
		page.Rank = *req.Rank
	}

	if err := s.writer.applyFields(&page.Leaf, req.LeafFields); err != nil {
		return nil, err
	}

	if err := s.pageRepo.Update(page); err != nil {
		return nil, fmt.Errorf("failed to update page: %w", err)
	}

	s.invalidate(page)
	return page, nil
}

func (s *PageService) GetByID(id uint) (*models.Page, error) {
	return s.pageRepo.GetByID(id)
}

// GetBySlug serves the canonical page view. Cache hits are still checked
// against the scope, visibility depends on who is asking and when.
func (s *PageService) GetBySlug(slug string, scope repository.LeafScope) (*models.Page, error) {
	if s.cache != nil {
		var cached models.Page
		if err := s.cache.GetCachedLeaf(models.LeafTypePage, slug, &cached); err == nil {
			if !scope.Includes(&cached.Leaf) {
				return nil, ErrLeafNotVisible
			}
			return &cached, nil
		}
	}

	page, err := s.pageRepo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.CacheLeaf(models.LeafTypePage, slug, page)
	}
	if !scope.Includes(&page.Leaf) {
		return nil, ErrLeafNotVisible
	}
	return page, nil
}

// Navigation lists the scope's navigation pages in rank order.
func (s *PageService) Navigation(scope repository.LeafScope) ([]models.Page, error) {
	return s.pageRepo.Navigation(scope)
}

func (s *PageService) Published(scope repository.LeafScope) ([]models.Page, error) {
	return s.pageRepo.Published(scope)
}

func (s *PageService) All() ([]models.Page, error) {
	return s.pageRepo.All()
}

func (s *PageService) invalidate(page *models.Page) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateLeaf(models.LeafTypePage, page.Slug)
	s.cache.InvalidateStreams()
}
