package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"leaves-cms/internal/models"
	"leaves-cms/internal/repository"
	"leaves-cms/pkg/cache"
)

var ErrLeafNotVisible = errors.New("leaf is not visible in this scope")

// StreamPage is one page of a leaf stream.
type StreamPage struct {
	Leaves     []models.Leaf `json:"leaves"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int           `json:"total_pages"`
}

// LeafService answers the read-side leaf queries: streams, custom URL
// lookups and translations. Writes go through the page and post services.
type LeafService struct {
	leafRepo repository.LeafRepository
	cache    *cache.Cache
}

func NewLeafService(leafRepo repository.LeafRepository, cacheService *cache.Cache) *LeafService {
	return &LeafService{
		leafRepo: leafRepo,
		cache:    cacheService,
	}
}

// Stream returns one page of the scope's stream, newest first. Only the
// anonymous strict scope is served from cache. Results for authenticated
// viewers depend on who is asking and are always computed.
func (s *LeafService) Stream(scope repository.LeafScope, page, perPage int) (*StreamPage, error) {
	page, perPage = normalizePaging(page, perPage)

	cacheKey := ""
	if s.cacheable(scope) {
		cacheKey = streamCacheKey(scope, page, perPage)
		var cached StreamPage
		if err := s.cache.GetCachedStream(cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	leaves, total, err := s.leafRepo.StreamPaged(scope, (page-1)*perPage, perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to load stream: %w", err)
	}

	result := buildStreamPage(leaves, total, page, perPage)
	if cacheKey != "" {
		s.cache.CacheStream(cacheKey, result)
	}
	return result, nil
}

func (s *LeafService) StreamByTag(scope repository.LeafScope, tagSlug string, page, perPage int) (*StreamPage, error) {
	page, perPage = normalizePaging(page, perPage)
	leaves, total, err := s.leafRepo.StreamByTag(scope, tagSlug, (page-1)*perPage, perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to load tag stream: %w", err)
	}
	return buildStreamPage(leaves, total, page, perPage), nil
}

func (s *LeafService) StreamByAuthor(scope repository.LeafScope, username string, page, perPage int) (*StreamPage, error) {
	page, perPage = normalizePaging(page, perPage)
	leaves, total, err := s.leafRepo.StreamByAuthor(scope, username, (page-1)*perPage, perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to load author stream: %w", err)
	}
	return buildStreamPage(leaves, total, page, perPage), nil
}

func (s *LeafService) cacheable(scope repository.LeafScope) bool {
	return s.cache != nil && !scope.Bypass && scope.Viewer == nil && scope.AsOf.IsZero()
}

// streamCacheKey keys a cached stream page. It carries cache.StreamKeyPrefix
// so write-side InvalidateStreams actually matches it.
func streamCacheKey(scope repository.LeafScope, page, perPage int) string {
	return cache.StreamKeyPrefix + fmt.Sprintf("site:%d:lang:%s:page:%d:per:%d",
		scope.SiteID, scope.Language, page, perPage)
}

func buildStreamPage(leaves []models.Leaf, total int64, page, perPage int) *StreamPage {
	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return &StreamPage{
		Leaves:     leaves,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}
}

func normalizePaging(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}

// Published returns every leaf visible in the scope, streamworthy or not.
// The sitemap builds from this.
func (s *LeafService) Published(scope repository.LeafScope) ([]models.Leaf, error) {
	return s.leafRepo.Published(scope)
}

// StreamAll returns the scope's full stream without paging, for feeds.
func (s *LeafService) StreamAll(scope repository.LeafScope) ([]models.Leaf, error) {
	return s.leafRepo.Stream(scope)
}

// GetByID loads a leaf and enforces the scope's visibility on it.
func (s *LeafService) GetByID(id uint, scope repository.LeafScope) (*models.Leaf, error) {
	leaf, err := s.leafRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !scope.Includes(leaf) {
		return nil, ErrLeafNotVisible
	}
	return leaf, nil
}

// ResolveCustomURL finds the leaf claiming the given path as its custom URL,
// visible in the given scope. Paths are compared with the leading slash and
// without a trailing one, matching how authors enter them.
func (s *LeafService) ResolveCustomURL(path string, scope repository.LeafScope) (*models.Leaf, error) {
	leaf, err := s.leafRepo.GetByCustomURL(NormalizeCustomURL(path))
	if err != nil {
		return nil, err
	}
	if !scope.Includes(leaf) {
		return nil, ErrLeafNotVisible
	}
	return leaf, nil
}

// Translations returns the visible translations of the given leaf's root.
func (s *LeafService) Translations(leaf *models.Leaf, scope repository.LeafScope) ([]models.Leaf, error) {
	rootID := leaf.ID
	if leaf.TranslationOfID != nil {
		rootID = *leaf.TranslationOfID
	}

	all, err := s.leafRepo.Translations(rootID)
	if err != nil {
		return nil, err
	}

	visible := make([]models.Leaf, 0, len(all))
	for i := range all {
		translated := scope
		translated.Language = all[i].Language
		if translated.Includes(&all[i]) {
			visible = append(visible, all[i])
		}
	}
	return visible, nil
}

func (s *LeafService) Delete(id uint) error {
	if err := s.leafRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete leaf: %w", err)
	}
	if s.cache != nil {
		s.cache.InvalidateStreams()
	}
	return nil
}

// NormalizeCustomURL canonicalizes an author-entered URL override: leading
// slash present, trailing slash absent, no surrounding whitespace.
func NormalizeCustomURL(raw string) string {
	url := strings.TrimSpace(raw)
	if url == "" {
		return ""
	}
	if !strings.HasPrefix(url, "/") {
		url = "/" + url
	}
	if url != "/" {
		url = strings.TrimSuffix(url, "/")
	}
	return url
}
