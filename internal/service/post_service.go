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

type PostService struct {
	postRepo repository.PostRepository
	writer   leafWriter
	cache    *cache.Cache
}

func NewPostService(
	postRepo repository.PostRepository,
	leafRepo repository.LeafRepository,
	siteRepo repository.SiteRepository,
	tagRepo repository.TagRepository,
	cacheService *cache.Cache,
	defaultStatus string,
) *PostService {
	return &PostService{
		postRepo: postRepo,
		writer: leafWriter{
			leafRepo:      leafRepo,
			siteRepo:      siteRepo,
			tagRepo:       tagRepo,
			defaultStatus: defaultStatus,
		},
		cache: cacheService,
	}
}

func (s *PostService) Create(req models.CreatePostRequest, authorID uint) (*models.Post, error) {
	slug := req.Slug
	if slug == "" {
		slug = utils.GenerateSlug(req.Title)
	}
	if slug == "" {
		return nil, errors.New("post title must produce a non-empty slug")
	}

	exists, err := s.postRepo.ExistsBySlug(slug, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to check post existence: %w", err)
	}
	if exists {
		return nil, errors.New("post with this slug already exists")
	}

	post := &models.Post{
		Title:   validator.SanitizeString(req.Title),
		Slug:    slug,
		Summary: validator.SanitizeHTML(req.Summary),
		Content: validator.SanitizeHTML(req.Content),
	}

	post.Leaf.AuthorID = authorID
	if err := s.writer.applyFields(&post.Leaf, req.LeafFields); err != nil {
		return nil, err
	}

	if err := s.postRepo.Create(post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.invalidate(post)
	logger.Info("Post created", map[string]interface{}{"post_id": post.ID, "slug": post.Slug})
	return post, nil
}

func (s *PostService) Update(id uint, req models.UpdatePostRequest) (*models.Post, error) {
	post, err := s.postRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		post.Title = validator.SanitizeString(*req.Title)
	}
	if req.Summary != nil {
		post.Summary = validator.SanitizeHTML(*req.Summary)
	}
	if req.Content != nil {
		post.Content = validator.SanitizeHTML(*req.Content)
	}

	if err := s.writer.applyFields(&post.Leaf, req.LeafFields); err != nil {
		return nil, err
	}

	if err := s.postRepo.Update(post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	s.invalidate(post)
	return post, nil
}

func (s *PostService) GetByID(id uint) (*models.Post, error) {
	return s.postRepo.GetByID(id)
}

// GetBySlug serves the canonical post view. The year and month URL segments
// are validated by the handler against the loaded publish date; the slug is
// the lookup key.
func (s *PostService) GetBySlug(slug string, scope repository.LeafScope) (*models.Post, error) {
	if s.cache != nil {
		var cached models.Post
		if err := s.cache.GetCachedLeaf(models.LeafTypePost, slug, &cached); err == nil {
			if !scope.Includes(&cached.Leaf) {
				return nil, ErrLeafNotVisible
			}
			return &cached, nil
		}
	}

	post, err := s.postRepo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.CacheLeaf(models.LeafTypePost, slug, post)
	}
	if !scope.Includes(&post.Leaf) {
		return nil, ErrLeafNotVisible
	}
	return post, nil
}

func (s *PostService) Published(scope repository.LeafScope) ([]models.Post, error) {
	return s.postRepo.Published(scope)
}

func (s *PostService) All() ([]models.Post, error) {
	return s.postRepo.All()
}

func (s *PostService) invalidate(post *models.Post) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateLeaf(models.LeafTypePost, post.Slug)
	s.cache.InvalidateStreams()
}
