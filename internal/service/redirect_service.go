package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"leaves-cms/internal/models"
	"leaves-cms/internal/repository"
)

var ErrRedirectExists = errors.New("a redirect for this path already exists")

type RedirectService struct {
	redirectRepo repository.RedirectRepository
	siteRepo     repository.SiteRepository
}

func NewRedirectService(redirectRepo repository.RedirectRepository, siteRepo repository.SiteRepository) *RedirectService {
	return &RedirectService{
		redirectRepo: redirectRepo,
		siteRepo:     siteRepo,
	}
}

// Lookup finds the redirect covering the given request path on the site.
// Both the exact path and its slash-variant are tried, so one row covers
// "/old" and "/old/".
func (s *RedirectService) Lookup(siteID uint, path string) (*models.Redirect, error) {
	redirect, err := s.redirectRepo.GetByPath(siteID, path)
	if err == nil {
		return redirect, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	variant := strings.TrimSuffix(path, "/")
	if variant == path {
		variant = path + "/"
	}
	if variant == "" {
		return nil, gorm.ErrRecordNotFound
	}
	return s.redirectRepo.GetByPath(siteID, variant)
}

func (s *RedirectService) Create(req models.CreateRedirectRequest) (*models.Redirect, error) {
	if _, err := s.siteRepo.GetByID(req.SiteID); err != nil {
		return nil, fmt.Errorf("site not found: %w", err)
	}

	oldPath := normalizeRedirectPath(req.OldPath)
	if oldPath == "" {
		return nil, errors.New("old path is required")
	}

	redirectType := req.RedirectType
	if redirectType == 0 {
		redirectType = models.RedirectMovedPermanently
	}

	newPath := strings.TrimSpace(req.NewPath)
	if newPath == "" && redirectType != models.RedirectGone {
		redirectType = models.RedirectGone
	}

	exists, err := s.redirectRepo.ExistsByPath(req.SiteID, oldPath, 0)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrRedirectExists
	}

	redirect := &models.Redirect{
		SiteID:       req.SiteID,
		OldPath:      oldPath,
		NewPath:      newPath,
		RedirectType: redirectType,
	}
	if err := s.redirectRepo.Create(redirect); err != nil {
		return nil, fmt.Errorf("failed to create redirect: %w", err)
	}
	return redirect, nil
}

func (s *RedirectService) ListBySite(siteID uint) ([]models.Redirect, error) {
	return s.redirectRepo.ListBySite(siteID)
}

func (s *RedirectService) Delete(id uint) error {
	return s.redirectRepo.Delete(id)
}

func normalizeRedirectPath(raw string) string {
	path := strings.TrimSpace(raw)
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
