package service

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"gorm.io/gorm"

	"leaves-cms/internal/models"
	"leaves-cms/internal/repository"
	"leaves-cms/pkg/logger"
)

var ErrNoMatchingSite = errors.New("no site matches the requested host")

// SiteService resolves request hosts to sites and owns the per-site
// preferences. The site table is tiny and read on every request, so the
// service keeps an in-process copy and reloads it only after a write.
type SiteService struct {
	siteRepo repository.SiteRepository

	mu     sync.RWMutex
	sites  []models.Site
	loaded bool

	defaultDomain string
}

func NewSiteService(siteRepo repository.SiteRepository, defaultDomain string) *SiteService {
	return &SiteService{
		siteRepo:      siteRepo,
		defaultDomain: strings.ToLower(defaultDomain),
	}
}

// ResolveHost picks the site whose domain matches the request host. A site
// matches when its domain equals the host or is a suffix of it preceded by a
// dot, so "example.com" serves "www.example.com" too. Among several matches
// the longest domain wins. When nothing matches, the configured default
// domain's site is returned.
func (s *SiteService) ResolveHost(host string) (*models.Site, error) {
	sites, err := s.all()
	if err != nil {
		return nil, err
	}

	host = normalizeHost(host)

	var best *models.Site
	for i := range sites {
		domain := strings.ToLower(sites[i].Domain)
		if host != domain && !strings.HasSuffix(host, "."+domain) {
			continue
		}
		if best == nil || len(domain) > len(best.Domain) {
			best = &sites[i]
		}
	}
	if best != nil {
		return best, nil
	}

	for i := range sites {
		if strings.ToLower(sites[i].Domain) == s.defaultDomain {
			return &sites[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrNoMatchingSite, host)
}

func normalizeHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.TrimSuffix(host, "."))
}

func (s *SiteService) all() ([]models.Site, error) {
	s.mu.RLock()
	if s.loaded {
		sites := s.sites
		s.mu.RUnlock()
		return sites, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.sites, nil
	}

	sites, err := s.siteRepo.All()
	if err != nil {
		return nil, fmt.Errorf("failed to load sites: %w", err)
	}
	s.sites = sites
	s.loaded = true
	return sites, nil
}

// Invalidate drops the in-process copy. Every site or preferences write goes
// through here.
func (s *SiteService) Invalidate() {
	s.mu.Lock()
	s.sites = nil
	s.loaded = false
	s.mu.Unlock()
}

func (s *SiteService) List() ([]models.Site, error) {
	return s.all()
}

func (s *SiteService) GetByID(id uint) (*models.Site, error) {
	return s.siteRepo.GetByID(id)
}

func (s *SiteService) Create(req models.CreateSiteRequest) (*models.Site, error) {
	domain := normalizeHost(req.Domain)
	if domain == "" {
		return nil, errors.New("site domain is required")
	}

	if _, err := s.siteRepo.GetByDomain(domain); err == nil {
		return nil, errors.New("site with this domain already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	site := &models.Site{Domain: domain, Name: req.Name}
	if err := s.siteRepo.Create(site); err != nil {
		return nil, fmt.Errorf("failed to create site: %w", err)
	}

	s.Invalidate()
	logger.Info("Site created", map[string]interface{}{"domain": domain, "site_id": site.ID})
	return site, nil
}

func (s *SiteService) Delete(id uint) error {
	if err := s.siteRepo.Delete(id); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// Preferences returns the site's preferences row, falling back to defaults
// when the row is missing.
func (s *SiteService) Preferences(siteID uint) (*models.Preferences, error) {
	prefs, err := s.siteRepo.GetPreferences(siteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			defaults := models.DefaultPreferences(siteID)
			return &defaults, nil
		}
		return nil, err
	}
	return prefs, nil
}

func (s *SiteService) UpdatePreferences(siteID uint, req models.UpdatePreferencesRequest) (*models.Preferences, error) {
	prefs, err := s.siteRepo.GetPreferences(siteID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		defaults := models.DefaultPreferences(siteID)
		prefs = &defaults
	}

	if req.Homepage != nil {
		prefs.Homepage = *req.Homepage
	}
	if req.Theme != nil {
		prefs.Theme = *req.Theme
	}
	if req.StreamCount != nil {
		prefs.StreamCount = *req.StreamCount
	}
	if req.FeedCount != nil {
		prefs.FeedCount = *req.FeedCount
	}
	if req.AnalyticsID != nil {
		prefs.AnalyticsID = *req.AnalyticsID
	}
	if req.DefaultLanguage != nil {
		prefs.DefaultLanguage = *req.DefaultLanguage
	}
	if req.DefaultCommentStatus != nil {
		prefs.DefaultCommentStatus = *req.DefaultCommentStatus
	}

	if err := s.siteRepo.UpdatePreferences(prefs); err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}

	s.Invalidate()
	return prefs, nil
}
