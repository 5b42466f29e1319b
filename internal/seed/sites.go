package seed

import (
	"errors"

	"gorm.io/gorm"

	"leaves-cms/internal/models"
	"leaves-cms/internal/repository"
	"leaves-cms/pkg/logger"
)

// EnsureDefaultSite creates the default site row when the table is empty,
// so a fresh install answers requests immediately.
func EnsureDefaultSite(siteRepo repository.SiteRepository, domain string) {
	if siteRepo == nil || domain == "" {
		return
	}

	_, err := siteRepo.GetByDomain(domain)
	if err == nil {
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error(err, "Failed to check default site", nil)
		return
	}

	site := &models.Site{Domain: domain, Name: domain}
	if err := siteRepo.Create(site); err != nil {
		logger.Error(err, "Failed to create default site", map[string]interface{}{"domain": domain})
		return
	}

	logger.Info("Created default site", map[string]interface{}{
		"id":     site.ID,
		"domain": site.Domain,
	})
}
