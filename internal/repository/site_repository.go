package repository

import (
	"gorm.io/gorm"

	"leaves-cms/internal/models"
)

type SiteRepository interface {
	All() ([]models.Site, error)
	GetByID(id uint) (*models.Site, error)
	GetByDomain(domain string) (*models.Site, error)
	Create(site *models.Site) error
	Update(site *models.Site) error
	Delete(id uint) error
	GetPreferences(siteID uint) (*models.Preferences, error)
	UpdatePreferences(prefs *models.Preferences) error
}

type siteRepository struct {
	db *gorm.DB
}

func NewSiteRepository(db *gorm.DB) SiteRepository {
	return &siteRepository{db: db}
}

func (r *siteRepository) All() ([]models.Site, error) {
	var sites []models.Site
	err := r.db.Preload("Preferences").Order("domain ASC").Find(&sites).Error
	return sites, err
}

func (r *siteRepository) GetByID(id uint) (*models.Site, error) {
	var site models.Site
	err := r.db.Preload("Preferences").First(&site, id).Error
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *siteRepository) GetByDomain(domain string) (*models.Site, error) {
	var site models.Site
	err := r.db.Preload("Preferences").
		Where("LOWER(domain) = LOWER(?)", domain).
		First(&site).Error
	if err != nil {
		return nil, err
	}
	return &site, nil
}

// Create saves the site and, unless the caller supplied one, a default
// preferences row. Every site always has preferences.
func (r *siteRepository) Create(site *models.Site) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Preferences").Create(site).Error; err != nil {
			return err
		}
		if site.Preferences.ID == 0 {
			site.Preferences = models.DefaultPreferences(site.ID)
		}
		site.Preferences.SiteID = site.ID
		return tx.Create(&site.Preferences).Error
	})
}

func (r *siteRepository) Update(site *models.Site) error {
	return r.db.Save(site).Error
}

func (r *siteRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("site_id = ?", id).Delete(&models.Preferences{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("site_id = ?", id).Delete(&models.Redirect{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM leaf_sites WHERE site_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Site{}, id).Error
	})
}

func (r *siteRepository) GetPreferences(siteID uint) (*models.Preferences, error) {
	var prefs models.Preferences
	err := r.db.Where("site_id = ?", siteID).First(&prefs).Error
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (r *siteRepository) UpdatePreferences(prefs *models.Preferences) error {
	return r.db.Save(prefs).Error
}
