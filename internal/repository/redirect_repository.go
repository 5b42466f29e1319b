package repository

import (
	"gorm.io/gorm"

	"leaves-cms/internal/models"
)

type RedirectRepository interface {
	GetByPath(siteID uint, oldPath string) (*models.Redirect, error)
	GetByID(id uint) (*models.Redirect, error)
	ListBySite(siteID uint) ([]models.Redirect, error)
	Create(redirect *models.Redirect) error
	Update(redirect *models.Redirect) error
	Delete(id uint) error
	ExistsByPath(siteID uint, oldPath string, excludeID uint) (bool, error)
}

type redirectRepository struct {
	db *gorm.DB
}

func NewRedirectRepository(db *gorm.DB) RedirectRepository {
	return &redirectRepository{db: db}
}

// GetByPath is the lookup the fallback chain runs on a miss. The match is
// exact on the stored path, which always starts with a slash.
func (r *redirectRepository) GetByPath(siteID uint, oldPath string) (*models.Redirect, error) {
	var redirect models.Redirect
	err := r.db.Where("site_id = ? AND old_path = ?", siteID, oldPath).
		First(&redirect).Error
	if err != nil {
		return nil, err
	}
	return &redirect, nil
}

func (r *redirectRepository) GetByID(id uint) (*models.Redirect, error) {
	var redirect models.Redirect
	err := r.db.First(&redirect, id).Error
	if err != nil {
		return nil, err
	}
	return &redirect, nil
}

func (r *redirectRepository) ListBySite(siteID uint) ([]models.Redirect, error) {
	var redirects []models.Redirect
	err := r.db.Where("site_id = ?", siteID).
		Order("old_path ASC").
		Find(&redirects).Error
	return redirects, err
}

func (r *redirectRepository) Create(redirect *models.Redirect) error {
	return r.db.Create(redirect).Error
}

func (r *redirectRepository) Update(redirect *models.Redirect) error {
	return r.db.Save(redirect).Error
}

func (r *redirectRepository) Delete(id uint) error {
	return r.db.Unscoped().Delete(&models.Redirect{}, id).Error
}

func (r *redirectRepository) ExistsByPath(siteID uint, oldPath string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.Model(&models.Redirect{}).
		Where("site_id = ? AND old_path = ?", siteID, oldPath)
	if excludeID != 0 {
		query = query.Where("id != ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}
