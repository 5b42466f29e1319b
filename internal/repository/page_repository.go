package repository

import (
	"gorm.io/gorm"

	"leaves-cms/internal/models"
)

// pagePreloads is the static eager-load set for page queries.
var pagePreloads = []string{"Leaf", "Leaf.Author", "Leaf.Sites", "Leaf.Tags", "Leaf.Attachments"}

type PageRepository interface {
	Create(page *models.Page) error
	Update(page *models.Page) error
	GetByID(id uint) (*models.Page, error)
	GetBySlug(slug string) (*models.Page, error)
	GetByLeafID(leafID uint) (*models.Page, error)
	Published(scope LeafScope) ([]models.Page, error)
	Navigation(scope LeafScope) ([]models.Page, error)
	ExistsBySlug(slug string, excludeID uint) (bool, error)
	All() ([]models.Page, error)
}

type pageRepository struct {
	db *gorm.DB
}

func NewPageRepository(db *gorm.DB) PageRepository {
	return &pageRepository{db: db}
}

// Create persists the page with its leaf row. The type discriminator is set
// here, from the concrete type being saved, never by the caller.
func (r *pageRepository) Create(page *models.Page) error {
	page.Leaf.Type = models.LeafTypePage
	return r.db.Create(page).Error
}

func (r *pageRepository) Update(page *models.Page) error {
	page.Leaf.Type = models.LeafTypePage
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(&page.Leaf).Error; err != nil {
			return err
		}
		return tx.Omit("Leaf").Save(page).Error
	})
}

func (r *pageRepository) GetByID(id uint) (*models.Page, error) {
	var page models.Page
	err := preloadAll(r.db, pagePreloads).First(&page, id).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetBySlug is the natural-key lookup used by fixtures and canonical views.
func (r *pageRepository) GetBySlug(slug string) (*models.Page, error) {
	var page models.Page
	err := preloadAll(r.db, pagePreloads).
		Where("LOWER(slug) = LOWER(?)", slug).
		First(&page).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *pageRepository) GetByLeafID(leafID uint) (*models.Page, error) {
	var page models.Page
	err := preloadAll(r.db, pagePreloads).
		Where("leaf_id = ?", leafID).
		First(&page).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// Published lists the scope's visible pages. Pages override the default
// publish-date ordering with their explicit rank.
func (r *pageRepository) Published(scope LeafScope) ([]models.Page, error) {
	var pages []models.Page
	err := r.scoped(scope).
		Order("pages.rank ASC, pages.title ASC").
		Find(&pages).Error
	return pages, err
}

// Navigation lists the visible pages flagged for site navigation.
func (r *pageRepository) Navigation(scope LeafScope) ([]models.Page, error) {
	var pages []models.Page
	err := r.scoped(scope).
		Where("pages.show_in_navigation = ?", true).
		Order("pages.rank ASC, pages.title ASC").
		Find(&pages).Error
	return pages, err
}

func (r *pageRepository) scoped(scope LeafScope) *gorm.DB {
	query := r.db.Model(&models.Page{}).
		Joins("JOIN leaves ON leaves.id = pages.leaf_id AND leaves.deleted_at IS NULL")
	query = scope.apply(query)
	return preloadAll(query, pagePreloads)
}

func (r *pageRepository) ExistsBySlug(slug string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.Model(&models.Page{}).Where("slug = ?", slug)
	if excludeID != 0 {
		query = query.Where("id != ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *pageRepository) All() ([]models.Page, error) {
	var pages []models.Page
	err := preloadAll(r.db, pagePreloads).
		Order("pages.rank ASC, pages.title ASC").
		Find(&pages).Error
	return pages, err
}

func preloadAll(db *gorm.DB, relations []string) *gorm.DB {
	for _, relation := range relations {
		db = db.Preload(relation)
	}
	return db
}
