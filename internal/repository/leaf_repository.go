package repository

import (
	"time"

	"gorm.io/gorm"

	"leaves-cms/internal/models"
)

// leafPreloads is the static eager-load set for leaf queries. Both concrete
// payload relations are always loaded so type dispatch never triggers a
// follow-up query per row.
var leafPreloads = []string{"Author", "Sites", "Tags", "Page", "Post"}

const leafOrdering = "leaves.date_published DESC, leaves.id DESC"

type LeafRepository interface {
	Published(scope LeafScope) ([]models.Leaf, error)
	Stream(scope LeafScope) ([]models.Leaf, error)
	StreamPaged(scope LeafScope, offset, limit int) ([]models.Leaf, int64, error)
	StreamByTag(scope LeafScope, tagSlug string, offset, limit int) ([]models.Leaf, int64, error)
	StreamByAuthor(scope LeafScope, username string, offset, limit int) ([]models.Leaf, int64, error)
	GetByID(id uint) (*models.Leaf, error)
	GetByCustomURL(url string) (*models.Leaf, error)
	ExistsByCustomURL(language, customURL string, excludeLeafID uint) (bool, error)
	Translations(rootLeafID uint) ([]models.Leaf, error)
	Delete(id uint) error
}

type leafRepository struct {
	db *gorm.DB
}

func NewLeafRepository(db *gorm.DB) LeafRepository {
	return &leafRepository{db: db}
}

func (r *leafRepository) scoped(scope LeafScope) *gorm.DB {
	query := r.db.Model(&models.Leaf{})
	query = scope.apply(query)
	for _, relation := range leafPreloads {
		query = query.Preload(relation)
	}
	return query.Order(leafOrdering)
}

func (r *leafRepository) Published(scope LeafScope) ([]models.Leaf, error) {
	var leaves []models.Leaf
	err := r.scoped(scope).Find(&leaves).Error
	return leaves, err
}

func (r *leafRepository) Stream(scope LeafScope) ([]models.Leaf, error) {
	var leaves []models.Leaf
	err := r.scoped(scope).Where("leaves.show_in_stream = ?", true).Find(&leaves).Error
	return leaves, err
}

func (r *leafRepository) StreamPaged(scope LeafScope, offset, limit int) ([]models.Leaf, int64, error) {
	query := r.scoped(scope).Where("leaves.show_in_stream = ?", true)
	return r.paged(query, offset, limit)
}

func (r *leafRepository) StreamByTag(scope LeafScope, tagSlug string, offset, limit int) ([]models.Leaf, int64, error) {
	query := r.scoped(scope).
		Where("leaves.show_in_stream = ?", true).
		Joins("JOIN leaf_tags ON leaf_tags.leaf_id = leaves.id").
		Joins("JOIN tags ON tags.id = leaf_tags.tag_id").
		Where("tags.slug = ?", tagSlug)
	return r.paged(query, offset, limit)
}

func (r *leafRepository) StreamByAuthor(scope LeafScope, username string, offset, limit int) ([]models.Leaf, int64, error) {
	query := r.scoped(scope).
		Where("leaves.show_in_stream = ?", true).
		Joins("JOIN users ON users.id = leaves.author_id").
		Where("LOWER(users.username) = LOWER(?)", username)
	return r.paged(query, offset, limit)
}

func (r *leafRepository) paged(query *gorm.DB, offset, limit int) ([]models.Leaf, int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var leaves []models.Leaf
	err := query.Offset(offset).Limit(limit).Find(&leaves).Error
	return leaves, total, err
}

func (r *leafRepository) GetByID(id uint) (*models.Leaf, error) {
	var leaf models.Leaf
	query := r.db
	for _, relation := range leafPreloads {
		query = query.Preload(relation)
	}
	err := query.First(&leaf, id).Error
	if err != nil {
		return nil, err
	}
	return &leaf, nil
}

// GetByCustomURL looks up a leaf by its author-assigned URL override. The
// match is exact and language-agnostic; the (language, custom_url) uniqueness
// constraint keeps it unambiguous per language.
func (r *leafRepository) GetByCustomURL(url string) (*models.Leaf, error) {
	var leaf models.Leaf
	query := r.db.Where("custom_url = ?", url)
	for _, relation := range leafPreloads {
		query = query.Preload(relation)
	}
	err := query.First(&leaf).Error
	if err != nil {
		return nil, err
	}
	return &leaf, nil
}

func (r *leafRepository) ExistsByCustomURL(language, customURL string, excludeLeafID uint) (bool, error) {
	if customURL == "" {
		return false, nil
	}

	var count int64
	query := r.db.Model(&models.Leaf{}).
		Where("language = ? AND custom_url = ?", language, customURL)
	if excludeLeafID != 0 {
		query = query.Where("id != ?", excludeLeafID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *leafRepository) Translations(rootLeafID uint) ([]models.Leaf, error) {
	var leaves []models.Leaf
	query := r.db.Where("translation_of_id = ?", rootLeafID)
	for _, relation := range leafPreloads {
		query = query.Preload(relation)
	}
	err := query.Order("leaves.language ASC").Find(&leaves).Error
	return leaves, err
}

// Delete removes the leaf together with its owned rows. The concrete payload
// and the association tables are cleaned up in the same transaction; author
// and translation references are never cascaded.
func (r *leafRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM leaf_tags WHERE leaf_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM leaf_sites WHERE leaf_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("leaf_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("leaf_id = ?", id).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("leaf_id = ?", id).Delete(&models.LeafMeta{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("leaf_id = ?", id).Delete(&models.Page{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("leaf_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Leaf{}, id).Error
	})
}

// LeafWindow limits sitemap and feed queries to rows published before the
// given instant without loading the full relation set.
func LeafWindow(db *gorm.DB, siteID uint, asOf time.Time) *gorm.DB {
	return db.Model(&models.Leaf{}).
		Joins("JOIN leaf_sites ON leaf_sites.leaf_id = leaves.id").
		Where("leaf_sites.site_id = ?", siteID).
		Where(publishedCond, models.StatusPublished, asOf, asOf)
}
