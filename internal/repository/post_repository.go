package repository

import (
	"gorm.io/gorm"

	"leaves-cms/internal/models"
)

var postPreloads = []string{"Leaf", "Leaf.Author", "Leaf.Sites", "Leaf.Tags", "Leaf.Attachments"}

type PostRepository interface {
	Create(post *models.Post) error
	Update(post *models.Post) error
	GetByID(id uint) (*models.Post, error)
	GetBySlug(slug string) (*models.Post, error)
	GetByLeafID(leafID uint) (*models.Post, error)
	Published(scope LeafScope) ([]models.Post, error)
	ExistsBySlug(slug string, excludeID uint) (bool, error)
	All() ([]models.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(post *models.Post) error {
	post.Leaf.Type = models.LeafTypePost
	return r.db.Create(post).Error
}

func (r *postRepository) Update(post *models.Post) error {
	post.Leaf.Type = models.LeafTypePost
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(&post.Leaf).Error; err != nil {
			return err
		}
		return tx.Omit("Leaf").Save(post).Error
	})
}

func (r *postRepository) GetByID(id uint) (*models.Post, error) {
	var post models.Post
	err := preloadAll(r.db, postPreloads).First(&post, id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// GetBySlug is the natural-key lookup behind the canonical post URL. The
// year and month segments are presentation only, the slug alone identifies
// the post.
func (r *postRepository) GetBySlug(slug string) (*models.Post, error) {
	var post models.Post
	err := preloadAll(r.db, postPreloads).
		Where("LOWER(slug) = LOWER(?)", slug).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetByLeafID(leafID uint) (*models.Post, error) {
	var post models.Post
	err := preloadAll(r.db, postPreloads).
		Where("leaf_id = ?", leafID).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Published(scope LeafScope) ([]models.Post, error) {
	var posts []models.Post
	query := r.db.Model(&models.Post{}).
		Joins("JOIN leaves ON leaves.id = posts.leaf_id AND leaves.deleted_at IS NULL")
	query = scope.apply(query)
	err := preloadAll(query, postPreloads).
		Order(leafOrdering).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) ExistsBySlug(slug string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.Model(&models.Post{}).Where("slug = ?", slug)
	if excludeID != 0 {
		query = query.Where("id != ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *postRepository) All() ([]models.Post, error) {
	var posts []models.Post
	err := preloadAll(r.db, postPreloads).
		Joins("JOIN leaves ON leaves.id = posts.leaf_id").
		Order(leafOrdering).
		Find(&posts).Error
	return posts, err
}
