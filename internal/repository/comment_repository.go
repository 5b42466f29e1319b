package repository

import (
	"gorm.io/gorm"

	"leaves-cms/internal/models"
)

type CommentRepository interface {
	Create(comment *models.Comment) error
	GetByID(id uint) (*models.Comment, error)
	GetForLeaf(leafID uint) ([]models.Comment, error)
	ListByStatus(status string, offset, limit int) ([]models.Comment, int64, error)
	BelongsToLeaf(commentID, leafID uint) (bool, error)
	UpdateStatus(id uint, status string) error
	Delete(id uint) error
	CountPublished(leafID uint) (int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

func (r *commentRepository) GetByID(id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.Preload("User").First(&comment, id).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetForLeaf returns the leaf's published thread, oldest first. Replies are
// loaded with the same status filter so a moderated reply never surfaces
// under a published parent.
func (r *commentRepository) GetForLeaf(leafID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.
		Where("leaf_id = ? AND status = ? AND reply_to_id IS NULL",
			leafID, models.CommentStatusPublished).
		Preload("User").
		Preload("Replies", "status = ?", models.CommentStatusPublished).
		Preload("Replies.User").
		Order("date_posted ASC").
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) ListByStatus(status string, offset, limit int) ([]models.Comment, int64, error) {
	query := r.db.Model(&models.Comment{}).Where("status = ?", status)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var comments []models.Comment
	err := query.Preload("User").
		Order("date_posted DESC").
		Offset(offset).Limit(limit).
		Find(&comments).Error
	return comments, total, err
}

func (r *commentRepository) BelongsToLeaf(commentID, leafID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Comment{}).
		Where("id = ? AND leaf_id = ?", commentID, leafID).
		Count(&count).Error
	return count > 0, err
}

func (r *commentRepository) UpdateStatus(id uint, status string) error {
	result := r.db.Model(&models.Comment{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *commentRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("reply_to_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Comment{}, id).Error
	})
}

func (r *commentRepository) CountPublished(leafID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Comment{}).
		Where("leaf_id = ? AND status = ?", leafID, models.CommentStatusPublished).
		Count(&count).Error
	return count, err
}
