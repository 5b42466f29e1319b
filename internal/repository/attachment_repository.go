package repository

import (
	"gorm.io/gorm"

	"leaves-cms/internal/models"
)

type AttachmentRepository interface {
	Create(attachment *models.Attachment) error
	GetByID(id uint) (*models.Attachment, error)
	GetByLeafID(leafID uint) ([]models.Attachment, error)
	IncrementDownloads(id uint) error
	Delete(id uint) error
}

type attachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(attachment *models.Attachment) error {
	return r.db.Create(attachment).Error
}

func (r *attachmentRepository) GetByID(id uint) (*models.Attachment, error) {
	var attachment models.Attachment
	err := r.db.First(&attachment, id).Error
	if err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (r *attachmentRepository) GetByLeafID(leafID uint) ([]models.Attachment, error) {
	var attachments []models.Attachment
	err := r.db.Where("leaf_id = ?", leafID).
		Order("rank ASC, title ASC, file_name ASC").
		Find(&attachments).Error
	return attachments, err
}

// IncrementDownloads bumps the counter atomically in SQL so concurrent
// downloads never lose updates.
func (r *attachmentRepository) IncrementDownloads(id uint) error {
	return r.db.Model(&models.Attachment{}).
		Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error
}

func (r *attachmentRepository) Delete(id uint) error {
	return r.db.Unscoped().Delete(&models.Attachment{}, id).Error
}
