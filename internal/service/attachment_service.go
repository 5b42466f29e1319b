package service

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"leaves-cms/internal/models"
	"leaves-cms/internal/repository"
	"leaves-cms/pkg/logger"
)

const maxAttachmentSize = 50 << 20

var ErrAttachmentTooLarge = errors.New("attachment exceeds the size limit")

// AttachmentService stores uploaded files under a per-leaf directory with
// random names, keeping the original file name only as metadata.
type AttachmentService struct {
	attachmentRepo repository.AttachmentRepository
	leafRepo       repository.LeafRepository
	baseDir        string

	// SkipChecksum leaves MD5Checksum empty on upload, for very large
	// files where hashing at upload time is not worth it.
	SkipChecksum bool
}

func NewAttachmentService(
	attachmentRepo repository.AttachmentRepository,
	leafRepo repository.LeafRepository,
	baseDir string,
) *AttachmentService {
	return &AttachmentService{
		attachmentRepo: attachmentRepo,
		leafRepo:       leafRepo,
		baseDir:        baseDir,
	}
}

func (s *AttachmentService) Upload(leafID uint, file *multipart.FileHeader, title string, rank int) (*models.Attachment, error) {
	if file.Size > maxAttachmentSize {
		return nil, ErrAttachmentTooLarge
	}

	if _, err := s.leafRepo.GetByID(leafID); err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	dir := filepath.Join(s.baseDir, fmt.Sprintf("leaf-%d", leafID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create attachment dir: %w", err)
	}

	storedName := uuid.New().String() + strings.ToLower(filepath.Ext(file.Filename))
	storedPath := filepath.Join(dir, storedName)

	dst, err := os.Create(storedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachment file: %w", err)
	}
	defer dst.Close()

	var checksum string
	if s.SkipChecksum {
		if _, err := io.Copy(dst, src); err != nil {
			os.Remove(storedPath)
			return nil, fmt.Errorf("failed to write attachment: %w", err)
		}
	} else {
		hasher := md5.New()
		if _, err := io.Copy(io.MultiWriter(dst, hasher), src); err != nil {
			os.Remove(storedPath)
			return nil, fmt.Errorf("failed to write attachment: %w", err)
		}
		checksum = hex.EncodeToString(hasher.Sum(nil))
	}

	attachment := &models.Attachment{
		LeafID:      leafID,
		FileName:    filepath.Base(file.Filename),
		Title:       title,
		StoredPath:  storedPath,
		MD5Checksum: checksum,
		Rank:        rank,
	}
	if err := s.attachmentRepo.Create(attachment); err != nil {
		os.Remove(storedPath)
		return nil, fmt.Errorf("failed to save attachment: %w", err)
	}

	logger.Info("Attachment uploaded", map[string]interface{}{
		"attachment_id": attachment.ID, "leaf_id": leafID, "file": attachment.FileName})
	return attachment, nil
}

// Open returns the attachment row and a reader on its stored file, counting
// the download.
func (s *AttachmentService) Open(id uint) (*models.Attachment, *os.File, error) {
	attachment, err := s.attachmentRepo.GetByID(id)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(attachment.StoredPath)
	if err != nil {
		return nil, nil, fmt.Errorf("attachment file missing: %w", err)
	}

	if err := s.attachmentRepo.IncrementDownloads(id); err != nil {
		logger.Warn("Failed to count download", map[string]interface{}{
			"attachment_id": id, "error": err.Error()})
	}
	return attachment, f, nil
}

func (s *AttachmentService) ForLeaf(leafID uint) ([]models.Attachment, error) {
	return s.attachmentRepo.GetByLeafID(leafID)
}

func (s *AttachmentService) Delete(id uint) error {
	attachment, err := s.attachmentRepo.GetByID(id)
	if err != nil {
		return err
	}
	if err := s.attachmentRepo.Delete(id); err != nil {
		return err
	}
	if err := os.Remove(attachment.StoredPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove attachment file", map[string]interface{}{
			"attachment_id": id, "path": attachment.StoredPath})
	}
	return nil
}
