package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leaves-cms/internal/background"
	"leaves-cms/internal/models"
	"leaves-cms/internal/repository"
	"leaves-cms/pkg/logger"
	"leaves-cms/pkg/validator"
)

var (
	ErrCommentsClosed = errors.New("comments are closed for this leaf")
	ErrReplyWrongLeaf = errors.New("reply target belongs to a different leaf")
	ErrInvalidComment = errors.New("invalid comment")
	ErrUnknownStatus  = errors.New("unknown comment status")
)

const (
	maxCommentBodyLen = 10000
	maxAuthorNameLen  = 50
)

// AdminNotifier delivers fire-and-forget administrator alerts.
type AdminNotifier interface {
	Enabled() bool
	SendAdmins(subject, body string) error
}

// CommentService implements the submission pipeline: visibility check,
// validation, honeypot, status assignment and the async admin notification.
type CommentService struct {
	commentRepo repository.CommentRepository
	leafRepo    repository.LeafRepository
	siteService *SiteService
	notifier    AdminNotifier
	scheduler   *background.Scheduler

	// leafURL builds the destination URL carried in admin notifications.
	leafURL func(*models.Leaf) string

	// defaultStatus applies to anonymous comments when the site carries no
	// usable default of its own.
	defaultStatus string

	// development suppresses admin notifications, mirroring how spam does.
	development bool
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	leafRepo repository.LeafRepository,
	siteService *SiteService,
	notifier AdminNotifier,
	scheduler *background.Scheduler,
	leafURL func(*models.Leaf) string,
	defaultStatus string,
	development bool,
) *CommentService {
	return &CommentService{
		commentRepo:   commentRepo,
		leafRepo:      leafRepo,
		siteService:   siteService,
		notifier:      notifier,
		scheduler:     scheduler,
		leafURL:       leafURL,
		defaultStatus: defaultStatus,
		development:   development,
	}
}

// Submit runs the whole pipeline for one incoming comment. The returned
// comment carries its assigned status; callers must not reveal to the client
// whether a comment was marked spam.
func (s *CommentService) Submit(leafID uint, req models.CreateCommentRequest, scope repository.LeafScope) (*models.Comment, error) {
	leaf, err := s.leafRepo.GetByID(leafID)
	if err != nil {
		return nil, err
	}
	if !scope.Includes(leaf) {
		return nil, ErrLeafNotVisible
	}
	if !leaf.AllowComments {
		return nil, ErrCommentsClosed
	}

	comment, err := s.buildComment(leaf, req, scope)
	if err != nil {
		return nil, err
	}

	if err := s.commentRepo.Create(comment); err != nil {
		return nil, fmt.Errorf("failed to save comment: %w", err)
	}

	logger.Info("Comment submitted", map[string]interface{}{
		"comment_id": comment.ID,
		"leaf_id":    leaf.ID,
		"status":     comment.Status,
	})

	if comment.Status != models.CommentStatusSpam && !s.development {
		s.notifyAdmins(comment, leaf)
	}

	return comment, nil
}

func (s *CommentService) buildComment(leaf *models.Leaf, req models.CreateCommentRequest, scope repository.LeafScope) (*models.Comment, error) {
	comment := &models.Comment{
		LeafID:     leaf.ID,
		AuthorName: validator.SanitizeString(validator.NormalizeSpaces(req.AuthorName)),
		Email:      validator.TrimSpaces(req.Email),
		Website:    validator.TrimSpaces(req.Website),
		Body:       validator.SanitizeHTML(req.Body),
	}

	if scope.Authenticated() {
		comment.UserID = &scope.Viewer.ID
		if comment.AuthorName == "" {
			comment.AuthorName = scope.Viewer.DisplayName()
		}
		if comment.Email == "" {
			comment.Email = scope.Viewer.Email
		}
	}

	if comment.AuthorName == "" {
		return nil, fmt.Errorf("%w: author name is required", ErrInvalidComment)
	}
	if len(comment.AuthorName) > maxAuthorNameLen {
		return nil, fmt.Errorf("%w: author name is too long", ErrInvalidComment)
	}
	if comment.Email == "" || !validator.ValidateEmail(comment.Email) {
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidComment)
	}
	if comment.Website != "" && !validator.ValidateURL(comment.Website) {
		return nil, fmt.Errorf("%w: website must be a valid URL", ErrInvalidComment)
	}
	if comment.Body == "" {
		return nil, fmt.Errorf("%w: body is required", ErrInvalidComment)
	}
	if len(comment.Body) > maxCommentBodyLen {
		return nil, fmt.Errorf("%w: body is too long", ErrInvalidComment)
	}

	if req.ReplyToID != nil {
		ok, err := s.commentRepo.BelongsToLeaf(*req.ReplyToID, leaf.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check reply target: %w", err)
		}
		if !ok {
			return nil, ErrReplyWrongLeaf
		}
		comment.ReplyToID = req.ReplyToID
	}

	comment.Status = s.assignStatus(req, scope)
	return comment, nil
}

// assignStatus decides the comment's fate. A filled honeypot field is spam
// no matter what. Authenticated viewers publish immediately; everyone else
// gets the site's configured default.
func (s *CommentService) assignStatus(req models.CreateCommentRequest, scope repository.LeafScope) string {
	if req.Name != "" {
		return models.CommentStatusSpam
	}
	if scope.Authenticated() {
		return models.CommentStatusPublished
	}

	if s.siteService != nil && scope.SiteID != 0 {
		if prefs, err := s.siteService.Preferences(scope.SiteID); err == nil {
			if validCommentStatus(prefs.DefaultCommentStatus) {
				return prefs.DefaultCommentStatus
			}
		}
	}
	if validCommentStatus(s.defaultStatus) {
		return s.defaultStatus
	}
	return models.CommentStatusPending
}

// notifyAdmins queues the comment-posted alert. The body names the author,
// the destination URL and the comment text.
func (s *CommentService) notifyAdmins(comment *models.Comment, leaf *models.Leaf) {
	if s.notifier == nil || !s.notifier.Enabled() || s.scheduler == nil {
		return
	}

	subject := fmt.Sprintf("New comment on %q", leaf.Type+" #"+fmt.Sprint(leaf.ID))
	if content, err := leaf.Resolved(); err == nil {
		subject = fmt.Sprintf("New comment on %q", content.DisplayTitle())
	}
	destination := ""
	if s.leafURL != nil {
		destination = s.leafURL(leaf)
	}
	body := fmt.Sprintf("Author: %s <%s>\nURL: %s\nStatus: %s\n\n%s",
		comment.AuthorName, comment.Email, destination, comment.Status, comment.Body)

	err := s.scheduler.Schedule(background.Task{
		Name:    "comment-admin-notification",
		Timeout: 30 * time.Second,
		Run: func(ctx context.Context) error {
			return s.notifier.SendAdmins(subject, body)
		},
		MaxRetries: 2,
		Backoff:    time.Minute,
	})
	if err != nil {
		logger.Warn("Failed to queue admin notification", map[string]interface{}{
			"comment_id": comment.ID, "error": err.Error()})
	}
}

// ForLeaf returns the leaf's published comment thread, provided the leaf
// itself is visible in the scope.
func (s *CommentService) ForLeaf(leafID uint, scope repository.LeafScope) ([]models.Comment, error) {
	leaf, err := s.leafRepo.GetByID(leafID)
	if err != nil {
		return nil, err
	}
	if !scope.Includes(leaf) {
		return nil, ErrLeafNotVisible
	}
	return s.commentRepo.GetForLeaf(leafID)
}

func (s *CommentService) ListByStatus(status string, page, perPage int) ([]models.Comment, int64, error) {
	if !validCommentStatus(status) {
		return nil, 0, ErrUnknownStatus
	}
	page, perPage = normalizePaging(page, perPage)
	return s.commentRepo.ListByStatus(status, (page-1)*perPage, perPage)
}

// Moderate moves a comment to the given status.
func (s *CommentService) Moderate(id uint, status string) error {
	if !validCommentStatus(status) {
		return ErrUnknownStatus
	}
	return s.commentRepo.UpdateStatus(id, status)
}

func (s *CommentService) Delete(id uint) error {
	return s.commentRepo.Delete(id)
}

func validCommentStatus(status string) bool {
	switch status {
	case models.CommentStatusSpam, models.CommentStatusPending, models.CommentStatusPublished:
		return true
	}
	return false
}
