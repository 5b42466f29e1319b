package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"leaves-cms/internal/models"
	"leaves-cms/internal/service"
)

type CommentHandler struct {
	commentService *service.CommentService
}

func NewCommentHandler(commentService *service.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// Create accepts a comment submission, JSON or classic form encoded. A spam
// verdict is indistinguishable from success in the response.
func (h *CommentHandler) Create(c *gin.Context) {
	leafID, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid leaf id"})
		return
	}

	var req models.CreateCommentRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.commentService.Submit(leafID, req, scopeFrom(c))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, service.ErrLeafNotVisible):
			c.JSON(http.StatusNotFound, gin.H{"error": "leaf not found"})
		case errors.Is(err, service.ErrCommentsClosed):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrInvalidComment), errors.Is(err, service.ErrReplyWrongLeaf):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save comment"})
		}
		return
	}

	response := gin.H{"message": "comment submitted"}
	if comment.Status == models.CommentStatusPublished {
		response["comment"] = comment
	}
	c.JSON(http.StatusCreated, response)
}

// ListForLeaf returns the published comment thread of a visible leaf.
func (h *CommentHandler) ListForLeaf(c *gin.Context) {
	leafID, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid leaf id"})
		return
	}

	comments, err := h.commentService.ForLeaf(leafID, scopeFrom(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, service.ErrLeafNotVisible) {
			c.JSON(http.StatusNotFound, gin.H{"error": "leaf not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load comments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// ListByStatus is the moderation queue view.
func (h *CommentHandler) ListByStatus(c *gin.Context) {
	status := c.DefaultQuery("status", models.CommentStatusPending)
	page, perPage := pagination(c, 20)

	comments, total, err := h.commentService.ListByStatus(status, page, perPage)
	if err != nil {
		if errors.Is(err, service.ErrUnknownStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load comments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments, "total": total})
}

func (h *CommentHandler) Moderate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comment id"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required,oneof=spam pending published"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.commentService.Moderate(id, req.Status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to moderate comment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "comment updated"})
}

func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comment id"})
		return
	}

	if err := h.commentService.Delete(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete comment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}
