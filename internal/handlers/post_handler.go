package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"leaves-cms/internal/middleware"
	"leaves-cms/internal/models"
	"leaves-cms/internal/service"
)

type PostHandler struct {
	postService *service.PostService
	renderer    *Renderer
}

func NewPostHandler(postService *service.PostService, renderer *Renderer) *PostHandler {
	return &PostHandler{postService: postService, renderer: renderer}
}

// View is the canonical post route. The slug identifies the post; the year
// and month segments must agree with the stored publish date or the URL is
// treated as not found.
func (h *PostHandler) View(c *gin.Context) {
	post, err := h.postService.GetBySlug(c.Param("slug"), scopeFrom(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, service.ErrLeafNotVisible) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load post"})
		return
	}

	year, _ := strconv.Atoi(c.Param("year"))
	month, _ := strconv.Atoi(c.Param("month"))
	published := post.Leaf.DatePublished
	if year != published.Year() || month != int(published.Month()) {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}

	h.renderer.Leaf(c, &post.Leaf, gin.H{"post": post})
}

func (h *PostHandler) Create(c *gin.Context) {
	var req models.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	viewer := middleware.Viewer(c)
	post, err := h.postService.Create(req, viewer.ID)
	if err != nil {
		c.JSON(writeErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"post": post})
}

func (h *PostHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	var req models.UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.postService.Update(id, req)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		c.JSON(writeErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

func (h *PostHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	post, err := h.postService.GetByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

func (h *PostHandler) All(c *gin.Context) {
	posts, err := h.postService.All()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load posts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}
