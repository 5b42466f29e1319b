package handlers

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"leaves-cms/internal/models"
	"leaves-cms/pkg/utils"
)

// Renderer serves leaves as HTML when a template set is loaded and the
// client asks for it, and as JSON otherwise. Template selection walks the
// leaf's candidate list and takes the first defined one.
type Renderer struct {
	templates *template.Template
}

// NewRenderer loads the template set from dir. An empty dir disables HTML
// rendering entirely.
func NewRenderer(dir string) (*Renderer, error) {
	if dir == "" {
		return &Renderer{}, nil
	}

	templates, err := utils.LoadTemplates(dir)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: templates}, nil
}

func (r *Renderer) wantsHTML(c *gin.Context) bool {
	if r == nil || r.templates == nil {
		return false
	}
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "text/html")
}

// Leaf renders a full leaf view. data carries the payload under its own key
// so templates can use .Page or .Post directly.
func (r *Renderer) Leaf(c *gin.Context, leaf *models.Leaf, data gin.H) {
	if !r.wantsHTML(c) {
		c.JSON(http.StatusOK, data)
		return
	}

	name, ok := utils.FirstDefinedTemplate(r.templates, leaf.PageTemplates())
	if !ok {
		c.JSON(http.StatusOK, data)
		return
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := r.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}
