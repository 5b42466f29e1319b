package handlers

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"leaves-cms/internal/middleware"
	"leaves-cms/internal/models"
	"leaves-cms/internal/repository"
	"leaves-cms/internal/routes"
	"leaves-cms/internal/service"
	"leaves-cms/pkg/logger"
)

// FeedHandler renders the per-site sitemap and RSS feed. Both use the
// anonymous strict scope: drafts, expired and future leaves never leak into
// crawlers or readers.
type FeedHandler struct {
	leafService *service.LeafService
	registry    *routes.Registry
}

func NewFeedHandler(leafService *service.LeafService, registry *routes.Registry) *FeedHandler {
	return &FeedHandler{leafService: leafService, registry: registry}
}

type sitemapURL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod"`
	Changefreq string  `xml:"changefreq"`
	Priority   float64 `xml:"priority"`
}

type sitemapSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

func (h *FeedHandler) Sitemap(c *gin.Context) {
	site := middleware.Site(c)
	if site == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown site"})
		return
	}

	scope := h.feedScope(c, site)
	leaves, err := h.leafService.Published(scope)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build sitemap"})
		return
	}

	set := sitemapSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for i := range leaves {
		loc, ok := h.canonicalURL(site, &leaves[i])
		if !ok {
			continue
		}
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        loc,
			LastMod:    leaves[i].DateModified.UTC().Format("2006-01-02"),
			Changefreq: leaves[i].Changefreq,
			Priority:   leaves[i].Priority,
		})
	}

	c.XML(http.StatusOK, set)
}

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	GUID    string `xml:"guid"`
	PubDate string `xml:"pubDate"`
	Desc    string `xml:"description,omitempty"`
}

func (h *FeedHandler) RSS(c *gin.Context) {
	site := middleware.Site(c)
	if site == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown site"})
		return
	}

	scope := h.feedScope(c, site)
	leaves, err := h.leafService.StreamAll(scope)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build feed"})
		return
	}

	count := site.Preferences.FeedCount
	if count <= 0 {
		count = 10
	}
	if len(leaves) > count {
		leaves = leaves[:count]
	}

	feed := rssFeed{
		Version: "2.0",
		Channel: rssChannel{
			Title:       site.Name,
			Link:        "https://" + site.Domain + "/",
			Description: fmt.Sprintf("Recent content on %s", site.Name),
		},
	}
	for i := range leaves {
		link, ok := h.canonicalURL(site, &leaves[i])
		if !ok {
			continue
		}
		item := rssItem{
			Link:    link,
			GUID:    link,
			PubDate: leaves[i].DatePublished.UTC().Format(time.RFC1123Z),
		}
		if content, err := leaves[i].Resolved(); err == nil {
			item.Title = content.DisplayTitle()
		}
		feed.Channel.Items = append(feed.Channel.Items, item)
	}

	c.XML(http.StatusOK, feed)
}

// feedScope is the anonymous strict view of the site, in the requested or
// default language. Viewer credentials are deliberately ignored here.
func (h *FeedHandler) feedScope(c *gin.Context, site *models.Site) repository.LeafScope {
	language := c.GetString(middleware.LanguageKey)
	if language == "" {
		language = site.Preferences.DefaultLanguage
	}
	return repository.LeafScope{
		SiteID:   site.ID,
		Language: language,
	}
}

// canonicalURL builds the leaf's absolute URL, preferring its custom URL
// over the canonical route.
func (h *FeedHandler) canonicalURL(site *models.Site, leaf *models.Leaf) (string, bool) {
	base := "https://" + site.Domain

	if leaf.CustomURL != "" {
		return base + leaf.CustomURL, true
	}

	content, err := leaf.Resolved()
	if err != nil {
		logger.Warn("Leaf without payload skipped in feed", map[string]interface{}{
			"leaf_id": leaf.ID})
		return "", false
	}
	path, err := h.registry.Reverse(content.RouteName(), content.RouteParams())
	if err != nil {
		return "", false
	}
	return base + path, true
}
