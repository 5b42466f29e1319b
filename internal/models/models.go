package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Leaf statuses.
const (
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusPublished = "published"
)

// Comment statuses.
const (
	CommentStatusSpam      = "spam"
	CommentStatusPending   = "pending"
	CommentStatusPublished = "published"
)

// Leaf type discriminators. Set by the concrete save paths, never by callers.
const (
	LeafTypePage = "page"
	LeafTypePost = "post"
)

// Sitemap change frequencies.
var Changefreqs = []string{"never", "yearly", "monthly", "weekly", "daily", "hourly", "always"}

// Redirect status codes. A 410 row carries no destination.
const (
	RedirectMovedPermanently = 301
	RedirectFound            = 302
	RedirectTemporary        = 307
	RedirectGone             = 410
)

// ErrBareLeaf is returned when a Leaf is persisted without a concrete type.
// This is a programming error, not a runtime condition.
var ErrBareLeaf = errors.New("attempted to save a bare leaf: missing concrete type")

type Site struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Domain string `gorm:"uniqueIndex;not null" json:"domain"`
	Name   string `gorm:"not null" json:"name"`

	Preferences Preferences `gorm:"foreignKey:SiteID;constraint:OnDelete:CASCADE" json:"preferences"`
	Redirects   []Redirect  `gorm:"foreignKey:SiteID;constraint:OnDelete:CASCADE" json:"-"`
	Leaves      []Leaf      `gorm:"many2many:leaf_sites;" json:"-"`
}

type Preferences struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SiteID uint `gorm:"uniqueIndex;not null" json:"site_id"`

	Homepage             string `gorm:"default:'recent'" json:"homepage"`
	Theme                string `gorm:"default:'default'" json:"theme"`
	StreamCount          int    `gorm:"default:10" json:"stream_count"`
	FeedCount            int    `gorm:"default:10" json:"feed_count"`
	AnalyticsID          string `json:"analytics_id"`
	DefaultLanguage      string `gorm:"size:10;default:'en'" json:"default_language"`
	DefaultCommentStatus string `gorm:"size:10;default:'pending'" json:"default_comment_status"`
}

// DefaultPreferences builds the preferences row a new site starts with.
func DefaultPreferences(siteID uint) Preferences {
	return Preferences{
		SiteID:               siteID,
		Homepage:             "recent",
		Theme:                "default",
		StreamCount:          10,
		FeedCount:            10,
		DefaultLanguage:      "en",
		DefaultCommentStatus: CommentStatusPending,
	}
}

type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	FullName string `json:"full_name"`
	Role     string `gorm:"type:varchar(32);default:'author'" json:"role"`

	Leaves   []Leaf    `gorm:"foreignKey:AuthorID" json:"-"`
	Comments []Comment `gorm:"foreignKey:UserID" json:"-"`
}

// IsSuperuser reports whether the user bypasses all visibility filtering.
func (u *User) IsSuperuser() bool {
	return u != nil && u.Role == "admin"
}

func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	return u.Username
}

type Tag struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name string `gorm:"not null" json:"name"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`

	Leaves []Leaf `gorm:"many2many:leaf_tags;" json:"-"`
}

// Leaf is the shared row behind every piece of publishable content. Concrete
// content lives in the pages/posts tables keyed by LeafID; Type names which
// one holds this leaf's payload.
type Leaf struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Type string `gorm:"type:varchar(16);not null;index" json:"type"`

	Sites      []Site `gorm:"many2many:leaf_sites;" json:"sites,omitempty"`
	AuthorID   uint   `gorm:"not null" json:"author_id"`
	Author     User   `gorm:"foreignKey:AuthorID;constraint:OnDelete:RESTRICT" json:"author"`
	AuthorName string `gorm:"size:100" json:"author_name"`

	Status        string     `gorm:"size:10;index;default:'draft'" json:"status"`
	ShowInStream  bool       `gorm:"default:true" json:"show_in_stream"`
	AllowComments bool       `gorm:"default:true" json:"allow_comments"`
	Password      string     `gorm:"size:30" json:"-"`
	DatePublished time.Time  `gorm:"index" json:"date_published"`
	DateExpires   *time.Time `gorm:"index" json:"date_expires,omitempty"`

	Changefreq string  `gorm:"size:7;default:'monthly'" json:"changefreq"`
	Priority   float64 `gorm:"default:0.5" json:"priority"`

	Language        string `gorm:"size:10;default:'en';index" json:"language"`
	TranslationOfID *uint  `json:"translation_of_id,omitempty"`
	TranslationOf   *Leaf  `gorm:"foreignKey:TranslationOfID;constraint:OnDelete:RESTRICT" json:"-"`
	Translations    []Leaf `gorm:"foreignKey:TranslationOfID" json:"-"`
	TranslatorName  string `gorm:"size:100" json:"translator_name,omitempty"`

	CustomURL       string `gorm:"size:200" json:"custom_url,omitempty"`
	SummaryTemplate string `gorm:"size:200" json:"summary_template,omitempty"`
	PageTemplate    string `gorm:"size:200" json:"page_template,omitempty"`

	Tags        []Tag        `gorm:"many2many:leaf_tags;" json:"tags,omitempty"`
	Metadata    []LeafMeta   `gorm:"foreignKey:LeafID;constraint:OnDelete:CASCADE" json:"metadata,omitempty"`
	Comments    []Comment    `gorm:"foreignKey:LeafID;constraint:OnDelete:CASCADE" json:"-"`
	Attachments []Attachment `gorm:"foreignKey:LeafID;constraint:OnDelete:CASCADE" json:"attachments,omitempty"`

	// Concrete payloads, exactly one is non-nil for a saved leaf. Eager
	// loading of both is part of every leaf query (static relation set).
	Page *Page `gorm:"foreignKey:LeafID" json:"page,omitempty"`
	Post *Post `gorm:"foreignKey:LeafID" json:"post,omitempty"`

	DateCreated  time.Time `gorm:"<-:create" json:"date_created"`
	DateModified time.Time `json:"date_modified"`
}

// BeforeSave refuses bare leaves and maintains the creation/modification
// timestamps: DateModified refreshes on every save, DateCreated is fixed at
// the first one.
func (l *Leaf) BeforeSave(tx *gorm.DB) error {
	if strings.TrimSpace(l.Type) == "" {
		return ErrBareLeaf
	}

	now := time.Now().UTC()
	l.DateModified = now
	if l.ID == 0 && l.DateCreated.IsZero() {
		l.DateCreated = now
	}
	if l.DatePublished.IsZero() {
		l.DatePublished = now
	}
	return nil
}

// IsRoot reports whether the leaf is not a translation of another leaf.
func (l *Leaf) IsRoot() bool {
	return l.TranslationOfID == nil
}

// PageTemplates returns the ordered template candidates for rendering the
// leaf in full. The renderer picks the first one that exists.
func (l *Leaf) PageTemplates() []string {
	return []string{
		l.PageTemplate,
		fmt.Sprintf("leaves/%s.html", l.Type),
		fmt.Sprintf("%s.html", l.Type),
	}
}

// SummaryTemplates returns the ordered template candidates for rendering a
// summary of the leaf.
func (l *Leaf) SummaryTemplates() []string {
	return []string{
		l.SummaryTemplate,
		fmt.Sprintf("leaves/%s_summary.html", l.Type),
		fmt.Sprintf("%s_summary.html", l.Type),
	}
}

// Content is a concrete leaf payload able to name its canonical route.
type Content interface {
	RouteName() string
	RouteParams() map[string]string
	DisplayTitle() string
}

// Resolved dispatches on the type discriminator and returns the concrete
// payload. The payload relation must have been eager-loaded. The receiver is
// stamped into the payload's Leaf back-reference, so route params derived
// from shared fields always read the loaded row, whichever side of the
// association the query came in from.
func (l *Leaf) Resolved() (Content, error) {
	switch l.Type {
	case LeafTypePage:
		if l.Page == nil {
			return nil, fmt.Errorf("leaf %d: page payload not loaded", l.ID)
		}
		l.Page.Leaf = l.withoutPayloads()
		return l.Page, nil
	case LeafTypePost:
		if l.Post == nil {
			return nil, fmt.Errorf("leaf %d: post payload not loaded", l.ID)
		}
		l.Post.Leaf = l.withoutPayloads()
		return l.Post, nil
	default:
		return nil, fmt.Errorf("leaf %d: unknown type %q", l.ID, l.Type)
	}
}

// withoutPayloads copies the leaf with its payload pointers cleared. The
// copy goes into a payload's back-reference, which must never point back at
// the payload that holds it.
func (l *Leaf) withoutPayloads() Leaf {
	detached := *l
	detached.Page = nil
	detached.Post = nil
	return detached
}

type Page struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	LeafID uint `gorm:"uniqueIndex;not null" json:"leaf_id"`
	Leaf   Leaf `gorm:"foreignKey:LeafID;constraint:OnDelete:CASCADE" json:"leaf"`

	Title   string `gorm:"not null" json:"title"`
	Slug    string `gorm:"uniqueIndex;not null" json:"slug"`
	Summary string `gorm:"type:text" json:"summary"`
	Content string `gorm:"type:text;not null" json:"content"`

	ShowInNavigation bool `gorm:"default:true" json:"show_in_navigation"`
	Rank             int  `gorm:"default:0" json:"rank"`
}

func (p *Page) RouteName() string { return "page-view" }

func (p *Page) RouteParams() map[string]string {
	return map[string]string{"slug": p.Slug}
}

func (p *Page) DisplayTitle() string { return p.Title }

type Post struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	LeafID uint `gorm:"uniqueIndex;not null" json:"leaf_id"`
	Leaf   Leaf `gorm:"foreignKey:LeafID;constraint:OnDelete:CASCADE" json:"leaf"`

	Title   string `gorm:"not null" json:"title"`
	Slug    string `gorm:"uniqueIndex;not null" json:"slug"`
	Summary string `gorm:"type:text" json:"summary"`
	Content string `gorm:"type:text;not null" json:"content"`
}

func (p *Post) RouteName() string { return "blog-post" }

// RouteParams derives the year/month segments from the shared publish date,
// so the Leaf relation must be loaded.
func (p *Post) RouteParams() map[string]string {
	published := p.Leaf.DatePublished
	return map[string]string{
		"year":  fmt.Sprintf("%d", published.Year()),
		"month": fmt.Sprintf("%02d", int(published.Month())),
		"slug":  p.Slug,
	}
}

func (p *Post) DisplayTitle() string { return p.Title }

type LeafMeta struct {
	ID uint `gorm:"primarykey" json:"id"`

	LeafID uint   `gorm:"not null;index" json:"leaf_id"`
	Key    string `gorm:"size:50;not null" json:"key"`
	Value  string `gorm:"type:text" json:"value"`
}

type Comment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	LeafID uint `gorm:"not null;index" json:"leaf_id"`
	Leaf   Leaf `gorm:"foreignKey:LeafID;constraint:OnDelete:CASCADE" json:"-"`

	ReplyToID *uint     `json:"reply_to_id,omitempty"`
	ReplyTo   *Comment  `gorm:"foreignKey:ReplyToID" json:"-"`
	Replies   []Comment `gorm:"foreignKey:ReplyToID" json:"replies,omitempty"`

	AuthorName string `gorm:"size:50;not null" json:"author_name"`
	UserID     *uint  `json:"user_id,omitempty"`
	User       *User  `gorm:"foreignKey:UserID" json:"-"`
	Email      string `gorm:"not null" json:"-"`
	Website    string `json:"website,omitempty"`

	Status     string    `gorm:"size:10;index;default:'pending'" json:"status"`
	DatePosted time.Time `gorm:"index" json:"date_posted"`
	Body       string    `gorm:"type:text;not null" json:"body"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.DatePosted.IsZero() {
		c.DatePosted = time.Now().UTC()
	}
	return nil
}

type Attachment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	LeafID uint `gorm:"not null;index" json:"leaf_id"`
	Leaf   Leaf `gorm:"foreignKey:LeafID;constraint:OnDelete:CASCADE" json:"-"`

	FileName      string `gorm:"size:200" json:"file_name"`
	Title         string `gorm:"size:200" json:"title"`
	StoredPath    string `gorm:"size:400;not null" json:"-"`
	MD5Checksum   string `gorm:"size:32" json:"md5_checksum"`
	DownloadCount uint   `gorm:"default:0" json:"download_count"`
	Rank          int    `gorm:"default:0" json:"rank"`
}

func (a *Attachment) DisplayTitle() string {
	if a.Title != "" {
		return a.Title
	}
	return a.FileName
}

type Redirect struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SiteID uint `gorm:"not null;uniqueIndex:idx_redirects_site_old_path" json:"site_id"`
	Site   Site `gorm:"foreignKey:SiteID;constraint:OnDelete:CASCADE" json:"-"`

	OldPath      string `gorm:"size:250;not null;uniqueIndex:idx_redirects_site_old_path" json:"old_path"`
	NewPath      string `gorm:"size:250" json:"new_path"`
	RedirectType int    `gorm:"default:301" json:"redirect_type"`
}

// Gone reports whether the redirect marks a permanently removed resource.
func (r *Redirect) Gone() bool {
	return r.NewPath == "" || r.RedirectType == RedirectGone
}

// RequestScope bundles the per-request ambient values resolved by the site,
// auth and language middleware. It is constructed once at the request
// boundary and passed down; it is never shared between requests.
type RequestScope struct {
	Site     *Site
	Viewer   *User
	Language string
}

func (s *RequestScope) Authenticated() bool {
	return s != nil && s.Viewer != nil
}

func (s *RequestScope) SiteID() uint {
	if s == nil || s.Site == nil {
		return 0
	}
	return s.Site.ID
}
