package models

import "time"

// LeafFields carries the shared publishable-content fields accepted when
// creating or updating a page or post.
type LeafFields struct {
	SiteIDs         []uint     `json:"site_ids" binding:"required,min=1"`
	AuthorName      string     `json:"author_name"`
	Status          string     `json:"status" binding:"omitempty,oneof=draft pending published"`
	ShowInStream    *bool      `json:"show_in_stream"`
	AllowComments   *bool      `json:"allow_comments"`
	Password        string     `json:"password"`
	DatePublished   *time.Time `json:"date_published"`
	DateExpires     *time.Time `json:"date_expires"`
	Changefreq      string     `json:"changefreq" binding:"omitempty,oneof=never yearly monthly weekly daily hourly always"`
	Priority        *float64   `json:"priority" binding:"omitempty,min=0,max=1"`
	Language        string     `json:"language" binding:"omitempty,language_code"`
	TranslationOfID *uint      `json:"translation_of_id"`
	TranslatorName  string     `json:"translator_name"`
	CustomURL       string     `json:"custom_url"`
	SummaryTemplate string     `json:"summary_template"`
	PageTemplate    string     `json:"page_template"`
	TagSlugs        []string   `json:"tags"`
}

type CreatePageRequest struct {
	LeafFields

	Title            string `json:"title" binding:"required"`
	Slug             string `json:"slug" binding:"omitempty,slug"`
	Summary          string `json:"summary"`
	Content          string `json:"content" binding:"required"`
	ShowInNavigation *bool  `json:"show_in_navigation"`
	Rank             int    `json:"rank"`
}

type UpdatePageRequest struct {
	LeafFields

	Title            *string `json:"title"`
	Summary          *string `json:"summary"`
	Content          *string `json:"content"`
	ShowInNavigation *bool   `json:"show_in_navigation"`
	Rank             *int    `json:"rank"`
}

type CreatePostRequest struct {
	LeafFields

	Title   string `json:"title" binding:"required"`
	Slug    string `json:"slug" binding:"omitempty,slug"`
	Summary string `json:"summary"`
	Content string `json:"content" binding:"required"`
}

type UpdatePostRequest struct {
	LeafFields

	Title   *string `json:"title"`
	Summary *string `json:"summary"`
	Content *string `json:"content"`
}

// CreateCommentRequest is bound from both JSON and classic form posts. Name is
// a honeypot: the rendered form hides it and legitimate clients leave it
// empty.
type CreateCommentRequest struct {
	AuthorName string `json:"author_name" form:"author_name"`
	Email      string `json:"email" form:"email"`
	Website    string `json:"website" form:"website"`
	Body       string `json:"body" form:"body" binding:"required"`
	ReplyToID  *uint  `json:"reply_to_id" form:"reply_to_id"`
	Name       string `json:"name" form:"name"`
}

type CreateRedirectRequest struct {
	SiteID       uint   `json:"site_id" binding:"required"`
	OldPath      string `json:"old_path" binding:"required"`
	NewPath      string `json:"new_path"`
	RedirectType int    `json:"redirect_type" binding:"omitempty,oneof=301 302 307 410"`
}

type UpdatePreferencesRequest struct {
	Homepage             *string `json:"homepage"`
	Theme                *string `json:"theme"`
	StreamCount          *int    `json:"stream_count" binding:"omitempty,min=1,max=100"`
	FeedCount            *int    `json:"feed_count" binding:"omitempty,min=1,max=100"`
	AnalyticsID          *string `json:"analytics_id"`
	DefaultLanguage      *string `json:"default_language" binding:"omitempty,language_code"`
	DefaultCommentStatus *string `json:"default_comment_status" binding:"omitempty,oneof=spam pending published"`
}

type CreateSiteRequest struct {
	Domain string `json:"domain" binding:"required"`
	Name   string `json:"name" binding:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=12,max=128"`
	FullName string `json:"full_name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
