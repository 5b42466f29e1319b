package models

import (
	"errors"
	"testing"
	"time"
)

func TestLeafBeforeSaveRejectsBareLeaf(t *testing.T) {
	leaf := &Leaf{}
	if err := leaf.BeforeSave(nil); !errors.Is(err, ErrBareLeaf) {
		t.Fatalf("expected ErrBareLeaf, got %v", err)
	}

	leaf.Type = "  "
	if err := leaf.BeforeSave(nil); !errors.Is(err, ErrBareLeaf) {
		t.Fatalf("expected ErrBareLeaf for whitespace type, got %v", err)
	}
}

func TestLeafBeforeSaveTimestamps(t *testing.T) {
	leaf := &Leaf{Type: LeafTypePage}
	if err := leaf.BeforeSave(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if leaf.DateCreated.IsZero() {
		t.Fatalf("expected DateCreated to be set on first save")
	}
	if leaf.DateModified.IsZero() {
		t.Fatalf("expected DateModified to be set")
	}
	if leaf.DatePublished.IsZero() {
		t.Fatalf("expected DatePublished to default to now")
	}

	created := leaf.DateCreated
	leaf.ID = 5
	modified := leaf.DateModified
	time.Sleep(time.Millisecond)
	if err := leaf.BeforeSave(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !leaf.DateCreated.Equal(created) {
		t.Fatalf("expected DateCreated to stay fixed after the first save")
	}
	if !leaf.DateModified.After(modified) {
		t.Fatalf("expected DateModified to refresh on save")
	}
}

func TestLeafResolved(t *testing.T) {
	page := &Page{Title: "About", Slug: "about"}
	leaf := &Leaf{ID: 1, Type: LeafTypePage, Page: page}

	content, err := leaf.Resolved()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content.RouteName() != "page-view" {
		t.Fatalf("expected page-view route, got %q", content.RouteName())
	}
	if content.DisplayTitle() != "About" {
		t.Fatalf("expected About, got %q", content.DisplayTitle())
	}

	leaf.Page = nil
	if _, err := leaf.Resolved(); err == nil {
		t.Fatalf("expected error when the payload is not loaded")
	}

	leaf.Type = "widget"
	if _, err := leaf.Resolved(); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestResolvedStampsLeafIntoPayload(t *testing.T) {
	// The back-reference is empty when the row was loaded from the leaf
	// side of the association; Resolved must fill it from the receiver.
	leaf := &Leaf{
		ID:            9,
		Type:          LeafTypePost,
		DatePublished: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		Post:          &Post{ID: 3, LeafID: 9, Slug: "hello"},
	}

	content, err := leaf.Resolved()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	params := content.RouteParams()
	if params["year"] != "2026" || params["month"] != "05" {
		t.Fatalf("expected the leaf's publish date in the params, got %v", params)
	}
	if leaf.Post.Leaf.ID != 9 {
		t.Fatalf("expected the back-reference to carry the leaf row")
	}
	if leaf.Post.Leaf.Post != nil || leaf.Post.Leaf.Page != nil {
		t.Fatalf("the stamped back-reference must not point back at a payload")
	}
}

func TestPostRouteParams(t *testing.T) {
	post := &Post{
		Slug: "hello-world",
		Leaf: Leaf{DatePublished: time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)},
	}

	params := post.RouteParams()
	if params["year"] != "2026" {
		t.Fatalf("expected year 2026, got %q", params["year"])
	}
	if params["month"] != "03" {
		t.Fatalf("expected zero-padded month 03, got %q", params["month"])
	}
	if params["slug"] != "hello-world" {
		t.Fatalf("expected slug hello-world, got %q", params["slug"])
	}
}

func TestLeafTemplateCandidates(t *testing.T) {
	leaf := &Leaf{Type: LeafTypePost, PageTemplate: "custom/post.html"}

	got := leaf.PageTemplates()
	want := []string{"custom/post.html", "leaves/post.html", "post.html"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("candidate %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	summaries := leaf.SummaryTemplates()
	if summaries[1] != "leaves/post_summary.html" {
		t.Fatalf("expected leaves/post_summary.html, got %q", summaries[1])
	}
}

func TestRedirectGone(t *testing.T) {
	cases := []struct {
		redirect Redirect
		gone     bool
	}{
		{Redirect{NewPath: "/new", RedirectType: RedirectMovedPermanently}, false},
		{Redirect{NewPath: "", RedirectType: RedirectMovedPermanently}, true},
		{Redirect{NewPath: "/new", RedirectType: RedirectGone}, true},
	}
	for i, tc := range cases {
		if tc.redirect.Gone() != tc.gone {
			t.Fatalf("case %d: expected Gone() == %v", i, tc.gone)
		}
	}
}

func TestDefaultPreferences(t *testing.T) {
	prefs := DefaultPreferences(3)
	if prefs.SiteID != 3 {
		t.Fatalf("expected site id 3, got %d", prefs.SiteID)
	}
	if prefs.Homepage != "recent" || prefs.StreamCount != 10 || prefs.FeedCount != 10 {
		t.Fatalf("unexpected defaults: %+v", prefs)
	}
	if prefs.DefaultLanguage != "en" || prefs.DefaultCommentStatus != CommentStatusPending {
		t.Fatalf("unexpected language or comment defaults: %+v", prefs)
	}
}

func TestUserHelpers(t *testing.T) {
	var nilUser *User
	if nilUser.IsSuperuser() {
		t.Fatalf("nil user must not be a superuser")
	}
	if nilUser.DisplayName() != "" {
		t.Fatalf("nil user display name should be empty")
	}

	admin := &User{Role: "admin", Username: "root"}
	if !admin.IsSuperuser() {
		t.Fatalf("admin role should be a superuser")
	}

	author := &User{Role: "author", Username: "amy", FullName: "  "}
	if author.IsSuperuser() {
		t.Fatalf("author role must not be a superuser")
	}
	if author.DisplayName() != "amy" {
		t.Fatalf("expected username fallback, got %q", author.DisplayName())
	}

	author.FullName = "Amy Pond"
	if author.DisplayName() != "Amy Pond" {
		t.Fatalf("expected full name, got %q", author.DisplayName())
	}
}

func TestRequestScope(t *testing.T) {
	var scope *RequestScope
	if scope.Authenticated() {
		t.Fatalf("nil scope must not be authenticated")
	}
	if scope.SiteID() != 0 {
		t.Fatalf("nil scope site id should be zero")
	}

	scope = &RequestScope{Site: &Site{ID: 4}}
	if scope.Authenticated() {
		t.Fatalf("scope without a viewer must not be authenticated")
	}
	if scope.SiteID() != 4 {
		t.Fatalf("expected site id 4, got %d", scope.SiteID())
	}

	scope.Viewer = &User{ID: 1}
	if !scope.Authenticated() {
		t.Fatalf("scope with a viewer should be authenticated")
	}
}
