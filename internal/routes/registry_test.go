package routes

import (
	"testing"

	"github.com/gin-gonic/gin"
)

func noopHandler(c *gin.Context) {}

func TestRegistryReverse(t *testing.T) {
	r := NewRegistry()
	if err := r.GET("blog-post", "/blog/:year/:month/:slug", noopHandler); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path, err := r.Reverse("blog-post", map[string]string{
		"year": "2026", "month": "03", "slug": "hello",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/blog/2026/03/hello" {
		t.Fatalf("expected /blog/2026/03/hello, got %q", path)
	}
}

func TestRegistryReverseMissingParam(t *testing.T) {
	r := NewRegistry()
	r.GET("page-view", "/pages/:slug", noopHandler)

	if _, err := r.Reverse("page-view", nil); err == nil {
		t.Fatalf("expected an error for a missing parameter")
	}
	if _, err := r.Reverse("nope", nil); err == nil {
		t.Fatalf("expected an error for an unknown route")
	}
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	r.GET("recent", "/recent", noopHandler)
	r.GET("blog-post", "/blog/:year/:month/:slug", noopHandler)

	match, ok := r.Resolve("/blog/2026/03/hello")
	if !ok {
		t.Fatalf("expected a match")
	}
	if match.Route.Name != "blog-post" {
		t.Fatalf("expected blog-post, got %q", match.Route.Name)
	}
	if got := match.Params.ByName("slug"); got != "hello" {
		t.Fatalf("expected slug hello, got %q", got)
	}
	if got := match.Params.ByName("month"); got != "03" {
		t.Fatalf("expected month 03, got %q", got)
	}
}

func TestRegistryResolveIgnoresTrailingSlash(t *testing.T) {
	r := NewRegistry()
	r.GET("recent", "/recent", noopHandler)

	if _, ok := r.Resolve("/recent/"); !ok {
		t.Fatalf("expected the trailing slash to be ignored")
	}
}

func TestRegistryResolveSkipsPostRoutes(t *testing.T) {
	r := NewRegistry()
	r.POST("comment-create", "/leaves/:id/comments", noopHandler)

	if _, ok := r.Resolve("/leaves/5/comments"); ok {
		t.Fatalf("expected POST routes to be unresolvable")
	}
}

func TestRegistryResolveNoMatch(t *testing.T) {
	r := NewRegistry()
	r.GET("recent", "/recent", noopHandler)

	if _, ok := r.Resolve("/missing"); ok {
		t.Fatalf("expected no match")
	}
	if _, ok := r.Resolve("/recent/extra"); ok {
		t.Fatalf("expected segment counts to be enforced")
	}
}

func TestRegistryRegistrationOrderWins(t *testing.T) {
	r := NewRegistry()
	r.GET("page-view", "/pages/:slug", noopHandler)
	r.GET("page-list", "/pages/all", noopHandler)

	match, ok := r.Resolve("/pages/all")
	if !ok {
		t.Fatalf("expected a match")
	}
	if match.Route.Name != "page-view" {
		t.Fatalf("expected the earlier registration to win, got %q", match.Route.Name)
	}
}

func TestRegistryDuplicateName(t *testing.T) {
	r := NewRegistry()
	if err := r.GET("recent", "/recent", noopHandler); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.GET("recent", "/other", noopHandler); err == nil {
		t.Fatalf("expected duplicate name to be rejected")
	}
}

func TestRegistryRejectsBadPattern(t *testing.T) {
	r := NewRegistry()
	if err := r.GET("bad", "no-slash", noopHandler); err == nil {
		t.Fatalf("expected patterns without a leading slash to be rejected")
	}
	if err := r.GET("", "/x", noopHandler); err == nil {
		t.Fatalf("expected empty names to be rejected")
	}
}

func TestRegistryByName(t *testing.T) {
	r := NewRegistry()
	r.GET("recent", "/recent", noopHandler)

	route, ok := r.ByName("recent")
	if !ok || route.Pattern != "/recent" {
		t.Fatalf("expected the recent route, got %v %v", route, ok)
	}
	if _, ok := r.ByName("missing"); ok {
		t.Fatalf("expected no route for an unknown name")
	}
}
