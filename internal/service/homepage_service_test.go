package service

import "testing"

func TestHomepageRegisterAndResolve(t *testing.T) {
	svc := NewHomepageService()
	if err := svc.Register(HomepageChoice{Key: "recent", Label: "Recent posts", RouteName: "recent"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Register(HomepageChoice{Key: "pages", Label: "Page list", RouteName: "page-list"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := svc.Resolve("pages"); got != "page-list" {
		t.Fatalf("expected page-list, got %q", got)
	}
	if got := svc.Resolve("recent"); got != "recent" {
		t.Fatalf("expected recent, got %q", got)
	}
}

func TestHomepageResolveUnknownFallsBack(t *testing.T) {
	svc := NewHomepageService()
	svc.Register(HomepageChoice{Key: "recent", Label: "Recent posts", RouteName: "recent"})

	if got := svc.Resolve("stale-key"); got != "recent" {
		t.Fatalf("expected fallback to recent, got %q", got)
	}
}

func TestHomepageResolveEmptyRegistry(t *testing.T) {
	svc := NewHomepageService()
	if got := svc.Resolve("anything"); got != "" {
		t.Fatalf("expected empty route name, got %q", got)
	}
}

func TestHomepageRegisterValidation(t *testing.T) {
	svc := NewHomepageService()
	if err := svc.Register(HomepageChoice{Key: "", RouteName: "recent"}); err == nil {
		t.Fatalf("expected an error for a missing key")
	}
	if err := svc.Register(HomepageChoice{Key: "recent", RouteName: ""}); err == nil {
		t.Fatalf("expected an error for a missing route name")
	}

	if err := svc.Register(HomepageChoice{Key: "recent", RouteName: "recent"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Register(HomepageChoice{Key: "recent", RouteName: "other"}); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestHomepageChoicesSorted(t *testing.T) {
	svc := NewHomepageService()
	svc.Register(HomepageChoice{Key: "recent", Label: "Recent", RouteName: "recent"})
	svc.Register(HomepageChoice{Key: "pages", Label: "Pages", RouteName: "page-list"})

	choices := svc.Choices()
	if len(choices) != 2 {
		t.Fatalf("expected 2 choices, got %d", len(choices))
	}
	if choices[0].Key != "pages" || choices[1].Key != "recent" {
		t.Fatalf("expected key-sorted choices, got %+v", choices)
	}
}
