package validator

import (
	"os"
	"strings"
	"testing"
)

func TestMain(m *testing.M) {
	Init()
	os.Exit(m.Run())
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"a@b.co", "first.last+tag@example.com", "user_name@sub.example.org"}
	for _, email := range valid {
		if !ValidateEmail(email) {
			t.Fatalf("expected %q to be valid", email)
		}
	}

	invalid := []string{"", "plain", "@example.com", "a@b", "a b@example.com"}
	for _, email := range invalid {
		if ValidateEmail(email) {
			t.Fatalf("expected %q to be invalid", email)
		}
	}
}

func TestValidateURL(t *testing.T) {
	valid := []string{"http://example.com", "https://example.com/path?q=1"}
	for _, url := range valid {
		if !ValidateURL(url) {
			t.Fatalf("expected %q to be valid", url)
		}
	}

	invalid := []string{"", "example.com", "ftp://example.com", "https://nodot"}
	for _, url := range invalid {
		if ValidateURL(url) {
			t.Fatalf("expected %q to be invalid", url)
		}
	}
}

func TestSanitizeHTMLStripsScripts(t *testing.T) {
	in := `<p>Hello</p><script>alert("x")</script>`
	out := SanitizeHTML(in)
	if strings.Contains(out, "script") {
		t.Fatalf("expected scripts stripped, got %q", out)
	}
	if !strings.Contains(out, "Hello") {
		t.Fatalf("expected the text preserved, got %q", out)
	}
}

func TestSanitizeStringStripsAllMarkup(t *testing.T) {
	out := SanitizeString(`Title <b>bold</b> <a href="x">link</a>`)
	if strings.ContainsAny(out, "<>") {
		t.Fatalf("expected all markup removed, got %q", out)
	}
}

func TestNormalizeSpaces(t *testing.T) {
	if got := NormalizeSpaces("a  b\t\nc"); got != "a b c" {
		t.Fatalf("expected collapsed whitespace, got %q", got)
	}
}
