package utils

import "testing"

func TestGenerateSlug(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  Spaces   Everywhere  ", "spaces-everywhere"},
		{"Über Uns", "uber-uns"},
		{"Café au lait", "cafe-au-lait"},
		{"Привет мир", "privet-mir"},
		{"100% Go!", "100-go"},
		{"already-a-slug", "already-a-slug"},
		{"---", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := GenerateSlug(tc.in); got != tc.want {
			t.Fatalf("GenerateSlug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
