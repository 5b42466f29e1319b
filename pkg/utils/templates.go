package utils

import (
	"fmt"
	"html/template"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

func LoadTemplates(templatesDir string) (*template.Template, error) {
	pattern := filepath.Join(templatesDir, "*.html")

	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob templates: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found in %s", templatesDir)
	}

	sort.Strings(files)

	ordered := make([]string, 0, len(files))
	for _, file := range files {
		if filepath.Base(file) == "base.html" {
			ordered = append(ordered, file)
		}
	}
	for _, file := range files {
		if filepath.Base(file) != "base.html" {
			ordered = append(ordered, file)
		}
	}

	root := template.New(filepath.Base(ordered[0])).Funcs(GetTemplateFuncs())

	if _, err := root.ParseFiles(ordered...); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return root, nil
}

// FirstDefinedTemplate returns the first candidate that is actually defined in
// the template set. Candidates may contain empty strings (unset per-leaf
// overrides), which are skipped.
func FirstDefinedTemplate(root *template.Template, candidates []string) (string, bool) {
	if root == nil {
		return "", false
	}
	for _, name := range candidates {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if root.Lookup(name) != nil {
			return name, true
		}
	}
	return "", false
}

func GetTemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },

		"upper":     strings.ToUpper,
		"lower":     strings.ToLower,
		"trim":      strings.TrimSpace,
		"hasPrefix": strings.HasPrefix,

		"formatDate": func(t time.Time) string {
			return t.Format("January 2, 2006")
		},
		"formatDateTime": func(t time.Time) string {
			return t.Format("January 2, 2006 15:04")
		},

		"safeHTML": func(s string) template.HTML {
			return template.HTML(s)
		},
	}
}
