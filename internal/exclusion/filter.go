// Package exclusion decides which discovered items are skipped during
// ingestion.
package exclusion

import (
	"path/filepath"
	"strings"
)

// Filter is a pure predicate over file names and containing paths. Keyword
// matching is deliberately broad (substring, not token) to err toward
// over-exclusion of sensitive content.
type Filter struct {
	extensions map[string]struct{}
	keywords   []string
}

// NewFilter creates a filter from a denylist of extensions (with leading
// dot, any case) and keyword substrings (any case).
func NewFilter(extensions, keywords []string) *Filter {
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}

	kws := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kws = append(kws, strings.ToLower(kw))
	}

	return &Filter{extensions: exts, keywords: kws}
}

// ShouldSkip reports whether a file should be excluded, either because its
// extension is denied or because a denylist keyword appears in the file
// name or its containing path.
func (f *Filter) ShouldSkip(fileName, containingPath string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	if _, denied := f.extensions[ext]; denied {
		return true
	}

	lowerName := strings.ToLower(fileName)
	lowerPath := strings.ToLower(containingPath)
	for _, kw := range f.keywords {
		if strings.Contains(lowerName, kw) || strings.Contains(lowerPath, kw) {
			return true
		}
	}
	return false
}
