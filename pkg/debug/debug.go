// Package debug provides category-based debug logging.
//
// Categories select WHAT to debug; the level of the default slog logger
// still decides whether debug records are written at all.
//
//	debug.Log("books", "upstream request", "url", u)
//	if debug.Enabled("storage") { /* expensive formatting */ }
//
// Categories: auth, books, storage, all. Set via BOOKSTORE_DEBUG or the
// logging.debug config field.
package debug

import (
	"context"
	"log/slog"
	"os"
	"slices"
	"strings"
)

// Known categories.
const (
	Auth    = "auth"
	Books   = "books"
	Storage = "storage"
	All     = "all"
)

// categories is read-only after Init.
var categories map[string]bool

func init() {
	categories = parseCategories(os.Getenv("BOOKSTORE_DEBUG"))
}

// Init configures the enabled categories at startup. BOOKSTORE_DEBUG
// overrides the configured value.
func Init(configCategories string) {
	cats := os.Getenv("BOOKSTORE_DEBUG")
	if cats == "" {
		cats = configCategories
	}
	categories = parseCategories(cats)
}

// Enabled reports whether debug output is active for the given category.
func Enabled(category string) bool {
	return categories[All] || categories[category]
}

// Log emits a debug record tagged with the category. It is a no-op when the
// category is disabled.
func Log(ctx context.Context, category, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	slog.Default().Log(ctx, slog.LevelDebug, msg, append([]any{"debug", category}, args...)...)
}

// Categories returns the enabled categories in sorted order.
func Categories() []string {
	result := make([]string, 0, len(categories))
	for k := range categories {
		result = append(result, k)
	}
	slices.Sort(result)
	return result
}

// Truncate returns s truncated to maxLen bytes, with "..." appended if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
