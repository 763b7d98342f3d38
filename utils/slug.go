package utils

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and joins its alphanumeric runs with single dashes.
func Slugify(s string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if slug == "" {
		return "package"
	}
	return slug
}

// UniqueSlug returns base, or base-1, base-2 ... whichever taken reports as free.
func UniqueSlug(ctx context.Context, base string, taken func(ctx context.Context, slug string) (bool, error)) (string, error) {
	slug := base
	for i := 1; ; i++ {
		used, err := taken(ctx, slug)
		if err != nil {
			return "", err
		}
		if !used {
			return slug, nil
		}
		if i > 1000 {
			return "", fmt.Errorf("no free slug for %q", base)
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
