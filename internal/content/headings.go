package content

import (
	"regexp"
	"strings"

	"podread/internal/models"
)

var (
	headingPattern = regexp.MustCompile(`(?m)^## (.+)$`)
	nonSlugRun     = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify lowercases text and collapses every run of characters outside
// [a-z0-9] into a single hyphen, trimming hyphens at both ends.
func Slugify(text string) string {
	slug := nonSlugRun.ReplaceAllString(strings.ToLower(text), "-")
	return strings.Trim(slug, "-")
}

// ExtractHeadings returns the level-2 headings of raw markdown in document
// order. Headings sharing the same text share the same id.
func ExtractHeadings(content string) []models.Heading {
	matches := headingPattern.FindAllStringSubmatch(content, -1)
	headings := make([]models.Heading, 0, len(matches))
	for _, match := range matches {
		text := strings.TrimSpace(match[1])
		headings = append(headings, models.Heading{
			ID:   Slugify(text),
			Text: text,
		})
	}
	return headings
}
