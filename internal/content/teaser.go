package content

import "strings"

const teaserParagraphs = 3

// Teaser returns the first three blank-line separated paragraphs of
// content. It is what non-entitled viewers see of a premium episode.
func Teaser(content string) string {
	if content == "" {
		return ""
	}
	parts := strings.Split(content, "\n\n")
	if len(parts) > teaserParagraphs {
		parts = parts[:teaserParagraphs]
	}
	return strings.Join(parts, "\n\n")
}
