package content

import (
	"regexp"
	"strings"
)

// WordsPerMinute is the reading speed used for estimates.
const WordsPerMinute = 220

var (
	tagPattern      = regexp.MustCompile(`<[^>]*>`)
	emphasisPattern = regexp.MustCompile("[#*_`~]")
)

// ReadingTime estimates the minutes needed to read content. The result is
// never below one minute.
func ReadingTime(content string) int {
	text := tagPattern.ReplaceAllString(content, "")
	text = emphasisPattern.ReplaceAllString(text, "")

	words := len(strings.Fields(text))
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}
