package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podread/internal/models"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello World":            "hello-world",
		"  AI & Geopolitics!  ":  "ai-geopolitics",
		"Part 2: The Future":     "part-2-the-future",
		"---":                    "",
		"Café au lait":           "caf-au-lait",
		"already-slugged-text":   "already-slugged-text",
		"Multiple   Spaces__Too": "multiple-spaces-too",
	}
	for input, want := range cases {
		assert.Equal(t, want, Slugify(input), "input %q", input)
	}
}

func TestExtractHeadings(t *testing.T) {
	content := "# Title\n## Overview\ntext\n### Sub heading\n## Next Steps  \n##NoSpace\nnot ## inline\n## Overview\n"

	headings := ExtractHeadings(content)

	require.Equal(t, []models.Heading{
		{ID: "overview", Text: "Overview"},
		{ID: "next-steps", Text: "Next Steps"},
		{ID: "overview", Text: "Overview"},
	}, headings)
}

func TestExtractHeadingsEmpty(t *testing.T) {
	headings := ExtractHeadings("")
	require.NotNil(t, headings)
	require.Empty(t, headings)

	require.Empty(t, ExtractHeadings("no headings here\n### deeper only"))
}

func TestReadingTime(t *testing.T) {
	words := func(n int) string { return strings.Repeat("word ", n) }

	assert.Equal(t, 1, ReadingTime(""))
	assert.Equal(t, 1, ReadingTime("   \n\t"))
	assert.Equal(t, 1, ReadingTime(words(220)))
	assert.Equal(t, 2, ReadingTime(words(221)))
	assert.Equal(t, 2, ReadingTime(words(440)))
	assert.Equal(t, 3, ReadingTime(words(441)))
}

func TestReadingTimeIgnoresMarkup(t *testing.T) {
	assert.Equal(t, 1, ReadingTime(strings.Repeat("# ** __ ~~ ` ", 500)))
	assert.Equal(t, 1, ReadingTime(strings.Repeat("<span></span> ", 500)))
	assert.Equal(t, 2, ReadingTime("<p>"+strings.Repeat("**bold** ", 221)+"</p>"))
}

func TestReadingTimeMonotonic(t *testing.T) {
	previous := 0
	for n := 0; n <= 2000; n += 37 {
		minutes := ReadingTime(strings.Repeat("w ", n))
		require.GreaterOrEqual(t, minutes, 1)
		require.GreaterOrEqual(t, minutes, previous, "word count %d", n)
		previous = minutes
	}
}

func TestTeaser(t *testing.T) {
	assert.Equal(t, "a\n\nb\n\nc", Teaser("a\n\nb\n\nc\n\nd\n\ne"))
	assert.Equal(t, "one", Teaser("one"))
	assert.Equal(t, "one\n\ntwo", Teaser("one\n\ntwo"))
	assert.Equal(t, "", Teaser(""))
	assert.Equal(t, "x\ny\n\nz", Teaser("x\ny\n\nz"))
}
