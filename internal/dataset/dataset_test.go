package dataset

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podread/internal/models"
)

func writeDataset(t *testing.T, episodes any) string {
	t.Helper()
	data, err := json.Marshal(episodes)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "episodes.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func validEpisode(slug string) models.Episode {
	return models.Episode{
		ID:          slug,
		Slug:        slug,
		Title:       "Title " + slug,
		Channel:     "Channel",
		PublishedAt: "2025-01-01",
		Content:     "## Heading\nBody",
	}
}

func TestFileSourceLoadsFreshOnEveryCall(t *testing.T) {
	path := writeDataset(t, []models.Episode{validEpisode("first")})
	source := NewFileSource(path)

	episodes, err := source.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, "first", episodes[0].Slug)

	data, err := json.Marshal([]models.Episode{validEpisode("first"), validEpisode("second")})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	episodes, err = source.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, episodes, 2)
}

func TestFileSourceDecodesFieldNames(t *testing.T) {
	raw := `[{"id":"a","slug":"a","title":"T","channel":"C","publishedAt":"May 1, 2025","duration":"1:02:03","url":"https://example.com","views":"12K","content":"Hi","isPremium":true}]`
	path := filepath.Join(t.TempDir(), "episodes.json")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	episodes, err := NewFileSource(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, episodes, 1)

	ep := episodes[0]
	assert.Equal(t, "May 1, 2025", ep.PublishedAt)
	assert.Equal(t, "1:02:03", ep.Duration)
	assert.Equal(t, "12K", ep.Views)
	assert.True(t, ep.IsPremium)
}

func TestFileSourceMissingFile(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope.json")).Load(context.Background())
	require.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestFileSourceMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "episodes.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"slug": "a",`), 0o644))

	episodes, err := NewFileSource(path).Load(context.Background())
	require.ErrorIs(t, err, ErrMalformedDataset)
	assert.Nil(t, episodes)
}

func TestFileSourceRejectsDuplicateSlugs(t *testing.T) {
	path := writeDataset(t, []models.Episode{validEpisode("same"), validEpisode("other"), validEpisode("same")})

	_, err := NewFileSource(path).Load(context.Background())
	require.ErrorIs(t, err, ErrMalformedDataset)
	assert.Contains(t, err.Error(), `"same"`)
}

func TestFileSourceRejectsInvalidRecords(t *testing.T) {
	bad := validEpisode("ok")
	bad.Slug = "Not A Slug"

	_, err := NewFileSource(writeDataset(t, []models.Episode{bad})).Load(context.Background())
	require.ErrorIs(t, err, ErrMalformedDataset)

	missingTitle := validEpisode("ok")
	missingTitle.Title = ""
	_, err = NewFileSource(writeDataset(t, []models.Episode{missingTitle})).Load(context.Background())
	require.ErrorIs(t, err, ErrMalformedDataset)
}

func TestFileSourceEmptyArray(t *testing.T) {
	episodes, err := NewFileSource(writeDataset(t, []models.Episode{})).Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, episodes)
	assert.Empty(t, episodes)
}

func TestFileSourceHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileSource(writeDataset(t, []models.Episode{validEpisode("a")})).Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestValidateEpisode(t *testing.T) {
	assert.NoError(t, ValidateEpisode(validEpisode("a-valid-slug-2")))

	for _, slug := range []string{"", "-leading", "trailing-", "double--hyphen", "UPPER", "under_score"} {
		ep := validEpisode("x")
		ep.Slug = slug
		assert.Error(t, ValidateEpisode(ep), "slug %q", slug)
	}
}
