// Package dataset reads the static episode collection.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"podread/internal/models"
)

var (
	// ErrDatasetNotFound reports a missing dataset file.
	ErrDatasetNotFound = errors.New("dataset not found")
	// ErrMalformedDataset reports a dataset that cannot be decoded or
	// violates the episode invariants.
	ErrMalformedDataset = errors.New("malformed dataset")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// FileSource loads episodes from a JSON file on every call.
type FileSource struct {
	Path string
}

// NewFileSource returns a source reading the dataset at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Load reads and validates the whole dataset. Either every record loads or
// an error is returned.
func (s *FileSource) Load(ctx context.Context) ([]models.Episode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, s.Path)
		}
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	return Decode(data)
}

// Decode parses a JSON array of episodes and checks every record.
func Decode(data []byte) ([]models.Episode, error) {
	var episodes []models.Episode
	if err := json.Unmarshal(data, &episodes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDataset, err)
	}
	if episodes == nil {
		episodes = []models.Episode{}
	}

	if err := Validate(episodes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDataset, err)
	}
	return episodes, nil
}

// Validate checks the per-record invariants and slug uniqueness.
func Validate(episodes []models.Episode) error {
	seen := make(map[string]int, len(episodes))
	for i := range episodes {
		if err := ValidateEpisode(episodes[i]); err != nil {
			return fmt.Errorf("episode %d (%q): %w", i, episodes[i].Slug, err)
		}
		if first, ok := seen[episodes[i].Slug]; ok {
			return fmt.Errorf("episode %d: slug %q already used by episode %d", i, episodes[i].Slug, first)
		}
		seen[episodes[i].Slug] = i
	}
	return nil
}

// ValidateEpisode checks a single record.
func ValidateEpisode(ep models.Episode) error {
	return validation.ValidateStruct(&ep,
		validation.Field(&ep.Slug, validation.Required, validation.Match(slugPattern)),
		validation.Field(&ep.ID, validation.Required),
		validation.Field(&ep.Title, validation.Required),
		validation.Field(&ep.Channel, validation.Required),
	)
}
