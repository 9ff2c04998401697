package metadata

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"

	"podread/internal/content"
	"podread/internal/models"
	"podread/internal/query"
)

// ArtifactSuffix names the summary file that accompanies each transcript.
const ArtifactSuffix = "_claude_artifact.md"

const (
	defaultTitle   = "Unknown Title"
	defaultChannel = "Unknown Channel"
)

// ErrNoArtifact reports a transcript without its summary artifact.
var ErrNoArtifact = errors.New("no artifact")

var metadataLine = regexp.MustCompile(`^([A-Z]+):\s*(.+)$`)

var audioExtensions = []string{".mp3", ".m4a", ".flac", ".ogg"}

type frontMatter struct {
	Title     string `yaml:"title"`
	Channel   string `yaml:"channel"`
	Published string `yaml:"published"`
	Duration  string `yaml:"duration"`
	URL       string `yaml:"url"`
	Views     string `yaml:"views"`
}

// BuildEpisode assembles an episode from a transcript metadata file and its
// sibling artifact. now decides whether the episode is still premium.
func BuildEpisode(txtPath string, now time.Time) (models.Episode, error) {
	raw, err := os.ReadFile(txtPath)
	if err != nil {
		return models.Episode{}, err
	}
	fields := ParseMetadata(string(raw))

	dir := filepath.Dir(txtPath)
	base := strings.TrimSuffix(filepath.Base(txtPath), filepath.Ext(txtPath))

	artifactPath := filepath.Join(dir, base+ArtifactSuffix)
	source, err := os.ReadFile(artifactPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Episode{}, fmt.Errorf("%w: %s", ErrNoArtifact, filepath.Base(artifactPath))
		}
		return models.Episode{}, err
	}

	// An artifact may open with a plain markdown rule rather than YAML; when
	// the block does not parse, the whole file is the body.
	var meta frontMatter
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		meta = frontMatter{}
		body = source
	}

	fill(fields, "title", meta.Title)
	fill(fields, "channel", meta.Channel)
	fill(fields, "published", meta.Published)
	fill(fields, "duration", meta.Duration)
	fill(fields, "url", meta.URL)
	fill(fields, "views", meta.Views)

	if audio := findAudio(dir, base); audio != "" {
		if fields["title"] == "" {
			fill(fields, "title", readTitle(audio))
		}
		if fields["duration"] == "" && strings.EqualFold(filepath.Ext(audio), ".mp3") {
			if seconds, err := computeMP3Duration(audio); err == nil && seconds > 0 {
				fields["duration"] = FormatDuration(seconds)
			}
		}
	}

	slug := content.Slugify(base)
	title := fields["title"]
	if title == "" {
		title = defaultTitle
	}
	channel := fields["channel"]
	if channel == "" {
		channel = defaultChannel
	}

	return models.Episode{
		ID:          slug,
		Slug:        slug,
		Title:       title,
		Channel:     channel,
		PublishedAt: fields["published"],
		Duration:    fields["duration"],
		URL:         fields["url"],
		Views:       fields["views"],
		Content:     string(body),
		IsPremium:   IsPremium(fields["published"], now),
	}, nil
}

// ParseMetadata reads "KEY: value" lines. Keys are upper case in the file and
// lower case in the result; later lines win.
func ParseMetadata(text string) map[string]string {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		match := metadataLine.FindStringSubmatch(strings.TrimRight(scanner.Text(), "\r"))
		if match == nil {
			continue
		}
		value := strings.TrimSpace(match[2])
		if value == "" {
			continue
		}
		fields[strings.ToLower(match[1])] = value
	}
	return fields
}

// IsPremium reports whether published falls within the month before now.
// Unparseable or empty dates are never premium.
func IsPremium(published string, now time.Time) bool {
	date, ok := query.ParseDate(published)
	if !ok {
		return false
	}
	return date.After(now.AddDate(0, -1, 0))
}

// FormatDuration renders seconds as HH:MM:SS.
func FormatDuration(seconds float64) string {
	total := int(seconds + 0.5)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

func fill(fields map[string]string, key, value string) {
	value = strings.TrimSpace(value)
	if value == "" || fields[key] != "" {
		return
	}
	fields[key] = value
}

func findAudio(dir, base string) string {
	for _, ext := range audioExtensions {
		path := filepath.Join(dir, base+ext)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path
		}
	}
	return ""
}

func readTitle(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(meta.Title())
}

func computeMP3Duration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoder := mp3.NewDecoder(f)
	var frame mp3.Frame
	var skipped int
	var total float64

	for {
		err := decoder.Decode(&frame, &skipped)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
		total += frame.Duration().Seconds()
	}

	return total, nil
}
