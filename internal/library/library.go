package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"podread/internal/dataset"
	"podread/internal/metadata"
	"podread/internal/models"
	"podread/internal/query"
)

// watchedExtensions lists the files whose changes trigger a rebuild.
var watchedExtensions = map[string]struct{}{
	".txt":  {},
	".md":   {},
	".mp3":  {},
	".m4a":  {},
	".flac": {},
	".ogg":  {},
}

const (
	tempPrefix = ".episodes-"
	tempSuffix = ".tmp"
)

// Builder turns a directory of transcripts and artifacts into the episode
// dataset and optionally keeps it current while the directory changes.
type Builder struct {
	source string
	output string
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	episodes []models.Episode

	buildMu sync.Mutex

	watcher      *fsnotify.Watcher
	refreshMu    sync.Mutex
	refreshTimer *time.Timer
	refreshDelay time.Duration

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// NewBuilder creates a builder reading source and writing the dataset to output.
func NewBuilder(source, output string, logger zerolog.Logger) *Builder {
	return &Builder{
		source: source,
		output: output,
		logger: logger.With().Str("component", "library").Logger(),
		now:    time.Now,
		done:   make(chan struct{}),
	}
}

// Build scans the source directory once and rewrites the dataset.
func (b *Builder) Build() ([]models.Episode, error) {
	b.buildMu.Lock()
	defer b.buildMu.Unlock()

	info, err := os.Stat(b.source)
	if err != nil {
		return nil, fmt.Errorf("source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source directory: %s is not a directory", b.source)
	}

	now := b.now()
	episodes := make([]models.Episode, 0)
	seen := make(map[string]string)

	err = filepath.WalkDir(b.source, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			b.logger.Warn().Err(err).Str("path", path).Msg("walk error")
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".txt") {
			return nil
		}

		episode, err := metadata.BuildEpisode(path, now)
		if err != nil {
			if errors.Is(err, metadata.ErrNoArtifact) {
				b.logger.Warn().Str("path", path).Msg("skipping transcript without artifact")
			} else {
				b.logger.Error().Err(err).Str("path", path).Msg("metadata error")
			}
			return nil
		}
		if err := dataset.ValidateEpisode(episode); err != nil {
			b.logger.Warn().Err(err).Str("path", path).Msg("skipping invalid episode")
			return nil
		}
		if first, ok := seen[episode.Slug]; ok {
			b.logger.Warn().Str("path", path).Str("slug", episode.Slug).Str("first", first).Msg("skipping duplicate slug")
			return nil
		}
		seen[episode.Slug] = path

		episodes = append(episodes, episode)
		return nil
	})
	if err != nil {
		return nil, err
	}

	episodes = query.SortByDate(episodes, query.Newest)

	if err := writeAtomic(b.output, episodes); err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.episodes = episodes
	b.mu.Unlock()

	b.logger.Info().Int("episodes", len(episodes)).Str("output", b.output).Msg("dataset built")
	return episodes, nil
}

// Episodes returns a snapshot of the last successful build.
func (b *Builder) Episodes() []models.Episode {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]models.Episode, len(b.episodes))
	copy(result, b.episodes)
	return result
}

// Watch builds once and then rebuilds debounce after the last change in
// the source tree. It returns once the watcher is running.
func (b *Builder) Watch(debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	b.watcher = watcher
	b.refreshDelay = debounce
	b.addWatchRecursive(b.source)

	if _, err := b.Build(); err != nil {
		watcher.Close()
		b.watcher = nil
		return err
	}

	b.wg.Add(1)
	go b.run()
	return nil
}

// Close stops watching and waits for pending work.
func (b *Builder) Close() error {
	b.closeOnce.Do(func() {
		close(b.done)

		b.refreshMu.Lock()
		if b.refreshTimer != nil {
			b.refreshTimer.Stop()
			b.refreshTimer = nil
		}
		b.refreshMu.Unlock()

		if b.watcher != nil {
			b.closeErr = b.watcher.Close()
		}
		b.wg.Wait()
	})
	return b.closeErr
}

func (b *Builder) run() {
	defer b.wg.Done()

	for {
		select {
		case event, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			b.handleEvent(event)
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			b.logger.Error().Err(err).Msg("watcher error")
		case <-b.done:
			return
		}
	}
}

func (b *Builder) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			b.addWatchRecursive(event.Name)
		}
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if filepath.Clean(event.Name) == filepath.Clean(b.output) || isTempFile(event.Name) {
		return
	}
	if isWatched(event.Name) || event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		b.scheduleRefresh()
	}
}

func (b *Builder) scheduleRefresh() {
	select {
	case <-b.done:
		return
	default:
	}

	b.refreshMu.Lock()
	defer b.refreshMu.Unlock()

	if b.refreshTimer != nil {
		b.refreshTimer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(b.refreshDelay, func() {
		select {
		case <-b.done:
			return
		default:
		}

		if _, err := b.Build(); err != nil {
			b.logger.Error().Err(err).Msg("rebuild failed")
		}

		b.refreshMu.Lock()
		if b.refreshTimer == timer {
			b.refreshTimer = nil
		}
		b.refreshMu.Unlock()
	})

	b.refreshTimer = timer
}

func (b *Builder) addWatchRecursive(path string) {
	filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			b.logger.Warn().Err(err).Str("path", p).Msg("walk error")
			return nil
		}

		if d.IsDir() {
			if err := b.watcher.Add(p); err != nil {
				b.logger.Warn().Err(err).Str("path", p).Msg("watcher add failure")
			}
		}
		return nil
	})
}

func isTempFile(path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, tempPrefix) && strings.HasSuffix(name, tempSuffix)
}

func isWatched(path string) bool {
	_, ok := watchedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// writeAtomic replaces path with the JSON encoding of episodes so readers
// never observe a partial file.
func writeAtomic(path string, episodes []models.Episode) error {
	data, err := json.MarshalIndent(episodes, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*"+tempSuffix)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}
	return nil
}
