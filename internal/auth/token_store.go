package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// TokenStore holds the subscriber tokens listed in a file on disk and reloads
// them when the file changes.
type TokenStore struct {
	file         string
	logger       zerolog.Logger
	watcher      *fsnotify.Watcher
	refreshDelay time.Duration

	mu     sync.RWMutex
	tokens map[string]struct{}

	refreshMu    sync.Mutex
	refreshTimer *time.Timer
	done         chan struct{}
	wg           sync.WaitGroup
	closeOnce    sync.Once
	closeErr     error
}

// NewTokenStore creates a TokenStore backed by filePath. Each trimmed line is
// a token; blank lines and lines starting with '#' are skipped.
func NewTokenStore(filePath string, debounce time.Duration, logger zerolog.Logger) (*TokenStore, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	s := &TokenStore{
		file:         filepath.Clean(filePath),
		logger:       logger.With().Str("component", "tokens").Logger(),
		watcher:      watcher,
		refreshDelay: debounce,
		tokens:       make(map[string]struct{}),
		done:         make(chan struct{}),
	}

	if err := s.refresh(); err != nil {
		watcher.Close()
		return nil, err
	}

	dir := filepath.Dir(s.file)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	s.wg.Add(1)
	go s.run()

	return s, nil
}

// Close stops the file watcher and releases resources.
func (s *TokenStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)

		s.refreshMu.Lock()
		if s.refreshTimer != nil {
			s.refreshTimer.Stop()
			s.refreshTimer = nil
		}
		s.refreshMu.Unlock()

		s.closeErr = s.watcher.Close()
		s.wg.Wait()
	})
	return s.closeErr
}

// IsValidToken reports whether token belongs to a subscriber.
func (s *TokenStore) IsValidToken(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tokens[token]
	return ok
}

// Count returns the number of loaded tokens.
func (s *TokenStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

func (s *TokenStore) run() {
	defer s.wg.Done()

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error().Err(err).Msg("token watcher error")
		case <-s.done:
			return
		}
	}
}

func (s *TokenStore) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != s.file {
		return
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
		s.scheduleRefresh()
	}
}

func (s *TokenStore) scheduleRefresh() {
	select {
	case <-s.done:
		return
	default:
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if s.refreshTimer != nil {
		s.refreshTimer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(s.refreshDelay, func() {
		if err := s.refresh(); err != nil {
			s.logger.Error().Err(err).Msg("token refresh error")
		}

		s.refreshMu.Lock()
		if s.refreshTimer == timer {
			s.refreshTimer = nil
		}
		s.refreshMu.Unlock()
	})
	s.refreshTimer = timer
}

func (s *TokenStore) refresh() error {
	data, err := os.ReadFile(s.file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.mu.Lock()
			s.tokens = make(map[string]struct{})
			s.mu.Unlock()
			s.logger.Warn().Str("file", s.file).Msg("subscriber file missing; no tokens loaded")
			return nil
		}
		return err
	}

	tokens := parseTokens(string(data))

	s.mu.Lock()
	s.tokens = tokens
	s.mu.Unlock()

	s.logger.Info().Int("tokens", len(tokens)).Msg("loaded subscriber tokens")
	return nil
}

func parseTokens(text string) map[string]struct{} {
	lines := strings.Split(text, "\n")
	tokens := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		token := strings.TrimSpace(line)
		if token == "" || strings.HasPrefix(token, "#") {
			continue
		}
		tokens[token] = struct{}{}
	}
	return tokens
}
