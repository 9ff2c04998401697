package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr        = "127.0.0.1:8080"
	defaultDataFile          = "data/episodes.json"
	defaultRefreshDebounceMS = 500
	defaultSiteTitle         = "PodRead"
	defaultSiteDescription   = "Readable summaries of long-form podcast episodes."
	defaultSiteLanguage      = "en"
	defaultLogLevel          = "info"
)

// ListenAddr returns the TCP address the HTTP server should bind to.
func ListenAddr() string {
	addr := strings.TrimSpace(os.Getenv("PODREAD_LISTEN_ADDR"))
	if addr == "" {
		return defaultListenAddr
	}
	return addr
}

// ValidateListenAddr ensures the configured listen address is restricted to localhost.
func ValidateListenAddr(addr string) error {
	addr = strings.TrimSpace(strings.ToLower(addr))
	if strings.HasPrefix(addr, "127.0.0.1:") || strings.HasPrefix(addr, "localhost:") || strings.HasPrefix(addr, "[::1]:") {
		return nil
	}
	return errors.New("listen address must bind to localhost for security")
}

// ResolveDataFile returns the absolute path of the episode dataset. The file
// itself is not required to exist yet.
func ResolveDataFile() (string, error) {
	path := strings.TrimSpace(os.Getenv("PODREAD_DATA_FILE"))
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		path = filepath.Join(cwd, defaultDataFile)
	}
	return expandPath(path)
}

// ResolveSourceDir returns the transcript directory for the dataset builder.
// The second return value is false when no directory is configured.
func ResolveSourceDir() (string, bool, error) {
	dir := strings.TrimSpace(os.Getenv("PODREAD_SOURCE_DIR"))
	if dir == "" {
		return "", false, nil
	}

	abs, err := expandPath(dir)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", false, err
	}
	if !info.IsDir() {
		return "", false, errors.New("source path is not a directory")
	}
	return abs, true, nil
}

// RefreshDebounce returns the duration to wait before reloading after
// file-system change events.
func RefreshDebounce() time.Duration {
	value := strings.TrimSpace(os.Getenv("PODREAD_REFRESH_DEBOUNCE_MS"))
	if value == "" {
		return time.Duration(defaultRefreshDebounceMS) * time.Millisecond
	}

	ms, err := strconv.Atoi(value)
	if err != nil || ms < 0 {
		return time.Duration(defaultRefreshDebounceMS) * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}

// ResolveSubscriberFile returns the absolute path to the subscriber token file
// when configured. The file is created if it does not already exist. When no
// file is configured the second return value will be false.
func ResolveSubscriberFile() (string, bool, error) {
	path := strings.TrimSpace(os.Getenv("PODREAD_SUBSCRIBER_FILE"))
	if path == "" {
		return "", false, nil
	}

	abs, err := expandPath(path)
	if err != nil {
		return "", false, err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", false, err
	}

	if _, err := os.Stat(abs); err != nil {
		if !os.IsNotExist(err) {
			return "", false, err
		}
		file, err := os.OpenFile(abs, os.O_CREATE|os.O_RDWR, 0o600)
		if err != nil {
			return "", false, err
		}
		if err := file.Close(); err != nil {
			return "", false, err
		}
	}

	return abs, true, nil
}

// AdminPassword returns the admin login password; empty disables login.
func AdminPassword() string {
	return os.Getenv("PODREAD_ADMIN_PASSWORD")
}

// LogLevel returns the configured log level name.
func LogLevel() string {
	if value := strings.TrimSpace(os.Getenv("PODREAD_LOG_LEVEL")); value != "" {
		return value
	}
	return defaultLogLevel
}

// Env returns the deployment environment name.
func Env() string {
	return strings.TrimSpace(os.Getenv("PODREAD_ENV"))
}

// Site describes the publication shown in the RSS feed.
type Site struct {
	Title       string
	Description string
	Language    string
	Author      string
	BaseURL     string
}

type siteYAML struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Language    string `yaml:"language"`
	Author      string `yaml:"author"`
	BaseURL     string `yaml:"baseURL"`
}

// ResolveSite returns the site metadata after applying defaults, the YAML
// file named by PODREAD_SITE_CONFIG, and environment overrides.
func ResolveSite() (Site, error) {
	site := Site{
		Title:       defaultSiteTitle,
		Description: defaultSiteDescription,
		Language:    defaultSiteLanguage,
	}

	if configPath := strings.TrimSpace(os.Getenv("PODREAD_SITE_CONFIG")); configPath != "" {
		resolved, err := expandPath(configPath)
		if err != nil {
			return Site{}, err
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			return Site{}, err
		}
		var file siteYAML
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Site{}, err
		}
		override(&site.Title, file.Title)
		override(&site.Description, file.Description)
		override(&site.Language, file.Language)
		override(&site.Author, file.Author)
		override(&site.BaseURL, file.BaseURL)
	}

	override(&site.Title, os.Getenv("PODREAD_SITE_TITLE"))
	override(&site.Description, os.Getenv("PODREAD_SITE_DESCRIPTION"))
	override(&site.Language, os.Getenv("PODREAD_SITE_LANGUAGE"))
	override(&site.Author, os.Getenv("PODREAD_SITE_AUTHOR"))
	override(&site.BaseURL, os.Getenv("PODREAD_SITE_BASE_URL"))

	site.BaseURL = strings.TrimRight(site.BaseURL, "/")
	return site, nil
}

func override(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	return filepath.Abs(path)
}
