package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolveDataFileDefaultAndCustom(t *testing.T) {
	temp := t.TempDir()

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(cwd)
	})

	if err := os.Chdir(temp); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	t.Setenv("PODREAD_DATA_FILE", "")

	path, err := ResolveDataFile()
	if err != nil {
		t.Fatalf("ResolveDataFile default: %v", err)
	}
	if filepath.Base(path) != "episodes.json" {
		t.Fatalf("expected episodes.json, got %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir data dir: %v", err)
	}
	assertSamePath(t, filepath.Dir(path), filepath.Join(temp, "data"))

	tempHome := filepath.Join(temp, "home")
	if err := os.Mkdir(tempHome, 0o755); err != nil {
		t.Fatalf("mkdir temp home: %v", err)
	}

	t.Setenv("HOME", tempHome)
	t.Setenv("PODREAD_DATA_FILE", "~/podread.json")

	path, err = ResolveDataFile()
	if err != nil {
		t.Fatalf("ResolveDataFile tilde: %v", err)
	}
	if filepath.Base(path) != "podread.json" {
		t.Fatalf("expected podread.json, got %s", path)
	}
	assertSamePath(t, filepath.Dir(path), tempHome)
}

func TestResolveSourceDir(t *testing.T) {
	temp := t.TempDir()

	t.Setenv("PODREAD_SOURCE_DIR", "")
	if path, ok, err := ResolveSourceDir(); err != nil || ok || path != "" {
		t.Fatalf("expected no source dir when env unset, got %q %t %v", path, ok, err)
	}

	t.Setenv("PODREAD_SOURCE_DIR", temp)
	path, ok, err := ResolveSourceDir()
	if err != nil || !ok {
		t.Fatalf("ResolveSourceDir: %v %t", err, ok)
	}
	assertSamePath(t, path, temp)

	t.Setenv("PODREAD_SOURCE_DIR", filepath.Join(temp, "missing"))
	if _, _, err := ResolveSourceDir(); err == nil {
		t.Fatalf("expected error for missing source dir")
	}

	file := filepath.Join(temp, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	t.Setenv("PODREAD_SOURCE_DIR", file)
	if _, _, err := ResolveSourceDir(); err == nil {
		t.Fatalf("expected error when source is a file")
	}
}

func TestResolveSubscriberFile(t *testing.T) {
	temp := t.TempDir()

	t.Setenv("PODREAD_SUBSCRIBER_FILE", "")
	if path, ok, err := ResolveSubscriberFile(); err != nil || ok || path != "" {
		t.Fatalf("expected no file when env unset, got %q %t %v", path, ok, err)
	}

	tokenFile := filepath.Join(temp, "tokens", "subscribers.txt")
	t.Setenv("PODREAD_SUBSCRIBER_FILE", tokenFile)

	path, ok, err := ResolveSubscriberFile()
	if err != nil {
		t.Fatalf("ResolveSubscriberFile: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok flag when env set")
	}
	assertSamePath(t, path, tokenFile)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat token file: %v", err)
	}
	if !info.Mode().IsRegular() {
		t.Fatalf("expected token path to be a regular file")
	}
}

func TestListenAddr(t *testing.T) {
	t.Setenv("PODREAD_LISTEN_ADDR", "")
	if ListenAddr() != "127.0.0.1:8080" {
		t.Fatalf("expected default listen address")
	}

	t.Setenv("PODREAD_LISTEN_ADDR", "localhost:9000")
	if ListenAddr() != "localhost:9000" {
		t.Fatalf("expected custom listen address")
	}
}

func TestRefreshDebounce(t *testing.T) {
	t.Setenv("PODREAD_REFRESH_DEBOUNCE_MS", "")
	if RefreshDebounce() != 500*time.Millisecond {
		t.Fatalf("expected default debounce")
	}

	t.Setenv("PODREAD_REFRESH_DEBOUNCE_MS", "1500")
	if RefreshDebounce() != 1500*time.Millisecond {
		t.Fatalf("expected custom debounce")
	}

	t.Setenv("PODREAD_REFRESH_DEBOUNCE_MS", "not-a-number")
	if RefreshDebounce() != 500*time.Millisecond {
		t.Fatalf("expected fallback debounce on parse error")
	}

	t.Setenv("PODREAD_REFRESH_DEBOUNCE_MS", "-10")
	if RefreshDebounce() != 500*time.Millisecond {
		t.Fatalf("expected fallback debounce on negative value")
	}
}

func TestValidateListenAddr(t *testing.T) {
	valid := []string{"127.0.0.1:8080", "localhost:9000", "[::1]:7000"}
	for _, addr := range valid {
		if err := ValidateListenAddr(addr); err != nil {
			t.Fatalf("expected %s to be valid: %v", addr, err)
		}
	}

	invalid := []string{"0.0.0.0:80", "192.168.1.1:1234", ":8080"}
	for _, addr := range invalid {
		if err := ValidateListenAddr(addr); err == nil {
			t.Fatalf("expected %s to be rejected", addr)
		}
	}
}

func TestLoggingSettings(t *testing.T) {
	t.Setenv("PODREAD_LOG_LEVEL", "")
	t.Setenv("PODREAD_ENV", "")
	if LogLevel() != "info" || Env() != "" {
		t.Fatalf("expected defaults, got %q %q", LogLevel(), Env())
	}

	t.Setenv("PODREAD_LOG_LEVEL", "debug")
	t.Setenv("PODREAD_ENV", " development ")
	if LogLevel() != "debug" || Env() != "development" {
		t.Fatalf("expected overrides, got %q %q", LogLevel(), Env())
	}
}

func clearSiteEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PODREAD_SITE_CONFIG", "PODREAD_SITE_TITLE", "PODREAD_SITE_DESCRIPTION", "PODREAD_SITE_LANGUAGE", "PODREAD_SITE_AUTHOR", "PODREAD_SITE_BASE_URL"} {
		t.Setenv(key, "")
	}
}

func TestResolveSiteDefaultsAndEnv(t *testing.T) {
	clearSiteEnv(t)

	site, err := ResolveSite()
	if err != nil {
		t.Fatalf("ResolveSite: %v", err)
	}

	if site.Title != defaultSiteTitle || site.Description != defaultSiteDescription || site.Language != defaultSiteLanguage || site.Author != "" || site.BaseURL != "" {
		t.Fatalf("expected defaults, got %+v", site)
	}

	t.Setenv("PODREAD_SITE_TITLE", "My Reads")
	t.Setenv("PODREAD_SITE_DESCRIPTION", "All the summaries")
	t.Setenv("PODREAD_SITE_LANGUAGE", "fr")
	t.Setenv("PODREAD_SITE_AUTHOR", "Jane Doe")
	t.Setenv("PODREAD_SITE_BASE_URL", "https://reads.example.com/")

	site, err = ResolveSite()
	if err != nil {
		t.Fatalf("ResolveSite overrides: %v", err)
	}

	if site.Title != "My Reads" || site.Description != "All the summaries" || site.Language != "fr" || site.Author != "Jane Doe" || site.BaseURL != "https://reads.example.com" {
		t.Fatalf("expected env overrides, got %+v", site)
	}
}

func TestResolveSiteFromFile(t *testing.T) {
	clearSiteEnv(t)

	temp := t.TempDir()
	configPath := filepath.Join(temp, "site.yaml")
	content := "" +
		"title: File Title\n" +
		"description: File Description\n" +
		"language: es\n" +
		"author: File Author\n" +
		"baseURL: https://file.example.com\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("PODREAD_SITE_CONFIG", configPath)

	site, err := ResolveSite()
	if err != nil {
		t.Fatalf("ResolveSite: %v", err)
	}

	if site.Title != "File Title" || site.Description != "File Description" || site.Language != "es" || site.Author != "File Author" || site.BaseURL != "https://file.example.com" {
		t.Fatalf("expected file-derived metadata, got %+v", site)
	}

	t.Setenv("PODREAD_SITE_TITLE", "Env Title")
	site, err = ResolveSite()
	if err != nil {
		t.Fatalf("ResolveSite env override: %v", err)
	}
	if site.Title != "Env Title" {
		t.Fatalf("expected env override to win, got %s", site.Title)
	}
}

func TestResolveSiteBadFile(t *testing.T) {
	clearSiteEnv(t)

	temp := t.TempDir()
	t.Setenv("PODREAD_SITE_CONFIG", filepath.Join(temp, "missing.yaml"))
	if _, err := ResolveSite(); err == nil {
		t.Fatalf("expected error for missing site config")
	}

	broken := filepath.Join(temp, "broken.yaml")
	if err := os.WriteFile(broken, []byte("title: [unclosed\n"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("PODREAD_SITE_CONFIG", broken)
	if _, err := ResolveSite(); err == nil {
		t.Fatalf("expected error for malformed site config")
	}
}

func assertSamePath(t *testing.T, got, want string) {
	t.Helper()
	resolvedGot, err := filepath.EvalSymlinks(got)
	if err != nil {
		t.Fatalf("eval symlinks for %s: %v", got, err)
	}
	resolvedWant, err := filepath.EvalSymlinks(want)
	if err != nil {
		t.Fatalf("eval symlinks for %s: %v", want, err)
	}
	if resolvedGot != resolvedWant {
		t.Fatalf("expected %s, got %s", resolvedWant, resolvedGot)
	}
}
