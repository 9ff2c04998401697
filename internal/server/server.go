package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"podread/internal/auth"
	"podread/internal/bookmarks"
	"podread/internal/content"
	"podread/internal/dataset"
	"podread/internal/metrics"
	"podread/internal/models"
	"podread/internal/query"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// EpisodeSource loads the current episode collection.
type EpisodeSource interface {
	Load(ctx context.Context) ([]models.Episode, error)
}

// Renderer turns episode markdown into HTML.
type Renderer interface {
	Render(source string) (string, error)
}

// FeedMetadata describes the static information necessary to render the RSS feed.
type FeedMetadata struct {
	Title       string
	Description string
	Language    string
	Author      string
	BaseURL     string
}

// Options wires the handler to its collaborators. Episodes and Renderer are
// required; the rest fall back to disabled or in-memory versions.
type Options struct {
	Episodes    EpisodeSource
	Renderer    Renderer
	Entitlement *auth.Entitlement
	Sessions    *auth.Sessions
	Store       bookmarks.Store
	Feed        FeedMetadata
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
}

type serverHandler struct {
	episodes    EpisodeSource
	renderer    Renderer
	entitlement *auth.Entitlement
	sessions    *auth.Sessions
	bookmarks   *bookmarks.Bookmarks
	history     *bookmarks.History
	feed        FeedMetadata
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// New creates the HTTP handler that exposes the reading API and RSS feed.
func New(opts Options) http.Handler {
	feed := opts.Feed
	if feed.Title == "" {
		feed.Title = "PodRead"
	}
	if feed.Description == "" {
		feed.Description = feed.Title
	}
	feed.BaseURL = strings.TrimRight(feed.BaseURL, "/")

	store := opts.Store
	if store == nil {
		store = bookmarks.NewMemoryStore()
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = auth.NewSessions("")
	}
	entitlement := opts.Entitlement
	if entitlement == nil {
		entitlement = auth.NewEntitlement(nil, sessions)
	}

	h := &serverHandler{
		episodes:    opts.Episodes,
		renderer:    opts.Renderer,
		entitlement: entitlement,
		sessions:    sessions,
		bookmarks:   bookmarks.NewBookmarks(store),
		history:     bookmarks.NewHistory(store),
		feed:        feed,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/api/episodes", h.handleEpisodes)
	mux.HandleFunc("/api/episodes/{slug}", h.handleEpisode)
	mux.HandleFunc("/api/search", h.handleSearch)
	mux.HandleFunc("/api/channels", h.handleChannels)
	mux.HandleFunc("/api/channels/{name}", h.handleChannel)
	mux.HandleFunc("/api/login", h.handleLogin)
	mux.HandleFunc("/api/logout", h.handleLogout)
	mux.HandleFunc("/api/auth/status", h.handleAuthStatus)
	mux.HandleFunc("/api/bookmarks", h.handleBookmarks)
	mux.HandleFunc("/api/history", h.handleHistory)
	mux.HandleFunc("/feed.xml", h.handleFeed)
	if h.metrics != nil {
		mux.Handle("/metrics", h.metrics.Handler())
	}
	mux.HandleFunc("/", h.handleNotFound)

	return withRequestID(logRequests(mux, h.logger, h.metrics))
}

type episodePage struct {
	Episodes []models.EpisodeSummary `json:"episodes"`
	Total    int                     `json:"total"`
	Page     int                     `json:"page"`
	HasMore  bool                    `json:"hasMore"`
}

type searchPage struct {
	Episodes []models.EpisodeSummary `json:"episodes"`
	Total    int                     `json:"total"`
	HasMore  bool                    `json:"hasMore"`
}

type episodeDetail struct {
	Episode     models.EpisodeSummary `json:"episode"`
	HTML        string                `json:"html"`
	Headings    []models.Heading      `json:"headings"`
	ReadingTime int                   `json:"readingTime"`
	Paywalled   bool                  `json:"paywalled"`
	Bookmarked  bool                  `json:"bookmarked"`
	Read        bool                  `json:"read"`
	Previous    *models.Neighbor      `json:"previous"`
	Next        *models.Neighbor      `json:"next"`
}

func (h *serverHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *serverHandler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "not found")
}

func (h *serverHandler) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	values := r.URL.Query()
	page, ok := intParam(w, r, "page", 1)
	if !ok {
		return
	}
	size, ok := intParam(w, r, "pageSize", defaultPageSize)
	if !ok {
		return
	}
	if size < 1 || size > maxPageSize {
		writeError(w, r, http.StatusBadRequest, "pageSize must be between 1 and "+strconv.Itoa(maxPageSize))
		return
	}

	episodes, ok := h.load(w, r)
	if !ok {
		return
	}

	if channel := strings.TrimSpace(values.Get("channel")); channel != "" {
		episodes = query.FilterByChannel(episodes, channel)
	}
	episodes = query.SortByDate(episodes, query.ParseDirection(values.Get("sort")))

	writeJSON(w, r, http.StatusOK, episodePage{
		Episodes: summarize(query.Paginate(episodes, page, size)),
		Total:    len(episodes),
		Page:     page,
		HasMore:  query.HasMore(len(episodes), page, size),
	})
}

func (h *serverHandler) handleEpisode(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	slug := r.PathValue("slug")
	episodes, ok := h.load(w, r)
	if !ok {
		return
	}

	ep, prev, next, found := query.FindBySlug(episodes, slug)
	if !found {
		writeError(w, r, http.StatusNotFound, "episode not found")
		return
	}

	paywalled := ep.IsPremium && !h.entitlement.Entitled(r)
	source := ep.Content
	headings := content.ExtractHeadings(ep.Content)
	if paywalled {
		source = content.Teaser(ep.Content)
		headings = []models.Heading{}
	}

	html, err := h.renderer.Render(source)
	if err != nil {
		h.metrics.RenderFailed()
		zerolog.Ctx(r.Context()).Error().Err(err).Str("slug", ep.Slug).Msg("render failed")
		writeError(w, r, http.StatusInternalServerError, "failed to render episode")
		return
	}

	viewer := viewerID(w, r)
	writeJSON(w, r, http.StatusOK, episodeDetail{
		Episode:     summary(ep),
		HTML:        html,
		Headings:    headings,
		ReadingTime: content.ReadingTime(ep.Content),
		Paywalled:   paywalled,
		Bookmarked:  h.bookmarks.Contains(viewer, ep.Slug),
		Read:        h.history.IsRead(viewer, ep.Slug),
		Previous:    prev,
		Next:        next,
	})
}

func (h *serverHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	page, ok := intParam(w, r, "page", 1)
	if !ok {
		return
	}

	episodes, ok := h.load(w, r)
	if !ok {
		return
	}

	result := query.Search(episodes, r.URL.Query().Get("q"), page)
	writeJSON(w, r, http.StatusOK, searchPage{
		Episodes: summarize(result.Episodes),
		Total:    result.Total,
		HasMore:  result.HasMore,
	})
}

func (h *serverHandler) handleChannels(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	episodes, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, query.Channels(episodes))
}

func (h *serverHandler) handleChannel(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	page, ok := intParam(w, r, "page", 1)
	if !ok {
		return
	}

	episodes, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, summarize(query.ChannelPage(episodes, r.PathValue("name"), page)))
}

// load reads the dataset for this request, answering 500 on failure.
func (h *serverHandler) load(w http.ResponseWriter, r *http.Request) ([]models.Episode, bool) {
	episodes, err := h.episodes.Load(r.Context())
	if err != nil {
		h.metrics.LoadFailed()
		event := zerolog.Ctx(r.Context()).Error().Err(err)
		if errors.Is(err, dataset.ErrMalformedDataset) {
			event = event.Bool("malformed", true)
		}
		event.Msg("dataset load failed")
		writeError(w, r, http.StatusInternalServerError, "episodes unavailable")
		return nil, false
	}
	return episodes, true
}

func summary(ep models.Episode) models.EpisodeSummary {
	return models.EpisodeSummary{
		ID:          ep.ID,
		Slug:        ep.Slug,
		Title:       ep.Title,
		Channel:     ep.Channel,
		PublishedAt: ep.PublishedAt,
		Duration:    ep.Duration,
		URL:         ep.URL,
		Views:       ep.Views,
		IsPremium:   ep.IsPremium,
		ReadingTime: content.ReadingTime(ep.Content),
	}
}

func summarize(episodes []models.Episode) []models.EpisodeSummary {
	out := make([]models.EpisodeSummary, len(episodes))
	for i, ep := range episodes {
		out[i] = summary(ep)
	}
	return out
}

func allowMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func intParam(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return value, true
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, map[string]string{"error": message})
}
