package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"podread/internal/auth"
	"podread/internal/query"
)

// ViewerCookie identifies an anonymous reader for bookmarks and history.
const ViewerCookie = "podread_viewer"

const (
	viewerCookieTTL = 365 * 24 * time.Hour
	maxBodyBytes    = 1 << 16
)

type loginRequest struct {
	Password string `json:"password"`
}

type slugRequest struct {
	Slug string `json:"slug"`
}

func (h *serverHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var body loginRequest
	if !decodeBody(w, r, &body) {
		return
	}

	id, expires, err := h.sessions.Login(body.Password)
	switch {
	case errors.Is(err, auth.ErrLoginDisabled):
		writeError(w, r, http.StatusForbidden, "admin login disabled")
		return
	case errors.Is(err, auth.ErrInvalidPassword):
		zerolog.Ctx(r.Context()).Warn().Msg("admin login rejected")
		writeJSON(w, r, http.StatusUnauthorized, map[string]any{"success": false, "error": "invalid password"})
		return
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, "login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    id,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	writeJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

func (h *serverHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	h.sessions.Logout(auth.SessionID(r))
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

func (h *serverHandler) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{
		"isAdmin":  h.entitlement.IsAdmin(r),
		"entitled": h.entitlement.Entitled(r),
	})
}

func (h *serverHandler) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	viewer := viewerID(w, r)
	if r.Method == http.MethodGet {
		writeJSON(w, r, http.StatusOK, map[string][]string{"bookmarks": h.bookmarks.List(viewer)})
		return
	}

	slug, ok := h.knownSlug(w, r)
	if !ok {
		return
	}
	bookmarked := h.bookmarks.Toggle(viewer, slug)
	writeJSON(w, r, http.StatusOK, map[string]any{
		"slug":       slug,
		"bookmarked": bookmarked,
		"bookmarks":  h.bookmarks.List(viewer),
	})
}

func (h *serverHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	viewer := viewerID(w, r)
	if r.Method == http.MethodPost {
		slug, ok := h.knownSlug(w, r)
		if !ok {
			return
		}
		h.history.MarkRead(viewer, slug)
	}
	writeJSON(w, r, http.StatusOK, map[string][]string{"history": h.history.List(viewer)})
}

// knownSlug decodes {"slug": ...} and checks it names an episode.
func (h *serverHandler) knownSlug(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body slugRequest
	if !decodeBody(w, r, &body) {
		return "", false
	}
	slug := strings.TrimSpace(body.Slug)
	if slug == "" {
		writeError(w, r, http.StatusBadRequest, "slug is required")
		return "", false
	}

	episodes, ok := h.load(w, r)
	if !ok {
		return "", false
	}
	if _, _, _, found := query.FindBySlug(episodes, slug); !found {
		writeError(w, r, http.StatusNotFound, "episode not found")
		return "", false
	}
	return slug, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// viewerID returns the reader's id cookie, issuing a fresh one when it is
// missing or malformed.
func viewerID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(ViewerCookie); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     ViewerCookie,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(viewerCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
