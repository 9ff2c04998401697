package auth

import (
	"net/http"
	"strings"
)

const (
	// SessionCookie carries the admin session id.
	SessionCookie = "podread_session"
	// TokenHeader carries a subscriber token.
	TokenHeader = "X-Podread-Token"
)

// TokenValidator reports whether a subscriber token is known.
type TokenValidator interface {
	IsValidToken(token string) bool
}

// Entitlement decides whether a request may read premium content.
type Entitlement struct {
	tokens   TokenValidator
	sessions *Sessions
}

// NewEntitlement combines the subscriber tokens and admin sessions. Either may
// be nil.
func NewEntitlement(tokens TokenValidator, sessions *Sessions) *Entitlement {
	return &Entitlement{tokens: tokens, sessions: sessions}
}

// Entitled reports whether r presents a subscriber token or an admin session.
func (e *Entitlement) Entitled(r *http.Request) bool {
	if e == nil {
		return false
	}
	if e.IsAdmin(r) {
		return true
	}
	if e.tokens == nil {
		return false
	}
	token := ExtractToken(r)
	return token != "" && e.tokens.IsValidToken(token)
}

// IsAdmin reports whether r carries a live admin session cookie.
func (e *Entitlement) IsAdmin(r *http.Request) bool {
	if e == nil || e.sessions == nil {
		return false
	}
	return e.sessions.Valid(SessionID(r))
}

// SessionID returns the admin session id cookie value, if any.
func SessionID(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// ExtractToken reads a subscriber token from the query string, the token
// header or a bearer Authorization header, in that order.
func ExtractToken(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}

	if token := strings.TrimSpace(r.Header.Get(TokenHeader)); token != "" {
		return token
	}

	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" {
		return ""
	}

	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[7:])
	}

	return ""
}
