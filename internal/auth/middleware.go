package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/vadim/wedding-chat/internal/httpx/response"
)

type contextKey struct{}

// WithClaims returns a context carrying the authenticated claims
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// ClaimsFrom returns the claims put on the context by Middleware
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(contextKey{}).(*Claims)
	return c, ok
}

// UserID returns the authenticated user id, or "" when there is none
func UserID(ctx context.Context) string {
	if c, ok := ClaimsFrom(ctx); ok {
		return c.UserID()
	}
	return ""
}

// Middleware rejects requests without a valid Authorization bearer token
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return a.authenticate(next, headerToken)
}

// WebSocketMiddleware is Middleware for websocket upgrades. Browsers cannot
// set headers on an upgrade, so the token query parameter is also accepted,
// but only when the request really is an upgrade.
func (a *Authenticator) WebSocketMiddleware(next http.Handler) http.Handler {
	return a.authenticate(next, func(r *http.Request) string {
		if token := headerToken(r); token != "" {
			return token
		}
		if websocket.IsWebSocketUpgrade(r) {
			return r.URL.Query().Get("token")
		}
		return ""
	})
}

func (a *Authenticator) authenticate(next http.Handler, extract func(*http.Request) string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extract(r)
		if token == "" {
			response.Unauthorized(w, "missing token")
			return
		}

		claims, err := a.ValidateToken(token)
		if err != nil {
			response.Unauthorized(w, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func headerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}
