// Package middleware authenticates API requests by their session token.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const sessionIDKey contextKey = "sessionID"

// TokenQueryParam carries the token for clients that cannot set headers,
// such as EventSource.
const TokenQueryParam = "access_token"

// ErrNoSession is returned by SessionID when the request was not authenticated.
var ErrNoSession = errors.New("session id not found in request context")

// SessionClaims are the validated contents of a session token.
type SessionClaims interface {
	GetSessionID() uuid.UUID
}

// TokenValidator validates session tokens.
type TokenValidator interface {
	ValidateToken(token string) (SessionClaims, error)
}

// RequireSession rejects requests without a valid bearer token and stores
// the token's session id in the request context.
func RequireSession(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}
			claims, err := v.ValidateToken(token)
			if err != nil {
				unauthorized(w)
				return
			}
			ctx := WithSessionID(r.Context(), claims.GetSessionID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", false
		}
		return parts[1], true
	}
	if token := strings.TrimSpace(r.URL.Query().Get(TokenQueryParam)); token != "" {
		return token, true
	}
	return "", false
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}

// WithSessionID returns a context carrying id.
func WithSessionID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionID returns the authenticated session id of r.
func SessionID(r *http.Request) (uuid.UUID, error) {
	id, ok := r.Context().Value(sessionIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrNoSession
	}
	return id, nil
}
