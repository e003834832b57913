package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type claims uuid.UUID

func (c claims) GetSessionID() uuid.UUID { return uuid.UUID(c) }

type mapValidator map[string]uuid.UUID

func (m mapValidator) ValidateToken(token string) (SessionClaims, error) {
	id, ok := m[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return claims(id), nil
}

func TestRequireSession(t *testing.T) {
	id := uuid.New()
	validator := mapValidator{"good": id}

	var seen uuid.UUID
	handler := RequireSession(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, err := SessionID(r)
		require.NoError(t, err)
		seen = got
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		target string
		want   int
	}{
		{"bearer header", "Bearer good", "/api/state", http.StatusNoContent},
		{"lowercase scheme", "bearer good", "/api/state", http.StatusNoContent},
		{"query token", "", "/api/events?access_token=good", http.StatusNoContent},
		{"missing", "", "/api/state", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", "/api/state", http.StatusUnauthorized},
		{"extra parts", "Bearer good extra", "/api/state", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", "/api/state", http.StatusUnauthorized},
		{"header wins over query", "Bearer bad", "/api/events?access_token=good", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = uuid.Nil
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusNoContent {
				assert.Equal(t, id, seen)
			} else {
				assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
			}
		})
	}
}

func TestSessionID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := SessionID(req)
	assert.ErrorIs(t, err, ErrNoSession)

	id := uuid.New()
	req = req.WithContext(WithSessionID(req.Context(), id))
	got, err := SessionID(req)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}
