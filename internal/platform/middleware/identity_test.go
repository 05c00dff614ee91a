package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "test-signing-key"

func signToken(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func capturedIdentity(t *testing.T, signingKey string, decorate func(*http.Request)) (actorID, role string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := Identity(signingKey, logger)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		actorID = GetActorID(r.Context())
		role = GetRole(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/vaults", nil)
	decorate(req)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return actorID, role
}

func TestIdentity(t *testing.T) {
	t.Run("headers populate the context", func(t *testing.T) {
		actorID, role := capturedIdentity(t, "", func(r *http.Request) {
			r.Header.Set("X-User-Id", "user-1")
			r.Header.Set("X-User-Role", "verifier")
		})
		assert.Equal(t, "user-1", actorID)
		assert.Equal(t, "verifier", role)
	})

	t.Run("no identity leaves the context empty", func(t *testing.T) {
		actorID, role := capturedIdentity(t, "", func(*http.Request) {})
		assert.Empty(t, actorID)
		assert.Empty(t, role)
	})

	t.Run("bearer token supplies identity when headers are absent", func(t *testing.T) {
		token := signToken(t, testSigningKey, jwt.MapClaims{"sub": "user-2", "role": "creator"})
		actorID, role := capturedIdentity(t, testSigningKey, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		})
		assert.Equal(t, "user-2", actorID)
		assert.Equal(t, "creator", role)
	})

	t.Run("explicit headers win over the token", func(t *testing.T) {
		token := signToken(t, testSigningKey, jwt.MapClaims{"sub": "user-2", "role": "creator"})
		actorID, role := capturedIdentity(t, testSigningKey, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
			r.Header.Set("X-User-Id", "user-1")
			r.Header.Set("X-User-Role", "admin")
		})
		assert.Equal(t, "user-1", actorID)
		assert.Equal(t, "admin", role)
	})

	t.Run("token signed with the wrong key is ignored", func(t *testing.T) {
		token := signToken(t, "other-key", jwt.MapClaims{"sub": "user-2"})
		actorID, _ := capturedIdentity(t, testSigningKey, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		})
		assert.Empty(t, actorID)
	})

	t.Run("token without sub is ignored", func(t *testing.T) {
		token := signToken(t, testSigningKey, jwt.MapClaims{"role": "creator"})
		actorID, role := capturedIdentity(t, testSigningKey, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		})
		assert.Empty(t, actorID)
		assert.Empty(t, role)
	})
}
