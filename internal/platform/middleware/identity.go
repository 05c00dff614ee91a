package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Caller identity arrives out-of-band: either as X-User-Id / X-User-Role
// headers set by an upstream gateway, or inside a bearer token. Either way
// the values are treated as opaque, already-authenticated inputs; all
// authorization decisions live in the lifecycle service.

// Context keys for the asserted identity.
type contextKeyActorID struct{}
type contextKeyRole struct{}

var (
	// ContextKeyActorID is exported for tests that build contexts directly.
	ContextKeyActorID = contextKeyActorID{}
	ContextKeyRole    = contextKeyRole{}
)

// GetActorID retrieves the asserted caller identity from the context.
func GetActorID(ctx context.Context) string {
	actorID, ok := ctx.Value(ContextKeyActorID).(string)
	if !ok {
		return ""
	}
	return actorID
}

// GetRole retrieves the asserted caller role from the context.
func GetRole(ctx context.Context) string {
	role, ok := ctx.Value(ContextKeyRole).(string)
	if !ok {
		return ""
	}
	return role
}

// WithIdentity injects an actor id and role into a context. Useful for
// service tests that skip the HTTP middleware chain.
func WithIdentity(ctx context.Context, actorID, role string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyActorID, actorID)
	return context.WithValue(ctx, ContextKeyRole, role)
}

// Identity extracts the caller identity into the request context. Explicit
// headers win over a bearer token; an invalid token is logged and ignored
// rather than rejected, since endpoints that need an identity report their
// own, more specific errors.
func Identity(jwtSigningKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID := strings.TrimSpace(r.Header.Get("X-User-Id"))
			role := strings.TrimSpace(r.Header.Get("X-User-Role"))

			if actorID == "" && jwtSigningKey != "" {
				if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
					sub, tokenRole, err := parseBearer(token, jwtSigningKey)
					if err != nil {
						logger.WarnContext(r.Context(), "ignoring invalid bearer token", "error", err)
					} else {
						actorID = sub
						if role == "" {
							role = tokenRole
						}
					}
				}
			}

			ctx := WithIdentity(r.Context(), actorID, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseBearer(token, signingKey string) (sub, role string, err error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(signingKey), nil
	})
	if err != nil {
		return "", "", err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("unexpected claims type %T", parsed.Claims)
	}
	sub, _ = claims["sub"].(string)
	role, _ = claims["role"].(string)
	if sub == "" {
		return "", "", fmt.Errorf("token missing sub claim")
	}
	return sub, role, nil
}
