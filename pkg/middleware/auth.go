/**
 * @description
 * This package provides middleware for the HTTP server, specifically for
 * handling authentication and authorization.
 */
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/loanapp/loan-service/internal/domain"
	"github.com/loanapp/loan-service/pkg/token"
)

// AuthContextKey is a custom type for the context key to avoid collisions.
type AuthContextKey string

const (
	// ActorKey is the key used to store the authenticated actor in the
	// request context.
	ActorKey AuthContextKey = "actor"
	// ClaimsKey is the key used to store the parsed login claims.
	ClaimsKey AuthContextKey = "claims"
)

// RequireAuth validates the bearer token and injects the actor into the
// request context. Requests without a valid token are rejected with 401.
func RequireAuth(tokens *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "Unauthorized: Missing auth credentials", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.VerifyLoginToken(tokenString)
			if err != nil {
				http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
				return
			}

			actor := domain.Actor{ID: claims.Subject, Role: domain.Role(claims.Role)}
			ctx := context.WithValue(r.Context(), ActorKey, actor)
			ctx = context.WithValue(ctx, ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects authenticated callers whose role is not admin. Must
// run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := GetActor(r.Context())
		if actor.Role != domain.RoleAdmin {
			http.Error(w, "Unauthorized: Insufficient access level", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetActor retrieves the authenticated actor from the request context. The
// zero Actor means the request was not authenticated.
func GetActor(ctx context.Context) domain.Actor {
	actor, _ := ctx.Value(ActorKey).(domain.Actor)
	return actor
}

// GetClaims retrieves the parsed login claims from the request context.
func GetClaims(ctx context.Context) *token.LoginClaims {
	claims, _ := ctx.Value(ClaimsKey).(*token.LoginClaims)
	return claims
}

func bearerToken(authHeader string) (string, bool) {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	if tok == "" {
		return "", false
	}
	return tok, true
}
