package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	e "github.com/quizhive/quizhive/internal/quizhive/errors"
	"github.com/quizhive/quizhive/internal/quizhive/models"
)

// IdentityResolver is the slice of the identity package the middleware
// needs.
type IdentityResolver interface {
	Resolve(ctx context.Context, tokenString string) (*models.User, error)
}

type contextKey string

const userContextKey contextKey = "user"

// AuthMiddleware resolves the bearer credential and stores the user in the
// request context. Requests without a valid credential never reach the
// wrapped handler.
func AuthMiddleware(next http.Handler, resolver IdentityResolver) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := extractTokenFromHeader(r)
		if err != nil {
			writeError(w, err)
			return
		}

		user, err := resolver.Resolve(r.Context(), tokenString)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractTokenFromHeader(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("%w: authorization header required", e.ErrUnauthenticated)
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == "" || tokenString == authHeader {
		return "", fmt.Errorf("%w: invalid authorization format", e.ErrUnauthenticated)
	}
	return tokenString, nil
}

// userFrom returns the authenticated user stored by AuthMiddleware.
func userFrom(r *http.Request) (*models.User, error) {
	user, ok := r.Context().Value(userContextKey).(*models.User)
	if !ok || user == nil {
		return nil, e.ErrUnauthenticated
	}
	return user, nil
}
