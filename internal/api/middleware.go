// Package api implements the dailyvault REST API using chi.
package api

import (
	"context"
	"net/http"
	"slices"
	"strings"
)

// PersonHeader selects the namespace a request acts on.
const PersonHeader = "X-Notes-Person"

type ctxKey struct{}

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through (disabled mode).
// If enabled is true, requests must carry a valid "Authorization: Bearer <token>" header.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PersonMiddleware validates the person header against namespaces and
// stores it in the request context. Requests without the header pass
// through; handlers that need a namespace reject them.
func PersonMiddleware(namespaces []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			person := r.Header.Get(PersonHeader)
			if person == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !slices.Contains(namespaces, person) {
				writeJSON(w, http.StatusBadRequest, errorBody("invalid person"))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, person)))
		})
	}
}

// namespaceOf returns the namespace selected by PersonMiddleware, or writes
// a 400 when there is none.
func namespaceOf(w http.ResponseWriter, r *http.Request) (string, bool) {
	ns, _ := r.Context().Value(ctxKey{}).(string)
	if ns == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("person not selected"))
		return "", false
	}
	return ns, true
}
