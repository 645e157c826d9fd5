package middleware

import (
	"context"
	"net/http"

	"captable/internal/store"
)

const (
	entityIDKey contextKey = "entity_id"
	roleKey     contextKey = "role"
)

const (
	RoleAdmin  = "admin"
	RoleIssuer = "issuer"
	RoleViewer = "viewer"
)

type OperatorStore interface {
	ScopeFor(ctx context.Context, userID string) (store.OperatorScope, bool, error)
	IsPlatformAdmin(ctx context.Context, userID string) (bool, error)
}

func EntityScopeFromContext(ctx context.Context) (string, string, bool) {
	entityID, ok := ctx.Value(entityIDKey).(string)
	if !ok {
		return "", "", false
	}
	role, _ := ctx.Value(roleKey).(string)
	return entityID, role, true
}

// RequireScope resolves the caller's operator scope and rejects callers
// whose role is not in roles. Empty roles admits any operator.
func RequireScope(operators OperatorStore, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			scope, found, err := operators.ScopeFor(r.Context(), userID)
			if err != nil {
				http.Error(w, "unable to verify operator", http.StatusInternalServerError)
				return
			}
			if !found {
				http.Error(w, "no entity scope", http.StatusForbidden)
				return
			}
			if len(allowed) > 0 {
				if _, ok := allowed[scope.Role]; !ok {
					http.Error(w, "insufficient role", http.StatusForbidden)
					return
				}
			}
			ctx := context.WithValue(r.Context(), entityIDKey, scope.EntityID)
			ctx = context.WithValue(ctx, roleKey, scope.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequirePlatformAdmin(operators OperatorStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			isAdmin, err := operators.IsPlatformAdmin(r.Context(), userID)
			if err != nil {
				http.Error(w, "unable to verify admin", http.StatusInternalServerError)
				return
			}
			if !isAdmin {
				http.Error(w, "platform admin required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
