package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/remlyo/remlyo/internal/auth"
	"github.com/remlyo/remlyo/internal/pkg/errors"
	"github.com/remlyo/remlyo/internal/pkg/utils"
)

// ContextKey is a custom type for context keys
type ContextKey string

const (
	// UserIDKey is the context key for user ID
	UserIDKey ContextKey = "userID"
	// UserEmailKey is the context key for user email
	UserEmailKey ContextKey = "email"
	// UserRoleKey is the context key for user role
	UserRoleKey ContextKey = "role"
)

// AccessTokenCookie is the cookie checked when no Authorization header is sent
const AccessTokenCookie = "accessToken"

// tokenFromRequest reads a bearer token from the Authorization header or cookie
func tokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func withClaims(w http.ResponseWriter, r *http.Request, claims *auth.Claims) *http.Request {
	ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
	ctx = context.WithValue(ctx, UserRoleKey, claims.Role)

	AddLogField(w, "user_id", claims.UserID)
	AddLogField(w, "role", claims.Role)

	return r.WithContext(ctx)
}

// AuthMiddleware returns a middleware that validates JWT access tokens
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := tokenFromRequest(r)
			if tokenStr == "" {
				utils.WriteError(w, errors.Unauthorized("Missing authentication token"))
				return
			}

			claims, err := auth.ParseTyped(tokenStr, jwtSecret, auth.TokenAccess)
			if err != nil {
				utils.WriteError(w, errors.Unauthorized("Invalid or expired token"))
				return
			}

			next.ServeHTTP(w, withClaims(w, r, claims))
		})
	}
}

// OptionalAuthMiddleware is like AuthMiddleware but doesn't reject requests without tokens
func OptionalAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenStr := tokenFromRequest(r); tokenStr != "" {
				if claims, err := auth.ParseTyped(tokenStr, jwtSecret, auth.TokenAccess); err == nil {
					r = withClaims(w, r, claims)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects authenticated users whose role is not role.
// Must run after AuthMiddleware.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := GetUserID(r); !ok {
				utils.WriteError(w, errors.Unauthorized("User not authenticated"))
				return
			}
			if got, _ := GetUserRole(r); got != role {
				utils.WriteError(w, errors.Forbidden("Insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserID extracts the user ID from the request context
func GetUserID(r *http.Request) (int64, bool) {
	userID, ok := r.Context().Value(UserIDKey).(int64)
	return userID, ok
}

// GetUserEmail extracts the user email from the request context
func GetUserEmail(r *http.Request) (string, bool) {
	email, ok := r.Context().Value(UserEmailKey).(string)
	return email, ok
}

// GetUserRole extracts the user role from the request context
func GetUserRole(r *http.Request) (string, bool) {
	role, ok := r.Context().Value(UserRoleKey).(string)
	return role, ok
}
