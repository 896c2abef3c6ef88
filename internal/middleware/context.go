package middleware

import (
	"context"

	"aiinfra/internal/auth"
)

// ContextKey defines the type for context keys to avoid conflicts
type ContextKey string

const (
	UserClaimsKey ContextKey = "userClaims"
	UserIDKey     ContextKey = "userID"
	RequestIDKey  ContextKey = "requestID"
)

// GetUserID returns the authenticated user id stored by UserJWTMiddleware.
func GetUserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok && id != ""
}

// GetUserClaims returns the validated token claims.
func GetUserClaims(ctx context.Context) (*auth.UserClaims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*auth.UserClaims)
	return claims, ok
}

// GetRequestID returns the id assigned by RequestID.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
