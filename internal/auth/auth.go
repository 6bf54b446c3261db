package auth

import (
	"context"
	"errors"

	"github.com/codehub-io/codehub-server/internal/db/models"
)

// contextKey is a custom type for context keys local to this package
type contextKey string

// AuthenticatedUserKey is the context key under which the acting user is stored
const AuthenticatedUserKey contextKey = "authenticated_user"

var (
	// ErrInvalidCredentials is returned when authentication fails
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenExpired is returned when a token has expired
	ErrTokenExpired = errors.New("token has expired")
	// ErrInvalidToken is returned when a token is invalid
	ErrInvalidToken = errors.New("invalid token")
)

// WithUser returns a context carrying the authenticated user
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, AuthenticatedUserKey, user)
}

// GetUserFromContext retrieves the authenticated user from the context,
// or nil when the request carried no valid credential
func GetUserFromContext(ctx context.Context) *models.User {
	if user, ok := ctx.Value(AuthenticatedUserKey).(*models.User); ok {
		return user
	}
	return nil
}
