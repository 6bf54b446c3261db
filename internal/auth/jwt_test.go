package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codehub-io/codehub-server/internal/db/models"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWTToken(42, "test-secret", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := VerifyJWTToken(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "codehub-server", claims.Issuer)
}

func TestJWTWrongSecret(t *testing.T) {
	token, err := GenerateJWTToken(42, "test-secret", time.Hour)
	require.NoError(t, err)

	_, err = VerifyJWTToken(token, "other-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTExpired(t *testing.T) {
	token, err := GenerateJWTToken(42, "test-secret", -time.Minute)
	require.NoError(t, err)

	_, err = VerifyJWTToken(token, "test-secret")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestJWTGarbage(t *testing.T) {
	_, err := VerifyJWTToken("not.a.token", "test-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUserContext(t *testing.T) {
	assert.Nil(t, GetUserFromContext(context.Background()))

	user := &models.User{ID: 7, Username: "dexter"}
	ctx := WithUser(context.Background(), user)
	got := GetUserFromContext(ctx)
	require.NotNil(t, got)
	assert.Equal(t, uint(7), got.ID)
}
