package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func newTestValidator(t *testing.T, issuer string) *JWTValidator {
	t.Helper()
	v, err := NewJWTValidator(JWTConfig{SecretKey: testSecret, Issuer: issuer})
	require.NoError(t, err)
	return v
}

func newTestGenerator(t *testing.T, issuer string) *JWTGenerator {
	t.Helper()
	g, err := NewJWTGenerator(JWTGeneratorConfig{SecretKey: testSecret, Issuer: issuer})
	require.NoError(t, err)
	return g
}

func TestValidatorAcceptsGeneratedToken(t *testing.T) {
	g := newTestGenerator(t, "canvas-backend")
	v := newTestValidator(t, "canvas-backend")

	token, err := g.GenerateToken("user-42", "u@example.com", []string{"editor"})
	require.NoError(t, err)

	claims, err := v.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.UserID)
	assert.Equal(t, "u@example.com", claims.Email)
	assert.Equal(t, []string{"editor"}, claims.Roles)
}

func TestValidatorRejectsWrongSecret(t *testing.T) {
	g, err := NewJWTGenerator(JWTGeneratorConfig{SecretKey: "other-secret"})
	require.NoError(t, err)
	v := newTestValidator(t, "")

	token, err := g.GenerateToken("user-1", "", nil)
	require.NoError(t, err)

	_, err = v.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidatorRejectsExpiredToken(t *testing.T) {
	v := newTestValidator(t, "")

	claims := Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = v.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidatorRejectsWrongIssuer(t *testing.T) {
	g := newTestGenerator(t, "someone-else")
	v := newTestValidator(t, "canvas-backend")

	token, err := g.GenerateToken("user-1", "", nil)
	require.NoError(t, err)

	_, err = v.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidatorRejectsGarbage(t *testing.T) {
	v := newTestValidator(t, "")
	_, err := v.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidatorRequiresSecret(t *testing.T) {
	_, err := NewJWTValidator(JWTConfig{})
	assert.Error(t, err)
}

func TestUserContextRoundTrip(t *testing.T) {
	ctx := SetUserInContext(context.Background(), &UserContext{UserID: "user-1", Email: "u@example.com"})

	user, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.UserID)

	_, err = GetUserFromContext(context.Background())
	assert.Error(t, err)
}
