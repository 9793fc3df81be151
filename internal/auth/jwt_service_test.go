package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestJWTService(t *testing.T, clock func() time.Time) *JWTService {
	t.Helper()

	svc, err := NewJWTService(JWTConfig{
		Secret:         "test-secret-please-rotate",
		Issuer:         "roster",
		SignInTokenTTL: time.Hour,
		Clock:          clock,
	})
	require.NoError(t, err)
	return svc
}

func TestJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.Error(t, err)
}

func TestJWTServiceGenerateAndValidate(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestJWTService(t, func() time.Time { return current })

	token, err := svc.GenerateSignInToken(SignInTokenInput{
		UserID: "user-1",
		OrgID:  "org-1",
		Role:   "member",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateSignInToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "org-1", claims.OrgID)
	require.Equal(t, "member", claims.Role)
	require.Equal(t, "roster", claims.Issuer)
	require.NotEmpty(t, claims.ID)
}

func TestJWTServiceRequiresUserID(t *testing.T) {
	svc := newTestJWTService(t, nil)

	_, err := svc.GenerateSignInToken(SignInTokenInput{})
	require.Error(t, err)
}

func TestJWTServiceRejectsExpiredToken(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestJWTService(t, func() time.Time { return current })

	token, err := svc.GenerateSignInToken(SignInTokenInput{UserID: "user-1"})
	require.NoError(t, err)

	// Move past the TTL and validate with the shifted clock.
	later := current.Add(2 * time.Hour)
	expiredSvc := newTestJWTService(t, func() time.Time { return later })

	_, err = expiredSvc.ValidateSignInToken(token)
	require.Error(t, err)
}

func TestJWTServiceRejectsWrongSecret(t *testing.T) {
	svc := newTestJWTService(t, nil)

	other, err := NewJWTService(JWTConfig{Secret: "a-different-secret"})
	require.NoError(t, err)

	token, err := svc.GenerateSignInToken(SignInTokenInput{UserID: "user-1"})
	require.NoError(t, err)

	_, err = other.ValidateSignInToken(token)
	require.Error(t, err)
}

func TestJWTServiceRejectsWrongIssuer(t *testing.T) {
	issuing, err := NewJWTService(JWTConfig{Secret: "shared-secret", Issuer: "someone-else"})
	require.NoError(t, err)

	validating, err := NewJWTService(JWTConfig{Secret: "shared-secret", Issuer: "roster"})
	require.NoError(t, err)

	token, err := issuing.GenerateSignInToken(SignInTokenInput{UserID: "user-1"})
	require.NoError(t, err)

	_, err = validating.ValidateSignInToken(token)
	require.Error(t, err)
}

func TestJWTServiceRejectsGarbage(t *testing.T) {
	svc := newTestJWTService(t, nil)

	_, err := svc.ValidateSignInToken("")
	require.Error(t, err)

	_, err = svc.ValidateSignInToken("not.a.jwt")
	require.Error(t, err)
}
