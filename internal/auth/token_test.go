// ABOUTME: Tests for identity token minting and verification
// ABOUTME: Covers expiry, wrong secrets, algorithm confusion and missing claims

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenTestSecret is a 32-byte secret that meets MinSecretLength requirement.
var tokenTestSecret = []byte("logon-token-test-secret-32bytes!")

func TestNewJWTVerifier_ShortSecret(t *testing.T) {
	_, err := NewJWTVerifier([]byte("short"))
	assert.ErrorIs(t, err, ErrShortSecret)
}

func TestJWTVerifier_RoundTrip(t *testing.T) {
	v, err := NewJWTVerifier(tokenTestSecret)
	require.NoError(t, err)

	token, err := v.Generate("alice", "Guests", time.Minute)
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "Guests", claims.Role)
	assert.Equal(t, TokenIssuer, claims.Issuer)
}

func TestJWTVerifier_Expired(t *testing.T) {
	v, err := NewJWTVerifier(tokenTestSecret)
	require.NoError(t, err)
	v.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := v.Generate("alice", "", time.Minute)
	require.NoError(t, err)

	v.now = time.Now
	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTVerifier_WrongSecret(t *testing.T) {
	issuer, err := NewJWTVerifier(tokenTestSecret)
	require.NoError(t, err)
	other, err := NewJWTVerifier([]byte("another-secret-that-is-32-bytes!"))
	require.NoError(t, err)

	token, err := issuer.Generate("alice", "", time.Minute)
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifier_RejectsOtherIssuer(t *testing.T) {
	v, err := NewJWTVerifier(tokenTestSecret)
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "someone-else",
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(tokenTestSecret)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifier_RejectsNoneAlgorithm(t *testing.T) {
	v, err := NewJWTVerifier(tokenTestSecret)
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:  TokenIssuer,
		Subject: "alice",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifier_MissingSubject(t *testing.T) {
	v, err := NewJWTVerifier(tokenTestSecret)
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    TokenIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(tokenTestSecret)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrMissingClaim)
}
