package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret-123", time.Hour)

	token, err := m.GenerateAccessToken("user-42")
	require.NoError(t, err)

	claims, err := m.ParseAndValidate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.UserID())
	assert.Equal(t, "user-42", claims.Subject)
}

func TestJWTManager_RejectsForeignSecret(t *testing.T) {
	token, err := NewJWTManager("one", time.Hour).GenerateAccessToken("u")
	require.NoError(t, err)

	_, err = NewJWTManager("two", time.Hour).ParseAndValidate(token)
	assert.Error(t, err)
}

func TestJWTManager_RejectsExpiredToken(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	token, err := m.GenerateAccessToken("u")
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = m.ParseAndValidate(token)
	assert.Error(t, err)
}

func TestBcryptPasswordHasher(t *testing.T) {
	h := NewBcryptPasswordHasher(4)

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.NoError(t, h.Compare(hash, "secret1"))
	assert.Error(t, h.Compare(hash, "secret2"))
}

func TestBcryptPasswordHasher_RejectsLongPassword(t *testing.T) {
	h := NewBcryptPasswordHasher(4)
	_, err := h.Hash(strings.Repeat("a", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestBcryptPasswordHasher_CostFallback(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptPasswordHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptPasswordHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, 4, NewBcryptPasswordHasher(4).cost)
}

func TestJWTManager_RejectsForeignIssuer(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "u",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = m.ParseAndValidate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_RejectsUnsignedToken(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   "u",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.ParseAndValidate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
