package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	token, exp, err := GenerateJWT(42, "s3cret", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ValidateJWT(token, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)
	assert.NotNil(t, claims.IssuedAt)

	_, err = ValidateJWT(token, "other")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateJWT_Rejects(t *testing.T) {
	expired, _, err := GenerateJWT(1, "k", -time.Second)
	require.NoError(t, err)
	_, err = ValidateJWT(expired, "k")
	assert.ErrorIs(t, err, ErrInvalidToken)

	noUser, _, err := GenerateJWT(0, "k", time.Hour)
	require.NoError(t, err)
	_, err = ValidateJWT(noUser, "k")
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ValidateJWT(unsigned, "k")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.NoError(t, CheckPassword(hash, "hunter22"))
	assert.Error(t, CheckPassword(hash, "hunter23"))
}
