package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoyn-app/profile-qr/internal/domain"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	t.Parallel()

	tm := NewTokenManager("secret", 30)
	token, exp, err := tm.GenerateToken("owner-1", domain.SubjectTypeOwner)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", claims.Subject)
	assert.Equal(t, domain.SubjectTypeOwner, claims.SubjectType)
}

func TestTokenManager_Rejects(t *testing.T) {
	t.Parallel()

	tm := NewTokenManager("secret", 30)
	token, _, err := tm.GenerateToken("owner-1", domain.SubjectTypeOwner)
	require.NoError(t, err)

	_, err = NewTokenManager("other", 30).ParseToken(token)
	assert.Error(t, err, "wrong secret")

	expired := NewTokenManager("secret", 1)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.GenerateToken("owner-1", domain.SubjectTypeOwner)
	require.NoError(t, err)
	_, err = tm.ParseToken(old)
	assert.Error(t, err, "expired")

	unknown, _, err := tm.GenerateToken("owner-1", domain.SubjectType("ADMIN"))
	require.NoError(t, err)
	_, err = tm.ParseToken(unknown)
	assert.Error(t, err, "unknown subject type")

	_, _, err = tm.GenerateToken("", domain.SubjectTypeOwner)
	assert.Error(t, err)
}

func TestTokenManager_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	claims := &Claims{
		SubjectType: domain.SubjectTypeOperator,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   "ops",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenManager("secret", 30).ParseToken(raw)
	assert.Error(t, err)
}
