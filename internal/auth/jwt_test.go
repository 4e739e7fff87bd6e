package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	s := NewJWTService("secret", time.Hour)

	token, err := s.GenerateToken("ci-pipeline", ScopeTranslate)
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ci-pipeline", claims.Subject)
	assert.Equal(t, ScopeTranslate, claims.Scope)
	assert.True(t, claims.Allows(ScopeTranslate))
	assert.False(t, claims.Allows(ScopeAdmin))
}

func TestJWTService_Rejects(t *testing.T) {
	s := NewJWTService("secret", time.Hour)

	other, err := NewJWTService("other", time.Hour).GenerateToken("x", ScopeAdmin)
	require.NoError(t, err)
	_, err = s.ValidateToken(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Scope: ScopeAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = s.ValidateToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClaims_AdminAllowsAll(t *testing.T) {
	c := &Claims{Scope: ScopeAdmin}
	assert.True(t, c.Allows(ScopeTranslate))
	assert.True(t, c.Allows(ScopeAdmin))
}
