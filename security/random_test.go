package security

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomDigits(t *testing.T) {
	re := regexp.MustCompile(`^\d{4}$`)
	for i := 0; i < 50; i++ {
		code, err := RandomDigits(4)
		require.NoError(t, err)
		assert.Regexp(t, re, code)
	}
}

func TestRandomAlphanumeric(t *testing.T) {
	re := regexp.MustCompile(`^[A-Za-z0-9]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		pw, err := RandomAlphanumeric(8)
		require.NoError(t, err)
		assert.Regexp(t, re, pw)
		seen[pw] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestEqualConstantTime(t *testing.T) {
	assert.True(t, EqualConstantTime("0421", "0421"))
	assert.False(t, EqualConstantTime("0421", "0422"))
	assert.False(t, EqualConstantTime("0421", "042"))
}

func TestSessionTokenRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("c2VjcmV0LXNpZ25pbmcta2V5LWZvci10ZXN0cw==", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Create(Identity{PrincipalID: "ACC-24-0007", Role: "employee"}, time.Now())
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "ACC-24-0007", claims.PrincipalID)
	assert.Equal(t, "employee", claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestSessionTokenExpired(t *testing.T) {
	issuer, err := NewTokenIssuer("c2VjcmV0LXNpZ25pbmcta2V5LWZvci10ZXN0cw==", time.Minute)
	require.NoError(t, err)

	token, err := issuer.Create(Identity{PrincipalID: "admin-01-0001", Role: "admin"}, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = issuer.Parse(token)
	assert.Error(t, err)
}

func TestNewTokenIssuerRejectsShortSecret(t *testing.T) {
	_, err := NewTokenIssuer("c2hvcnQ=", time.Hour)
	assert.Error(t, err)

	_, err = NewTokenIssuer("not base64!", time.Hour)
	assert.Error(t, err)
}

func TestRandomSecretFeedsTokenIssuer(t *testing.T) {
	secret, err := RandomSecret(32)
	require.NoError(t, err)

	other, err := RandomSecret(32)
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)

	_, err = NewTokenIssuer(secret, time.Hour)
	assert.NoError(t, err)
}

func TestSessionTokenUsesIssuerClock(t *testing.T) {
	past := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	issuer, err := NewTokenIssuer("c2VjcmV0LXNpZ25pbmcta2V5LWZvci10ZXN0cw==", time.Hour)
	require.NoError(t, err)
	issuer.WithClock(func() time.Time { return past.Add(30 * time.Minute) })

	token, err := issuer.Create(Identity{PrincipalID: "admin-01-0001", Role: "admin"}, past)
	require.NoError(t, err)

	_, err = issuer.Parse(token)
	assert.NoError(t, err)
}
