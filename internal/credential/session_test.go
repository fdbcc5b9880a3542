package credential

import (
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, env map[string]string, now time.Time) *Session {
	t.Helper()
	s := NewSession(NewVault(keyring.NewArrayKeyring(nil)))
	s.getenv = func(k string) string { return env[k] }
	s.now = func() time.Time { return now }
	return s
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestTokenMissing(t *testing.T) {
	s := newTestSession(t, nil, time.Now())

	_, err := s.Token()
	assert.ErrorIs(t, err, ErrNoToken)

	st, err := s.Status()
	require.NoError(t, err)
	assert.Equal(t, SourceNone, st.Source)
}

func TestTokenFromKeyring(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSession(t, nil, now)
	access := signedToken(t, now.Add(time.Hour))

	require.NoError(t, s.SetTokens(access, "refresh"))

	got, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, access, got)

	st, err := s.Status()
	require.NoError(t, err)
	assert.Equal(t, SourceKeyring, st.Source)
	assert.False(t, st.Expired)
	assert.True(t, st.ExpiresAt.Equal(now.Add(time.Hour)))
}

func TestEnvTokenWins(t *testing.T) {
	s := newTestSession(t, map[string]string{TokenEnvVar: " opaque-token "}, time.Now())
	require.NoError(t, s.SetTokens("stored", ""))

	got, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", got)
}

func TestExpiredToken(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSession(t, nil, now)
	require.NoError(t, s.SetTokens(signedToken(t, now.Add(-time.Minute)), ""))

	_, err := s.Token()
	assert.ErrorIs(t, err, ErrSessionExpired)

	st, err := s.Status()
	require.NoError(t, err)
	assert.True(t, st.Expired)
}

func TestTerminateClearsTokens(t *testing.T) {
	s := newTestSession(t, map[string]string{TokenEnvVar: "env-token"}, time.Now())
	require.NoError(t, s.SetTokens("stored", "refresh"))

	require.NoError(t, s.Terminate())

	_, err := s.Token()
	assert.ErrorIs(t, err, ErrNoToken)

	_, err = s.vault.Get(RefreshTokenKey)
	assert.ErrorIs(t, err, ErrNoCredential)

	// Terminating twice is harmless.
	assert.NoError(t, s.Terminate())
}

func TestSetTokensRejectsBlank(t *testing.T) {
	s := newTestSession(t, nil, time.Now())
	assert.ErrorIs(t, s.SetTokens("   ", ""), ErrNoToken)
}
