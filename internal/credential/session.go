package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenEnvVar overrides the stored access token when set.
const TokenEnvVar = "MILEDO_TOKEN"

var (
	// ErrNoToken means no access token is configured.
	ErrNoToken = errors.New("no access token: run `miledo token set`")

	// ErrSessionExpired means the stored token's exp claim has passed.
	ErrSessionExpired = errors.New("session expired: set a new token")
)

// Source names where the active token came from.
type Source string

const (
	SourceNone    Source = "none"
	SourceEnv     Source = "env"
	SourceKeyring Source = "keyring"
)

// Status describes the active token without revealing it.
type Status struct {
	Source    Source
	ExpiresAt time.Time // zero when the token carries no exp claim
	Expired   bool
}

// Session hands out the bearer token for API requests. It satisfies
// api.TokenSource.
type Session struct {
	vault  *Vault
	getenv func(string) string
	now    func() time.Time

	mu         sync.Mutex
	terminated bool
}

// NewSession creates a session backed by vault.
func NewSession(vault *Vault) *Session {
	return &Session{vault: vault, getenv: os.Getenv, now: time.Now}
}

// Token returns the access token, checking MILEDO_TOKEN before the keyring.
// An expired JWT yields ErrSessionExpired; a token that is not a JWT is
// passed through unchecked.
func (s *Session) Token() (string, error) {
	token, _, err := s.lookup()
	if err != nil {
		return "", err
	}

	exp, err := expiry(token)
	if err == nil && !exp.IsZero() && !s.now().Before(exp) {
		return "", ErrSessionExpired
	}
	return token, nil
}

// Status reports where the token comes from and when it expires.
func (s *Session) Status() (Status, error) {
	token, src, err := s.lookup()
	if errors.Is(err, ErrNoToken) {
		return Status{Source: SourceNone}, nil
	}
	if err != nil {
		return Status{}, err
	}

	st := Status{Source: src}
	if exp, err := expiry(token); err == nil && !exp.IsZero() {
		st.ExpiresAt = exp
		st.Expired = !s.now().Before(exp)
	}
	return st, nil
}

// SetTokens stores a new access token and, when non-empty, a refresh token.
func (s *Session) SetTokens(access, refresh string) error {
	access = strings.TrimSpace(access)
	if access == "" {
		return ErrNoToken
	}
	if err := s.vault.Set(AccessTokenKey, access); err != nil {
		return err
	}
	if refresh = strings.TrimSpace(refresh); refresh != "" {
		if err := s.vault.Set(RefreshTokenKey, refresh); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.terminated = false
	s.mu.Unlock()
	return nil
}

// Terminate removes the stored tokens. It is called when the API rejects
// the token. An environment token is ignored for the rest of the process.
func (s *Session) Terminate() error {
	s.mu.Lock()
	s.terminated = true
	s.mu.Unlock()

	if err := s.vault.Delete(AccessTokenKey); err != nil {
		return err
	}
	return s.vault.Delete(RefreshTokenKey)
}

func (s *Session) lookup() (string, Source, error) {
	s.mu.Lock()
	terminated := s.terminated
	s.mu.Unlock()

	if !terminated {
		if token := strings.TrimSpace(s.getenv(TokenEnvVar)); token != "" {
			return token, SourceEnv, nil
		}
	}

	token, err := s.vault.Get(AccessTokenKey)
	if errors.Is(err, ErrNoCredential) {
		return "", SourceNone, ErrNoToken
	}
	if err != nil {
		return "", SourceNone, fmt.Errorf("reading access token: %w", err)
	}
	if token == "" {
		return "", SourceNone, ErrNoToken
	}
	return token, SourceKeyring, nil
}

// expiry reads the exp claim without verifying the signature; the server
// owns verification.
func expiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("parsing token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, err
	}
	return exp.Time, nil
}
