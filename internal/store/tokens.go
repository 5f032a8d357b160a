// Package store keeps the service's durable state: auth tokens,
// publish targets, processing history and feed deduplication.
package store

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/phoenixlab/rewriter/internal/logger"
)

const (
	// pendingTokenTTL is how long an unconfirmed token stays valid.
	pendingTokenTTL = time.Hour
	// authorizedTokenTTL makes confirmed tokens effectively permanent.
	authorizedTokenTTL = 10 * 365 * 24 * time.Hour
)

// TokenStatus is the confirmation state of an auth token.
type TokenStatus string

const (
	TokenPending    TokenStatus = "pending"
	TokenAuthorized TokenStatus = "authorized"
)

// TokenRecord is one issued token with its user binding.
type TokenRecord struct {
	Status       TokenStatus     `json:"status"`
	ExpiresAt    int64           `json:"expires_at"`
	AuthorizedAt int64           `json:"authorized_at,omitempty"`
	UserData     json.RawMessage `json:"user_data,omitempty"`
}

// TokenStore is a file-backed token registry.
type TokenStore struct {
	path   string
	mu     sync.Mutex
	tokens map[string]TokenRecord
}

func NewTokenStore(path string) *TokenStore {
	s := &TokenStore{path: path, tokens: make(map[string]TokenRecord)}
	if err := s.load(); err != nil {
		logger.Warn("token file unreadable, starting empty", "path", path, "error", err)
	}
	return s
}

func (s *TokenStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var loaded map[string]TokenRecord
	if err := json.Unmarshal(data, &loaded); err != nil {
		return err
	}

	// Expired pending tokens are dropped on load; authorized tokens
	// stay until revoked by hand.
	now := time.Now().Unix()
	for token, rec := range loaded {
		if rec.Status == TokenAuthorized || rec.ExpiresAt > now {
			s.tokens[token] = rec
		}
	}
	return nil
}

// save must run with the mutex held.
func (s *TokenStore) save() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(s.tokens, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Generate issues a fresh pending token.
func (s *TokenStore) Generate() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = TokenRecord{
		Status:    TokenPending,
		ExpiresAt: time.Now().Add(pendingTokenTTL).Unix(),
	}
	if err := s.save(); err != nil {
		return "", err
	}
	return token, nil
}

// Verify returns the user data of an authorized token, or false for
// unknown, pending or expired tokens.
func (s *TokenStore) Verify(token string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[token]
	if !ok {
		return nil, false
	}
	if rec.Status != TokenAuthorized {
		if rec.ExpiresAt < time.Now().Unix() {
			delete(s.tokens, token)
			if err := s.save(); err != nil {
				logger.Warn("token file write failed", "error", err)
			}
		}
		return nil, false
	}
	return rec.UserData, true
}

// Authorize binds user data to a pending token and makes it permanent.
func (s *TokenStore) Authorize(token string, userData json.RawMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[token]
	if !ok {
		return false
	}
	rec.Status = TokenAuthorized
	rec.UserData = userData
	rec.AuthorizedAt = time.Now().Unix()
	rec.ExpiresAt = time.Now().Add(authorizedTokenTTL).Unix()
	s.tokens[token] = rec

	if err := s.save(); err != nil {
		logger.Warn("token file write failed", "error", err)
	}
	return true
}
