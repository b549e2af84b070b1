// Package session persists the access token in client-local storage and decodes it locally.
//
// Decoding never verifies the signature. The token is trusted optimistically at startup so that
// restoring a session costs no network round trip; [auth.Provider.VerifyToken] exists for callers
// that need the server's opinion.
package session

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tdx/internal/models"
	"github.com/desertthunder/tdx/internal/shared"
	"github.com/golang-jwt/jwt/v4"
)

// TokenKey is the storage key holding the raw bearer token.
const TokenKey = "access_token"

var errMalformed = fmt.Errorf("%w: expected three segments", shared.ErrMalformedToken)

// Storage is the durable key/value backend, satisfied by [repositories.LocalStorage].
type Storage interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// Store reads and writes the session token.
type Store struct {
	storage Storage
	parser  *jwt.Parser
	logger  *log.Logger
}

// NewStore creates a [Store] over storage. A nil logger discards debug output.
func NewStore(storage Storage, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{
		storage: storage,
		parser:  jwt.NewParser(),
		logger:  logger,
	}
}

// SetAuthToken writes token to storage.
func (s *Store) SetAuthToken(token string) error {
	return s.storage.SetItem(TokenKey, token)
}

// RemoveAuthToken clears the stored token. Calling it with no token stored is a no-op.
func (s *Store) RemoveAuthToken() error {
	return s.storage.RemoveItem(TokenKey)
}

// Token returns the raw stored token. Storage failures read as "no token".
func (s *Store) Token() (string, bool) {
	token, ok, err := s.storage.GetItem(TokenKey)
	if err != nil {
		s.logger.Debug("failed to read session token", "error", err)
		return "", false
	}
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// IsAuthenticated reports whether a minimally well-formed token is stored. It does not contact the server.
func (s *Store) IsAuthenticated() bool {
	token, ok := s.Token()
	return ok && wellFormed(token)
}

// GetUserInfo decodes the stored token's payload, returning nil when there is no token or it cannot be decoded.
func (s *Store) GetUserInfo() *models.Claims {
	token, ok := s.Token()
	if !ok {
		return nil
	}

	claims, err := s.Decode(token)
	if err != nil {
		s.logger.Debug("discarding undecodable session token", "error", err)
		return nil
	}
	return claims
}

// Decode parses token without verifying its signature.
func (s *Store) Decode(token string) (*models.Claims, error) {
	if !wellFormed(token) {
		return nil, errMalformed
	}

	mapClaims := jwt.MapClaims{}
	if _, _, err := s.parser.ParseUnverified(token, mapClaims); err != nil {
		return nil, err
	}

	claims := &models.Claims{}
	if sub, ok := mapClaims["sub"].(string); ok {
		claims.Subject = sub
	}
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}
	if exp, ok := mapClaims["exp"].(float64); ok {
		ts := time.Unix(int64(exp), 0)
		claims.ExpiresAt = &ts
	}
	return claims, nil
}

// wellFormed checks for three non-empty dot-separated segments.
func wellFormed(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}
