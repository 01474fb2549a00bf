package app

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"kbretrieval/internal/pkg/jwtutil"
)

var (
	ErrAuthNotConfigured = errors.New("auth is not configured")
	ErrInvalidCredential = errors.New("invalid api key")
)

// AuthService issues bearer tokens for the mutating API against a single
// bcrypt-hashed admin key from configuration.
type AuthService struct {
	apiKeyHash    string
	jwtSecret     string
	jwtExpiration time.Duration
}

func NewAuthService(apiKeyHash, jwtSecret string, jwtExpiration time.Duration) *AuthService {
	return &AuthService{
		apiKeyHash:    apiKeyHash,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

func (s *AuthService) IssueToken(apiKey string) (string, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return "", ErrInvalidCredential
	}
	if s.apiKeyHash == "" {
		return "", ErrAuthNotConfigured
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.apiKeyHash), []byte(apiKey)); err != nil {
		return "", ErrInvalidCredential
	}
	return jwtutil.NewToken(s.jwtSecret, "admin", s.jwtExpiration)
}
