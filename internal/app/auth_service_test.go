package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"kbretrieval/internal/pkg/jwtutil"
)

func TestIssueToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-key"), bcrypt.MinCost)
	require.NoError(t, err)
	svc := NewAuthService(string(hash), "jwt-secret", time.Minute)

	token, err := svc.IssueToken("secret-key")
	require.NoError(t, err)

	claims, err := jwtutil.ParseToken("jwt-secret", token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
}

func TestIssueTokenRejectsWrongKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-key"), bcrypt.MinCost)
	require.NoError(t, err)
	svc := NewAuthService(string(hash), "jwt-secret", time.Minute)

	_, err = svc.IssueToken("wrong")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = svc.IssueToken("")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestIssueTokenWithoutConfiguredHash(t *testing.T) {
	svc := NewAuthService("", "jwt-secret", time.Minute)
	_, err := svc.IssueToken("anything")
	assert.ErrorIs(t, err, ErrAuthNotConfigured)
}
