package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mesada/internal/models"
)

func TestIssueAndValidate(t *testing.T) {
	manager := NewManager(Config{SecretKey: "test-secret", TokenDuration: time.Hour, Issuer: "mesada-test"})
	user := models.User{ID: "user-123", Email: "parent@example.com"}

	token, err := manager.Issue(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	sess, err := manager.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, sess.UserID)
	assert.Equal(t, user.Email, sess.Email)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewManager(Config{SecretKey: "secret-a", TokenDuration: time.Hour})
	verifier := NewManager(Config{SecretKey: "secret-b", TokenDuration: time.Hour})

	token, err := issuer.Issue(models.User{ID: "user-123"})
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	manager := NewManager(Config{SecretKey: "test-secret", TokenDuration: -time.Minute})

	token, err := manager.Issue(models.User{ID: "user-123"})
	require.NoError(t, err)

	_, err = manager.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	manager := NewManager(Config{SecretKey: "test-secret", TokenDuration: time.Hour})

	_, err := manager.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("super-secret")
	require.NoError(t, err)
	assert.NotEqual(t, "super-secret", hash)

	assert.True(t, CheckPassword("super-secret", hash))
	assert.False(t, CheckPassword("wrong", hash))
}
