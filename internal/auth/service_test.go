package auth

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/codewiz073-droid/bwami/internal/models"
)

// memoryUsers is an in-memory UserRepository for tests.
type memoryUsers struct {
	nextID uint
	byName map[string]*models.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{nextID: 1, byName: map[string]*models.User{}}
}

func (m *memoryUsers) Create(user *models.User) error {
	user.ID = m.nextID
	m.nextID++
	m.byName[user.Username] = user
	return nil
}

func (m *memoryUsers) GetByID(id uint) (*models.User, error) {
	for _, user := range m.byName {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryUsers) GetByUsername(username string) (*models.User, error) {
	if user, ok := m.byName[username]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newService() *Service {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewService(newMemoryUsers(), "test-secret", time.Hour, logger)
}

func TestRegisterAndLogin(t *testing.T) {
	service := newService()

	user, token, err := service.Register("alice", "correct horse battery")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.False(t, user.IsGuest)
	assert.NotEqual(t, "correct horse battery", user.PasswordHash)

	_, loginToken, err := service.Login("alice", "correct horse battery")
	require.NoError(t, err)
	assert.NotEmpty(t, loginToken)

	_, _, err = service.Login("alice", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	service := newService()

	_, _, err := service.Register("bob", "password123")
	require.NoError(t, err)

	_, _, err = service.Register("bob", "different456")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestGuestAccountsAreDistinct(t *testing.T) {
	service := newService()

	first, firstToken, err := service.Guest()
	require.NoError(t, err)
	second, secondToken, err := service.Guest()
	require.NoError(t, err)

	assert.True(t, first.IsGuest)
	assert.NotEqual(t, first.Username, second.Username)
	assert.NotEqual(t, firstToken, secondToken)
}

func TestParseTokenRoundTrip(t *testing.T) {
	service := newService()

	user, token, err := service.Register("carol", "password123")
	require.NoError(t, err)

	claims, err := service.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "carol", claims.Subject)
	assert.False(t, claims.IsGuest)
}

func TestParseTokenRejectsTampering(t *testing.T) {
	service := newService()

	_, token, err := service.Register("dave", "password123")
	require.NoError(t, err)

	_, err = service.ParseToken(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = service.ParseToken("not a token at all")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	service := NewService(newMemoryUsers(), "test-secret", -time.Minute, logger)

	_, token, err := service.Register("eve", "password123")
	require.NoError(t, err)

	_, err = service.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
