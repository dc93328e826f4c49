// service/user_service_test.go
package service

import (
	"database/sql"
	"pay-ledger-api/config"
	"pay-ledger-api/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) CreateUser(user *model.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *mockUserRepo) GetUserByEmail(email string) (*model.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func TestUserService_Register(t *testing.T) {
	mockRepo := new(mockUserRepo)
	userService := NewUserService(mockRepo)

	mockRepo.On("CreateUser", mock.AnythingOfType("*model.User")).Return(nil).Once()

	user, err := userService.Register(model.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password123",
	})

	assert.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "password123", user.Password, "stored password must be hashed")
	assert.True(t, CheckPasswordHash("password123", user.Password))
	mockRepo.AssertExpectations(t)
}

func TestUserService_Authenticate(t *testing.T) {
	config.AppConfig.JWT.SecretKey = "unit-test-secret"

	hashed, err := HashPassword("password123")
	assert.NoError(t, err)
	stored := &model.User{ID: "user-1", Email: "alice@example.com", Password: hashed}

	t.Run("success", func(t *testing.T) {
		mockRepo := new(mockUserRepo)
		mockRepo.On("GetUserByEmail", "alice@example.com").Return(stored, nil).Once()

		userService := NewUserService(mockRepo)
		token, err := userService.Authenticate("alice@example.com", "password123")

		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		mockRepo.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockRepo := new(mockUserRepo)
		mockRepo.On("GetUserByEmail", "alice@example.com").Return(stored, nil).Once()

		userService := NewUserService(mockRepo)
		_, err := userService.Authenticate("alice@example.com", "wrong")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		mockRepo := new(mockUserRepo)
		mockRepo.On("GetUserByEmail", "nobody@example.com").Return(nil, sql.ErrNoRows).Once()

		userService := NewUserService(mockRepo)
		_, err := userService.Authenticate("nobody@example.com", "password123")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
