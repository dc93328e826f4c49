package service

import (
	"database/sql"
	"errors"
	"pay-ledger-api/model"
	"pay-ledger-api/repository"

	"github.com/google/uuid"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// UserService handles user-related business logic.
type UserService struct {
	userRepo repository.IUserRepository
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.IUserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Register creates a new user with a bcrypt-hashed password.
func (s *UserService) Register(req model.RegisterRequest) (*model.User, error) {
	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:       uuid.NewString(),
		Username: req.Username,
		Email:    req.Email,
		Password: hashedPassword,
	}

	if err := s.userRepo.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies the credentials and issues a signed JWT.
func (s *UserService) Authenticate(email, password string) (string, error) {
	user, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if !CheckPasswordHash(password, user.Password) {
		return "", ErrInvalidCredentials
	}

	return GenerateJWT(user.ID)
}
