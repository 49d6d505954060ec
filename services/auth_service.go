package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/courtclub/competition-system/models"
	"github.com/courtclub/competition-system/repositories"
)

const minPasswordLength = 8

// AuthService — регистрация и проверка учётных записей организаторов и членов
// клуба. Выпуск JWT остаётся на уровне HTTP-обработчика.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	GetUser(ctx context.Context, id int) (*models.User, error)
}

type RegisterInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

type authService struct {
	userRepo repositories.UserRepository
	logger   *slog.Logger
}

func NewAuthService(userRepo repositories.UserRepository, logger *slog.Logger) AuthService {
	return &authService{userRepo: userRepo, logger: logger}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.FirstName == "" {
		return nil, fmt.Errorf("%w: first name and email are required", ErrValidationFailed)
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	role := input.Role
	if role != models.RoleOrganizer {
		role = models.RoleMember
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         role,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, ErrAuthEmailTaken
		}
		return nil, err
	}

	s.logger.Info("user registered", slog.Int("user_id", user.ID), slog.String("role", user.Role))
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrAuthInvalidCredentials
	}
	return user, nil
}

func (s *authService) GetUser(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
