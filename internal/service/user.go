package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Mahmoudramadan21/Bookify/internal/auth"
	"github.com/Mahmoudramadan21/Bookify/internal/domain"
	"github.com/Mahmoudramadan21/Bookify/internal/repository"
	apperrors "github.com/Mahmoudramadan21/Bookify/pkg/errors"
)

const minPasswordLength = 8

// UserService registers and authenticates accounts.
type UserService struct {
	users      repository.UserRepository
	jwt        *auth.JWTManager
	bcryptCost int
	logger     *slog.Logger
	now        func() time.Time
}

func NewUserService(users repository.UserRepository, jwt *auth.JWTManager, logger *slog.Logger) *UserService {
	return &UserService{
		users:      users,
		jwt:        jwt,
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger,
		now:        time.Now,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// AuthResult is an account plus a fresh access token.
type AuthResult struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) hash(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (s *UserService) issue(u *domain.User) (*AuthResult, error) {
	token, err := s.jwt.Generate(u)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &AuthResult{User: u, Token: token}, nil
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	hash, err := s.hash(input.Password)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", u.ID))
	return s.issue(u)
}

// Login checks the credentials and issues a token. Unknown emails and wrong
// passwords produce the same error.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.Unauthorized("invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", u.ID))
	return s.issue(u)
}

func (s *UserService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// EnsureAdmin creates the bootstrap admin, or promotes the existing account
// with that email. An existing account keeps its password.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperrors.InvalidInput("admin email is required")
	}
	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		ID:           uuid.New().String(),
		Name:         "Administrator",
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.UpsertAdmin(ctx, u); err != nil {
		return nil, fmt.Errorf("ensure admin: %w", err)
	}

	s.logger.InfoContext(ctx, "admin account ensured", slog.String("user_id", u.ID))
	return u, nil
}
