package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Mahmoudramadan21/Bookify/internal/auth"
	"github.com/Mahmoudramadan21/Bookify/internal/domain"
	apperrors "github.com/Mahmoudramadan21/Bookify/pkg/errors"
)

func newUserService() (*UserService, *mockUserRepository, *auth.JWTManager) {
	users := &mockUserRepository{}
	jwt := auth.NewJWTManager("test-secret", time.Hour)
	svc := NewUserService(users, jwt, testLogger)
	svc.bcryptCost = bcrypt.MinCost
	svc.now = clock
	return svc, users, jwt
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestRegister(t *testing.T) {
	svc, users, jwt := newUserService()
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "ada@example.com" && u.Name == "Ada" && !u.IsAdmin &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("password123")) == nil
	})).Return(nil)

	res, err := svc.Register(context.Background(), RegisterInput{Name: " Ada ", Email: " Ada@Example.COM ", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.User.ID)

	claims, err := jwt.Validate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, string(domain.RoleCustomer), claims.Role)
}

func TestRegister_ShortPassword(t *testing.T) {
	svc, users, _ := newUserService()

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Ada", Email: "a@b.c", Password: "short"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, users, _ := newUserService()
	users.On("Create", mock.Anything, mock.Anything).Return(apperrors.AlreadyExists("user", "email", "a@b.c"))

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Ada", Email: "a@b.c", Password: "password123"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestLogin(t *testing.T) {
	svc, users, _ := newUserService()
	users.On("GetByEmail", mock.Anything, "ada@example.com").
		Return(&domain.User{ID: "u1", Email: "ada@example.com", PasswordHash: hashed(t, "password123"), IsAdmin: true}, nil)

	res, err := svc.Login(context.Background(), "ADA@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "u1", res.User.ID)
	assert.NotEmpty(t, res.Token)
}

func TestLogin_BadCredentials(t *testing.T) {
	svc, users, _ := newUserService()
	users.On("GetByEmail", mock.Anything, "ada@example.com").
		Return(&domain.User{ID: "u1", PasswordHash: hashed(t, "password123")}, nil)
	users.On("GetByEmail", mock.Anything, "nobody@example.com").
		Return(nil, apperrors.NotFound("user", "nobody@example.com"))

	_, err := svc.Login(context.Background(), "ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = svc.Login(context.Background(), "nobody@example.com", "password123")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestProfile(t *testing.T) {
	svc, users, _ := newUserService()
	users.On("GetByID", mock.Anything, "u1").Return(&domain.User{ID: "u1", Name: "Ada"}, nil)

	u, err := svc.Profile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)
}

func TestEnsureAdmin(t *testing.T) {
	svc, users, _ := newUserService()
	users.On("UpsertAdmin", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "admin@bookify.dev" && u.IsAdmin
	})).Return(nil)

	u, err := svc.EnsureAdmin(context.Background(), "Admin@Bookify.dev", "admin-password")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role())
}
