package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Mahmoudramadan21/Bookify/internal/domain"
	"github.com/Mahmoudramadan21/Bookify/pkg/database"
	apperrors "github.com/Mahmoudramadan21/Bookify/pkg/errors"
)

const (
	userColumns         = `id, name, email, password_hash, is_admin, created_at`
	userEmailConstraint = "users_email_key"
)

// UserRepository implements repository.UserRepository.
type UserRepository struct {
	db database.DBTX
}

func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	const q = `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	ctx, end := database.TraceQuery(ctx, "CreateUser", q)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, q, u.ID, u.Name, u.Email, u.PasswordHash, u.IsAdmin, u.CreatedAt)
	if database.IsUniqueViolation(err, userEmailConstraint) {
		return apperrors.AlreadyExists("user", "email", u.Email)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) get(ctx context.Context, op, where, arg string) (_ *domain.User, err error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` = $1`
	ctx, end := database.TraceQuery(ctx, op, q)
	defer func() { end(err) }()

	var u domain.User
	err = r.db.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("user", arg)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.get(ctx, "GetUser", "id", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.get(ctx, "GetUserByEmail", "email", email)
}

func (r *UserRepository) UpsertAdmin(ctx context.Context, u *domain.User) (err error) {
	const q = `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, TRUE, $5)
		ON CONFLICT (email) DO UPDATE SET is_admin = TRUE
		RETURNING id, created_at`
	ctx, end := database.TraceQuery(ctx, "UpsertAdmin", q)
	defer func() { end(err) }()

	if err := r.db.QueryRow(ctx, q, u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt).Scan(&u.ID, &u.CreatedAt); err != nil {
		return fmt.Errorf("upsert admin: %w", err)
	}
	u.IsAdmin = true
	return nil
}
