// Package repository declares the persistence contracts the services depend on.
package repository

import (
	"context"
	"time"

	"github.com/Mahmoudramadan21/Bookify/internal/domain"
)

// BookRepository stores catalog books.
type BookRepository interface {
	// Count returns how many books have a name containing query (case-insensitive).
	Count(ctx context.Context, query string) (int, error)
	// List returns one window of the name-filtered catalog, newest first.
	List(ctx context.Context, query string, limit, offset int) ([]domain.Book, error)
	// ListByCategory matches category and name case-insensitively, newest first.
	ListByCategory(ctx context.Context, category, query string) ([]domain.Book, error)
	// TopRated returns rated books by descending rating.
	TopRated(ctx context.Context, limit int) ([]domain.Book, error)
	// BestSelling returns books by descending sales.
	BestSelling(ctx context.Context, limit int) ([]domain.Book, error)

	GetByID(ctx context.Context, id string) (*domain.Book, error)
	Create(ctx context.Context, b *domain.Book) error
	// Update writes only the fields set in patch, in one statement, and
	// returns the stored book. Omitted fields, stock included, are never
	// written, so concurrent order stock decrements are not overwritten.
	Update(ctx context.Context, id string, patch domain.BookPatch) (*domain.Book, error)
	Delete(ctx context.Context, id string) error
}

// ReviewRepository stores reviews and keeps the book's rating aggregate in
// step with them.
type ReviewRepository interface {
	// Create inserts r and recomputes the book's rating and review count in
	// the same transaction. It returns the new aggregate.
	Create(ctx context.Context, r *domain.Review) (domain.RatingSummary, error)
	ListByBook(ctx context.Context, bookID string) ([]domain.Review, error)
}

// OrderFilter narrows order listings. A nil UserID lists every order.
type OrderFilter struct {
	UserID *string
}

// OrderRepository stores orders together with their address and items.
type OrderRepository interface {
	// Create persists o, its shipping address and one item per line, and
	// decrements stock for each line, all in one transaction. Item snapshots
	// are filled into o.Items.
	Create(ctx context.Context, o *domain.Order, lines []domain.LineRequest) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
	// MarkPaid sets is_paid and stamps paid_at unconditionally.
	MarkPaid(ctx context.Context, id string, at time.Time) error
	// MarkDelivered flips is_delivered and credits each book's sales counter
	// with the ordered quantities. It returns false without side effects
	// when the order was already delivered.
	MarkDelivered(ctx context.Context, id string, at time.Time) (bool, error)
}

// UserRepository stores accounts.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// UpsertAdmin creates u as an admin or promotes the existing account
	// with the same email.
	UpsertAdmin(ctx context.Context, u *domain.User) error
}

// RankingCache caches the top-rated and best-selling lists.
type RankingCache interface {
	Get(ctx context.Context, list string) ([]domain.Book, bool, error)
	Set(ctx context.Context, list string, books []domain.Book) error
	Invalidate(ctx context.Context, lists ...string) error
}

// Ranking list names.
const (
	RankingTopRated    = "top_rated"
	RankingBestSelling = "best_selling"
)
