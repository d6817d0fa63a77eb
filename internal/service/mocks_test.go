package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Mahmoudramadan21/Bookify/internal/domain"
	"github.com/Mahmoudramadan21/Bookify/internal/event"
	"github.com/Mahmoudramadan21/Bookify/internal/repository"
	pkgkafka "github.com/Mahmoudramadan21/Bookify/pkg/kafka"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var fixedNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// --- Mock BookRepository ---

type mockBookRepository struct {
	mock.Mock
}

func (m *mockBookRepository) Count(ctx context.Context, query string) (int, error) {
	args := m.Called(ctx, query)
	return args.Int(0), args.Error(1)
}

func (m *mockBookRepository) List(ctx context.Context, query string, limit, offset int) ([]domain.Book, error) {
	args := m.Called(ctx, query, limit, offset)
	books, _ := args.Get(0).([]domain.Book)
	return books, args.Error(1)
}

func (m *mockBookRepository) ListByCategory(ctx context.Context, category, query string) ([]domain.Book, error) {
	args := m.Called(ctx, category, query)
	books, _ := args.Get(0).([]domain.Book)
	return books, args.Error(1)
}

func (m *mockBookRepository) TopRated(ctx context.Context, limit int) ([]domain.Book, error) {
	args := m.Called(ctx, limit)
	books, _ := args.Get(0).([]domain.Book)
	return books, args.Error(1)
}

func (m *mockBookRepository) BestSelling(ctx context.Context, limit int) ([]domain.Book, error) {
	args := m.Called(ctx, limit)
	books, _ := args.Get(0).([]domain.Book)
	return books, args.Error(1)
}

func (m *mockBookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Book), args.Error(1)
}

func (m *mockBookRepository) Create(ctx context.Context, b *domain.Book) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockBookRepository) Update(ctx context.Context, id string, patch domain.BookPatch) (*domain.Book, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Book), args.Error(1)
}

func (m *mockBookRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// --- Mock ReviewRepository ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, r *domain.Review) (domain.RatingSummary, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(domain.RatingSummary), args.Error(1)
}

func (m *mockReviewRepository) ListByBook(ctx context.Context, bookID string) ([]domain.Review, error) {
	args := m.Called(ctx, bookID)
	reviews, _ := args.Get(0).([]domain.Review)
	return reviews, args.Error(1)
}

// --- Mock OrderRepository ---

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, o *domain.Order, lines []domain.LineRequest) error {
	return m.Called(ctx, o, lines).Error(0)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, f repository.OrderFilter) ([]domain.Order, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]domain.Order)
	return orders, args.Error(1)
}

func (m *mockOrderRepository) MarkPaid(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *mockOrderRepository) MarkDelivered(ctx context.Context, id string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

// --- Mock UserRepository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) UpsertAdmin(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

// --- Mock RankingCache ---

type mockRankingCache struct {
	mock.Mock
}

func (m *mockRankingCache) Get(ctx context.Context, list string) ([]domain.Book, bool, error) {
	args := m.Called(ctx, list)
	books, _ := args.Get(0).([]domain.Book)
	return books, args.Bool(1), args.Error(2)
}

func (m *mockRankingCache) Set(ctx context.Context, list string, books []domain.Book) error {
	return m.Called(ctx, list, books).Error(0)
}

func (m *mockRankingCache) Invalidate(ctx context.Context, lists ...string) error {
	return m.Called(ctx, lists).Error(0)
}

// --- Event capture ---

type capturedEvents struct {
	mu     sync.Mutex
	events []*pkgkafka.Event
	err    error
}

func (c *capturedEvents) Publish(_ context.Context, _ string, e *pkgkafka.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return c.err
}

func (c *capturedEvents) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}

func newProducer() (*event.Producer, *capturedEvents) {
	c := &capturedEvents{}
	return event.NewProducer(c, testLogger), c
}
