// Package service implements Bookify's business operations on top of the
// repository contracts.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Mahmoudramadan21/Bookify/internal/domain"
	"github.com/Mahmoudramadan21/Bookify/internal/event"
	"github.com/Mahmoudramadan21/Bookify/internal/repository"
	apperrors "github.com/Mahmoudramadan21/Bookify/pkg/errors"
	"github.com/Mahmoudramadan21/Bookify/pkg/pagination"
)

// CatalogService manages books and serves the catalog listings.
type CatalogService struct {
	books    repository.BookRepository
	cache    repository.RankingCache
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewCatalogService creates a CatalogService. cache may be nil, in which
// case ranking lists always come from the database.
func NewCatalogService(
	books repository.BookRepository,
	cache repository.RankingCache,
	producer *event.Producer,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		books:    books,
		cache:    cache,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateBookInput holds the fields of a new book.
type CreateBookInput struct {
	Name         string
	Author       string
	Image        string
	Description  string
	Category     string
	Price        decimal.Decimal
	CountInStock int
}

// ListBooks returns one page of the catalog filtered by name.
func (s *CatalogService) ListBooks(ctx context.Context, query string, page pagination.Request) (*domain.BookPage, error) {
	total, err := s.books.Count(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}

	w := pagination.Resolve(page, total, pagination.DefaultPageSize)
	books, err := s.books.List(ctx, query, w.Limit, w.Offset)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return &domain.BookPage{Books: books, Page: w.Page, Pages: w.Pages}, nil
}

func (s *CatalogService) ListBooksByCategory(ctx context.Context, category, query string) ([]domain.Book, error) {
	books, err := s.books.ListByCategory(ctx, category, query)
	if err != nil {
		return nil, fmt.Errorf("list books by category: %w", err)
	}
	return books, nil
}

func (s *CatalogService) TopRatedBooks(ctx context.Context) ([]domain.Book, error) {
	return s.ranking(ctx, repository.RankingTopRated, s.books.TopRated)
}

func (s *CatalogService) BestSellingBooks(ctx context.Context) ([]domain.Book, error) {
	return s.ranking(ctx, repository.RankingBestSelling, s.books.BestSelling)
}

// ranking serves a ranking list from the cache, falling back to load. Cache
// failures are logged and never surface to the caller.
func (s *CatalogService) ranking(
	ctx context.Context,
	list string,
	load func(ctx context.Context, limit int) ([]domain.Book, error),
) ([]domain.Book, error) {
	if s.cache != nil {
		books, ok, err := s.cache.Get(ctx, list)
		switch {
		case err != nil:
			rankingCache.WithLabelValues(list, "error").Inc()
			s.logger.WarnContext(ctx, "ranking cache read failed",
				slog.String("list", list),
				slog.String("error", err.Error()),
			)
		case ok:
			rankingCache.WithLabelValues(list, "hit").Inc()
			return books, nil
		default:
			rankingCache.WithLabelValues(list, "miss").Inc()
		}
	}

	books, err := load(ctx, domain.RankingSize)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", list, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, list, books); err != nil {
			s.logger.WarnContext(ctx, "ranking cache write failed",
				slog.String("list", list),
				slog.String("error", err.Error()),
			)
		}
	}
	return books, nil
}

func (s *CatalogService) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	b, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

func validateBook(b *domain.Book) error {
	if b.Name == "" {
		return apperrors.InvalidInput("name is required")
	}
	if b.Price.IsNegative() {
		return apperrors.InvalidInput("price must not be negative")
	}
	if b.CountInStock < 0 {
		return apperrors.InvalidInput("count_in_stock must not be negative")
	}
	return nil
}

func (s *CatalogService) CreateBook(ctx context.Context, input CreateBookInput) (*domain.Book, error) {
	b := &domain.Book{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(input.Name),
		Author:       strings.TrimSpace(input.Author),
		Image:        input.Image,
		Description:  input.Description,
		Category:     strings.TrimSpace(input.Category),
		Price:        input.Price.Round(2),
		CountInStock: input.CountInStock,
		CreatedAt:    s.now().UTC(),
	}
	if err := validateBook(b); err != nil {
		return nil, err
	}

	if err := s.books.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	if err := s.producer.PublishBookCreated(ctx, b); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish book.created event",
			slog.String("book_id", b.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "book created",
		slog.String("book_id", b.ID),
		slog.String("name", b.Name),
	)
	return b, nil
}

// validatePatch checks only the fields the patch sets. A book oversold
// by orders keeps its negative stock through edits of other fields.
func validatePatch(p domain.BookPatch) error {
	if p.Name != nil && *p.Name == "" {
		return apperrors.InvalidInput("name is required")
	}
	if p.Price != nil && p.Price.IsNegative() {
		return apperrors.InvalidInput("price must not be negative")
	}
	if p.CountInStock != nil && *p.CountInStock < 0 {
		return apperrors.InvalidInput("count_in_stock must not be negative")
	}
	return nil
}

// UpdateBook applies patch to the book. Fields absent from the patch keep
// their stored values.
func (s *CatalogService) UpdateBook(ctx context.Context, id string, patch domain.BookPatch) (*domain.Book, error) {
	if patch.Empty() {
		return s.GetBook(ctx, id)
	}

	patch = patch.Normalized()
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	b, err := s.books.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}

	if err := s.producer.PublishBookUpdated(ctx, b); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish book.updated event",
			slog.String("book_id", b.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "book updated", slog.String("book_id", b.ID))
	return b, nil
}

func (s *CatalogService) DeleteBook(ctx context.Context, id string) error {
	if err := s.books.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	if err := s.producer.PublishBookDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish book.deleted event",
			slog.String("book_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "book deleted", slog.String("book_id", id))
	return nil
}
