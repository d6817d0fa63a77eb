package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Mahmoudramadan21/Bookify/internal/domain"
	"github.com/Mahmoudramadan21/Bookify/internal/event"
	"github.com/Mahmoudramadan21/Bookify/internal/repository"
	apperrors "github.com/Mahmoudramadan21/Bookify/pkg/errors"
)

// ReviewService accepts reviews and keeps book ratings in step with them.
type ReviewService struct {
	reviews  repository.ReviewRepository
	books    repository.BookRepository
	users    repository.UserRepository
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

func NewReviewService(
	reviews repository.ReviewRepository,
	books repository.BookRepository,
	users repository.UserRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		books:    books,
		users:    users,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

type AddReviewInput struct {
	BookID  string
	UserID  string
	Rating  int
	Comment string
}

// ReviewResult is the stored review and the book aggregate after it.
type ReviewResult struct {
	Review  *domain.Review       `json:"review"`
	Summary domain.RatingSummary `json:"book"`
}

// AddReview stores a review and recomputes the book's rating and review
// count. A user may review a book once; a second attempt is a Conflict.
func (s *ReviewService) AddReview(ctx context.Context, input AddReviewInput) (*ReviewResult, error) {
	if !domain.ValidRating(input.Rating) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
	}

	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("get reviewer: %w", err)
	}

	r := &domain.Review{
		ID:        uuid.New().String(),
		BookID:    input.BookID,
		UserID:    input.UserID,
		Name:      user.Name,
		Rating:    input.Rating,
		Comment:   strings.TrimSpace(input.Comment),
		CreatedAt: s.now().UTC(),
	}

	sum, err := s.reviews.Create(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	reviewsCreated.Inc()

	if err := s.producer.PublishReviewCreated(ctx, r, sum); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.String("review_id", r.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", r.ID),
		slog.String("book_id", r.BookID),
		slog.Int("rating", r.Rating),
	)
	return &ReviewResult{Review: r, Summary: sum}, nil
}

// ListReviews returns a book's reviews, newest first.
func (s *ReviewService) ListReviews(ctx context.Context, bookID string) ([]domain.Review, error) {
	if _, err := s.books.GetByID(ctx, bookID); err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	reviews, err := s.reviews.ListByBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}
