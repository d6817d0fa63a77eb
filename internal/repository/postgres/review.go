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

const reviewUniqueConstraint = "reviews_user_book_key"

// ReviewRepository implements repository.ReviewRepository.
type ReviewRepository struct {
	db database.DBTX
}

func NewReviewRepository(db database.DBTX) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create locks the book row so concurrent reviews of one book recompute the
// aggregate one after another.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) (sum domain.RatingSummary, err error) {
	ctx, end := database.TraceQuery(ctx, "CreateReview", "INSERT INTO reviews")
	defer func() { end(err) }()

	err = database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx, `SELECT id FROM books WHERE id = $1 FOR UPDATE`, rv.BookID).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("book", rv.BookID)
		}
		if err != nil {
			return fmt.Errorf("lock book: %w", err)
		}

		_, err = tx.Exec(ctx, `INSERT INTO reviews (id, book_id, user_id, name, rating, comment, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rv.ID, rv.BookID, rv.UserID, rv.Name, rv.Rating, rv.Comment, rv.CreatedAt,
		)
		if database.IsUniqueViolation(err, reviewUniqueConstraint) {
			return apperrors.Conflict("book already reviewed by this user")
		}
		if err != nil {
			return fmt.Errorf("insert review: %w", err)
		}

		err = tx.QueryRow(ctx, `UPDATE books SET
				num_of_reviews = agg.n,
				rating = agg.mean
			FROM (
				SELECT COUNT(*)::int AS n, AVG(rating)::float8 AS mean
				FROM reviews WHERE book_id = $1
			) AS agg
			WHERE books.id = $1
			RETURNING books.rating, books.num_of_reviews`, rv.BookID,
		).Scan(&sum.Rating, &sum.NumOfReviews)
		if err != nil {
			return fmt.Errorf("recompute rating: %w", err)
		}
		return nil
	})
	return sum, err
}

func (r *ReviewRepository) ListByBook(ctx context.Context, bookID string) (_ []domain.Review, err error) {
	const q = `SELECT id, book_id, user_id, name, rating, comment, created_at
		FROM reviews WHERE book_id = $1
		ORDER BY created_at DESC, id`
	ctx, end := database.TraceQuery(ctx, "ListReviews", q)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, q, bookID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.BookID, &rv.UserID, &rv.Name, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}
