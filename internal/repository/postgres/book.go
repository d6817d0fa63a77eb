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

const bookColumns = `id, name, author, image, description, category, price,
	count_in_stock, rating, num_of_reviews, num_of_sales, created_at`

// BookRepository implements repository.BookRepository.
type BookRepository struct {
	db database.DBTX
}

func NewBookRepository(db database.DBTX) *BookRepository {
	return &BookRepository{db: db}
}

func scanBook(row pgx.Row, b *domain.Book) error {
	return row.Scan(
		&b.ID, &b.Name, &b.Author, &b.Image, &b.Description, &b.Category, &b.Price,
		&b.CountInStock, &b.Rating, &b.NumOfReviews, &b.NumOfSales, &b.CreatedAt,
	)
}

func (r *BookRepository) queryBooks(ctx context.Context, op, query string, args ...any) (_ []domain.Book, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	books := []domain.Book{}
	for rows.Next() {
		var b domain.Book
		if err := scanBook(rows, &b); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return books, nil
}

func (r *BookRepository) Count(ctx context.Context, query string) (n int, err error) {
	const q = `SELECT COUNT(*) FROM books WHERE name ILIKE $1`
	ctx, end := database.TraceQuery(ctx, "CountBooks", q)
	defer func() { end(err) }()

	if err := r.db.QueryRow(ctx, q, containsPattern(query)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return n, nil
}

func (r *BookRepository) List(ctx context.Context, query string, limit, offset int) ([]domain.Book, error) {
	q := `SELECT ` + bookColumns + ` FROM books
		WHERE name ILIKE $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`
	return r.queryBooks(ctx, "ListBooks", q, containsPattern(query), limit, offset)
}

func (r *BookRepository) ListByCategory(ctx context.Context, category, query string) ([]domain.Book, error) {
	q := `SELECT ` + bookColumns + ` FROM books
		WHERE category ILIKE $1 AND name ILIKE $2
		ORDER BY created_at DESC, id`
	return r.queryBooks(ctx, "ListBooksByCategory", q, containsPattern(category), containsPattern(query))
}

func (r *BookRepository) TopRated(ctx context.Context, limit int) ([]domain.Book, error) {
	q := `SELECT ` + bookColumns + ` FROM books
		WHERE rating IS NOT NULL
		ORDER BY rating DESC, num_of_reviews DESC, id
		LIMIT $1`
	return r.queryBooks(ctx, "TopRatedBooks", q, limit)
}

func (r *BookRepository) BestSelling(ctx context.Context, limit int) ([]domain.Book, error) {
	q := `SELECT ` + bookColumns + ` FROM books
		ORDER BY num_of_sales DESC, created_at DESC, id
		LIMIT $1`
	return r.queryBooks(ctx, "BestSellingBooks", q, limit)
}

func (r *BookRepository) GetByID(ctx context.Context, id string) (_ *domain.Book, err error) {
	q := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, "GetBook", q)
	defer func() { end(err) }()

	var b domain.Book
	if err := scanBook(r.db.QueryRow(ctx, q, id), &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("book", id)
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return &b, nil
}

func (r *BookRepository) Create(ctx context.Context, b *domain.Book) (err error) {
	const q = `INSERT INTO books (id, name, author, image, description, category, price, count_in_stock, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	ctx, end := database.TraceQuery(ctx, "CreateBook", q)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, q,
		b.ID, b.Name, b.Author, b.Image, b.Description, b.Category, b.Price, b.CountInStock, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

// Update sets each column from its patch field, or keeps the stored value
// when the field is nil.
func (r *BookRepository) Update(ctx context.Context, id string, patch domain.BookPatch) (_ *domain.Book, err error) {
	const q = `UPDATE books SET
			name = COALESCE($2, name),
			author = COALESCE($3, author),
			image = COALESCE($4, image),
			description = COALESCE($5, description),
			category = COALESCE($6, category),
			price = COALESCE($7, price),
			count_in_stock = COALESCE($8, count_in_stock)
		WHERE id = $1
		RETURNING ` + bookColumns
	ctx, end := database.TraceQuery(ctx, "UpdateBook", q)
	defer func() { end(err) }()

	var b domain.Book
	err = scanBook(r.db.QueryRow(ctx, q,
		id, patch.Name, patch.Author, patch.Image, patch.Description, patch.Category, patch.Price, patch.CountInStock,
	), &b)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("book", id)
	}
	if err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	return &b, nil
}

func (r *BookRepository) Delete(ctx context.Context, id string) (err error) {
	const q = `DELETE FROM books WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, "DeleteBook", q)
	defer func() { end(err) }()

	tag, err := r.db.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("book", id)
	}
	return nil
}
