package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := PostgresConfig{
		Host: "db", Port: 5433, User: "book", Password: "p@ss/word",
		DBName: "bookify", SSLMode: "require",
	}
	assert.Equal(t, "postgres://book:p%40ss%2Fword@db:5433/bookify?sslmode=require", cfg.DSN())
}

func TestBackoff_GrowsWithJitter(t *testing.T) {
	for attempt := 0; attempt < 3; attempt++ {
		base := retryBaseWait << attempt
		lo := time.Duration(float64(base) * (1 - retryJitter))
		hi := time.Duration(float64(base) * (1 + retryJitter))
		for i := 0; i < 20; i++ {
			d := backoff(attempt)
			assert.GreaterOrEqual(t, d, lo)
			assert.LessOrEqual(t, d, hi)
		}
	}
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("syntax error at or near")
	err := retry(context.Background(), nil, "op", transient, func() error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetry_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retry(ctx, nil, "op", transient, func() error {
		return errors.New("dial tcp: connection refused")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTransient(t *testing.T) {
	assert.False(t, transient(nil))
	assert.True(t, transient(errors.New("dial tcp 127.0.0.1:5432: connection refused")))
	assert.True(t, transient(errors.New("unexpected EOF")))
	assert.False(t, transient(errors.New("duplicate key value violates unique constraint")))
}

// --- transactions ---

func TestWithTx_Commits(t *testing.T) {
	mock := NewMockPool(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE books").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := WithTx(context.Background(), mock, func(tx pgx.Tx) error {
		_, err := tx.Exec(context.Background(), "UPDATE books SET name = 'x'")
		return err
	})
	require.NoError(t, err)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	mock := NewMockPool(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := WithTx(context.Background(), mock, func(pgx.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestIsUniqueViolation(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", ConstraintName: "reviews_user_book_key"}
	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "reviews_user_book_key"))
	assert.False(t, IsUniqueViolation(err, "users_email_key"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(errors.New("23505"), ""))
}

// --- migrations ---

func TestRunMigrations_AppliesPendingInOrder(t *testing.T) {
	mock := NewMockPool(t)
	files := fstest.MapFS{
		"002_reviews.up.sql": {Data: []byte("CREATE TABLE reviews (id UUID)")},
		"001_books.up.sql":   {Data: []byte("CREATE TABLE books (id UUID)")},
		"001_books.down.sql": {Data: []byte("DROP TABLE books")},
		"README.md":          {Data: []byte("ignored")},
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	mock.ExpectQuery("SELECT EXISTS").WithArgs("001_books.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectQuery("SELECT EXISTS").WithArgs("002_reviews.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE reviews").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("002_reviews.up.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	require.NoError(t, RunMigrations(context.Background(), mock, files, logger))
}

func TestRunMigrations_SQLErrorIsNotRetried(t *testing.T) {
	mock := NewMockPool(t)
	files := fstest.MapFS{"001_books.up.sql": {Data: []byte("CREATE TABLE books (")}}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("001_books.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE books").WillReturnError(errors.New("syntax error at end of input"))
	mock.ExpectRollback()

	err := RunMigrations(context.Background(), mock, files, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute migration 001_books.up.sql")
}

// --- tracing ---

func setupTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exp
}

func TestTraceQuery_RecordsSpan(t *testing.T) {
	exp := setupTracer(t)

	_, end := TraceQuery(context.Background(), "GetBook", "SELECT * FROM books WHERE id = $1")
	end(errors.New("no rows"))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "db.GetBook", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)

	attrs := map[string]string{}
	for _, a := range spans[0].Attributes {
		attrs[string(a.Key)] = a.Value.Emit()
	}
	assert.Equal(t, "postgresql", attrs["db.system"])
	assert.Equal(t, "GetBook", attrs["db.operation"])
}

func TestTraceQuery_SlowQueryLogging(t *testing.T) {
	setupTracer(t)
	var buf bytes.Buffer
	SetSlowQueryLogging(time.Nanosecond, slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	_, end := TraceQuery(context.Background(), "ListBooks", "SELECT 1")
	time.Sleep(time.Millisecond)
	end(nil)

	assert.Contains(t, buf.String(), "slow query")
	assert.Contains(t, buf.String(), "ListBooks")
}

func TestTraceQuery_SlowQueryLoggingDisabled(t *testing.T) {
	setupTracer(t)
	SetSlowQueryLogging(0, nil)

	_, end := TraceQuery(context.Background(), "ListBooks", "SELECT 1")
	end(nil)
	assert.Nil(t, slowQueries.Load())
}

// --- metrics ---

func TestPoolCollector_Describe(t *testing.T) {
	c := NewPoolCollector(nil, "bookify")
	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	var names []string
	for d := range ch {
		names = append(names, d.String())
	}
	require.Len(t, names, 7)
	assert.Contains(t, names[0], "bookify_db_pool_acquired_connections")
}
