// Command seed fills an empty catalog with demo books.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/Mahmoudramadan21/Bookify/internal/config"
	"github.com/Mahmoudramadan21/Bookify/internal/event"
	"github.com/Mahmoudramadan21/Bookify/internal/repository/postgres"
	"github.com/Mahmoudramadan21/Bookify/internal/service"
	"github.com/Mahmoudramadan21/Bookify/migrations"
	"github.com/Mahmoudramadan21/Bookify/pkg/database"
	"github.com/Mahmoudramadan21/Bookify/pkg/logger"
)

var demoBooks = []service.CreateBookInput{
	{
		Name: "The Pragmatic Programmer", Author: "David Thomas, Andrew Hunt", Category: "Programming",
		Description: "From journeyman to master.", Image: "/images/pragmatic.jpg",
		Price: decimal.RequireFromString("42.50"), CountInStock: 12,
	},
	{
		Name: "The Go Programming Language", Author: "Alan Donovan, Brian Kernighan", Category: "Programming",
		Description: "The authoritative resource for any programmer learning Go.", Image: "/images/gopl.jpg",
		Price: decimal.RequireFromString("38.99"), CountInStock: 8,
	},
	{
		Name: "Dune", Author: "Frank Herbert", Category: "Science Fiction",
		Description: "Set on the desert planet Arrakis.", Image: "/images/dune.jpg",
		Price: decimal.RequireFromString("9.99"), CountInStock: 25,
	},
	{
		Name: "The Left Hand of Darkness", Author: "Ursula K. Le Guin", Category: "Science Fiction",
		Description: "An envoy visits the planet Gethen.", Image: "/images/left-hand.jpg",
		Price: decimal.RequireFromString("11.25"), CountInStock: 6,
	},
	{
		Name: "The Hobbit", Author: "J. R. R. Tolkien", Category: "Fantasy",
		Description: "There and back again.", Image: "/images/hobbit.jpg",
		Price: decimal.RequireFromString("12.00"), CountInStock: 15,
	},
	{
		Name: "A Wizard of Earthsea", Author: "Ursula K. Le Guin", Category: "Fantasy",
		Description: "A young mage on the archipelago of Earthsea.", Image: "/images/earthsea.jpg",
		Price: decimal.RequireFromString("10.50"), CountInStock: 0,
	},
	{
		Name: "Sapiens", Author: "Yuval Noah Harari", Category: "History",
		Description: "A brief history of humankind.", Image: "/images/sapiens.jpg",
		Price: decimal.RequireFromString("18.75"), CountInStock: 9,
	},
	{
		Name: "Thinking, Fast and Slow", Author: "Daniel Kahneman", Category: "Psychology",
		Description: "The two systems that drive the way we think.", Image: "/images/thinking.jpg",
		Price: decimal.RequireFromString("16.40"), CountInStock: 4,
	},
	{
		Name: "Designing Data-Intensive Applications", Author: "Martin Kleppmann", Category: "Programming",
		Description: "The big ideas behind reliable, scalable systems.", Image: "/images/ddia.jpg",
		Price: decimal.RequireFromString("49.90"), CountInStock: 7,
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("bookify-seed", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	books := postgres.NewBookRepository(pool)
	existing, err := books.Count(ctx, "")
	if err != nil {
		return fmt.Errorf("count books: %w", err)
	}
	if existing > 0 {
		log.Info("catalog already populated, nothing to do", slog.Int("books", existing))
		return nil
	}

	// Seeding runs before the API, so there are no cached rankings to invalidate.
	catalog := service.NewCatalogService(books, nil, event.NewProducer(nil, log), log)
	for _, in := range demoBooks {
		b, err := catalog.CreateBook(ctx, in)
		if err != nil {
			return fmt.Errorf("create %q: %w", in.Name, err)
		}
		log.Info("book seeded", slog.String("book_id", b.ID), slog.String("name", b.Name))
	}

	log.Info("seed complete", slog.Int("books", len(demoBooks)))
	return nil
}
