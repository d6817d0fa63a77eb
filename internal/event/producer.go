// Package event publishes Bookify domain events and reacts to them.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mahmoudramadan21/Bookify/internal/domain"
	pkgkafka "github.com/Mahmoudramadan21/Bookify/pkg/kafka"
	"github.com/Mahmoudramadan21/Bookify/pkg/logger"
)

// Topics. The event type of each message equals its topic.
const (
	TopicBookCreated    = "bookify.book.created"
	TopicBookUpdated    = "bookify.book.updated"
	TopicBookDeleted    = "bookify.book.deleted"
	TopicReviewCreated  = "bookify.review.created"
	TopicOrderCreated   = "bookify.order.created"
	TopicOrderPaid      = "bookify.order.paid"
	TopicOrderDelivered = "bookify.order.delivered"
)

const (
	AggregateBook   = "book"
	AggregateReview = "review"
	AggregateOrder  = "order"
)

const Source = "bookify-api"

type BookData struct {
	BookID   string          `json:"book_id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"count_in_stock"`
}

type BookDeletedData struct {
	BookID string `json:"book_id"`
}

type ReviewCreatedData struct {
	ReviewID     string   `json:"review_id"`
	BookID       string   `json:"book_id"`
	UserID       string   `json:"user_id"`
	Rating       int      `json:"rating"`
	BookRating   *float64 `json:"book_rating"`
	NumOfReviews int      `json:"num_of_reviews"`
}

type OrderLine struct {
	BookID string `json:"book_id"`
	Qty    int    `json:"qty"`
}

type OrderCreatedData struct {
	OrderID    string          `json:"order_id"`
	UserID     string          `json:"user_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Items      []OrderLine     `json:"items"`
}

type OrderPaidData struct {
	OrderID string    `json:"order_id"`
	PaidAt  time.Time `json:"paid_at"`
}

type OrderDeliveredData struct {
	OrderID     string         `json:"order_id"`
	DeliveredAt time.Time      `json:"delivered_at"`
	Sold        map[string]int `json:"sold"`
}

// Publisher is satisfied by *pkgkafka.Producer and by LocalPublisher.
type Publisher interface {
	Publish(ctx context.Context, topic string, e *pkgkafka.Event) error
}

// LocalPublisher delivers events to an in-process handler. It stands in for
// Kafka when messaging is disabled.
type LocalPublisher struct {
	Handler pkgkafka.Handler
}

func (p LocalPublisher) Publish(ctx context.Context, _ string, e *pkgkafka.Event) error {
	return p.Handler(ctx, e)
}

// Producer publishes domain events. Failures are returned to the caller,
// which logs them and carries on.
type Producer struct {
	pub    Publisher
	logger *slog.Logger
}

// NewProducer returns a Producer. A nil pub discards every event.
func NewProducer(pub Publisher, logger *slog.Logger) *Producer {
	return &Producer{pub: pub, logger: logger}
}

func (p *Producer) publish(ctx context.Context, topic, aggregate, id string, data any) error {
	if p == nil || p.pub == nil {
		return nil
	}
	e, err := pkgkafka.NewEvent(topic, aggregate, id, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	e.CorrelationID = logger.CorrelationIDFromContext(ctx)

	if err := p.pub.Publish(ctx, topic, e); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", id),
	)
	return nil
}

func bookData(b *domain.Book) BookData {
	return BookData{BookID: b.ID, Name: b.Name, Category: b.Category, Price: b.Price, Stock: b.CountInStock}
}

func (p *Producer) PublishBookCreated(ctx context.Context, b *domain.Book) error {
	return p.publish(ctx, TopicBookCreated, AggregateBook, b.ID, bookData(b))
}

func (p *Producer) PublishBookUpdated(ctx context.Context, b *domain.Book) error {
	return p.publish(ctx, TopicBookUpdated, AggregateBook, b.ID, bookData(b))
}

func (p *Producer) PublishBookDeleted(ctx context.Context, id string) error {
	return p.publish(ctx, TopicBookDeleted, AggregateBook, id, BookDeletedData{BookID: id})
}

func (p *Producer) PublishReviewCreated(ctx context.Context, r *domain.Review, sum domain.RatingSummary) error {
	return p.publish(ctx, TopicReviewCreated, AggregateReview, r.BookID, ReviewCreatedData{
		ReviewID:     r.ID,
		BookID:       r.BookID,
		UserID:       r.UserID,
		Rating:       r.Rating,
		BookRating:   sum.Rating,
		NumOfReviews: sum.NumOfReviews,
	})
}

func (p *Producer) PublishOrderCreated(ctx context.Context, o *domain.Order) error {
	lines := make([]OrderLine, 0, len(o.Items))
	for _, it := range o.Items {
		if it.BookID != nil {
			lines = append(lines, OrderLine{BookID: *it.BookID, Qty: it.Qty})
		}
	}
	return p.publish(ctx, TopicOrderCreated, AggregateOrder, o.ID, OrderCreatedData{
		OrderID:    o.ID,
		UserID:     o.UserID,
		TotalPrice: o.TotalPrice,
		Items:      lines,
	})
}

func (p *Producer) PublishOrderPaid(ctx context.Context, orderID string, at time.Time) error {
	return p.publish(ctx, TopicOrderPaid, AggregateOrder, orderID, OrderPaidData{OrderID: orderID, PaidAt: at})
}

func (p *Producer) PublishOrderDelivered(ctx context.Context, o *domain.Order, at time.Time) error {
	return p.publish(ctx, TopicOrderDelivered, AggregateOrder, o.ID, OrderDeliveredData{
		OrderID:     o.ID,
		DeliveredAt: at,
		Sold:        o.QuantitiesByBook(),
	})
}
