package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Mahmoudramadan21/Bookify/internal/domain"
	"github.com/Mahmoudramadan21/Bookify/internal/event"
	"github.com/Mahmoudramadan21/Bookify/internal/repository"
)

// FulfillmentService moves orders through payment and delivery. The two
// flags are independent, so an order may be delivered before it is paid.
type FulfillmentService struct {
	orders   repository.OrderRepository
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

func NewFulfillmentService(orders repository.OrderRepository, producer *event.Producer, logger *slog.Logger) *FulfillmentService {
	return &FulfillmentService{
		orders:   orders,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// MarkPaid flags the order paid and stamps paid_at. Paying again re-stamps
// paid_at.
func (s *FulfillmentService) MarkPaid(ctx context.Context, id string) (*domain.Order, error) {
	at := s.now().UTC()
	if err := s.orders.MarkPaid(ctx, id, at); err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}
	ordersPaid.Inc()

	if err := s.producer.PublishOrderPaid(ctx, id, at); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.paid event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}
	s.logger.InfoContext(ctx, "order paid", slog.String("order_id", id))

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// Delivery is the outcome of MarkDelivered.
type Delivery struct {
	Order            *domain.Order
	AlreadyDelivered bool
}

// MarkDelivered flags the order delivered and credits each book's sales
// counter with the ordered quantities. Delivering an order twice changes
// nothing and reports AlreadyDelivered.
func (s *FulfillmentService) MarkDelivered(ctx context.Context, id string) (*Delivery, error) {
	at := s.now().UTC()
	delivered, err := s.orders.MarkDelivered(ctx, id, at)
	if err != nil {
		return nil, fmt.Errorf("mark order delivered: %w", err)
	}

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if !delivered {
		s.logger.InfoContext(ctx, "order already delivered", slog.String("order_id", id))
		return &Delivery{Order: o, AlreadyDelivered: true}, nil
	}

	ordersDelivered.Inc()
	sold := 0
	for _, qty := range o.QuantitiesByBook() {
		sold += qty
	}
	booksSold.Add(float64(sold))

	if err := s.producer.PublishOrderDelivered(ctx, o, at); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.delivered event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order delivered",
		slog.String("order_id", id),
		slog.Int("copies_sold", sold),
	)
	return &Delivery{Order: o}, nil
}
