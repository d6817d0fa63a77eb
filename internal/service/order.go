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

// Caller identifies who is asking, for ownership checks.
type Caller struct {
	UserID  string
	IsAdmin bool
}

// OrderService places orders and answers order queries.
type OrderService struct {
	orders   repository.OrderRepository
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

func NewOrderService(orders repository.OrderRepository, producer *event.Producer, logger *slog.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

func validateNewOrder(in domain.NewOrder) error {
	if len(in.Items) == 0 {
		return apperrors.InvalidInput("no order items")
	}
	for i, l := range in.Items {
		if l.BookID == "" {
			return apperrors.InvalidInput(fmt.Sprintf("order item %d has no book", i))
		}
		if l.Qty < 1 {
			return apperrors.InvalidInput(fmt.Sprintf("order item %d: qty must be at least 1", i))
		}
	}
	if in.TaxPrice.IsNegative() || in.ShippingPrice.IsNegative() || in.TotalPrice.IsNegative() {
		return apperrors.InvalidInput("prices must not be negative")
	}
	return nil
}

// CreateOrder places an order for in.UserID. Item names, prices and images
// are snapshotted from the books, and each book's stock is decremented by
// the ordered quantity. The submitted total is stored as is.
func (s *OrderService) CreateOrder(ctx context.Context, in domain.NewOrder) (*domain.Order, error) {
	if err := validateNewOrder(in); err != nil {
		return nil, err
	}

	addr := in.ShippingAddress
	o := &domain.Order{
		ID:              uuid.New().String(),
		UserID:          in.UserID,
		PaymentMethod:   strings.TrimSpace(in.PaymentMethod),
		TaxPrice:        in.TaxPrice.Round(2),
		ShippingPrice:   in.ShippingPrice.Round(2),
		TotalPrice:      in.TotalPrice.Round(2),
		CreatedAt:       s.now().UTC(),
		ShippingAddress: &addr,
	}

	if err := s.orders.Create(ctx, o, in.Items); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	ordersCreated.Inc()

	if err := s.producer.PublishOrderCreated(ctx, o); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", o.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", o.ID),
		slog.Int("items", len(o.Items)),
		slog.String("total_price", o.TotalPrice.StringFixed(2)),
	)
	return o, nil
}

// ListOrders returns every order. Callers must be admins.
func (s *OrderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.orders.List(ctx, repository.OrderFilter{})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) ListOrdersForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := s.orders.List(ctx, repository.OrderFilter{UserID: &userID})
	if err != nil {
		return nil, fmt.Errorf("list orders for user: %w", err)
	}
	return orders, nil
}

// GetOrder returns the order when caller owns it or is an admin.
func (s *OrderService) GetOrder(ctx context.Context, id string, caller Caller) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if !caller.IsAdmin && !o.OwnedBy(caller.UserID) {
		return nil, apperrors.Forbidden("not authorized to view this order")
	}
	return o, nil
}
