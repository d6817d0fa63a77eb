package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Mahmoudramadan21/Bookify/internal/domain"
	"github.com/Mahmoudramadan21/Bookify/internal/service"
	apperrors "github.com/Mahmoudramadan21/Bookify/pkg/errors"
	"github.com/Mahmoudramadan21/Bookify/pkg/httputil"
	"github.com/Mahmoudramadan21/Bookify/pkg/middleware"
	"github.com/Mahmoudramadan21/Bookify/pkg/validator"
)

type OrderHandler struct {
	orders      *service.OrderService
	fulfillment *service.FulfillmentService
}

func NewOrderHandler(orders *service.OrderService, fulfillment *service.FulfillmentService) *OrderHandler {
	return &OrderHandler{orders: orders, fulfillment: fulfillment}
}

// --- Request DTOs ---

type ShippingAddressRequest struct {
	Address    string `json:"address" validate:"required,max=255"`
	City       string `json:"city" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,max=100"`
}

// OrderItemRequest is one requested line. Price is accepted but ignored: the
// book's current price is snapshotted when the order is placed.
type OrderItemRequest struct {
	BookID string           `json:"book_id" validate:"required,uuid"`
	Qty    int              `json:"qty" validate:"gte=1"`
	Price  *decimal.Decimal `json:"price,omitempty"`
}

// CreateOrderRequest is the JSON body of POST /api/orders.
type CreateOrderRequest struct {
	PaymentMethod   string                 `json:"payment_method" validate:"required,max=100"`
	TaxPrice        decimal.Decimal        `json:"tax_price"`
	ShippingPrice   decimal.Decimal        `json:"shipping_price"`
	TotalPrice      decimal.Decimal        `json:"total_price"`
	ShippingAddress ShippingAddressRequest `json:"shipping_address"`
	OrderItems      []OrderItemRequest     `json:"order_items" validate:"min=1,dive"`
}

// DeliveryResponse is the body of PUT /api/orders/{id}/deliver.
type DeliveryResponse struct {
	Message          string        `json:"message"`
	AlreadyDelivered bool          `json:"already_delivered"`
	Order            *domain.Order `json:"order"`
}

type PaymentResponse struct {
	Message string        `json:"message"`
	Order   *domain.Order `json:"order"`
}

// callerFrom reads the authenticated identity. Routes using it sit behind
// the authentication middleware, so a miss is answered with 401.
func callerFrom(w http.ResponseWriter, r *http.Request) (service.Caller, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"))
		return service.Caller{}, false
	}
	return service.Caller{UserID: id.UserID, IsAdmin: id.IsAdmin}, true
}

// --- Handlers ---

// Create handles POST /api/orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, r, err)
		return
	}

	lines := make([]domain.LineRequest, len(req.OrderItems))
	for i, it := range req.OrderItems {
		lines[i] = domain.LineRequest{BookID: it.BookID, Qty: it.Qty}
	}

	order, err := h.orders.CreateOrder(r.Context(), domain.NewOrder{
		UserID:        caller.UserID,
		PaymentMethod: req.PaymentMethod,
		TaxPrice:      req.TaxPrice,
		ShippingPrice: req.ShippingPrice,
		TotalPrice:    req.TotalPrice,
		ShippingAddress: domain.ShippingAddress{
			Address:    req.ShippingAddress.Address,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		},
		Items: lines,
	})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.Created(w, order)
}

// ListMine handles GET /api/orders/mine
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	orders, err := h.orders.ListOrdersForUser(r.Context(), caller.UserID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.OK(w, orders)
}

// ListAll handles GET /api/orders (admin)
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.OK(w, orders)
}

// Get handles GET /api/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "order id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(r.Context(), id.String(), caller)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.OK(w, order)
}

// MarkPaid handles PUT /api/orders/{id}/pay
func (h *OrderHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "order id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	order, err := h.fulfillment.MarkPaid(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.OK(w, PaymentResponse{Message: "order was paid", Order: order})
}

// MarkDelivered handles PUT /api/orders/{id}/deliver (admin)
func (h *OrderHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "order id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	d, err := h.fulfillment.MarkDelivered(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	msg := "order was delivered"
	if d.AlreadyDelivered {
		msg = "order already delivered"
	}
	httputil.OK(w, DeliveryResponse{Message: msg, AlreadyDelivered: d.AlreadyDelivered, Order: d.Order})
}
