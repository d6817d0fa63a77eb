package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Mahmoudramadan21/Bookify/internal/domain"
	"github.com/Mahmoudramadan21/Bookify/internal/service"
	"github.com/Mahmoudramadan21/Bookify/pkg/httputil"
	"github.com/Mahmoudramadan21/Bookify/pkg/pagination"
	"github.com/Mahmoudramadan21/Bookify/pkg/validator"
)

// BookHandler serves the catalog endpoints.
type BookHandler struct {
	catalog *service.CatalogService
}

func NewBookHandler(catalog *service.CatalogService) *BookHandler {
	return &BookHandler{catalog: catalog}
}

// --- Request DTOs ---

// CreateBookRequest is the JSON body of POST /api/books.
type CreateBookRequest struct {
	Name         string          `json:"name" validate:"required,max=255"`
	Author       string          `json:"author" validate:"max=255"`
	Image        string          `json:"image" validate:"max=1024"`
	Description  string          `json:"description"`
	Category     string          `json:"category" validate:"max=100"`
	Price        decimal.Decimal `json:"price"`
	CountInStock int             `json:"count_in_stock" validate:"gte=0"`
}

// UpdateBookRequest is the JSON body of PUT /api/books/{id}. Omitted fields
// keep their current values.
type UpdateBookRequest struct {
	Name         *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Author       *string          `json:"author" validate:"omitempty,max=255"`
	Image        *string          `json:"image" validate:"omitempty,max=1024"`
	Description  *string          `json:"description"`
	Category     *string          `json:"category" validate:"omitempty,max=100"`
	Price        *decimal.Decimal `json:"price"`
	CountInStock *int             `json:"count_in_stock" validate:"omitempty,gte=0"`
}

func (req UpdateBookRequest) patch() domain.BookPatch {
	return domain.BookPatch{
		Name:         req.Name,
		Author:       req.Author,
		Image:        req.Image,
		Description:  req.Description,
		Category:     req.Category,
		Price:        req.Price,
		CountInStock: req.CountInStock,
	}
}

// --- Handlers ---

// List handles GET /api/books?q=&page=
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.catalog.ListBooks(r.Context(), r.URL.Query().Get("q"), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.OK(w, page)
}

// ListByCategory handles GET /api/books/category/{name}?q=
func (h *BookHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(chi.URLParam(r, "name"))
	books, err := h.catalog.ListBooksByCategory(r.Context(), category, r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.OK(w, books)
}

// TopRated handles GET /api/books/top
func (h *BookHandler) TopRated(w http.ResponseWriter, r *http.Request) {
	books, err := h.catalog.TopRatedBooks(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.OK(w, books)
}

// BestSelling handles GET /api/books/best-sales
func (h *BookHandler) BestSelling(w http.ResponseWriter, r *http.Request) {
	books, err := h.catalog.BestSellingBooks(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.OK(w, books)
}

// Get handles GET /api/books/{id}
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "book id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	book, err := h.catalog.GetBook(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.OK(w, book)
}

// Create handles POST /api/books
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBookRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, r, err)
		return
	}

	book, err := h.catalog.CreateBook(r.Context(), service.CreateBookInput{
		Name:         req.Name,
		Author:       req.Author,
		Image:        req.Image,
		Description:  req.Description,
		Category:     req.Category,
		Price:        req.Price,
		CountInStock: req.CountInStock,
	})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.Created(w, book)
}

// Update handles PUT /api/books/{id}
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "book id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateBookRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, r, err)
		return
	}

	book, err := h.catalog.UpdateBook(r.Context(), id.String(), req.patch())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.OK(w, book)
}

// Delete handles DELETE /api/books/{id}
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "book id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.catalog.DeleteBook(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
