package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Mahmoudramadan21/Bookify/internal/service"
	"github.com/Mahmoudramadan21/Bookify/pkg/httputil"
	"github.com/Mahmoudramadan21/Bookify/pkg/validator"
)

type ReviewHandler struct {
	reviews *service.ReviewService
}

func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// CreateReviewRequest is the JSON body of POST /api/books/{id}/reviews.
type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=5000"`
}

// Create handles POST /api/books/{id}/reviews
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	bookID, ok := httputil.ParseUUID(w, r, "book id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req CreateReviewRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, r, err)
		return
	}

	res, err := h.reviews.AddReview(r.Context(), service.AddReviewInput{
		BookID:  bookID.String(),
		UserID:  caller.UserID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.Created(w, res)
}

// List handles GET /api/books/{id}/reviews
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	bookID, ok := httputil.ParseUUID(w, r, "book id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	reviews, err := h.reviews.ListReviews(r.Context(), bookID.String())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.OK(w, reviews)
}
