// Package httputil writes Bookify's JSON response envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/Mahmoudramadan21/Bookify/pkg/errors"
	"github.com/Mahmoudramadan21/Bookify/pkg/logger"
	"github.com/Mahmoudramadan21/Bookify/pkg/validator"
)

// Response is the envelope every endpoint answers with. Exactly one of Data
// and Error is set.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON encodes v with the given status. Encoding failures are dropped
// because the header has already been sent.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes data with 200.
func OK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Response{Data: data})
}

// Created writes data with 201.
func Created(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError translates err into an error envelope. Unclassified errors
// become a 500 with a generic message and are logged through the
// request-scoped logger.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.CorrelationIDFromContext(r.Context())

	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
			Code:      "VALIDATION_ERROR",
			Message:   "request validation failed",
			Fields:    ve.Fields(),
			RequestID: requestID,
		}})
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Status != http.StatusInternalServerError {
		WriteJSON(w, appErr.Status, Response{Error: &ErrorResponse{
			Code:      appErr.Code,
			Message:   appErr.Message,
			RequestID: requestID,
		}})
		return
	}

	status := apperrors.HTTPStatus(err)
	code, message := sentinelBody(status)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}
	WriteJSON(w, status, Response{Error: &ErrorResponse{Code: code, Message: message, RequestID: requestID}})
}

func sentinelBody(status int) (code, message string) {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND", "resource not found"
	case http.StatusConflict:
		return "CONFLICT", "resource conflict"
	case http.StatusBadRequest:
		return "INVALID_INPUT", "invalid input"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED", "authentication required"
	case http.StatusForbidden:
		return "FORBIDDEN", "access denied"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED", "too many requests"
	default:
		return "INTERNAL_ERROR", "an internal error occurred"
	}
}

// WriteBadRequest reports a body that failed to decode or validate.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		WriteError(w, r, err)
		return
	}
	WriteError(w, r, apperrors.InvalidInput(err.Error()))
}

// ParseUUID parses a path parameter. On failure it writes a 400 and
// returns false so the handler can return immediately.
func ParseUUID(w http.ResponseWriter, r *http.Request, name, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		WriteError(w, r, apperrors.InvalidInput("invalid "+name+": "+raw))
		return uuid.Nil, false
	}
	return id, true
}
