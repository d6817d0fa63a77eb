package validator

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reviewInput struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=10"`
}

type orderInput struct {
	Items []string `json:"order_items" validate:"min=1"`
	Email string   `json:"email" validate:"required,email"`
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, Validate(reviewInput{Rating: 5, Comment: "great"}))
}

func TestValidate_UsesJSONNames(t *testing.T) {
	err := Validate(reviewInput{Rating: 9, Comment: strings.Repeat("x", 11)})

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	fields := ve.Fields()
	assert.Equal(t, "must be less than or equal to 5", fields["rating"])
	assert.Equal(t, "must be at most 10 characters", fields["comment"])
}

func TestValidate_SliceMin(t *testing.T) {
	err := Validate(orderInput{Email: "bad"})

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "must contain at least 1 item(s)", ve.Fields()["order_items"])
	assert.Equal(t, "must be a valid email address", ve.Fields()["email"])
	assert.Contains(t, ve.Error(), "order_items")
}

func TestDecodeAndValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"rating":4,"comment":"ok"}`))
		var in reviewInput
		require.NoError(t, DecodeAndValidate(httptest.NewRecorder(), r, &in))
		assert.Equal(t, 4, in.Rating)
	})

	t.Run("empty body", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", strings.NewReader(""))
		var in reviewInput
		err := DecodeAndValidate(httptest.NewRecorder(), r, &in)
		assert.EqualError(t, err, "request body is empty")
	})

	t.Run("unknown field", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"rating":4,"stars":4}`))
		var in reviewInput
		assert.Error(t, DecodeAndValidate(httptest.NewRecorder(), r, &in))
	})

	t.Run("invalid value", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"rating":0}`))
		var in reviewInput
		var ve *ValidationError
		assert.ErrorAs(t, DecodeAndValidate(httptest.NewRecorder(), r, &in), &ve)
	})
}
