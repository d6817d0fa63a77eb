package domain

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// Review is one user's rating of one book. A user reviews a book at most once.
type Review struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// RatingSummary is the aggregate a book carries after its reviews change.
type RatingSummary struct {
	Rating       *float64 `json:"rating"`
	NumOfReviews int      `json:"num_of_reviews"`
}
