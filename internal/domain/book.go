// Package domain holds Bookify's core entities and the rules that belong to
// them independent of storage and transport.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Ranking list sizes for the top-rated and best-selling endpoints.
const RankingSize = 8

// Book is a catalog item. Rating, NumOfReviews and NumOfSales are derived
// counters maintained by the review and fulfillment flows; clients never
// write them directly.
type Book struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Author       string          `json:"author"`
	Image        string          `json:"image"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Price        decimal.Decimal `json:"price"`
	CountInStock int             `json:"count_in_stock"`
	Rating       *float64        `json:"rating"`
	NumOfReviews int             `json:"num_of_reviews"`
	NumOfSales   int             `json:"num_of_sales"`
	CreatedAt    time.Time       `json:"created_at"`
}

// BookPatch is a partial update. Nil fields keep their current value.
type BookPatch struct {
	Name         *string
	Author       *string
	Image        *string
	Description  *string
	Category     *string
	Price        *decimal.Decimal
	CountInStock *int
}

// Empty reports whether the patch changes nothing.
func (p BookPatch) Empty() bool {
	return p.Name == nil && p.Author == nil && p.Image == nil && p.Description == nil &&
		p.Category == nil && p.Price == nil && p.CountInStock == nil
}

// Normalized trims the text fields that are matched and displayed and
// rounds the price to cents.
func (p BookPatch) Normalized() BookPatch {
	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		return &t
	}
	p.Name = trim(p.Name)
	p.Author = trim(p.Author)
	p.Category = trim(p.Category)
	if p.Price != nil {
		rounded := p.Price.Round(2)
		p.Price = &rounded
	}
	return p
}

// BookPage is one page of the catalog listing.
type BookPage struct {
	Books []Book `json:"books"`
	Page  int    `json:"page"`
	Pages int    `json:"pages"`
}
