package domain

import (
	"math"
	"time"
)

// Star bounds for a rating.
const (
	MinStar = 1
	MaxStar = 5
)

// Product is a catalog entry. Ratings are kept in first-submission order.
type Product struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	Description     string    `json:"description"`
	Price           int64     `json:"price"`
	Stock           int       `json:"stock"`
	Sold            int       `json:"sold"`
	CategoryID      string    `json:"category_id,omitempty"`
	BrandID         string    `json:"brand_id,omitempty"`
	Colors          []string  `json:"colors"`
	ColorDetails    []Color   `json:"color_details,omitempty"`
	Tags            []string  `json:"tags"`
	Images          []string  `json:"images"`
	Ratings         []Rating  `json:"ratings"`
	AggregateRating int       `json:"aggregate_rating"`
	Version         int       `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Rating is one user's score for a product. There is at most one per user.
type Rating struct {
	UserID    string    `json:"user_id"`
	Star      int       `json:"star"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Color is a selectable product color.
type Color struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidStar reports whether star is within [MinStar, MaxStar].
func ValidStar(star int) bool {
	return star >= MinStar && star <= MaxStar
}

// UpsertRating replaces the caller's existing rating in place, keeping its
// position and CreatedAt, or appends a new one. It reports whether a rating
// was appended.
func (p *Product) UpsertRating(userID string, star int, comment string, now time.Time) bool {
	for i := range p.Ratings {
		if p.Ratings[i].UserID == userID {
			p.Ratings[i].Star = star
			p.Ratings[i].Comment = comment
			p.Ratings[i].UpdatedAt = now
			return false
		}
	}
	p.Ratings = append(p.Ratings, Rating{
		UserID:    userID,
		Star:      star,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return true
}

// RecomputeRating sets AggregateRating from the current ratings. With no
// ratings the aggregate is left untouched.
func (p *Product) RecomputeRating() {
	if len(p.Ratings) == 0 {
		return
	}
	p.AggregateRating = AggregateRating(p.Ratings)
}

// AggregateRating is the mean star value rounded half up. It returns 0 for
// an empty slice.
func AggregateRating(ratings []Rating) int {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Star
	}
	return int(math.Round(float64(sum) / float64(len(ratings))))
}

// RatingFor returns the rating userID left on p, if any.
func (p *Product) RatingFor(userID string) (Rating, bool) {
	for _, r := range p.Ratings {
		if r.UserID == userID {
			return r, true
		}
	}
	return Rating{}, false
}

// InStock reports whether qty units can be taken from current stock.
func (p *Product) InStock(qty int) bool {
	return qty <= p.Stock
}
