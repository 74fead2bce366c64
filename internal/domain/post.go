package domain

import "time"

const DefaultPostCategory = "General"

// Post is a product or blog listing shown on the public page.
type Post struct {
	ID          int64
	Title       string
	Description string
	Price       string
	Image       string
	Contact     string
	Category    string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
