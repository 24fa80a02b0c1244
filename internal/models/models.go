package models

import "strings"

// Book represents a book record as served by the books endpoint
type Book struct {
	ID          int    `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Author      string `json:"author" yaml:"author"`
	Details     string `json:"details" yaml:"details"`
	Synopsis    string `json:"synopsis" yaml:"synopsis"`
	Category    string `json:"category" yaml:"category"` // comma-separated tags
	Year        int    `json:"year" yaml:"year"`
	IsPublished bool   `json:"is_published" yaml:"is_published"`
}

// Tags returns the book's category as a tag list
func (b Book) Tags() []string {
	return SplitCategory(b.Category)
}

// Coffee represents a menu item
type Coffee struct {
	ID          int     `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Price       float64 `json:"price" yaml:"price"`
	Description string  `json:"description" yaml:"description"`
}

// Order represents an order for a coffee. CoffeeName is filled in by the API.
type Order struct {
	ID         int    `json:"id" yaml:"id"`
	CoffeeID   int    `json:"coffee_id" yaml:"coffee_id"`
	Quantity   int    `json:"quantity" yaml:"quantity"`
	Status     string `json:"status" yaml:"status"`
	Notes      string `json:"notes" yaml:"notes"`
	CoffeeName string `json:"coffee_name" yaml:"coffee_name"`
}

// Conventional order statuses. The API stores status as free text.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// OrderStatuses lists the conventional statuses in display order
var OrderStatuses = []string{StatusPending, StatusCompleted, StatusCancelled}

// BookCreate is the payload for POST /books. The endpoint joins the tag list itself.
type BookCreate struct {
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Details     string   `json:"details"`
	Synopsis    string   `json:"synopsis"`
	Category    []string `json:"category"`
	Year        int      `json:"year"`
	IsPublished bool     `json:"is_published"`
}

// BookUpdate is the payload for PATCH /books/{id}
type BookUpdate struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Details     string `json:"details"`
	Synopsis    string `json:"synopsis"`
	Category    string `json:"category"`
	Year        int    `json:"year"`
	IsPublished bool   `json:"is_published"`
}

// CoffeeInput is the payload for both POST /coffees and PATCH /coffees/{id}
type CoffeeInput struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

// OrderCreate is the payload for POST /orders. New orders always start as pending.
type OrderCreate struct {
	CoffeeID int    `json:"coffee_id"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`
}

// OrderUpdate is the payload for PATCH /orders/{id}
type OrderUpdate struct {
	CoffeeID int    `json:"coffee_id"`
	Quantity int    `json:"quantity"`
	Status   string `json:"status"`
	Notes    string `json:"notes"`
}

// SplitCategory splits a stored category string into trimmed tags, keeping order
// and dropping empty entries.
func SplitCategory(category string) []string {
	if strings.TrimSpace(category) == "" {
		return []string{}
	}
	parts := strings.Split(category, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if tag := strings.TrimSpace(p); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// JoinCategory joins tags back into the stored form
func JoinCategory(tags []string) string {
	return strings.Join(tags, ", ")
}
