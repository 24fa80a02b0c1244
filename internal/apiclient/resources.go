package apiclient

import (
	"context"
	"fmt"

	"github.com/iotcafe/backoffice/internal/models"
)

// Collection paths
const (
	BooksPath   = "/books"
	CoffeesPath = "/coffees"
	OrdersPath  = "/orders"
)

// BookPath returns the resource path of a single book
func BookPath(id int) string { return fmt.Sprintf("%s/%d", BooksPath, id) }

// CoffeePath returns the resource path of a single coffee
func CoffeePath(id int) string { return fmt.Sprintf("%s/%d", CoffeesPath, id) }

// OrderPath returns the resource path of a single order
func OrderPath(id int) string { return fmt.Sprintf("%s/%d", OrdersPath, id) }

// VersionInfo is the API's version endpoint payload
type VersionInfo struct {
	Version string `json:"version" yaml:"version"`
}

// Version fetches the API version
func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	var v VersionInfo
	if err := c.Get(ctx, "/", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) ListBooks(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	if err := c.Get(ctx, BooksPath, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *Client) CreateBook(ctx context.Context, in models.BookCreate) (*models.Book, error) {
	var b models.Book
	if err := c.Post(ctx, BooksPath, in, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) UpdateBook(ctx context.Context, id int, in models.BookUpdate) (*models.Book, error) {
	var b models.Book
	if err := c.Patch(ctx, BookPath(id), in, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) DeleteBook(ctx context.Context, id int) error {
	return c.Delete(ctx, BookPath(id))
}

func (c *Client) ListCoffees(ctx context.Context) ([]models.Coffee, error) {
	var coffees []models.Coffee
	if err := c.Get(ctx, CoffeesPath, &coffees); err != nil {
		return nil, err
	}
	return coffees, nil
}

func (c *Client) CreateCoffee(ctx context.Context, in models.CoffeeInput) (*models.Coffee, error) {
	var cf models.Coffee
	if err := c.Post(ctx, CoffeesPath, in, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

func (c *Client) UpdateCoffee(ctx context.Context, id int, in models.CoffeeInput) (*models.Coffee, error) {
	var cf models.Coffee
	if err := c.Patch(ctx, CoffeePath(id), in, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

func (c *Client) DeleteCoffee(ctx context.Context, id int) error {
	return c.Delete(ctx, CoffeePath(id))
}

func (c *Client) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.Get(ctx, OrdersPath, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) CreateOrder(ctx context.Context, in models.OrderCreate) (*models.Order, error) {
	var o models.Order
	if err := c.Post(ctx, OrdersPath, in, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) UpdateOrder(ctx context.Context, id int, in models.OrderUpdate) (*models.Order, error) {
	var o models.Order
	if err := c.Patch(ctx, OrderPath(id), in, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) DeleteOrder(ctx context.Context, id int) error {
	return c.Delete(ctx, OrderPath(id))
}
