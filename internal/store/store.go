package store

import (
	"context"
	"errors"
	"time"

	"medipos/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
)

// Repository is the system of record. CreateSale owns the stock decrement and
// the customer total-spent update; everything above it only performs
// admission checks against last-known quantities.
type Repository interface {
	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	DeleteUser(ctx context.Context, id string) error

	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	ListLowStockProducts(ctx context.Context) ([]domain.Product, error)

	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	ListSales(ctx context.Context, from, to *time.Time) ([]domain.Sale, error)
	ListSalesByCustomer(ctx context.Context, customerID string) ([]domain.Sale, error)

	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	SoftDeleteCustomer(ctx context.Context, id string) error

	CreateCalendarEvent(ctx context.Context, event domain.CalendarEvent) (*domain.CalendarEvent, error)
	ListCalendarEvents(ctx context.Context, userID string, from, to *time.Time) ([]domain.CalendarEvent, error)
	DeleteCalendarEvent(ctx context.Context, id, userID string) error

	TopSellingProducts(ctx context.Context, from, to time.Time, limit int) ([]domain.TopSellingEntry, error)
	TopProfitProducts(ctx context.Context, from, to time.Time, limit int) ([]domain.TopProfitEntry, error)
	DashboardStats(ctx context.Context, now time.Time) (domain.DashboardStats, error)
}
