package store

import (
	"context"
	"errors"
	"time"

	"tokopos/backend/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrCodeConflict       = errors.New("document code conflict")
	ErrReturnExceedsOrder = errors.New("return exceeds ordered quantity")
	ErrValidation         = errors.New("validation failed")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("forbidden")
)

// Repository is the transactional store behind the service layer. The three
// document flows (PlaceOrder, RecordPurchase, ProcessReturn) each run as one
// all-or-nothing transaction: code allocation, header, lines and stock
// deltas commit together or not at all.
type Repository interface {
	// Products.
	ListProducts(ctx context.Context, search string, lastID int64, limit int) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	ListProductsByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	// Categories and suppliers.
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	ListSuppliers(ctx context.Context, search string, lastID int64, limit int) ([]domain.Supplier, error)
	GetSupplierByID(ctx context.Context, id int64) (*domain.Supplier, error)
	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	UpdateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	DeleteSupplier(ctx context.Context, id int64) error

	// Users.
	CreateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error)
	GetUserByID(ctx context.Context, id int64) (*domain.UserAccount, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error)
	DeleteUser(ctx context.Context, id int64) error

	// Carts.
	CreateCartItem(ctx context.Context, item domain.CartItem) (*domain.CartItem, error)
	UpdateCartItem(ctx context.Context, item domain.CartItem) (*domain.CartItem, error)
	DeleteCartItem(ctx context.Context, id int64, userID int64) error
	DeleteAllCartItems(ctx context.Context, userID int64) error
	ListCartItems(ctx context.Context, userID int64) ([]domain.CartItem, error)
	GetCartItemByProduct(ctx context.Context, productID int64, userID int64) (*domain.CartItem, error)

	// Document flows. The input carries no code; the store allocates one
	// from the prefix counter inside the transaction.
	PlaceOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	RecordPurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error)
	ProcessReturn(ctx context.Context, ret domain.OrderReturn) (*domain.OrderReturn, error)

	// Document reads.
	GetOrderByID(ctx context.Context, id int64) (*domain.Order, error)
	ListOrders(ctx context.Context, search string, lastID int64, limit int) ([]domain.DocumentSummary, error)
	ListOrdersBetween(ctx context.Context, from, to time.Time) ([]domain.Order, error)
	GetPurchaseByID(ctx context.Context, id int64) (*domain.Purchase, error)
	ListPurchases(ctx context.Context, search string, lastID int64, limit int) ([]domain.DocumentSummary, error)
	ListPurchasesBetween(ctx context.Context, from, to time.Time) ([]domain.Purchase, error)
	GetOrderReturnByID(ctx context.Context, id int64) (*domain.OrderReturn, error)
	ListOrderReturns(ctx context.Context, search string, lastID int64, limit int) ([]domain.DocumentSummary, error)

	// Dashboard summaries.
	OrderYearlySummary(ctx context.Context, year int) (domain.YearlySummary, error)
	PurchaseYearlySummary(ctx context.Context, year int) (domain.YearlySummary, error)
}
