package domain

import "time"

// Product is the inventory row. Qty is mutated only through the store's
// stock ledger; all other fields follow ordinary CRUD.
type Product struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	Barcode    string    `json:"barcode,omitempty"`
	Name       string    `json:"name"`
	CategoryID int64     `json:"category_id"`
	SupplierID int64     `json:"supplier_id"`
	Qty        int       `json:"qty"`
	PriceCents int64     `json:"price_cents"`
	ImageURL   string    `json:"image_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ProductCreateRequest struct {
	Barcode    string `json:"barcode,omitempty"`
	Name       string `json:"name"`
	CategoryID int64  `json:"category_id"`
	SupplierID int64  `json:"supplier_id"`
	Qty        int    `json:"qty"`
	PriceCents int64  `json:"price_cents"`
	ImageURL   string `json:"image_url,omitempty"`
}

type ProductUpdateRequest struct {
	Barcode    *string `json:"barcode,omitempty"`
	Name       *string `json:"name,omitempty"`
	CategoryID *int64  `json:"category_id,omitempty"`
	SupplierID *int64  `json:"supplier_id,omitempty"`
	PriceCents *int64  `json:"price_cents,omitempty"`
	ImageURL   *string `json:"image_url,omitempty"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Supplier struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

type SupplierCreateRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email,omitempty"`
	Address   string `json:"address"`
}

// UserAccount is the persistence model for login credentials. PasswordHash
// is a bcrypt hash and never serialized.
type UserAccount struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type UserCreateRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UserUpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *string `json:"role,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User         UserAccount `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    string      `json:"expires_at"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Actor is the authenticated caller identity carried in the request context.
type Actor struct {
	UserID   int64
	Username string
	Role     string
}

// CartItem is a pending line a cashier has staged for a user. PlaceOrder
// consumes and clears them inside its transaction.
type CartItem struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	PriceCents  int64     `json:"price_cents"`
	Qty         int       `json:"qty"`
	TotalCents  int64     `json:"total_cents"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type CartUpsertRequest struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	PriceCents  int64  `json:"price_cents"`
	Qty         int    `json:"qty"`
	Note        string `json:"note,omitempty"`
}

// Order is a committed sale. Line snapshots are denormalized at transaction
// time so the document stays stable against later product edits.
type Order struct {
	ID              int64       `json:"id"`
	Code            string      `json:"code"`
	Date            time.Time   `json:"date"`
	SubtotalCents   int64       `json:"subtotal_cents"`
	TaxCents        int64       `json:"tax_cents"`
	GrandTotalCents int64       `json:"grand_total_cents"`
	UserID          int64       `json:"user_id"`
	CreatedAt       time.Time   `json:"created_at"`
	Lines           []OrderLine `json:"lines"`
}

type OrderLine struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"order_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	PriceCents  int64  `json:"price_cents"`
	Qty         int    `json:"qty"`
	TotalCents  int64  `json:"total_cents"`
	Note        string `json:"note,omitempty"`
}

type Purchase struct {
	ID              int64          `json:"id"`
	Code            string         `json:"code"`
	Date            time.Time      `json:"date"`
	Note            string         `json:"note,omitempty"`
	SubtotalCents   int64          `json:"subtotal_cents"`
	TaxCents        int64          `json:"tax_cents"`
	GrandTotalCents int64          `json:"grand_total_cents"`
	UserID          int64          `json:"user_id"`
	CreatedAt       time.Time      `json:"created_at"`
	Lines           []PurchaseLine `json:"lines"`
}

type PurchaseLine struct {
	ID          int64  `json:"id"`
	PurchaseID  int64  `json:"purchase_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	PriceCents  int64  `json:"price_cents"`
	Qty         int    `json:"qty"`
	TotalCents  int64  `json:"total_cents"`
}

// OrderReturn references the sale it reverses. The store optionally
// validates returned quantities against the original order's lines.
type OrderReturn struct {
	ID        int64        `json:"id"`
	Code      string       `json:"code"`
	OrderID   int64        `json:"order_id"`
	Date      time.Time    `json:"date"`
	Note      string       `json:"note,omitempty"`
	UserID    int64        `json:"user_id"`
	CreatedAt time.Time    `json:"created_at"`
	Lines     []ReturnLine `json:"lines"`
}

type ReturnLine struct {
	ID          int64  `json:"id"`
	ReturnID    int64  `json:"return_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	PriceCents  int64  `json:"price_cents"`
	Qty         int    `json:"qty"`
	TotalCents  int64  `json:"total_cents"`
}

// Flow commands. These are the typed replacements for the free-form request
// bodies the HTTP boundary accepts; the service validates them before any
// transaction starts.

type PlaceOrderLineRequest struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	PriceCents  int64  `json:"price_cents"`
	Qty         int    `json:"qty"`
	Note        string `json:"note,omitempty"`
}

type PlaceOrderRequest struct {
	UserID          int64                   `json:"user_id"`
	Date            time.Time               `json:"date"`
	SubtotalCents   int64                   `json:"subtotal_cents"`
	TaxCents        int64                   `json:"tax_cents"`
	GrandTotalCents int64                   `json:"grand_total_cents"`
	Lines           []PlaceOrderLineRequest `json:"lines"`
}

type PurchaseLineRequest struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	PriceCents  int64  `json:"price_cents"`
	Qty         int    `json:"qty"`
}

type RecordPurchaseRequest struct {
	UserID          int64                 `json:"user_id"`
	Date            time.Time             `json:"date"`
	Note            string                `json:"note,omitempty"`
	SubtotalCents   int64                 `json:"subtotal_cents"`
	TaxCents        int64                 `json:"tax_cents"`
	GrandTotalCents int64                 `json:"grand_total_cents"`
	Lines           []PurchaseLineRequest `json:"lines"`
}

type ReturnLineRequest struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	PriceCents  int64  `json:"price_cents"`
	Qty         int    `json:"qty"`
}

type ProcessReturnRequest struct {
	UserID  int64               `json:"user_id"`
	OrderID int64               `json:"order_id"`
	Date    time.Time           `json:"date"`
	Note    string              `json:"note,omitempty"`
	Lines   []ReturnLineRequest `json:"lines"`
}

// DocumentSummary is the flattened shape list endpoints return; lines are
// fetched separately by id.
type DocumentSummary struct {
	ID              int64     `json:"id"`
	Code            string    `json:"code"`
	Date            time.Time `json:"date"`
	Note            string    `json:"note,omitempty"`
	SubtotalCents   int64     `json:"subtotal_cents"`
	TaxCents        int64     `json:"tax_cents"`
	GrandTotalCents int64     `json:"grand_total_cents"`
	UserID          int64     `json:"user_id"`
	UserName        string    `json:"user_name,omitempty"`
}

// YearlySummary holds one grand-total per calendar month, January first.
type YearlySummary struct {
	Year          int     `json:"year"`
	MonthlyTotals []int64 `json:"monthly_totals"`
}

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)
