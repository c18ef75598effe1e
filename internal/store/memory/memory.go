// Package memory holds the in-process Repository used for tests and for
// running the backend without a database. A single mutex serializes every
// operation, which makes each flow trivially atomic: all validation happens
// before the first mutation, so a failed flow leaves no partial state.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tokopos/backend/internal/docnum"
	"tokopos/backend/internal/domain"
	"tokopos/backend/internal/store"
)

type Options struct {
	EnforceStockFloor bool
	ValidateReturnQty bool
}

type Store struct {
	mu   sync.Mutex
	opts Options

	nextID   map[string]int64
	counters map[string]int64

	products   map[int64]domain.Product
	categories map[int64]domain.Category
	suppliers  map[int64]domain.Supplier
	users      map[int64]domain.UserAccount
	carts      map[int64]domain.CartItem
	orders     map[int64]domain.Order
	purchases  map[int64]domain.Purchase
	returns    map[int64]domain.OrderReturn
}

func New(opts Options) *Store {
	return &Store{
		opts:       opts,
		nextID:     make(map[string]int64),
		counters:   make(map[string]int64),
		products:   make(map[int64]domain.Product),
		categories: make(map[int64]domain.Category),
		suppliers:  make(map[int64]domain.Supplier),
		users:      make(map[int64]domain.UserAccount),
		carts:      make(map[int64]domain.CartItem),
		orders:     make(map[int64]domain.Order),
		purchases:  make(map[int64]domain.Purchase),
		returns:    make(map[int64]domain.OrderReturn),
	}
}

// NewSeeded returns a store with demo catalog data and an admin/cashier
// account pair, mirroring what a fresh deployment gets.
func NewSeeded() *Store {
	s := New(Options{EnforceStockFloor: true, ValidateReturnQty: true})
	ctx := context.Background()

	grocery, _ := s.CreateCategory(ctx, domain.Category{Name: "grocery"})
	beverage, _ := s.CreateCategory(ctx, domain.Category{Name: "beverage"})
	household, _ := s.CreateCategory(ctx, domain.Category{Name: "household"})

	supplier, _ := s.CreateSupplier(ctx, domain.Supplier{
		FirstName: "Budi", LastName: "Santoso", Phone: "08123456789", Address: "Jl. Pasar Baru 12",
	})

	seedProducts := []domain.Product{
		{Name: "Mie Goreng Instan", Barcode: "8991002101", CategoryID: grocery.ID, SupplierID: supplier.ID, Qty: 120, PriceCents: 3500},
		{Name: "Telur 10 Butir", Barcode: "8991002102", CategoryID: grocery.ID, SupplierID: supplier.ID, Qty: 60, PriceCents: 26500},
		{Name: "Kopi Sachet", Barcode: "8991002103", CategoryID: beverage.ID, SupplierID: supplier.ID, Qty: 200, PriceCents: 2600},
		{Name: "Air Mineral 600ml", Barcode: "8991002104", CategoryID: beverage.ID, SupplierID: supplier.ID, Qty: 150, PriceCents: 3900},
		{Name: "Sabun Mandi", Barcode: "8991002105", CategoryID: household.ID, SupplierID: supplier.ID, Qty: 80, PriceCents: 7400},
	}
	for _, p := range seedProducts {
		_, _ = s.CreateProduct(ctx, p)
	}

	for _, u := range []struct {
		name, username, password, role string
	}{
		{"Administrator", "admin", "admin123", domain.RoleAdmin},
		{"Kasir Satu", "cashier", "cashier123", domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			continue
		}
		_, _ = s.CreateUser(ctx, domain.UserAccount{
			Name: u.name, Username: u.username, PasswordHash: string(hash), Role: u.role,
		})
	}

	return s
}

func (s *Store) allocID(kind string) int64 {
	s.nextID[kind]++
	return s.nextID[kind]
}

// nextCode advances the per-prefix counter. Callers hold s.mu, so two
// concurrent flows can never observe the same sequence value.
func (s *Store) nextCode(prefix string) string {
	s.counters[prefix]++
	return docnum.Format(prefix, s.counters[prefix])
}

// checkDeltas validates the stock ledger floor against the summed delta per
// product, without mutating. Summing matters: two lines for the same product
// must be judged against the combined decrement, not each against the
// current quantity. Flows pre-check every line before committing any change.
func (s *Store) checkDeltas(deltas map[int64]int) error {
	for productID, delta := range deltas {
		product, ok := s.products[productID]
		if !ok {
			return store.ErrProductNotFound
		}
		if s.opts.EnforceStockFloor && product.Qty+delta < 0 {
			return store.ErrInsufficientStock
		}
	}
	return nil
}

func (s *Store) applyDelta(productID int64, delta int) {
	product := s.products[productID]
	product.Qty += delta
	product.UpdatedAt = time.Now().UTC()
	s.products[productID] = product
}

// Products.

func (s *Store) ListProducts(_ context.Context, search string, lastID int64, limit int) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit < 1 {
		limit = 10
	}
	search = strings.ToLower(strings.TrimSpace(search))

	ids := make([]int64, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	out := make([]domain.Product, 0, limit)
	for _, id := range ids {
		if lastID > 0 && id >= lastID {
			continue
		}
		p := s.products[id]
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Code), search) &&
			!strings.Contains(strings.ToLower(p.Barcode), search) {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) GetProductByID(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := product
	return &copied, nil
}

func (s *Store) GetProductByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, product := range s.products {
		if product.Barcode != "" && product.Barcode == barcode {
			copied := product
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListProductsByCategory(_ context.Context, categoryID int64) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Product, 0, 16)
	for _, product := range s.products {
		if product.CategoryID == categoryID {
			out = append(out, product)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.PriceCents < 1 || product.Qty < 0 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product.ID = s.allocID("product")
	product.Code = s.nextCode(docnum.ProductPrefix)
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ID] = product

	copied := product
	return &copied, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	// Code and quantity are not updatable here; quantity belongs to the ledger.
	product.Code = existing.Code
	product.Qty = existing.Qty
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	s.products[product.ID] = product

	copied := product
	return &copied, nil
}

func (s *Store) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

// Categories.

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	if strings.TrimSpace(category.Name) == "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	category.ID = s.allocID("category")
	s.categories[category.ID] = category
	copied := category
	return &copied, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.categories, id)
	return nil
}

// Suppliers.

func (s *Store) ListSuppliers(_ context.Context, search string, lastID int64, limit int) ([]domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit < 1 {
		limit = 10
	}
	search = strings.ToLower(strings.TrimSpace(search))

	ids := make([]int64, 0, len(s.suppliers))
	for id := range s.suppliers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	out := make([]domain.Supplier, 0, limit)
	for _, id := range ids {
		if lastID > 0 && id >= lastID {
			continue
		}
		sup := s.suppliers[id]
		if search != "" {
			haystack := strings.ToLower(sup.FirstName + " " + sup.LastName + " " + sup.Phone + " " + sup.Email + " " + sup.Address)
			if !strings.Contains(haystack, search) {
				continue
			}
		}
		out = append(out, sup)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) GetSupplierByID(_ context.Context, id int64) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sup, ok := s.suppliers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := sup
	return &copied, nil
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if strings.TrimSpace(supplier.FirstName) == "" || strings.TrimSpace(supplier.Phone) == "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	supplier.ID = s.allocID("supplier")
	supplier.CreatedAt = time.Now().UTC()
	s.suppliers[supplier.ID] = supplier
	copied := supplier
	return &copied, nil
}

func (s *Store) UpdateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.suppliers[supplier.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	supplier.CreatedAt = existing.CreatedAt
	s.suppliers[supplier.ID] = supplier
	copied := supplier
	return &copied, nil
}

func (s *Store) DeleteSupplier(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.suppliers[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.suppliers, id)
	return nil
}

// Users.

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	if strings.TrimSpace(user.Username) == "" || user.PasswordHash == "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username {
			return nil, store.ErrValidation
		}
	}

	user.ID = s.allocID("user")
	user.CreatedAt = time.Now().UTC()
	s.users[user.ID] = user
	copied := user
	return &copied, nil
}

func (s *Store) GetUserByID(_ context.Context, id int64) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := user
	return &copied, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Username == username {
			copied := user
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateUser(_ context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	user.CreatedAt = existing.CreatedAt
	s.users[user.ID] = user
	copied := user
	return &copied, nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

// Carts.

func (s *Store) CreateCartItem(_ context.Context, item domain.CartItem) (*domain.CartItem, error) {
	if item.UserID < 1 || item.ProductID < 1 || item.Qty < 1 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[item.ProductID]; !ok {
		return nil, store.ErrProductNotFound
	}

	item.ID = s.allocID("cart")
	item.TotalCents = item.PriceCents * int64(item.Qty)
	item.CreatedAt = time.Now().UTC()
	s.carts[item.ID] = item
	copied := item
	return &copied, nil
}

func (s *Store) UpdateCartItem(_ context.Context, item domain.CartItem) (*domain.CartItem, error) {
	if item.Qty < 1 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.carts[item.ID]
	if !ok || existing.UserID != item.UserID {
		return nil, store.ErrNotFound
	}
	existing.Qty = item.Qty
	existing.Note = item.Note
	existing.TotalCents = existing.PriceCents * int64(item.Qty)
	s.carts[item.ID] = existing
	copied := existing
	return &copied, nil
}

func (s *Store) DeleteCartItem(_ context.Context, id int64, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.carts[id]
	if !ok || existing.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.carts, id)
	return nil
}

func (s *Store) DeleteAllCartItems(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteCartsLocked(userID)
	return nil
}

func (s *Store) deleteCartsLocked(userID int64) {
	for id, item := range s.carts {
		if item.UserID == userID {
			delete(s.carts, id)
		}
	}
}

func (s *Store) ListCartItems(_ context.Context, userID int64) ([]domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.CartItem, 0, 8)
	for _, item := range s.carts {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetCartItemByProduct(_ context.Context, productID int64, userID int64) (*domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.carts {
		if item.ProductID == productID && item.UserID == userID {
			copied := item
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

// Document flows.

func (s *Store) PlaceOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate every line before touching anything.
	deltas := make(map[int64]int)
	for _, line := range order.Lines {
		if line.ProductID < 1 || line.Qty < 1 {
			return nil, store.ErrValidation
		}
		deltas[line.ProductID] -= line.Qty
	}
	if err := s.checkDeltas(deltas); err != nil {
		return nil, err
	}

	order.ID = s.allocID("order")
	order.Code = s.nextCode(docnum.OrderPrefix)
	order.CreatedAt = time.Now().UTC()
	for i := range order.Lines {
		order.Lines[i].ID = s.allocID("orderline")
		order.Lines[i].OrderID = order.ID
		order.Lines[i].TotalCents = order.Lines[i].PriceCents * int64(order.Lines[i].Qty)
		s.applyDelta(order.Lines[i].ProductID, -order.Lines[i].Qty)
	}
	s.deleteCartsLocked(order.UserID)
	s.orders[order.ID] = order

	copied := order
	copied.Lines = append([]domain.OrderLine(nil), order.Lines...)
	return &copied, nil
}

func (s *Store) RecordPurchase(_ context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deltas := make(map[int64]int)
	for _, line := range purchase.Lines {
		if line.ProductID < 1 || line.Qty < 1 {
			return nil, store.ErrValidation
		}
		deltas[line.ProductID] += line.Qty
	}
	if err := s.checkDeltas(deltas); err != nil {
		return nil, err
	}

	purchase.ID = s.allocID("purchase")
	purchase.Code = s.nextCode(docnum.PurchasePrefix)
	purchase.CreatedAt = time.Now().UTC()
	for i := range purchase.Lines {
		purchase.Lines[i].ID = s.allocID("purchaseline")
		purchase.Lines[i].PurchaseID = purchase.ID
		purchase.Lines[i].TotalCents = purchase.Lines[i].PriceCents * int64(purchase.Lines[i].Qty)
		s.applyDelta(purchase.Lines[i].ProductID, purchase.Lines[i].Qty)
	}
	s.purchases[purchase.ID] = purchase

	copied := purchase
	copied.Lines = append([]domain.PurchaseLine(nil), purchase.Lines...)
	return &copied, nil
}

func (s *Store) ProcessReturn(_ context.Context, ret domain.OrderReturn) (*domain.OrderReturn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deltas := make(map[int64]int)
	for _, line := range ret.Lines {
		if line.ProductID < 1 || line.Qty < 1 {
			return nil, store.ErrValidation
		}
		deltas[line.ProductID] += line.Qty
	}
	if err := s.checkDeltas(deltas); err != nil {
		return nil, err
	}

	if s.opts.ValidateReturnQty {
		original, ok := s.orders[ret.OrderID]
		if !ok {
			return nil, store.ErrNotFound
		}
		remaining := make(map[int64]int)
		for _, line := range original.Lines {
			remaining[line.ProductID] += line.Qty
		}
		for _, prior := range s.returns {
			if prior.OrderID != ret.OrderID {
				continue
			}
			for _, line := range prior.Lines {
				remaining[line.ProductID] -= line.Qty
			}
		}
		for _, line := range ret.Lines {
			remaining[line.ProductID] -= line.Qty
			if remaining[line.ProductID] < 0 {
				return nil, store.ErrReturnExceedsOrder
			}
		}
	}

	ret.ID = s.allocID("return")
	ret.Code = s.nextCode(docnum.ReturnPrefix)
	ret.CreatedAt = time.Now().UTC()
	for i := range ret.Lines {
		ret.Lines[i].ID = s.allocID("returnline")
		ret.Lines[i].ReturnID = ret.ID
		ret.Lines[i].TotalCents = ret.Lines[i].PriceCents * int64(ret.Lines[i].Qty)
		s.applyDelta(ret.Lines[i].ProductID, ret.Lines[i].Qty)
	}
	s.returns[ret.ID] = ret

	copied := ret
	copied.Lines = append([]domain.ReturnLine(nil), ret.Lines...)
	return &copied, nil
}

// Document reads.

func (s *Store) GetOrderByID(_ context.Context, id int64) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := order
	copied.Lines = append([]domain.OrderLine(nil), order.Lines...)
	return &copied, nil
}

func (s *Store) ListOrders(_ context.Context, search string, lastID int64, limit int) ([]domain.DocumentSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries := make([]domain.DocumentSummary, 0, len(s.orders))
	for _, order := range s.orders {
		summaries = append(summaries, domain.DocumentSummary{
			ID: order.ID, Code: order.Code, Date: order.Date,
			SubtotalCents: order.SubtotalCents, TaxCents: order.TaxCents,
			GrandTotalCents: order.GrandTotalCents, UserID: order.UserID,
			UserName: s.userNameLocked(order.UserID),
		})
	}
	return filterSummaries(summaries, search, lastID, limit), nil
}

func (s *Store) ListOrdersBetween(_ context.Context, from, to time.Time) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Order, 0, 16)
	for _, order := range s.orders {
		if order.Date.Before(from) || order.Date.After(to) {
			continue
		}
		copied := order
		copied.Lines = append([]domain.OrderLine(nil), order.Lines...)
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetPurchaseByID(_ context.Context, id int64) (*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purchase, ok := s.purchases[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := purchase
	copied.Lines = append([]domain.PurchaseLine(nil), purchase.Lines...)
	return &copied, nil
}

func (s *Store) ListPurchases(_ context.Context, search string, lastID int64, limit int) ([]domain.DocumentSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries := make([]domain.DocumentSummary, 0, len(s.purchases))
	for _, purchase := range s.purchases {
		summaries = append(summaries, domain.DocumentSummary{
			ID: purchase.ID, Code: purchase.Code, Date: purchase.Date, Note: purchase.Note,
			SubtotalCents: purchase.SubtotalCents, TaxCents: purchase.TaxCents,
			GrandTotalCents: purchase.GrandTotalCents, UserID: purchase.UserID,
			UserName: s.userNameLocked(purchase.UserID),
		})
	}
	return filterSummaries(summaries, search, lastID, limit), nil
}

func (s *Store) ListPurchasesBetween(_ context.Context, from, to time.Time) ([]domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Purchase, 0, 16)
	for _, purchase := range s.purchases {
		if purchase.Date.Before(from) || purchase.Date.After(to) {
			continue
		}
		copied := purchase
		copied.Lines = append([]domain.PurchaseLine(nil), purchase.Lines...)
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetOrderReturnByID(_ context.Context, id int64) (*domain.OrderReturn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ret, ok := s.returns[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := ret
	copied.Lines = append([]domain.ReturnLine(nil), ret.Lines...)
	return &copied, nil
}

func (s *Store) ListOrderReturns(_ context.Context, search string, lastID int64, limit int) ([]domain.DocumentSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries := make([]domain.DocumentSummary, 0, len(s.returns))
	for _, ret := range s.returns {
		summaries = append(summaries, domain.DocumentSummary{
			ID: ret.ID, Code: ret.Code, Date: ret.Date, Note: ret.Note,
			UserID: ret.UserID, UserName: s.userNameLocked(ret.UserID),
		})
	}
	return filterSummaries(summaries, search, lastID, limit), nil
}

// Dashboard summaries.

func (s *Store) OrderYearlySummary(_ context.Context, year int) (domain.YearlySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := make([]int64, 12)
	for _, order := range s.orders {
		if order.Date.Year() == year {
			totals[int(order.Date.Month())-1] += order.GrandTotalCents
		}
	}
	return domain.YearlySummary{Year: year, MonthlyTotals: totals}, nil
}

func (s *Store) PurchaseYearlySummary(_ context.Context, year int) (domain.YearlySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := make([]int64, 12)
	for _, purchase := range s.purchases {
		if purchase.Date.Year() == year {
			totals[int(purchase.Date.Month())-1] += purchase.GrandTotalCents
		}
	}
	return domain.YearlySummary{Year: year, MonthlyTotals: totals}, nil
}

func (s *Store) userNameLocked(userID int64) string {
	if user, ok := s.users[userID]; ok {
		return user.Name
	}
	return ""
}

func filterSummaries(summaries []domain.DocumentSummary, search string, lastID int64, limit int) []domain.DocumentSummary {
	if limit < 1 {
		limit = 10
	}
	search = strings.ToLower(strings.TrimSpace(search))

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID > summaries[j].ID })

	out := make([]domain.DocumentSummary, 0, limit)
	for _, summary := range summaries {
		if lastID > 0 && summary.ID >= lastID {
			continue
		}
		if search != "" {
			haystack := strings.ToLower(summary.Code + " " + summary.Note + " " + summary.UserName + " " + summary.Date.Format("2006-01-02"))
			if !strings.Contains(haystack, search) {
				continue
			}
		}
		out = append(out, summary)
		if len(out) == limit {
			break
		}
	}
	return out
}
