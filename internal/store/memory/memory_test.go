package memory

import (
	"context"
	"errors"
	"testing"

	"tokopos/backend/internal/domain"
	"tokopos/backend/internal/store"
)

func seedProduct(t *testing.T, s *Store, qty int) domain.Product {
	t.Helper()
	product, err := s.CreateProduct(context.Background(), domain.Product{
		Name:       "Test Product",
		Qty:        qty,
		PriceCents: 5000,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return *product
}

func seedUser(t *testing.T, s *Store) domain.UserAccount {
	t.Helper()
	user, err := s.CreateUser(context.Background(), domain.UserAccount{
		Name: "Kasir", Username: "kasir", PasswordHash: "x", Role: domain.RoleCashier,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return *user
}

func placeOrder(t *testing.T, s *Store, user domain.UserAccount, product domain.Product, qty int) domain.Order {
	t.Helper()
	order, err := s.PlaceOrder(context.Background(), domain.Order{
		UserID:          user.ID,
		GrandTotalCents: int64(qty) * product.PriceCents,
		Lines: []domain.OrderLine{
			{ProductID: product.ID, ProductName: product.Name, PriceCents: product.PriceCents, Qty: qty},
		},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	return *order
}

func TestStockFloorDisabledAllowsNegativeQty(t *testing.T) {
	s := New(Options{EnforceStockFloor: false, ValidateReturnQty: true})
	user := seedUser(t, s)
	product := seedProduct(t, s, 2)

	placeOrder(t, s, user, product, 5)

	after, err := s.GetProductByID(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Qty != -3 {
		t.Fatalf("expected qty -3 with floor off, got %d", after.Qty)
	}
}

func TestStockFloorEnabledRejectsOversell(t *testing.T) {
	s := New(Options{EnforceStockFloor: true, ValidateReturnQty: true})
	user := seedUser(t, s)
	product := seedProduct(t, s, 2)

	_, err := s.PlaceOrder(context.Background(), domain.Order{
		UserID: user.ID,
		Lines: []domain.OrderLine{
			{ProductID: product.ID, ProductName: product.Name, PriceCents: product.PriceCents, Qty: 5},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestStockFloorSumsDuplicateProductLines(t *testing.T) {
	s := New(Options{EnforceStockFloor: true, ValidateReturnQty: true})
	user := seedUser(t, s)
	product := seedProduct(t, s, 10)

	// Each line passes on its own; together they would drive qty to -2.
	_, err := s.PlaceOrder(context.Background(), domain.Order{
		UserID: user.ID,
		Lines: []domain.OrderLine{
			{ProductID: product.ID, ProductName: product.Name, PriceCents: product.PriceCents, Qty: 6},
			{ProductID: product.ID, ProductName: product.Name, PriceCents: product.PriceCents, Qty: 6},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock for cumulative 12 of 10, got %v", err)
	}

	after, _ := s.GetProductByID(context.Background(), product.ID)
	if after.Qty != 10 {
		t.Fatalf("expected untouched stock, got %d", after.Qty)
	}
}

func TestReturnValidationDisabledSkipsOrderCheck(t *testing.T) {
	s := New(Options{EnforceStockFloor: true, ValidateReturnQty: false})
	user := seedUser(t, s)
	product := seedProduct(t, s, 10)
	order := placeOrder(t, s, user, product, 2)

	// Over-returning passes when validation is off; stock still moves.
	ret, err := s.ProcessReturn(context.Background(), domain.OrderReturn{
		OrderID: order.ID,
		UserID:  user.ID,
		Lines: []domain.ReturnLine{
			{ProductID: product.ID, ProductName: product.Name, PriceCents: product.PriceCents, Qty: 5},
		},
	})
	if err != nil {
		t.Fatalf("process return: %v", err)
	}
	if ret.Code == "" {
		t.Fatalf("expected allocated code")
	}

	after, _ := s.GetProductByID(context.Background(), product.ID)
	if after.Qty != 13 {
		t.Fatalf("expected 13 after 10-2+5, got %d", after.Qty)
	}
}

func TestUnknownProductRejectedBeforeAnyMutation(t *testing.T) {
	s := New(Options{EnforceStockFloor: true, ValidateReturnQty: true})
	user := seedUser(t, s)
	product := seedProduct(t, s, 10)

	_, err := s.PlaceOrder(context.Background(), domain.Order{
		UserID: user.ID,
		Lines: []domain.OrderLine{
			{ProductID: product.ID, ProductName: product.Name, PriceCents: product.PriceCents, Qty: 1},
			{ProductID: 9999, ProductName: "ghost", PriceCents: 100, Qty: 1},
		},
	})
	if !errors.Is(err, store.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	after, _ := s.GetProductByID(context.Background(), product.ID)
	if after.Qty != 10 {
		t.Fatalf("expected untouched stock, got %d", after.Qty)
	}
}
