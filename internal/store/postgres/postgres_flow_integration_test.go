package postgres

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"tokopos/backend/internal/domain"
	"tokopos/backend/internal/store"
)

func newIntegrationStore(t *testing.T) *Store {
	t.Helper()

	databaseURL := os.Getenv("TOKOPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set TOKOPOS_TEST_DATABASE_URL to run postgres integration tests")
	}

	s, err := New(context.Background(), databaseURL, Options{
		EnforceStockFloor: true,
		ValidateReturnQty: true,
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func seedFlowFixtures(t *testing.T, s *Store) (domain.UserAccount, domain.Product) {
	t.Helper()
	ctx := context.Background()

	stamp := time.Now().UnixNano()
	user, err := s.CreateUser(ctx, domain.UserAccount{
		Name:         "Integration Kasir",
		Username:     fmt.Sprintf("kasir-it-%d", stamp),
		PasswordHash: "$2a$10$0000000000000000000000000000000000000000000000000000",
		Role:         domain.RoleCashier,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	product, err := s.CreateProduct(ctx, domain.Product{
		Name:       fmt.Sprintf("Produk IT %d", stamp),
		Qty:        10,
		PriceCents: 12000,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM order_lines WHERE product_id = $1`, product.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM return_lines WHERE product_id = $1`, product.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM order_returns WHERE user_id = $1`, user.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM orders WHERE user_id = $1`, user.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, product.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, user.ID)
	})
	return *user, *product
}

func TestPlaceOrderTransactionIsAtomic(t *testing.T) {
	s := newIntegrationStore(t)
	user, product := seedFlowFixtures(t, s)
	ctx := context.Background()

	order := domain.Order{
		Date:            time.Now().UTC(),
		GrandTotalCents: 4 * product.PriceCents,
		UserID:          user.ID,
		Lines: []domain.OrderLine{
			{ProductID: product.ID, ProductName: product.Name, PriceCents: product.PriceCents, Qty: 4},
		},
	}
	created, err := s.PlaceOrder(ctx, order)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if created.Code == "" {
		t.Fatalf("expected allocated code")
	}

	after, err := s.GetProductByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Qty != 6 {
		t.Fatalf("expected 6 after selling 4 of 10, got %d", after.Qty)
	}

	// Over-selling rolls everything back.
	order.Lines[0].Qty = 7
	if _, err := s.PlaceOrder(ctx, order); err == nil {
		t.Fatalf("expected insufficient stock error")
	}
	after, _ = s.GetProductByID(ctx, product.ID)
	if after.Qty != 6 {
		t.Fatalf("failed order must not change stock, got %d", after.Qty)
	}
}

func TestConcurrentOrdersSerializeOnCounterRow(t *testing.T) {
	s := newIntegrationStore(t)
	user, product := seedFlowFixtures(t, s)

	const workers = 8
	var wg sync.WaitGroup
	codes := make(chan string, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order := domain.Order{
				Date:            time.Now().UTC(),
				GrandTotalCents: product.PriceCents,
				UserID:          user.ID,
				Lines: []domain.OrderLine{
					{ProductID: product.ID, ProductName: product.Name, PriceCents: product.PriceCents, Qty: 1},
				},
			}
			// Contention must only ever surface as ErrCodeConflict,
			// whether the abort hits a statement or the commit; retry
			// like the service layer does.
			for attempt := 0; attempt < 5; attempt++ {
				created, err := s.PlaceOrder(context.Background(), order)
				if err == store.ErrCodeConflict {
					continue
				}
				if err != nil {
					errs <- err
					return
				}
				codes <- created.Code
				return
			}
			errs <- fmt.Errorf("still conflicting after 5 attempts")
		}()
	}
	wg.Wait()
	close(codes)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent order surfaced a non-conflict error: %v", err)
	}

	seen := make(map[string]bool, workers)
	for code := range codes {
		if seen[code] {
			t.Fatalf("duplicate code %s", code)
		}
		seen[code] = true
	}
	if len(seen) != workers {
		t.Fatalf("expected %d committed orders, got %d", workers, len(seen))
	}

	after, _ := s.GetProductByID(context.Background(), product.ID)
	if after.Qty != 10-workers {
		t.Fatalf("expected %d after %d concurrent sales, got %d", 10-workers, workers, after.Qty)
	}
}
