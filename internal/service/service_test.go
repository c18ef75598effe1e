package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"tokopos/backend/internal/cache"
	"tokopos/backend/internal/docnum"
	"tokopos/backend/internal/domain"
	"tokopos/backend/internal/store"
	"tokopos/backend/internal/store/memory"
)

func newTestService() *Service {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(memory.NewSeeded(), cache.NoopSummaryCache{}, log)
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{UserID: 1, Username: "admin", Role: domain.RoleAdmin})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{UserID: 2, Username: "cashier", Role: domain.RoleCashier})
}

func mustCreateProduct(t *testing.T, svc *Service, name string, qty int, priceCents int64) domain.Product {
	t.Helper()
	product, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Name:       name,
		Qty:        qty,
		PriceCents: priceCents,
	})
	if err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return product
}

func orderLine(product domain.Product, qty int) domain.PlaceOrderLineRequest {
	return domain.PlaceOrderLineRequest{
		ProductID:   product.ID,
		ProductName: product.Name,
		PriceCents:  product.PriceCents,
		Qty:         qty,
	}
}

func TestPlaceOrderDecrementsStockAndClearsCart(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	product := mustCreateProduct(t, svc, "Beras 5kg", 10, 68000)

	if _, err := svc.AddCartItem(ctx, domain.CartUpsertRequest{ProductID: product.ID, Qty: 4}); err != nil {
		t.Fatalf("add cart item: %v", err)
	}

	order, err := svc.PlaceOrder(ctx, domain.PlaceOrderRequest{
		GrandTotalCents: 4 * product.PriceCents,
		Lines:           []domain.PlaceOrderLineRequest{orderLine(product, 4)},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if !strings.HasPrefix(order.Code, docnum.OrderPrefix) {
		t.Fatalf("expected order code with prefix %s, got %s", docnum.OrderPrefix, order.Code)
	}
	if _, seq, ok := docnum.Parse(order.Code); !ok || seq < 1 {
		t.Fatalf("order code %s does not parse", order.Code)
	}

	after, err := svc.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Qty != 6 {
		t.Fatalf("expected stock 6 after selling 4 of 10, got %d", after.Qty)
	}

	cart, err := svc.ListCart(ctx)
	if err != nil {
		t.Fatalf("list cart: %v", err)
	}
	if len(cart) != 0 {
		t.Fatalf("expected empty cart after order, got %d items", len(cart))
	}
}

func TestPlaceOrderInsufficientStockLeavesStateUnchanged(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	product := mustCreateProduct(t, svc, "Gula 1kg", 10, 17500)
	filler := mustCreateProduct(t, svc, "Garam 500g", 50, 4500)

	if _, err := svc.AddCartItem(ctx, domain.CartUpsertRequest{ProductID: filler.ID, Qty: 2}); err != nil {
		t.Fatalf("add cart item: %v", err)
	}

	_, err := svc.PlaceOrder(ctx, domain.PlaceOrderRequest{
		GrandTotalCents: 11 * product.PriceCents,
		Lines:           []domain.PlaceOrderLineRequest{orderLine(product, 11)},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock for 11 of 10, got %v", err)
	}

	after, err := svc.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Qty != 10 {
		t.Fatalf("failed order must not change stock: got %d", after.Qty)
	}

	cart, err := svc.ListCart(ctx)
	if err != nil {
		t.Fatalf("list cart: %v", err)
	}
	if len(cart) != 1 {
		t.Fatalf("failed order must not clear cart: got %d items", len(cart))
	}

	orders, err := svc.ListOrders(ctx, "", 0, 50)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("failed order must not persist a document: got %d", len(orders))
	}
}

func TestPlaceOrderFailsPartwayPersistsNothing(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	good := mustCreateProduct(t, svc, "Minyak Goreng 1L", 20, 19000)
	scarce := mustCreateProduct(t, svc, "Kecap 600ml", 1, 14000)

	_, err := svc.PlaceOrder(ctx, domain.PlaceOrderRequest{
		GrandTotalCents: 1,
		Lines: []domain.PlaceOrderLineRequest{
			orderLine(good, 5),
			orderLine(scarce, 3),
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	after, err := svc.GetProduct(ctx, good.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Qty != 20 {
		t.Fatalf("first line must roll back with the failed second: got qty %d", after.Qty)
	}
}

func TestRecordPurchaseValidationPersistsNothing(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	product := mustCreateProduct(t, svc, "Teh Celup", 30, 9500)

	_, err := svc.RecordPurchase(ctx, domain.RecordPurchaseRequest{
		GrandTotalCents: 100000,
		Lines: []domain.PurchaseLineRequest{
			{ProductID: product.ID, ProductName: product.Name, PriceCents: 8000, Qty: 10},
			{ProductName: "missing product id", PriceCents: 8000, Qty: 5},
		},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for line without product id, got %v", err)
	}

	after, err := svc.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Qty != 30 {
		t.Fatalf("failed purchase must not change stock: got %d", after.Qty)
	}

	purchases, err := svc.ListPurchases(ctx, "", 0, 50)
	if err != nil {
		t.Fatalf("list purchases: %v", err)
	}
	if len(purchases) != 0 {
		t.Fatalf("failed purchase must not persist a document: got %d", len(purchases))
	}
}

func TestOrderThenReturnRestoresStock(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	product := mustCreateProduct(t, svc, "Susu UHT 1L", 10, 18500)

	order, err := svc.PlaceOrder(ctx, domain.PlaceOrderRequest{
		GrandTotalCents: 4 * product.PriceCents,
		Lines:           []domain.PlaceOrderLineRequest{orderLine(product, 4)},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	mid, _ := svc.GetProduct(ctx, product.ID)
	if mid.Qty != 6 {
		t.Fatalf("expected 6 after sale, got %d", mid.Qty)
	}

	ret, err := svc.ProcessReturn(ctx, domain.ProcessReturnRequest{
		OrderID: order.ID,
		Lines: []domain.ReturnLineRequest{
			{ProductID: product.ID, ProductName: product.Name, PriceCents: product.PriceCents, Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("process return: %v", err)
	}
	if !strings.HasPrefix(ret.Code, docnum.ReturnPrefix) {
		t.Fatalf("expected return code with prefix %s, got %s", docnum.ReturnPrefix, ret.Code)
	}

	after, _ := svc.GetProduct(ctx, product.ID)
	if after.Qty != 7 {
		t.Fatalf("expected 7 after returning 1, got %d", after.Qty)
	}
}

func TestReturnExceedingOrderRejected(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	product := mustCreateProduct(t, svc, "Sarden Kaleng", 10, 12500)

	order, err := svc.PlaceOrder(ctx, domain.PlaceOrderRequest{
		GrandTotalCents: 2 * product.PriceCents,
		Lines:           []domain.PlaceOrderLineRequest{orderLine(product, 2)},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	_, err = svc.ProcessReturn(ctx, domain.ProcessReturnRequest{
		OrderID: order.ID,
		Lines: []domain.ReturnLineRequest{
			{ProductID: product.ID, ProductName: product.Name, PriceCents: product.PriceCents, Qty: 3},
		},
	})
	if !errors.Is(err, store.ErrReturnExceedsOrder) {
		t.Fatalf("expected ErrReturnExceedsOrder for 3 of 2 sold, got %v", err)
	}

	// Two partial returns that together exceed the order are also rejected.
	if _, err := svc.ProcessReturn(ctx, domain.ProcessReturnRequest{
		OrderID: order.ID,
		Lines: []domain.ReturnLineRequest{
			{ProductID: product.ID, ProductName: product.Name, PriceCents: product.PriceCents, Qty: 2},
		},
	}); err != nil {
		t.Fatalf("first partial return: %v", err)
	}
	_, err = svc.ProcessReturn(ctx, domain.ProcessReturnRequest{
		OrderID: order.ID,
		Lines: []domain.ReturnLineRequest{
			{ProductID: product.ID, ProductName: product.Name, PriceCents: product.PriceCents, Qty: 1},
		},
	})
	if !errors.Is(err, store.ErrReturnExceedsOrder) {
		t.Fatalf("expected cumulative over-return to be rejected, got %v", err)
	}
}

func TestReturnUnknownOrderRejected(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	product := mustCreateProduct(t, svc, "Biskuit", 10, 8500)

	_, err := svc.ProcessReturn(ctx, domain.ProcessReturnRequest{
		OrderID: 9999,
		Lines: []domain.ReturnLineRequest{
			{ProductID: product.ID, ProductName: product.Name, PriceCents: product.PriceCents, Qty: 1},
		},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown order, got %v", err)
	}
}

func TestConcurrentOrdersNeverLoseStockUpdates(t *testing.T) {
	svc := newTestService()

	product := mustCreateProduct(t, svc, "Roti Tawar", 100, 15000)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ctx := WithActor(context.Background(), domain.Actor{UserID: 2, Username: fmt.Sprintf("kasir-%d", n), Role: domain.RoleCashier})
			_, err := svc.PlaceOrder(ctx, domain.PlaceOrderRequest{
				GrandTotalCents: 2 * product.PriceCents,
				Lines:           []domain.PlaceOrderLineRequest{orderLine(product, 2)},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent order failed: %v", err)
		}
	}

	after, _ := svc.GetProduct(cashierCtx(), product.ID)
	if after.Qty != 100-workers*2 {
		t.Fatalf("expected %d after %d concurrent sales of 2, got %d", 100-workers*2, workers, after.Qty)
	}
}

func TestConcurrentFlowsAllocateUniqueCodes(t *testing.T) {
	svc := newTestService()

	product := mustCreateProduct(t, svc, "Deterjen", 1000, 21000)

	const workers = 16
	var wg sync.WaitGroup
	codes := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := svc.PlaceOrder(cashierCtx(), domain.PlaceOrderRequest{
				GrandTotalCents: product.PriceCents,
				Lines:           []domain.PlaceOrderLineRequest{orderLine(product, 1)},
			})
			if err != nil {
				codes <- ""
				return
			}
			codes <- order.Code
		}()
	}
	wg.Wait()
	close(codes)

	seen := make(map[string]bool, workers)
	for code := range codes {
		if code == "" {
			t.Fatalf("concurrent order failed")
		}
		if seen[code] {
			t.Fatalf("duplicate document code %s", code)
		}
		seen[code] = true
	}
}

func TestOrderLinesSurviveProductEdits(t *testing.T) {
	svc := newTestService()

	product := mustCreateProduct(t, svc, "Kopi Bubuk 200g", 50, 24000)

	order, err := svc.PlaceOrder(cashierCtx(), domain.PlaceOrderRequest{
		GrandTotalCents: 3 * product.PriceCents,
		Lines:           []domain.PlaceOrderLineRequest{orderLine(product, 3)},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	newName := "Kopi Bubuk Premium 200g"
	newPrice := int64(31000)
	if _, err := svc.UpdateProduct(adminCtx(), product.ID, domain.ProductUpdateRequest{
		Name:       &newName,
		PriceCents: &newPrice,
	}); err != nil {
		t.Fatalf("update product: %v", err)
	}

	reread, err := svc.GetOrder(cashierCtx(), order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if len(reread.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(reread.Lines))
	}
	line := reread.Lines[0]
	if line.ProductName != "Kopi Bubuk 200g" || line.PriceCents != 24000 || line.TotalCents != 72000 {
		t.Fatalf("order line changed after product edit: %+v", line)
	}
}

func TestDocumentCodesIncrementPerPrefix(t *testing.T) {
	svc := newTestService()

	product := mustCreateProduct(t, svc, "Tisu", 100, 11000)

	first, err := svc.PlaceOrder(cashierCtx(), domain.PlaceOrderRequest{
		GrandTotalCents: product.PriceCents,
		Lines:           []domain.PlaceOrderLineRequest{orderLine(product, 1)},
	})
	if err != nil {
		t.Fatalf("first order: %v", err)
	}
	second, err := svc.PlaceOrder(cashierCtx(), domain.PlaceOrderRequest{
		GrandTotalCents: product.PriceCents,
		Lines:           []domain.PlaceOrderLineRequest{orderLine(product, 1)},
	})
	if err != nil {
		t.Fatalf("second order: %v", err)
	}

	if first.Code != "ORD-000001" || second.Code != "ORD-000002" {
		t.Fatalf("expected ORD-000001 then ORD-000002, got %s then %s", first.Code, second.Code)
	}

	purchase, err := svc.RecordPurchase(adminCtx(), domain.RecordPurchaseRequest{
		GrandTotalCents: 10000,
		Lines: []domain.PurchaseLineRequest{
			{ProductID: product.ID, ProductName: product.Name, PriceCents: 10000, Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	// Each prefix has its own counter.
	if purchase.Code != "PUR-000001" {
		t.Fatalf("expected PUR-000001, got %s", purchase.Code)
	}
}

func TestRecordPurchaseIncrementsStock(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	product := mustCreateProduct(t, svc, "Sikat Gigi", 5, 9000)

	if _, err := svc.RecordPurchase(ctx, domain.RecordPurchaseRequest{
		GrandTotalCents: 12 * 6000,
		Lines: []domain.PurchaseLineRequest{
			{ProductID: product.ID, ProductName: product.Name, PriceCents: 6000, Qty: 12},
		},
	}); err != nil {
		t.Fatalf("record purchase: %v", err)
	}

	after, _ := svc.GetProduct(ctx, product.ID)
	if after.Qty != 17 {
		t.Fatalf("expected 17 after receiving 12 onto 5, got %d", after.Qty)
	}
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateProduct(cashierCtx(), domain.ProductCreateRequest{
		Name:       "Unauthorized",
		Qty:        1,
		PriceCents: 1000,
	})
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for cashier product creation, got %v", err)
	}
}

func TestPlaceOrderWithoutActorRejected(t *testing.T) {
	svc := newTestService()

	_, err := svc.PlaceOrder(context.Background(), domain.PlaceOrderRequest{
		Lines: []domain.PlaceOrderLineRequest{{ProductID: 1, Qty: 1, PriceCents: 1000}},
	})
	if !errors.Is(err, store.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated without actor, got %v", err)
	}
}

func TestAddCartItemMergesSameProduct(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	product := mustCreateProduct(t, svc, "Shampo Sachet", 100, 1500)

	if _, err := svc.AddCartItem(ctx, domain.CartUpsertRequest{ProductID: product.ID, Qty: 2}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := svc.AddCartItem(ctx, domain.CartUpsertRequest{ProductID: product.ID, Qty: 3}); err != nil {
		t.Fatalf("second add: %v", err)
	}

	cart, err := svc.ListCart(ctx)
	if err != nil {
		t.Fatalf("list cart: %v", err)
	}
	if len(cart) != 1 {
		t.Fatalf("expected one merged line, got %d", len(cart))
	}
	if cart[0].Qty != 5 || cart[0].TotalCents != 5*1500 {
		t.Fatalf("expected merged qty 5 total 7500, got qty %d total %d", cart[0].Qty, cart[0].TotalCents)
	}
}

func TestYearlySummaryBucketsGrandTotalsByMonth(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	product := mustCreateProduct(t, svc, "Pulpen", 1000, 3000)

	year := time.Now().UTC().Year()
	january := time.Date(year, time.January, 15, 10, 0, 0, 0, time.UTC)
	march := time.Date(year, time.March, 3, 10, 0, 0, 0, time.UTC)

	for _, placed := range []struct {
		date  time.Time
		total int64
	}{
		{january, 30000},
		{january, 12000},
		{march, 9000},
	} {
		if _, err := svc.PlaceOrder(ctx, domain.PlaceOrderRequest{
			Date:            placed.date,
			GrandTotalCents: placed.total,
			Lines:           []domain.PlaceOrderLineRequest{orderLine(product, 1)},
		}); err != nil {
			t.Fatalf("place order: %v", err)
		}
	}

	summary, err := svc.OrderYearlySummary(ctx, year)
	if err != nil {
		t.Fatalf("yearly summary: %v", err)
	}
	if len(summary.MonthlyTotals) != 12 {
		t.Fatalf("expected 12 buckets, got %d", len(summary.MonthlyTotals))
	}
	if summary.MonthlyTotals[0] != 42000 {
		t.Fatalf("expected January total 42000, got %d", summary.MonthlyTotals[0])
	}
	if summary.MonthlyTotals[2] != 9000 {
		t.Fatalf("expected March total 9000, got %d", summary.MonthlyTotals[2])
	}
	if summary.MonthlyTotals[1] != 0 {
		t.Fatalf("expected empty February, got %d", summary.MonthlyTotals[1])
	}
}

func TestExportOrdersRequiresAdmin(t *testing.T) {
	svc := newTestService()

	now := time.Now().UTC()
	if _, _, err := svc.ExportOrders(cashierCtx(), now.AddDate(0, -1, 0), now); err == nil {
		t.Fatalf("expected cashier export to fail")
	}

	payload, filename, err := svc.ExportOrders(adminCtx(), now.AddDate(0, -1, 0), now)
	if err != nil {
		t.Fatalf("admin export: %v", err)
	}
	if len(payload) == 0 {
		t.Fatalf("expected non-empty workbook")
	}
	if !strings.HasSuffix(filename, ".xlsx") {
		t.Fatalf("expected .xlsx filename, got %s", filename)
	}
}

func TestAuthenticateSeededUsers(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	user, err := svc.Authenticate(ctx, "admin", "admin123")
	if err != nil {
		t.Fatalf("authenticate admin: %v", err)
	}
	if user.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %s", user.Role)
	}

	if _, err := svc.Authenticate(ctx, "admin", "wrong"); err == nil {
		t.Fatalf("expected wrong password to fail")
	}
}
