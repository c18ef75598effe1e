package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"tokopos/backend/internal/cache"
	"tokopos/backend/internal/domain"
	"tokopos/backend/internal/report"
	"tokopos/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const summaryTTL = 10 * time.Minute

type Service struct {
	repo  store.Repository
	cache cache.SummaryCache
	log   *logrus.Logger
}

func New(repo store.Repository, summaryCache cache.SummaryCache, log *logrus.Logger) *Service {
	if summaryCache == nil {
		summaryCache = cache.NoopSummaryCache{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Service{
		repo:  repo,
		cache: summaryCache,
		log:   log,
	}
}

// Products.

func (s *Service) ListProducts(ctx context.Context, search string, lastID int64, limit int) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, search, lastID, limit)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) GetProductByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return domain.Product{}, store.ErrValidation
	}
	product, err := s.repo.GetProductByBarcode(ctx, barcode)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) ListProductsByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	if categoryID < 1 {
		return nil, store.ErrValidation
	}
	return s.repo.ListProductsByCategory(ctx, categoryID)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.PriceCents < 1 || req.Qty < 0 {
		return domain.Product{}, store.ErrValidation
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Barcode:    strings.TrimSpace(req.Barcode),
		Name:       req.Name,
		CategoryID: req.CategoryID,
		SupplierID: req.SupplierID,
		Qty:        req.Qty,
		PriceCents: req.PriceCents,
		ImageURL:   req.ImageURL,
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logEvent(ctx, "product_create", logrus.Fields{"code": created.Code, "name": created.Name})
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrValidation
		}
		updated.Name = name
	}
	if req.Barcode != nil {
		updated.Barcode = strings.TrimSpace(*req.Barcode)
	}
	if req.CategoryID != nil {
		updated.CategoryID = *req.CategoryID
	}
	if req.SupplierID != nil {
		updated.SupplierID = *req.SupplierID
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return domain.Product{}, store.ErrValidation
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.ImageURL != nil {
		updated.ImageURL = *req.ImageURL
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	return s.repo.DeleteProduct(ctx, id)
}

// Categories.

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, name string) (domain.Category, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Category{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, store.ErrValidation
	}

	created, err := s.repo.CreateCategory(ctx, domain.Category{Name: name})
	if err != nil {
		return domain.Category{}, err
	}
	return *created, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	return s.repo.DeleteCategory(ctx, id)
}

// Suppliers.

func (s *Service) ListSuppliers(ctx context.Context, search string, lastID int64, limit int) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx, search, lastID, limit)
}

func (s *Service) GetSupplier(ctx context.Context, id int64) (domain.Supplier, error) {
	supplier, err := s.repo.GetSupplierByID(ctx, id)
	if err != nil {
		return domain.Supplier{}, err
	}
	return *supplier, nil
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierCreateRequest) (domain.Supplier, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Supplier{}, err
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.FirstName == "" || req.Phone == "" {
		return domain.Supplier{}, store.ErrValidation
	}

	created, err := s.repo.CreateSupplier(ctx, domain.Supplier{
		FirstName: req.FirstName,
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     req.Phone,
		Email:     strings.TrimSpace(req.Email),
		Address:   strings.TrimSpace(req.Address),
	})
	if err != nil {
		return domain.Supplier{}, err
	}
	return *created, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, id int64, req domain.SupplierCreateRequest) (domain.Supplier, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Supplier{}, err
	}

	existing, err := s.repo.GetSupplierByID(ctx, id)
	if err != nil {
		return domain.Supplier{}, err
	}

	updated := *existing
	if name := strings.TrimSpace(req.FirstName); name != "" {
		updated.FirstName = name
	}
	if name := strings.TrimSpace(req.LastName); name != "" {
		updated.LastName = name
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		updated.Phone = phone
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		updated.Email = email
	}
	if address := strings.TrimSpace(req.Address); address != "" {
		updated.Address = address
	}

	saved, err := s.repo.UpdateSupplier(ctx, updated)
	if err != nil {
		return domain.Supplier{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteSupplier(ctx context.Context, id int64) error {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	return s.repo.DeleteSupplier(ctx, id)
}

// Users.

func (s *Service) Authenticate(ctx context.Context, username string, password string) (domain.UserAccount, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.UserAccount{}, store.ErrValidation
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.UserAccount{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.UserAccount{}, store.ErrNotFound
	}
	return *user, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (domain.UserAccount, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return domain.UserAccount{}, err
	}
	return *user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

func (s *Service) CreateUser(ctx context.Context, req domain.UserCreateRequest) (domain.UserAccount, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.UserAccount{}, err
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Name = strings.TrimSpace(req.Name)
	if req.Username == "" || req.Name == "" || len(req.Password) < 6 {
		return domain.UserAccount{}, store.ErrValidation
	}
	role := req.Role
	if role == "" {
		role = domain.RoleCashier
	}
	if role != domain.RoleAdmin && role != domain.RoleCashier {
		return domain.UserAccount{}, store.ErrValidation
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.UserAccount{}, err
	}

	created, err := s.repo.CreateUser(ctx, domain.UserAccount{
		Name:         req.Name,
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		return domain.UserAccount{}, err
	}

	s.logEvent(ctx, "user_create", logrus.Fields{"username": created.Username, "role": created.Role})
	return *created, nil
}

func (s *Service) UpdateUser(ctx context.Context, id int64, req domain.UserUpdateRequest) (domain.UserAccount, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.UserAccount{}, store.ErrUnauthenticated
	}
	// Cashiers may only edit their own profile, and never their role.
	if actor.Role != domain.RoleAdmin {
		if actor.UserID != id || req.Role != nil {
			return domain.UserAccount{}, fmt.Errorf("admin role required: %w", store.ErrForbidden)
		}
	}

	existing, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return domain.UserAccount{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.UserAccount{}, store.ErrValidation
		}
		updated.Name = name
	}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			return domain.UserAccount{}, store.ErrValidation
		}
		updated.Username = username
	}
	if req.Password != nil {
		if len(*req.Password) < 6 {
			return domain.UserAccount{}, store.ErrValidation
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return domain.UserAccount{}, err
		}
		updated.PasswordHash = string(hash)
	}
	if req.Role != nil {
		if *req.Role != domain.RoleAdmin && *req.Role != domain.RoleCashier {
			return domain.UserAccount{}, store.ErrValidation
		}
		updated.Role = *req.Role
	}

	saved, err := s.repo.UpdateUser(ctx, updated)
	if err != nil {
		return domain.UserAccount{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	return s.repo.DeleteUser(ctx, id)
}

// Carts.

func (s *Service) ListCart(ctx context.Context) ([]domain.CartItem, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, store.ErrUnauthenticated
	}
	return s.repo.ListCartItems(ctx, actor.UserID)
}

// AddCartItem merges with an existing line for the same product instead of
// duplicating it.
func (s *Service) AddCartItem(ctx context.Context, req domain.CartUpsertRequest) (domain.CartItem, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.CartItem{}, store.ErrUnauthenticated
	}
	if req.ProductID < 1 || req.Qty < 1 {
		return domain.CartItem{}, store.ErrValidation
	}

	product, err := s.repo.GetProductByID(ctx, req.ProductID)
	if err != nil {
		if err == store.ErrNotFound {
			return domain.CartItem{}, store.ErrProductNotFound
		}
		return domain.CartItem{}, err
	}

	existing, err := s.repo.GetCartItemByProduct(ctx, req.ProductID, actor.UserID)
	if err == nil {
		existing.Qty += req.Qty
		if req.Note != "" {
			existing.Note = req.Note
		}
		merged, err := s.repo.UpdateCartItem(ctx, *existing)
		if err != nil {
			return domain.CartItem{}, err
		}
		return *merged, nil
	}
	if err != store.ErrNotFound {
		return domain.CartItem{}, err
	}

	created, err := s.repo.CreateCartItem(ctx, domain.CartItem{
		UserID:      actor.UserID,
		ProductID:   product.ID,
		ProductName: product.Name,
		PriceCents:  product.PriceCents,
		Qty:         req.Qty,
		Note:        req.Note,
	})
	if err != nil {
		return domain.CartItem{}, err
	}
	return *created, nil
}

func (s *Service) UpdateCartItem(ctx context.Context, id int64, req domain.CartUpsertRequest) (domain.CartItem, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.CartItem{}, store.ErrUnauthenticated
	}
	if req.Qty < 1 {
		return domain.CartItem{}, store.ErrValidation
	}

	updated, err := s.repo.UpdateCartItem(ctx, domain.CartItem{
		ID:     id,
		UserID: actor.UserID,
		Qty:    req.Qty,
		Note:   req.Note,
	})
	if err != nil {
		return domain.CartItem{}, err
	}
	return *updated, nil
}

func (s *Service) DeleteCartItem(ctx context.Context, id int64) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return store.ErrUnauthenticated
	}
	return s.repo.DeleteCartItem(ctx, id, actor.UserID)
}

func (s *Service) ClearCart(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return store.ErrUnauthenticated
	}
	return s.repo.DeleteAllCartItems(ctx, actor.UserID)
}

// Document flows. Validation happens here, before any transaction starts;
// the store guarantees all-or-nothing persistence. A code conflict from two
// flows racing on the same prefix is retried once.

func (s *Service) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.Order, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Order{}, store.ErrUnauthenticated
	}
	if req.UserID == 0 {
		req.UserID = actor.UserID
	}
	if len(req.Lines) == 0 || req.GrandTotalCents < 0 {
		return domain.Order{}, store.ErrValidation
	}
	for _, line := range req.Lines {
		if line.ProductID < 1 || line.Qty < 1 || line.PriceCents < 0 {
			return domain.Order{}, store.ErrValidation
		}
	}

	order := domain.Order{
		Date:            orDefaultDate(req.Date),
		SubtotalCents:   req.SubtotalCents,
		TaxCents:        req.TaxCents,
		GrandTotalCents: req.GrandTotalCents,
		UserID:          req.UserID,
		Lines:           make([]domain.OrderLine, len(req.Lines)),
	}
	for i, line := range req.Lines {
		order.Lines[i] = domain.OrderLine{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			PriceCents:  line.PriceCents,
			Qty:         line.Qty,
			Note:        line.Note,
		}
	}

	created, err := s.repo.PlaceOrder(ctx, order)
	if err == store.ErrCodeConflict {
		s.logEvent(ctx, "order_code_conflict_retry", nil)
		created, err = s.repo.PlaceOrder(ctx, order)
	}
	if err != nil {
		return domain.Order{}, err
	}

	s.invalidateSummary(ctx, "orders", created.Date.Year())
	s.logEvent(ctx, "order_placed", logrus.Fields{"code": created.Code, "grand_total_cents": created.GrandTotalCents})
	return *created, nil
}

func (s *Service) RecordPurchase(ctx context.Context, req domain.RecordPurchaseRequest) (domain.Purchase, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Purchase{}, store.ErrUnauthenticated
	}
	if req.UserID == 0 {
		req.UserID = actor.UserID
	}
	if len(req.Lines) == 0 || req.GrandTotalCents < 0 {
		return domain.Purchase{}, store.ErrValidation
	}
	for _, line := range req.Lines {
		if line.ProductID < 1 || line.Qty < 1 || line.PriceCents < 0 {
			return domain.Purchase{}, store.ErrValidation
		}
	}

	purchase := domain.Purchase{
		Date:            orDefaultDate(req.Date),
		Note:            strings.TrimSpace(req.Note),
		SubtotalCents:   req.SubtotalCents,
		TaxCents:        req.TaxCents,
		GrandTotalCents: req.GrandTotalCents,
		UserID:          req.UserID,
		Lines:           make([]domain.PurchaseLine, len(req.Lines)),
	}
	for i, line := range req.Lines {
		purchase.Lines[i] = domain.PurchaseLine{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			PriceCents:  line.PriceCents,
			Qty:         line.Qty,
		}
	}

	created, err := s.repo.RecordPurchase(ctx, purchase)
	if err == store.ErrCodeConflict {
		s.logEvent(ctx, "purchase_code_conflict_retry", nil)
		created, err = s.repo.RecordPurchase(ctx, purchase)
	}
	if err != nil {
		return domain.Purchase{}, err
	}

	s.invalidateSummary(ctx, "purchases", created.Date.Year())
	s.logEvent(ctx, "purchase_recorded", logrus.Fields{"code": created.Code, "grand_total_cents": created.GrandTotalCents})
	return *created, nil
}

func (s *Service) ProcessReturn(ctx context.Context, req domain.ProcessReturnRequest) (domain.OrderReturn, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.OrderReturn{}, store.ErrUnauthenticated
	}
	if req.UserID == 0 {
		req.UserID = actor.UserID
	}
	if req.OrderID < 1 || len(req.Lines) == 0 {
		return domain.OrderReturn{}, store.ErrValidation
	}
	for _, line := range req.Lines {
		if line.ProductID < 1 || line.Qty < 1 || line.PriceCents < 0 {
			return domain.OrderReturn{}, store.ErrValidation
		}
	}

	ret := domain.OrderReturn{
		OrderID: req.OrderID,
		Date:    orDefaultDate(req.Date),
		Note:    strings.TrimSpace(req.Note),
		UserID:  req.UserID,
		Lines:   make([]domain.ReturnLine, len(req.Lines)),
	}
	for i, line := range req.Lines {
		ret.Lines[i] = domain.ReturnLine{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			PriceCents:  line.PriceCents,
			Qty:         line.Qty,
		}
	}

	created, err := s.repo.ProcessReturn(ctx, ret)
	if err == store.ErrCodeConflict {
		s.logEvent(ctx, "return_code_conflict_retry", nil)
		created, err = s.repo.ProcessReturn(ctx, ret)
	}
	if err != nil {
		return domain.OrderReturn{}, err
	}

	s.logEvent(ctx, "return_processed", logrus.Fields{"code": created.Code, "order_id": created.OrderID})
	return *created, nil
}

// Document reads.

func (s *Service) GetOrder(ctx context.Context, id int64) (domain.Order, error) {
	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	return *order, nil
}

func (s *Service) ListOrders(ctx context.Context, search string, lastID int64, limit int) ([]domain.DocumentSummary, error) {
	return s.repo.ListOrders(ctx, search, lastID, limit)
}

func (s *Service) GetPurchase(ctx context.Context, id int64) (domain.Purchase, error) {
	purchase, err := s.repo.GetPurchaseByID(ctx, id)
	if err != nil {
		return domain.Purchase{}, err
	}
	return *purchase, nil
}

func (s *Service) ListPurchases(ctx context.Context, search string, lastID int64, limit int) ([]domain.DocumentSummary, error) {
	return s.repo.ListPurchases(ctx, search, lastID, limit)
}

func (s *Service) GetOrderReturn(ctx context.Context, id int64) (domain.OrderReturn, error) {
	ret, err := s.repo.GetOrderReturnByID(ctx, id)
	if err != nil {
		return domain.OrderReturn{}, err
	}
	return *ret, nil
}

func (s *Service) ListOrderReturns(ctx context.Context, search string, lastID int64, limit int) ([]domain.DocumentSummary, error) {
	return s.repo.ListOrderReturns(ctx, search, lastID, limit)
}

// Dashboard summaries, cached per kind and year.

func (s *Service) OrderYearlySummary(ctx context.Context, year int) (domain.YearlySummary, error) {
	return s.yearlySummary(ctx, "orders", year, s.repo.OrderYearlySummary)
}

func (s *Service) PurchaseYearlySummary(ctx context.Context, year int) (domain.YearlySummary, error) {
	return s.yearlySummary(ctx, "purchases", year, s.repo.PurchaseYearlySummary)
}

func (s *Service) yearlySummary(ctx context.Context, kind string, year int, load func(context.Context, int) (domain.YearlySummary, error)) (domain.YearlySummary, error) {
	if year < 1 {
		return domain.YearlySummary{}, store.ErrValidation
	}

	key := summaryKey(kind, year)
	if cached, hit, err := s.cache.Get(ctx, key); err == nil && hit {
		return *cached, nil
	} else if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("summary cache read failed")
	}

	summary, err := load(ctx, year)
	if err != nil {
		return domain.YearlySummary{}, err
	}

	if err := s.cache.Set(ctx, key, &summary, summaryTTL); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("summary cache write failed")
	}
	return summary, nil
}

func (s *Service) invalidateSummary(ctx context.Context, kind string, year int) {
	key := summaryKey(kind, year)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("summary cache invalidation failed")
	}
}

func summaryKey(kind string, year int) string {
	return fmt.Sprintf("summary:%s:%d", kind, year)
}

// Exports.

func (s *Service) ExportOrders(ctx context.Context, from, to time.Time) ([]byte, string, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, "", err
	}
	if to.Before(from) {
		return nil, "", store.ErrValidation
	}

	orders, err := s.repo.ListOrdersBetween(ctx, from, to)
	if err != nil {
		return nil, "", err
	}
	payload, err := report.OrdersWorkbook(orders)
	if err != nil {
		return nil, "", err
	}
	return payload, report.ExportFilename("orders", from, to), nil
}

func (s *Service) ExportPurchases(ctx context.Context, from, to time.Time) ([]byte, string, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, "", err
	}
	if to.Before(from) {
		return nil, "", store.ErrValidation
	}

	purchases, err := s.repo.ListPurchasesBetween(ctx, from, to)
	if err != nil {
		return nil, "", err
	}
	payload, err := report.PurchasesWorkbook(purchases)
	if err != nil {
		return nil, "", err
	}
	return payload, report.ExportFilename("purchases", from, to), nil
}

// Helpers.

func requireRole(ctx context.Context, role string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != role {
		return fmt.Errorf("%s role required: %w", role, store.ErrForbidden)
	}
	return nil
}

func orDefaultDate(date time.Time) time.Time {
	if date.IsZero() {
		return time.Now().UTC()
	}
	return date
}

func (s *Service) logEvent(ctx context.Context, event string, fields logrus.Fields) {
	entry := s.log.WithField("event", event)
	if actor, ok := ActorFromContext(ctx); ok {
		entry = entry.WithField("actor", actor.Username)
	}
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Info("audit")
}
