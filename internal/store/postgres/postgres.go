// Package postgres implements store.Repository on PostgreSQL. Document
// flows run as serializable transactions; stock changes are expressed as
// relative UPDATEs so concurrent flows never overwrite each other's counts.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tokopos/backend/internal/docnum"
	"tokopos/backend/internal/domain"
	"tokopos/backend/internal/store"
)

type Options struct {
	EnforceStockFloor bool
	ValidateReturnQty bool
}

type Store struct {
	db   *sql.DB
	opts Options
}

func New(ctx context.Context, databaseURL string, opts Options) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, opts: opts}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// nextCode advances the counter row for a prefix and formats the new
// sequence. The UPDATE takes a row lock, so two transactions allocating the
// same prefix serialize; under serializable isolation the loser can abort
// with 40001 right here, which mapTxError turns into ErrCodeConflict so
// the service retries the whole flow.
func nextCode(ctx context.Context, tx *sql.Tx, prefix string) (string, error) {
	if !docnum.IsValidPrefix(prefix) {
		return "", fmt.Errorf("unknown document prefix %q", prefix)
	}

	var seq int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO document_counters (prefix, last_seq)
		VALUES ($1, 1)
		ON CONFLICT (prefix) DO UPDATE SET last_seq = document_counters.last_seq + 1
		RETURNING last_seq
	`, prefix).Scan(&seq)
	if err != nil {
		return "", err
	}
	return docnum.Format(prefix, seq), nil
}

// applyStockDelta adjusts a product's quantity relative to its current
// value. With the floor enforced, the WHERE clause rejects any update that
// would leave the count negative; zero affected rows then means either a
// missing product or insufficient stock.
func (s *Store) applyStockDelta(ctx context.Context, tx *sql.Tx, productID int64, delta int) error {
	query := `
		UPDATE products
		SET qty = qty + $2, updated_at = now()
		WHERE id = $1
	`
	if s.opts.EnforceStockFloor {
		query += ` AND qty + $2 >= 0`
	}

	res, err := tx.ExecContext(ctx, query, productID, delta)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)", productID,
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return store.ErrProductNotFound
	}
	return store.ErrInsufficientStock
}

// Products.

const productColumns = `id, code, COALESCE(barcode, ''), name, COALESCE(category_id, 0), COALESCE(supplier_id, 0), qty, price_cents, COALESCE(image_url, ''), created_at, updated_at`

func scanProduct(row interface{ Scan(dest ...any) error }) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Code, &p.Barcode, &p.Name, &p.CategoryID, &p.SupplierID,
		&p.Qty, &p.PriceCents, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) ListProducts(ctx context.Context, search string, lastID int64, limit int) ([]domain.Product, error) {
	if limit < 1 {
		limit = 10
	}
	search = strings.TrimSpace(search)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR code ILIKE '%' || $1 || '%' OR barcode ILIKE '%' || $1 || '%')
		  AND ($2 = 0 OR id < $2)
		ORDER BY id DESC
		LIMIT $3
	`, search, lastID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE barcode = $1
	`, barcode))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListProductsByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE category_id = $1 ORDER BY id
	`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 32)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.PriceCents < 1 || product.Qty < 0 {
		return nil, store.ErrValidation
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	code, err := nextCode(ctx, tx, docnum.ProductPrefix)
	if err != nil {
		return nil, err
	}

	created := product
	created.Code = code
	err = tx.QueryRowContext(ctx, `
		INSERT INTO products (code, barcode, name, category_id, supplier_id, qty, price_cents, image_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, created_at, updated_at
	`, code, nullIfEmpty(product.Barcode), product.Name, nullIfZero(product.CategoryID),
		nullIfZero(product.SupplierID), product.Qty, product.PriceCents, nullIfEmpty(product.ImageURL),
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrCodeConflict
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	// Quantity is excluded: it belongs to the ledger, not CRUD.
	updated, err := scanProduct(s.db.QueryRowContext(ctx, `
		UPDATE products
		SET barcode = $2, name = $3, category_id = $4, supplier_id = $5,
		    price_cents = $6, image_url = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns+`
	`, product.ID, nullIfEmpty(product.Barcode), product.Name, nullIfZero(product.CategoryID),
		nullIfZero(product.SupplierID), product.PriceCents, nullIfEmpty(product.ImageURL)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Categories.

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM categories ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 16)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if strings.TrimSpace(category.Name) == "" {
		return nil, store.ErrValidation
	}

	created := category
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (name) VALUES ($1) RETURNING id
	`, category.Name).Scan(&created.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}
	return &created, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Suppliers.

const supplierColumns = `id, first_name, last_name, phone, COALESCE(email, ''), address, created_at`

func (s *Store) ListSuppliers(ctx context.Context, search string, lastID int64, limit int) ([]domain.Supplier, error) {
	if limit < 1 {
		limit = 10
	}
	search = strings.TrimSpace(search)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+supplierColumns+`
		FROM suppliers
		WHERE ($1 = '' OR first_name ILIKE '%' || $1 || '%' OR last_name ILIKE '%' || $1 || '%' OR phone ILIKE '%' || $1 || '%' OR address ILIKE '%' || $1 || '%')
		  AND ($2 = 0 OR id < $2)
		ORDER BY id DESC
		LIMIT $3
	`, search, lastID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0, limit)
	for rows.Next() {
		var sup domain.Supplier
		if err := rows.Scan(&sup.ID, &sup.FirstName, &sup.LastName, &sup.Phone, &sup.Email, &sup.Address, &sup.CreatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, sup)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (s *Store) GetSupplierByID(ctx context.Context, id int64) (*domain.Supplier, error) {
	var sup domain.Supplier
	err := s.db.QueryRowContext(ctx, `
		SELECT `+supplierColumns+` FROM suppliers WHERE id = $1
	`, id).Scan(&sup.ID, &sup.FirstName, &sup.LastName, &sup.Phone, &sup.Email, &sup.Address, &sup.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &sup, nil
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if strings.TrimSpace(supplier.FirstName) == "" || strings.TrimSpace(supplier.Phone) == "" {
		return nil, store.ErrValidation
	}

	created := supplier
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO suppliers (first_name, last_name, phone, email, address)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at
	`, supplier.FirstName, supplier.LastName, supplier.Phone, nullIfEmpty(supplier.Email), supplier.Address,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Store) UpdateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	updated := supplier
	err := s.db.QueryRowContext(ctx, `
		UPDATE suppliers
		SET first_name = $2, last_name = $3, phone = $4, email = $5, address = $6
		WHERE id = $1
		RETURNING created_at
	`, supplier.ID, supplier.FirstName, supplier.LastName, supplier.Phone,
		nullIfEmpty(supplier.Email), supplier.Address,
	).Scan(&updated.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteSupplier(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM suppliers WHERE id = $1", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Users.

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	if strings.TrimSpace(user.Username) == "" || user.PasswordHash == "" {
		return nil, store.ErrValidation
	}

	created := user
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (name, username, password_hash, role)
		VALUES ($1,$2,$3,$4)
		RETURNING id, created_at
	`, user.Name, user.Username, user.PasswordHash, user.Role).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}
	return &created, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, username, password_hash, role, created_at FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.Name, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, username, password_hash, role, created_at FROM users WHERE username = $1
	`, username).Scan(&user.ID, &user.Name, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, username, password_hash, role, created_at FROM users ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.ID, &user.Name, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	updated := user
	err := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET name = $2, username = $3, password_hash = $4, role = $5
		WHERE id = $1
		RETURNING created_at
	`, user.ID, user.Name, user.Username, user.PasswordHash, user.Role).Scan(&updated.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Carts.

func (s *Store) CreateCartItem(ctx context.Context, item domain.CartItem) (*domain.CartItem, error) {
	if item.UserID < 1 || item.ProductID < 1 || item.Qty < 1 {
		return nil, store.ErrValidation
	}

	created := item
	created.TotalCents = item.PriceCents * int64(item.Qty)
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO carts (user_id, product_id, product_name, price_cents, qty, total_cents, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at
	`, item.UserID, item.ProductID, item.ProductName, item.PriceCents, item.Qty,
		created.TotalCents, item.Note).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrProductNotFound
		}
		return nil, err
	}
	return &created, nil
}

func (s *Store) UpdateCartItem(ctx context.Context, item domain.CartItem) (*domain.CartItem, error) {
	if item.Qty < 1 {
		return nil, store.ErrValidation
	}

	var updated domain.CartItem
	err := s.db.QueryRowContext(ctx, `
		UPDATE carts
		SET qty = $3, note = $4, total_cents = price_cents * $3
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, product_id, product_name, price_cents, qty, total_cents, note, created_at
	`, item.ID, item.UserID, item.Qty, item.Note).Scan(
		&updated.ID, &updated.UserID, &updated.ProductID, &updated.ProductName,
		&updated.PriceCents, &updated.Qty, &updated.TotalCents, &updated.Note, &updated.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteCartItem(ctx context.Context, id int64, userID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM carts WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAllCartItems(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM carts WHERE user_id = $1", userID)
	return err
}

func (s *Store) ListCartItems(ctx context.Context, userID int64) ([]domain.CartItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, product_id, product_name, price_cents, qty, total_cents, note, created_at
		FROM carts
		WHERE user_id = $1
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0, 8)
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &item.ProductName,
			&item.PriceCents, &item.Qty, &item.TotalCents, &item.Note, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetCartItemByProduct(ctx context.Context, productID int64, userID int64) (*domain.CartItem, error) {
	var item domain.CartItem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, product_id, product_name, price_cents, qty, total_cents, note, created_at
		FROM carts
		WHERE product_id = $1 AND user_id = $2
	`, productID, userID).Scan(&item.ID, &item.UserID, &item.ProductID, &item.ProductName,
		&item.PriceCents, &item.Qty, &item.TotalCents, &item.Note, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// Document flows.

func (s *Store) PlaceOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, line := range order.Lines {
		if line.ProductID < 1 || line.Qty < 1 {
			return nil, store.ErrValidation
		}
	}

	code, err := nextCode(ctx, tx, docnum.OrderPrefix)
	if err != nil {
		return nil, mapTxError(err)
	}

	created := order
	created.Code = code
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (code, date, subtotal_cents, tax_cents, grand_total_cents, user_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at
	`, code, order.Date, order.SubtotalCents, order.TaxCents, order.GrandTotalCents, order.UserID,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, mapTxError(err)
	}

	created.Lines = make([]domain.OrderLine, len(order.Lines))
	for i, line := range order.Lines {
		line.OrderID = created.ID
		line.TotalCents = line.PriceCents * int64(line.Qty)
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_lines (order_id, product_id, product_name, price_cents, qty, total_cents, note)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			RETURNING id
		`, line.OrderID, line.ProductID, line.ProductName, line.PriceCents, line.Qty,
			line.TotalCents, line.Note).Scan(&line.ID)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, store.ErrProductNotFound
			}
			return nil, mapTxError(err)
		}
		if err := s.applyStockDelta(ctx, tx, line.ProductID, -line.Qty); err != nil {
			return nil, mapTxError(err)
		}
		created.Lines[i] = line
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM carts WHERE user_id = $1", order.UserID); err != nil {
		return nil, mapTxError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapTxError(err)
	}
	return &created, nil
}

func (s *Store) RecordPurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, line := range purchase.Lines {
		if line.ProductID < 1 || line.Qty < 1 {
			return nil, store.ErrValidation
		}
	}

	code, err := nextCode(ctx, tx, docnum.PurchasePrefix)
	if err != nil {
		return nil, mapTxError(err)
	}

	created := purchase
	created.Code = code
	err = tx.QueryRowContext(ctx, `
		INSERT INTO purchases (code, date, note, subtotal_cents, tax_cents, grand_total_cents, user_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at
	`, code, purchase.Date, purchase.Note, purchase.SubtotalCents, purchase.TaxCents,
		purchase.GrandTotalCents, purchase.UserID).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, mapTxError(err)
	}

	created.Lines = make([]domain.PurchaseLine, len(purchase.Lines))
	for i, line := range purchase.Lines {
		line.PurchaseID = created.ID
		line.TotalCents = line.PriceCents * int64(line.Qty)
		err = tx.QueryRowContext(ctx, `
			INSERT INTO purchase_lines (purchase_id, product_id, product_name, price_cents, qty, total_cents)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING id
		`, line.PurchaseID, line.ProductID, line.ProductName, line.PriceCents, line.Qty, line.TotalCents).Scan(&line.ID)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, store.ErrProductNotFound
			}
			return nil, mapTxError(err)
		}
		if err := s.applyStockDelta(ctx, tx, line.ProductID, line.Qty); err != nil {
			return nil, mapTxError(err)
		}
		created.Lines[i] = line
	}

	if err := tx.Commit(); err != nil {
		return nil, mapTxError(err)
	}
	return &created, nil
}

func (s *Store) ProcessReturn(ctx context.Context, ret domain.OrderReturn) (*domain.OrderReturn, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, line := range ret.Lines {
		if line.ProductID < 1 || line.Qty < 1 {
			return nil, store.ErrValidation
		}
	}

	if s.opts.ValidateReturnQty {
		if err := s.checkReturnQty(ctx, tx, ret); err != nil {
			return nil, mapTxError(err)
		}
	} else {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)", ret.OrderID,
		).Scan(&exists); err != nil {
			return nil, mapTxError(err)
		}
		if !exists {
			return nil, store.ErrNotFound
		}
	}

	code, err := nextCode(ctx, tx, docnum.ReturnPrefix)
	if err != nil {
		return nil, mapTxError(err)
	}

	created := ret
	created.Code = code
	err = tx.QueryRowContext(ctx, `
		INSERT INTO order_returns (code, order_id, date, note, user_id)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at
	`, code, ret.OrderID, ret.Date, ret.Note, ret.UserID).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, mapTxError(err)
	}

	created.Lines = make([]domain.ReturnLine, len(ret.Lines))
	for i, line := range ret.Lines {
		line.ReturnID = created.ID
		line.TotalCents = line.PriceCents * int64(line.Qty)
		err = tx.QueryRowContext(ctx, `
			INSERT INTO return_lines (return_id, product_id, product_name, price_cents, qty, total_cents)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING id
		`, line.ReturnID, line.ProductID, line.ProductName, line.PriceCents, line.Qty, line.TotalCents).Scan(&line.ID)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, store.ErrProductNotFound
			}
			return nil, mapTxError(err)
		}
		if err := s.applyStockDelta(ctx, tx, line.ProductID, line.Qty); err != nil {
			return nil, mapTxError(err)
		}
		created.Lines[i] = line
	}

	if err := tx.Commit(); err != nil {
		return nil, mapTxError(err)
	}
	return &created, nil
}

// checkReturnQty verifies that, per product, the quantity being returned
// plus everything already returned against the order does not exceed what
// the order sold. The order's lines are locked to keep the check stable.
func (s *Store) checkReturnQty(ctx context.Context, tx *sql.Tx, ret domain.OrderReturn) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT product_id, qty
		FROM order_lines
		WHERE order_id = $1
		FOR UPDATE
	`, ret.OrderID)
	if err != nil {
		return err
	}
	remaining := make(map[int64]int)
	for rows.Next() {
		var productID int64
		var qty int
		if err := rows.Scan(&productID, &qty); err != nil {
			_ = rows.Close()
			return err
		}
		remaining[productID] += qty
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	if len(remaining) == 0 {
		return store.ErrNotFound
	}

	priorRows, err := tx.QueryContext(ctx, `
		SELECT rl.product_id, COALESCE(SUM(rl.qty), 0)
		FROM return_lines rl
		JOIN order_returns r ON r.id = rl.return_id
		WHERE r.order_id = $1
		GROUP BY rl.product_id
	`, ret.OrderID)
	if err != nil {
		return err
	}
	for priorRows.Next() {
		var productID int64
		var qty int
		if err := priorRows.Scan(&productID, &qty); err != nil {
			_ = priorRows.Close()
			return err
		}
		remaining[productID] -= qty
	}
	if err := priorRows.Err(); err != nil {
		_ = priorRows.Close()
		return err
	}
	_ = priorRows.Close()

	for _, line := range ret.Lines {
		remaining[line.ProductID] -= line.Qty
		if remaining[line.ProductID] < 0 {
			return store.ErrReturnExceedsOrder
		}
	}
	return nil
}

// Document reads.

func (s *Store) GetOrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	var order domain.Order
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, date, subtotal_cents, tax_cents, grand_total_cents, user_id, created_at
		FROM orders WHERE id = $1
	`, id).Scan(&order.ID, &order.Code, &order.Date, &order.SubtotalCents, &order.TaxCents,
		&order.GrandTotalCents, &order.UserID, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	order.Lines, err = s.orderLines(ctx, id)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Store) orderLines(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, price_cents, qty, total_cents, note
		FROM order_lines WHERE order_id = $1 ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0, 8)
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.ProductName,
			&line.PriceCents, &line.Qty, &line.TotalCents, &line.Note); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Store) ListOrders(ctx context.Context, search string, lastID int64, limit int) ([]domain.DocumentSummary, error) {
	if limit < 1 {
		limit = 10
	}
	search = strings.TrimSpace(search)

	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.code, o.date, o.subtotal_cents, o.tax_cents, o.grand_total_cents, o.user_id, COALESCE(u.name, '')
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id
		WHERE ($1 = '' OR o.code ILIKE '%' || $1 || '%' OR u.name ILIKE '%' || $1 || '%' OR to_char(o.date, 'YYYY-MM-DD') ILIKE '%' || $1 || '%')
		  AND ($2 = 0 OR o.id < $2)
		ORDER BY o.id DESC
		LIMIT $3
	`, search, lastID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]domain.DocumentSummary, 0, limit)
	for rows.Next() {
		var sum domain.DocumentSummary
		if err := rows.Scan(&sum.ID, &sum.Code, &sum.Date, &sum.SubtotalCents, &sum.TaxCents,
			&sum.GrandTotalCents, &sum.UserID, &sum.UserName); err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *Store) ListOrdersBetween(ctx context.Context, from, to time.Time) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, date, subtotal_cents, tax_cents, grand_total_cents, user_id, created_at
		FROM orders
		WHERE date >= $1 AND date <= $2
		ORDER BY id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, 32)
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.Code, &order.Date, &order.SubtotalCents,
			&order.TaxCents, &order.GrandTotalCents, &order.UserID, &order.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		orders[i].Lines, err = s.orderLines(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *Store) GetPurchaseByID(ctx context.Context, id int64) (*domain.Purchase, error) {
	var purchase domain.Purchase
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, date, note, subtotal_cents, tax_cents, grand_total_cents, user_id, created_at
		FROM purchases WHERE id = $1
	`, id).Scan(&purchase.ID, &purchase.Code, &purchase.Date, &purchase.Note, &purchase.SubtotalCents,
		&purchase.TaxCents, &purchase.GrandTotalCents, &purchase.UserID, &purchase.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	purchase.Lines, err = s.purchaseLines(ctx, id)
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (s *Store) purchaseLines(ctx context.Context, purchaseID int64) ([]domain.PurchaseLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, purchase_id, product_id, product_name, price_cents, qty, total_cents
		FROM purchase_lines WHERE purchase_id = $1 ORDER BY id
	`, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.PurchaseLine, 0, 8)
	for rows.Next() {
		var line domain.PurchaseLine
		if err := rows.Scan(&line.ID, &line.PurchaseID, &line.ProductID, &line.ProductName,
			&line.PriceCents, &line.Qty, &line.TotalCents); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Store) ListPurchases(ctx context.Context, search string, lastID int64, limit int) ([]domain.DocumentSummary, error) {
	if limit < 1 {
		limit = 10
	}
	search = strings.TrimSpace(search)

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.code, p.date, p.note, p.subtotal_cents, p.tax_cents, p.grand_total_cents, p.user_id, COALESCE(u.name, '')
		FROM purchases p
		LEFT JOIN users u ON u.id = p.user_id
		WHERE ($1 = '' OR p.code ILIKE '%' || $1 || '%' OR p.note ILIKE '%' || $1 || '%' OR u.name ILIKE '%' || $1 || '%' OR to_char(p.date, 'YYYY-MM-DD') ILIKE '%' || $1 || '%')
		  AND ($2 = 0 OR p.id < $2)
		ORDER BY p.id DESC
		LIMIT $3
	`, search, lastID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]domain.DocumentSummary, 0, limit)
	for rows.Next() {
		var sum domain.DocumentSummary
		if err := rows.Scan(&sum.ID, &sum.Code, &sum.Date, &sum.Note, &sum.SubtotalCents,
			&sum.TaxCents, &sum.GrandTotalCents, &sum.UserID, &sum.UserName); err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *Store) ListPurchasesBetween(ctx context.Context, from, to time.Time) ([]domain.Purchase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, date, note, subtotal_cents, tax_cents, grand_total_cents, user_id, created_at
		FROM purchases
		WHERE date >= $1 AND date <= $2
		ORDER BY id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := make([]domain.Purchase, 0, 32)
	for rows.Next() {
		var purchase domain.Purchase
		if err := rows.Scan(&purchase.ID, &purchase.Code, &purchase.Date, &purchase.Note,
			&purchase.SubtotalCents, &purchase.TaxCents, &purchase.GrandTotalCents,
			&purchase.UserID, &purchase.CreatedAt); err != nil {
			return nil, err
		}
		purchases = append(purchases, purchase)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range purchases {
		purchases[i].Lines, err = s.purchaseLines(ctx, purchases[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return purchases, nil
}

func (s *Store) GetOrderReturnByID(ctx context.Context, id int64) (*domain.OrderReturn, error) {
	var ret domain.OrderReturn
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, order_id, date, note, user_id, created_at
		FROM order_returns WHERE id = $1
	`, id).Scan(&ret.ID, &ret.Code, &ret.OrderID, &ret.Date, &ret.Note, &ret.UserID, &ret.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, return_id, product_id, product_name, price_cents, qty, total_cents
		FROM return_lines WHERE return_id = $1 ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.ReturnLine
		if err := rows.Scan(&line.ID, &line.ReturnID, &line.ProductID, &line.ProductName,
			&line.PriceCents, &line.Qty, &line.TotalCents); err != nil {
			return nil, err
		}
		ret.Lines = append(ret.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (s *Store) ListOrderReturns(ctx context.Context, search string, lastID int64, limit int) ([]domain.DocumentSummary, error) {
	if limit < 1 {
		limit = 10
	}
	search = strings.TrimSpace(search)

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.code, r.date, r.note, r.user_id, COALESCE(u.name, '')
		FROM order_returns r
		LEFT JOIN users u ON u.id = r.user_id
		WHERE ($1 = '' OR r.code ILIKE '%' || $1 || '%' OR r.note ILIKE '%' || $1 || '%' OR u.name ILIKE '%' || $1 || '%')
		  AND ($2 = 0 OR r.id < $2)
		ORDER BY r.id DESC
		LIMIT $3
	`, search, lastID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]domain.DocumentSummary, 0, limit)
	for rows.Next() {
		var sum domain.DocumentSummary
		if err := rows.Scan(&sum.ID, &sum.Code, &sum.Date, &sum.Note, &sum.UserID, &sum.UserName); err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// Dashboard summaries.

func (s *Store) OrderYearlySummary(ctx context.Context, year int) (domain.YearlySummary, error) {
	return s.yearlySummary(ctx, "orders", year)
}

func (s *Store) PurchaseYearlySummary(ctx context.Context, year int) (domain.YearlySummary, error) {
	return s.yearlySummary(ctx, "purchases", year)
}

func (s *Store) yearlySummary(ctx context.Context, table string, year int) (domain.YearlySummary, error) {
	summary := domain.YearlySummary{Year: year, MonthlyTotals: make([]int64, 12)}

	// table is one of two compile-time constants, never user input.
	rows, err := s.db.QueryContext(ctx, `
		SELECT EXTRACT(MONTH FROM date)::int, COALESCE(SUM(grand_total_cents), 0)
		FROM `+table+`
		WHERE EXTRACT(YEAR FROM date)::int = $1
		GROUP BY 1
	`, year)
	if err != nil {
		return summary, err
	}
	defer rows.Close()

	for rows.Next() {
		var month int
		var total int64
		if err := rows.Scan(&month, &total); err != nil {
			return summary, err
		}
		if month >= 1 && month <= 12 {
			summary.MonthlyTotals[month-1] = total
		}
	}
	if err := rows.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// Helpers.

// mapTxError normalizes errors escaping a document-flow transaction.
// Under serializable isolation a 40001 abort can surface on any statement,
// not only at commit, so every error leaving a flow passes through here;
// aborts and code unique violations both become ErrCodeConflict so the
// service's single retry covers them. Sentinels pass through unchanged.
func mapTxError(err error) error {
	if err == nil {
		return nil
	}
	if isSerializationFailure(err) || isUniqueViolation(err) {
		return store.ErrCodeConflict
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullIfZero(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}
