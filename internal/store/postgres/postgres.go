package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"medipos/backend/internal/domain"
	"medipos/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
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

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RunMigrations applies pending migrations from the given directory.
// ErrNoChange is not an error.
func (s *Store) RunMigrations(migrationsDir string) error {
	driver, err := migratepg.WithInstance(s.db, &migratepg.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir, "postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, role, password_hash, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, user.ID, user.Username, user.Email, user.Role, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := user
	return &created, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findUser(ctx, "username", username)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findUser(ctx, "id", id)
}

func (s *Store) findUser(ctx context.Context, column, value string) (*domain.User, error) {
	query := `
		SELECT id, username, email, role, password_hash, created_at
		FROM users
		WHERE username = $1
	`
	if column == "id" {
		query = `
			SELECT id, username, email, role, password_hash, created_at
			FROM users
			WHERE id = $1
		`
	}

	var user domain.User
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID, &user.Username, &user.Email, &user.Role, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, email, role, password_hash, created_at
		FROM users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0, 16)
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.PasswordHash, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
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

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Barcode == "" {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (
			id, name, barcode, quantity, min_quantity, brand, category,
			purchase_price_cents, sale_price_cents, description, image_url, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, product.ID, product.Name, product.Barcode, product.Quantity, product.MinQuantity,
		product.Brand, product.Category, product.PurchasePriceCents, product.SalePriceCents,
		product.Description, product.ImageURL, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := product
	return &created, nil
}

const productColumns = `
	id, name, barcode, quantity, min_quantity, brand, category,
	purchase_price_cents, sale_price_cents, description, image_url, created_at, updated_at
`

func scanProduct(row interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Barcode, &p.Quantity, &p.MinQuantity, &p.Brand, &p.Category,
		&p.PurchasePriceCents, &p.SalePriceCents, &p.Description, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return p, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
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

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE barcode = $1
	`, barcode)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Barcode == "" {
		return nil, store.ErrInvalidInput
	}

	product.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, barcode = $3, quantity = $4, min_quantity = $5, brand = $6,
			category = $7, purchase_price_cents = $8, sale_price_cents = $9,
			description = $10, image_url = $11, updated_at = $12
		WHERE id = $1
	`, product.ID, product.Name, product.Barcode, product.Quantity, product.MinQuantity,
		product.Brand, product.Category, product.PurchasePriceCents, product.SalePriceCents,
		product.Description, product.ImageURL, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
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

func (s *Store) ListLowStockProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE quantity <= min_quantity
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 16)
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

// CreateSale inserts the sale, decrements stock for every line and bumps the
// customer's lifetime total inside one serializable transaction. The guarded
// decrement makes overselling impossible even under concurrent checkouts.
func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range sale.Items {
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET quantity = quantity - $1, updated_at = now()
			WHERE id = $2 AND quantity >= $1
		`, item.Quantity, item.ProductID)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, item.ProductID).Scan(&exists); err != nil {
				return nil, err
			}
			if !exists {
				return nil, store.ErrNotFound
			}
			return nil, store.ErrInsufficientStock
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, total_amount_cents, discount_cents, final_amount_cents, payment_method, customer_id, cashier_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, sale.ID, sale.TotalAmountCents, sale.DiscountCents, sale.FinalAmountCents,
		sale.PaymentMethod, nullIfEmpty(sale.CustomerID), nullIfEmpty(sale.CashierID), sale.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, item := range sale.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, name, quantity, price_cents, total_cents)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, sale.ID, item.ProductID, item.Name, item.Quantity, item.PriceCents, item.TotalCents)
		if err != nil {
			return nil, err
		}
	}

	if sale.CustomerID != "" {
		_, err := tx.ExecContext(ctx, `
			UPDATE customers
			SET total_spent_cents = total_spent_cents + $1
			WHERE id = $2 AND deleted = false
		`, sale.FinalAmountCents, sale.CustomerID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := sale
	return &created, nil
}

func (s *Store) ListSales(ctx context.Context, from, to *time.Time) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, total_amount_cents, discount_cents, final_amount_cents, payment_method,
			COALESCE(customer_id::text, ''), COALESCE(cashier_id::text, ''), created_at
		FROM sales
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
			AND ($2::timestamptz IS NULL OR created_at <= $2)
		ORDER BY created_at DESC
	`, nullTimePtr(from), nullTimePtr(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales, err := s.collectSales(ctx, rows)
	if err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) ListSalesByCustomer(ctx context.Context, customerID string) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, total_amount_cents, discount_cents, final_amount_cents, payment_method,
			COALESCE(customer_id::text, ''), COALESCE(cashier_id::text, ''), created_at
		FROM sales
		WHERE customer_id = $1
		ORDER BY created_at DESC
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales, err := s.collectSales(ctx, rows)
	if err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) collectSales(ctx context.Context, rows *sql.Rows) ([]domain.Sale, error) {
	sales := make([]domain.Sale, 0, 32)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.TotalAmountCents, &sale.DiscountCents, &sale.FinalAmountCents,
			&sale.PaymentMethod, &sale.CustomerID, &sale.CashierID, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sale.CreatedAt = sale.CreatedAt.UTC()
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sales {
		items, err := s.saleItems(ctx, sales[i].ID)
		if err != nil {
			return nil, err
		}
		sales[i].Items = items
	}
	return sales, nil
}

func (s *Store) saleItems(ctx context.Context, saleID string) ([]domain.SaleItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, name, quantity, price_cents, total_cents
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY id ASC
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SaleItem, 0, 8)
	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.PriceCents, &item.TotalCents); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, email, address, notes, total_spent_cents, deleted, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,false,$8)
	`, customer.ID, customer.Name, customer.Phone, customer.Email, customer.Address,
		customer.Notes, customer.TotalSpentCents, customer.CreatedAt)
	if err != nil {
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, email, address, notes, total_spent_cents, created_at
		FROM customers
		WHERE deleted = false
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 32)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.Notes, &c.TotalSpentCents, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, address, notes, total_spent_cents, created_at
		FROM customers
		WHERE id = $1 AND deleted = false
	`, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.Notes, &c.TotalSpentCents, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET name = $2, phone = $3, email = $4, address = $5, notes = $6
		WHERE id = $1 AND deleted = false
	`, customer.ID, customer.Name, customer.Phone, customer.Email, customer.Address, customer.Notes)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetCustomerByID(ctx, customer.ID)
}

func (s *Store) SoftDeleteCustomer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET deleted = true
		WHERE id = $1 AND deleted = false
	`, id)
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

func (s *Store) CreateCalendarEvent(ctx context.Context, event domain.CalendarEvent) (*domain.CalendarEvent, error) {
	if event.Title == "" || event.UserID == "" {
		return nil, store.ErrInvalidInput
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calendar_events (id, title, description, event_date, alarm, user_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, event.ID, event.Title, event.Description, event.Date, event.Alarm, event.UserID, event.CreatedAt)
	if err != nil {
		return nil, err
	}

	created := event
	return &created, nil
}

func (s *Store) ListCalendarEvents(ctx context.Context, userID string, from, to *time.Time) ([]domain.CalendarEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, event_date, alarm, user_id, created_at
		FROM calendar_events
		WHERE user_id = $1
			AND ($2::timestamptz IS NULL OR event_date >= $2)
			AND ($3::timestamptz IS NULL OR event_date <= $3)
		ORDER BY event_date ASC
	`, userID, nullTimePtr(from), nullTimePtr(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.CalendarEvent, 0, 16)
	for rows.Next() {
		var event domain.CalendarEvent
		if err := rows.Scan(&event.ID, &event.Title, &event.Description, &event.Date, &event.Alarm, &event.UserID, &event.CreatedAt); err != nil {
			return nil, err
		}
		event.Date = event.Date.UTC()
		event.CreatedAt = event.CreatedAt.UTC()
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) DeleteCalendarEvent(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM calendar_events
		WHERE id = $1 AND user_id = $2
	`, id, userID)
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

func (s *Store) TopSellingProducts(ctx context.Context, from, to time.Time, limit int) ([]domain.TopSellingEntry, error) {
	if limit < 1 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT si.product_id, MIN(si.name), COALESCE(SUM(si.quantity),0)::int, COALESCE(SUM(si.total_cents),0)::bigint
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		WHERE s.created_at BETWEEN $1 AND $2
		GROUP BY si.product_id
		ORDER BY SUM(si.quantity) DESC, si.product_id
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.TopSellingEntry, 0, limit)
	for rows.Next() {
		var entry domain.TopSellingEntry
		if err := rows.Scan(&entry.ProductID, &entry.ProductName, &entry.TotalQuantity, &entry.RevenueCents); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) TopProfitProducts(ctx context.Context, from, to time.Time, limit int) ([]domain.TopProfitEntry, error) {
	if limit < 1 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT si.product_id, MIN(si.name), COALESCE(SUM(si.quantity),0)::int,
			COALESCE(SUM((si.price_cents - p.purchase_price_cents) * si.quantity),0)::bigint AS profit
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		JOIN products p ON p.id = si.product_id
		WHERE s.created_at BETWEEN $1 AND $2
		GROUP BY si.product_id
		ORDER BY profit DESC, si.product_id
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.TopProfitEntry, 0, limit)
	for rows.Next() {
		var entry domain.TopProfitEntry
		if err := rows.Scan(&entry.ProductID, &entry.ProductName, &entry.TotalQuantity, &entry.ProfitCents); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) DashboardStats(ctx context.Context, now time.Time) (domain.DashboardStats, error) {
	var stats domain.DashboardStats

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)::int,
			COALESCE(SUM(CASE WHEN quantity <= min_quantity THEN 1 ELSE 0 END),0)::int
		FROM products
	`).Scan(&stats.TotalProducts, &stats.LowStockCount)
	if err != nil {
		return stats, err
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := today.AddDate(0, 0, -7)

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)::int, COALESCE(SUM(final_amount_cents),0)::bigint
		FROM sales
		WHERE created_at >= $1
	`, today).Scan(&stats.TodaySalesCount, &stats.TodayRevenueCents)
	if err != nil {
		return stats, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)::int, COALESCE(SUM(final_amount_cents),0)::bigint
		FROM sales
		WHERE created_at >= $1
	`, weekAgo).Scan(&stats.WeekSalesCount, &stats.WeekRevenueCents)
	if err != nil {
		return stats, err
	}

	return stats, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTimePtr(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
