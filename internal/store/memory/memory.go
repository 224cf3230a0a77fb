package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"medipos/backend/internal/domain"
	"medipos/backend/internal/store"
)

// Store is an in-memory Repository used for dev mode and tests. It mirrors
// the behavior of the postgres store, including the all-or-nothing stock
// decrement in CreateSale.
type Store struct {
	mu            sync.RWMutex
	usersByID     map[string]domain.User
	productsByID  map[string]domain.Product
	barcodeIndex  map[string]string
	sales         []domain.Sale
	customersByID map[string]domain.Customer
	eventsByID    map[string]domain.CalendarEvent
}

func New() *Store {
	return &Store{
		usersByID:     make(map[string]domain.User),
		productsByID:  make(map[string]domain.Product),
		barcodeIndex:  make(map[string]string),
		customersByID: make(map[string]domain.Customer),
		eventsByID:    make(map[string]domain.CalendarEvent),
	}
}

// NewSeeded returns a store preloaded with a small medical-supply catalog and
// the dev accounts. Seed credentials come from SEED_ADMIN_PASSWORD and
// SEED_SALES_PASSWORD; hardcoded dev defaults are used (with a warning) when
// unset. Production deployments use the postgres store instead.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	products := []domain.Product{
		{Name: "Sterile Gauze Roll 10cm", Barcode: "8690001000017", Quantity: 120, MinQuantity: 20, Brand: "MediWrap", Category: "wound-care", PurchasePriceCents: 650, SalePriceCents: 1000},
		{Name: "Nitrile Gloves M (100)", Barcode: "8690001000024", Quantity: 80, MinQuantity: 15, Brand: "SafeHands", Category: "protection", PurchasePriceCents: 1800, SalePriceCents: 2550},
		{Name: "Digital Thermometer", Barcode: "8690001000031", Quantity: 35, MinQuantity: 5, Brand: "TermoPlus", Category: "diagnostics", PurchasePriceCents: 9900, SalePriceCents: 14990},
		{Name: "Blood Pressure Monitor", Barcode: "8690001000048", Quantity: 12, MinQuantity: 3, Brand: "TensioCare", Category: "diagnostics", PurchasePriceCents: 52000, SalePriceCents: 74900},
		{Name: "Surgical Mask (50)", Barcode: "8690001000055", Quantity: 200, MinQuantity: 40, Brand: "SafeHands", Category: "protection", PurchasePriceCents: 1200, SalePriceCents: 1990},
		{Name: "Elastic Bandage 8cm", Barcode: "8690001000062", Quantity: 4, MinQuantity: 10, Brand: "MediWrap", Category: "wound-care", PurchasePriceCents: 450, SalePriceCents: 790},
		{Name: "Pulse Oximeter", Barcode: "8690001000079", Quantity: 18, MinQuantity: 4, Brand: "OxyCheck", Category: "diagnostics", PurchasePriceCents: 15500, SalePriceCents: 22900},
		{Name: "Antiseptic Solution 1L", Barcode: "8690001000086", Quantity: 60, MinQuantity: 12, Brand: "SeptiClean", Category: "disinfection", PurchasePriceCents: 3900, SalePriceCents: 5990},
	}
	for _, p := range products {
		p.ID = uuid.NewString()
		p.CreatedAt = now
		p.UpdatedAt = now
		s.productsByID[p.ID] = p
		s.barcodeIndex[p.Barcode] = p.ID
	}

	for _, u := range seedUsers(now) {
		s.usersByID[u.ID] = u
	}
	return s
}

func seedUsers(now time.Time) []domain.User {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	salesPwd := envOr("SEED_SALES_PASSWORD", "sales123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_SALES_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_SALES_PASSWORD to override.")
	}

	users := make([]domain.User, 0, 2)
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"sales", salesPwd, domain.RoleSales},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users = append(users, domain.User{
			ID:           uuid.NewString(),
			Username:     u.username,
			Role:         u.role,
			PasswordHash: string(hash),
			CreatedAt:    now,
		})
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) CreateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.usersByID {
		if existing.Username == user.Username {
			return nil, store.ErrConflict
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByID[user.ID] = user
	created := user
	return &created, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.usersByID {
		if user.Username == username {
			found := user
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := user
	return &found, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.User, 0, len(s.usersByID))
	for _, user := range s.usersByID {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.User) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.usersByID, id)
	return nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Name == "" || product.Barcode == "" {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.barcodeIndex[product.Barcode]; exists {
		return nil, store.ErrConflict
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	s.productsByID[product.ID] = product
	s.barcodeIndex[product.Barcode] = product.ID
	created := product
	return &created, nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})
	return products, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.productsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := product
	return &found, nil
}

func (s *Store) GetProductByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.barcodeIndex[barcode]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := s.productsByID[id]
	return &found, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.productsByID[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if product.Name == "" || product.Barcode == "" {
		return nil, store.ErrInvalidInput
	}
	if other, exists := s.barcodeIndex[product.Barcode]; exists && other != product.ID {
		return nil, store.ErrConflict
	}

	if existing.Barcode != product.Barcode {
		delete(s.barcodeIndex, existing.Barcode)
		s.barcodeIndex[product.Barcode] = product.ID
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	s.productsByID[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.productsByID[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.barcodeIndex, product.Barcode)
	delete(s.productsByID, id)
	return nil
}

func (s *Store) ListLowStockProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, 8)
	for _, p := range s.productsByID {
		if p.Quantity <= p.MinQuantity {
			products = append(products, p)
		}
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return strings.Compare(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	// Admission check first so a rejected sale leaves every quantity intact.
	for _, item := range sale.Items {
		product, ok := s.productsByID[item.ProductID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if product.Quantity < item.Quantity {
			return nil, store.ErrInsufficientStock
		}
	}

	now := time.Now().UTC()
	for _, item := range sale.Items {
		product := s.productsByID[item.ProductID]
		product.Quantity -= item.Quantity
		product.UpdatedAt = now
		s.productsByID[item.ProductID] = product
	}

	if sale.CustomerID != "" {
		if customer, ok := s.customersByID[sale.CustomerID]; ok && !customer.Deleted {
			customer.TotalSpentCents += sale.FinalAmountCents
			s.customersByID[sale.CustomerID] = customer
		}
	}

	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = now
	}
	s.sales = append(s.sales, sale)
	created := sale
	return &created, nil
}

func (s *Store) ListSales(_ context.Context, from, to *time.Time) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if from != nil && sale.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && sale.CreatedAt.After(*to) {
			continue
		}
		sales = append(sales, sale)
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return sales, nil
}

func (s *Store) ListSalesByCustomer(_ context.Context, customerID string) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, 8)
	for _, sale := range s.sales {
		if sale.CustomerID == customerID {
			sales = append(sales, sale)
		}
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return sales, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customersByID[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customersByID))
	for _, c := range s.customersByID {
		if c.Deleted {
			continue
		}
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return strings.Compare(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) GetCustomerByID(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customersByID[id]
	if !ok || customer.Deleted {
		return nil, store.ErrNotFound
	}
	found := customer
	return &found, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customersByID[customer.ID]
	if !ok || existing.Deleted {
		return nil, store.ErrNotFound
	}
	if customer.Name == "" {
		return nil, store.ErrInvalidInput
	}
	customer.CreatedAt = existing.CreatedAt
	customer.TotalSpentCents = existing.TotalSpentCents
	customer.Deleted = existing.Deleted
	s.customersByID[customer.ID] = customer
	updated := customer
	return &updated, nil
}

func (s *Store) SoftDeleteCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customersByID[id]
	if !ok || customer.Deleted {
		return store.ErrNotFound
	}
	customer.Deleted = true
	s.customersByID[id] = customer
	return nil
}

func (s *Store) CreateCalendarEvent(_ context.Context, event domain.CalendarEvent) (*domain.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.Title == "" || event.UserID == "" {
		return nil, store.ErrInvalidInput
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	s.eventsByID[event.ID] = event
	created := event
	return &created, nil
}

func (s *Store) ListCalendarEvents(_ context.Context, userID string, from, to *time.Time) ([]domain.CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]domain.CalendarEvent, 0, 8)
	for _, event := range s.eventsByID {
		if event.UserID != userID {
			continue
		}
		if from != nil && event.Date.Before(*from) {
			continue
		}
		if to != nil && event.Date.After(*to) {
			continue
		}
		events = append(events, event)
	}
	slices.SortFunc(events, func(a, b domain.CalendarEvent) int {
		return a.Date.Compare(b.Date)
	})
	return events, nil
}

func (s *Store) DeleteCalendarEvent(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.eventsByID[id]
	if !ok || event.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.eventsByID, id)
	return nil
}

func (s *Store) TopSellingProducts(_ context.Context, from, to time.Time, limit int) ([]domain.TopSellingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byProduct := make(map[string]*domain.TopSellingEntry)
	for _, sale := range s.sales {
		if sale.CreatedAt.Before(from) || sale.CreatedAt.After(to) {
			continue
		}
		for _, item := range sale.Items {
			entry, ok := byProduct[item.ProductID]
			if !ok {
				entry = &domain.TopSellingEntry{ProductID: item.ProductID, ProductName: item.Name}
				byProduct[item.ProductID] = entry
			}
			entry.TotalQuantity += item.Quantity
			entry.RevenueCents += item.TotalCents
		}
	}

	entries := make([]domain.TopSellingEntry, 0, len(byProduct))
	for _, entry := range byProduct {
		entries = append(entries, *entry)
	}
	slices.SortFunc(entries, func(a, b domain.TopSellingEntry) int {
		if a.TotalQuantity == b.TotalQuantity {
			return strings.Compare(a.ProductID, b.ProductID)
		}
		return b.TotalQuantity - a.TotalQuantity
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Store) TopProfitProducts(_ context.Context, from, to time.Time, limit int) ([]domain.TopProfitEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byProduct := make(map[string]*domain.TopProfitEntry)
	for _, sale := range s.sales {
		if sale.CreatedAt.Before(from) || sale.CreatedAt.After(to) {
			continue
		}
		for _, item := range sale.Items {
			product, ok := s.productsByID[item.ProductID]
			if !ok {
				continue
			}
			entry, found := byProduct[item.ProductID]
			if !found {
				entry = &domain.TopProfitEntry{ProductID: item.ProductID, ProductName: item.Name}
				byProduct[item.ProductID] = entry
			}
			entry.TotalQuantity += item.Quantity
			entry.ProfitCents += (item.PriceCents - product.PurchasePriceCents) * int64(item.Quantity)
		}
	}

	entries := make([]domain.TopProfitEntry, 0, len(byProduct))
	for _, entry := range byProduct {
		entries = append(entries, *entry)
	}
	slices.SortFunc(entries, func(a, b domain.TopProfitEntry) int {
		if a.ProfitCents == b.ProfitCents {
			return strings.Compare(a.ProductID, b.ProductID)
		}
		if a.ProfitCents > b.ProfitCents {
			return -1
		}
		return 1
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Store) DashboardStats(_ context.Context, now time.Time) (domain.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.DashboardStats{TotalProducts: len(s.productsByID)}
	for _, p := range s.productsByID {
		if p.Quantity <= p.MinQuantity {
			stats.LowStockCount++
		}
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := today.AddDate(0, 0, -7)
	for _, sale := range s.sales {
		if !sale.CreatedAt.Before(today) {
			stats.TodaySalesCount++
			stats.TodayRevenueCents += sale.FinalAmountCents
		}
		if !sale.CreatedAt.Before(weekAgo) {
			stats.WeekSalesCount++
			stats.WeekRevenueCents += sale.FinalAmountCents
		}
	}
	return stats, nil
}
