package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"medipos/backend/internal/cache"
	"medipos/backend/internal/domain"
	"medipos/backend/internal/pos"
	"medipos/backend/internal/store"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient role")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo   store.Repository
	kv     cache.KV
	logger *zap.Logger

	sessionsMu sync.Mutex
	sessions   map[string]*posSession
}

// posSession is one operator's live cart. Its mutex serializes HTTP requests
// touching the same cart; the in-flight submission guard inside the cart
// handles anything that still slips past.
type posSession struct {
	mu   sync.Mutex
	cart *pos.Cart
}

func New(repo store.Repository, kv cache.KV, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		kv:       kv,
		logger:   logger,
		sessions: make(map[string]*posSession),
	}
}

func requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, ErrUnauthenticated
	}
	return actor, nil
}

func requireRole(ctx context.Context, roles ...string) (domain.Actor, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.Actor{}, err
	}
	for _, role := range roles {
		if actor.Role == role {
			return actor, nil
		}
	}
	return domain.Actor{}, ErrForbidden
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	actor, err := requireRole(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}
	if actor.ID == id {
		return store.ErrInvalidInput
	}
	return s.repo.DeleteUser(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.Product{}, err
	}
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) GetProductByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.Product{}, err
	}
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	product, err := s.repo.GetProductByBarcode(ctx, barcode)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, err := requireRole(ctx, domain.RoleAdmin, domain.RoleInventory)
	if err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Barcode = strings.TrimSpace(req.Barcode)
	if req.Name == "" || req.Barcode == "" || req.Quantity < 0 || req.MinQuantity < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	purchaseCents, err := domain.CentsFromDecimal(req.PurchasePrice)
	if err != nil {
		return domain.Product{}, err
	}
	saleCents, err := domain.CentsFromDecimal(req.SalePrice)
	if err != nil {
		return domain.Product{}, err
	}

	product := domain.Product{
		Name:               req.Name,
		Barcode:            req.Barcode,
		Quantity:           req.Quantity,
		MinQuantity:        req.MinQuantity,
		Brand:              strings.TrimSpace(req.Brand),
		Category:           strings.TrimSpace(req.Category),
		PurchasePriceCents: purchaseCents,
		SalePriceCents:     saleCents,
		Description:        req.Description,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.logger.Info("product created",
		zap.String("product_id", created.ID),
		zap.String("barcode", created.Barcode),
		zap.String("actor", actor.Username))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin, domain.RoleInventory); err != nil {
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
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Barcode != nil {
		barcode := strings.TrimSpace(*req.Barcode)
		if barcode == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Barcode = barcode
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Quantity = *req.Quantity
	}
	if req.MinQuantity != nil {
		if *req.MinQuantity < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.MinQuantity = *req.MinQuantity
	}
	if req.Brand != nil {
		updated.Brand = strings.TrimSpace(*req.Brand)
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.PurchasePrice != nil {
		cents, err := domain.CentsFromDecimal(*req.PurchasePrice)
		if err != nil {
			return domain.Product{}, err
		}
		updated.PurchasePriceCents = cents
	}
	if req.SalePrice != nil {
		cents, err := domain.CentsFromDecimal(*req.SalePrice)
		if err != nil {
			return domain.Product{}, err
		}
		updated.SalePriceCents = cents
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	return s.repo.DeleteProduct(ctx, id)
}

func (s *Service) LowStockProducts(ctx context.Context) ([]domain.Product, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListLowStockProducts(ctx)
}

func (s *Service) ListSales(ctx context.Context, from, to *time.Time) ([]domain.Sale, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListSales(ctx, from, to)
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.Customer{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Customer{}, store.ErrInvalidInput
	}

	customer := domain.Customer{
		Name:    req.Name,
		Phone:   strings.TrimSpace(req.Phone),
		Email:   strings.TrimSpace(req.Email),
		Address: strings.TrimSpace(req.Address),
		Notes:   req.Notes,
	}
	created, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	return *created, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListCustomers(ctx)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.Customer{}, err
	}
	customer, err := s.repo.GetCustomerByID(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.Customer{}, err
	}

	existing, err := s.repo.GetCustomerByID(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Customer{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		updated.Email = strings.TrimSpace(*req.Email)
	}
	if req.Address != nil {
		updated.Address = strings.TrimSpace(*req.Address)
	}
	if req.Notes != nil {
		updated.Notes = *req.Notes
	}

	saved, err := s.repo.UpdateCustomer(ctx, updated)
	if err != nil {
		return domain.Customer{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	actor, err := requireRole(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDeleteCustomer(ctx, id); err != nil {
		return err
	}
	s.logger.Info("customer soft-deleted",
		zap.String("customer_id", id),
		zap.String("actor", actor.Username))
	return nil
}

func (s *Service) CustomerPurchases(ctx context.Context, id string) ([]domain.Sale, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetCustomerByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListSalesByCustomer(ctx, id)
}

func (s *Service) CreateCalendarEvent(ctx context.Context, req domain.CalendarEventCreateRequest) (domain.CalendarEvent, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.CalendarEvent{}, err
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.Date.IsZero() {
		return domain.CalendarEvent{}, store.ErrInvalidInput
	}

	event := domain.CalendarEvent{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date.UTC(),
		Alarm:       req.Alarm,
		UserID:      actor.ID,
	}
	created, err := s.repo.CreateCalendarEvent(ctx, event)
	if err != nil {
		return domain.CalendarEvent{}, err
	}
	return *created, nil
}

func (s *Service) ListCalendarEvents(ctx context.Context, from, to *time.Time) ([]domain.CalendarEvent, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCalendarEvents(ctx, actor.ID, from, to)
}

func (s *Service) DeleteCalendarEvent(ctx context.Context, id string) error {
	actor, err := requireActor(ctx)
	if err != nil {
		return err
	}
	return s.repo.DeleteCalendarEvent(ctx, id, actor.ID)
}

func (s *Service) TopSellingProducts(ctx context.Context, from, to time.Time, limit int) ([]domain.TopSellingEntry, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	return s.repo.TopSellingProducts(ctx, from, to, limit)
}

func (s *Service) TopProfitProducts(ctx context.Context, from, to time.Time, limit int) ([]domain.TopProfitEntry, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	return s.repo.TopProfitProducts(ctx, from, to, limit)
}

func (s *Service) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.DashboardStats{}, err
	}
	return s.repo.DashboardStats(ctx, time.Now().UTC())
}

const reportSnapshotPrefix = "report:snapshot:"

// SaveReportSnapshot stores an arbitrary report payload under a name so a
// manager can pin end-of-day numbers. Snapshots never expire.
func (s *Service) SaveReportSnapshot(ctx context.Context, name string, payload json.RawMessage) error {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" || len(payload) == 0 {
		return store.ErrInvalidInput
	}
	return s.kv.Set(ctx, reportSnapshotPrefix+name, payload, 0)
}

func (s *Service) GetReportSnapshot(ctx context.Context, name string) (json.RawMessage, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	payload, ok, err := s.kv.Get(ctx, reportSnapshotPrefix+name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, store.ErrNotFound
	}
	return payload, nil
}

func (s *Service) session(actorID string) *posSession {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	sess, ok := s.sessions[actorID]
	if !ok {
		sess = &posSession{cart: pos.NewCart()}
		s.sessions[actorID] = sess
	}
	return sess
}

// Scan adds one unit of the product with the given barcode to the operator's
// cart, loading a fresh stock snapshot from the catalog.
func (s *Service) Scan(ctx context.Context, barcode string) (domain.CartView, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.CartView{}, err
	}
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return domain.CartView{}, store.ErrInvalidInput
	}

	product, err := s.repo.GetProductByBarcode(ctx, barcode)
	if err != nil {
		return domain.CartView{}, err
	}

	sess := s.session(actor.ID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	err = sess.cart.AddProduct(pos.Product{
		ID:             product.ID,
		Name:           product.Name,
		Brand:          product.Brand,
		Quantity:       product.Quantity,
		SalePriceCents: product.SalePriceCents,
	})
	if err != nil {
		return domain.CartView{}, err
	}
	return cartView(sess.cart), nil
}

func (s *Service) SetCartQuantity(ctx context.Context, productID string, quantity int) (domain.CartView, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.CartView{}, err
	}

	sess := s.session(actor.ID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.cart.SetQuantity(productID, quantity); err != nil {
		return domain.CartView{}, err
	}
	return cartView(sess.cart), nil
}

func (s *Service) RemoveCartLine(ctx context.Context, productID string) (domain.CartView, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.CartView{}, err
	}

	sess := s.session(actor.ID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.cart.RemoveLine(productID); err != nil {
		return domain.CartView{}, err
	}
	return cartView(sess.cart), nil
}

func (s *Service) ClearCart(ctx context.Context) (domain.CartView, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.CartView{}, err
	}

	sess := s.session(actor.ID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.cart.Clear(); err != nil {
		return domain.CartView{}, err
	}
	return cartView(sess.cart), nil
}

func (s *Service) GetCart(ctx context.Context) (domain.CartView, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.CartView{}, err
	}

	sess := s.session(actor.ID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	return cartView(sess.cart), nil
}

// CheckoutCart submits the operator's cart. The sale is recorded atomically
// by the repository; on success the cart is empty, on failure it is left
// untouched so the operator can retry or adjust.
func (s *Service) CheckoutCart(ctx context.Context, req domain.CheckoutRequest) (domain.Sale, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.Sale{}, err
	}

	if req.Discount.IsNegative() {
		return domain.Sale{}, pos.ErrInvalidDiscount
	}
	discountCents, err := domain.CentsFromDecimal(req.Discount)
	if err != nil {
		return domain.Sale{}, err
	}
	method, err := pos.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return domain.Sale{}, err
	}

	if req.CustomerID != "" {
		if _, err := s.repo.GetCustomerByID(ctx, req.CustomerID); err != nil {
			return domain.Sale{}, err
		}
	}

	var recorded domain.Sale
	checkout := pos.NewCheckout(pos.SaleRecorderFunc(func(ctx context.Context, sale pos.Sale) error {
		items := make([]domain.SaleItem, 0, len(sale.Items))
		for _, item := range sale.Items {
			items = append(items, domain.SaleItem{
				ProductID:  item.ProductID,
				Name:       item.Name,
				Quantity:   item.Quantity,
				PriceCents: item.PriceCents,
				TotalCents: item.TotalCents,
			})
		}
		created, err := s.repo.CreateSale(ctx, domain.Sale{
			ID:               uuid.NewString(),
			Items:            items,
			TotalAmountCents: sale.TotalAmountCents,
			DiscountCents:    sale.DiscountCents,
			FinalAmountCents: sale.FinalAmountCents,
			PaymentMethod:    string(sale.PaymentMethod),
			CustomerID:       req.CustomerID,
			CashierID:        actor.ID,
			CreatedAt:        time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		recorded = *created
		return nil
	}))

	sess := s.session(actor.ID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if _, err := checkout.Submit(ctx, sess.cart, discountCents, method); err != nil {
		return domain.Sale{}, err
	}

	s.logger.Info("sale recorded",
		zap.String("sale_id", recorded.ID),
		zap.Int64("final_amount_cents", recorded.FinalAmountCents),
		zap.String("payment_method", recorded.PaymentMethod),
		zap.String("cashier", actor.Username))
	return recorded, nil
}

func cartView(cart *pos.Cart) domain.CartView {
	lines := cart.Lines()
	view := domain.CartView{
		Lines:         make([]domain.CartLineView, 0, len(lines)),
		SubtotalCents: cart.SubtotalCents(),
	}
	for _, line := range lines {
		view.Lines = append(view.Lines, domain.CartLineView{
			ProductID:         line.ProductID,
			Name:              line.Name,
			Brand:             line.Brand,
			UnitPriceCents:    line.UnitPriceCents,
			Quantity:          line.Quantity,
			AvailableQuantity: line.AvailableQuantity,
			TotalCents:        line.TotalCents(),
		})
	}
	return view
}
