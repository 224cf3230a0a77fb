package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"medipos/backend/internal/cache"
	"medipos/backend/internal/domain"
	"medipos/backend/internal/pos"
	"medipos/backend/internal/store"
	"medipos/backend/internal/store/memory"
)

const (
	gauzeBarcode   = "8690001000017"
	bandageBarcode = "8690001000062"
)

func newTestService() (*Service, *memory.Store) {
	repo := memory.NewSeeded()
	return New(repo, cache.NewMemoryKV(), zap.NewNop()), repo
}

func salesContext() context.Context {
	return WithActor(context.Background(), domain.Actor{
		ID:       "op-1",
		Username: "sales",
		Role:     domain.RoleSales,
	})
}

func adminContext() context.Context {
	return WithActor(context.Background(), domain.Actor{
		ID:       "admin-1",
		Username: "admin",
		Role:     domain.RoleAdmin,
	})
}

func TestScanAccumulatesQuantity(t *testing.T) {
	svc, _ := newTestService()
	ctx := salesContext()

	view, err := svc.Scan(ctx, gauzeBarcode)
	if err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
	if len(view.Lines) != 1 || view.Lines[0].Quantity != 1 {
		t.Fatalf("expected one line with quantity 1, got %+v", view.Lines)
	}

	view, err = svc.Scan(ctx, gauzeBarcode)
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	if len(view.Lines) != 1 || view.Lines[0].Quantity != 2 {
		t.Fatalf("expected single line with quantity 2, got %+v", view.Lines)
	}
	if view.SubtotalCents != 2*view.Lines[0].UnitPriceCents {
		t.Fatalf("subtotal %d does not match 2x unit price %d", view.SubtotalCents, view.Lines[0].UnitPriceCents)
	}
}

func TestScanUnknownBarcode(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Scan(salesContext(), "0000000000000")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetCartQuantityRejectsAboveStock(t *testing.T) {
	svc, repo := newTestService()
	ctx := salesContext()

	if _, err := svc.Scan(ctx, bandageBarcode); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	product, err := repo.GetProductByBarcode(context.Background(), bandageBarcode)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}

	if _, err := svc.SetCartQuantity(ctx, product.ID, product.Quantity+1); !errors.Is(err, pos.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	view, err := svc.SetCartQuantity(ctx, product.ID, product.Quantity)
	if err != nil {
		t.Fatalf("setting to full stock failed: %v", err)
	}
	if view.Lines[0].Quantity != product.Quantity {
		t.Fatalf("expected quantity %d, got %d", product.Quantity, view.Lines[0].Quantity)
	}
}

func TestCartsAreIsolatedPerOperator(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.Scan(salesContext(), gauzeBarcode); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	view, err := svc.GetCart(adminContext())
	if err != nil {
		t.Fatalf("get cart failed: %v", err)
	}
	if len(view.Lines) != 0 {
		t.Fatalf("expected empty cart for other operator, got %d lines", len(view.Lines))
	}
}

func TestCheckoutRecordsSaleAndClearsCart(t *testing.T) {
	svc, repo := newTestService()
	ctx := salesContext()

	if _, err := svc.Scan(ctx, gauzeBarcode); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if _, err := svc.Scan(ctx, gauzeBarcode); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	before, err := repo.GetProductByBarcode(context.Background(), gauzeBarcode)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}

	sale, err := svc.CheckoutCart(ctx, domain.CheckoutRequest{
		Discount:      decimal.NewFromFloat(5.00),
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if sale.TotalAmountCents != 2000 {
		t.Fatalf("expected total 2000, got %d", sale.TotalAmountCents)
	}
	if sale.DiscountCents != 500 {
		t.Fatalf("expected discount 500, got %d", sale.DiscountCents)
	}
	if sale.FinalAmountCents != 1500 {
		t.Fatalf("expected final 1500, got %d", sale.FinalAmountCents)
	}
	if sale.CashierID != "op-1" {
		t.Fatalf("expected cashier op-1, got %s", sale.CashierID)
	}

	after, err := repo.GetProductByBarcode(context.Background(), gauzeBarcode)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if after.Quantity != before.Quantity-2 {
		t.Fatalf("expected stock %d, got %d", before.Quantity-2, after.Quantity)
	}

	view, err := svc.GetCart(ctx)
	if err != nil {
		t.Fatalf("get cart failed: %v", err)
	}
	if len(view.Lines) != 0 {
		t.Fatalf("expected empty cart after checkout, got %d lines", len(view.Lines))
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CheckoutCart(salesContext(), domain.CheckoutRequest{PaymentMethod: "cash"})
	if !errors.Is(err, pos.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestCheckoutNegativeDiscount(t *testing.T) {
	svc, _ := newTestService()
	ctx := salesContext()

	if _, err := svc.Scan(ctx, gauzeBarcode); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	_, err := svc.CheckoutCart(ctx, domain.CheckoutRequest{
		Discount:      decimal.NewFromInt(-1),
		PaymentMethod: "cash",
	})
	if !errors.Is(err, pos.ErrInvalidDiscount) {
		t.Fatalf("expected ErrInvalidDiscount, got %v", err)
	}
}

type failingSaleRepo struct {
	store.Repository
}

func (failingSaleRepo) CreateSale(context.Context, domain.Sale) (*domain.Sale, error) {
	return nil, errors.New("connection reset")
}

func TestCheckoutFailureLeavesCartIntact(t *testing.T) {
	repo := memory.NewSeeded()
	svc := New(failingSaleRepo{Repository: repo}, cache.NewMemoryKV(), zap.NewNop())
	ctx := salesContext()

	if _, err := svc.Scan(ctx, gauzeBarcode); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	_, err := svc.CheckoutCart(ctx, domain.CheckoutRequest{PaymentMethod: "card"})
	if !errors.Is(err, pos.ErrSubmissionFailed) {
		t.Fatalf("expected ErrSubmissionFailed, got %v", err)
	}

	view, err := svc.GetCart(ctx)
	if err != nil {
		t.Fatalf("get cart failed: %v", err)
	}
	if len(view.Lines) != 1 {
		t.Fatalf("expected cart preserved after failure, got %d lines", len(view.Lines))
	}
}

func TestCheckoutUpdatesCustomerTotal(t *testing.T) {
	svc, repo := newTestService()
	ctx := salesContext()

	customer, err := svc.CreateCustomer(ctx, domain.CustomerCreateRequest{Name: "Ayse Yilmaz", Phone: "5551112233"})
	if err != nil {
		t.Fatalf("create customer failed: %v", err)
	}

	if _, err := svc.Scan(ctx, gauzeBarcode); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	sale, err := svc.CheckoutCart(ctx, domain.CheckoutRequest{
		PaymentMethod: "card",
		CustomerID:    customer.ID,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	updated, err := repo.GetCustomerByID(context.Background(), customer.ID)
	if err != nil {
		t.Fatalf("customer lookup failed: %v", err)
	}
	if updated.TotalSpentCents != sale.FinalAmountCents {
		t.Fatalf("expected total spent %d, got %d", sale.FinalAmountCents, updated.TotalSpentCents)
	}

	purchases, err := svc.CustomerPurchases(ctx, customer.ID)
	if err != nil {
		t.Fatalf("purchases lookup failed: %v", err)
	}
	if len(purchases) != 1 || purchases[0].ID != sale.ID {
		t.Fatalf("expected one purchase %s, got %+v", sale.ID, purchases)
	}
}

func TestProductManagementRoles(t *testing.T) {
	svc, _ := newTestService()

	req := domain.ProductCreateRequest{
		Name:          "Cold Pack",
		Barcode:       "8690001000999",
		Quantity:      10,
		MinQuantity:   2,
		PurchasePrice: decimal.NewFromFloat(3.00),
		SalePrice:     decimal.NewFromFloat(5.50),
	}

	if _, err := svc.CreateProduct(salesContext(), req); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for sales role, got %v", err)
	}

	created, err := svc.CreateProduct(adminContext(), req)
	if err != nil {
		t.Fatalf("admin create failed: %v", err)
	}
	if created.SalePriceCents != 550 {
		t.Fatalf("expected sale price 550 cents, got %d", created.SalePriceCents)
	}

	if err := svc.DeleteProduct(salesContext(), created.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden on delete, got %v", err)
	}
	if err := svc.DeleteProduct(adminContext(), created.ID); err != nil {
		t.Fatalf("admin delete failed: %v", err)
	}
}

func TestCustomerDeleteIsAdminOnly(t *testing.T) {
	svc, _ := newTestService()

	customer, err := svc.CreateCustomer(salesContext(), domain.CustomerCreateRequest{Name: "Mehmet Kaya"})
	if err != nil {
		t.Fatalf("create customer failed: %v", err)
	}

	if err := svc.DeleteCustomer(salesContext(), customer.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.DeleteCustomer(adminContext(), customer.ID); err != nil {
		t.Fatalf("admin delete failed: %v", err)
	}

	if _, err := svc.GetCustomer(adminContext(), customer.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after soft delete, got %v", err)
	}
}

func TestCalendarEventsAreScopedToActor(t *testing.T) {
	svc, _ := newTestService()

	event, err := svc.CreateCalendarEvent(salesContext(), domain.CalendarEventCreateRequest{
		Title: "Supplier visit",
		Date:  mustDate(t, "2026-09-01"),
	})
	if err != nil {
		t.Fatalf("create event failed: %v", err)
	}

	events, err := svc.ListCalendarEvents(adminContext(), nil, nil)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events for other user, got %d", len(events))
	}

	if err := svc.DeleteCalendarEvent(adminContext(), event.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting another user's event, got %v", err)
	}
	if err := svc.DeleteCalendarEvent(salesContext(), event.ID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
}

func TestReportSnapshotRoundTrip(t *testing.T) {
	svc, _ := newTestService()

	payload := []byte(`{"today_revenue_cents":12345}`)
	if err := svc.SaveReportSnapshot(salesContext(), "eod-2026-08-29", payload); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for sales role, got %v", err)
	}
	if err := svc.SaveReportSnapshot(adminContext(), "eod-2026-08-29", payload); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := svc.GetReportSnapshot(salesContext(), "eod-2026-08-29")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("expected %s, got %s", payload, got)
	}

	if _, err := svc.GetReportSnapshot(salesContext(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.ListProducts(context.Background()); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.GetCart(context.Background()); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func mustDate(t *testing.T, value string) (parsed time.Time) {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("bad date %q: %v", value, err)
	}
	return parsed
}
