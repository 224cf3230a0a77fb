package pos

import (
	"errors"
	"testing"
)

func gauzeRoll() Product {
	return Product{
		ID:             "P1",
		Name:           "Sterile Gauze Roll",
		Brand:          "MediWrap",
		Quantity:       5,
		SalePriceCents: 1000,
	}
}

func TestAddProductCreatesSingleLine(t *testing.T) {
	cart := NewCart()

	if err := cart.AddProduct(gauzeRoll()); err != nil {
		t.Fatalf("add product failed: %v", err)
	}

	lines := cart.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Quantity != 1 {
		t.Fatalf("expected quantity 1, got %d", lines[0].Quantity)
	}
	if cart.SubtotalCents() != 1000 {
		t.Fatalf("expected subtotal 1000, got %d", cart.SubtotalCents())
	}
}

func TestRepeatScanIncrementsExistingLine(t *testing.T) {
	cart := NewCart()

	if err := cart.AddProduct(gauzeRoll()); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if err := cart.AddProduct(gauzeRoll()); err != nil {
		t.Fatalf("second add failed: %v", err)
	}

	if cart.Len() != 1 {
		t.Fatalf("expected 1 line after repeat scan, got %d", cart.Len())
	}
	if got := cart.Lines()[0].Quantity; got != 2 {
		t.Fatalf("expected quantity 2, got %d", got)
	}
	if cart.SubtotalCents() != 2000 {
		t.Fatalf("expected subtotal 2000, got %d", cart.SubtotalCents())
	}
}

func TestAddProductRejectsWhenLineAtCeiling(t *testing.T) {
	cart := NewCart()
	product := gauzeRoll()
	product.Quantity = 2

	for i := 0; i < 2; i++ {
		if err := cart.AddProduct(product); err != nil {
			t.Fatalf("add #%d failed: %v", i, err)
		}
	}

	err := cart.AddProduct(product)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if got := cart.Lines()[0].Quantity; got != 2 {
		t.Fatalf("rejected add must not change quantity, got %d", got)
	}
}

func TestAddProductRejectsOutOfStockSnapshot(t *testing.T) {
	cart := NewCart()
	product := gauzeRoll()
	product.Quantity = 0

	if err := cart.AddProduct(product); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock for zero-stock product, got %v", err)
	}
	if cart.Len() != 0 {
		t.Fatalf("expected empty cart, got %d lines", cart.Len())
	}
}

func TestSetQuantityBoundaries(t *testing.T) {
	cart := NewCart()
	if err := cart.AddProduct(gauzeRoll()); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	// Exactly the available quantity is allowed.
	if err := cart.SetQuantity("P1", 5); err != nil {
		t.Fatalf("set quantity to ceiling failed: %v", err)
	}
	if got := cart.Lines()[0].Quantity; got != 5 {
		t.Fatalf("expected quantity 5, got %d", got)
	}

	// One past the ceiling is rejected and the line stays untouched.
	if err := cart.SetQuantity("P1", 6); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if got := cart.Lines()[0].Quantity; got != 5 {
		t.Fatalf("rejected set must not change quantity, got %d", got)
	}
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	cart := NewCart()
	if err := cart.AddProduct(gauzeRoll()); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := cart.SetQuantity("P1", 0); err != nil {
		t.Fatalf("set quantity 0 failed: %v", err)
	}
	if cart.Len() != 0 {
		t.Fatalf("expected line removed, got %d lines", cart.Len())
	}
}

func TestSetQuantityUnknownLine(t *testing.T) {
	cart := NewCart()
	if err := cart.SetQuantity("P404", 1); !errors.Is(err, ErrNoSuchLine) {
		t.Fatalf("expected ErrNoSuchLine, got %v", err)
	}
}

func TestRemoveLineIsIdempotent(t *testing.T) {
	cart := NewCart()
	if err := cart.AddProduct(gauzeRoll()); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := cart.RemoveLine("P1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := cart.RemoveLine("P1"); err != nil {
		t.Fatalf("removing an absent line must be a no-op, got %v", err)
	}
	if cart.Len() != 0 {
		t.Fatalf("expected empty cart, got %d lines", cart.Len())
	}
}

func TestSubtotalIsIdempotent(t *testing.T) {
	cart := NewCart()
	product := gauzeRoll()
	product.SalePriceCents = 333
	if err := cart.AddProduct(product); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := cart.SetQuantity("P1", 3); err != nil {
		t.Fatalf("set quantity failed: %v", err)
	}

	first := cart.SubtotalCents()
	second := cart.SubtotalCents()
	if first != second {
		t.Fatalf("subtotal not idempotent: %d then %d", first, second)
	}
	if first != 999 {
		t.Fatalf("expected subtotal 999, got %d", first)
	}
}

func TestCartInvariantsAcrossMutations(t *testing.T) {
	cart := NewCart()
	products := []Product{
		{ID: "P1", Name: "Sterile Gauze Roll", Quantity: 5, SalePriceCents: 1000},
		{ID: "P2", Name: "Nitrile Gloves M", Quantity: 3, SalePriceCents: 2550},
		{ID: "P3", Name: "Digital Thermometer", Quantity: 8, SalePriceCents: 14990},
	}

	for _, p := range products {
		if err := cart.AddProduct(p); err != nil {
			t.Fatalf("add %s failed: %v", p.ID, err)
		}
	}
	if err := cart.AddProduct(products[1]); err != nil {
		t.Fatalf("repeat add failed: %v", err)
	}
	if err := cart.SetQuantity("P3", 8); err != nil {
		t.Fatalf("set quantity failed: %v", err)
	}
	if err := cart.RemoveLine("P1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	seen := make(map[string]bool)
	for _, line := range cart.Lines() {
		if line.Quantity < 1 || line.Quantity > line.AvailableQuantity {
			t.Fatalf("line %s violates 0 < quantity <= available: %d/%d",
				line.ProductID, line.Quantity, line.AvailableQuantity)
		}
		if seen[line.ProductID] {
			t.Fatalf("duplicate line for product %s", line.ProductID)
		}
		seen[line.ProductID] = true
	}
}
