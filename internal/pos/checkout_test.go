package pos

import (
	"context"
	"errors"
	"testing"
)

type recorderStub struct {
	sales []Sale
	err   error
	// onRecord runs while the submit is in flight, before the stubbed
	// result is returned.
	onRecord func()
}

func (r *recorderStub) RecordSale(_ context.Context, sale Sale) error {
	if r.onRecord != nil {
		r.onRecord()
	}
	if r.err != nil {
		return r.err
	}
	r.sales = append(r.sales, sale)
	return nil
}

func cartWithSubtotal(t *testing.T, cents int64) *Cart {
	t.Helper()
	cart := NewCart()
	err := cart.AddProduct(Product{
		ID:             "P1",
		Name:           "Sterile Gauze Roll",
		Quantity:       10,
		SalePriceCents: cents,
	})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	return cart
}

func TestComputeFinalAmountAppliesDiscount(t *testing.T) {
	engine := NewCheckout(&recorderStub{})
	cart := cartWithSubtotal(t, 10000)

	final, err := engine.ComputeFinalAmountCents(cart, 3000)
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	if final != 7000 {
		t.Fatalf("expected final 7000, got %d", final)
	}
}

func TestComputeFinalAmountNeverNegative(t *testing.T) {
	engine := NewCheckout(&recorderStub{})
	cart := cartWithSubtotal(t, 1000)

	final, err := engine.ComputeFinalAmountCents(cart, 99999)
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	if final != 0 {
		t.Fatalf("expected floor at 0, got %d", final)
	}
}

func TestComputeFinalAmountRejectsNegativeDiscount(t *testing.T) {
	engine := NewCheckout(&recorderStub{})
	cart := cartWithSubtotal(t, 1000)

	if _, err := engine.ComputeFinalAmountCents(cart, -5); !errors.Is(err, ErrInvalidDiscount) {
		t.Fatalf("expected ErrInvalidDiscount, got %v", err)
	}
}

func TestSubmitBuildsSaleAndClearsCart(t *testing.T) {
	recorder := &recorderStub{}
	engine := NewCheckout(recorder)
	cart := cartWithSubtotal(t, 10000)

	sale, err := engine.Submit(context.Background(), cart, 3000, PaymentCash)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if sale.TotalAmountCents != 10000 {
		t.Fatalf("expected total 10000, got %d", sale.TotalAmountCents)
	}
	if sale.FinalAmountCents != 7000 {
		t.Fatalf("expected final 7000, got %d", sale.FinalAmountCents)
	}
	if sale.PaymentMethod != PaymentCash {
		t.Fatalf("expected cash payment, got %s", sale.PaymentMethod)
	}
	if len(sale.Items) != 1 || sale.Items[0].TotalCents != 10000 {
		t.Fatalf("unexpected sale items: %+v", sale.Items)
	}
	if cart.Len() != 0 {
		t.Fatalf("expected cart cleared after commit, got %d lines", cart.Len())
	}
	if len(recorder.sales) != 1 {
		t.Fatalf("expected 1 recorded sale, got %d", len(recorder.sales))
	}
}

func TestSubmitEmptyCart(t *testing.T) {
	engine := NewCheckout(&recorderStub{})

	if _, err := engine.Submit(context.Background(), NewCart(), 0, PaymentCash); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestSubmitRejectsUnknownPaymentMethod(t *testing.T) {
	engine := NewCheckout(&recorderStub{})
	cart := cartWithSubtotal(t, 1000)

	_, err := engine.Submit(context.Background(), cart, 0, PaymentMethod("store_credit"))
	if !errors.Is(err, ErrInvalidPaymentMethod) {
		t.Fatalf("expected ErrInvalidPaymentMethod, got %v", err)
	}
	if cart.Len() != 1 {
		t.Fatalf("rejected submit must leave cart intact")
	}
}

func TestSubmitRejectsNegativeDiscount(t *testing.T) {
	engine := NewCheckout(&recorderStub{})
	cart := cartWithSubtotal(t, 1000)

	if _, err := engine.Submit(context.Background(), cart, -1, PaymentCard); !errors.Is(err, ErrInvalidDiscount) {
		t.Fatalf("expected ErrInvalidDiscount, got %v", err)
	}
}

func TestSubmitRevalidatesStaleLines(t *testing.T) {
	engine := NewCheckout(&recorderStub{})
	cart := cartWithSubtotal(t, 1000)

	// Simulate a stale snapshot: stock dropped after the line was created.
	cart.lines[0].Quantity = 4
	cart.lines[0].AvailableQuantity = 2

	_, err := engine.Submit(context.Background(), cart, 0, PaymentCash)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock on stale line, got %v", err)
	}
	if cart.Len() != 1 {
		t.Fatalf("failed submit must leave cart intact")
	}
}

func TestSubmitFailureLeavesCartForRetry(t *testing.T) {
	recorder := &recorderStub{err: errors.New("store offline")}
	engine := NewCheckout(recorder)
	cart := cartWithSubtotal(t, 10000)

	_, err := engine.Submit(context.Background(), cart, 0, PaymentCard)
	if !errors.Is(err, ErrSubmissionFailed) {
		t.Fatalf("expected ErrSubmissionFailed, got %v", err)
	}
	if cart.Len() != 1 {
		t.Fatalf("cart must survive a failed submission for retry")
	}

	// Operator-driven retry succeeds once persistence recovers.
	recorder.err = nil
	sale, err := engine.Submit(context.Background(), cart, 0, PaymentCard)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if sale.FinalAmountCents != 10000 {
		t.Fatalf("expected final 10000, got %d", sale.FinalAmountCents)
	}
	if cart.Len() != 0 {
		t.Fatalf("expected cart cleared after successful retry")
	}
}

func TestCartMutationRejectedWhileSubmitting(t *testing.T) {
	cart := cartWithSubtotal(t, 1000)
	recorder := &recorderStub{}
	recorder.onRecord = func() {
		if err := cart.AddProduct(gauzeRoll()); !errors.Is(err, ErrSubmissionInProgress) {
			t.Errorf("expected ErrSubmissionInProgress on add, got %v", err)
		}
		if err := cart.SetQuantity("P1", 2); !errors.Is(err, ErrSubmissionInProgress) {
			t.Errorf("expected ErrSubmissionInProgress on set, got %v", err)
		}
		if err := cart.Clear(); !errors.Is(err, ErrSubmissionInProgress) {
			t.Errorf("expected ErrSubmissionInProgress on clear, got %v", err)
		}
	}
	engine := NewCheckout(recorder)

	if _, err := engine.Submit(context.Background(), cart, 0, PaymentCash); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
}

func TestReentrantSubmitRejected(t *testing.T) {
	cart := cartWithSubtotal(t, 1000)
	var engine *Checkout
	recorder := &recorderStub{}
	recorder.onRecord = func() {
		if _, err := engine.Submit(context.Background(), cart, 0, PaymentCash); !errors.Is(err, ErrSubmissionInProgress) {
			t.Errorf("expected ErrSubmissionInProgress on re-entrant submit, got %v", err)
		}
	}
	engine = NewCheckout(recorder)

	if _, err := engine.Submit(context.Background(), cart, 0, PaymentCash); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
}

func TestParsePaymentMethod(t *testing.T) {
	for _, valid := range []string{"cash", "card"} {
		if _, err := ParsePaymentMethod(valid); err != nil {
			t.Fatalf("expected %q to parse, got %v", valid, err)
		}
	}
	if _, err := ParsePaymentMethod("check"); !errors.Is(err, ErrInvalidPaymentMethod) {
		t.Fatalf("expected ErrInvalidPaymentMethod, got %v", err)
	}
}
