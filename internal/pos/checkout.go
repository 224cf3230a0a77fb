package pos

import (
	"context"
	"fmt"
)

// PaymentMethod is the closed set of accepted tender types.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard:
		return true
	}
	return false
}

// ParsePaymentMethod maps a wire string onto the enum, rejecting anything
// outside the closed set.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
	}
	return m, nil
}

// SaleItem is one line of a finalized sale, copied from the cart at submit.
type SaleItem struct {
	ProductID  string
	Name       string
	Quantity   int
	PriceCents int64
	TotalCents int64
}

// Sale is the immutable checkout result handed to the recorder. It is never
// mutated after Submit builds it.
type Sale struct {
	Items            []SaleItem
	TotalAmountCents int64
	DiscountCents    int64
	PaymentMethod    PaymentMethod
	FinalAmountCents int64
}

// SaleRecorder is the persistence collaborator. It owns the stock decrement;
// the engine only performs the admission check against the last-known
// availability. Any failure is treated uniformly.
type SaleRecorder interface {
	RecordSale(ctx context.Context, sale Sale) error
}

// SaleRecorderFunc adapts a function to the SaleRecorder interface.
type SaleRecorderFunc func(ctx context.Context, sale Sale) error

func (f SaleRecorderFunc) RecordSale(ctx context.Context, sale Sale) error {
	return f(ctx, sale)
}

// Checkout converts a cart plus discount and payment method into a persisted
// sale. One checkout attempt per cart runs at a time.
type Checkout struct {
	recorder SaleRecorder
}

func NewCheckout(recorder SaleRecorder) *Checkout {
	return &Checkout{recorder: recorder}
}

// ComputeFinalAmountCents returns max(0, subtotal - discount). A negative
// discount fails with ErrInvalidDiscount rather than being treated as zero,
// so "no discount" and "invalid input" stay distinguishable.
func (c *Checkout) ComputeFinalAmountCents(cart *Cart, discountCents int64) (int64, error) {
	if discountCents < 0 {
		return 0, ErrInvalidDiscount
	}
	final := cart.SubtotalCents() - discountCents
	if final < 0 {
		final = 0
	}
	return final, nil
}

// Submit validates the cart, builds the immutable sale snapshot and hands it
// to the recorder. On recorder failure the cart is left intact so the
// operator can retry without re-scanning; on success the cart is cleared and
// the completed sale returned. A second Submit while one is in flight fails
// fast with ErrSubmissionInProgress. The engine never retries on its own.
func (c *Checkout) Submit(ctx context.Context, cart *Cart, discountCents int64, method PaymentMethod) (*Sale, error) {
	if cart.submitting {
		return nil, ErrSubmissionInProgress
	}
	if cart.Len() == 0 {
		return nil, ErrEmptyCart
	}
	if !method.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, method)
	}
	final, err := c.ComputeFinalAmountCents(cart, discountCents)
	if err != nil {
		return nil, err
	}

	// The availability snapshots may have gone stale while the cart was held
	// open; re-check every line before committing anything.
	for _, line := range cart.lines {
		if line.Quantity > line.AvailableQuantity {
			return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, line.ProductID)
		}
	}

	sale := Sale{
		Items:         make([]SaleItem, 0, len(cart.lines)),
		DiscountCents: discountCents,
		PaymentMethod: method,
	}
	for _, line := range cart.lines {
		sale.Items = append(sale.Items, SaleItem{
			ProductID:  line.ProductID,
			Name:       line.Name,
			Quantity:   line.Quantity,
			PriceCents: line.UnitPriceCents,
			TotalCents: line.TotalCents(),
		})
		sale.TotalAmountCents += line.TotalCents()
	}
	sale.FinalAmountCents = final

	cart.submitting = true
	err = c.recorder.RecordSale(ctx, sale)
	cart.submitting = false
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	cart.lines = nil
	return &sale, nil
}
