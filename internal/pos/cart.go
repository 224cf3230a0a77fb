package pos

import "errors"

var (
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrInvalidDiscount      = errors.New("invalid discount")
	ErrEmptyCart            = errors.New("empty cart")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrSubmissionFailed     = errors.New("sale submission failed")
	ErrSubmissionInProgress = errors.New("submission in progress")
	ErrNoSuchLine           = errors.New("no such cart line")
)

// Product is a read-only catalog snapshot taken at scan time. It is never
// refreshed while it sits in the cart, so Quantity can go stale relative to
// the store; the checkout engine re-validates lines against it at submit.
type Product struct {
	ID             string
	Name           string
	Brand          string
	Quantity       int
	SalePriceCents int64
}

// CartLine holds one product's entry in the cart. UnitPriceCents and
// AvailableQuantity are copied from the product snapshot when the line is
// created, insulating the line from later price or stock changes.
type CartLine struct {
	ProductID         string
	Name              string
	Brand             string
	UnitPriceCents    int64
	Quantity          int
	AvailableQuantity int
}

// TotalCents is the line total at the snapshot unit price.
func (l CartLine) TotalCents() int64 {
	return l.UnitPriceCents * int64(l.Quantity)
}

// Cart is an ordered collection of lines with at most one line per product.
// It is scoped to a single operator session; callers are expected to
// serialize access (the session registry does), so the cart itself carries
// no locks.
type Cart struct {
	lines      []CartLine
	submitting bool
}

func NewCart() *Cart {
	return &Cart{}
}

func (c *Cart) find(productID string) int {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// AddProduct adds one unit of the product. A repeat scan increments the
// existing line instead of duplicating it. The add is rejected with
// ErrInsufficientStock when the line already holds every available unit;
// quantities are never clamped.
func (c *Cart) AddProduct(product Product) error {
	if c.submitting {
		return ErrSubmissionInProgress
	}
	if product.Quantity < 1 {
		return ErrInsufficientStock
	}

	if i := c.find(product.ID); i >= 0 {
		if c.lines[i].Quantity+1 > c.lines[i].AvailableQuantity {
			return ErrInsufficientStock
		}
		c.lines[i].Quantity++
		return nil
	}

	c.lines = append(c.lines, CartLine{
		ProductID:         product.ID,
		Name:              product.Name,
		Brand:             product.Brand,
		UnitPriceCents:    product.SalePriceCents,
		Quantity:          1,
		AvailableQuantity: product.Quantity,
	})
	return nil
}

// SetQuantity sets the line's quantity to an absolute target. A target of
// zero or less removes the line. A target above the add-time stock ceiling
// fails with ErrInsufficientStock and leaves the cart unchanged.
func (c *Cart) SetQuantity(productID string, quantity int) error {
	if c.submitting {
		return ErrSubmissionInProgress
	}

	i := c.find(productID)
	if i < 0 {
		return ErrNoSuchLine
	}
	if quantity <= 0 {
		c.removeAt(i)
		return nil
	}
	if quantity > c.lines[i].AvailableQuantity {
		return ErrInsufficientStock
	}
	c.lines[i].Quantity = quantity
	return nil
}

// RemoveLine removes the product's line if present; absent is a no-op.
func (c *Cart) RemoveLine(productID string) error {
	if c.submitting {
		return ErrSubmissionInProgress
	}
	if i := c.find(productID); i >= 0 {
		c.removeAt(i)
	}
	return nil
}

func (c *Cart) removeAt(i int) {
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}

// Clear empties the cart. Used after a committed checkout and on cancel.
func (c *Cart) Clear() error {
	if c.submitting {
		return ErrSubmissionInProgress
	}
	c.lines = nil
	return nil
}

// SubtotalCents returns the sum of line totals. Integer cents keep the sum
// exact across repeated calls.
func (c *Cart) SubtotalCents() int64 {
	var sum int64
	for i := range c.lines {
		sum += c.lines[i].TotalCents()
	}
	return sum
}

// Lines returns a copy of the cart's lines in scan order.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}
