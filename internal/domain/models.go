package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin     = "admin"
	RoleInventory = "inventory"
	RoleSales     = "sales"
)

// ValidRole reports whether the role belongs to the closed set.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleInventory || role == RoleSales
}

type Product struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Barcode            string    `json:"barcode"`
	Quantity           int       `json:"quantity"`
	MinQuantity        int       `json:"min_quantity"`
	Brand              string    `json:"brand"`
	Category           string    `json:"category"`
	PurchasePriceCents int64     `json:"purchase_price_cents"`
	SalePriceCents     int64     `json:"sale_price_cents"`
	Description        string    `json:"description,omitempty"`
	ImageURL           string    `json:"image_url,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type ProductCreateRequest struct {
	Name          string          `json:"name"`
	Barcode       string          `json:"barcode"`
	Quantity      int             `json:"quantity"`
	MinQuantity   int             `json:"min_quantity"`
	Brand         string          `json:"brand"`
	Category      string          `json:"category"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	Description   string          `json:"description,omitempty"`
	ImageBase64   string          `json:"image_base64,omitempty"`
}

type ProductUpdateRequest struct {
	Name          *string          `json:"name,omitempty"`
	Barcode       *string          `json:"barcode,omitempty"`
	Quantity      *int             `json:"quantity,omitempty"`
	MinQuantity   *int             `json:"min_quantity,omitempty"`
	Brand         *string          `json:"brand,omitempty"`
	Category      *string          `json:"category,omitempty"`
	PurchasePrice *decimal.Decimal `json:"purchase_price,omitempty"`
	SalePrice     *decimal.Decimal `json:"sale_price,omitempty"`
	Description   *string          `json:"description,omitempty"`
	ImageBase64   *string          `json:"image_base64,omitempty"`
}

type SaleItem struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
	TotalCents int64  `json:"total_cents"`
}

type Sale struct {
	ID               string     `json:"id"`
	Items            []SaleItem `json:"items"`
	TotalAmountCents int64      `json:"total_amount_cents"`
	DiscountCents    int64      `json:"discount_cents"`
	FinalAmountCents int64      `json:"final_amount_cents"`
	PaymentMethod    string     `json:"payment_method"`
	CustomerID       string     `json:"customer_id,omitempty"`
	CashierID        string     `json:"cashier_id"`
	CreatedAt        time.Time  `json:"created_at"`
}

type Customer struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email,omitempty"`
	Address         string    `json:"address,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	TotalSpentCents int64     `json:"total_spent_cents"`
	Deleted         bool      `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

type CustomerUpdateRequest struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
	Address *string `json:"address,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	Alarm       bool      `json:"alarm"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type CalendarEventCreateRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	Alarm       bool      `json:"alarm"`
}

// User is the persistence model; PasswordHash never leaves the store layer.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// Actor is the authenticated principal carried through request contexts.
type Actor struct {
	ID       string
	Username string
	Role     string
}

// CartView is the wire shape of the operator's live POS cart.
type CartView struct {
	Lines         []CartLineView `json:"lines"`
	SubtotalCents int64          `json:"subtotal_cents"`
}

type CartLineView struct {
	ProductID         string `json:"product_id"`
	Name              string `json:"name"`
	Brand             string `json:"brand,omitempty"`
	UnitPriceCents    int64  `json:"unit_price_cents"`
	Quantity          int    `json:"quantity"`
	AvailableQuantity int    `json:"available_quantity"`
	TotalCents        int64  `json:"total_cents"`
}

type ScanRequest struct {
	Barcode string `json:"barcode"`
}

type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type CheckoutRequest struct {
	Discount      decimal.Decimal `json:"discount"`
	PaymentMethod string          `json:"payment_method"`
	CustomerID    string          `json:"customer_id,omitempty"`
}

type TopSellingEntry struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	TotalQuantity int    `json:"total_quantity"`
	RevenueCents  int64  `json:"total_revenue_cents"`
}

type TopProfitEntry struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	TotalQuantity int    `json:"total_quantity"`
	ProfitCents   int64  `json:"total_profit_cents"`
}

type DashboardStats struct {
	TotalProducts     int   `json:"total_products"`
	LowStockCount     int   `json:"low_stock_count"`
	TodaySalesCount   int   `json:"today_sales_count"`
	TodayRevenueCents int64 `json:"today_revenue_cents"`
	WeekSalesCount    int   `json:"week_sales_count"`
	WeekRevenueCents  int64 `json:"week_revenue_cents"`
}

// CurrencyRates is the cached snapshot of TRY exchange and metal prices.
type CurrencyRates struct {
	USDTRY    decimal.Decimal `json:"usd_try"`
	EURTRY    decimal.Decimal `json:"eur_try"`
	GoldTRY   decimal.Decimal `json:"gold_try"`
	SilverTRY decimal.Decimal `json:"silver_try"`
	Timestamp time.Time       `json:"timestamp"`
}
