package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// VariantOption is one choice within a variant group, with a price delta
// that may be negative.
type VariantOption struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	PriceModifier decimal.Decimal `json:"price_modifier"`
}

// VariantGroup is a named, mutually-exclusive choice axis (e.g. "Size").
type VariantGroup struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Options []VariantOption `json:"options"`
}

// Product is a catalog item. Orders embed a price-resolved snapshot of it,
// so later catalog edits never touch historical bills.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	// Stock is a boolean availability flag in practice: 0 means the item
	// cannot be sold, any positive value means it can.
	Stock    int             `json:"stock"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
	Image    string          `json:"image,omitempty"`
	IsVeg    bool            `json:"is_veg"`
	Variants []VariantGroup  `json:"variants,omitempty"`
}

// Available reports whether the product can currently be sold.
func (p Product) Available() bool { return p.Stock > 0 }

// CartItem is a priced line on a cart or order: a product snapshot plus
// quantity, chosen variants and, once dispatched, its KOT batch stamp.
type CartItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	IsVeg     bool   `json:"is_veg"`
	// UnitPrice is locked at add time: base price plus the selected
	// variant deltas. Catalog changes do not reprice it.
	UnitPrice        decimal.Decimal          `json:"unit_price"`
	Qty              int                      `json:"qty"`
	Notes            string                   `json:"notes,omitempty"`
	SelectedVariants map[string]VariantOption `json:"selected_variants,omitempty"`

	// Set when the line is sent to the kitchen.
	KOTID  string    `json:"kot_id,omitempty"`
	SentAt time.Time `json:"sent_at,omitzero"`
	Status string    `json:"status,omitempty"`
}

// LineTotal is unit price times quantity.
func (ci CartItem) LineTotal() decimal.Decimal {
	return ci.UnitPrice.Mul(decimal.NewFromInt(int64(ci.Qty)))
}

// Payment is an immutable tender record appended to an order.
type Payment struct {
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// Table is a service point. Its lifecycle is independent of orders;
// removing a table does not touch order history.
type Table struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Floor string `json:"floor"`
}

// Reservation books a table for a customer at a point in time.
type Reservation struct {
	ID              string    `json:"id"`
	TableID         string    `json:"table_id"`
	CustomerName    string    `json:"customer_name"`
	CustomerPhone   string    `json:"customer_phone"`
	ReservationTime time.Time `json:"reservation_time"`
	Guests          int       `json:"guests"`
	Notes           string    `json:"notes,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	CreatedBy       string    `json:"created_by,omitempty"`
}

// LoyaltyTransaction is an immutable ledger entry. Points is always a
// positive magnitude; the sign is implied by Type.
type LoyaltyTransaction struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	Type        string    `json:"type"`
	Points      int64     `json:"points"`
	OrderID     string    `json:"order_id,omitempty"`
	Description string    `json:"description,omitempty"`
	// ExpiryDate is recorded on EARNED entries per the configured expiry
	// window. Nothing sweeps expired points yet.
	ExpiryDate time.Time `json:"expiry_date,omitzero"`
}

// Customer is keyed by phone number; there is no separate generated id.
// Created lazily on the first settlement that supplies a phone.
type Customer struct {
	Phone      string    `json:"phone"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Address    string    `json:"address,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	FirstVisit time.Time `json:"first_visit,omitzero"`
	LastVisit  time.Time `json:"last_visit,omitzero"`

	// LoyaltyPoints is the running available balance, maintained in
	// lockstep with LoyaltyHistory appends inside the settlement batch.
	LoyaltyPoints       int64                `json:"loyalty_points"`
	TotalPointsEarned   int64                `json:"total_points_earned"`
	TotalPointsRedeemed int64                `json:"total_points_redeemed"`
	LoyaltyHistory      []LoyaltyTransaction `json:"loyalty_history,omitempty"`
}

// LoyaltySettings is the process-wide loyalty program configuration.
type LoyaltySettings struct {
	Enabled bool `json:"enabled"`
	// EarningRate is the currency spend required to earn one point.
	EarningRate decimal.Decimal `json:"earning_rate"`
	// RedemptionValue is the currency value of one point.
	RedemptionValue     decimal.Decimal `json:"redemption_value"`
	MinPointsToRedeem   int64           `json:"min_points_to_redeem"`
	MinOrderValueRedeem decimal.Decimal `json:"min_order_value_to_redeem"`
	ExpiryMonths        int             `json:"expiry_months"`
}

// DefaultLoyaltySettings mirrors the seed configuration: ₹100 per point
// earned, 1 point worth ₹1, 10 points minimum to redeem.
func DefaultLoyaltySettings() LoyaltySettings {
	return LoyaltySettings{
		Enabled:           true,
		EarningRate:       decimal.NewFromInt(100),
		RedemptionValue:   decimal.NewFromInt(1),
		MinPointsToRedeem: 10,
		ExpiryMonths:      12,
	}
}

// Staff is a login-capable employee. PINs are stored bcrypt-hashed.
type Staff struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	PINHash string `json:"pin_hash"`
	Role    string `json:"role"`
}

// Shift is one cash-handling session for one staff member.
type Shift struct {
	ID        string    `json:"id"`
	StaffID   string    `json:"staff_id"`
	StaffName string    `json:"staff_name"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitzero"`
	Status    string    `json:"status"`

	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CashSales      decimal.Decimal `json:"cash_sales"`
	UPISales       decimal.Decimal `json:"upi_sales"`
	CardSales      decimal.Decimal `json:"card_sales"`
	TotalSales     decimal.Decimal `json:"total_sales"`

	// ExpectedCash = opening balance + cash sales, kept incrementally.
	ExpectedCash decimal.Decimal `json:"expected_cash"`
	ActualCash   decimal.Decimal `json:"actual_cash"`
	// Variance = actual − expected on close. Negative is a shortage.
	Variance decimal.Decimal `json:"variance"`

	OrdersCount    int             `json:"orders_count"`
	RefundsTotal   decimal.Decimal `json:"refunds_total"`
	DiscountsTotal decimal.Decimal `json:"discounts_total"`
}

// AuditLog is an append-only human-readable trace of a mutating action.
type AuditLog struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Severity  string    `json:"severity"`
}
