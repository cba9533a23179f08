package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexpos/engine/internal/enum"
)

// paidEpsilon absorbs rounding drift when deciding whether an order is
// fully paid.
var paidEpsilon = decimal.NewFromFloat(0.01)

// Discount is the applied (not requested) discount on an order: the
// capped manual amount plus any loyalty redemption.
type Discount struct {
	Type           string          `json:"type,omitempty"`
	Value          decimal.Decimal `json:"value"`
	Amount         decimal.Decimal `json:"amount"`
	Note           string          `json:"note,omitempty"`
	PointsRedeemed int64           `json:"points_redeemed,omitempty"`
	LoyaltyAmount  decimal.Decimal `json:"loyalty_amount"`
}

// Total is the combined manual plus loyalty discount.
func (d Discount) Total() decimal.Decimal {
	return d.Amount.Add(d.LoyaltyAmount)
}

// Order is the aggregate bill for one table visit. At most one OPEN
// order exists per table; later sends append to it.
type Order struct {
	ID            string     `json:"id"`
	TableID       string     `json:"table_id"`
	TableName     string     `json:"table_name"`
	Items         []CartItem `json:"items"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   time.Time  `json:"completed_at,omitzero"`
	CreatedBy     string     `json:"created_by,omitempty"`
	SettledBy     string     `json:"settled_by,omitempty"`
	ShiftID       string     `json:"shift_id,omitempty"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	CustomerName  string     `json:"customer_name,omitempty"`

	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Discount Discount        `json:"discount"`
	Total    decimal.Decimal `json:"total"`

	Payments []Payment       `json:"payments,omitempty"`
	Paid     decimal.Decimal `json:"paid"`
	Due      decimal.Decimal `json:"due"`
}

// Recalculate derives subtotal, tax and total from the item lines and
// the current discount. Tax is a flat percentage of the subtotal,
// rounded to a whole currency unit, applied before discounts. Totals
// never go below zero.
func (o *Order) Recalculate(taxPercent decimal.Decimal) {
	subtotal := decimal.Zero
	for _, it := range o.Items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	o.Subtotal = subtotal
	o.Tax = subtotal.Mul(taxPercent).Div(decimal.NewFromInt(100)).Round(0)
	total := subtotal.Add(o.Tax).Sub(o.Discount.Total())
	if total.IsNegative() {
		total = decimal.Zero
	}
	o.Total = total
}

// Outstanding is the unpaid remainder, never negative.
func (o *Order) Outstanding() decimal.Decimal {
	rem := o.Total.Sub(o.Paid)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// ApplyPayment appends a tender record and advances the paid total.
func (o *Order) ApplyPayment(method string, amount decimal.Decimal, at time.Time) {
	o.Payments = append(o.Payments, Payment{Method: method, Amount: amount, Timestamp: at})
	o.Paid = o.Paid.Add(amount)
}

// FullyPaid reports whether the paid total covers the bill to within a
// rounding epsilon.
func (o *Order) FullyPaid() bool {
	return o.Total.Sub(o.Paid).LessThanOrEqual(paidEpsilon)
}

// IsOpen reports whether the order still accepts sends and settlement.
func (o *Order) IsOpen() bool { return o.Status == enum.OrderStatusOpen }

// HasUnservedItems reports whether any line is still short of SERVED.
// Completed orders with unserved items stay on the kitchen display.
func (o *Order) HasUnservedItems() bool {
	for _, it := range o.Items {
		if it.Status != "" && it.Status != enum.ItemStatusServed {
			return true
		}
	}
	return false
}
