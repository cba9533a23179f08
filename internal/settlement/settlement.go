// Package settlement computes bill discounts and runs the tender state
// machine for multi-stage payment. All amounts are server-derived from
// raw inputs; clients never submit computed discounts.
package settlement

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexpos/engine/internal/enum"
	"github.com/nexpos/engine/internal/model"
)

var (
	ErrInvalidDiscountType  = errors.New("settlement: invalid discount type")
	ErrNegativeDiscount     = errors.New("settlement: discount value must not be negative")
	ErrInvalidPaymentMethod = errors.New("settlement: invalid payment method")
	ErrNonPositiveTender    = errors.New("settlement: tender amount must be positive")
	ErrClosed               = errors.New("settlement: session already closed")
)

// DiscountInput is the operator's raw request: a type, a value and the
// justification note, not an amount.
type DiscountInput struct {
	Type  string          `json:"type"`
	Value decimal.Decimal `json:"value"`
	Note  string          `json:"note,omitempty"`
}

// ManualDiscount converts an operator request into a currency amount.
// FLAT caps at the bill, PERCENT caps at 100% and rounds to a whole
// unit. Never negative.
func ManualDiscount(in DiscountInput, billTotal decimal.Decimal) (decimal.Decimal, error) {
	if in.Value.IsNegative() {
		return decimal.Zero, ErrNegativeDiscount
	}
	switch in.Type {
	case "":
		return decimal.Zero, nil
	case enum.DiscountTypeFlat:
		if in.Value.GreaterThan(billTotal) {
			return billTotal, nil
		}
		return in.Value, nil
	case enum.DiscountTypePercent:
		pct := in.Value
		if pct.GreaterThan(decimal.NewFromInt(100)) {
			pct = decimal.NewFromInt(100)
		}
		return billTotal.Mul(pct).Div(decimal.NewFromInt(100)).Round(0), nil
	default:
		return decimal.Zero, ErrInvalidDiscountType
	}
}

// CapTotalDiscount clamps the combined manual-plus-loyalty discount to
// the bill so stacking never drives the total negative. The manual
// part is reduced first since loyalty points were already committed.
func CapTotalDiscount(manual, loyaltyAmt, billTotal decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if loyaltyAmt.GreaterThan(billTotal) {
		return decimal.Zero, billTotal
	}
	room := billTotal.Sub(loyaltyAmt)
	if manual.GreaterThan(room) {
		manual = room
	}
	return manual, loyaltyAmt
}

// Tender is one payment step in a settlement round.
type Tender struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

// Session runs tenders against a payable amount. The final tender that
// meets or exceeds the remainder is capped at it, with the overage
// returned as change. A closed session rejects further tenders.
type Session struct {
	payable  decimal.Decimal
	paid     decimal.Decimal
	payments []model.Payment
	change   decimal.Decimal
	closed   bool
}

// NewSession opens a tender session for the given payable amount. A
// zero payable closes immediately.
func NewSession(payable decimal.Decimal) *Session {
	s := &Session{payable: payable}
	if payable.LessThanOrEqual(decimal.Zero) {
		s.payable = decimal.Zero
		s.closed = true
	}
	return s
}

// Tender applies one payment. When the amount covers the remainder the
// recorded payment is capped at it and the session closes.
func (s *Session) Tender(method string, amount decimal.Decimal, at time.Time) error {
	if s.closed {
		return ErrClosed
	}
	if !enum.IsValidPaymentMethod(method) {
		return ErrInvalidPaymentMethod
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrNonPositiveTender
	}

	remaining := s.Remaining()
	applied := amount
	if applied.GreaterThanOrEqual(remaining) {
		applied = remaining
		s.change = amount.Sub(remaining)
		s.closed = true
	}
	s.paid = s.paid.Add(applied)
	s.payments = append(s.payments, model.Payment{Method: method, Amount: applied, Timestamp: at})
	return nil
}

// Remaining is the unpaid remainder, never negative.
func (s *Session) Remaining() decimal.Decimal {
	rem := s.payable.Sub(s.paid)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// Paid is the applied (post-cap) total.
func (s *Session) Paid() decimal.Decimal { return s.paid }

// Change is the overage handed back on the closing tender.
func (s *Session) Change() decimal.Decimal { return s.change }

// Settled reports whether the payable is fully covered.
func (s *Session) Settled() bool { return s.closed }

// Payments returns the applied tender records in order.
func (s *Session) Payments() []model.Payment { return s.payments }
