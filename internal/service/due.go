package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/nexpos/engine/internal/enum"
	"github.com/nexpos/engine/internal/model"
	"github.com/nexpos/engine/internal/store"
)

// DueCollection reports how a payment spread across a customer's
// outstanding orders.
type DueCollection struct {
	Customer *model.Customer `json:"customer"`
	Applied  []AppliedDue    `json:"applied"`
	Leftover decimal.Decimal `json:"leftover"`
}

// AppliedDue is one order's share of a due collection.
type AppliedDue struct {
	OrderID string          `json:"order_id"`
	Amount  decimal.Decimal `json:"amount"`
	Cleared bool            `json:"cleared"`
}

// CollectDue applies a payment to the customer's outstanding orders,
// oldest first. The shift is credited with the whole collected amount
// once, regardless of how it spread; any leftover beyond the total due
// is returned to the operator, not banked.
func (e *Engine) CollectDue(ctx context.Context, sess Session, phone, method string, amount decimal.Decimal) (*DueCollection, error) {
	if err := e.requirePOS(sess); err != nil {
		return nil, err
	}
	if !enum.IsValidPaymentMethod(method) {
		return nil, fmt.Errorf("invalid payment method %q", method)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("collection amount must be positive")
	}

	var customer model.Customer
	if err := e.store.Get(ctx, store.CollCustomers, phone, &customer); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCustomerNotFound, phone)
		}
		return nil, err
	}

	orders, err := e.ordersSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	var owing []model.Order
	for _, o := range orders {
		if o.CustomerPhone == phone && o.Due.IsPositive() {
			owing = append(owing, o)
		}
	}
	if len(owing) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoOutstandingDue, phone)
	}
	sort.Slice(owing, func(i, j int) bool { return owing[i].CreatedAt.Before(owing[j].CreatedAt) })

	now := e.now()
	remaining := amount
	result := &DueCollection{Customer: &customer}
	ops := make([]store.Op, 0, len(owing)+2)
	for i := range owing {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		o := owing[i]
		pay := o.Due
		if remaining.LessThan(pay) {
			pay = remaining
		}
		o.ApplyPayment(method, pay, now)
		o.Due = o.Outstanding()
		remaining = remaining.Sub(pay)
		ops = append(ops, store.Put(store.CollOrders, o.ID, o))
		result.Applied = append(result.Applied, AppliedDue{OrderID: o.ID, Amount: pay, Cleared: o.Due.IsZero()})
	}
	result.Leftover = remaining

	customer.LastVisit = now
	ops = append(ops, store.Put(store.CollCustomers, customer.Phone, customer))
	if sess.Shift != nil {
		creditDueToShift(sess.Shift, method, amount)
		ops = append(ops, store.Put(store.CollShifts, sess.Shift.ID, sess.Shift))
	}
	if err := e.store.Update(ctx, ops); err != nil {
		return nil, err
	}
	e.audit.Info(ctx, sess.StaffName, "DUE_COLLECTED",
		fmt.Sprintf("%s collected from %s across %d orders", amount, phone, len(result.Applied)))
	return result, nil
}

// OutstandingDue sums the customer's unpaid remainders.
func (e *Engine) OutstandingDue(ctx context.Context, phone string) (decimal.Decimal, []model.Order, error) {
	orders, err := e.ordersSnapshot(ctx)
	if err != nil {
		return decimal.Zero, nil, err
	}
	total := decimal.Zero
	var owing []model.Order
	for _, o := range orders {
		if o.CustomerPhone == phone && o.Due.IsPositive() {
			total = total.Add(o.Due)
			owing = append(owing, o)
		}
	}
	return total, owing, nil
}

func creditDueToShift(shift *model.Shift, method string, amount decimal.Decimal) {
	shift.TotalSales = shift.TotalSales.Add(amount)
	switch method {
	case enum.PaymentMethodCash:
		shift.CashSales = shift.CashSales.Add(amount)
		shift.ExpectedCash = shift.ExpectedCash.Add(amount)
	case enum.PaymentMethodCard:
		shift.CardSales = shift.CardSales.Add(amount)
	case enum.PaymentMethodUPI:
		shift.UPISales = shift.UPISales.Add(amount)
	}
}
