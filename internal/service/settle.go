package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexpos/engine/internal/enum"
	"github.com/nexpos/engine/internal/loyalty"
	"github.com/nexpos/engine/internal/model"
	"github.com/nexpos/engine/internal/settlement"
	"github.com/nexpos/engine/internal/store"
)

// SettleRequest carries the operator's raw settlement inputs. All
// amounts are recomputed server-side; the client never submits a
// discount amount or a payable total.
type SettleRequest struct {
	TableID         string                   `json:"table_id"`
	Discount        settlement.DiscountInput `json:"discount"`
	RedeemPoints    bool                     `json:"redeem_points"`
	Tenders         []settlement.Tender      `json:"tenders"`
	Due             bool                     `json:"due"`
	CustomerPhone   string                   `json:"customer_phone,omitempty"`
	CustomerName    string                   `json:"customer_name,omitempty"`
	DeliveryAddress string                   `json:"delivery_address,omitempty"`
}

// SettleResult reports the final bill, handed-back change and loyalty
// movement.
type SettleResult struct {
	Order          *model.Order    `json:"order"`
	Change         decimal.Decimal `json:"change"`
	PointsEarned   int64           `json:"points_earned"`
	PointsRedeemed int64           `json:"points_redeemed"`
}

// SettlementPreview is the quote shown before tendering: the payable
// after discounts plus the loyalty room available.
type SettlementPreview struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	ManualDiscount decimal.Decimal `json:"manual_discount"`
	LoyaltyAmount  decimal.Decimal `json:"loyalty_amount"`
	Payable        decimal.Decimal `json:"payable"`
	MaxPoints      int64           `json:"max_points"`
}

// SettleOrder closes the table's OPEN order in one atomic batch: the
// order flips to COMPLETED with its payments, the customer record and
// loyalty ledger advance, the active shift's buckets grow, and the
// table pointer is freed. A table with no OPEN order settles nothing.
func (e *Engine) SettleOrder(ctx context.Context, sess Session, req SettleRequest) (*SettleResult, error) {
	if err := e.requirePOS(sess); err != nil {
		return nil, err
	}
	order, err := e.openOrderFor(ctx, req.TableID)
	if err != nil {
		return nil, err
	}
	if isDeliveryTable(order.TableName) && req.DeliveryAddress == "" {
		return nil, ErrAddressRequired
	}

	now := e.now()
	program := loyalty.Program{Settings: e.loyaltySettings(ctx)}

	customer, isNew, err := e.customerFor(ctx, req.CustomerPhone, req.CustomerName, req.DeliveryAddress, now)
	if err != nil {
		return nil, err
	}

	// Price the bill before discounts, then derive them from inputs.
	order.Discount = model.Discount{}
	order.Recalculate(e.taxPercent)
	base := order.Total

	manual, err := settlement.ManualDiscount(req.Discount, base)
	if err != nil {
		return nil, err
	}
	var redeemed int64
	if req.RedeemPoints && customer != nil {
		redeemed = program.MaxRedeemablePoints(customer, base)
	}
	loyaltyAmt := program.RedemptionDiscount(redeemed)
	manual, loyaltyAmt = settlement.CapTotalDiscount(manual, loyaltyAmt, base)

	order.Discount = model.Discount{
		Type:           req.Discount.Type,
		Value:          req.Discount.Value,
		Amount:         manual,
		Note:           req.Discount.Note,
		PointsRedeemed: redeemed,
		LoyaltyAmount:  loyaltyAmt,
	}
	order.Recalculate(e.taxPercent)

	tenders := settlement.NewSession(order.Total)
	for _, t := range req.Tenders {
		if tenders.Settled() {
			break
		}
		if err := tenders.Tender(t.Method, t.Amount, now); err != nil {
			return nil, err
		}
	}
	if !tenders.Settled() {
		if !req.Due {
			return nil, fmt.Errorf("%w: %s remaining", ErrInsufficientTender, tenders.Remaining())
		}
		// An unpaid remainder must be traceable to a customer.
		if customer == nil {
			return nil, ErrPhoneRequired
		}
	}

	order.Payments = append(order.Payments, tenders.Payments()...)
	order.Paid = order.Paid.Add(tenders.Paid())
	order.Due = order.Outstanding()
	order.Status = enum.OrderStatusCompleted
	order.CompletedAt = now
	order.SettledBy = sess.StaffName
	if sess.Shift != nil {
		order.ShiftID = sess.Shift.ID
	}
	if customer != nil {
		order.CustomerPhone = customer.Phone
		order.CustomerName = customer.Name
	}

	// Points are earned only on bills paid in full at the counter.
	var earned int64
	if customer != nil {
		if order.FullyPaid() {
			earned = program.PointsEarned(order.Total)
		}
		program.Apply(customer, order.ID, earned, redeemed, now)
	}

	ops := []store.Op{
		store.Put(store.CollOrders, order.ID, order),
		store.Delete(store.CollOpenOrders, req.TableID),
	}
	if customer != nil {
		ops = append(ops, store.Put(store.CollCustomers, customer.Phone, customer))
	}
	if sess.Shift != nil {
		creditShift(sess.Shift, order, tenders.Payments())
		ops = append(ops, store.Put(store.CollShifts, sess.Shift.ID, sess.Shift))
	}
	if err := e.store.Update(ctx, ops); err != nil {
		return nil, err
	}

	detail := fmt.Sprintf("order %s on %s settled for %s", order.ID, order.TableName, order.Total)
	if order.Due.IsPositive() {
		detail += fmt.Sprintf(" (%s due)", order.Due)
	}
	e.audit.Info(ctx, sess.StaffName, "ORDER_SETTLED", detail)
	if isNew {
		e.audit.Info(ctx, sess.StaffName, "CUSTOMER_CREATED", "new customer "+customer.Phone)
	}

	return &SettleResult{
		Order:          order,
		Change:         tenders.Change(),
		PointsEarned:   earned,
		PointsRedeemed: redeemed,
	}, nil
}

// PreviewSettlement quotes the payable for the table's OPEN order
// without writing anything.
func (e *Engine) PreviewSettlement(ctx context.Context, sess Session, tableID string, in settlement.DiscountInput, redeem bool, phone string) (*SettlementPreview, error) {
	if err := e.requirePOS(sess); err != nil {
		return nil, err
	}
	order, err := e.openOrderFor(ctx, tableID)
	if err != nil {
		return nil, err
	}
	program := loyalty.Program{Settings: e.loyaltySettings(ctx)}

	var customer *model.Customer
	if phone != "" {
		var c model.Customer
		if err := e.store.Get(ctx, store.CollCustomers, phone, &c); err == nil {
			customer = &c
		}
	}

	order.Discount = model.Discount{}
	order.Recalculate(e.taxPercent)
	base := order.Total

	manual, err := settlement.ManualDiscount(in, base)
	if err != nil {
		return nil, err
	}
	maxPoints := program.MaxRedeemablePoints(customer, base)
	var loyaltyAmt decimal.Decimal
	if redeem {
		loyaltyAmt = program.RedemptionDiscount(maxPoints)
	}
	manual, loyaltyAmt = settlement.CapTotalDiscount(manual, loyaltyAmt, base)

	return &SettlementPreview{
		Subtotal:       order.Subtotal,
		Tax:            order.Tax,
		ManualDiscount: manual,
		LoyaltyAmount:  loyaltyAmt,
		Payable:        base.Sub(manual).Sub(loyaltyAmt),
		MaxPoints:      maxPoints,
	}, nil
}

// customerFor loads or lazily creates the customer keyed by phone.
// Name and address fill in only when not already set, so settlement
// never clobbers an existing profile. A blank phone means an anonymous
// sale and returns nil.
func (e *Engine) customerFor(ctx context.Context, phone, name, address string, now time.Time) (*model.Customer, bool, error) {
	if phone == "" {
		return nil, false, nil
	}
	var c model.Customer
	err := e.store.Get(ctx, store.CollCustomers, phone, &c)
	switch {
	case err == nil:
		if c.Name == "" && name != "" {
			c.Name = name
		}
		if c.Address == "" && address != "" {
			c.Address = address
		}
		return &c, false, nil
	case errors.Is(err, store.ErrNotFound):
		return &model.Customer{
			Phone:      phone,
			Name:       name,
			Address:    address,
			FirstVisit: now,
		}, true, nil
	default:
		return nil, false, err
	}
}

// creditShift folds one settled order into the shift's running
// buckets. Cash tenders also raise the expected drawer amount.
func creditShift(shift *model.Shift, order *model.Order, payments []model.Payment) {
	shift.OrdersCount++
	shift.TotalSales = shift.TotalSales.Add(order.Total)
	shift.DiscountsTotal = shift.DiscountsTotal.Add(order.Discount.Total())
	for _, p := range payments {
		switch p.Method {
		case enum.PaymentMethodCash:
			shift.CashSales = shift.CashSales.Add(p.Amount)
			shift.ExpectedCash = shift.ExpectedCash.Add(p.Amount)
		case enum.PaymentMethodCard:
			shift.CardSales = shift.CardSales.Add(p.Amount)
		case enum.PaymentMethodUPI:
			shift.UPISales = shift.UPISales.Add(p.Amount)
		}
	}
}
