package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nexpos/engine/internal/cart"
	"github.com/nexpos/engine/internal/enum"
	"github.com/nexpos/engine/internal/model"
	"github.com/nexpos/engine/internal/store"
)

// LineInput is one requested cart line: a product, its raw variant
// choice and an absolute quantity.
type LineInput struct {
	ProductID string            `json:"product_id"`
	Variants  map[string]string `json:"variants,omitempty"`
	Qty       int               `json:"qty"`
	Notes     string            `json:"notes,omitempty"`
}

// SendRequest dispatches a cart to the kitchen for one table.
type SendRequest struct {
	TableID       string      `json:"table_id"`
	Lines         []LineInput `json:"lines"`
	CustomerPhone string      `json:"customer_phone,omitempty"`
	CustomerName  string      `json:"customer_name,omitempty"`
}

// SendResult reports the dispatched ticket and resulting bill state.
type SendResult struct {
	Order *model.Order `json:"order"`
	KOTID string       `json:"kot_id"`
}

// SendToKitchen prices the requested lines, stamps them with the next
// KOT number and appends them to the table's OPEN order, creating the
// order first when the table has none. Concurrent first sends for one
// table race on a conditional pointer create; the loser appends to
// the winner's order.
func (e *Engine) SendToKitchen(ctx context.Context, sess Session, req SendRequest) (*SendResult, error) {
	if err := e.requirePOS(sess); err != nil {
		return nil, err
	}
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	var table model.Table
	if err := e.store.Get(ctx, store.CollTables, req.TableID, &table); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, req.TableID)
		}
		return nil, err
	}

	items, err := e.priceLines(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	now := e.now()
	kotID := e.nextKOTID(ctx)
	for i := range items {
		items[i].KOTID = kotID
		items[i].SentAt = now
		items[i].Status = enum.ItemStatusKitchen
	}

	order, err := e.openOrderFor(ctx, req.TableID)
	switch {
	case err == nil:
		// Append to the table's running order.
	case errors.Is(err, ErrNoOpenOrder):
		order, err = e.claimTable(ctx, sess, table, now)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	order.Items = append(order.Items, items...)
	if req.CustomerPhone != "" && order.CustomerPhone == "" {
		order.CustomerPhone = req.CustomerPhone
	}
	if req.CustomerName != "" && order.CustomerName == "" {
		order.CustomerName = req.CustomerName
	}
	order.Recalculate(e.taxPercent)

	if err := e.store.Update(ctx, []store.Op{store.Put(store.CollOrders, order.ID, order)}); err != nil {
		return nil, err
	}

	e.audit.Info(ctx, sess.StaffName, "KOT_SENT",
		fmt.Sprintf("%s sent to kitchen for %s (%d lines)", kotID, table.Name, len(items)))
	return &SendResult{Order: order, KOTID: kotID}, nil
}

// priceLines resolves products and variants and locks line prices.
func (e *Engine) priceLines(ctx context.Context, lines []LineInput) ([]model.CartItem, error) {
	c := cart.New()
	for _, line := range lines {
		if line.Qty <= 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQuantity, line.ProductID)
		}
		var p model.Product
		if err := e.store.Get(ctx, store.CollProducts, line.ProductID, &p); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
			}
			return nil, err
		}
		if !p.Available() {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, p.Name)
		}
		sel, err := cart.ResolveSelection(p, line.Variants)
		if err != nil {
			return nil, err
		}
		// Add contributes one unit; top up to the requested count on
		// top of whatever an earlier identical line already holds.
		key := c.Add(p, sel, line.Notes)
		c.SetQuantity(key, c.Quantity(key)+line.Qty-1)
	}
	return c.Items(), nil
}

// claimTable creates a fresh OPEN order and claims the table pointer
// with a conditional create. When another terminal wins the race the
// winner's order is returned instead so the lines land there.
func (e *Engine) claimTable(ctx context.Context, sess Session, table model.Table, now time.Time) (*model.Order, error) {
	shiftID := ""
	if sess.Shift != nil {
		shiftID = sess.Shift.ID
	}
	order := &model.Order{
		ID:        e.newID(),
		TableID:   table.ID,
		TableName: table.Name,
		Status:    enum.OrderStatusOpen,
		CreatedAt: now,
		CreatedBy: sess.StaffName,
		ShiftID:   shiftID,
	}

	err := e.store.Create(ctx, store.CollOpenOrders, table.ID, openOrderPointer{OrderID: order.ID})
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, store.ErrExists) {
		return nil, err
	}
	// Lost the race; follow the winner's pointer.
	winner, err := e.openOrderFor(ctx, table.ID)
	if err == nil {
		return winner, nil
	}
	if errors.Is(err, ErrNoOpenOrder) {
		// Pointer left dangling by a failed write. Reclaim it.
		if err := e.store.Update(ctx, []store.Op{
			store.Put(store.CollOpenOrders, table.ID, openOrderPointer{OrderID: order.ID}),
		}); err != nil {
			return nil, err
		}
		return order, nil
	}
	return nil, err
}

// nextKOTID allocates today's next ticket number. The counter lives in
// the store; when it is unreachable a timestamp-derived fallback keeps
// the send from failing.
func (e *Engine) nextKOTID(ctx context.Context) string {
	now := e.now()
	seq, err := e.store.IncrementDailyCounter(ctx, now.Format("2006-01-02"))
	if err != nil {
		log.Printf("ERROR: kot counter: %v", err)
		ms := now.UnixMilli()
		return fmt.Sprintf("KOT-%04d", ms%10000)
	}
	return fmt.Sprintf("KOT-%d", seq)
}

// UpdateKOTStatus advances every item of one ticket to the given
// status. Item states only move forward; items already at or past the
// target are left alone.
func (e *Engine) UpdateKOTStatus(ctx context.Context, sess Session, orderID, kotID, status string) (*model.Order, error) {
	if !enum.PolicyFor(sess.Role).KitchenAccess {
		return nil, ErrNotPermitted
	}
	if !enum.IsValidItemStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTransition, status)
	}

	var order model.Order
	if err := e.store.Get(ctx, store.CollOrders, orderID, &order); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return nil, err
	}

	changed := false
	for i := range order.Items {
		it := &order.Items[i]
		if it.KOTID != kotID {
			continue
		}
		if enum.CanTransitionItem(it.Status, status) {
			it.Status = status
			changed = true
		}
	}
	if !changed {
		return &order, nil
	}

	if err := e.store.Update(ctx, []store.Op{store.Put(store.CollOrders, order.ID, order)}); err != nil {
		return nil, err
	}
	e.audit.Info(ctx, sess.StaffName, "KOT_STATUS",
		fmt.Sprintf("%s on order %s marked %s", kotID, orderID, status))
	return &order, nil
}

// CancelOrder voids the table's OPEN order and frees the table. Only
// settings-capable roles may cancel.
func (e *Engine) CancelOrder(ctx context.Context, sess Session, tableID, reason string) (*model.Order, error) {
	if !enum.PolicyFor(sess.Role).CanAccessSettings {
		return nil, ErrNotPermitted
	}
	order, err := e.openOrderFor(ctx, tableID)
	if err != nil {
		return nil, err
	}
	order.Status = enum.OrderStatusCancelled
	order.CompletedAt = e.now()

	ops := []store.Op{
		store.Put(store.CollOrders, order.ID, order),
		store.Delete(store.CollOpenOrders, tableID),
	}
	if err := e.store.Update(ctx, ops); err != nil {
		return nil, err
	}
	e.audit.Warning(ctx, sess.StaffName, "ORDER_CANCELLED",
		fmt.Sprintf("order %s on %s cancelled: %s", order.ID, order.TableName, reason))
	return order, nil
}

func isDeliveryTable(name string) bool {
	return strings.Contains(strings.ToLower(name), "delivery")
}
