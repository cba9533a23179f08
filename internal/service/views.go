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

// Orders lists every order, oldest first.
func (e *Engine) Orders(ctx context.Context) ([]model.Order, error) {
	return e.ordersSnapshot(ctx)
}

// Order loads one order by id.
func (e *Engine) Order(ctx context.Context, id string) (*model.Order, error) {
	var o model.Order
	if err := e.store.Get(ctx, store.CollOrders, id, &o); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
		return nil, err
	}
	return &o, nil
}

// KitchenTickets returns the live kitchen display: every outstanding
// ticket across OPEN orders plus COMPLETED orders that still have
// unserved items, oldest first.
func (e *Engine) KitchenTickets(ctx context.Context, sess Session) ([]model.KOTGroup, error) {
	if !enum.PolicyFor(sess.Role).KitchenAccess {
		return nil, ErrNotPermitted
	}
	orders, err := e.ordersSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	var tickets []model.KOTGroup
	for i := range orders {
		o := &orders[i]
		switch o.Status {
		case enum.OrderStatusOpen:
		case enum.OrderStatusCompleted:
			if !o.HasUnservedItems() {
				continue
			}
		default:
			continue
		}
		tickets = append(tickets, model.KOTGroups(o)...)
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].SentAt.Before(tickets[j].SentAt) })
	return tickets, nil
}

// TableStatus is one entry of the floor view.
type TableStatus struct {
	Table    model.Table  `json:"table"`
	Occupied bool         `json:"occupied"`
	Order    *model.Order `json:"order,omitempty"`
}

// FloorView reports every table with its OPEN order, if any.
func (e *Engine) FloorView(ctx context.Context) ([]TableStatus, error) {
	tablesSnap, err := e.store.Snapshot(ctx, store.CollTables)
	if err != nil {
		return nil, err
	}
	tables := make([]model.Table, 0, len(tablesSnap))
	for _, raw := range tablesSnap {
		t, err := store.Decode[model.Table](raw)
		if err != nil {
			continue
		}
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool {
		if tables[i].Floor != tables[j].Floor {
			return tables[i].Floor < tables[j].Floor
		}
		return tables[i].Name < tables[j].Name
	})

	view := make([]TableStatus, 0, len(tables))
	for _, t := range tables {
		ts := TableStatus{Table: t}
		if order, err := e.openOrderFor(ctx, t.ID); err == nil {
			ts.Occupied = true
			ts.Order = order
		}
		view = append(view, ts)
	}
	return view, nil
}

// DashboardStats aggregates completed business for one calendar day.
type DashboardStats struct {
	Date           string                     `json:"date"`
	OrdersCount    int                        `json:"orders_count"`
	TotalSales     decimal.Decimal            `json:"total_sales"`
	TotalDiscounts decimal.Decimal            `json:"total_discounts"`
	TotalDues      decimal.Decimal            `json:"total_dues"`
	AvgOrderValue  decimal.Decimal            `json:"avg_order_value"`
	ByMethod       map[string]decimal.Decimal `json:"by_method"`
	TopProducts    []ProductSales             `json:"top_products"`
}

// ProductSales is one row of the top-seller list.
type ProductSales struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// Dashboard computes the day's stats from completed orders. Date is
// YYYY-MM-DD in the server's timezone.
func (e *Engine) Dashboard(ctx context.Context, date string) (*DashboardStats, error) {
	orders, err := e.ordersSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	stats := &DashboardStats{
		Date:     date,
		ByMethod: make(map[string]decimal.Decimal),
	}
	productAgg := make(map[string]*ProductSales)
	for i := range orders {
		o := &orders[i]
		if o.Status != enum.OrderStatusCompleted || o.CompletedAt.Format("2006-01-02") != date {
			continue
		}
		stats.OrdersCount++
		stats.TotalSales = stats.TotalSales.Add(o.Total)
		stats.TotalDiscounts = stats.TotalDiscounts.Add(o.Discount.Total())
		stats.TotalDues = stats.TotalDues.Add(o.Due)
		for _, p := range o.Payments {
			stats.ByMethod[p.Method] = stats.ByMethod[p.Method].Add(p.Amount)
		}
		for _, it := range o.Items {
			agg, ok := productAgg[it.ProductID]
			if !ok {
				agg = &ProductSales{ProductID: it.ProductID, Name: it.Name}
				productAgg[it.ProductID] = agg
			}
			agg.Qty += it.Qty
			agg.Revenue = agg.Revenue.Add(it.LineTotal())
		}
	}
	if stats.OrdersCount > 0 {
		stats.AvgOrderValue = stats.TotalSales.Div(decimal.NewFromInt(int64(stats.OrdersCount))).Round(2)
	}
	for _, agg := range productAgg {
		stats.TopProducts = append(stats.TopProducts, *agg)
	}
	sort.Slice(stats.TopProducts, func(i, j int) bool {
		if stats.TopProducts[i].Qty != stats.TopProducts[j].Qty {
			return stats.TopProducts[i].Qty > stats.TopProducts[j].Qty
		}
		return stats.TopProducts[i].Name < stats.TopProducts[j].Name
	})
	if len(stats.TopProducts) > 5 {
		stats.TopProducts = stats.TopProducts[:5]
	}
	return stats, nil
}

// AuditTrail returns recorded audit entries, newest first.
func (e *Engine) AuditTrail(ctx context.Context, sess Session, limit int) ([]model.AuditLog, error) {
	if !enum.PolicyFor(sess.Role).CanAccessSettings {
		return nil, ErrNotPermitted
	}
	snap, err := e.store.Snapshot(ctx, store.CollAuditLogs)
	if err != nil {
		return nil, err
	}
	logs := make([]model.AuditLog, 0, len(snap))
	for _, raw := range snap {
		l, err := store.Decode[model.AuditLog](raw)
		if err != nil {
			continue
		}
		logs = append(logs, l)
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].Timestamp.After(logs[j].Timestamp) })
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}
