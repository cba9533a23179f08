// Package service implements the order lifecycle engine: cart dispatch
// to the kitchen, ticket state, settlement with loyalty and shift
// fanout, due collection and reservations. All mutations go through
// the shared store in atomic batches.
package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nexpos/engine/internal/audit"
	"github.com/nexpos/engine/internal/auth"
	"github.com/nexpos/engine/internal/enum"
	"github.com/nexpos/engine/internal/model"
	"github.com/nexpos/engine/internal/store"
)

// Errors returned by the engine.
var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrProductNotFound     = errors.New("product not found")
	ErrProductUnavailable  = errors.New("product is out of stock")
	ErrTableNotFound       = errors.New("table not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrNoOpenOrder         = errors.New("no open order for table")
	ErrShiftRequired       = errors.New("an active shift is required")
	ErrShiftAlreadyActive  = errors.New("staff already has an active shift")
	ErrShiftNotFound       = errors.New("active shift not found")
	ErrNotPermitted        = errors.New("role not permitted for this action")
	ErrPhoneRequired       = errors.New("customer phone is required")
	ErrAddressRequired     = errors.New("delivery address is required")
	ErrInvalidTransition   = errors.New("invalid item status transition")
	ErrInsufficientTender  = errors.New("tenders do not cover the bill")
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrNoOutstandingDue    = errors.New("customer has no outstanding due")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrStaffNotFound       = errors.New("staff not found")
	ErrProtectedStaff      = errors.New("staff account cannot be removed")
)

// Session is the resolved caller identity for one engine call: who is
// acting, in which role, under which active shift (nil when the role
// does not carry one).
type Session struct {
	StaffID   string
	StaffName string
	Role      string
	Shift     *model.Shift
}

// Engine owns the business rules. It is stateless between calls; all
// state lives in the store.
type Engine struct {
	store      store.Store
	audit      *audit.Logger
	taxPercent decimal.Decimal
	now        func() time.Time
	newID      func() string
}

func NewEngine(st store.Store, aud *audit.Logger, taxPercent decimal.Decimal) *Engine {
	return &Engine{
		store:      st,
		audit:      aud,
		taxPercent: taxPercent,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// SessionFor resolves token claims into a Session, attaching the
// staff member's active shift when one exists.
func (e *Engine) SessionFor(ctx context.Context, claims *auth.Claims) (Session, error) {
	sess := Session{StaffID: claims.StaffID, StaffName: claims.StaffName, Role: claims.Role}
	shift, err := e.ActiveShiftFor(ctx, claims.StaffID)
	if err != nil && !errors.Is(err, ErrShiftNotFound) {
		return Session{}, err
	}
	sess.Shift = shift
	return sess, nil
}

// requirePOS enforces the role capability table plus the shift rule
// for roles that handle cash.
func (e *Engine) requirePOS(sess Session) error {
	policy := enum.PolicyFor(sess.Role)
	if !policy.CanOperatePOS {
		return ErrNotPermitted
	}
	if policy.RequiresShift && sess.Shift == nil {
		return ErrShiftRequired
	}
	return nil
}

func (e *Engine) loyaltySettings(ctx context.Context) model.LoyaltySettings {
	var s model.LoyaltySettings
	if err := e.store.Get(ctx, store.CollSettings, "loyalty", &s); err != nil {
		return model.DefaultLoyaltySettings()
	}
	return s
}

// openOrderPointer is the one-per-table claim record under openOrders.
type openOrderPointer struct {
	OrderID string `json:"order_id"`
}

// openOrderFor follows the table pointer to its OPEN order. A dangling
// pointer (order missing or no longer open) reads as no open order.
func (e *Engine) openOrderFor(ctx context.Context, tableID string) (*model.Order, error) {
	var ptr openOrderPointer
	if err := e.store.Get(ctx, store.CollOpenOrders, tableID, &ptr); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoOpenOrder
		}
		return nil, err
	}
	var order model.Order
	if err := e.store.Get(ctx, store.CollOrders, ptr.OrderID, &order); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoOpenOrder
		}
		return nil, err
	}
	if !order.IsOpen() {
		return nil, ErrNoOpenOrder
	}
	return &order, nil
}

func (e *Engine) ordersSnapshot(ctx context.Context) ([]model.Order, error) {
	snap, err := e.store.Snapshot(ctx, store.CollOrders)
	if err != nil {
		return nil, err
	}
	orders := make([]model.Order, 0, len(snap))
	for _, raw := range snap {
		o, err := store.Decode[model.Order](raw)
		if err != nil {
			continue
		}
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.Before(orders[j].CreatedAt) })
	return orders, nil
}
