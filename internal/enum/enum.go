package enum

// ── Order lifecycle ──

const (
	OrderStatusOpen      = "OPEN"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

// ── Per-item kitchen progression (monotonic, batch-granular) ──

const (
	ItemStatusKitchen = "KITCHEN"
	ItemStatusReady   = "READY"
	ItemStatusServed  = "SERVED"
)

const (
	ReservationStatusConfirmed = "CONFIRMED"
	ReservationStatusCompleted = "COMPLETED"
	ReservationStatusCancelled = "CANCELLED"
	ReservationStatusNoShow    = "NO_SHOW"
)

const (
	ShiftStatusActive = "ACTIVE"
	ShiftStatusClosed = "CLOSED"
)

// ── Payments & discounts ──

const (
	PaymentMethodCash = "CASH"
	PaymentMethodCard = "CARD"
	PaymentMethodUPI  = "UPI"
)

const (
	DiscountTypeFlat    = "FLAT"
	DiscountTypePercent = "PERCENT"
)

// ── Loyalty ledger entry types ──

const (
	LoyaltyTxEarned     = "EARNED"
	LoyaltyTxRedeemed   = "REDEEMED"
	LoyaltyTxExpired    = "EXPIRED"
	LoyaltyTxAdjustment = "ADJUSTMENT"
)

// ── Audit severities ──

const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// ── Staff roles ──

const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
	RoleCashier = "CASHIER"
	RoleChef    = "CHEF"
)

// RolePolicy replaces scattered role-string comparisons with an explicit
// per-role capability table.
type RolePolicy struct {
	// RequiresShift: the staff member must open a cash-handling shift
	// before operating and close it before logging out.
	RequiresShift bool
	// CanOperatePOS: may send carts to kitchen and settle bills.
	CanOperatePOS bool
	// CanAccessSettings: may change loyalty settings and manage staff.
	CanAccessSettings bool
	// KitchenAccess: may drive the kitchen display transitions.
	KitchenAccess bool
}

var rolePolicies = map[string]RolePolicy{
	RoleAdmin:   {RequiresShift: true, CanOperatePOS: true, CanAccessSettings: true, KitchenAccess: true},
	RoleManager: {RequiresShift: true, CanOperatePOS: true, KitchenAccess: true},
	RoleCashier: {RequiresShift: true, CanOperatePOS: true, KitchenAccess: true},
	// Chefs never touch the drawer, so they are exempt from the shift
	// lifecycle and locked to the kitchen display.
	RoleChef: {KitchenAccess: true},
}

// PolicyFor returns the capability set for a role. Unknown roles get an
// all-false policy.
func PolicyFor(role string) RolePolicy {
	return rolePolicies[role]
}

// IsValidRole reports whether role is one of the closed set of staff roles.
func IsValidRole(role string) bool {
	_, ok := rolePolicies[role]
	return ok
}

// IsValidPaymentMethod reports whether pm is an immediate settlement method.
func IsValidPaymentMethod(pm string) bool {
	switch pm {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodUPI:
		return true
	}
	return false
}

// IsValidItemStatus reports whether s is a kitchen item status.
func IsValidItemStatus(s string) bool {
	switch s {
	case ItemStatusKitchen, ItemStatusReady, ItemStatusServed:
		return true
	}
	return false
}

// itemStatusRank orders the kitchen progression so transitions can be
// checked for monotonicity.
var itemStatusRank = map[string]int{
	ItemStatusKitchen: 0,
	ItemStatusReady:   1,
	ItemStatusServed:  2,
}

// CanTransitionItem reports whether an item may move from one kitchen
// status to another. Only forward moves are allowed; the store would accept
// an overwrite, but the engine never issues one.
func CanTransitionItem(from, to string) bool {
	fr, ok := itemStatusRank[from]
	if !ok {
		// Items written before the kitchen states existed count as KITCHEN.
		fr = 0
	}
	tr, ok := itemStatusRank[to]
	if !ok {
		return false
	}
	return tr > fr
}

// IsValidReservationStatus reports whether s is a reservation status.
func IsValidReservationStatus(s string) bool {
	switch s {
	case ReservationStatusConfirmed, ReservationStatusCompleted,
		ReservationStatusCancelled, ReservationStatusNoShow:
		return true
	}
	return false
}
