package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/crypto/bcrypt"

	"github.com/nexpos/engine/internal/enum"
	"github.com/nexpos/engine/internal/model"
	"github.com/nexpos/engine/internal/store"
)

var ErrInvalidCredentials = errors.New("invalid staff credentials")

// Login checks a staff PIN and returns the staff record on success.
func (e *Engine) Login(ctx context.Context, staffID, pin string) (*model.Staff, error) {
	var staff model.Staff
	if err := e.store.Get(ctx, store.CollStaff, staffID, &staff); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(staff.PINHash), []byte(pin)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &staff, nil
}

// SaveStaff upserts a staff member, hashing the PIN when one is given.
func (e *Engine) SaveStaff(ctx context.Context, sess Session, staff model.Staff, pin string) (*model.Staff, error) {
	if !enum.PolicyFor(sess.Role).CanAccessSettings {
		return nil, ErrNotPermitted
	}
	if !enum.IsValidRole(staff.Role) {
		return nil, fmt.Errorf("invalid role %q", staff.Role)
	}
	if staff.ID == "" {
		staff.ID = e.newID()
	}
	if pin != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		staff.PINHash = string(hash)
	}
	if staff.PINHash == "" {
		return nil, fmt.Errorf("staff %s has no PIN set", staff.Name)
	}
	if err := e.store.Update(ctx, []store.Op{store.Put(store.CollStaff, staff.ID, staff)}); err != nil {
		return nil, err
	}
	e.audit.Info(ctx, sess.StaffName, "STAFF_SAVED", fmt.Sprintf("staff %s (%s)", staff.Name, staff.Role))
	return &staff, nil
}

// StaffByID loads a staff record.
func (e *Engine) StaffByID(ctx context.Context, id string) (*model.Staff, error) {
	var staff model.Staff
	if err := e.store.Get(ctx, store.CollStaff, id, &staff); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}
	return &staff, nil
}

// StaffMembers lists all staff accounts.
func (e *Engine) StaffMembers(ctx context.Context, sess Session) ([]model.Staff, error) {
	if !enum.PolicyFor(sess.Role).CanAccessSettings {
		return nil, ErrNotPermitted
	}
	snap, err := e.store.Snapshot(ctx, store.CollStaff)
	if err != nil {
		return nil, err
	}
	out := make([]model.Staff, 0, len(snap))
	for _, raw := range snap {
		s, err := store.Decode[model.Staff](raw)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteStaff removes a staff account. Self-deletion and removal of the
// last remaining admin are refused so the system always keeps a
// settings-capable login.
func (e *Engine) DeleteStaff(ctx context.Context, sess Session, id string) error {
	if !enum.PolicyFor(sess.Role).CanAccessSettings {
		return ErrNotPermitted
	}
	if id == sess.StaffID {
		return ErrProtectedStaff
	}
	target, err := e.StaffByID(ctx, id)
	if err != nil {
		return err
	}
	if target.Role == enum.RoleAdmin {
		all, err := e.store.Snapshot(ctx, store.CollStaff)
		if err != nil {
			return err
		}
		admins := 0
		for _, raw := range all {
			s, err := store.Decode[model.Staff](raw)
			if err != nil {
				continue
			}
			if s.Role == enum.RoleAdmin {
				admins++
			}
		}
		if admins <= 1 {
			return ErrProtectedStaff
		}
	}
	if err := e.store.Update(ctx, []store.Op{store.Delete(store.CollStaff, id)}); err != nil {
		return err
	}
	e.audit.Warning(ctx, sess.StaffName, "STAFF_REMOVED", fmt.Sprintf("staff %s (%s)", target.Name, target.Role))
	return nil
}

// SaveProduct upserts a catalog item.
func (e *Engine) SaveProduct(ctx context.Context, sess Session, p model.Product) (*model.Product, error) {
	if !enum.PolicyFor(sess.Role).CanAccessSettings {
		return nil, ErrNotPermitted
	}
	if p.Name == "" || p.Price.IsNegative() {
		return nil, fmt.Errorf("product requires a name and a non-negative price")
	}
	if p.ID == "" {
		p.ID = e.newID()
	}
	if err := e.store.Update(ctx, []store.Op{store.Put(store.CollProducts, p.ID, p)}); err != nil {
		return nil, err
	}
	e.audit.Info(ctx, sess.StaffName, "PRODUCT_SAVED", fmt.Sprintf("product %s @ %s", p.Name, p.Price))
	return &p, nil
}

// DeleteProduct removes a catalog item. Historical orders keep their
// own snapshots, so this never rewrites a bill.
func (e *Engine) DeleteProduct(ctx context.Context, sess Session, id string) error {
	if !enum.PolicyFor(sess.Role).CanAccessSettings {
		return ErrNotPermitted
	}
	if err := e.store.Update(ctx, []store.Op{store.Delete(store.CollProducts, id)}); err != nil {
		return err
	}
	e.audit.Warning(ctx, sess.StaffName, "PRODUCT_DELETED", "product "+id)
	return nil
}

// Products lists the catalog, grouped by category then name.
func (e *Engine) Products(ctx context.Context) ([]model.Product, error) {
	snap, err := e.store.Snapshot(ctx, store.CollProducts)
	if err != nil {
		return nil, err
	}
	out := make([]model.Product, 0, len(snap))
	for _, raw := range snap {
		p, err := store.Decode[model.Product](raw)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// SaveTable upserts a table.
func (e *Engine) SaveTable(ctx context.Context, sess Session, t model.Table) (*model.Table, error) {
	if !enum.PolicyFor(sess.Role).CanAccessSettings {
		return nil, ErrNotPermitted
	}
	if t.Name == "" {
		return nil, fmt.Errorf("table requires a name")
	}
	if t.ID == "" {
		t.ID = e.newID()
	}
	if err := e.store.Update(ctx, []store.Op{store.Put(store.CollTables, t.ID, t)}); err != nil {
		return nil, err
	}
	e.audit.Info(ctx, sess.StaffName, "TABLE_SAVED", "table "+t.Name)
	return &t, nil
}

// DeleteTable removes a table unless it has an OPEN order.
func (e *Engine) DeleteTable(ctx context.Context, sess Session, id string) error {
	if !enum.PolicyFor(sess.Role).CanAccessSettings {
		return ErrNotPermitted
	}
	if _, err := e.openOrderFor(ctx, id); err == nil {
		return fmt.Errorf("table %s has an open order", id)
	}
	if err := e.store.Update(ctx, []store.Op{store.Delete(store.CollTables, id)}); err != nil {
		return err
	}
	e.audit.Warning(ctx, sess.StaffName, "TABLE_DELETED", "table "+id)
	return nil
}

// Customers lists customer profiles, most recent visit first.
func (e *Engine) Customers(ctx context.Context) ([]model.Customer, error) {
	snap, err := e.store.Snapshot(ctx, store.CollCustomers)
	if err != nil {
		return nil, err
	}
	out := make([]model.Customer, 0, len(snap))
	for _, raw := range snap {
		c, err := store.Decode[model.Customer](raw)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastVisit.After(out[j].LastVisit) })
	return out, nil
}

// UpdateCustomer edits a customer's profile fields. The loyalty ledger,
// balances and visit history stay server-owned and are never replaced
// from the outside.
func (e *Engine) UpdateCustomer(ctx context.Context, sess Session, phone string, profile model.Customer) (*model.Customer, error) {
	if !enum.PolicyFor(sess.Role).CanOperatePOS {
		return nil, ErrNotPermitted
	}
	if phone == "" {
		return nil, ErrPhoneRequired
	}
	var existing model.Customer
	if err := e.store.Get(ctx, store.CollCustomers, phone, &existing); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	existing.Name = profile.Name
	existing.Email = profile.Email
	existing.Address = profile.Address
	existing.Notes = profile.Notes
	if err := e.store.Update(ctx, []store.Op{store.Put(store.CollCustomers, phone, existing)}); err != nil {
		return nil, err
	}
	e.audit.Info(ctx, sess.StaffName, "CUSTOMER_UPDATED", "customer "+phone)
	return &existing, nil
}

// UpdateLoyaltySettings replaces the program configuration.
func (e *Engine) UpdateLoyaltySettings(ctx context.Context, sess Session, s model.LoyaltySettings) error {
	if !enum.PolicyFor(sess.Role).CanAccessSettings {
		return ErrNotPermitted
	}
	if s.EarningRate.IsNegative() || s.RedemptionValue.IsNegative() {
		return fmt.Errorf("loyalty rates must not be negative")
	}
	if err := e.store.Update(ctx, []store.Op{store.Put(store.CollSettings, "loyalty", s)}); err != nil {
		return err
	}
	e.audit.Info(ctx, sess.StaffName, "LOYALTY_SETTINGS", "loyalty program settings updated")
	return nil
}

// LoyaltySettings returns the active program configuration.
func (e *Engine) LoyaltySettings(ctx context.Context) model.LoyaltySettings {
	return e.loyaltySettings(ctx)
}
