package service

import (
	"context"
	"errors"
	"testing"

	"github.com/nexpos/engine/internal/enum"
	"github.com/nexpos/engine/internal/model"
	"github.com/nexpos/engine/internal/store"
	"github.com/nexpos/engine/internal/store/memory"
)

func seedStaff(t *testing.T, st *memory.Store, staff ...model.Staff) {
	t.Helper()
	ctx := context.Background()
	ops := make([]store.Op, 0, len(staff))
	for _, s := range staff {
		ops = append(ops, store.Put(store.CollStaff, s.ID, s))
	}
	if err := st.Update(ctx, ops); err != nil {
		t.Fatalf("seed staff: %v", err)
	}
}

func TestDeleteStaffProtections(t *testing.T) {
	ctx := context.Background()
	e, st := newTestEngine(t, 5)
	seedStaff(t, st,
		model.Staff{ID: "ad-1", Name: "John", Role: enum.RoleAdmin, PINHash: "x"},
		model.Staff{ID: "ca-1", Name: "Sarah", Role: enum.RoleCashier, PINHash: "x"},
	)
	admin := Session{StaffID: "ad-1", StaffName: "John", Role: enum.RoleAdmin}

	if err := e.DeleteStaff(ctx, admin, "ad-1"); !errors.Is(err, ErrProtectedStaff) {
		t.Errorf("self delete = %v, want ErrProtectedStaff", err)
	}

	// ad-1 is the only admin, so removing it is refused even for
	// another settings-capable caller.
	if err := e.DeleteStaff(ctx, Session{StaffID: "ad-2", Role: enum.RoleAdmin}, "ad-1"); !errors.Is(err, ErrProtectedStaff) {
		t.Errorf("last admin delete = %v, want ErrProtectedStaff", err)
	}

	if err := e.DeleteStaff(ctx, admin, "ghost"); !errors.Is(err, ErrStaffNotFound) {
		t.Errorf("unknown staff = %v, want ErrStaffNotFound", err)
	}

	cashier := Session{StaffID: "ca-1", StaffName: "Sarah", Role: enum.RoleCashier}
	if err := e.DeleteStaff(ctx, cashier, "ad-1"); !errors.Is(err, ErrNotPermitted) {
		t.Errorf("cashier delete = %v, want ErrNotPermitted", err)
	}

	if err := e.DeleteStaff(ctx, admin, "ca-1"); err != nil {
		t.Fatalf("delete cashier: %v", err)
	}
	if _, err := e.StaffByID(ctx, "ca-1"); !errors.Is(err, ErrStaffNotFound) {
		t.Errorf("deleted staff still readable: %v", err)
	}
}

func TestUpdateCustomerKeepsLoyaltyState(t *testing.T) {
	ctx := context.Background()
	e, st := newTestEngine(t, 5)
	err := st.Update(ctx, []store.Op{
		store.Put(store.CollCustomers, "9000000001", model.Customer{
			Phone:         "9000000001",
			Name:          "Asha",
			LoyaltyPoints: 42,
		}),
	})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	sess := Session{StaffID: "st-1", StaffName: "Priya", Role: enum.RoleCashier}

	got, err := e.UpdateCustomer(ctx, sess, "9000000001", model.Customer{
		Name:    "Asha Rao",
		Email:   "asha@example.com",
		Address: "12 MG Road",
		// A stale client copy must not overwrite the ledger.
		LoyaltyPoints: 0,
	})
	if err != nil {
		t.Fatalf("update customer: %v", err)
	}
	if got.Name != "Asha Rao" || got.Email != "asha@example.com" || got.Address != "12 MG Road" {
		t.Errorf("profile not applied: %+v", got)
	}
	if got.LoyaltyPoints != 42 {
		t.Errorf("loyalty points = %d, want 42 preserved", got.LoyaltyPoints)
	}

	if _, err := e.UpdateCustomer(ctx, sess, "nope", model.Customer{Name: "X"}); !errors.Is(err, ErrCustomerNotFound) {
		t.Errorf("unknown customer = %v, want ErrCustomerNotFound", err)
	}
	if _, err := e.UpdateCustomer(ctx, sess, "", model.Customer{Name: "X"}); !errors.Is(err, ErrPhoneRequired) {
		t.Errorf("blank phone = %v, want ErrPhoneRequired", err)
	}
}
