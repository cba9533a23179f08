package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/nexpos/engine/internal/enum"
	"github.com/nexpos/engine/internal/model"
	"github.com/nexpos/engine/internal/store"
)

// StartShift opens a cash session for the calling staff member. Roles
// exempt from shifts (the kitchen) cannot open one, and a staff member
// can hold only one ACTIVE shift at a time.
func (e *Engine) StartShift(ctx context.Context, sess Session, openingBalance decimal.Decimal) (*model.Shift, error) {
	if !enum.PolicyFor(sess.Role).RequiresShift {
		return nil, ErrNotPermitted
	}
	if openingBalance.IsNegative() {
		return nil, fmt.Errorf("opening balance must not be negative")
	}
	if existing, err := e.ActiveShiftFor(ctx, sess.StaffID); err == nil && existing != nil {
		return nil, ErrShiftAlreadyActive
	}

	shift := &model.Shift{
		ID:             e.newID(),
		StaffID:        sess.StaffID,
		StaffName:      sess.StaffName,
		StartTime:      e.now(),
		Status:         enum.ShiftStatusActive,
		OpeningBalance: openingBalance,
		ExpectedCash:   openingBalance,
	}
	if err := e.store.Update(ctx, []store.Op{store.Put(store.CollShifts, shift.ID, shift)}); err != nil {
		return nil, err
	}
	e.audit.Info(ctx, sess.StaffName, "SHIFT_STARTED",
		fmt.Sprintf("shift opened with %s float", openingBalance))
	return shift, nil
}

// EndShift closes the caller's active shift against a counted drawer.
// Variance is actual minus expected; a shortage goes negative and is
// flagged in the audit trail.
func (e *Engine) EndShift(ctx context.Context, sess Session, actualCash decimal.Decimal) (*model.Shift, error) {
	shift, err := e.ActiveShiftFor(ctx, sess.StaffID)
	if err != nil {
		return nil, err
	}

	shift.ActualCash = actualCash
	shift.Variance = actualCash.Sub(shift.ExpectedCash)
	shift.Status = enum.ShiftStatusClosed
	shift.EndTime = e.now()

	if err := e.store.Update(ctx, []store.Op{store.Put(store.CollShifts, shift.ID, shift)}); err != nil {
		return nil, err
	}

	detail := fmt.Sprintf("shift closed: expected %s, counted %s, variance %s",
		shift.ExpectedCash, shift.ActualCash, shift.Variance)
	if shift.Variance.IsNegative() {
		e.audit.Warning(ctx, sess.StaffName, "SHIFT_ENDED", detail)
	} else {
		e.audit.Info(ctx, sess.StaffName, "SHIFT_ENDED", detail)
	}
	return shift, nil
}

// ActiveShiftFor finds the staff member's ACTIVE shift, if any.
func (e *Engine) ActiveShiftFor(ctx context.Context, staffID string) (*model.Shift, error) {
	snap, err := e.store.Snapshot(ctx, store.CollShifts)
	if err != nil {
		return nil, err
	}
	for _, raw := range snap {
		s, err := store.Decode[model.Shift](raw)
		if err != nil {
			continue
		}
		if s.StaffID == staffID && s.Status == enum.ShiftStatusActive {
			return &s, nil
		}
	}
	return nil, ErrShiftNotFound
}

// Shifts lists all shifts, newest first.
func (e *Engine) Shifts(ctx context.Context) ([]model.Shift, error) {
	snap, err := e.store.Snapshot(ctx, store.CollShifts)
	if err != nil {
		return nil, err
	}
	shifts := make([]model.Shift, 0, len(snap))
	for _, raw := range snap {
		s, err := store.Decode[model.Shift](raw)
		if err != nil {
			continue
		}
		shifts = append(shifts, s)
	}
	sort.Slice(shifts, func(i, j int) bool { return shifts[i].StartTime.After(shifts[j].StartTime) })
	return shifts, nil
}
