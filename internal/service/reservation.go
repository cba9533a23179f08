package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nexpos/engine/internal/enum"
	"github.com/nexpos/engine/internal/model"
	"github.com/nexpos/engine/internal/store"
)

// ReservationRequest books a table ahead of time.
type ReservationRequest struct {
	TableID         string    `json:"table_id"`
	CustomerName    string    `json:"customer_name"`
	CustomerPhone   string    `json:"customer_phone"`
	ReservationTime time.Time `json:"reservation_time"`
	Guests          int       `json:"guests"`
	Notes           string    `json:"notes,omitempty"`
}

// CreateReservation books a table. The table must exist; double
// booking the same slot is allowed and left to the host to resolve.
func (e *Engine) CreateReservation(ctx context.Context, sess Session, req ReservationRequest) (*model.Reservation, error) {
	if !enum.PolicyFor(sess.Role).CanOperatePOS {
		return nil, ErrNotPermitted
	}
	if req.CustomerName == "" || req.CustomerPhone == "" {
		return nil, ErrPhoneRequired
	}
	if req.Guests <= 0 {
		return nil, fmt.Errorf("guest count must be positive")
	}
	var table model.Table
	if err := e.store.Get(ctx, store.CollTables, req.TableID, &table); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, req.TableID)
		}
		return nil, err
	}

	res := &model.Reservation{
		ID:              e.newID(),
		TableID:         req.TableID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		ReservationTime: req.ReservationTime,
		Guests:          req.Guests,
		Notes:           req.Notes,
		Status:          enum.ReservationStatusConfirmed,
		CreatedAt:       e.now(),
		CreatedBy:       sess.StaffName,
	}
	if err := e.store.Update(ctx, []store.Op{store.Put(store.CollReservations, res.ID, res)}); err != nil {
		return nil, err
	}
	e.audit.Info(ctx, sess.StaffName, "RESERVATION_CREATED",
		fmt.Sprintf("%s for %d guests on %s", table.Name, req.Guests, req.ReservationTime.Format(time.RFC3339)))
	return res, nil
}

// UpdateReservationStatus moves a reservation through its lifecycle
// (confirmed, completed, cancelled, no-show).
func (e *Engine) UpdateReservationStatus(ctx context.Context, sess Session, id, status string) (*model.Reservation, error) {
	if !enum.PolicyFor(sess.Role).CanOperatePOS {
		return nil, ErrNotPermitted
	}
	if !enum.IsValidReservationStatus(status) {
		return nil, fmt.Errorf("invalid reservation status %q", status)
	}
	var res model.Reservation
	if err := e.store.Get(ctx, store.CollReservations, id, &res); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrReservationNotFound, id)
		}
		return nil, err
	}
	res.Status = status
	if err := e.store.Update(ctx, []store.Op{store.Put(store.CollReservations, res.ID, res)}); err != nil {
		return nil, err
	}
	e.audit.Info(ctx, sess.StaffName, "RESERVATION_STATUS",
		fmt.Sprintf("reservation %s marked %s", id, status))
	return &res, nil
}

// Reservations lists bookings, soonest first.
func (e *Engine) Reservations(ctx context.Context) ([]model.Reservation, error) {
	snap, err := e.store.Snapshot(ctx, store.CollReservations)
	if err != nil {
		return nil, err
	}
	out := make([]model.Reservation, 0, len(snap))
	for _, raw := range snap {
		r, err := store.Decode[model.Reservation](raw)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservationTime.Before(out[j].ReservationTime) })
	return out, nil
}
