package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/nexpos/engine/internal/middleware"
	"github.com/nexpos/engine/internal/service"
)

// ShiftHandler handles cash session endpoints.
type ShiftHandler struct {
	engine *service.Engine
}

func NewShiftHandler(engine *service.Engine) *ShiftHandler {
	return &ShiftHandler{engine: engine}
}

// RegisterRoutes registers shift endpoints on the given Chi router.
func (h *ShiftHandler) RegisterRoutes(r chi.Router) {
	r.Post("/shifts/start", h.Start)
	r.Post("/shifts/end", h.End)
	r.Get("/shifts", h.List)
	r.Get("/shifts/active", h.Active)
}

func (h *ShiftHandler) session(w http.ResponseWriter, r *http.Request) (service.Session, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeErr(w, http.StatusUnauthorized, "not authenticated")
		return service.Session{}, false
	}
	sess, err := h.engine.SessionFor(r.Context(), claims)
	if err != nil {
		writeEngineError(w, err)
		return service.Session{}, false
	}
	return sess, true
}

type startShiftRequest struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// Start handles POST /shifts/start.
func (h *ShiftHandler) Start(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req startShiftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	shift, err := h.engine.StartShift(r.Context(), sess, req.OpeningBalance)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, shift)
}

type endShiftRequest struct {
	ActualCash decimal.Decimal `json:"actual_cash"`
}

// End handles POST /shifts/end with the counted drawer amount.
func (h *ShiftHandler) End(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req endShiftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	shift, err := h.engine.EndShift(r.Context(), sess, req.ActualCash)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shift)
}

// List handles GET /shifts.
func (h *ShiftHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	shifts, err := h.engine.Shifts(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shifts)
}

// Active handles GET /shifts/active for the calling staff member.
func (h *ShiftHandler) Active(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if sess.Shift == nil {
		writeEngineError(w, service.ErrShiftNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess.Shift)
}
