package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/nexpos/engine/internal/middleware"
	"github.com/nexpos/engine/internal/model"
	"github.com/nexpos/engine/internal/service"
)

// CustomerHandler handles customer and due collection endpoints.
type CustomerHandler struct {
	engine *service.Engine
}

func NewCustomerHandler(engine *service.Engine) *CustomerHandler {
	return &CustomerHandler{engine: engine}
}

// RegisterRoutes registers customer endpoints on the given Chi router.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/customers", h.List)
	r.Patch("/customers/{phone}", h.Update)
	r.Get("/customers/{phone}/due", h.Due)
	r.Post("/customers/{phone}/collect", h.Collect)
}

func (h *CustomerHandler) session(w http.ResponseWriter, r *http.Request) (service.Session, bool) {
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

// List handles GET /customers.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	customers, err := h.engine.Customers(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

type updateCustomerRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

// Update handles PATCH /customers/{phone}: profile edits only, loyalty
// state stays server-owned.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req updateCustomerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	customer, err := h.engine.UpdateCustomer(r.Context(), sess, chi.URLParam(r, "phone"), model.Customer{
		Name:    req.Name,
		Email:   req.Email,
		Address: req.Address,
		Notes:   req.Notes,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

// Due handles GET /customers/{phone}/due: the customer's outstanding
// balance order by order.
func (h *CustomerHandler) Due(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	total, orders, err := h.engine.OutstandingDue(r.Context(), chi.URLParam(r, "phone"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":  total,
		"orders": orders,
	})
}

type collectRequest struct {
	Method string          `json:"method" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// Collect handles POST /customers/{phone}/collect.
func (h *CustomerHandler) Collect(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req collectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	col, err := h.engine.CollectDue(r.Context(), sess, chi.URLParam(r, "phone"), req.Method, req.Amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, col)
}
