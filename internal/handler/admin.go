package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nexpos/engine/internal/middleware"
	"github.com/nexpos/engine/internal/model"
	"github.com/nexpos/engine/internal/service"
)

// AdminHandler handles catalog, staff, reservations, settings and
// reporting endpoints.
type AdminHandler struct {
	engine *service.Engine
}

func NewAdminHandler(engine *service.Engine) *AdminHandler {
	return &AdminHandler{engine: engine}
}

// RegisterRoutes registers catalog and reservation endpoints. Reads
// are open to every authenticated role; the engine rejects mutations
// from roles without settings access.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/products", h.ListProducts)
	r.Post("/products", h.SaveProduct)
	r.Delete("/products/{id}", h.DeleteProduct)

	r.Post("/tables", h.SaveTable)
	r.Delete("/tables/{id}", h.DeleteTable)

	r.Get("/reservations", h.ListReservations)
	r.Post("/reservations", h.CreateReservation)
	r.Patch("/reservations/{id}", h.UpdateReservation)

	r.Get("/settings/loyalty", h.GetLoyaltySettings)
}

// RegisterBackOfficeRoutes registers endpoints for staff management,
// loyalty configuration and reporting. The router mounts these behind
// the settings capability.
func (h *AdminHandler) RegisterBackOfficeRoutes(r chi.Router) {
	r.Get("/staff", h.ListStaff)
	r.Post("/staff", h.SaveStaff)
	r.Delete("/staff/{id}", h.DeleteStaff)

	r.Put("/settings/loyalty", h.PutLoyaltySettings)

	r.Get("/dashboard", h.Dashboard)
	r.Get("/audit", h.Audit)
}

func (h *AdminHandler) session(w http.ResponseWriter, r *http.Request) (service.Session, bool) {
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

// ListProducts handles GET /products.
func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	products, err := h.engine.Products(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// SaveProduct handles POST /products (create or update).
func (h *AdminHandler) SaveProduct(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var p model.Product
	if !decodeJSON(w, r, &p) {
		return
	}
	saved, err := h.engine.SaveProduct(r.Context(), sess, p)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeleteProduct handles DELETE /products/{id}.
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.engine.DeleteProduct(r.Context(), sess, chi.URLParam(r, "id")); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveTable handles POST /tables (create or update).
func (h *AdminHandler) SaveTable(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var t model.Table
	if !decodeJSON(w, r, &t) {
		return
	}
	saved, err := h.engine.SaveTable(r.Context(), sess, t)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeleteTable handles DELETE /tables/{id}.
func (h *AdminHandler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.engine.DeleteTable(r.Context(), sess, chi.URLParam(r, "id")); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type saveStaffRequest struct {
	ID   string `json:"id"`
	Name string `json:"name" validate:"required"`
	Role string `json:"role" validate:"required"`
	PIN  string `json:"pin"`
}

// SaveStaff handles POST /staff.
func (h *AdminHandler) SaveStaff(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req saveStaffRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	staff, err := h.engine.SaveStaff(r.Context(), sess,
		model.Staff{ID: req.ID, Name: req.Name, Role: req.Role}, req.PIN)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	// Never echo the PIN hash.
	staff.PINHash = ""
	writeJSON(w, http.StatusOK, staff)
}

// ListStaff handles GET /staff.
func (h *AdminHandler) ListStaff(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	staff, err := h.engine.StaffMembers(r.Context(), sess)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	for i := range staff {
		staff[i].PINHash = ""
	}
	writeJSON(w, http.StatusOK, staff)
}

// DeleteStaff handles DELETE /staff/{id}.
func (h *AdminHandler) DeleteStaff(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.engine.DeleteStaff(r.Context(), sess, chi.URLParam(r, "id")); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListReservations handles GET /reservations.
func (h *AdminHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	reservations, err := h.engine.Reservations(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservations)
}

// CreateReservation handles POST /reservations.
func (h *AdminHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req service.ReservationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.engine.CreateReservation(r.Context(), sess, req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type reservationStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateReservation handles PATCH /reservations/{id}.
func (h *AdminHandler) UpdateReservation(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req reservationStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.engine.UpdateReservationStatus(r.Context(), sess, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetLoyaltySettings handles GET /settings/loyalty.
func (h *AdminHandler) GetLoyaltySettings(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.engine.LoyaltySettings(r.Context()))
}

// PutLoyaltySettings handles PUT /settings/loyalty.
func (h *AdminHandler) PutLoyaltySettings(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var s model.LoyaltySettings
	if !decodeJSON(w, r, &s) {
		return
	}
	if err := h.engine.UpdateLoyaltySettings(r.Context(), sess, s); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Dashboard handles GET /dashboard?date=YYYY-MM-DD, defaulting to
// today.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	stats, err := h.engine.Dashboard(r.Context(), date)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Audit handles GET /audit?limit=N.
func (h *AdminHandler) Audit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	logs, err := h.engine.AuditTrail(r.Context(), sess, limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
