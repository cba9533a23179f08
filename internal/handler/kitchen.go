package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nexpos/engine/internal/middleware"
	"github.com/nexpos/engine/internal/service"
)

// KitchenHandler handles the kitchen display endpoints.
type KitchenHandler struct {
	engine *service.Engine
}

func NewKitchenHandler(engine *service.Engine) *KitchenHandler {
	return &KitchenHandler{engine: engine}
}

// RegisterRoutes registers kitchen endpoints on the given Chi router.
func (h *KitchenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/kitchen/tickets", h.Tickets)
	r.Patch("/orders/{id}/kot/{kotID}", h.UpdateStatus)
}

func (h *KitchenHandler) session(w http.ResponseWriter, r *http.Request) (service.Session, bool) {
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

// Tickets handles GET /kitchen/tickets.
func (h *KitchenHandler) Tickets(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	tickets, err := h.engine.KitchenTickets(r.Context(), sess)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

type kotStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatus handles PATCH /orders/{id}/kot/{kotID}: advance every
// item on the ticket.
func (h *KitchenHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req kotStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.engine.UpdateKOTStatus(r.Context(), sess,
		chi.URLParam(r, "id"), chi.URLParam(r, "kotID"), req.Status)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
