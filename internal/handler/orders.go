package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nexpos/engine/internal/middleware"
	"github.com/nexpos/engine/internal/service"
	"github.com/nexpos/engine/internal/settlement"
)

// OrderHandler handles the order lifecycle endpoints.
type OrderHandler struct {
	engine *service.Engine
	qr     *QRService
}

func NewOrderHandler(engine *service.Engine, qr *QRService) *OrderHandler {
	return &OrderHandler{engine: engine, qr: qr}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders/send", h.Send)
	r.Post("/orders/settle", h.Settle)
	r.Post("/orders/settle/preview", h.Preview)
	r.Post("/orders/cancel", h.Cancel)
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Get)
	r.Get("/orders/{id}/upi-qr", h.UPIQR)
	r.Get("/floor", h.Floor)
}

// session resolves the authenticated caller into an engine session.
func (h *OrderHandler) session(w http.ResponseWriter, r *http.Request) (service.Session, bool) {
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

type sendRequest struct {
	TableID       string              `json:"table_id" validate:"required"`
	Lines         []service.LineInput `json:"lines" validate:"required,min=1,dive"`
	CustomerPhone string              `json:"customer_phone"`
	CustomerName  string              `json:"customer_name"`
}

// Send handles POST /orders/send: dispatch a cart as a kitchen ticket.
func (h *OrderHandler) Send(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req sendRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.engine.SendToKitchen(r.Context(), sess, service.SendRequest{
		TableID:       req.TableID,
		Lines:         req.Lines,
		CustomerPhone: req.CustomerPhone,
		CustomerName:  req.CustomerName,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Settle handles POST /orders/settle.
func (h *OrderHandler) Settle(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req service.SettleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TableID == "" {
		writeErr(w, http.StatusBadRequest, "table_id is required")
		return
	}

	res, err := h.engine.SettleOrder(r.Context(), sess, req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type previewRequest struct {
	TableID       string                   `json:"table_id" validate:"required"`
	Discount      settlement.DiscountInput `json:"discount"`
	RedeemPoints  bool                     `json:"redeem_points"`
	CustomerPhone string                   `json:"customer_phone"`
}

// Preview handles POST /orders/settle/preview, a read-only quote.
func (h *OrderHandler) Preview(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req previewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	preview, err := h.engine.PreviewSettlement(r.Context(), sess, req.TableID, req.Discount, req.RedeemPoints, req.CustomerPhone)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

type cancelRequest struct {
	TableID string `json:"table_id" validate:"required"`
	Reason  string `json:"reason"`
}

// Cancel handles POST /orders/cancel: void the table's open order.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.engine.CancelOrder(r.Context(), sess, req.TableID, req.Reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	orders, err := h.engine.Orders(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	order, err := h.engine.Order(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// UPIQR handles GET /orders/{id}/upi-qr: a scannable payment code for
// the order's outstanding amount.
func (h *OrderHandler) UPIQR(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	order, err := h.engine.Order(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	amount := order.Outstanding()
	if amount.IsZero() {
		amount = order.Total
	}
	png, err := h.qr.PaymentPNG(amount, "Order "+order.ID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "could not render QR")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// Floor handles GET /floor: every table with its open order.
func (h *OrderHandler) Floor(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	view, err := h.engine.FloorView(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
