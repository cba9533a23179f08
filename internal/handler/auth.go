package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nexpos/engine/internal/auth"
	"github.com/nexpos/engine/internal/enum"
	"github.com/nexpos/engine/internal/middleware"
	"github.com/nexpos/engine/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	engine    *service.Engine
	jwtSecret string
}

func NewAuthHandler(engine *service.Engine, jwtSecret string) *AuthHandler {
	return &AuthHandler{engine: engine, jwtSecret: jwtSecret}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
}

type loginRequest struct {
	StaffID string `json:"staff_id" validate:"required"`
	PIN     string `json:"pin" validate:"required"`
}

type loginResponse struct {
	Token  string          `json:"token"`
	Name   string          `json:"name"`
	Role   string          `json:"role"`
	Policy enum.RolePolicy `json:"policy"`
}

// Login handles POST /auth/login with a staff id and PIN.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	staff, err := h.engine.Login(r.Context(), req.StaffID, req.PIN)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	token, err := auth.GenerateToken(h.jwtSecret, staff.ID, staff.Name, staff.Role)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:  token,
		Name:   staff.Name,
		Role:   staff.Role,
		Policy: enum.PolicyFor(staff.Role),
	})
}

// Refresh handles POST /auth/refresh, issuing a fresh token for an
// authenticated caller. The staff record is re-read so a removed
// account cannot keep renewing its session.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeErr(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	staff, err := h.engine.StaffByID(r.Context(), claims.StaffID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	token, err := auth.GenerateToken(h.jwtSecret, staff.ID, staff.Name, staff.Role)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:  token,
		Name:   staff.Name,
		Role:   staff.Role,
		Policy: enum.PolicyFor(staff.Role),
	})
}

// Me handles GET /auth/me, echoing the resolved session.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeErr(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	sess, err := h.engine.SessionFor(r.Context(), claims)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"staff_id": sess.StaffID,
		"name":     sess.StaffName,
		"role":     sess.Role,
		"policy":   enum.PolicyFor(sess.Role),
		"shift":    sess.Shift,
	})
}
