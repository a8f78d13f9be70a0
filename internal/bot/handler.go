package bot

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc  Service
	repo Repo
}

func NewHandler(svc Service, repo Repo) *Handler {
	return &Handler{svc: svc, repo: repo}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
}

// Takeover — operator takes the conversation; the bot stays silent for
// the requested number of minutes.
func (h *Handler) Takeover(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "clientId")
	peer := chi.URLParam(r, "peer")

	var payload struct {
		Timeout int `json:"timeout"`
	}
	_ = json.NewDecoder(r.Body).Decode(&payload)

	until, err := h.svc.Takeover(r.Context(), tenant, peer, time.Duration(payload.Timeout)*time.Minute)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"blocked_until": until,
	})
}

func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "clientId")
	peer := chi.URLParam(r, "peer")

	if err := h.svc.Release(r.Context(), tenant, peer); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Send — manual operator message; blocks the bot like any other
// operator turn.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "clientId")

	var payload struct {
		Phone   string `json:"phone"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if payload.Phone == "" || payload.Message == "" {
		http.Error(w, "missing phone or message", http.StatusBadRequest)
		return
	}

	if err := h.svc.AdminSend(r.Context(), tenant, payload.Phone, payload.Message); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) Conversations(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "clientId")

	log, err := h.repo.Conversations(r.Context(), tenant)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": log})
}

func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "clientId")

	cat, err := h.repo.Catalog(r.Context(), tenant)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "catalog": cat})
}

func (h *Handler) PutCatalog(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "clientId")

	var cat Catalog
	if err := json.NewDecoder(r.Body).Decode(&cat); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	cat.Tenant = tenant

	if err := h.repo.SaveCatalog(r.Context(), tenant, &cat); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "clientId")
	status := r.URL.Query().Get("status")
	if status != "" && !ValidOrderStatus(status) {
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	orders, err := h.repo.Orders(r.Context(), tenant, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "leads": orders})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "clientId")
	id := chi.URLParam(r, "orderId")

	ord, err := h.repo.Order(r.Context(), tenant, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "lead": ord})
}

// UpdateOrder — the status mutation path. Orders are never re-derived
// from sessions after emission.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "clientId")
	id := chi.URLParam(r, "orderId")

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if !ValidOrderStatus(payload.Status) {
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	ord, err := h.repo.UpdateOrderStatus(r.Context(), tenant, id, payload.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "lead": ord})
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "clientId")
	id := chi.URLParam(r, "orderId")

	if err := h.repo.DeleteOrder(r.Context(), tenant, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) OrderStats(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "clientId")

	stats, err := h.repo.OrderStats(r.Context(), tenant)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}
