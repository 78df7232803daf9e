package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hollowaydev/fieldops/internal/auth"
	"github.com/hollowaydev/fieldops/internal/model"
	"github.com/hollowaydev/fieldops/internal/notify"
)

type TokenHandler struct {
	registrar *notify.Registrar
	logger    *slog.Logger
}

func NewTokenHandler(registrar *notify.Registrar, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{registrar: registrar, logger: logger}
}

type registerRequest struct {
	Token      string `json:"token"`
	DeviceInfo string `json:"device_info"`
}

// Register handles POST /api/token.
func (h *TokenHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	dt, err := h.registrar.Register(auth.UserID(r.Context()), req.Token, req.DeviceInfo)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dt)
}

// List handles GET /api/tokens.
func (h *TokenHandler) List(w http.ResponseWriter, r *http.Request) {
	regs, err := h.registrar.ListMine(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if regs == nil {
		regs = []model.DeviceToken{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// Delete handles DELETE /api/token/{id}.
func (h *TokenHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ac, _ := auth.FromContext(r.Context())

	if err := h.registrar.DeleteOne(ac.UserID, ac.Role, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// DeleteAll handles DELETE /api/tokens.
func (h *TokenHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.registrar.DeleteAllMine(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
