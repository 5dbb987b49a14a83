package api

import (
	"net/http"
)

// ModeHandler serves gesture-mode status and toggling.
type ModeHandler struct {
	ctrl Controller
}

// NewModeHandler creates a ModeHandler.
func NewModeHandler(ctrl Controller) *ModeHandler {
	return &ModeHandler{ctrl: ctrl}
}

type modeRequest struct {
	Enabled *bool `json:"enabled"`
}

// Status handles GET /api/status.
func (h *ModeHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Status())
}

// Mode handles POST /api/mode with {"enabled": bool}. A failed enable
// answers 503 with the reason; the same reason stays on /api/status.
func (h *ModeHandler) Mode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req modeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	if err := h.ctrl.SetEnabled(r.Context(), *req.Enabled); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Status())
}
