package api

import (
	"net/http"
)

// TuningHandler reads and replaces the live tuning profile.
type TuningHandler struct {
	ctrl Controller
}

// NewTuningHandler creates a TuningHandler.
func NewTuningHandler(ctrl Controller) *TuningHandler {
	return &TuningHandler{ctrl: ctrl}
}

// ServeHTTP handles GET and PUT /api/tuning. PUT takes a full profile;
// fields left out keep their current values.
func (h *TuningHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.ctrl.Tuning())
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *TuningHandler) update(w http.ResponseWriter, r *http.Request) {
	t := h.ctrl.Tuning()
	if err := decode(r, &t); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := t.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.ctrl.ApplyTuning(t); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Tuning())
}
