package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// SamplesHandler handles calibration sample resources.
type SamplesHandler struct {
	store *store.Store
	ctrl  Controller
}

// NewSamplesHandler creates a SamplesHandler. ctrl may be nil, in which
// case capture and report are unavailable.
func NewSamplesHandler(s *store.Store, ctrl Controller) *SamplesHandler {
	return &SamplesHandler{store: s, ctrl: ctrl}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/samples, /api/samples/report, /api/samples/{id}
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/samples")
	path = strings.Trim(path, "/")

	switch {
	case path == "":
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.capture(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case path == "report":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.report(w, r)
	case !strings.Contains(path, "/"):
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, path)
		case http.MethodDelete:
			h.delete(w, r, path)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Request types

type captureRequest struct {
	Label string `json:"label"`
}

// Response types

type sampleResponse struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Predicted string  `json:"predicted"`
	Score     float64 `json:"score"`
	CreatedAt string  `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

func toResponse(s store.Sample) sampleResponse {
	return sampleResponse{
		ID:        s.ID,
		Label:     string(s.Label),
		Predicted: string(s.Predicted),
		Score:     s.Score,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
	}
}

// list handles GET /api/samples[?label=...]
func (h *SamplesHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		samples []store.Sample
		err     error
	)
	if raw := r.URL.Query().Get("label"); raw != "" {
		label, ok := gesture.ParseLabel(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "Unknown label")
			return
		}
		samples, err = h.store.Samples().ListByLabel(label)
	} else {
		samples, err = h.store.Samples().List()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{
		Samples: make([]sampleResponse, 0, len(samples)),
	}
	for _, s := range samples {
		response.Samples = append(response.Samples, toResponse(s))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/samples/{id} and includes the landmarks.
func (h *SamplesHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sample, err := h.store.Samples().Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sample not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get sample")
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

// capture handles POST /api/samples with {"label": "..."}.
func (h *SamplesHandler) capture(w http.ResponseWriter, r *http.Request) {
	if h.ctrl == nil {
		writeError(w, http.StatusServiceUnavailable, "Capture is not available")
		return
	}

	var req captureRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	label, ok := gesture.ParseLabel(req.Label)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown label")
		return
	}

	sample, err := h.ctrl.CaptureSample(label)
	switch {
	case errors.Is(err, app.ErrNoHand):
		writeError(w, http.StatusConflict, "No hand in view")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to capture sample")
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(*sample))
}

// report handles GET /api/samples/report.
func (h *SamplesHandler) report(w http.ResponseWriter, r *http.Request) {
	if h.ctrl == nil {
		writeError(w, http.StatusServiceUnavailable, "Report is not available")
		return
	}
	report, err := h.ctrl.Report()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// delete handles DELETE /api/samples/{id}
func (h *SamplesHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Samples().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sample not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete sample")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
