// Package api implements the JSON handlers behind mudra's local HTTP API.
package api

import (
	"context"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Controller is the part of app.Controller the API drives.
type Controller interface {
	Status() app.Status
	SetEnabled(ctx context.Context, on bool) error
	Tuning() config.Tuning
	ApplyTuning(t config.Tuning) error
	CaptureSample(label gesture.Label) (*store.Sample, error)
	Report() (gesture.Report, error)
}

var _ Controller = (*app.Controller)(nil)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decode reads a JSON body into v.
func decode(r *http.Request, v interface{}) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}
