// Package handlers serves a read-only JSON view of a resolved catalog.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lidar-tools/tilecat/internal/multitemp"
	"github.com/lidar-tools/tilecat/internal/vpc"
)

type Handler struct {
	catalog        *vpc.Catalog
	classification *multitemp.Classification
}

func New(catalog *vpc.Catalog, classification *multitemp.Classification) *Handler {
	return &Handler{
		catalog:        catalog,
		classification: classification,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}
