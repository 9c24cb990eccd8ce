package handlers

import (
	"net/http"
	"strconv"

	"github.com/lidar-tools/tilecat/internal/filter"
	"github.com/lidar-tools/tilecat/internal/report"
	"github.com/lidar-tools/tilecat/internal/vpc"
)

// HandleCatalog returns the full catalog as a virtual point cloud document.
func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.writeJSON(w, vpc.NewDocument(h.catalog))
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleTiles returns the grid classification with per-tile observation rows.
func (h *Handler) HandleTiles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.writeJSON(w, report.NewClassification(h.classification))
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleEntries returns catalog entries narrowed by optional bbox, epsg,
// start, and end query parameters.
func (h *Handler) HandleEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	c := h.catalog
	query := r.URL.Query()

	if bbox := query.Get("bbox"); bbox != "" {
		epsg := 0
		if v := query.Get("epsg"); v != "" {
			code, err := strconv.Atoi(v)
			if err != nil {
				h.writeError(w, "Invalid epsg: "+err.Error(), http.StatusBadRequest)
				return
			}
			epsg = code
		}
		ext, err := filter.ParseExtent(bbox, epsg)
		if err != nil {
			h.writeError(w, "Invalid bbox: "+err.Error(), http.StatusBadRequest)
			return
		}
		c, err = filter.Spatial(c, ext)
		if err != nil {
			h.writeError(w, "Spatial filter failed: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	if start, end := query.Get("start"), query.Get("end"); start != "" || end != "" {
		filtered, _, err := filter.Temporal(c, start, end)
		if err != nil {
			h.writeError(w, "Invalid time range: "+err.Error(), http.StatusBadRequest)
			return
		}
		c = filtered
	}

	h.writeJSON(w, vpc.NewDocument(c))
}
