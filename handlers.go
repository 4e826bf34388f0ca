package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/kwv/headmesh/headshape"
)

// newHTTPServer creates an HTTP server exposing the session state and the
// mutation operations used by external viewers.
func newHTTPServer(session *headshape.Session, config *headshape.Config, reload func() error) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		loaded := true
		count, err := session.PointCount()
		if errors.Is(err, headshape.ErrNotReady) {
			loaded = false
		}

		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Status       string    `json:"status"`
			Timestamp    time.Time `json:"timestamp"`
			Loaded       bool      `json:"loaded"`
			ResolutionMM int       `json:"resolutionMM"`
			PointCount   int       `json:"pointCount"`
		}{
			Status:       "ok",
			Timestamp:    time.Now(),
			Loaded:       loaded,
			ResolutionMM: session.Resolution(),
			PointCount:   count,
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding health status: %v", err)
		}
	})

	// Visible point set at the active resolution
	mux.HandleFunc("/points.json", func(w http.ResponseWriter, r *http.Request) {
		visible, err := session.Visible()
		if err != nil {
			writeSessionError(w, err)
			return
		}
		total, err := session.TotalPoints()
		if err != nil {
			writeSessionError(w, err)
			return
		}
		excluded, err := session.Excluded()
		if err != nil {
			writeSessionError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		payload := struct {
			SessionID    string          `json:"sessionId"`
			ResolutionMM int             `json:"resolutionMM"`
			TotalPoints  int             `json:"totalPoints"`
			Excluded     []int           `json:"excluded"`
			Points       headshape.Cloud `json:"points"`
		}{
			SessionID:    session.ID(),
			ResolutionMM: session.Resolution(),
			TotalPoints:  total,
			Excluded:     excluded,
			Points:       visible,
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("Error encoding points: %v", err)
		}
	})

	// Fixed-resolution reference set
	mux.HandleFunc("/reference.json", func(w http.ResponseWriter, r *http.Request) {
		reference, err := session.Reference()
		if err != nil {
			writeSessionError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		payload := struct {
			SessionID   string          `json:"sessionId"`
			ReferenceMM int             `json:"referenceMM"`
			Points      headshape.Cloud `json:"points"`
		}{
			SessionID:   session.ID(),
			ReferenceMM: config.Resolution.ReferenceMM,
			Points:      reference,
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("Error encoding reference points: %v", err)
		}
	})

	// Summary statistics of the visible set
	mux.HandleFunc("/summary.json", func(w http.ResponseWriter, r *http.Request) {
		visible, err := session.Visible()
		if err != nil {
			writeSessionError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(headshape.Summarize(visible)); err != nil {
			log.Printf("Error encoding summary: %v", err)
		}
	})

	// GeoJSON outline of the visible and reference sets
	mux.HandleFunc("/outline.geojson", func(w http.ResponseWriter, r *http.Request) {
		visible, err := session.Visible()
		if err != nil {
			writeSessionError(w, err)
			return
		}
		reference, err := session.Reference()
		if err != nil {
			writeSessionError(w, err)
			return
		}

		fc := headshape.OutlineFeatureCollection(visible, reference, parsePlane(r))
		data, err := fc.MarshalJSON()
		if err != nil {
			log.Printf("Error marshaling outline: %v", err)
			http.Error(w, "Failed to build outline", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write(data); err != nil {
			log.Printf("Error writing outline: %v", err)
		}
	})

	// Raster render of the projected point sets
	mux.HandleFunc("/points.png", func(w http.ResponseWriter, r *http.Request) {
		visible, err := session.Visible()
		if err != nil {
			writeSessionError(w, err)
			return
		}
		reference, err := session.Reference()
		if err != nil {
			writeSessionError(w, err)
			return
		}

		renderer := headshape.NewVectorPointRenderer(visible, reference)
		renderer.Plane = parsePlane(r)

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := renderer.RenderToPNG(w); err != nil {
			log.Printf("Error encoding points PNG: %v", err)
		}
	})

	// Vector render of the projected point sets
	mux.HandleFunc("/points.svg", func(w http.ResponseWriter, r *http.Request) {
		visible, err := session.Visible()
		if err != nil {
			writeSessionError(w, err)
			return
		}
		reference, err := session.Reference()
		if err != nil {
			writeSessionError(w, err)
			return
		}

		renderer := headshape.NewVectorPointRenderer(visible, reference)
		renderer.Plane = parsePlane(r)

		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		if err := renderer.RenderToSVG(w); err != nil {
			log.Printf("Error encoding points SVG: %v", err)
		}
	})

	// Change the active resolution
	mux.HandleFunc("/resolution", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			ResolutionMM int `json:"resolutionMM"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}

		if err := session.SetResolution(req.ResolutionMM); err != nil {
			writeSessionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	// Exclude a point by its index into the visible set
	mux.HandleFunc("/exclude", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Index int `json:"index"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}

		if err := session.ExcludePoint(req.Index); err != nil {
			writeSessionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	// Reload the source cloud from its configured origin
	mux.HandleFunc("/reload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if reload == nil {
			http.Error(w, "No source configured", http.StatusServiceUnavailable)
			return
		}

		if err := reload(); err != nil {
			log.Printf("Error reloading source cloud: %v", err)
			http.Error(w, "Reload failed", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

// writeSessionError maps session errors to HTTP status codes.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, headshape.ErrNotReady):
		http.Error(w, "No head-shape cloud loaded", http.StatusServiceUnavailable)
	case errors.Is(err, headshape.ErrInvalidResolution):
		http.Error(w, "Resolution outside configured bounds", http.StatusBadRequest)
	case errors.Is(err, headshape.ErrEmptyExport):
		http.Error(w, "Visible point set is empty", http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// parsePlane reads the projection plane from the "plane" query parameter.
// Defaults to the top-down X/Y view.
func parsePlane(r *http.Request) headshape.Plane {
	if r.URL.Query().Get("plane") == "xz" {
		return headshape.PlaneXZ
	}
	return headshape.PlaneXY
}
