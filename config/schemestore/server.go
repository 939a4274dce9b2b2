package schemestore

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kastheco/monothematic/recolor"
)

// maxRecolorBody caps the size of a POST /v1/recolor request body.
const maxRecolorBody = 8 << 20

// colorEntry is the body of GET /v1/scheme/{name}.
type colorEntry struct {
	Name  string `json:"name"`
	OKLCH string `json:"oklch"`
	Hex   string `json:"hex"`
}

// NewHandler returns an http.Handler that exposes the Store over HTTP.
// It uses Go 1.22+ ServeMux pattern matching for method+path routing.
func NewHandler(store Store) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// Whole scheme, byte-for-byte what is written to the scheme file
	mux.HandleFunc("GET /v1/scheme", func(w http.ResponseWriter, r *http.Request) {
		p, err := store.Scheme()
		if err != nil {
			writeStoreError(w, err)
			return
		}
		data, err := p.EncodeScheme()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	})

	// Single entry
	mux.HandleFunc("GET /v1/scheme/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		p, err := store.Scheme()
		if err != nil {
			writeStoreError(w, err)
			return
		}
		nc, ok := p.Lookup(name)
		if !ok {
			writeError(w, http.StatusNotFound, "color not found: "+name)
			return
		}
		writeJSON(w, http.StatusOK, colorEntry{Name: nc.Name, OKLCH: nc.CSS, Hex: nc.Hex})
	})

	// Recolor the request body against the current scheme
	mux.HandleFunc("POST /v1/recolor", func(w http.ResponseWriter, r *http.Request) {
		p, err := store.Scheme()
		if err != nil {
			writeStoreError(w, err)
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRecolorBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read request body: "+err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, recolor.Recolor(string(body), p))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// writeStoreError maps a Store error to a response.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNoScheme) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// writeJSON encodes v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
