// Package api exposes the track configuration over HTTP for control-system
// clients. Reads return a consistent snapshot; writes go through the
// dispatcher so a rejected array leaves the prior configuration intact.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/ericonr/ADCore/internal/driver"
	"github.com/ericonr/ADCore/internal/multitrack"
)

type Server struct {
	d *driver.Dispatcher
}

func NewServer(d *driver.Dispatcher) *Server {
	return &Server{d: d}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tracks", s.showTracks)
	mux.HandleFunc("/api/tracks/starts", s.writeArray(s.d.StartParam()))
	mux.HandleFunc("/api/tracks/ends", s.writeArray(s.d.EndParam()))
	mux.HandleFunc("/api/tracks/bins", s.writeArray(s.d.BinParam()))
	return mux
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode json response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) showTracks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.d.Snapshot())
}

// arrayWrite is the request body for the three array write endpoints.
type arrayWrite struct {
	Values []int32 `json:"values"`
}

// writeArray builds the handler for one parameter's write endpoint. A
// validation rejection maps to 400 with the configurator's message; the
// success response is the resulting configuration snapshot.
func (s *Server) writeArray(p driver.Param) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var body arrayWrite
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if body.Values == nil {
			writeJSONError(w, http.StatusBadRequest, "missing values array")
			return
		}

		if err := s.d.WriteInt32Array(p, body.Values); err != nil {
			var verr *multitrack.ValidationError
			if errors.As(err, &verr) {
				writeJSONError(w, http.StatusBadRequest, verr.Error())
				return
			}
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, s.d.Snapshot())
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf("[%d] %s %s %vms",
			lrw.statusCode, r.Method, r.RequestURI,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
