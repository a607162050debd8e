package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// speechProxy forwards to the same path on the speech service and mirrors
// its status and JSON body.
func (s *Server) speechProxy(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Method == http.MethodPost {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "Request entity too large")
				return
			}
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		raw = bytes.TrimSpace(raw)
		switch {
		case len(raw) == 0:
			raw = []byte("{}")
		case !json.Valid(raw):
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		body = raw
	}

	resp, err := s.deps.Speech.Forward(r.Context(), r.Method, r.URL.Path, body)
	if err != nil {
		s.logger.WarnContext(r.Context(), "speech service unreachable", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error":   "Speech service unreachable",
			"details": err.Error(),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}
