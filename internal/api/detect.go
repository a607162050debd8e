package api

import (
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/civixity/internal/detect"
	"github.com/MikeSquared-Agency/civixity/internal/metrics"
)

func (s *Server) detectImage(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image uploaded")
		return
	}
	defer file.Close()

	result, err := s.deps.Classifier.ClassifyUpload(r.Context(), file)
	if err == nil {
		metrics.ImageDetected(result)
		writeJSON(w, http.StatusOK, map[string]string{"result": result})
		return
	}

	metrics.ImageDetected("error")
	s.logger.ErrorContext(r.Context(), "image detection failed", "error", err)

	msg := "AI detection failed"
	if errors.Is(err, detect.ErrUnexpectedOutput) {
		msg = "Unexpected AI detection output"
	}
	var details string
	var de *detect.DetectionError
	if errors.As(err, &de) {
		details = de.Details
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   msg,
		"details": details,
	})
}
