package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// maxUploadSize bounds multipart uploads; high-resolution phone photos can
// easily exceed 10MB.
const maxUploadSize = int64(50 << 20)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes a JSON response with CORS headers set
func writeJSON(w http.ResponseWriter, status int, body any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes a JSON error response with CORS headers set
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleListAnalyses returns a list of all analyses
func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses, err := s.service.ListAnalyses()
	if err != nil {
		slog.Error("Error listing analyses", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, analyses)
}

// handleUploadReceipt handles receipt upload and processing. The "mode" form
// value selects an engine by name, or "compare" for a two-engine diff.
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		message := "Error parsing form"
		if err.Error() == "http: request body too large" {
			message = "File is too large. Maximum size is 50MB."
		}
		writeError(w, http.StatusBadRequest, message)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		writeError(w, http.StatusBadRequest, "File is too large. Maximum size is 50MB.")
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file")
		return
	}

	mode := strings.TrimSpace(r.FormValue("mode"))
	if mode == "" {
		mode = ModeCompare
	}

	contentType := header.Header.Get("Content-Type")
	analysis, err := s.service.ProcessReceipt(r.Context(), header.Filename, data, contentType, mode)
	if err != nil {
		slog.Error("Error processing receipt", "error", err, "filename", header.Filename, "mode", mode)
		status := http.StatusInternalServerError
		if strings.HasPrefix(err.Error(), "unsupported mode") || errors.Is(err, ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, analysis)
}

// handleGetAnalysis returns a single analysis by ID
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	analysis, err := s.service.GetAnalysis(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Analysis not found")
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

// handleGetAnalysisFile serves the stored document for an analysis
func (s *Server) handleGetAnalysisFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	data, contentType, err := s.service.GetAnalysisFile(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	setCORSHeaders(w)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteAnalysis removes an analysis
func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.service.DeleteAnalysis(id); err != nil {
		writeError(w, http.StatusNotFound, "Analysis not found")
		return
	}

	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}
