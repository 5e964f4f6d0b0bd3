package expense

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zombor/spendmate-ocr/internal/scanning"
)

const defaultScanListLimit = 50

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError sends {"detail": message}
func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"detail": message})
}

// scanStatus maps a scan failure to a response code
func scanStatus(err error) int {
	if errors.Is(err, scanning.ErrEngineUnavailable) {
		return http.StatusBadGateway
	}
	kind, ok := scanning.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case scanning.KindMalformedImage:
		return http.StatusBadRequest
	case scanning.KindUnauthorized, scanning.KindTimeout, scanning.KindTransport, scanning.KindQuotaExceeded:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// uploadContentType uses the part header and falls back to the file extension
func uploadContentType(header *multipart.FileHeader) string {
	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	return contentType
}

// handleOCR scans one uploaded image
func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			slog.Warn("Upload too large", "limit", tooLarge.Limit)
			writeError(w, "file is too large", http.StatusRequestEntityTooLarge)
			return
		}
		slog.Warn("Error parsing multipart form", "error", err)
		writeError(w, "expected a multipart form with a file field", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, "file is required", http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, "error reading file", http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		writeError(w, "file is empty", http.StatusBadRequest)
		return
	}

	result, err := s.service.Scan(r.Context(), header.Filename, data, uploadContentType(header))
	if err != nil {
		code := scanStatus(err)
		if code == http.StatusInternalServerError {
			writeError(w, "internal server error", code)
			return
		}
		writeError(w, err.Error(), code)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type healthResponse struct {
	Status   string  `json:"status"`
	Primary  *string `json:"primary"`
	Fallback *string `json:"fallback"`
}

// handleHealth reports which engines are configured
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	primary, fallback := s.service.Engines()
	resp := healthResponse{Status: "ok"}
	if primary != "" {
		resp.Primary = &primary
	}
	if fallback != "" {
		resp.Fallback = &fallback
	}

	if resp.Primary == nil && resp.Fallback == nil {
		resp.Status = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleListScans returns recent scans
func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	limit := defaultScanListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := s.service.ListScans(limit)
	if err != nil {
		slog.Error("Error listing scans", "error", err)
		writeError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// handleGetScan returns a single scan
func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	record, err := s.service.GetScan(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrScanNotFound) {
			writeError(w, "scan not found", http.StatusNotFound)
			return
		}
		slog.Error("Error getting scan", "error", err)
		writeError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// handleGetScanFile returns the saved upload for a scan
func (s *Server) handleGetScanFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetScanFile(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrScanNotFound) {
			writeError(w, "file not found", http.StatusNotFound)
			return
		}
		slog.Error("Error getting scan file", "error", err)
		writeError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}
