package barrel

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Etienne8977/Barrel-Volume-Analyst/internal/scanning"
	"github.com/Etienne8977/Barrel-Volume-Analyst/internal/table"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes a JSON error response with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleDigitizeScan uploads a gauge table image and runs the two-stage
// extraction pipeline; the verified batch comes back unmerged
func (s *Server) handleDigitizeScan(w http.ResponseWriter, r *http.Request) {
	// Max 50MB to handle high-resolution phone photos of paper charts
	maxFormSize := int64(50 << 20)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if err.Error() == "http: no such file" {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	if header.Size > maxFormSize {
		jsonError(w, "File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		switch ext {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic":
			contentType = "image/heic"
		case ".heif":
			contentType = "image/heif"
		default:
			contentType = "application/octet-stream"
		}
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	scan, batch, err := s.service.DigitizeScan(header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error digitizing scan", "filename", header.Filename, "error", err)
		var stageErr *scanning.StageError
		if errors.As(err, &stageErr) {
			jsonError(w, stageErr.Error(), http.StatusBadGateway)
			return
		}
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	response := map[string]interface{}{
		"scan":  scan,
		"batch": batch,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleListScans returns a list of all scan records
func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	scans, err := s.service.ListScans()
	if err != nil {
		slog.Error("Error listing scans", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(scans); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetScan returns a single scan record
func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Scan ID required", http.StatusBadRequest)
		return
	}
	scan, err := s.service.GetScan(id)
	if err != nil {
		corsError(w, "Scan not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(scan); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetScanFile returns the stored image for a scan
func (s *Server) handleGetScanFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Scan ID required", http.StatusBadRequest)
		return
	}
	data, contentType, err := s.service.GetScanFile(id)
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteScan deletes a scan record and its image
func (s *Server) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Scan ID required", http.StatusBadRequest)
		return
	}
	if err := s.service.DeleteScan(id); err != nil {
		corsError(w, "Error deleting scan", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetDataset returns the current dataset
func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := s.service.Dataset()
	if err != nil {
		slog.Error("Error loading dataset", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ds); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleMergeBatch merges a confirmed batch into the dataset
func (s *Server) handleMergeBatch(w http.ResponseWriter, r *http.Request) {
	var batch table.Dataset
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	merged, err := s.service.MergeBatch(batch)
	if err != nil {
		slog.Error("Error merging batch", "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(merged); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleEditCell applies a manual correction to one cell
func (s *Server) handleEditCell(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Height string      `json:"height"`
		Column string      `json:"column"`
		Value  table.Value `json:"value"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	merged, err := s.service.EditCell(req.Height, req.Column, req.Value)
	if err != nil {
		slog.Error("Error editing cell", "height", req.Height, "column", req.Column, "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(merged); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleClearDataset wipes the dataset
func (s *Server) handleClearDataset(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearDataset(); err != nil {
		slog.Error("Error clearing dataset", "error", err)
		corsError(w, "Error clearing dataset", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleLookupVolume answers a height-to-volume query. Every lookup
// outcome is a routine status, so the response is always 200 with the
// status inside.
func (s *Server) handleLookupVolume(w http.ResponseWriter, r *http.Request) {
	column := r.URL.Query().Get("column")
	height := r.URL.Query().Get("height")
	if column == "" {
		corsError(w, "Column required", http.StatusBadRequest)
		return
	}

	result, err := s.service.Lookup(column, height)
	if err != nil {
		slog.Error("Error looking up volume", "column", column, "height", height, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleExportCSV downloads the dataset as CSV
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	out, err := s.service.ExportCSV()
	if err != nil {
		slog.Error("Error exporting CSV", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="barrel-volumes.csv"`)
	w.Write([]byte(out))
}

// handleExportJSON downloads the dataset as pretty-printed JSON
func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	out, err := s.service.ExportJSON()
	if err != nil {
		slog.Error("Error exporting JSON", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="barrel-volumes.json"`)
	w.Write([]byte(out))
}

// handleStaticCSS serves the CSS file
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/css")
	w.Write(appCSS)
}

// handleStaticJS serves the JavaScript file
func (s *Server) handleStaticJS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write(appJS)
}
