package receipt

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/receipt-scanner/internal/scanning"
)

// maxUploadSize covers high-resolution phone photos
const maxUploadSize = int64(50 << 20)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes a {"error": message} body
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// detectContentType falls back to the file extension when the part has no type
func detectContentType(header string, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(header))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	return "application/octet-stream"
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok\n")
}

// scanResponse is a ScanResult plus a pre-filled transaction to confirm
type scanResponse struct {
	*ScanResult
	Draft *Transaction `json:"draft"`
}

// handleScanReceipt handles a receipt upload and returns the extracted fields
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		jsonError(w, "No file was selected. Please choose a file to upload.", http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}
	if len(data) == 0 {
		jsonError(w, "The uploaded file is empty.", http.StatusBadRequest)
		return
	}

	contentType := detectContentType(header.Header.Get("Content-Type"), header.Filename)

	result, err := s.service.ScanReceipt(r.Context(), header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error scanning receipt", "filename", header.Filename, "error", err)
		code := http.StatusUnprocessableEntity
		if errors.Is(err, scanning.ErrRecognizerUnavailable) {
			code = http.StatusServiceUnavailable
		}
		jsonError(w, err.Error(), code)
		return
	}

	writeJSON(w, http.StatusOK, scanResponse{
		ScanResult: result,
		Draft:      s.service.NewTransactionFromScan(result),
	})
}

// handleParseReceipt extracts fields from text lines recognised by the client
func (s *Server) handleParseReceipt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lines []string `json:"lines"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Lines == nil {
		jsonError(w, "lines is required", http.StatusBadRequest)
		return
	}

	result, err := s.service.ParseText(req.Lines)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, scanResponse{
		ScanResult: result,
		Draft:      s.service.NewTransactionFromScan(result),
	})
}

// handleCreateTransaction saves a confirmed transaction
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var t Transaction
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.service.CreateTransaction(&t); err != nil {
		if errors.Is(err, ErrInvalidTransaction) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Error creating transaction", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, &t)
}

// handleListTransactions returns all transactions, newest first
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := s.service.ListTransactions()
	if err != nil {
		slog.Error("Error listing transactions", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

// handleGetTransaction returns a single transaction
func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.service.GetTransaction(r.PathValue("id"))
	if err != nil {
		s.lookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleGetTransactionFile returns the original upload of a transaction
func (s *Server) handleGetTransactionFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetTransactionFile(r.PathValue("id"))
	if err != nil {
		s.lookupError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteTransaction deletes a transaction
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTransaction(r.PathValue("id")); err != nil {
		s.lookupError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDiscardScan removes the upload of a scan the user chose not to save
func (s *Server) handleDiscardScan(w http.ResponseWriter, r *http.Request) {
	err := s.service.DiscardScan(r.PathValue("filename"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, ErrScanConfirmed):
		corsError(w, "Scan is already saved as a transaction", http.StatusConflict)
	case errors.Is(err, ErrNotFound):
		corsError(w, "Scan not found", http.StatusNotFound)
	default:
		slog.Error("Error discarding scan", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleExportTransactions downloads all transactions as a spreadsheet
func (s *Server) handleExportTransactions(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.service.ExportTransactions(&buf); err != nil {
		slog.Error("Error exporting transactions", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.xlsx"`)
	w.Write(buf.Bytes())
}

func (s *Server) lookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		corsError(w, "Transaction not found", http.StatusNotFound)
		return
	}
	slog.Error("Error looking up transaction", "error", err)
	corsError(w, "Internal server error", http.StatusInternalServerError)
}
