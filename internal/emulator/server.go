// Package emulator is a local stand-in for the receipt-processing API.
// It accepts uploads and serves their records; it does no OCR or extraction.
package emulator

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zombor/receipt-client/internal/receipt"
)

// 50MB matches the client's upload limit
const maxFormSize = int64(50 << 20)

// Server exposes the emulated receipt API
type Server struct {
	service    *Service
	corsOrigin string
	router     chi.Router
}

// NewServer creates a Server. corsOrigin is sent as Access-Control-Allow-Origin;
// an empty value allows any origin.
func NewServer(service *Service, corsOrigin string) *Server {
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	s := &Server{
		service:    service,
		corsOrigin: corsOrigin,
		router:     chi.NewRouter(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.corsMiddleware)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/receipts", func(r chi.Router) {
		r.Get("/", s.handleListReceipts)
		r.Post("/upload", s.handleUploadReceipt)
		r.Get("/{id}", s.handleGetReceipt)
		r.Put("/{id}", s.handleSettleReceipt)
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// corsMiddleware lets a browser UI on another origin call the API
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request through slog
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
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

// writeDetail writes an error body in the {"detail": ...} shape
func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// receiptID parses the {id} path parameter
func receiptID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Receipt ID must be an integer")
		return 0, false
	}
	return id, true
}

func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		writeDetail(w, http.StatusBadRequest, "Error parsing form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	f, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Field 'file' is required")
		return
	}
	defer f.Close()

	rec, err := s.service.Accept(header.Filename, header.Header.Get("Content-Type"), f)
	if err != nil {
		slog.Error("Error accepting receipt", "filename", header.Filename, "error", err)
		writeDetail(w, http.StatusInternalServerError, "Could not store receipt")
		return
	}

	writeJSON(w, http.StatusOK, rec.Record)
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := receiptID(w, r)
	if !ok {
		return
	}
	rec, err := s.service.GetReceipt(id)
	if errors.Is(err, ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Receipt not found")
		return
	}
	if err != nil {
		slog.Error("Error getting receipt", "id", id, "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, rec.Record)
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts()
	if err != nil {
		slog.Error("Error listing receipts", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	records := make([]receipt.Record, 0, len(receipts))
	for _, rec := range receipts {
		records = append(records, rec.Record)
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleSettleReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := receiptID(w, r)
	if !ok {
		return
	}

	var st Settlement
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := s.service.Settle(id, st)
	if errors.Is(err, ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Receipt not found")
		return
	}
	if err != nil {
		slog.Error("Error settling receipt", "id", id, "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, rec.Record)
}
