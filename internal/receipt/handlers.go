package receipt

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// 50MB covers high-resolution phone photos and multi-page PDFs
const maxFormSize = int64(50 << 20)

// render writes the full page for v
func render(w http.ResponseWriter, code int, v View) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, v); err != nil {
		slog.Error("Error rendering page", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	w.Write(buf.Bytes())
}

// submitCode maps a component submit error to the response status
func submitCode(err error) int {
	if errors.Is(err, ErrInFlight) {
		return http.StatusConflict
	}
	return http.StatusOK
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// handleIndex mounts a new page; a reload starts from scratch
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := s.pages.Mount()
	render(w, http.StatusOK, page.View())
}

// handleUpload forwards the selected file to the backend
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		http.Error(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	var file *File
	f, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer f.Close()
		file = &File{
			Name:        header.Filename,
			ContentType: contentTypeFor(header),
			Body:        f,
		}
	case errors.Is(err, http.ErrMissingFile):
	default:
		slog.Error("Error getting file from form", "error", err)
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	page, found := s.pages.Get(r.FormValue("page"))
	if !found {
		slog.Debug("Unknown page token, mounted a new page", "token", r.FormValue("page"))
	}

	// The upload outlives a disconnected browser; there is no cancel.
	_, err = page.Upload.Submit(context.WithoutCancel(r.Context()), file)
	render(w, submitCode(err), page.View())
}

// handleStatus looks up the receipt identifier typed into the status form
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	page, _ := s.pages.Get(r.PostFormValue("page"))
	_, err := page.Status.Submit(context.WithoutCancel(r.Context()), r.PostFormValue("id"))
	render(w, submitCode(err), page.View())
}

// contentTypeFor picks the part's declared type, falling back to the extension
func contentTypeFor(header *multipart.FileHeader) string {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		switch strings.ToLower(filepath.Ext(header.Filename)) {
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
	return strings.ToLower(strings.TrimSpace(contentType))
}

// handleStaticCSS serves the CSS file
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css")
	w.Write(appCSS)
}

// handleStaticJS serves the JavaScript file
func (s *Server) handleStaticJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write(appJS)
}
