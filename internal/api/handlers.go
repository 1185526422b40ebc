package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkboard/internal/upload"
)

// multipartMemory is the in-memory threshold before multipart parts spill to disk.
const multipartMemory = 32 << 20

// multipartOverhead leaves room for boundaries and headers around the file.
const multipartOverhead = 1 << 20

func (s *Server) getIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.directory.CurrentIndex())
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	idx, err := s.directory.Refresh(r.Context())
	if err != nil {
		s.logger.Error("refresh failed", zap.Error(err))
		writeMessage(w, http.StatusBadGateway, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

func (s *Server) setURL(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "*")
	// chi matches on RawPath when the request carried escapes.
	if r.URL.RawPath != "" {
		decoded, err := url.PathUnescape(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "URL not valid")
			return
		}
		raw = decoded
	}
	target := "https://" + raw

	if err := s.directory.Select(r.Context(), target); err != nil {
		s.logger.Debug("selection rejected", zap.String("url", target), zap.Error(err))
		writeMessage(w, http.StatusBadRequest, "URL not valid")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "URL set", "url": target})
}

func (s *Server) getURL(w http.ResponseWriter, _ *http.Request) {
	current, _ := s.directory.CurrentSelection()
	writeJSON(w, http.StatusOK, map[string]string{"url": current})
}

func (s *Server) empty(w http.ResponseWriter, r *http.Request) {
	s.directory.ClearSelection(r.Context())
	writeMessage(w, http.StatusOK, "Link emptied")
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploader.MaxBytes()+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		s.logger.Debug("multipart parse failed", zap.Error(err))
		writeMessage(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.logger.Warn("multipart cleanup failed", zap.Error(err))
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		// A part with an empty filename is parsed as a plain form value.
		if _, ok := r.MultipartForm.Value["file"]; ok {
			writeMessage(w, http.StatusBadRequest, "No selected file")
			return
		}
		writeMessage(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.logger.Warn("close upload failed", zap.Error(err))
		}
	}()

	stored, err := s.uploader.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, stored)
	case errors.Is(err, upload.ErrNoFile):
		writeMessage(w, http.StatusBadRequest, "No file uploaded")
	case errors.Is(err, upload.ErrEmptyFilename):
		writeMessage(w, http.StatusBadRequest, "No selected file")
	case errors.Is(err, upload.ErrTooLarge):
		writeMessage(w, http.StatusRequestEntityTooLarge, "File too large")
	default:
		s.logger.Error("upload failed", zap.String("filename", header.Filename), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to upload file")
	}
}
