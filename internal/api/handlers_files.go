package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/org/examvault/internal/fault"
	"github.com/org/examvault/internal/objectstore"
	"github.com/org/examvault/pkg/models"
	"github.com/rs/zerolog/log"
)

func fileParams(r *http.Request) (string, models.Folder) {
	return chi.URLParam(r, "filename"), models.Folder(chi.URLParam(r, "folder"))
}

// FileUploadHandler handles POST /v1/files/{folder}
func (s *Server) FileUploadHandler(w http.ResponseWriter, r *http.Request) {
	folder := models.Folder(chi.URLParam(r, "folder"))
	s.files.UploadViaRequest(folder)(http.HandlerFunc(s.fileUploaded)).ServeHTTP(w, r)
}

func (s *Server) fileUploaded(w http.ResponseWriter, r *http.Request) {
	obj := objectstore.UploadedObjectFromContext(r.Context())
	if obj == nil {
		writeError(w, fault.New(fault.PreconditionMissing, "upload", "no file attached in field \""+objectstore.FileField+"\""))
		return
	}
	writeJSON(w, http.StatusCreated, obj)
}

// FileStreamHandler handles GET /v1/files/{folder}/{filename}
func (s *Server) FileStreamHandler(w http.ResponseWriter, r *http.Request) {
	filename, folder := fileParams(r)
	rr := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
	if err := s.files.StreamTo(r.Context(), rr, filename, folder); err != nil {
		if rr.wroteHeader {
			log.Warn().Err(err).Str("filename", filename).Msg("stream aborted")
			return
		}
		writeError(w, err)
	}
}

// FileURLHandler handles GET /v1/files/{folder}/{filename}/url
func (s *Server) FileURLHandler(w http.ResponseWriter, r *http.Request) {
	filename, folder := fileParams(r)
	url, ok := s.files.PublicURL(r.Context(), filename, folder)
	if !ok {
		writeError(w, fault.New(fault.NotFound, "public_url", "public URL unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// FileSignedURLHandler handles GET /v1/files/{folder}/{filename}/signed-url
func (s *Server) FileSignedURLHandler(w http.ResponseWriter, r *http.Request) {
	filename, folder := fileParams(r)

	hours := 1
	if h := r.URL.Query().Get("hours"); h != "" {
		n, err := strconv.Atoi(h)
		if err != nil {
			writeError(w, fault.Wrap(fault.PreconditionMissing, "signed_url", "hours must be an integer", err))
			return
		}
		hours = n
	}

	link, err := s.files.SignedURL(r.Context(), filename, folder, hours)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// FileDeleteHandler handles DELETE /v1/files/{folder}/{filename}
func (s *Server) FileDeleteHandler(w http.ResponseWriter, r *http.Request) {
	filename, folder := fileParams(r)
	if err := s.files.Delete(r.Context(), filename, folder); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
