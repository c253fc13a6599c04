package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/org/examvault/internal/fault"
	"github.com/org/examvault/pkg/models"
)

// MaxUploadMemory bounds the multipart payload held in memory.
const MaxUploadMemory = 32 << 20

// DefaultMaxUploadBytes bounds the request body accepted by UploadViaRequest.
const DefaultMaxUploadBytes = 32 << 20

// FileField is the multipart field carrying the upload.
const FileField = "file"

type contextKey string

const ctxKeyUploaded contextKey = "uploaded_object"

// UploadedObjectFromContext returns the object stored by UploadViaRequest, or nil.
func UploadedObjectFromContext(ctx context.Context) *models.StoredObject {
	obj, _ := ctx.Value(ctxKeyUploaded).(*models.StoredObject)
	return obj
}

// UploadedURLFromContext returns the public URL of the object stored by
// UploadViaRequest, or "".
func UploadedURLFromContext(ctx context.Context) string {
	if obj := UploadedObjectFromContext(ctx); obj != nil {
		return obj.URL
	}
	return ""
}

// UploadViaRequest returns middleware that uploads the request's file field
// into folder. A request without a file continues untouched. A failed upload,
// including an unreadable or oversized payload, is audited and ends the
// request with 500 STORAGE_ERROR.
func (s *Store) UploadViaRequest(folder models.Folder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > s.maxUpload {
				s.rejectUpload(w, r, folder, "", s.tooLarge(fmt.Errorf("content length %d", r.ContentLength)))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
			}
			if r.MultipartForm == nil {
				if err := r.ParseMultipartForm(MaxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
					s.rejectUpload(w, r, folder, "", s.payloadFailure("invalid multipart payload", err))
					return
				}
			}
			file, header, err := r.FormFile(FileField)
			if err != nil {
				// ErrMissingFile, ErrNotMultipart: no attachment is valid.
				next.ServeHTTP(w, r)
				return
			}
			defer file.Close()

			data, err := io.ReadAll(file)
			if err != nil {
				s.rejectUpload(w, r, folder, header.Filename, s.payloadFailure("failed to read file", err))
				return
			}

			obj, err := s.Upload(r.Context(), data, header.Filename, folder)
			if err != nil {
				if !fault.Is(err, fault.Transport) {
					err = fault.Wrap(fault.Transport, "upload", "failed to upload file", err)
				}
				fault.WriteHTTP(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyUploaded, obj)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Store) tooLarge(err error) *fault.Error {
	return fault.Wrap(fault.Transport, "upload",
		fmt.Sprintf("file exceeds the %d byte upload limit", s.maxUpload), err)
}

func (s *Store) payloadFailure(msg string, err error) *fault.Error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return s.tooLarge(err)
	}
	return fault.Wrap(fault.Transport, "upload", msg, err)
}

// rejectUpload audits a payload that never reached the bucket and writes err.
func (s *Store) rejectUpload(w http.ResponseWriter, r *http.Request, folder models.Folder, filename string, err *fault.Error) {
	rec := &models.AuditRecord{Event: models.EventObjectUpload, Operation: "upload", Folder: string(folder), Filename: filename}
	s.failed(r.Context(), rec, models.LevelError, err)
	fault.WriteHTTP(w, err)
}
