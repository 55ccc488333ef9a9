package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"strings"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/services"
)

// multipartMemory is how much of a multipart form is buffered in memory
// before net/http spills file parts to disk.
const multipartMemory = 8 << 20

// Uploads spools multipart files to local disk for the media gateway.
type Uploads struct {
	Dir      string
	MaxBytes int64
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

// parse reads a bounded multipart form.
func (u Uploads) parse(w http.ResponseWriter, r *http.Request) error {
	if u.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, u.MaxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return &services.ValidationError{Field: "body", Message: "Invalid multipart form"}
	}
	return nil
}

// spool copies the named file part to disk. A missing part yields "".
func (u Uploads) spool(r *http.Request, field string) (string, error) {
	if r.MultipartForm == nil {
		return "", nil
	}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", field, err)
	}
	defer file.Close()
	return media.Spool(u.Dir, header.Filename, file)
}

// spoolAll spools each field in order. On failure the files already written
// are removed.
func (u Uploads) spoolAll(r *http.Request, fields ...string) ([]string, error) {
	paths := make([]string, 0, len(fields))
	for _, field := range fields {
		p, err := u.spool(r, field)
		if err != nil {
			discard(r.Context(), paths...)
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func cleanupForm(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

func discard(ctx context.Context, paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.FromContext(ctx).Warn().Err(err).Str("path", p).Msg("failed to remove spooled upload")
		}
	}
}
