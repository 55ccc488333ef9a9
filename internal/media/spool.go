package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Spool copies an uploaded file into dir and returns the temporary path. The
// caller owns the file; Gateway.Upload removes it.
func Spool(dir, filename string, src io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 10 {
		ext = ""
	}

	f, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temporary upload: %w", err)
	}

	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write temporary upload: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close temporary upload: %w", err)
	}
	return f.Name(), nil
}
