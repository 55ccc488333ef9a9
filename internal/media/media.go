// Package media moves uploaded files from local disk to a durable media host
// and reads basic facts (duration) out of video files.
package media

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/logging"
)

// Kind classifies an uploaded asset.
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
)

// Asset is a file stored on the media host.
type Asset struct {
	URL string `json:"url"`
	// Key identifies the asset on its host (object key or public id).
	Key  string `json:"key"`
	Kind Kind   `json:"kind"`
}

// ErrUnavailable indicates the media host could not be reached or refused the file.
var ErrUnavailable = errors.New("media host unavailable")

// Gateway stores local files on a media host. Upload always removes
// localPath, whether or not the upload succeeds. Remove accepts an asset
// carrying only the URL the gateway returned earlier.
type Gateway interface {
	Upload(ctx context.Context, localPath string, kind Kind) (Asset, error)
	Remove(ctx context.Context, asset Asset) error
}

// objectKey builds a collision-free key under folder, keeping the extension.
func objectKey(folder string, kind Kind, localPath string) string {
	name := uuid.NewString() + strings.ToLower(filepath.Ext(localPath))
	return strings.TrimLeft(path.Join(folder, string(kind), name), "/")
}

// removeLocal deletes a spooled file, logging anything but a missing file.
func removeLocal(ctx context.Context, localPath string) {
	if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.FromContext(ctx).Warn().Err(err).Str("path", localPath).Msg("failed to remove temporary upload")
	}
}
