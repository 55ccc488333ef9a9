package media

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/metrics"
)

type objectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type objectDeleter interface {
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Gateway stores assets in an S3-compatible bucket.
type S3Gateway struct {
	uploader objectUploader
	deleter  objectDeleter
	bucket   string
	folder   string
	baseURL  string
}

var _ Gateway = (*S3Gateway)(nil)

// NewS3Gateway configures an uploader targeting the configured bucket.
func NewS3Gateway(ctx context.Context, cfg config.MediaConfig) (*S3Gateway, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 gateway: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	baseURL := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if baseURL == "" && cfg.Endpoint != "" {
		baseURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &S3Gateway{
		uploader: uploader,
		deleter:  client,
		bucket:   cfg.Bucket,
		folder:   cfg.Folder,
		baseURL:  baseURL,
	}, nil
}

// Upload streams localPath to the bucket under a fresh key.
func (g *S3Gateway) Upload(ctx context.Context, localPath string, kind Kind) (Asset, error) {
	defer removeLocal(ctx, localPath)

	f, err := os.Open(localPath)
	if err != nil {
		return Asset{}, fmt.Errorf("open upload %s: %w", localPath, err)
	}
	defer f.Close()

	key := objectKey(g.folder, kind, localPath)
	input := &s3.PutObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
		Body:   f,
		ACL:    s3types.ObjectCannedACLPublicRead,
	}
	if ct := mime.TypeByExtension(filepath.Ext(localPath)); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := g.uploader.Upload(ctx, input); err != nil {
		metrics.MediaUploads.WithLabelValues("s3", string(kind), "error").Inc()
		return Asset{}, fmt.Errorf("%w: s3 upload %s: %v", ErrUnavailable, key, err)
	}
	metrics.MediaUploads.WithLabelValues("s3", string(kind), "ok").Inc()

	url := key
	if g.baseURL != "" {
		url = fmt.Sprintf("%s/%s", g.baseURL, key)
	}
	return Asset{URL: url, Key: key, Kind: kind}, nil
}

// Remove deletes the object behind asset.
func (g *S3Gateway) Remove(ctx context.Context, asset Asset) error {
	key := g.keyOf(asset)
	if key == "" {
		return nil
	}
	_, err := g.deleter.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%w: s3 delete %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// keyOf recovers the object key from a stored URL when the asset has none.
// URLs outside the bucket's public base yield "".
func (g *S3Gateway) keyOf(asset Asset) string {
	if asset.Key != "" || asset.URL == "" {
		return asset.Key
	}
	if g.baseURL == "" {
		return asset.URL
	}
	key, ok := strings.CutPrefix(asset.URL, g.baseURL+"/")
	if !ok {
		return ""
	}
	return key
}
