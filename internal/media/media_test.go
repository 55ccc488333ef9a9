package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/vidtube/backend/internal/resilience"
)

func spoolFile(t *testing.T, name, body string) string {
	t.Helper()
	path, err := Spool(t.TempDir(), name, strings.NewReader(body))
	if err != nil {
		t.Fatalf("spool: %v", err)
	}
	return path
}

func assertRemoved(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected %s to be removed, stat err = %v", path, err)
	}
}

func TestSpoolKeepsExtension(t *testing.T) {
	path := spoolFile(t, "clip.MP4", "content")
	if filepath.Ext(path) != ".mp4" {
		t.Fatalf("expected .mp4 extension, got %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "content" {
		t.Fatalf("unexpected spooled content %q, %v", data, err)
	}
}

type stubUploader struct {
	keys []string
	err  error
}

func (s *stubUploader) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.keys = append(s.keys, *input.Key)
	return &manager.UploadOutput{}, nil
}

type stubDeleter struct{ keys []string }

func (s *stubDeleter) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	s.keys = append(s.keys, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3GatewayUpload(t *testing.T) {
	up := &stubUploader{}
	del := &stubDeleter{}
	gw := &S3Gateway{uploader: up, deleter: del, bucket: "media", folder: "vidtube", baseURL: "https://cdn.example.com"}

	path := spoolFile(t, "thumb.png", "png")
	asset, err := gw.Upload(context.Background(), path, KindImage)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(asset.Key, "vidtube/image/") || !strings.HasSuffix(asset.Key, ".png") {
		t.Fatalf("unexpected key %q", asset.Key)
	}
	if asset.URL != "https://cdn.example.com/"+asset.Key {
		t.Fatalf("unexpected url %q", asset.URL)
	}
	assertRemoved(t, path)

	if err := gw.Remove(context.Background(), asset); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(del.keys) != 1 || del.keys[0] != asset.Key {
		t.Fatalf("expected delete of %s, got %v", asset.Key, del.keys)
	}
}

func TestS3GatewayRemoveByURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		url     string
		want    []string
	}{
		{name: "public base", baseURL: "https://cdn.example.com", url: "https://cdn.example.com/vidtube/image/a.png", want: []string{"vidtube/image/a.png"}},
		{name: "foreign url", baseURL: "https://cdn.example.com", url: "https://elsewhere.example.com/a.png"},
		{name: "bare key", url: "vidtube/image/a.png", want: []string{"vidtube/image/a.png"}},
		{name: "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			del := &stubDeleter{}
			gw := &S3Gateway{deleter: del, bucket: "media", baseURL: tt.baseURL}
			if err := gw.Remove(context.Background(), Asset{URL: tt.url, Kind: KindImage}); err != nil {
				t.Fatalf("remove: %v", err)
			}
			if strings.Join(del.keys, ",") != strings.Join(tt.want, ",") {
				t.Fatalf("deleted %v, want %v", del.keys, tt.want)
			}
		})
	}
}

func TestS3GatewayUploadFailureRemovesFile(t *testing.T) {
	gw := &S3Gateway{uploader: &stubUploader{err: errors.New("denied")}, deleter: &stubDeleter{}, bucket: "media"}
	path := spoolFile(t, "clip.mp4", "mp4")

	if _, err := gw.Upload(context.Background(), path, KindVideo); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	assertRemoved(t, path)
}

type stubCloudinary struct {
	result    *uploader.UploadResult
	destroyed []uploader.DestroyParams
}

func (s *stubCloudinary) Upload(_ context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	if _, ok := file.(string); !ok {
		return nil, errors.New("expected a local path")
	}
	return s.result, nil
}

func (s *stubCloudinary) Destroy(_ context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error) {
	s.destroyed = append(s.destroyed, params)
	return &uploader.DestroyResult{Result: "ok"}, nil
}

func TestCloudinaryGateway(t *testing.T) {
	stub := &stubCloudinary{result: &uploader.UploadResult{SecureURL: "https://res.cloudinary.com/x.mp4", PublicID: "vidtube/video/x"}}
	gw := &CloudinaryGateway{api: stub, folder: "vidtube"}

	path := spoolFile(t, "clip.mp4", "mp4")
	asset, err := gw.Upload(context.Background(), path, KindVideo)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if asset.URL != "https://res.cloudinary.com/x.mp4" || asset.Key != "vidtube/video/x" {
		t.Fatalf("unexpected asset %+v", asset)
	}
	assertRemoved(t, path)

	if err := gw.Remove(context.Background(), asset); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(stub.destroyed) != 1 || stub.destroyed[0].ResourceType != "video" {
		t.Fatalf("unexpected destroy calls %+v", stub.destroyed)
	}
}

func TestCloudinaryGatewayRemoveByURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{url: "https://res.cloudinary.com/demo/image/upload/v1712345/vidtube/image/abc.png", want: "vidtube/image/abc"},
		{url: "https://res.cloudinary.com/demo/video/upload/vidtube/video/clip.mp4", want: "vidtube/video/clip"},
		{url: "https://res.cloudinary.com/demo/image/upload/v2/vidtube.dir/abc", want: "vidtube.dir/abc"},
		{url: "https://example.com/other.png"},
	}

	for _, tt := range tests {
		stub := &stubCloudinary{}
		gw := &CloudinaryGateway{api: stub}
		if err := gw.Remove(context.Background(), Asset{URL: tt.url, Kind: KindImage}); err != nil {
			t.Fatalf("remove %s: %v", tt.url, err)
		}
		if tt.want == "" {
			if len(stub.destroyed) != 0 {
				t.Fatalf("%s: unexpected destroy %+v", tt.url, stub.destroyed)
			}
			continue
		}
		if len(stub.destroyed) != 1 || stub.destroyed[0].PublicID != tt.want {
			t.Fatalf("%s: destroyed %+v, want %s", tt.url, stub.destroyed, tt.want)
		}
	}
}

func TestCloudinaryGatewayErrorResult(t *testing.T) {
	stub := &stubCloudinary{result: &uploader.UploadResult{Error: api.ErrorResp{Message: "Invalid image file"}}}
	gw := &CloudinaryGateway{api: stub, folder: "vidtube"}

	path := spoolFile(t, "bad.png", "nope")
	if _, err := gw.Upload(context.Background(), path, KindImage); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	assertRemoved(t, path)
}

type failingGateway struct{ calls int }

func (f *failingGateway) Upload(_ context.Context, localPath string, _ Kind) (Asset, error) {
	f.calls++
	_ = os.Remove(localPath)
	return Asset{}, ErrUnavailable
}

func (f *failingGateway) Remove(context.Context, Asset) error { return nil }

func TestBreakerGatewayOpens(t *testing.T) {
	next := &failingGateway{}
	gw := NewBreakerGateway("media_test", next, resilience.Settings{FailureThreshold: 1, OpenTimeout: time.Minute})

	if _, err := gw.Upload(context.Background(), spoolFile(t, "a.mp4", "a"), KindVideo); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected upstream failure, got %v", err)
	}

	path := spoolFile(t, "b.mp4", "b")
	if _, err := gw.Upload(context.Background(), path, KindVideo); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if next.calls != 1 {
		t.Fatalf("expected open breaker to skip upstream, calls = %d", next.calls)
	}
	assertRemoved(t, path)
}

func TestProberDuration(t *testing.T) {
	p := NewProber("ffprobe", time.Second)
	p.Run = func(_ context.Context, binary string, args ...string) ([]byte, error) {
		if binary != "ffprobe" || args[len(args)-1] != "/tmp/clip.mp4" {
			t.Fatalf("unexpected invocation %s %v", binary, args)
		}
		return []byte(`{"format":{"duration":"12.500000"}}`), nil
	}

	got, err := p.Duration(context.Background(), "/tmp/clip.mp4")
	if err != nil {
		t.Fatalf("duration: %v", err)
	}
	if got != 12.5 {
		t.Fatalf("expected 12.5, got %v", got)
	}
}

func TestProberDurationErrors(t *testing.T) {
	tests := []struct {
		name string
		out  string
		err  error
	}{
		{name: "command failure", err: errors.New("exit status 1")},
		{name: "malformed json", out: "not json"},
		{name: "missing duration", out: `{"format":{}}`},
		{name: "not a number", out: `{"format":{"duration":"abc"}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := NewProber("", time.Second)
			p.Run = func(context.Context, string, ...string) ([]byte, error) {
				return []byte(tc.out), tc.err
			}
			if _, err := p.Duration(context.Background(), "clip.mp4"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
