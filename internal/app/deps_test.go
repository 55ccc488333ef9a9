package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/config"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Close() {}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		App: config.AppConfig{
			Port:           8080,
			CORSOrigins:    []string{"http://localhost:3000"},
			UploadDir:      t.TempDir(),
			MaxUploadBytes: 1 << 20,
			RateLimit:      100,
			RateWindow:     time.Minute,
		},
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Auth: config.AuthConfig{
			AccessTokenSecret:  "access",
			RefreshTokenSecret: "refresh",
			AccessTokenTTL:     time.Minute,
			RefreshTokenTTL:    time.Hour,
			LoginRateLimit:     5,
			LoginRateWindow:    time.Minute,
		},
		Media: config.MediaConfig{FFProbePath: "ffprobe", ProbeTimeout: time.Second},
	}
}

func TestPostgresStorageWiresRepositories(t *testing.T) {
	s := postgresStorage(fakePool{})
	v := reflect.ValueOf(s)
	for i := 0; i < v.NumField(); i++ {
		if v.Field(i).IsNil() {
			t.Errorf("expected %s to be configured", v.Type().Field(i).Name)
		}
	}
	if err := s.close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpenStorageRejectsUnknownDriver(t *testing.T) {
	if _, err := openStorage(context.Background(), config.DatabaseConfig{Driver: "sqlite"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestBuildMedia(t *testing.T) {
	ctx := context.Background()

	gateway, err := buildMedia(ctx, config.MediaConfig{})
	if err != nil || gateway != nil {
		t.Fatalf("expected uploads to be disabled, got %v, %v", gateway, err)
	}

	if _, err := buildMedia(ctx, config.MediaConfig{Provider: "ftp"}); err == nil {
		t.Fatal("expected unknown provider to fail")
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	gateway, err = buildMedia(ctx, config.MediaConfig{
		Provider: config.MediaS3,
		Bucket:   "test-bucket",
		Region:   "us-east-1",
		Endpoint: "http://localhost:9000",
	})
	if err != nil || gateway == nil {
		t.Fatalf("expected s3 gateway, got %v, %v", gateway, err)
	}
}

func TestBuildAssistantWithoutKey(t *testing.T) {
	assistant, err := buildAssistant(context.Background(), config.AssistConfig{})
	if err != nil || assistant != nil {
		t.Fatalf("expected assist to be disabled, got %v, %v", assistant, err)
	}
}

func TestBuildHandlerWithMemoryStorage(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	store, err := openStorage(ctx, cfg.Database)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	handler, err := buildHandler(ctx, cfg, store)
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected healthy service, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/videos", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected empty video list, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListSQLFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_b.sql", "0001_a.sql", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "0003_dir.sql"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := listSQLFiles(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"0001_a.sql", "0002_b.sql"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestShouldRetryMigration(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, want: true},
		{name: "deadlock", err: fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "40P01"}), want: true},
		{name: "syntax error", err: &pgconn.PgError{Code: "42601"}, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "other", err: errors.New("boom"), want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := shouldRetryMigration(tc.err); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestRunRequiresCommand(t *testing.T) {
	if err := Run(context.Background(), nil); err == nil {
		t.Fatal("expected error without a command")
	}
}
