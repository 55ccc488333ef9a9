package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config captures the runtime configuration for the VidTube backend service.
type Config struct {
	App      AppConfig      `koanf:"app"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Media    MediaConfig    `koanf:"media"`
	Assist   AssistConfig   `koanf:"assist"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// AppConfig covers the HTTP surface.
type AppConfig struct {
	Port           int           `koanf:"port"`
	Environment    string        `koanf:"environment"`
	CORSOrigins    []string      `koanf:"cors_origins"`
	CookieSecure   bool          `koanf:"cookie_secure"`
	UploadDir      string        `koanf:"upload_dir"`
	MaxUploadBytes int64         `koanf:"max_upload_bytes"`
	RateLimit      int           `koanf:"rate_limit"`
	RateWindow     time.Duration `koanf:"rate_window"`
}

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// DatabaseConfig selects and configures the storage backend.
type DatabaseConfig struct {
	Driver       string `koanf:"driver"`
	URL          string `koanf:"url"`
	Name         string `koanf:"name"`
	MaxConns     int32  `koanf:"max_conns"`
	MigrationDir string `koanf:"migration_dir"`
	SeedDir      string `koanf:"seed_dir"`
}

// AuthConfig configures session tokens and login throttling.
type AuthConfig struct {
	AccessTokenSecret  string        `koanf:"access_token_secret"`
	AccessTokenTTL     time.Duration `koanf:"access_token_ttl"`
	RefreshTokenSecret string        `koanf:"refresh_token_secret"`
	RefreshTokenTTL    time.Duration `koanf:"refresh_token_ttl"`
	LoginRateLimit     int           `koanf:"login_rate_limit"`
	LoginRateWindow    time.Duration `koanf:"login_rate_window"`
}

// Media providers.
const (
	MediaS3         = "s3"
	MediaCloudinary = "cloudinary"
)

// MediaConfig selects the media host and probe binary.
type MediaConfig struct {
	Provider      string        `koanf:"provider"`
	Bucket        string        `koanf:"bucket"`
	Region        string        `koanf:"region"`
	Endpoint      string        `koanf:"endpoint"`
	PublicBaseURL string        `koanf:"public_base_url"`
	CloudinaryURL string        `koanf:"cloudinary_url"`
	Folder        string        `koanf:"folder"`
	FFProbePath   string        `koanf:"ffprobe_path"`
	ProbeTimeout  time.Duration `koanf:"probe_timeout"`
	UploadTimeout time.Duration `koanf:"upload_timeout"`
}

// AssistConfig configures the text-assist provider.
type AssistConfig struct {
	GeminiAPIKey string        `koanf:"gemini_api_key"`
	Model        string        `koanf:"model"`
	Timeout      time.Duration `koanf:"timeout"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
	File   string `koanf:"file"`
}

// IsDevelopment reports whether the service runs in a development environment.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.App.Environment) {
	case "", "development", "dev", "local", "test":
		return true
	}
	return false
}

// Validate checks the configuration for values the service cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("app.port %d out of range", c.App.Port))
	}

	switch c.Database.Driver {
	case DriverPostgres, DriverMongo:
		if strings.TrimSpace(c.Database.URL) == "" {
			errs = append(errs, errors.New("database.url is required"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}

	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token ttls must be positive"))
	}
	if !c.IsDevelopment() {
		if len(c.Auth.AccessTokenSecret) < 32 || len(c.Auth.RefreshTokenSecret) < 32 {
			errs = append(errs, errors.New("token secrets must be at least 32 characters outside development"))
		}
	}
	if c.Auth.AccessTokenSecret != "" && c.Auth.AccessTokenSecret == c.Auth.RefreshTokenSecret {
		errs = append(errs, errors.New("access and refresh token secrets must differ"))
	}

	switch c.Media.Provider {
	case MediaS3:
		if strings.TrimSpace(c.Media.Bucket) == "" {
			errs = append(errs, errors.New("media.bucket is required for the s3 provider"))
		}
	case MediaCloudinary:
		if strings.TrimSpace(c.Media.CloudinaryURL) == "" {
			errs = append(errs, errors.New("media.cloudinary_url is required for the cloudinary provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown media.provider %q", c.Media.Provider))
	}

	return errors.Join(errs...)
}
