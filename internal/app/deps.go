package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/assist"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/handlers"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/memstore"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/mongodb"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/resilience"
	"github.com/vidtube/backend/internal/services"
)

// storage bundles the repositories of one backend with its session store,
// health probes and shutdown hook.
type storage struct {
	users     repositories.UserRepository
	videos    repositories.VideoRepository
	comments  repositories.CommentRepository
	tweets    repositories.TweetRepository
	playlists repositories.PlaylistRepository
	relations repositories.RelationRepository
	sessions  auth.SessionStore
	health    map[string]handlers.HealthCheck
	close     func(ctx context.Context) error
}

func postgresStorage(pool db.Pool) storage {
	return storage{
		users:     repositories.NewPostgresUserRepository(pool),
		videos:    repositories.NewPostgresVideoRepository(pool),
		comments:  repositories.NewPostgresCommentRepository(pool),
		tweets:    repositories.NewPostgresTweetRepository(pool),
		playlists: repositories.NewPostgresPlaylistRepository(pool),
		relations: repositories.NewPostgresRelationRepository(pool),
		sessions:  repositories.NewPostgresSessionStore(pool),
		health:    map[string]handlers.HealthCheck{},
		close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}
}

func mongoStorage(store *mongodb.Store) storage {
	return storage{
		users:     store.Users(),
		videos:    store.Videos(),
		comments:  store.Comments(),
		tweets:    store.Tweets(),
		playlists: store.Playlists(),
		relations: store.Relations(),
		sessions:  store.Sessions(),
		health:    map[string]handlers.HealthCheck{"database": store.Ping},
		close:     store.Close,
	}
}

func memoryStorage(store *memstore.Store) storage {
	return storage{
		users:     store.Users(),
		videos:    store.Videos(),
		comments:  store.Comments(),
		tweets:    store.Tweets(),
		playlists: store.Playlists(),
		relations: store.Relations(),
		sessions:  store.Sessions(),
		health:    map[string]handlers.HealthCheck{},
		close:     func(context.Context) error { return nil },
	}
}

// openStorage connects the configured backend.
func openStorage(ctx context.Context, cfg config.DatabaseConfig) (storage, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := db.Connect(ctx, cfg.URL, db.Options{MaxConns: cfg.MaxConns, ConnectTimeout: 10 * time.Second})
		if err != nil {
			return storage{}, err
		}
		s := postgresStorage(pool)
		s.health["database"] = pingPool(pool)
		return s, nil
	case config.DriverMongo:
		store, err := mongodb.Connect(ctx, cfg.URL, cfg.Name)
		if err != nil {
			return storage{}, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(ctx)
			return storage{}, err
		}
		return mongoStorage(store), nil
	case config.DriverMemory:
		logging.FromContext(ctx).Warn().Msg("using in-memory storage; data is lost on restart")
		return memoryStorage(memstore.New()), nil
	}
	return storage{}, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

func pingPool(pool *pgxpool.Pool) handlers.HealthCheck {
	return pool.Ping
}

// buildMedia returns the configured media host wrapped in a circuit breaker.
// A missing provider leaves uploads disabled.
func buildMedia(ctx context.Context, cfg config.MediaConfig) (media.Gateway, error) {
	var (
		gateway media.Gateway
		err     error
	)
	switch strings.ToLower(cfg.Provider) {
	case config.MediaS3:
		gateway, err = media.NewS3Gateway(ctx, cfg)
	case config.MediaCloudinary:
		gateway, err = media.NewCloudinaryGateway(cfg)
	case "":
		logging.FromContext(ctx).Warn().Msg("no media provider configured; uploads are disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown media provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return media.NewBreakerGateway("media_"+strings.ToLower(cfg.Provider), gateway, resilience.Settings{}), nil
}

// buildAssistant returns nil when no API key is configured; the endpoint
// then answers 502.
func buildAssistant(ctx context.Context, cfg config.AssistConfig) (handlers.TextAssistant, error) {
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		logging.FromContext(ctx).Warn().Msg("gemini api key missing; text assist is disabled")
		return nil, nil
	}
	gen, err := assist.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return assist.NewAssistant(gen, resilience.Settings{}), nil
}

func buildServices(store storage, gateway media.Gateway, prober services.DurationProber, cfg config.Config) *services.Services {
	tokens := auth.NewManager(auth.Config{
		AccessSecret:  []byte(cfg.Auth.AccessTokenSecret),
		RefreshSecret: []byte(cfg.Auth.RefreshTokenSecret),
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
	}, store.sessions)

	return services.New(services.Deps{
		Users:     store.users,
		Videos:    store.videos,
		Comments:  store.comments,
		Tweets:    store.tweets,
		Playlists: store.playlists,
		Relations: store.relations,
		Tokens:    tokens,
		Media:     gateway,
		Prober:    prober,
	})
}

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(svc *services.Services, assistant handlers.TextAssistant, health map[string]handlers.HealthCheck, cfg config.Config) handlers.Dependencies {
	return handlers.Dependencies{
		Services:  svc,
		Assistant: assistant,
		Uploads: handlers.Uploads{
			Dir:      cfg.App.UploadDir,
			MaxBytes: cfg.App.MaxUploadBytes,
		},
		LoginLimiter: middleware.NewIPRateLimiter(cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateWindow, cfg.Auth.LoginRateLimit, 10*time.Minute),
		CORSOrigins:  cfg.App.CORSOrigins,
		CookieSecure: cfg.App.CookieSecure,
		RateLimit:    cfg.App.RateLimit,
		RateWindow:   cfg.App.RateWindow,
		HealthChecks: health,
	}
}

func buildHandler(ctx context.Context, cfg config.Config, store storage) (http.Handler, error) {
	gateway, err := buildMedia(ctx, cfg.Media)
	if err != nil {
		return nil, fmt.Errorf("media gateway: %w", err)
	}
	assistant, err := buildAssistant(ctx, cfg.Assist)
	if err != nil {
		return nil, fmt.Errorf("text assist: %w", err)
	}
	prober := media.NewProber(cfg.Media.FFProbePath, cfg.Media.ProbeTimeout)
	svc := buildServices(store, gateway, prober, cfg)
	return handlers.NewRouter(buildDependencies(svc, assistant, store.health, cfg)), nil
}
