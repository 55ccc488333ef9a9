package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/services"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Services     *services.Services
	Assistant    TextAssistant
	Uploads      Uploads
	LoginLimiter RateLimiter
	CORSOrigins  []string
	CookieSecure bool
	// RateLimit caps requests per client IP per RateWindow; zero disables it.
	RateLimit    int
	RateWindow   time.Duration
	HealthChecks map[string]HealthCheck
}

// NewRouter wires every route under /api/v1 plus /healthz and /metrics.
func NewRouter(deps Dependencies) http.Handler {
	svc := deps.Services
	authn := RequireAuth(svc.Identity)
	optional := OptionalAuth(svc.Identity)

	users := UserHandler{
		Identity:     svc.Identity,
		Views:        svc.Views,
		Uploads:      deps.Uploads,
		Limiter:      deps.LoginLimiter,
		CookieSecure: deps.CookieSecure,
	}
	videos := VideoHandler{Videos: svc.Videos, Views: svc.Views, Uploads: deps.Uploads}
	comments := CommentHandler{Comments: svc.Comments, Views: svc.Views}
	tweets := TweetHandler{Tweets: svc.Tweets, Views: svc.Views}
	playlists := PlaylistHandler{Playlists: svc.Playlists, Views: svc.Views}
	relations := RelationHandler{Relations: svc.Relations, Views: svc.Views}
	dashboard := DashboardHandler{Views: svc.Views}
	assistant := AssistHandler{Assistant: deps.Assistant}
	health := HealthHandler{Checks: deps.HealthChecks}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logging.Logger()))
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondMessage(r.Context(), w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondMessage(r.Context(), w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/healthz", health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if deps.RateLimit > 0 {
			r.Use(httprate.LimitByIP(deps.RateLimit, deps.RateWindow))
		}

		r.Route("/users", func(r chi.Router) {
			r.Post("/register", users.Register)
			r.Post("/login", users.Login)
			r.Post("/refresh-token", users.Refresh)
			r.With(optional).Get("/c/{username}", users.Channel)

			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Post("/logout", users.Logout)
				r.Post("/change-password", users.ChangePassword)
				r.Get("/current-user", users.CurrentUser)
				r.Patch("/update-account", users.UpdateAccount)
				r.Patch("/avatar", users.UpdateAvatar)
				r.Patch("/cover-image", users.UpdateCoverImage)
				r.Get("/history", users.WatchHistory)
				r.Post("/history/{videoId}", users.AddToWatchHistory)
			})
		})

		r.Route("/videos", func(r chi.Router) {
			r.With(optional).Get("/", videos.List)
			r.With(optional).Get("/{videoId}", videos.Get)

			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Post("/", videos.Publish)
				r.Patch("/{videoId}/views", videos.IncrementViews)
				r.Patch("/{videoId}", videos.Update)
				r.Delete("/{videoId}", videos.Delete)
				r.Patch("/toggle/publish/{videoId}", videos.TogglePublish)
			})
		})

		r.Route("/comments", func(r chi.Router) {
			r.With(optional).Get("/{videoId}", comments.List)
			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Post("/{videoId}", comments.Create)
				r.Patch("/c/{commentId}", comments.Update)
				r.Delete("/c/{commentId}", comments.Delete)
			})
		})

		r.Route("/likes", func(r chi.Router) {
			r.Use(authn)
			r.Post("/toggle/v/{videoId}", relations.ToggleVideoLike())
			r.Post("/toggle/c/{commentId}", relations.ToggleCommentLike())
			r.Post("/toggle/t/{tweetId}", relations.ToggleTweetLike())
			r.Get("/check/v/{videoId}", relations.IsVideoLiked())
			r.Get("/videos", relations.LikedVideos)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/c/{channelId}/subscribers", relations.Subscribers)
			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Post("/c/{channelId}/toggle", relations.ToggleSubscription())
				r.Get("/user/subscribed", relations.SubscribedChannels)
				r.Get("/check/c/{channelId}", relations.IsSubscribed())
			})
		})

		r.Route("/playlists", func(r chi.Router) {
			r.Get("/user/{userId}", playlists.ListByUser)
			r.Get("/{playlistId}", playlists.Get)
			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Post("/", playlists.Create)
				r.Patch("/{playlistId}", playlists.Update)
				r.Delete("/{playlistId}", playlists.Delete)
				r.Patch("/add/{videoId}/{playlistId}", playlists.AddVideo)
				r.Patch("/remove/{videoId}/{playlistId}", playlists.RemoveVideo)
			})
		})

		r.Route("/tweets", func(r chi.Router) {
			r.With(optional).Get("/user/{userId}", tweets.ListByUser)
			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Post("/", tweets.Create)
				r.Patch("/{tweetId}", tweets.Update)
				r.Delete("/{tweetId}", tweets.Delete)
			})
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/stats/{channelId}", dashboard.Stats)
			r.With(optional).Get("/videos/{channelId}", dashboard.Videos)
		})

		r.With(authn).Post("/ai/grammar-correct", assistant.Correct)
	})

	return r
}
