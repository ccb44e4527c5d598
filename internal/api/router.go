package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/isdelr/slatehub-api/internal/api/handlers"
	"github.com/isdelr/slatehub-api/internal/auth"
	"github.com/isdelr/slatehub-api/internal/services"
	"github.com/isdelr/slatehub-api/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries the settings the router needs from the app config.
type RouterConfig struct {
	CORSOrigin    string
	SecureCookies bool
	AuthRateLimit int // Requests per minute per IP on /api/auth, 0 disables
}

// Dependencies bundles the services the handlers are built from.
type Dependencies struct {
	Store   storage.ImageStore
	Monitor handlers.StorageStatus // optional
	People  services.PersonServiceProvider
	Images  services.ImageServiceProvider
	Events  services.EventServiceProvider
	Issuer  *auth.Issuer
}

// NewRouter creates and configures a new Chi router.
func NewRouter(cfg RouterConfig, deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Allow the SvelteKit dev server
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Monitor)
	authHandler := handlers.NewAuthHandler(deps.People, deps.Issuer, cfg.SecureCookies)
	profileHandler := handlers.NewProfileHandler(deps.People)
	imageHandler := handlers.NewImageHandler(deps.Images)
	eventHandler := handlers.NewEventHandler(deps.Events)

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if cfg.AuthRateLimit > 0 {
				r.Use(httprate.Limit(cfg.AuthRateLimit, time.Minute,
					httprate.WithKeyFuncs(httprate.KeyByIP),
					httprate.WithLimitHandler(handlers.TooManyRequests),
				))
			}
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Post("/check-username", authHandler.CheckUsername)
			r.Get("/me", authHandler.Me)
		})

		r.Put("/profile", profileHandler.Update)
		r.Get("/users/{username}", profileHandler.GetPublic)

		r.Route("/images", func(r chi.Router) {
			r.Post("/", imageHandler.Upload)
			r.Get("/{filename}", imageHandler.Get)
			r.Delete("/{filename}", imageHandler.Delete)
		})
		r.Get("/people/{personID}/images", imageHandler.ListForPerson)

		r.Get("/events", eventHandler.GetRecent)
	})

	return r
}
