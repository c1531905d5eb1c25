package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kwekker/kwekker-be/internal/api/handlers"
	"github.com/kwekker/kwekker-be/internal/auth"
	"github.com/kwekker/kwekker-be/internal/services"
	"github.com/kwekker/kwekker-be/internal/ws"
)

func newBaseRouter(allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	return r
}

// NewPostsRouter creates and configures the posts service router.
func NewPostsRouter(kwekService services.KwekServiceProvider, verifier *auth.Verifier, hub *ws.Hub, allowedOrigins []string) *chi.Mux {
	r := newBaseRouter(allowedOrigins)

	kwekHandler := handlers.NewKwekHandler(kwekService, hub)

	r.Route("/kweks", func(r chi.Router) {
		r.Get("/", kwekHandler.GetAll)
		r.Get("/{id}", kwekHandler.Get)
		if hub != nil {
			wsHandler := handlers.NewWebSocketHandler(hub)
			r.Get("/live", wsHandler.Serve)
		}

		// Mutations require a verified bearer token.
		r.Group(func(r chi.Router) {
			r.Use(verifier.Middleware())
			r.Post("/", kwekHandler.Create)
			r.Put("/{id}", kwekHandler.Update)
			r.Delete("/{id}", kwekHandler.Delete)
		})
	})

	return r
}

// NewUserRouter creates and configures the user service router.
func NewUserRouter(userService services.UserServiceProvider, allowedOrigins []string) *chi.Mux {
	r := newBaseRouter(allowedOrigins)

	userHandler := handlers.NewUserHandler(userService)

	r.Get("/users/{username}", userHandler.Get)

	// Called by the identity provider itself; trusted, no bearer token.
	r.Post("/webhooks/new-user", userHandler.ProcessNewUser)

	return r
}
