package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/daap14/teamup/internal/api/handler"
	"github.com/daap14/teamup/internal/api/middleware"
	"github.com/daap14/teamup/internal/auth"
	"github.com/daap14/teamup/internal/metrics"
	"github.com/daap14/teamup/internal/notification"
	"github.com/daap14/teamup/internal/team"
)

// Coordinator is the membership coordinator as seen by the HTTP layer.
type Coordinator interface {
	handler.TeamCoordinator
	handler.OfferCoordinator
	handler.UserCoordinator
}

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	DBPinger      handler.Pinger
	BrokerPinger  handler.Pinger // nil when notifications are only logged
	Version       string
	OpenAPISpec   []byte
	Authenticator middleware.Authenticator
	KeyGenerator  handler.KeyGenerator
	UserRepo      auth.UserRepository
	TeamRepo      team.Repository
	Notifications notification.Repository
	Coordinator   Coordinator
	Metrics       *metrics.Metrics
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)
	r.Use(deps.Metrics.Instrument)

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.BrokerPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	if deps.Metrics != nil {
		r.Method("GET", "/metrics", deps.Metrics.Handler())
	}

	if len(deps.OpenAPISpec) > 0 {
		openapiHandler := handler.NewOpenAPIHandler(deps.OpenAPISpec)
		r.Get("/openapi.json", openapiHandler.ServeHTTP)
	}

	userHandler := handler.NewUserHandler(deps.KeyGenerator, deps.UserRepo, deps.Coordinator)
	teamHandler := handler.NewTeamHandler(deps.Coordinator, deps.TeamRepo)
	offerHandler := handler.NewOfferHandler(deps.Coordinator)
	notificationHandler := handler.NewNotificationHandler(deps.Notifications)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(deps.Authenticator))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSuperuser())
			r.Post("/users", userHandler.Create)
			r.Get("/users", userHandler.List)
			r.Delete("/users/{id}", userHandler.Delete)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireMember())

			r.Route("/user", func(r chi.Router) {
				r.Get("/", userHandler.Me)
				r.Patch("/seeking", userHandler.SetSeeking)
				r.Patch("/position", userHandler.SetPosition)
				r.Get("/offers", offerHandler.ListForUser)
				r.Patch("/offers/{id}", offerHandler.DecideAsUser)
				r.Delete("/offers/{id}", offerHandler.CancelAsUser)
			})
			r.Post("/users/{id}/offers", offerHandler.Invite)

			r.Route("/teams", func(r chi.Router) {
				r.Post("/", teamHandler.Create)
				r.Get("/", teamHandler.List)
				r.Get("/current", teamHandler.Current)
				r.Put("/current", teamHandler.Update)
				r.Patch("/current/recruiting", teamHandler.SetRecruiting)
				r.Post("/current/end", teamHandler.End)
				r.Post("/current/leave", teamHandler.Leave)
				r.Delete("/current/members/{userId}", teamHandler.Fire)
				r.Get("/{id}", teamHandler.Get)
				r.Post("/{id}/offers", offerHandler.Apply)
			})

			r.Route("/team/offers", func(r chi.Router) {
				r.Get("/", offerHandler.ListForTeam)
				r.Patch("/{id}", offerHandler.DecideAsTeam)
				r.Delete("/{id}", offerHandler.CancelAsTeam)
			})

			r.Get("/notifications", notificationHandler.List)
			r.Patch("/notifications/{id}/read", notificationHandler.MarkRead)
		})
	})

	return r
}
