package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	pgrepo "github.com/Appeals-service/Appeals-service/internal/repo/postgres"
	appealsvc "github.com/Appeals-service/Appeals-service/internal/services/appeals"
	authsvc "github.com/Appeals-service/Appeals-service/internal/services/auth"
	userssvc "github.com/Appeals-service/Appeals-service/internal/services/users"
	"github.com/Appeals-service/Appeals-service/internal/transport/http/handlers"
)

type Dependencies struct {
	AppealService *appealsvc.Service
	UserService   *userssvc.Service
	AuthService   *authsvc.Service
	AppealRepo    *pgrepo.AppealRepo
	Logger        *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	appealHandler := handlers.NewAppealHandler(deps.AppealService)
	userHandler := handlers.NewUserHandler(deps.UserService)
	healthHandler := handlers.NewHealthHandler(deps.AppealRepo)

	r.Get("/healthcheck", healthHandler.Healthcheck)
	r.Get("/healthcheck_app", healthHandler.HealthcheckApp)

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/users", func(users chi.Router) {
			users.Post("/registration", userHandler.Register)
			users.Post("/login", userHandler.Login)
			users.Post("/logout", userHandler.Logout)
			users.Post("/refresh", userHandler.Refresh)
			users.Get("/me", userHandler.Me)
			users.Get("/list", userHandler.List)
			users.Delete("/{user_id}", userHandler.Delete)
		})

		api.Route("/appeals", func(appeals chi.Router) {
			appeals.Use(AuthMiddleware(deps.AuthService, deps.Logger))

			appeals.Post("/", appealHandler.Create)
			appeals.Get("/", appealHandler.List)
			appeals.Get("/{appeal_id}", appealHandler.Get)
			appeals.Patch("/{appeal_id}/user", appealHandler.UserUpdate)
			appeals.Patch("/{appeal_id}/executor", appealHandler.ExecutorUpdate)
			appeals.Patch("/{appeal_id}/assign", appealHandler.Assign)
			appeals.Delete("/{appeal_id}", appealHandler.Delete)
		})
	})
}
