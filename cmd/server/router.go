package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/mpetrie/taskboard-api/internal/api"
	apiMiddleware "github.com/mpetrie/taskboard-api/internal/api/middleware"
	"github.com/mpetrie/taskboard-api/internal/api/shared"
	"github.com/mpetrie/taskboard-api/internal/ws"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)
	r.Use(httprate.Limit(
		app.config.Server.RateLimit,
		app.config.Server.RateLimitWindow(),
		httprate.WithKeyFuncs(httprate.KeyByIP),
	))

	authHandler := api.NewAuthHandler(
		app.userStore,
		app.jwtService,
		app.passwordHasher,
		app.passwordVerifier,
		app.sessionCache,
	)
	taskHandler := api.NewTaskHandler(app.taskService)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService, app.sessionCache)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/tasks", taskHandler.CreateTask)
			r.Get("/tasks", taskHandler.ListTasks)
			// Registered before the {taskId} routes so "analytics" is
			// never captured as a task ID.
			r.Get("/tasks/analytics", taskHandler.GetAnalytics)
			r.Patch("/tasks/{taskId}/status", taskHandler.UpdateStatus)
			r.Post("/tasks/{taskId}/subtasks", taskHandler.AddSubtask)
		})
	})

	r.Get("/ws", ws.ServeWS(app.hub, app.logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, api.HealthResponse{Status: "OK"})
	})

	return r
}
