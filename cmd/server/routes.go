package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ayush/cybertodo/internal/auth"
	"github.com/ayush/cybertodo/internal/config"
	"github.com/ayush/cybertodo/internal/middleware"
	"github.com/ayush/cybertodo/internal/store"
	"github.com/ayush/cybertodo/internal/todo"
	"github.com/ayush/cybertodo/internal/web"
)

// routes wires the web pages and the JSON API onto one router.
func routes(cfg *config.Config, logger *zap.Logger, db store.Store, rdb redis.Cmdable, renderer *web.Renderer) http.Handler {
	sessions := auth.NewSessionStore(rdb)
	todos := todo.NewService(db)
	authHandler := auth.NewHandler(auth.NewService(db, sessions), renderer, cfg.Production())
	todoHandler := todo.NewHandler(todos, renderer)
	apiHandler := todo.NewAPIHandler(todos)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.LoadSession(sessions, db))
	r.NotFound(todoHandler.NotFound)

	r.Get("/health", health(rdb))
	r.Get("/", todoHandler.Index)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", authHandler.LoginForm)
		r.Post("/login", authHandler.Login)
		r.Get("/register", authHandler.RegisterForm)
		r.Post("/register", authHandler.Register)
		r.With(middleware.RequireLogin(renderer)).Get("/logout", authHandler.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin(renderer))
		r.Get("/dashboard", todoHandler.Dashboard)
		r.Get("/todo/new", todoHandler.NewForm)
		r.Post("/todo/new", todoHandler.Create)
		r.Get("/todo/{id}/edit", todoHandler.EditForm)
		r.Post("/todo/{id}/edit", todoHandler.Update)
		r.Post("/todo/{id}/delete", todoHandler.Delete)
		r.Post("/todo/{id}/toggle", todoHandler.Toggle)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		r.Get("/swagger.json", todo.OpenAPI)
		r.Get("/docs/", todo.Docs)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/todos/", apiHandler.List)
			r.Post("/todos/", apiHandler.Create)
			r.Get("/todos/{id}", apiHandler.Get)
			r.Put("/todos/{id}", apiHandler.Update)
			r.Delete("/todos/{id}", apiHandler.Delete)
			r.Patch("/todos/{id}/toggle", apiHandler.Toggle)
			r.Get("/stats", apiHandler.Stats)
			r.Get("/users/profile", apiHandler.Profile)
		})
	})
	return r
}

func health(rdb redis.Cmdable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := rdb.Ping(r.Context()).Err(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}
}
