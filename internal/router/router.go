// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// studio API. It organizes routes into public and authenticated groups with
// appropriate middleware stacks.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"xhsstudio/internal/handlers"
	"xhsstudio/internal/middleware"
)

// Handlers holds the handler groups mounted by New.
type Handlers struct {
	Auth        *handlers.Auth
	Settings    *handlers.Settings
	Generations *handlers.Generations
	Generate    *handlers.Generate
	Export      *handlers.Export
}

// Options controls cross-cutting behaviour of the router.
type Options struct {
	CORSOrigins []string
	Tokens      middleware.TokenVerifier

	// Requests per minute allowed per caller; zero disables the limiter.
	AuthRateLimit     int
	GenerateRateLimit int
}

// Router is the configured HTTP handler. Stop releases the rate limiters.
type Router struct {
	chi.Router
	limiters []*middleware.RateLimiter
}

// Stop halts the background cleanup of the rate limiters.
func (rt *Router) Stop() {
	for _, l := range rt.limiters {
		l.Stop()
	}
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(opts Options, h Handlers) *Router {
	r := chi.NewRouter()
	rt := &Router{Router: r}

	limit := func(n int) func(http.Handler) http.Handler {
		if n <= 0 {
			return func(next http.Handler) http.Handler { return next }
		}
		l := middleware.NewRateLimiter(n, time.Minute)
		rt.limiters = append(rt.limiters, l)
		return l.Middleware
	}

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler)

		// Auth: register and login are public, verify needs a token.
		r.Route("/auth", func(r chi.Router) {
			r.With(limit(opts.AuthRateLimit)).Post("/register", h.Auth.Register)
			r.With(limit(opts.AuthRateLimit)).Post("/login", h.Auth.Login)
			r.With(middleware.RequireAuth(opts.Tokens)).Get("/verify", h.Auth.Verify)
		})

		// Archive downloads are fetched by the browser without the bearer
		// header; the unguessable id is the credential.
		r.Get("/export/{id}", h.Export.Download)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(opts.Tokens))

			r.Get("/config", h.Settings.GetConfig)
			r.Post("/config", h.Settings.SaveConfig)
			r.Put("/config", h.Settings.SaveConfig)

			r.Route("/api-keys", func(r chi.Router) {
				r.Get("/", h.Settings.ListKeys)
				r.Post("/", h.Settings.CreateKey)
				r.Put("/{service}", h.Settings.PutKey)
				r.Delete("/{service}", h.Settings.DeleteKey)
			})

			r.Route("/generations", func(r chi.Router) {
				r.Get("/", h.Generations.List)
				r.Post("/", h.Generations.Create)
				r.Get("/{id}", h.Generations.Get)
				r.Delete("/{id}", h.Generations.Delete)
			})

			r.Route("/generate", func(r chi.Router) {
				r.Use(limit(opts.GenerateRateLimit))
				r.Post("/slides", h.Generate.Slides)
				r.Post("/product-copy", h.Generate.ProductCopy)
				r.Post("/article", h.Generate.Article)
				r.Post("/wechat-article", h.Generate.WechatArticle)
				r.Post("/image", h.Generate.Image)
			})

			r.Route("/export", func(r chi.Router) {
				r.Use(limit(opts.GenerateRateLimit))
				r.Post("/slides", h.Export.Slides)
				r.Post("/images", h.Export.Images)
				r.Post("/single", h.Export.Single)
			})

			r.Get("/exports", h.Export.List)
			r.Delete("/exports/{id}", h.Export.Delete)
		})
	})

	return rt
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
