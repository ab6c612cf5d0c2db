// Package http assembles the dashboard's router.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"

	"github.com/aanand-mishra/student-dashboard/internal/config"
	"github.com/aanand-mishra/student-dashboard/internal/http/handlers/auth"
	"github.com/aanand-mishra/student-dashboard/internal/http/handlers/page"
	"github.com/aanand-mishra/student-dashboard/internal/http/handlers/student"
	"github.com/aanand-mishra/student-dashboard/internal/http/middleware"
	"github.com/aanand-mishra/student-dashboard/internal/http/render"
	"github.com/aanand-mishra/student-dashboard/internal/metrics"
)

// Router returns the dashboard's routes.
//
//	GET  /                          dashboard page
//	GET  /students?q=&course=       page with filters applied
//	POST /login /register /logout
//	POST /modals/{name}/open|close  login, register, student, details
//	POST /students/{id}/view|edit|delete
//	POST /students/delete/confirm|cancel
//	POST /form/submit /form/cancel
//	POST /details/edit
//	GET  /health /metrics
func Router(cfg *config.Config, sessions *middleware.Sessions) http.Handler {
	rd := render.New()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", page.Health())
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.CSRFKey != "" {
			r.Use(csrf.Protect([]byte(cfg.CSRFKey),
				csrf.Secure(cfg.Session.Secure),
				csrf.Path("/"),
				csrf.SameSite(csrf.SameSiteLaxMode),
			))
		}
		r.Use(middleware.Session(sessions, middleware.CookieOptions{
			Name:   cfg.CookieName,
			Secure: cfg.Session.Secure,
			MaxAge: cfg.TTL,
		}))

		r.Get("/", page.Index(rd))
		r.Get("/students", page.Filter(rd))

		r.Post("/login", auth.Login(sessions))
		r.Post("/register", auth.Register())
		r.Post("/logout", auth.Logout(sessions))
		r.Post("/modals/{name}/open", auth.OpenModal())
		r.Post("/modals/{name}/close", auth.CloseModal())

		r.Post("/students/delete/confirm", student.ConfirmDelete())
		r.Post("/students/delete/cancel", student.CancelDelete())
		r.Post("/students/{id}/view", student.View())
		r.Post("/students/{id}/edit", student.Edit())
		r.Post("/students/{id}/delete", student.RequestDelete())
		r.Post("/form/submit", student.Submit())
		r.Post("/form/cancel", student.Cancel())
		r.Post("/details/edit", student.EditProfile())
	})

	return r
}

// Server wraps the router in an http.Server with the configured timeouts.
func Server(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPServer.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
