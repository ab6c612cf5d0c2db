// Package page serves the dashboard page itself.
package page

import (
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/student-dashboard/internal/http/middleware"
	"github.com/aanand-mishra/student-dashboard/internal/http/render"
	"github.com/aanand-mishra/student-dashboard/internal/utils/response"
)

// Index handles GET /
// It performs any fetch the list owes, applies due deadlines and renders.
func Index(rd *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shell := middleware.Shell(r.Context())
		shell.Sync(r.Context())

		if response.WantsJSON(r) {
			_ = response.WriteJSON(w, http.StatusOK, shell.Page().List)
			return
		}
		rd.Page(w, r, shell.Page())
	}
}

// Filter handles GET /students?q=&course=
// Both filters apply together; an empty course selects all courses.
func Filter(rd *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		slog.Info("filtering students", slog.String("q", q.Get("q")), slog.String("course", q.Get("course")))

		shell := middleware.Shell(r.Context())
		shell.Search(q.Get("q"))
		shell.FilterCourse(q.Get("course"))

		Index(rd)(w, r)
	}
}

// Health handles GET /health
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = response.WriteJSON(w, http.StatusOK, response.OK())
	}
}
