// Package render turns a dashboard.PageView into the HTML page.
package render

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"math"
	"net/http"
	"net/url"

	"github.com/gorilla/csrf"

	"github.com/aanand-mishra/student-dashboard/internal/dashboard"
	"github.com/aanand-mishra/student-dashboard/internal/metrics"
	"github.com/aanand-mishra/student-dashboard/internal/types"
)

//go:embed templates/*.html
var templatesFS embed.FS

// pathEscape keeps an id one path segment even when it holds / # or ?.
var funcs = template.FuncMap{
	"anchor":     func(id string) string { return "student-" + id },
	"pathEscape": url.PathEscape,
}

// Renderer executes the embedded page templates.
type Renderer struct {
	tpl *template.Template
}

func New() *Renderer {
	return &Renderer{
		tpl: template.Must(template.New("page").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")),
	}
}

// Data is what the templates see.
type Data struct {
	dashboard.PageView

	// CSRFField is the hidden token input, empty when CSRF is off.
	CSRFField template.HTML
	// RefreshSeconds drives the meta refresh; zero renders none.
	RefreshSeconds int
	AllCourses     []string
}

func newData(r *http.Request, view dashboard.PageView) Data {
	return Data{
		PageView:       view,
		CSRFField:      csrf.TemplateField(r),
		RefreshSeconds: int(math.Ceil(view.RefreshAfter.Seconds())),
		AllCourses:     types.Courses,
	}
}

// Page writes the full dashboard page.
func (rd *Renderer) Page(w http.ResponseWriter, r *http.Request, view dashboard.PageView) {
	var buf bytes.Buffer
	if err := rd.tpl.ExecuteTemplate(&buf, "page.html", newData(r, view)); err != nil {
		slog.Error("render error", slog.String("error", err.Error()))
		metrics.PageRendered(http.StatusInternalServerError)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
	metrics.PageRendered(http.StatusOK)
}
