package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-dashboard/internal/client"
	"github.com/aanand-mishra/student-dashboard/internal/config"
	"github.com/aanand-mishra/student-dashboard/internal/dashboard"
	"github.com/aanand-mishra/student-dashboard/internal/http/handlers"
	"github.com/aanand-mishra/student-dashboard/internal/http/middleware"
	"github.com/aanand-mishra/student-dashboard/internal/storage"
	"github.com/aanand-mishra/student-dashboard/internal/storage/memory"
	"github.com/aanand-mishra/student-dashboard/internal/types"
)

// backend is a students REST API over a slice.
type backend struct {
	mu       sync.Mutex
	students []types.Student
	requests []string
}

func (b *backend) log(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, r.Method+" "+r.URL.Path)
}

func (b *backend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

func (b *backend) handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/students", func(w http.ResponseWriter, r *http.Request) {
		b.log(r)
		b.mu.Lock()
		defer b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(b.students)
	})
	r.Post("/students", func(w http.ResponseWriter, r *http.Request) {
		b.log(r)
		var s types.Student
		_ = json.NewDecoder(r.Body).Decode(&s)
		b.mu.Lock()
		b.students = append(b.students, s)
		b.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(s)
	})
	r.Put("/students/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.log(r)
		var s types.Student
		_ = json.NewDecoder(r.Body).Decode(&s)
		b.mu.Lock()
		for i := range b.students {
			if b.students[i].ID == handlers.StudentID(r) {
				b.students[i] = s
			}
		}
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(s)
	})
	r.Delete("/students/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.log(r)
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.students {
			if b.students[i].ID == handlers.StudentID(r) {
				b.students = append(b.students[:i], b.students[i+1:]...)
				break
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

type provider struct{}

func (provider) SignIn(_ context.Context, email, password string) (types.AuthSession, error) {
	if password != "secret1" {
		return types.AuthSession{}, errors.New("INVALID_PASSWORD")
	}
	return types.AuthSession{
		UserID:    "uid",
		Email:     email,
		IDToken:   "token",
		Admin:     strings.HasPrefix(email, "admin"),
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (provider) SignUp(context.Context, string, string) error { return nil }

func (provider) SignOut(context.Context, types.AuthSession) error { return nil }

type fixture struct {
	backend *backend
	store   storage.Storage
	server  *httptest.Server
	browser *http.Client
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Session.CookieName = "dashboard_session"
	cfg.Session.TTL = time.Hour
	cfg.UI.LockIDOnEdit = true
	cfg.UI.OnSave = config.OnSaveRefetch
	return cfg
}

func newFixture(t *testing.T, store storage.Storage) *fixture {
	t.Helper()
	b := &backend{students: []types.Student{
		{ID: "S1", Name: "Alice", Email: "alice@example.com", Course: "Data Science", EnrollmentDate: "2024-09-01", Progress: 60},
		{ID: "S2", Name: "Bob", Email: "bob@example.com", Course: "Web Development", EnrollmentDate: "2024-09-02", Progress: 20},
	}}
	api := httptest.NewServer(b.handler())
	t.Cleanup(api.Close)

	cfg := testConfig()
	students := client.New(api.URL, time.Second)
	sessions := middleware.NewSessions(func() *dashboard.Shell {
		return dashboard.NewShell(students, provider{}, dashboard.OptionsFromConfig(cfg.UI))
	}, store, cfg.Session.TTL)

	srv := httptest.NewServer(Router(cfg, sessions))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &fixture{
		backend: b,
		store:   store,
		server:  srv,
		browser: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (fx *fixture) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := fx.browser.Get(fx.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func (fx *fixture) post(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := fx.browser.PostForm(fx.server.URL+path, form)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp
}

func (fx *fixture) login(t *testing.T, email string) {
	t.Helper()
	resp := fx.post(t, "/login", url.Values{"email": {email}, "password": {"secret1"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	fx := newFixture(t, memory.New())
	code, body := fx.get(t, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestPageListsAndFilters(t *testing.T) {
	fx := newFixture(t, memory.New())

	code, body := fx.get(t, "/")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Alice")
	assert.Contains(t, body, "Bob")
	assert.Contains(t, body, `id="student-S1"`)

	_, body = fx.get(t, "/students?q=ali")
	assert.Contains(t, body, "Alice")
	assert.NotContains(t, body, "bob@example.com")

	_, body = fx.get(t, "/students?q=ali&course=Web+Development")
	assert.Contains(t, body, "No students found")

	assert.Equal(t, []string{"GET /students"}, fx.backend.Requests())
}

func TestEditFlow(t *testing.T) {
	fx := newFixture(t, memory.New())
	fx.get(t, "/")
	fx.login(t, "admin@example.com")

	resp := fx.post(t, "/students/S1/edit", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/#student-S1", resp.Header.Get("Location"))

	_, body := fx.get(t, "/")
	assert.Contains(t, body, "Edit Student")
	assert.Contains(t, body, `class="highlight"`)

	resp = fx.post(t, "/form/submit", url.Values{
		"id":             {"S1"},
		"name":           {"Alice"},
		"email":          {"alice@example.com"},
		"course":         {"UX Design"},
		"enrollmentDate": {"2024-09-01"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	assert.Equal(t, []string{"GET /students", "PUT /students/S1", "GET /students"}, fx.backend.Requests())

	_, body = fx.get(t, "/")
	assert.Contains(t, body, "Student successfully updated!")
	assert.Contains(t, body, "UX Design")
	assert.Contains(t, body, `http-equiv="refresh"`)
}

func TestFormValidationStaysOnPage(t *testing.T) {
	fx := newFixture(t, memory.New())
	fx.get(t, "/")
	fx.login(t, "amy@example.com")

	fx.post(t, "/modals/student/open", nil)
	resp := fx.post(t, "/form/submit", url.Values{"id": {"S9"}, "email": {"nope"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := fx.get(t, "/")
	assert.Contains(t, body, "Name is required")
	assert.Contains(t, body, "Email is not valid")
	assert.NotContains(t, fx.backend.Requests(), "POST /students")
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	fx := newFixture(t, memory.New())
	fx.get(t, "/")
	fx.login(t, "admin@example.com")

	fx.post(t, "/students/S2/delete", nil)
	_, body := fx.get(t, "/")
	assert.Contains(t, body, "Are you sure you want to delete Bob?")

	fx.post(t, "/students/delete/cancel", nil)
	assert.NotContains(t, fx.backend.Requests(), "DELETE /students/S2")

	fx.post(t, "/students/S2/delete", nil)
	fx.post(t, "/students/delete/confirm", nil)
	assert.Contains(t, fx.backend.Requests(), "DELETE /students/S2")

	_, body = fx.get(t, "/")
	assert.Contains(t, body, "Student deleted successfully")
	assert.NotContains(t, body, "bob@example.com")
}

func TestAdminActionsRejected(t *testing.T) {
	fx := newFixture(t, memory.New())
	fx.get(t, "/")

	assert.Equal(t, http.StatusForbidden, fx.post(t, "/students/S1/edit", nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, fx.post(t, "/modals/student/open", nil).StatusCode)

	fx.login(t, "amy@example.com")
	assert.Equal(t, http.StatusForbidden, fx.post(t, "/students/S1/delete", nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, fx.post(t, "/modals/nope/open", nil).StatusCode)

	_, body := fx.get(t, "/")
	assert.NotContains(t, body, `/students/S1/edit`)
}

func TestSignInSurvivesRestart(t *testing.T) {
	store := memory.New()
	fx := newFixture(t, store)
	fx.get(t, "/")
	fx.login(t, "admin@example.com")

	// A second dashboard process over the same store; cookies are not
	// port-scoped, so the browser presents the same session id to it.
	restarted := newFixture(t, store)
	restarted.browser.Jar = fx.browser.Jar
	serverURL, err := url.Parse(fx.server.URL)
	require.NoError(t, err)
	cookies := fx.browser.Jar.Cookies(serverURL)
	require.Len(t, cookies, 1)

	_, body := restarted.get(t, "/")
	assert.Contains(t, body, "admin@example.com")
	assert.Contains(t, body, "Logout")

	restarted.post(t, "/logout", nil)
	_, err = store.GetSession(context.Background(), cookies[0].Value)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStudentIDsWithReservedCharacters(t *testing.T) {
	fx := newFixture(t, memory.New())
	reserved := []string{"2024/07", "S#3", "S?4", "50%"}
	for i, id := range reserved {
		fx.backend.students = append(fx.backend.students, types.Student{
			ID:             id,
			Name:           fmt.Sprintf("Reserved %d", i),
			Email:          fmt.Sprintf("reserved%d@example.com", i),
			Course:         "Data Science",
			EnrollmentDate: "2024-09-01",
		})
	}
	fx.get(t, "/")
	fx.login(t, "admin@example.com")
	_, body := fx.get(t, "/")

	for _, id := range reserved {
		segment := url.PathEscape(id)
		assert.Contains(t, body, `action="/students/`+segment+`/edit"`, id)

		resp := fx.post(t, "/students/"+segment+"/view", nil)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, id)

		resp = fx.post(t, "/students/"+segment+"/edit", nil)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode, id)
		assert.Equal(t, "/#student-"+segment, resp.Header.Get("Location"))
		_, page := fx.get(t, "/")
		assert.Contains(t, page, "Edit Student", id)
		require.Equal(t, http.StatusSeeOther, fx.post(t, "/form/cancel", nil).StatusCode)

		require.Equal(t, http.StatusSeeOther, fx.post(t, "/students/"+segment+"/delete", nil).StatusCode, id)
		require.Equal(t, http.StatusSeeOther, fx.post(t, "/students/delete/confirm", nil).StatusCode, id)
	}

	fx.backend.mu.Lock()
	defer fx.backend.mu.Unlock()
	var left []string
	for _, s := range fx.backend.students {
		left = append(left, s.ID)
	}
	assert.Equal(t, []string{"S1", "S2"}, left)
}
