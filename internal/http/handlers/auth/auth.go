// Package auth contains the login, registration and logout handlers and
// the modal toggles.
package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aanand-mishra/student-dashboard/internal/dashboard"
	"github.com/aanand-mishra/student-dashboard/internal/http/handlers"
	"github.com/aanand-mishra/student-dashboard/internal/http/handlers/student"
	"github.com/aanand-mishra/student-dashboard/internal/http/middleware"
)

var errUnknownModal = errors.New("unknown modal")

// Login handles POST /login
// Form fields: email, password. On success the sign-in is remembered so
// it outlives a dashboard restart.
func Login(sessions *middleware.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			handlers.Done(w, r, handlers.ErrBadForm, "")
			return
		}
		shell := middleware.Shell(r.Context())
		err := shell.Login(r.Context(), dashboard.LoginInput{
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
		})
		if err == nil {
			if session, ok := shell.Auth().Session(); ok {
				id := middleware.SessionID(r.Context())
				if err := sessions.Remember(r.Context(), id, session); err != nil {
					slog.Error("failed to persist session", slog.String("error", err.Error()))
				}
			}
		}
		handlers.Done(w, r, err, "")
	}
}

// Register handles POST /register
// Form fields: studentName, email, password, isAdmin.
func Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			handlers.Done(w, r, handlers.ErrBadForm, "")
			return
		}
		adminIntent, _ := strconv.ParseBool(r.PostFormValue("isAdmin"))
		err := middleware.Shell(r.Context()).Register(r.Context(), dashboard.RegisterInput{
			StudentName: r.PostFormValue("studentName"),
			Email:       r.PostFormValue("email"),
			Password:    r.PostFormValue("password"),
			AdminIntent: adminIntent,
		})
		handlers.Done(w, r, err, "")
	}
}

// Logout handles POST /logout
func Logout(sessions *middleware.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.Shell(r.Context()).Logout(r.Context())
		if err := sessions.Forget(r.Context(), middleware.SessionID(r.Context())); err != nil {
			slog.Error("failed to forget session", slog.String("error", err.Error()))
		}
		handlers.Done(w, r, nil, "")
	}
}

// OpenModal handles POST /modals/{name}/open
func OpenModal() http.HandlerFunc {
	openForm := student.Open()
	return func(w http.ResponseWriter, r *http.Request) {
		shell := middleware.Shell(r.Context())
		switch dashboard.Modal(chi.URLParam(r, "name")) {
		case dashboard.ModalLogin:
			shell.OpenLogin()
		case dashboard.ModalRegister:
			shell.OpenRegister()
		case dashboard.ModalForm:
			openForm(w, r)
			return
		default:
			http.Error(w, errUnknownModal.Error(), http.StatusNotFound)
			return
		}
		handlers.Done(w, r, nil, "")
	}
}

// CloseModal handles POST /modals/{name}/close
func CloseModal() http.HandlerFunc {
	cancelForm := student.Cancel()
	return func(w http.ResponseWriter, r *http.Request) {
		shell := middleware.Shell(r.Context())
		switch dashboard.Modal(chi.URLParam(r, "name")) {
		case dashboard.ModalLogin, dashboard.ModalRegister:
			shell.CloseAuth()
		case dashboard.ModalDetails:
			shell.CloseDetails()
		case dashboard.ModalForm:
			cancelForm(w, r)
			return
		default:
			http.Error(w, errUnknownModal.Error(), http.StatusNotFound)
			return
		}
		handlers.Done(w, r, nil, "")
	}
}
