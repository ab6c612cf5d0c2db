// Package student contains the HTTP handlers that act on student records:
// viewing, editing, deleting and the record form.
//
// Every handler is a factory returning the http.HandlerFunc the router
// needs; the session's dashboard state comes from the request context.
package student

import (
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/student-dashboard/internal/http/handlers"
	"github.com/aanand-mishra/student-dashboard/internal/http/middleware"
	"github.com/aanand-mishra/student-dashboard/internal/types"
)

// View handles POST /students/{id}/view
func View() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := handlers.StudentID(r)
		err := middleware.Shell(r.Context()).ViewStudent(id)
		handlers.Done(w, r, err, "")
	}
}

// Edit handles POST /students/{id}/edit
// The student becomes the edit target and the form opens prefilled; the
// list narrows to the student's row and scrolls to it.
func Edit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := handlers.StudentID(r)
		err := middleware.Shell(r.Context()).EditStudent(id)
		handlers.Done(w, r, err, handlers.StudentAnchor(id))
	}
}

// EditProfile handles POST /details/edit
func EditProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shell := middleware.Shell(r.Context())
		err := shell.EditProfile()
		anchor := ""
		if target, ok := shell.Edit().Current(); ok {
			anchor = handlers.StudentAnchor(target.ID)
		}
		handlers.Done(w, r, err, anchor)
	}
}

// RequestDelete handles POST /students/{id}/delete
// Nothing is sent to the backend until the confirmation is posted.
func RequestDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := handlers.StudentID(r)
		err := middleware.Shell(r.Context()).RequestDelete(id)
		handlers.Done(w, r, err, handlers.StudentAnchor(id))
	}
}

// ConfirmDelete handles POST /students/delete/confirm
func ConfirmDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := middleware.Shell(r.Context()).ConfirmDelete(r.Context())
		handlers.Done(w, r, err, "")
	}
}

// CancelDelete handles POST /students/delete/cancel
func CancelDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.Shell(r.Context()).CancelDelete()
		handlers.Done(w, r, nil, "")
	}
}

// Open handles POST /modals/student/open: the form in create mode.
func Open() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := middleware.Shell(r.Context()).AddStudent()
		handlers.Done(w, r, err, "")
	}
}

// Submit handles POST /form/submit
//
// Form fields: id, name, email, course, enrollmentDate. Validation and
// backend failures are shown on the form, which stays open.
func Submit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			handlers.Done(w, r, handlers.ErrBadForm, "")
			return
		}
		in := types.StudentInput{
			ID:             r.PostFormValue("id"),
			Name:           r.PostFormValue("name"),
			Email:          r.PostFormValue("email"),
			Course:         r.PostFormValue("course"),
			EnrollmentDate: r.PostFormValue("enrollmentDate"),
		}
		shell := middleware.Shell(r.Context())
		err := shell.SubmitForm(r.Context(), in)
		if err == nil {
			// The edit is over; refetch now so the redirect shows fresh data.
			shell.Sync(r.Context())
		} else {
			slog.Debug("student form not saved", slog.String("id", in.ID), slog.String("error", err.Error()))
		}
		handlers.Done(w, r, err, "")
	}
}

// Cancel handles POST /form/cancel and POST /modals/student/close
func Cancel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := middleware.Shell(r.Context()).CancelForm()
		handlers.Done(w, r, err, "")
	}
}
