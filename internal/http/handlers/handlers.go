// Package handlers holds what the dashboard's handler packages share: how
// an action's result becomes a response.
//
// Every POST runs one dashboard operation and then follows the
// post/redirect/get pattern: the browser is sent back to the page, which
// renders whatever the operation left behind (banners, field errors,
// notifications). Only actions the session may not take right now are
// answered with an error status.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/aanand-mishra/student-dashboard/internal/dashboard"
	"github.com/aanand-mishra/student-dashboard/internal/utils/response"
	"github.com/aanand-mishra/student-dashboard/internal/validate"
)

// ErrBadForm is returned when a post body cannot be parsed.
var ErrBadForm = errors.New("invalid form body")

// Done answers after an action. anchor, when set, is the fragment the page
// should scroll to.
func Done(w http.ResponseWriter, r *http.Request, err error, anchor string) {
	if status := rejected(err); status != 0 {
		slog.Warn("action rejected",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("error", err.Error()))
		response.Error(w, r, status, err)
		return
	}

	if response.WantsJSON(r) {
		var fe validate.FieldErrors
		switch {
		case errors.As(err, &fe):
			_ = response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(fe))
		case err != nil:
			_ = response.WriteJSON(w, http.StatusBadGateway, response.GeneralError(err))
		default:
			_ = response.WriteJSON(w, http.StatusOK, response.OK())
		}
		return
	}

	target := "/"
	if anchor != "" {
		target += "#" + anchor
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// rejected maps errors that mean "not allowed now" to a status; zero for
// everything else, including failures the page already shows.
func rejected(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrBadForm):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrNotLoggedIn):
		return http.StatusUnauthorized
	case errors.Is(err, dashboard.ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, dashboard.ErrUnknownStudent), errors.Is(err, dashboard.ErrNothingShown):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrInFlight),
		errors.Is(err, dashboard.ErrNoPendingDelete),
		errors.Is(err, dashboard.ErrFormClosed):
		return http.StatusConflict
	default:
		return 0
	}
}

// StudentAnchor is the fragment of a student's row, escaped for a
// Location header.
func StudentAnchor(id string) string {
	if id == "" {
		return ""
	}
	return "student-" + url.PathEscape(id)
}

// StudentID returns the {id} route parameter decoded. Row actions escape
// the id into one path segment; chi matches on the raw path when the
// request has one, leaving the parameter escaped.
func StudentID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return id
	}
	if decoded, err := url.PathUnescape(id); err == nil {
		return decoded
	}
	return id
}
