package dashboard

import "errors"

var (
	// ErrInFlight rejects an action while the component's previous request
	// has not returned.
	ErrInFlight = errors.New("dashboard: request already in flight")

	ErrNotLoggedIn     = errors.New("dashboard: login required")
	ErrNotAdmin        = errors.New("dashboard: admin required")
	ErrUnknownStudent  = errors.New("dashboard: student not in list")
	ErrNoPendingDelete = errors.New("dashboard: no delete awaiting confirmation")
	ErrFormClosed      = errors.New("dashboard: form is not open")
	ErrNothingShown    = errors.New("dashboard: no student details shown")
)
