package dashboard

import "time"

// Clock returns the current time. Components take one so deadlines can be
// tested without sleeping.
type Clock func() time.Time

// Kind is the tone of a notification or banner.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is a transient message. A zero ExpiresAt never expires.
type Notification struct {
	Kind      Kind
	Message   string
	ExpiresAt time.Time
}

// Expired reports whether n should no longer be shown at now.
func (n *Notification) Expired(now time.Time) bool {
	return n != nil && !n.ExpiresAt.IsZero() && !now.Before(n.ExpiresAt)
}

func notice(kind Kind, msg string, now time.Time, ttl time.Duration) *Notification {
	n := &Notification{Kind: kind, Message: msg}
	if ttl > 0 {
		n.ExpiresAt = now.Add(ttl)
	}
	return n
}

// earliest returns the earlier non-zero time.
func earliest(a, b time.Time) time.Time {
	switch {
	case a.IsZero():
		return b
	case b.IsZero():
		return a
	case b.Before(a):
		return b
	default:
		return a
	}
}
