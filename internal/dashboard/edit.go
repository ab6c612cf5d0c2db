package dashboard

import (
	"sync"

	"github.com/aanand-mishra/student-dashboard/internal/types"
)

// Outcome is how an edit session ended.
type Outcome int

const (
	Saved Outcome = iota + 1
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Saved:
		return "saved"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// EditEvent describes one transition of the edit target.
type EditEvent struct {
	// Began is true when a target was set; false when an edit finished.
	Began bool
	// Target is the record being edited. For a finished event it is the
	// target that was active, zero when HadTarget is false (a create).
	Target    types.Student
	HadTarget bool
	// Outcome and Record are set on finished events. Record is what the
	// backend returned for a save.
	Outcome Outcome
	Record  types.Student
}

// EditState holds the record currently being edited, or none. Subscribers
// run synchronously after the state changed, without the lock held.
type EditState struct {
	mu     sync.Mutex
	target *types.Student
	subs   []func(EditEvent)
}

func NewEditState() *EditState {
	return &EditState{}
}

// Subscribe registers fn for every later transition.
func (e *EditState) Subscribe(fn func(EditEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, fn)
}

// Current returns the edit target.
func (e *EditState) Current() (types.Student, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.target == nil {
		return types.Student{}, false
	}
	return *e.target, true
}

// Begin makes s the edit target, replacing any previous one.
func (e *EditState) Begin(s types.Student) {
	e.mu.Lock()
	target := s
	e.target = &target
	subs := e.subs
	e.mu.Unlock()

	e.publish(subs, EditEvent{Began: true, Target: s, HadTarget: true})
}

// Finish clears the target. A save is published even without a target so
// listeners learn about created records; cancelling with nothing being
// edited publishes nothing.
func (e *EditState) Finish(outcome Outcome, record types.Student) {
	e.mu.Lock()
	prev := e.target
	e.target = nil
	subs := e.subs
	e.mu.Unlock()

	if prev == nil && outcome == Cancelled {
		return
	}
	ev := EditEvent{Outcome: outcome, Record: record}
	if prev != nil {
		ev.Target = *prev
		ev.HadTarget = true
	}
	e.publish(subs, ev)
}

func (e *EditState) publish(subs []func(EditEvent), ev EditEvent) {
	for _, fn := range subs {
		fn(ev)
	}
}
