package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/aanand-mishra/student-dashboard/internal/client"
	"github.com/aanand-mishra/student-dashboard/internal/types"
)

type call struct {
	op string
	id string
}

// fakeStudents is an in-memory backend that records every call.
type fakeStudents struct {
	mu      sync.Mutex
	records []types.Student
	calls   []call

	listErr   error
	createErr error
	updateErr error
	deleteErr error

	// gate, when set, blocks every call until it is closed.
	gate chan struct{}
}

func newFakeStudents(records ...types.Student) *fakeStudents {
	return &fakeStudents{records: append([]types.Student(nil), records...)}
}

func (f *fakeStudents) record(op, id string) {
	f.mu.Lock()
	f.calls = append(f.calls, call{op: op, id: id})
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func (f *fakeStudents) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeStudents) count(op string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.op == op {
			n++
		}
	}
	return n
}

func (f *fakeStudents) List(ctx context.Context) ([]types.Student, error) {
	f.record("list", "")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]types.Student(nil), f.records...), nil
}

func (f *fakeStudents) Create(ctx context.Context, in types.StudentInput) (types.Student, error) {
	f.record("create", in.ID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return types.Student{}, f.createErr
	}
	s := in.Student(0)
	f.records = append(f.records, s)
	return s, nil
}

func (f *fakeStudents) Update(ctx context.Context, id string, s types.Student) (types.Student, error) {
	f.record("update", id)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return types.Student{}, f.updateErr
	}
	for i := range f.records {
		if f.records[i].ID == id {
			f.records[i] = s
		}
	}
	return s, nil
}

func (f *fakeStudents) Delete(ctx context.Context, id string) error {
	f.record("delete", id)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.records {
		if f.records[i].ID == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			break
		}
	}
	return nil
}

var _ client.Students = (*fakeStudents)(nil)

// fakeProvider signs in any password "secret1"; admins lists admin emails.
type fakeProvider struct {
	mu       sync.Mutex
	admins   map[string]bool
	signUps  []string
	signOuts int

	signUpErr  error
	signOutErr error
}

func (p *fakeProvider) SignIn(ctx context.Context, email, password string) (types.AuthSession, error) {
	if password != "secret1" {
		return types.AuthSession{}, errBadPassword
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return types.AuthSession{
		UserID:    "uid-" + email,
		Email:     email,
		IDToken:   "token",
		Admin:     p.admins[email],
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (p *fakeProvider) SignUp(ctx context.Context, email, password string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.signUpErr != nil {
		return p.signUpErr
	}
	p.signUps = append(p.signUps, email)
	return nil
}

func (p *fakeProvider) SignOut(ctx context.Context, session types.AuthSession) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signOuts++
	return p.signOutErr
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

const errBadPassword = fakeErr("INVALID_PASSWORD")

// fakeClock is advanced by hand.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

var (
	alice = types.Student{ID: "S1", Name: "Alice", Email: "alice@example.com", Course: "Data Science", EnrollmentDate: "2024-09-01", Progress: 60}
	bob   = types.Student{ID: "S2", Name: "Bob", Email: "bob@example.com", Course: "Web Development", EnrollmentDate: "2024-09-02", Progress: 20}
)

func ids(students []types.Student) []string {
	out := make([]string, 0, len(students))
	for _, s := range students {
		out = append(out, s.ID)
	}
	return out
}

// statusError mimics a backend answer with a status code.
func statusError(code int, msg string) error {
	return &client.APIError{Op: "test", StatusCode: code, Message: msg}
}
