package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aanand-mishra/student-dashboard/internal/client"
	"github.com/aanand-mishra/student-dashboard/internal/types"
	"github.com/aanand-mishra/student-dashboard/internal/validate"
)

const defaultCloseDelay = 2 * time.Second

// Mode says what Submit will do.
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

// FormOptions configures a Form.
type FormOptions struct {
	// LockIDOnEdit keeps the student ID fixed to the edit target's.
	LockIDOnEdit bool
	// CloseDelay is how long the success banner shows before the form closes.
	CloseDelay time.Duration
	Now        Clock
}

// Banner is the message shown at the top of a form.
type Banner struct {
	Kind    Kind
	Message string
}

// Form collects one student record. It creates when there is no edit
// target and updates the target otherwise.
type Form struct {
	mu       sync.Mutex
	students client.Students
	edit     *EditState
	opts     FormOptions

	open     bool
	mode     Mode
	original types.Student
	values   types.StudentInput
	errs     validate.FieldErrors
	banner   *Banner
	inFlight bool
	closeAt  time.Time
	gen      uint64
}

func NewForm(students client.Students, edit *EditState, opts FormOptions) *Form {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CloseDelay == 0 {
		opts.CloseDelay = defaultCloseDelay
	}
	f := &Form{students: students, edit: edit, opts: opts}
	edit.Subscribe(f.handleEdit)
	return f
}

// Open shows the form, prefilled from the edit target when there is one.
// It returns ErrInFlight while a save is out.
func (f *Form) Open() error {
	target, editing := f.edit.Current()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return ErrInFlight
	}
	f.gen++
	f.open = true
	f.banner = nil
	f.errs = nil
	f.closeAt = time.Time{}
	if editing {
		f.prefill(target)
		return nil
	}
	f.reset()
	return nil
}

// Busy reports whether a save is out.
func (f *Form) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// Visible reports whether the form is open.
func (f *Form) Visible() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// Mode returns what Submit would do right now.
func (f *Form) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

// SetValues replaces the field values, typically from a form post. With
// LockIDOnEdit the ID stays the target's in update mode.
func (f *Form) SetValues(in types.StudentInput) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return
	}
	if f.mode == ModeUpdate && f.opts.LockIDOnEdit {
		in.ID = f.original.ID
	}
	f.values = in
}

// Submit validates and sends the form. Validation failures return
// validate.FieldErrors and send nothing. Transport failures leave the form
// open with an error banner and the edit target untouched.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	if !f.open {
		f.mu.Unlock()
		return ErrFormClosed
	}
	if f.inFlight {
		f.mu.Unlock()
		return ErrInFlight
	}
	if err := validate.Struct(f.values); err != nil {
		var fe validate.FieldErrors
		if errors.As(err, &fe) {
			f.errs = fe
		}
		f.mu.Unlock()
		return err
	}
	f.errs = nil
	f.banner = nil
	f.inFlight = true
	gen := f.gen
	mode := f.mode
	original := f.original
	values := f.values
	f.mu.Unlock()

	var (
		saved types.Student
		err   error
	)
	if mode == ModeUpdate {
		// Addressed by the id the edit started with, whatever the payload says.
		slog.Info("updating student", slog.String("id", original.ID))
		saved, err = f.students.Update(ctx, original.ID, values.Student(original.Progress))
	} else {
		slog.Info("adding new student", slog.String("id", values.ID))
		saved, err = f.students.Create(ctx, values)
	}

	f.mu.Lock()
	if gen != f.gen {
		// Closed or reopened while the request was out; its result no
		// longer belongs to what is on screen.
		f.inFlight = false
		f.mu.Unlock()
		slog.Warn("discarding stale form result", slog.String("id", values.ID))
		return err
	}
	f.inFlight = false
	if err != nil {
		f.banner = &Banner{Kind: KindError, Message: saveFailedMessage(err)}
		f.mu.Unlock()
		slog.Error("error saving student", slog.String("id", values.ID), slog.String("error", err.Error()))
		return err
	}
	verb := "added"
	if mode == ModeUpdate {
		verb = "updated"
	}
	f.banner = &Banner{Kind: KindSuccess, Message: fmt.Sprintf("Student successfully %s!", verb)}
	f.closeAt = f.opts.Now().Add(f.opts.CloseDelay)
	f.mu.Unlock()

	slog.Info("student saved", slog.String("id", saved.ID), slog.String("mode", verb))
	f.edit.Finish(Saved, saved)

	f.mu.Lock()
	f.reset()
	f.mu.Unlock()
	return nil
}

func saveFailedMessage(err error) string {
	msg := "Failed to save student: " + err.Error()
	if code := client.StatusCode(err); code != 0 {
		msg += fmt.Sprintf(" (Status: %d)", code)
	}
	return msg
}

// Cancel closes without submitting and ends any edit. While a save is out
// every control is disabled, Cancel included, and it returns ErrInFlight.
func (f *Form) Cancel() error {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return ErrInFlight
	}
	f.gen++
	f.open = false
	f.banner = nil
	f.errs = nil
	f.closeAt = time.Time{}
	f.reset()
	f.mu.Unlock()

	f.edit.Finish(Cancelled, types.Student{})
	return nil
}

// Tick closes the form once the post-save delay is over. It reports
// whether it closed.
func (f *Form) Tick(now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open || f.closeAt.IsZero() || now.Before(f.closeAt) {
		return false
	}
	f.gen++
	f.open = false
	f.banner = nil
	f.closeAt = time.Time{}
	return true
}

// Close hides the form and discards any in-flight result.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.open = false
}

func (f *Form) handleEdit(ev EditEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return
	}
	if ev.Began {
		f.prefill(ev.Target)
		return
	}
	f.reset()
}

func (f *Form) prefill(s types.Student) {
	f.mode = ModeUpdate
	f.original = s
	f.values = s.Input()
}

func (f *Form) reset() {
	f.mode = ModeCreate
	f.original = types.Student{}
	f.values = types.StudentInput{}
}

// FormView is a render snapshot.
type FormView struct {
	Visible  bool
	Mode     Mode
	Values   types.StudentInput
	Errors   validate.FieldErrors
	Banner   *Banner
	Disabled bool
	IDLocked bool
	Courses  []string
}

// Title is the form heading.
func (v FormView) Title() string {
	if v.Mode == ModeUpdate {
		return "Edit Student"
	}
	return "Add New Student"
}

// SubmitLabel is the submit button text.
func (v FormView) SubmitLabel() string {
	switch {
	case v.Disabled:
		return "Saving..."
	case v.Mode == ModeUpdate:
		return "Update Student"
	default:
		return "Add Student"
	}
}

// View snapshots the form for rendering.
func (f *Form) View() FormView {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := FormView{
		Visible:  f.open,
		Mode:     f.mode,
		Values:   f.values,
		Errors:   f.errs,
		Disabled: f.inFlight,
		IDLocked: f.mode == ModeUpdate && f.opts.LockIDOnEdit,
		Courses:  types.Courses,
	}
	if f.banner != nil {
		b := *f.banner
		v.Banner = &b
	}
	return v
}

func (f *Form) deadline() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return time.Time{}
	}
	return f.closeAt
}
