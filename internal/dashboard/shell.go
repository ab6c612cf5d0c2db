// Package dashboard is the student-management dashboard's state: the
// shared edit target and auth state, the student list, the record form,
// the detail panel and the auth forms, composed by a Shell.
//
// A Shell holds one browser session's state. Every component guards its
// own fields; network calls run with no lock held and their results are
// dropped when the component was closed or reset while they were out.
package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aanand-mishra/student-dashboard/internal/client"
	"github.com/aanand-mishra/student-dashboard/internal/config"
	"github.com/aanand-mishra/student-dashboard/internal/identity"
	"github.com/aanand-mishra/student-dashboard/internal/types"
)

// Modal names the dialogs the shell can show.
type Modal string

const (
	ModalLogin    Modal = "login"
	ModalRegister Modal = "register"
	ModalForm     Modal = "student"
	ModalDetails  Modal = "details"
)

// Options configures a Shell.
type Options struct {
	LockIDOnEdit        bool
	OnSave              string
	FormCloseDelay      time.Duration
	LoginCloseDelay     time.Duration
	RegisterSwitchDelay time.Duration
	NoticeTTL           time.Duration
	Now                 Clock
}

// OptionsFromConfig maps the ui section of the config.
func OptionsFromConfig(ui config.UI) Options {
	return Options{
		LockIDOnEdit:        ui.LockIDOnEdit,
		OnSave:              ui.OnSave,
		FormCloseDelay:      ui.FormCloseDelay,
		LoginCloseDelay:     ui.LoginCloseDelay,
		RegisterSwitchDelay: ui.RegisterSwitchDelay,
		NoticeTTL:           ui.NoticeTTL,
	}
}

// Shell composes the dashboard and owns which modal is open.
type Shell struct {
	mu     sync.Mutex
	modals map[Modal]bool

	now      Clock
	provider identity.Provider

	edit     *EditState
	auth     *AuthState
	list     *List
	form     *Form
	detail   *Detail
	login    *LoginForm
	register *RegisterForm
}

func NewShell(students client.Students, provider identity.Provider, opts Options) *Shell {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	edit := NewEditState()
	auth := NewAuthState()
	return &Shell{
		modals:   make(map[Modal]bool),
		now:      opts.Now,
		provider: provider,
		edit:     edit,
		auth:     auth,
		list: NewList(students, edit, ListOptions{
			OnSave:    opts.OnSave,
			NoticeTTL: opts.NoticeTTL,
			Now:       opts.Now,
		}),
		form: NewForm(students, edit, FormOptions{
			LockIDOnEdit: opts.LockIDOnEdit,
			CloseDelay:   opts.FormCloseDelay,
			Now:          opts.Now,
		}),
		detail:   NewDetail(),
		login:    NewLoginForm(provider, auth, opts.LoginCloseDelay, opts.Now),
		register: NewRegisterForm(provider, opts.RegisterSwitchDelay, opts.Now),
	}
}

func (s *Shell) Edit() *EditState { return s.edit }
func (s *Shell) Auth() *AuthState { return s.auth }
func (s *Shell) List() *List { return s.list }
func (s *Shell) Form() *Form { return s.form }

func (s *Shell) setModal(m Modal, open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modals[m] = open
}

// IsOpen reports whether modal m is showing.
func (s *Shell) IsOpen(m Modal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modals[m]
}

// ── Auth ────────────────────────────────────────────────────────────────

// Restore re-establishes a remembered sign-in.
func (s *Shell) Restore(session types.AuthSession) {
	s.auth.SignedIn(session)
}

// OpenLogin shows the login modal; it also serves as "switch to login".
func (s *Shell) OpenLogin() {
	s.register.Reset()
	s.login.Reset()
	s.mu.Lock()
	s.modals[ModalRegister] = false
	s.modals[ModalLogin] = true
	s.mu.Unlock()
}

// OpenRegister shows the registration modal; it also serves as "switch to register".
func (s *Shell) OpenRegister() {
	s.login.Reset()
	s.register.Reset()
	s.mu.Lock()
	s.modals[ModalLogin] = false
	s.modals[ModalRegister] = true
	s.mu.Unlock()
}

// CloseAuth hides both auth modals.
func (s *Shell) CloseAuth() {
	s.login.Reset()
	s.register.Reset()
	s.mu.Lock()
	s.modals[ModalLogin] = false
	s.modals[ModalRegister] = false
	s.mu.Unlock()
}

// Login validates and submits the login form. On success the modal stays
// open with its banner until the close delay runs out in Tick.
func (s *Shell) Login(ctx context.Context, in LoginInput) error {
	return s.login.Submit(ctx, in)
}

// Register validates and submits the registration form; a success
// switches to the login modal after the delay.
func (s *Shell) Register(ctx context.Context, in RegisterInput) error {
	return s.register.Submit(ctx, in)
}

// Logout signs out. Provider errors are logged; the local session is
// dropped either way. A save already out is left to finish so the list
// still refetches; its form is only hidden.
func (s *Shell) Logout(ctx context.Context) {
	if session, ok := s.auth.Session(); ok {
		if err := s.provider.SignOut(ctx, session); err != nil {
			slog.Error("logout error", slog.String("error", err.Error()))
		}
	}
	s.auth.SignedOut()
	if s.IsOpen(ModalForm) {
		_ = s.form.Cancel()
		s.setModal(ModalForm, false)
	}
	s.CloseDetails()
	s.list.CancelDelete()
	slog.Info("user logged out")
}

// ── Students ────────────────────────────────────────────────────────────

// Sync performs any fetch the list owes.
func (s *Shell) Sync(ctx context.Context) {
	s.list.Sync(ctx)
}

func (s *Shell) Search(q string) { s.list.SetSearch(q) }
func (s *Shell) FilterCourse(c string) { s.list.SetCourse(c) }
func (s *Shell) Refresh(ctx context.Context) error { return s.list.Load(ctx) }

// ViewStudent opens the detail panel. Signed-out viewers get the
// access-denied panel instead of the record.
func (s *Shell) ViewStudent(id string) error {
	student, ok := s.list.Find(id)
	if !ok {
		return ErrUnknownStudent
	}
	slog.Info("view details for student", slog.String("id", id))
	if s.auth.LoggedIn() {
		s.detail.Show(&student)
	} else {
		s.detail.Show(nil)
	}
	s.setModal(ModalDetails, true)
	return nil
}

func (s *Shell) CloseDetails() {
	s.detail.Hide()
	s.setModal(ModalDetails, false)
}

// AddStudent opens the form in create mode.
func (s *Shell) AddStudent() error {
	if !s.auth.LoggedIn() {
		return ErrNotLoggedIn
	}
	if err := s.form.Open(); err != nil {
		return err
	}
	s.setModal(ModalForm, true)
	return nil
}

// EditStudent makes id the edit target and opens the form prefilled.
func (s *Shell) EditStudent(id string) error {
	if !s.auth.IsAdmin() {
		return ErrNotAdmin
	}
	student, ok := s.list.Find(id)
	if !ok {
		return ErrUnknownStudent
	}
	return s.beginEdit(student)
}

// EditProfile starts editing the student shown in the detail panel.
func (s *Shell) EditProfile() error {
	if !s.auth.IsAdmin() {
		return ErrNotAdmin
	}
	student, ok := s.detail.Shown()
	if !ok {
		return ErrNothingShown
	}
	if s.form.Busy() {
		return ErrInFlight
	}
	s.CloseDetails()
	return s.beginEdit(student)
}

// beginEdit makes student the edit target. It is refused while the form
// has a save out: that save's completion would end the new edit.
func (s *Shell) beginEdit(student types.Student) error {
	if s.form.Busy() {
		return ErrInFlight
	}
	slog.Info("edit student", slog.String("id", student.ID))
	s.edit.Begin(student)
	if err := s.form.Open(); err != nil {
		s.edit.Finish(Cancelled, types.Student{})
		return err
	}
	s.setModal(ModalForm, true)
	return nil
}

// SubmitForm stores the posted values and submits. Creating needs a
// sign-in; updating needs admin.
func (s *Shell) SubmitForm(ctx context.Context, in types.StudentInput) error {
	if !s.auth.LoggedIn() {
		return ErrNotLoggedIn
	}
	if s.form.Mode() == ModeUpdate && !s.auth.IsAdmin() {
		return ErrNotAdmin
	}
	s.form.SetValues(in)
	return s.form.Submit(ctx)
}

// CancelForm closes the form and ends any edit without saving. It is
// refused with ErrInFlight while a save is out.
func (s *Shell) CancelForm() error {
	if err := s.form.Cancel(); err != nil {
		return err
	}
	s.setModal(ModalForm, false)
	return nil
}

// RequestDelete asks for confirmation before deleting id.
func (s *Shell) RequestDelete(id string) error {
	if !s.auth.IsAdmin() {
		return ErrNotAdmin
	}
	return s.list.RequestDelete(id)
}

// ConfirmDelete sends the delete awaiting confirmation. On success the
// record leaves the list with no refetch.
func (s *Shell) ConfirmDelete(ctx context.Context) error {
	if !s.auth.IsAdmin() {
		return ErrNotAdmin
	}
	return s.list.ConfirmDelete(ctx)
}

func (s *Shell) CancelDelete() {
	s.list.CancelDelete()
}

// ── Timers ──────────────────────────────────────────────────────────────

// Tick applies every deadline that has passed at now.
func (s *Shell) Tick(now time.Time) {
	if s.form.Tick(now) {
		s.setModal(ModalForm, false)
	}
	if s.login.Tick(now) {
		s.CloseAuth()
	}
	if s.register.Tick(now) {
		s.OpenLogin()
	}
	s.list.Tick(now)
}

// NextDeadline is the earliest pending deadline, zero when none.
func (s *Shell) NextDeadline() time.Time {
	d := s.form.deadline()
	d = earliest(d, s.login.deadline())
	d = earliest(d, s.register.deadline())
	return earliest(d, s.list.deadline())
}

// Close tears the session down; late responses are discarded.
func (s *Shell) Close() {
	s.list.Close()
	s.form.Close()
	s.login.Reset()
	s.register.Reset()
}

// ── Rendering ───────────────────────────────────────────────────────────

// PageView is everything a page render needs.
type PageView struct {
	LoggedIn bool
	Admin    bool
	Email    string

	List     ListView
	Form     FormView
	Detail   DetailView
	Login    *AuthFormView
	Register *AuthFormView

	// RefreshAfter asks the browser to re-render once the next deadline
	// passes; zero means no deadline is pending.
	RefreshAfter time.Duration
}

// Page applies due deadlines and snapshots the whole dashboard.
func (s *Shell) Page() PageView {
	now := s.now()
	s.Tick(now)

	session, loggedIn := s.auth.Session()
	v := PageView{
		LoggedIn: loggedIn,
		Admin:    loggedIn && session.Admin,
		Email:    session.Email,
		List:     s.list.View(),
		Form:     s.form.View(),
		Detail:   s.detail.View(loggedIn && session.Admin),
	}
	v.Form.Visible = v.Form.Visible && s.IsOpen(ModalForm)
	if s.IsOpen(ModalLogin) {
		lv := s.login.View()
		v.Login = &lv
	}
	if s.IsOpen(ModalRegister) {
		rv := s.register.View()
		v.Register = &rv
	}
	if d := s.NextDeadline(); !d.IsZero() {
		v.RefreshAfter = d.Sub(now)
		if v.RefreshAfter < time.Second {
			v.RefreshAfter = time.Second
		}
	}
	return v
}
