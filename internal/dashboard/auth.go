package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aanand-mishra/student-dashboard/internal/identity"
	"github.com/aanand-mishra/student-dashboard/internal/validate"
)

const (
	msgLoginFailed   = "Login failed. Please try again."
	msgLoginOK       = "Login successful!"
	msgRegisterOK    = "Registration successful! Redirecting to login..."
	msgRegisterError = "Registration failed: "
)

// LoginInput is the login form.
type LoginInput struct {
	Email    string `json:"email"    validate:"required,studentemail"`
	Password string `json:"password" validate:"required"`
}

// RegisterInput is the registration form. AdminIntent is collected but
// nothing persists it; admin comes from the identity provider's claims.
type RegisterInput struct {
	StudentName string `json:"studentName" validate:"required"`
	Email       string `json:"email"       validate:"required,studentemail"`
	Password    string `json:"password"    validate:"required,min=6"`
	AdminIntent bool   `json:"isAdmin"`
}

// authForm is the state both auth forms share: values, errors, banner,
// in-flight flag and one deadline.
type authForm struct {
	mu       sync.Mutex
	errs     validate.FieldErrors
	banner   *Banner
	inFlight bool
	due      time.Time
	gen      uint64
	email    string
}

func (a *authForm) begin(in any, email string) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inFlight {
		return 0, ErrInFlight
	}
	a.email = email
	if err := validate.Struct(in); err != nil {
		var fe validate.FieldErrors
		if errors.As(err, &fe) {
			a.errs = fe
		}
		return 0, err
	}
	a.errs = nil
	a.banner = nil
	a.inFlight = true
	return a.gen, nil
}

// finish applies a result unless the form was reset meanwhile.
func (a *authForm) finish(gen uint64, banner *Banner, due time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.gen {
		return false
	}
	a.inFlight = false
	a.banner = banner
	a.due = due
	return true
}

func (a *authForm) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gen++
	a.errs = nil
	a.banner = nil
	a.inFlight = false
	a.due = time.Time{}
	a.email = ""
}

// tick reports, once, that the deadline has passed.
func (a *authForm) tick(now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.due.IsZero() || now.Before(a.due) {
		return false
	}
	a.due = time.Time{}
	return true
}

func (a *authForm) deadline() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.due
}

// AuthFormView is a render snapshot of either auth form.
type AuthFormView struct {
	Email    string
	Errors   validate.FieldErrors
	Banner   *Banner
	Disabled bool
}

func (a *authForm) view() AuthFormView {
	a.mu.Lock()
	defer a.mu.Unlock()
	v := AuthFormView{Email: a.email, Errors: a.errs, Disabled: a.inFlight}
	if a.banner != nil {
		b := *a.banner
		v.Banner = &b
	}
	return v
}

// LoginForm signs users in through the identity provider.
type LoginForm struct {
	authForm
	provider identity.Provider
	auth     *AuthState
	delay    time.Duration
	now      Clock
}

func NewLoginForm(provider identity.Provider, auth *AuthState, closeDelay time.Duration, now Clock) *LoginForm {
	if now == nil {
		now = time.Now
	}
	if closeDelay == 0 {
		closeDelay = defaultCloseDelay
	}
	return &LoginForm{provider: provider, auth: auth, delay: closeDelay, now: now}
}

// Submit signs in. On success the session, and with it the Admin Flag from
// the token's claims, is recorded and the form is due to close.
func (l *LoginForm) Submit(ctx context.Context, in LoginInput) error {
	gen, err := l.begin(in, in.Email)
	if err != nil {
		return err
	}

	session, err := l.provider.SignIn(ctx, in.Email, in.Password)
	if err != nil {
		logAuthError("login", in.Email, err)
		l.finish(gen, &Banner{Kind: KindError, Message: msgLoginFailed}, time.Time{})
		return err
	}

	if l.finish(gen, &Banner{Kind: KindSuccess, Message: msgLoginOK}, l.now().Add(l.delay)) {
		l.auth.SignedIn(session)
		slog.Info("user logged in", slog.String("email", session.Email), slog.Bool("admin", session.Admin))
	}
	return nil
}

func (l *LoginForm) Reset() { l.reset() }

// Tick reports, once, that the post-login delay is over.
func (l *LoginForm) Tick(now time.Time) bool { return l.tick(now) }

func (l *LoginForm) View() AuthFormView { return l.view() }

// RegisterForm creates accounts through the identity provider.
type RegisterForm struct {
	authForm
	provider identity.Provider
	delay    time.Duration
	now      Clock
}

func NewRegisterForm(provider identity.Provider, switchDelay time.Duration, now Clock) *RegisterForm {
	if now == nil {
		now = time.Now
	}
	if switchDelay == 0 {
		switchDelay = defaultCloseDelay
	}
	return &RegisterForm{provider: provider, delay: switchDelay, now: now}
}

// Submit signs up. On success the form is due to switch to login.
func (r *RegisterForm) Submit(ctx context.Context, in RegisterInput) error {
	gen, err := r.begin(in, in.Email)
	if err != nil {
		return err
	}
	if in.AdminIntent {
		slog.Info("admin role requested at registration; not persisted", slog.String("email", in.Email))
	}

	if err := r.provider.SignUp(ctx, in.Email, in.Password); err != nil {
		logAuthError("registration", in.Email, err)
		r.finish(gen, &Banner{Kind: KindError, Message: msgRegisterError + err.Error()}, time.Time{})
		return err
	}

	slog.Info("user registered", slog.String("email", in.Email))
	r.finish(gen, &Banner{Kind: KindSuccess, Message: msgRegisterOK}, r.now().Add(r.delay))
	return nil
}

func (r *RegisterForm) Reset() { r.reset() }

// Tick reports, once, that it is time to switch to the login form.
func (r *RegisterForm) Tick(now time.Time) bool { return r.tick(now) }

func (r *RegisterForm) View() AuthFormView { return r.view() }

func logAuthError(action, email string, err error) {
	if identity.IsProviderError(err) {
		slog.Warn(action+" rejected", slog.String("email", email), slog.String("error", err.Error()))
		return
	}
	slog.Error(action+" error", slog.String("email", email), slog.String("error", err.Error()))
}
