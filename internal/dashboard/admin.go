package dashboard

import (
	"sync"

	"github.com/aanand-mishra/student-dashboard/internal/types"
)

// AuthState is the signed-in user, if any, and whether they are an admin.
// Admin is only ever taken from a verified identity session.
type AuthState struct {
	mu      sync.Mutex
	session *types.AuthSession
}

func NewAuthState() *AuthState {
	return &AuthState{}
}

func (a *AuthState) SignedIn(s types.AuthSession) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = &s
}

func (a *AuthState) SignedOut() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = nil
}

func (a *AuthState) LoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session != nil
}

// IsAdmin reports the Admin Flag. It is false whenever nobody is signed in.
func (a *AuthState) IsAdmin() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session != nil && a.session.Admin
}

// Session returns a copy of the current session.
func (a *AuthState) Session() (types.AuthSession, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return types.AuthSession{}, false
	}
	return *a.session, true
}
