package session

import (
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"xcreator/internal/authclient"
	"xcreator/pkg/domain"
)

// Manager owns the single live session and gates every other component on it.
// The credential is never ambient: callers fetch the token explicitly and pass
// it into each request.
type Manager struct {
	auth  *authclient.Client
	store Store

	mu       sync.Mutex
	current  domain.Session
	live     bool
	user     domain.User
	hasUser  bool
	onLogout []func()
}

// NewManager wires the auth client and persistence, resuming any session the
// store still holds from a previous run.
func NewManager(auth *authclient.Client, store Store) *Manager {
	m := &Manager{auth: auth, store: store}
	if sess, ok, err := store.Load(); err != nil {
		slog.Warn("session resume failed", "err", err)
	} else if ok {
		m.current = sess
		m.live = true
	}
	return m
}

// OnLogout registers a hook that runs whenever the session is torn down,
// whether explicitly or because the backend rejected the token.
func (m *Manager) OnLogout(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLogout = append(m.onLogout, fn)
}

// Login validates credentials locally, then exchanges them with the backend.
// Malformed input never reaches the network. A login while already signed in
// is allowed; the new session replaces the old one.
func (m *Manager) Login(email, password string) (domain.User, error) {
	if email == "" || password == "" {
		return domain.User{}, domain.Validationf("email and password are required")
	}
	if !domain.ValidEmail(email) {
		return domain.User{}, domain.Validationf("invalid email address")
	}
	user, token, err := m.auth.Login(email, password)
	if err != nil {
		return domain.User{}, classify(err)
	}
	sess := domain.Session{Token: token, UserID: strconv.FormatInt(user.ID, 10)}
	if err := m.store.Save(sess); err != nil {
		slog.Warn("session persist failed", "err", err)
	}
	m.mu.Lock()
	m.current = sess
	m.live = true
	m.user = user
	m.hasUser = true
	m.mu.Unlock()
	slog.Info("login", "user_id", user.ID)
	return user, nil
}

// Logout clears the persisted credential and all dependent state. Always
// succeeds locally; no network call is made.
func (m *Manager) Logout() {
	m.teardown("logout")
}

// CurrentUser fetches the authoritative user record for the live session.
// A missing user id is a corrupt session; a backend rejection invalidates the
// token. Unlike every other operation, a transport failure also tears the
// session down.
func (m *Manager) CurrentUser() (domain.User, error) {
	m.mu.Lock()
	sess, live := m.current, m.live
	m.mu.Unlock()
	if !live {
		return domain.User{}, domain.AuthErr("not signed in")
	}
	if sess.UserID == "" {
		m.teardown("corrupt_session")
		return domain.User{}, domain.AuthErr("session corrupt, please sign in again")
	}
	user, err := m.auth.GetUser(sess.Token, sess.UserID)
	if err != nil {
		m.teardown("token_rejected")
		return domain.User{}, domain.AuthErr("session invalid, please sign in again")
	}
	m.mu.Lock()
	m.user = user
	m.hasUser = true
	m.mu.Unlock()
	return user, nil
}

// Token returns the live bearer token.
func (m *Manager) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.live {
		return "", false
	}
	return m.current.Token, true
}

// Session returns the live credential pair.
func (m *Manager) Session() (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.live
}

// User returns the last fetched user record, if any.
func (m *Manager) User() (domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user, m.hasUser
}

// ExpiresAt reads the exp claim out of the access token without verifying
// it; the backend remains the authority. Returns false when the token is not
// a JWT or carries no expiry.
func (m *Manager) ExpiresAt() (time.Time, bool) {
	token, ok := m.Token()
	if !ok {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (m *Manager) teardown(reason string) {
	if err := m.store.Clear(); err != nil {
		slog.Warn("session clear failed", "err", err)
	}
	m.mu.Lock()
	wasLive := m.live
	m.current = domain.Session{}
	m.live = false
	m.user = domain.User{}
	m.hasUser = false
	hooks := make([]func(), len(m.onLogout))
	copy(hooks, m.onLogout)
	m.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	if wasLive {
		slog.Info("session_teardown", "reason", reason)
	}
}

func classify(err error) error {
	var apiErr *authclient.APIError
	if errors.As(err, &apiErr) {
		return domain.FromStatus(apiErr.Status, apiErr.Message)
	}
	return domain.NetworkErr()
}
