package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/ppiankov/clearview/internal/api"
	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/storage"
)

// Storage entry names for the credential pair
const (
	TokenKey     = "auth_token"
	TokenTypeKey = "token_type"
)

// DefaultScheme is used when the backend does not name one
const DefaultScheme = "Bearer"

// Session is an authenticated session
type Session struct {
	Token  string
	Scheme string
}

// Event is a session state change
type Event int

const (
	noEvent Event = iota
	LoggedIn
	LoggedOut
	Invalidated
)

func (e Event) String() string {
	switch e {
	case LoggedIn:
		return "logged_in"
	case LoggedOut:
		return "logged_out"
	case Invalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// TokenIssuer exchanges credentials for a token. *api.Client implements it.
type TokenIssuer interface {
	IssueToken(ctx context.Context, username, password string) (*model.Token, error)
}

// Manager owns the bearer-token lifecycle: login, persistence, the header
// attached to requests, and invalidation. Token and scheme are always set
// and cleared together.
type Manager struct {
	mu     sync.RWMutex
	store  storage.Store
	issuer TokenIssuer
	logger *slog.Logger

	token  string
	scheme string

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// NewManager creates a manager. Call Init to restore a persisted session.
func NewManager(store storage.Store, issuer TokenIssuer) *Manager {
	return &Manager{
		store:  store,
		issuer: issuer,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		subs:   make(map[int]func(Event)),
	}
}

// SetIssuer sets the token issuer. The API client needs the manager to exist
// before it can be built, so the issuer is usually wired after construction.
func (m *Manager) SetIssuer(issuer TokenIssuer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issuer = issuer
}

// SetLogger sets the diagnostic logger
func (m *Manager) SetLogger(l *slog.Logger) {
	m.logger = l
}

// Init restores the persisted session. A token without its scheme (or the
// reverse) is discarded.
func (m *Manager) Init() error {
	token, hasToken := m.store.Get(TokenKey)
	scheme, hasScheme := m.store.Get(TokenTypeKey)

	m.mu.Lock()
	defer m.mu.Unlock()

	if hasToken && len(token) > 0 && hasScheme {
		m.token = string(token)
		m.scheme = normalizeScheme(string(scheme))
		return nil
	}

	m.token, m.scheme = "", ""
	if hasToken || hasScheme {
		m.logger.Debug("discarding incomplete persisted session")
		return m.deleteStored()
	}
	return nil
}

// Login exchanges credentials for a token and stores it. On any failure the
// session is left cleared and the error is returned for display.
func (m *Manager) Login(ctx context.Context, username, password string) (Session, error) {
	m.mu.RLock()
	issuer := m.issuer
	m.mu.RUnlock()
	if issuer == nil {
		return Session{}, errors.New("login: no token issuer configured")
	}

	tok, err := issuer.IssueToken(ctx, username, password)
	if err != nil {
		_ = m.clear(noEvent)
		return Session{}, err
	}
	if tok == nil || tok.AccessToken == "" {
		_ = m.clear(noEvent)
		return Session{}, &api.OpError{Op: "login", Kind: api.ErrMalformedResponse, Msg: "response has no access_token"}
	}

	s := Session{Token: tok.AccessToken, Scheme: normalizeScheme(tok.TokenType)}

	m.mu.Lock()
	if err := m.persist(s); err != nil {
		m.token, m.scheme = "", ""
		_ = m.deleteStored()
		m.mu.Unlock()
		return Session{}, fmt.Errorf("login: store session: %w", err)
	}
	m.token, m.scheme = s.Token, s.Scheme
	m.mu.Unlock()

	m.logger.Debug("session established", "scheme", s.Scheme)
	m.notify(LoggedIn)
	return s, nil
}

// Logout clears the session. Calling it while logged out is a no-op.
func (m *Manager) Logout() error {
	return m.clear(LoggedOut)
}

// Invalidate clears the session after the backend rejected the credential
func (m *Manager) Invalidate() {
	if err := m.clear(Invalidated); err != nil {
		m.logger.Warn("failed to remove invalidated session from storage", "error", err)
	}
}

// AuthHeader returns "<scheme> <token>" when a session exists
func (m *Manager) AuthHeader() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == "" {
		return "", false
	}
	return m.scheme + " " + m.token, true
}

// IsAuthenticated reports whether a token is present
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != ""
}

// Current returns the active session
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == "" {
		return Session{}, false
	}
	return Session{Token: m.token, Scheme: m.scheme}, true
}

// Subscribe registers fn for state changes. fn runs synchronously on the
// goroutine that changed the state. The returned func unsubscribes.
func (m *Manager) Subscribe(fn func(Event)) (cancel func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn

	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subs, id)
	}
}

// clear drops the in-memory and persisted credential, then notifies ev
// (noEvent = no notification). Subscribers are only told when something changed.
func (m *Manager) clear(ev Event) error {
	m.mu.Lock()
	wasSet := m.token != ""
	m.token, m.scheme = "", ""
	err := m.deleteStored()
	m.mu.Unlock()

	if wasSet && ev != noEvent {
		m.notify(ev)
	}
	return err
}

func (m *Manager) persist(s Session) error {
	if err := m.store.Set(TokenKey, []byte(s.Token)); err != nil {
		return err
	}
	if err := m.store.Set(TokenTypeKey, []byte(s.Scheme)); err != nil {
		return err
	}
	return nil
}

func (m *Manager) deleteStored() error {
	return errors.Join(m.store.Delete(TokenKey), m.store.Delete(TokenTypeKey))
}

func (m *Manager) notify(ev Event) {
	m.subMu.Lock()
	fns := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func normalizeScheme(scheme string) string {
	scheme = strings.TrimSpace(scheme)
	if scheme == "" {
		return DefaultScheme
	}
	if strings.EqualFold(scheme, DefaultScheme) {
		return DefaultScheme
	}
	return scheme
}
