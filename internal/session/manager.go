package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/finlink/crm-console-go/internal/api"
	"github.com/finlink/crm-console-go/internal/apperr"
	"github.com/finlink/crm-console-go/internal/model"
	"github.com/finlink/crm-console-go/internal/storage"
)

type State string

const (
	StateUninitialized State = "uninitialized"
	StateRestoring     State = "restoring"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

// Storage keys. Both are written on login and removed on logout; a session
// is only restored when both parse.
const (
	keyTokens = "tokens"
	keyUser   = "user"
)

// AuthAPI is the slice of the backend client the manager needs.
type AuthAPI interface {
	Login(ctx context.Context, phone, password string) (*api.LoginResponse, error)
	Register(ctx context.Context, params model.RegisterParams) (*model.User, error)
}

// Manager owns the current-user identity and bearer-token pair, persists
// them through a Store, and exposes the login/register/logout operations.
//
// Logins are not serialized: a second call while one is in flight is
// permitted and the last response to complete wins. IsLoading is an advisory
// signal for callers, not a lock.
type Manager struct {
	auth  AuthAPI
	store storage.Store

	mu      sync.Mutex
	state   State
	session *model.Session
	loading bool
	lastErr string
}

func NewManager(auth AuthAPI, store storage.Store) *Manager {
	return &Manager{
		auth:  auth,
		store: store,
		state: StateUninitialized,
	}
}

// Init restores a persisted session, transitioning to Authenticated when
// both stored values parse and to Anonymous otherwise. It never fails
// outward: unreadable or half-present state is discarded.
func (m *Manager) Init(ctx context.Context) {
	m.mu.Lock()
	m.state = StateRestoring
	m.loading = true
	m.mu.Unlock()

	session, corrupt := m.restore(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false
	if session != nil {
		m.session = session
		m.state = StateAuthenticated
		log.Debug().Int64("userId", session.User.ID).Msg("session restored")
		return
	}
	m.state = StateAnonymous
	if corrupt {
		// Corrupt state is removed so the next start gets a clean read.
		m.clearStorage(ctx)
	}
}

func (m *Manager) restore(ctx context.Context) (session *model.Session, corrupt bool) {
	rawTokens, okTokens, err := m.store.Get(ctx, keyTokens)
	if err != nil {
		log.Warn().Err(err).Msg("read persisted tokens")
		return nil, false
	}
	rawUser, okUser, err := m.store.Get(ctx, keyUser)
	if err != nil {
		log.Warn().Err(err).Msg("read persisted user")
		return nil, false
	}
	if !okTokens || !okUser {
		return nil, okTokens || okUser
	}

	var tokens model.TokenPair
	if err := json.Unmarshal([]byte(rawTokens), &tokens); err != nil {
		log.Warn().Err(apperr.StorageCorrupt(keyTokens, err)).Msg("discarding persisted session")
		return nil, true
	}
	var user model.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		log.Warn().Err(apperr.StorageCorrupt(keyUser, err)).Msg("discarding persisted session")
		return nil, true
	}
	if tokens.Access == "" {
		return nil, true
	}

	return &model.Session{User: user, Tokens: tokens}, false
}

// Login authenticates against the backend. On success the session is
// persisted and the state becomes Authenticated; on failure the state is
// unchanged, LastError is set, and the error is returned for the caller to
// react to.
func (m *Manager) Login(ctx context.Context, phone, password string) (*model.Session, error) {
	m.mu.Lock()
	m.loading = true
	m.lastErr = ""
	m.mu.Unlock()

	resp, err := m.auth.Login(ctx, phone, password)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false

	if err != nil {
		m.lastErr = apperr.UserMessage(err)
		log.Warn().Str("phone", phone).Err(err).Msg("login failed")
		return nil, err
	}

	session := &model.Session{
		User:   resp.User,
		Tokens: model.TokenPair{Access: resp.Access, Refresh: resp.Refresh},
	}
	m.persist(ctx, session)
	m.session = session
	m.state = StateAuthenticated

	log.Info().Int64("userId", session.User.ID).Str("role", string(session.User.Role)).Msg("logged in")
	snapshot := *session
	return &snapshot, nil
}

// Register creates an account but does not log it in; session state and
// storage are untouched either way.
func (m *Manager) Register(ctx context.Context, params model.RegisterParams) (*model.User, error) {
	m.mu.Lock()
	m.loading = true
	m.lastErr = ""
	m.mu.Unlock()

	user, err := m.auth.Register(ctx, params)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false

	if err != nil {
		m.lastErr = apperr.UserMessage(err)
		log.Warn().Str("phone", params.Phone).Err(err).Msg("registration failed")
		return nil, err
	}

	log.Info().Int64("userId", user.ID).Msg("registered")
	return user, nil
}

// Logout clears memory and storage. Unconditional and idempotent: calling it
// while already Anonymous is a no-op with the same observable result.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = nil
	m.state = StateAnonymous
	m.lastErr = ""
	m.clearStorage(context.Background())

	log.Info().Msg("logged out")
}

func (m *Manager) persist(ctx context.Context, session *model.Session) {
	tokens, err := json.Marshal(session.Tokens)
	if err == nil {
		err = m.store.Set(ctx, keyTokens, string(tokens))
	}
	if err != nil {
		log.Error().Err(apperr.Storage("write", err)).Msg("persist tokens")
		return
	}

	user, err := json.Marshal(session.User)
	if err == nil {
		err = m.store.Set(ctx, keyUser, string(user))
	}
	if err != nil {
		log.Error().Err(apperr.Storage("write", err)).Msg("persist user")
	}
}

// clearStorage removes both keys. Failures are logged, never surfaced:
// logout cannot fail outward. Caller holds the lock.
func (m *Manager) clearStorage(ctx context.Context) {
	if err := m.store.Delete(ctx, keyTokens); err != nil {
		log.Error().Err(err).Msg("clear persisted tokens")
	}
	if err := m.store.Delete(ctx, keyUser); err != nil {
		log.Error().Err(err).Msg("clear persisted user")
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns a snapshot of the session, or false when anonymous.
func (m *Manager) Current() (model.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return model.Session{}, false
	}
	return *m.session, true
}

func (m *Manager) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// AuthToken implements api.TokenSource.
func (m *Manager) AuthToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return "", false
	}
	return m.session.Tokens.Access, true
}

// AccessExpiry inspects the access token's exp claim without verifying the
// signature. The token is treated as opaque everywhere else; this exists
// only so the console can show when a stored session will stop working.
// Returns false for opaque or claimless tokens.
func (m *Manager) AccessExpiry() (time.Time, bool) {
	token, ok := m.AuthToken()
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
