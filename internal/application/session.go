package application

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/bnema/stock-admin-cli/internal/adapters/store"
	"github.com/bnema/stock-admin-cli/internal/domain"
	"github.com/bnema/stock-admin-cli/internal/ports"
	"go.uber.org/zap"
)

// DefaultRefreshInterval is how often a live session is revalidated against
// the store. Refresh is a liveness probe, not a security boundary.
const DefaultRefreshInterval = 5 * time.Minute

// SessionManager owns the process-wide authentication state: the dual-role
// login flow, the persisted mirror of the live session, and the periodic
// token refresh.
type SessionManager struct {
	client          *store.Client
	sessions        ports.SessionStore
	logger          *zap.Logger
	refreshInterval time.Duration

	mu          sync.Mutex
	session     *domain.Session
	stopRefresh chan struct{}
}

func NewSessionManager(client *store.Client, sessions ports.SessionStore, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		client:          client,
		sessions:        sessions,
		logger:          logger,
		refreshInterval: DefaultRefreshInterval,
	}
}

// SetRefreshInterval overrides the refresh cadence. Only meaningful before a
// session exists.
func (m *SessionManager) SetRefreshInterval(interval time.Duration) {
	if interval > 0 {
		m.refreshInterval = interval
	}
}

// Login authenticates with the elevated collection first and silently falls
// back to the regular one. When both paths fail the caller learns only that
// the credentials were invalid, never which path rejected them.
func (m *SessionManager) Login(ctx context.Context, username, password string) error {
	session, ok := m.authenticate(ctx, domain.CollectionSuperusers, domain.RoleAdmin, username, password)
	if !ok {
		session, ok = m.authenticate(ctx, domain.CollectionUsers, domain.RoleUser, username, password)
	}
	if !ok {
		m.client.ClearToken()
		m.logger.Warn("login failed", zap.String("username", username))
		return domain.ErrInvalidCredentials
	}

	if err := m.sessions.Save(ctx, domain.StoredAuth{Token: session.Token, Model: session.Identity}); err != nil {
		m.logger.Warn("persist session", zap.Error(err))
	}

	m.install(session)
	m.logger.Info("login successful", zap.String("role", string(session.Role)))
	return nil
}

// authenticate tries one auth collection. A structurally incomplete response
// (token without an identity record, or the reverse) counts as a failure so
// the caller can fall through to the next collection; the half-installed
// token is cleared before reporting it.
func (m *SessionManager) authenticate(ctx context.Context, collection string, role domain.Role, username, password string) (domain.Session, bool) {
	auth, err := m.client.AuthWithPassword(ctx, collection, username, password)
	if err != nil {
		return domain.Session{}, false
	}

	session := domain.Session{Role: role, Token: auth.Token, Identity: identityFromRecord(auth.Record)}
	if !session.Valid() {
		m.client.ClearToken()
		m.logger.Warn("auth response missing token or identity", zap.String("collection", collection))
		return domain.Session{}, false
	}
	return session, true
}

// Restore installs the persisted session, if any, without contacting the
// store. The role is recovered from the token's payload segment; that decode
// is unauthenticated, so the role is a presentation hint only.
func (m *SessionManager) Restore(ctx context.Context) error {
	auth, err := m.sessions.Load(ctx)
	if err != nil {
		return err
	}

	m.install(domain.Session{
		Role:     RoleFromToken(auth.Token),
		Token:    auth.Token,
		Identity: auth.Model,
	})
	return nil
}

// Logout drops the in-memory and persisted session and stops the refresh
// loop. Safe to call repeatedly and without a session.
func (m *SessionManager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.session = nil
	m.stopRefreshLocked()
	m.mu.Unlock()

	m.client.ClearToken()
	if err := m.sessions.Clear(ctx); err != nil {
		m.logger.Warn("clear persisted session", zap.Error(err))
	}
}

// IsAuthenticated reports whether a structurally complete session is held.
// It never contacts the store.
func (m *SessionManager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil && m.session.Valid()
}

func (m *SessionManager) CurrentIdentity() *domain.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	identity := m.session.Identity
	return &identity
}

func (m *SessionManager) CurrentRole() domain.Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return domain.RoleUser
	}
	return m.session.Role
}

// HandleRemoteError inspects an error from any remote call. A 401/403 forces
// a logout and returns true (retrying is hopeless); anything else returns
// false and stays the caller's problem.
func (m *SessionManager) HandleRemoteError(ctx context.Context, err error) bool {
	if !store.IsAuthError(err) {
		return false
	}
	m.logger.Warn("session invalidated by remote error", zap.Int("status", store.StatusOf(err)))
	m.Logout(ctx)
	return true
}

func (m *SessionManager) install(session domain.Session) {
	m.client.SetToken(session.Token)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &session
	m.startRefreshLocked()
}

func (m *SessionManager) startRefreshLocked() {
	if m.stopRefresh != nil {
		return
	}
	stop := make(chan struct{})
	m.stopRefresh = stop
	go m.refreshLoop(stop)
}

func (m *SessionManager) stopRefreshLocked() {
	if m.stopRefresh != nil {
		close(m.stopRefresh)
		m.stopRefresh = nil
	}
}

func (m *SessionManager) refreshLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(m.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.refreshOnce()
		}
	}
}

// refreshOnce revalidates the token for the session's current role. Failures
// are logged and otherwise ignored: no forced logout, no retry backoff.
func (m *SessionManager) refreshOnce() {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return
	}
	role := m.session.Role
	m.mu.Unlock()

	collection := domain.CollectionUsers
	if role == domain.RoleAdmin {
		collection = domain.CollectionSuperusers
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := m.client.AuthRefresh(ctx, collection); err != nil {
		m.logger.Warn("token refresh failed", zap.String("role", string(role)), zap.Error(err))
		return
	}
	m.logger.Debug("token refreshed", zap.String("role", string(role)))
}

// RoleFromToken reads the role from the token's middle dot-delimited segment.
// Nothing is verified; a token that fails to decode is simply a regular-user
// token. The result gates presentation only, never authorization.
func RoleFromToken(token string) domain.Role {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return domain.RoleUser
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		payload, err = base64.StdEncoding.DecodeString(parts[1])
		if err != nil {
			return domain.RoleUser
		}
	}

	var claims struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return domain.RoleUser
	}
	if claims.Type == "admin" {
		return domain.RoleAdmin
	}
	return domain.RoleUser
}

func identityFromRecord(record domain.Record) domain.Identity {
	displayName := record.String("username")
	if displayName == "" {
		displayName = record.String("email")
	}
	return domain.Identity{
		ID:          record.ID(),
		DisplayName: displayName,
		AvatarRef:   record.String("avatar"),
	}
}
