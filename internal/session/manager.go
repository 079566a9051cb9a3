package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/locker-client/internal/api/dto"
	"github.com/spec-kit/locker-client/internal/domain"
	"github.com/spec-kit/locker-client/internal/events"
	"github.com/spec-kit/locker-client/internal/tokenstore"
)

// ProfileAPI is the slice of the remote API the session manager needs.
type ProfileAPI interface {
	Me(ctx context.Context) (dto.MeResponse, error)
}

// Manager owns the single live session of the process. It derives an identity
// from the stored access token, maintains the server-confirmed profile, and
// exposes authentication status to route guards. Constructed explicitly and
// torn down with Close; never a package-level singleton.
type Manager struct {
	tokens     tokenstore.Store
	api        ProfileAPI
	dispatcher events.Dispatcher
	logger     *zap.Logger

	mu      sync.Mutex
	session domain.Session
	// gen increments whenever the current session is discarded. Async results
	// stamped with an older generation are dropped, so a stale profile fetch
	// can never resurrect a signed-out session.
	gen uint64

	fetches sync.WaitGroup
}

// NewManager builds the manager and subscribes it to session-terminated
// events published by the gateway on refresh failure.
func NewManager(tokens tokenstore.Store, api ProfileAPI, dispatcher events.Dispatcher, logger *zap.Logger) *Manager {
	m := &Manager{
		tokens:     tokens,
		api:        api,
		dispatcher: dispatcher,
		logger:     logger,
		session:    domain.Session{Loading: true},
	}
	dispatcher.Subscribe(events.EventSessionTerminated, func(ctx context.Context, _ events.Event) {
		// The gateway has already cleared the token store.
		m.clearSession()
	})
	return m
}

// Initialize restores the session from the token store at process start.
// Loading gates only the decode attempt: it is false once decoding succeeds
// or fails, before the asynchronous profile fetch resolves.
func (m *Manager) Initialize(ctx context.Context) {
	creds, ok := m.tokens.Get()
	if !ok {
		m.mu.Lock()
		m.session = domain.Session{Loading: false}
		m.mu.Unlock()
		return
	}

	if err := m.establish(ctx, creds.AccessToken); err != nil {
		m.logger.Warn("stored token invalid, session cleared", zap.Error(err))
	}
}

// Login persists the pair and establishes a session from the access token.
func (m *Manager) Login(ctx context.Context, accessToken, refreshToken string) error {
	m.tokens.Set(tokenstore.Credentials{AccessToken: accessToken, RefreshToken: refreshToken})
	return m.establish(ctx, accessToken)
}

// Logout clears the token store and the session unconditionally. Idempotent.
func (m *Manager) Logout() {
	m.tokens.Clear()
	m.clearSession()
}

// Session returns a snapshot of the current session.
func (m *Manager) Session() domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Close waits for in-flight profile fetches to settle.
func (m *Manager) Close() {
	m.fetches.Wait()
}

// establish decodes the access token, optimistically sets a partial profile
// derived from it, and kicks off the full profile fetch in the background.
// An undecodable token routes through Logout.
func (m *Manager) establish(ctx context.Context, accessToken string) error {
	identity, err := DecodeIdentity(accessToken)
	if err != nil {
		m.Logout()
		return err
	}

	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.session = domain.Session{
		Identity: &identity,
		Profile: &domain.Profile{
			SubjectID:   identity.SubjectID,
			DisplayName: "User",
			Email:       "",
			Role:        identity.Role,
		},
		Loading: false,
	}
	m.mu.Unlock()

	m.dispatcher.Publish(ctx, events.Event{
		Type:      events.EventSessionStarted,
		Timestamp: time.Now().UTC(),
		Payload:   events.SessionStartedPayload{SubjectID: identity.SubjectID, Role: string(identity.Role)},
	})

	m.fetches.Add(1)
	go m.fetchProfile(ctx, gen)
	return nil
}

// fetchProfile loads /me and merges it into the session. A failed fetch is
// logged and never signs the user out; only a refresh failure does that.
func (m *Manager) fetchProfile(ctx context.Context, gen uint64) {
	defer m.fetches.Done()

	me, err := m.api.Me(ctx)
	if err != nil {
		m.logger.Warn("profile fetch failed", zap.Error(err))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.session.Identity == nil {
		// Session moved on while the fetch was in flight.
		return
	}

	// Prefer the previously known role when the server omits it; a role is
	// never silently downgraded by an incomplete /me payload.
	role := m.session.Profile.Role
	if me.Role != "" {
		role = domain.Role(me.Role)
	}
	m.session.Profile = &domain.Profile{
		SubjectID:   me.ID,
		DisplayName: me.Name,
		Email:       me.Email,
		Role:        role,
	}
}

func (m *Manager) clearSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.session = domain.Session{Loading: false}
}
