package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/locker-client/internal/api/dto"
	"github.com/spec-kit/locker-client/internal/domain"
	"github.com/spec-kit/locker-client/internal/events"
	"github.com/spec-kit/locker-client/internal/tokenstore"
)

// memStore is an in-memory tokenstore.Store for tests.
type memStore struct {
	mu    sync.Mutex
	creds tokenstore.Credentials
	set   bool
}

func (s *memStore) Get() (tokenstore.Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds, s.set
}

func (s *memStore) Set(creds tokenstore.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds, s.set = creds, true
}

func (s *memStore) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds.AccessToken = token
}

func (s *memStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds, s.set = tokenstore.Credentials{}, false
}

// stubProfileAPI serves canned /me responses; release gates the response so
// tests can order the fetch against session transitions.
type stubProfileAPI struct {
	me      dto.MeResponse
	err     error
	release chan struct{}
}

func (a *stubProfileAPI) Me(ctx context.Context) (dto.MeResponse, error) {
	if a.release != nil {
		<-a.release
	}
	return a.me, a.err
}

func validToken(t *testing.T, sub, role string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": sub}
	if role != "" {
		claims["role"] = role
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestManager_InitializeEmptyStore(t *testing.T) {
	store := &memStore{}
	m := NewManager(store, &stubProfileAPI{}, events.NewInMemoryDispatcher(), zap.NewNop())

	require.True(t, m.Session().Loading)
	m.Initialize(context.Background())

	s := m.Session()
	require.False(t, s.Loading)
	require.False(t, s.Authenticated())
}

func TestManager_InitializeMalformedTokenClearsEverything(t *testing.T) {
	store := &memStore{}
	store.Set(tokenstore.Credentials{AccessToken: "not-a-jwt", RefreshToken: "refresh"})
	m := NewManager(store, &stubProfileAPI{}, events.NewInMemoryDispatcher(), zap.NewNop())

	m.Initialize(context.Background())

	s := m.Session()
	require.False(t, s.Loading)
	require.False(t, s.Authenticated())
	_, ok := store.Get()
	require.False(t, ok)
}

func TestManager_InitializeOptimisticProfileBeforeFetchResolves(t *testing.T) {
	store := &memStore{}
	store.Set(tokenstore.Credentials{AccessToken: validToken(t, "user-1", "user"), RefreshToken: "refresh"})
	api := &stubProfileAPI{release: make(chan struct{})}
	m := NewManager(store, api, events.NewInMemoryDispatcher(), zap.NewNop())

	m.Initialize(context.Background())

	// Loading is already false while the profile fetch is still pending.
	s := m.Session()
	require.False(t, s.Loading)
	require.True(t, s.Authenticated())
	require.Equal(t, "User", s.Profile.DisplayName)
	require.Equal(t, "", s.Profile.Email)
	require.Equal(t, domain.RoleUser, s.Profile.Role)

	close(api.release)
	m.Close()
}

func TestManager_ProfileFetchMerges(t *testing.T) {
	store := &memStore{}
	store.Set(tokenstore.Credentials{AccessToken: validToken(t, "user-1", "user"), RefreshToken: "refresh"})
	api := &stubProfileAPI{me: dto.MeResponse{ID: "user-1", Email: "a@b.co", Name: "Ada", Role: "user"}}
	m := NewManager(store, api, events.NewInMemoryDispatcher(), zap.NewNop())

	m.Initialize(context.Background())
	m.Close()

	s := m.Session()
	require.Equal(t, "Ada", s.Profile.DisplayName)
	require.Equal(t, "a@b.co", s.Profile.Email)
	require.Equal(t, domain.RoleUser, s.Profile.Role)
}

func TestManager_RoleNotDowngradedWhenServerOmitsIt(t *testing.T) {
	store := &memStore{}
	store.Set(tokenstore.Credentials{AccessToken: validToken(t, "admin-1", "admin"), RefreshToken: "refresh"})
	api := &stubProfileAPI{me: dto.MeResponse{ID: "admin-1", Email: "root@b.co", Name: "Root"}}
	m := NewManager(store, api, events.NewInMemoryDispatcher(), zap.NewNop())

	m.Initialize(context.Background())
	m.Close()

	require.Equal(t, domain.RoleAdmin, m.Session().Profile.Role)
}

func TestManager_ProfileFetchFailureDoesNotLogout(t *testing.T) {
	store := &memStore{}
	store.Set(tokenstore.Credentials{AccessToken: validToken(t, "user-1", "user"), RefreshToken: "refresh"})
	api := &stubProfileAPI{err: errors.New("boom")}
	m := NewManager(store, api, events.NewInMemoryDispatcher(), zap.NewNop())

	m.Initialize(context.Background())
	m.Close()

	s := m.Session()
	require.True(t, s.Authenticated())
	_, ok := store.Get()
	require.True(t, ok)
}

func TestManager_StaleProfileFetchDiscardedAfterLogout(t *testing.T) {
	store := &memStore{}
	store.Set(tokenstore.Credentials{AccessToken: validToken(t, "user-1", "user"), RefreshToken: "refresh"})
	api := &stubProfileAPI{me: dto.MeResponse{ID: "user-1", Email: "a@b.co", Name: "Ada", Role: "user"}, release: make(chan struct{})}
	m := NewManager(store, api, events.NewInMemoryDispatcher(), zap.NewNop())

	m.Initialize(context.Background())
	m.Logout()
	close(api.release)
	m.Close()

	// The late success must not resurrect the signed-out session.
	require.False(t, m.Session().Authenticated())
}

func TestManager_LogoutIdempotent(t *testing.T) {
	store := &memStore{}
	m := NewManager(store, &stubProfileAPI{}, events.NewInMemoryDispatcher(), zap.NewNop())

	m.Logout()
	m.Logout()
	require.False(t, m.Session().Authenticated())
}

func TestManager_SessionTerminatedEventClearsSession(t *testing.T) {
	store := &memStore{}
	store.Set(tokenstore.Credentials{AccessToken: validToken(t, "user-1", "user"), RefreshToken: "refresh"})
	dispatcher := events.NewInMemoryDispatcher()
	m := NewManager(store, &stubProfileAPI{}, dispatcher, zap.NewNop())

	m.Initialize(context.Background())
	m.Close()
	require.True(t, m.Session().Authenticated())

	dispatcher.Publish(context.Background(), events.Event{Type: events.EventSessionTerminated})
	require.False(t, m.Session().Authenticated())
}

func TestManager_LoginEstablishesSession(t *testing.T) {
	store := &memStore{}
	api := &stubProfileAPI{me: dto.MeResponse{ID: "user-2", Email: "b@c.co", Name: "Brin", Role: "user"}}
	m := NewManager(store, api, events.NewInMemoryDispatcher(), zap.NewNop())
	m.Initialize(context.Background())

	err := m.Login(context.Background(), validToken(t, "user-2", "user"), "refresh-2")
	require.NoError(t, err)

	creds, ok := store.Get()
	require.True(t, ok)
	require.Equal(t, "refresh-2", creds.RefreshToken)

	m.Close()
	require.Equal(t, "Brin", m.Session().Profile.DisplayName)
}

func TestManager_LoginRejectsUndecodableToken(t *testing.T) {
	store := &memStore{}
	m := NewManager(store, &stubProfileAPI{}, events.NewInMemoryDispatcher(), zap.NewNop())
	m.Initialize(context.Background())

	err := m.Login(context.Background(), "garbage", "refresh")
	require.Error(t, err)
	require.False(t, m.Session().Authenticated())
	_, ok := store.Get()
	require.False(t, ok)
}
