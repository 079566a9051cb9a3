package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/locker-client/internal/config"
	"github.com/spec-kit/locker-client/internal/events"
	"github.com/spec-kit/locker-client/internal/tokenstore"
	apperrors "github.com/spec-kit/locker-client/pkg/util"
)

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

type harness struct {
	gw         *Gateway
	store      *memStore
	terminated *atomic.Int64
}

func newHarness(t *testing.T, baseURL string) *harness {
	t.Helper()
	store := &memStore{}
	dispatcher := events.NewInMemoryDispatcher()
	terminated := &atomic.Int64{}
	dispatcher.Subscribe(events.EventSessionTerminated, func(context.Context, events.Event) {
		terminated.Add(1)
	})
	gw := New(config.APIConfig{BaseURL: baseURL, TimeoutSeconds: 5}, store, dispatcher, zap.NewNop())
	return &harness{gw: gw, store: store, terminated: terminated}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

func TestGateway_AttachesBearerAtDispatch(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "1"})
	}))
	defer srv.Close()

	h := newHarness(t, srv.URL)
	h.store.Set(tokenstore.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"})

	var out map[string]string
	require.NoError(t, h.gw.Do(context.Background(), http.MethodGet, "/me", nil, &out))
	require.Equal(t, "Bearer access-1", gotAuth)
	require.Equal(t, "1", out["id"])
}

func TestGateway_TransparentRetryAfterRefresh(t *testing.T) {
	var attempts, refreshCalls atomic.Int64
	var retryAuth atomic.Value

	mux := http.NewServeMux()
	mux.HandleFunc("/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		require.Equal(t, "refresh-1", r.URL.Query().Get("refresh_token"))
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "access-new"})
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			writeDetail(w, http.StatusUnauthorized, "token expired")
			return
		}
		retryAuth.Store(r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "1"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newHarness(t, srv.URL)
	h.store.Set(tokenstore.Credentials{AccessToken: "access-old", RefreshToken: "refresh-1"})

	// The caller never observes the intermediate 401.
	var out map[string]string
	require.NoError(t, h.gw.Do(context.Background(), http.MethodGet, "/me", nil, &out))
	require.Equal(t, int64(2), attempts.Load())
	require.Equal(t, int64(1), refreshCalls.Load())
	require.Equal(t, "Bearer access-new", retryAuth.Load())

	creds, ok := h.store.Get()
	require.True(t, ok)
	require.Equal(t, "access-new", creds.AccessToken)
	require.Equal(t, int64(0), h.terminated.Load())
}

func TestGateway_SecondUnauthorizedPropagatesAndTearsDownOnce(t *testing.T) {
	var attempts atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/refresh", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "access-new"})
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newHarness(t, srv.URL)
	h.store.Set(tokenstore.Credentials{AccessToken: "access-old", RefreshToken: "refresh-1"})

	err := h.gw.Do(context.Background(), http.MethodGet, "/me", nil, nil)
	require.True(t, apperrors.IsUnauthorized(err))
	require.Equal(t, "Could not validate credentials", apperrors.ServerDetail(err))
	// Exactly one retry, then the failure surfaces as-is.
	require.Equal(t, int64(2), attempts.Load())
	require.Equal(t, int64(1), h.terminated.Load())
	_, ok := h.store.Get()
	require.False(t, ok)
}

func TestGateway_RefreshUnavailableFailsImmediately(t *testing.T) {
	var refreshCalls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusUnauthorized, "token expired")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newHarness(t, srv.URL)
	h.store.Set(tokenstore.Credentials{AccessToken: "access-old"})

	err := h.gw.Do(context.Background(), http.MethodGet, "/me", nil, nil)
	require.True(t, apperrors.IsUnauthorized(err))
	require.Equal(t, int64(0), refreshCalls.Load())
	require.Equal(t, int64(1), h.terminated.Load())
	_, ok := h.store.Get()
	require.False(t, ok)
}

func TestGateway_RefreshFailureClearsSessionAndPropagatesOriginal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusUnauthorized, "Invalid token")
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusUnauthorized, "token expired")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newHarness(t, srv.URL)
	h.store.Set(tokenstore.Credentials{AccessToken: "access-old", RefreshToken: "refresh-1"})

	err := h.gw.Do(context.Background(), http.MethodGet, "/me", nil, nil)
	require.True(t, apperrors.IsUnauthorized(err))
	require.Equal(t, "token expired", apperrors.ServerDetail(err))
	require.Equal(t, int64(1), h.terminated.Load())
	_, ok := h.store.Get()
	require.False(t, ok)
}

func TestGateway_NonAuthErrorsPassThrough(t *testing.T) {
	var refreshCalls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
	})
	mux.HandleFunc("/lockers/abc/request-otp", func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusBadRequest, "abc Locker Not Found")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newHarness(t, srv.URL)
	h.store.Set(tokenstore.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"})

	err := h.gw.Do(context.Background(), http.MethodPost, "/lockers/abc/request-otp", map[string]string{"contact": "a@b.co"}, nil)
	var se *apperrors.ServerError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadRequest, se.StatusCode)
	require.Equal(t, "abc Locker Not Found", se.Detail)
	require.Equal(t, int64(0), refreshCalls.Load())
	require.Equal(t, int64(0), h.terminated.Load())
}

func TestGateway_TransportFailureIsNetworkError(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1")

	err := h.gw.Do(context.Background(), http.MethodGet, "/me", nil, nil)
	var ne *apperrors.NetworkError
	require.ErrorAs(t, err, &ne)
}

func TestGateway_ConcurrentRefreshesShareOneExchange(t *testing.T) {
	var refreshCalls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "access-new"})
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-new" {
			writeDetail(w, http.StatusUnauthorized, "token expired")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "1"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newHarness(t, srv.URL)
	h.store.Set(tokenstore.Credentials{AccessToken: "access-old", RefreshToken: "refresh-1"})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = h.gw.Do(context.Background(), http.MethodGet, "/me", nil, nil)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, int64(1), refreshCalls.Load())
}
