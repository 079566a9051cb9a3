package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/locker-client/internal/api/dto"
	"github.com/spec-kit/locker-client/internal/config"
	"github.com/spec-kit/locker-client/internal/events"
	"github.com/spec-kit/locker-client/internal/tokenstore"
	apperrors "github.com/spec-kit/locker-client/pkg/util"
)

// Gateway is the sole channel to the remote locker API. It attaches the
// current access token as a bearer credential just before dispatch and runs
// the refresh-and-retry protocol on authorization failure.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	tokens     tokenstore.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger

	// refreshGroup funnels concurrent refresh attempts into a single
	// in-flight exchange; late callers await the shared result instead of
	// issuing their own.
	refreshGroup singleflight.Group
}

// New builds a gateway against cfg.BaseURL.
func New(cfg config.APIConfig, tokens tokenstore.Store, dispatcher events.Dispatcher, logger *zap.Logger) *Gateway {
	return &Gateway{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		tokens:     tokens,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Do issues an authenticated JSON request and decodes a 2xx response body
// into out (ignored when out is nil). Non-401 server errors pass through
// unmodified as *util.ServerError; transport failures as *util.NetworkError.
func (g *Gateway) Do(ctx context.Context, method, path string, body, out interface{}) error {
	return g.do(ctx, method, path, body, out, false)
}

// do carries an explicit retried flag: a request is retried at most once,
// and only after a 401 followed by a successful refresh exchange.
func (g *Gateway) do(ctx context.Context, method, path string, body, out interface{}, retried bool) error {
	req, err := g.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	// Bearer credential attaches at dispatch time, so a retry after refresh
	// picks up the new access token from the store.
	if creds, ok := g.tokens.Get(); ok {
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return apperrors.NewNetworkError(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return apperrors.NewNetworkError(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	serverErr := readServerError(resp)

	if resp.StatusCode == http.StatusUnauthorized {
		if retried {
			// Refreshed token was also rejected. Never retried again; the
			// session is torn down and the failure surfaces as-is.
			g.terminate(ctx, string(apperrors.AuthRefreshFailed))
			return serverErr
		}
		if _, err := g.refreshAccessToken(ctx); err != nil {
			g.logger.Warn("token refresh failed", zap.Error(err))
			g.terminate(ctx, refreshFailureReason(err))
			return serverErr
		}
		return g.do(ctx, method, path, body, out, true)
	}

	return serverErr
}

func (g *Gateway) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.NewValidationError("", fmt.Sprintf("encode request: %v", err))
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, payload)
	if err != nil {
		return nil, apperrors.NewNetworkError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// refreshAccessToken exchanges the stored refresh token for a new access
// token and persists it. Concurrent callers share one in-flight exchange.
func (g *Gateway) refreshAccessToken(ctx context.Context) (string, error) {
	token, err, _ := g.refreshGroup.Do("refresh", func() (interface{}, error) {
		creds, ok := g.tokens.Get()
		if !ok || creds.RefreshToken == "" {
			return nil, apperrors.NewAuthError(apperrors.AuthRefreshUnavailable, nil)
		}

		// The refresh endpoint takes the token as a query parameter and no body.
		endpoint := g.baseURL + "/refresh?" + url.Values{"refresh_token": {creds.RefreshToken}}.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
		if err != nil {
			return nil, apperrors.NewAuthError(apperrors.AuthRefreshFailed, err)
		}

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return nil, apperrors.NewAuthError(apperrors.AuthRefreshFailed, err)
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, apperrors.NewAuthError(apperrors.AuthRefreshFailed, readServerError(resp))
		}

		var out dto.RefreshResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.AccessToken == "" {
			return nil, apperrors.NewAuthError(apperrors.AuthRefreshFailed, fmt.Errorf("malformed refresh response"))
		}

		g.tokens.SetAccessToken(out.AccessToken)
		g.logger.Debug("access token refreshed")
		return out.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// terminate clears the credential store and announces the end of the session.
// Subscribers (session manager, presentation layer) react by emptying session
// state and navigating to the login entry point.
func (g *Gateway) terminate(ctx context.Context, reason string) {
	g.tokens.Clear()
	g.dispatcher.Publish(ctx, events.Event{
		Type:      events.EventSessionTerminated,
		Timestamp: time.Now().UTC(),
		Payload:   events.SessionTerminatedPayload{Reason: reason},
	})
}

func refreshFailureReason(err error) string {
	if apperrors.IsAuthError(err, apperrors.AuthRefreshUnavailable) {
		return string(apperrors.AuthRefreshUnavailable)
	}
	return string(apperrors.AuthRefreshFailed)
}

func readServerError(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.NewServerError(resp.StatusCode, "")
	}

	var body dto.ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Detail != "" {
		return apperrors.NewServerError(resp.StatusCode, body.Detail)
	}
	return apperrors.NewServerError(resp.StatusCode, strings.TrimSpace(string(data)))
}
