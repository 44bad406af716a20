package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/lizzy-schoen/claude-approve/internal/logging"
)

// tokenExpiryMargin is subtracted from the advertised token lifetime so a
// token is never used right at its expiry boundary.
const tokenExpiryMargin = 5 * time.Minute

// TokenCache caches the client-credentials OAuth token used for feed events.
// The cache is process-local and empty on cold start; a token is refreshed
// lazily once its (margin-adjusted) expiry passes. A failed exchange is not
// retried here; the error propagates to the caller.
type TokenCache struct {
	cfg        *Config
	httpClient *http.Client
	log        *slog.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenCache creates an empty token cache for the given OAuth client.
func NewTokenCache(cfg *Config) *TokenCache {
	return &TokenCache{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: logging.WithComponent("notify.token"),
	}
}

// Token returns the cached token while it is still fresh, performing a
// client-credentials exchange otherwise.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiresAt) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"scope":         {c.cfg.Scope},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("token exchange failed: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("token exchange returned no access token")
	}

	c.token = result.AccessToken
	c.expiresAt = time.Now().Add(time.Duration(result.ExpiresIn)*time.Second - tokenExpiryMargin)

	c.log.Debug("Refreshed OAuth token",
		slog.Int("expires_in", result.ExpiresIn))

	return c.token, nil
}
