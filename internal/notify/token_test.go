package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTokenServer(t *testing.T, calls *int, token string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++

		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("expected client_credentials grant, got %q", got)
		}
		if got := r.PostForm.Get("scope"); got != "alexa::proactive_events" {
			t.Errorf("unexpected scope %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": token,
			"expires_in":   3600,
		})
	}))
}

func TestTokenCachedWhileFresh(t *testing.T) {
	var calls int
	server := newTokenServer(t, &calls, "tok-1")
	defer server.Close()

	cfg := DefaultConfig()
	cfg.ClientID = "client"
	cfg.ClientSecret = "secret"
	cfg.TokenURL = server.URL

	cache := NewTokenCache(cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		tok, err := cache.Token(ctx)
		if err != nil {
			t.Fatalf("Token: %v", err)
		}
		if tok != "tok-1" {
			t.Fatalf("expected tok-1, got %q", tok)
		}
	}

	if calls != 1 {
		t.Errorf("expected exactly one exchange, got %d", calls)
	}
}

func TestTokenRefreshAfterExpiry(t *testing.T) {
	var calls int
	server := newTokenServer(t, &calls, "tok-1")
	defer server.Close()

	cfg := DefaultConfig()
	cfg.TokenURL = server.URL

	cache := NewTokenCache(cfg)
	ctx := context.Background()

	if _, err := cache.Token(ctx); err != nil {
		t.Fatalf("Token: %v", err)
	}

	// Force expiry; the next use performs exactly one refresh.
	cache.mu.Lock()
	cache.expiresAt = time.Now().Add(-time.Second)
	cache.mu.Unlock()

	if _, err := cache.Token(ctx); err != nil {
		t.Fatalf("Token after expiry: %v", err)
	}

	if calls != 2 {
		t.Errorf("expected 2 exchanges, got %d", calls)
	}
}

func TestTokenExpiryMargin(t *testing.T) {
	var calls int
	server := newTokenServer(t, &calls, "tok-1")
	defer server.Close()

	cfg := DefaultConfig()
	cfg.TokenURL = server.URL

	cache := NewTokenCache(cfg)
	if _, err := cache.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}

	cache.mu.Lock()
	remaining := time.Until(cache.expiresAt)
	cache.mu.Unlock()

	// Advertised lifetime is 3600s; the cache must expire 5 minutes early.
	if remaining > 55*time.Minute || remaining < 54*time.Minute {
		t.Errorf("expected roughly 55m of cached lifetime, got %v", remaining)
	}
}

func TestTokenExchangeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_client", http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.TokenURL = server.URL

	cache := NewTokenCache(cfg)
	if _, err := cache.Token(context.Background()); err == nil {
		t.Fatal("expected error for failed exchange")
	}
}
