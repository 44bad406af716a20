package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lizzy-schoen/claude-approve/internal/store"
)

// dispatchEnv wires a dispatcher against one fake server that plays the token
// endpoint, the device-notification endpoint, and the feed-event endpoint.
type dispatchEnv struct {
	store    *store.Store
	d        *Dispatcher
	server   *httptest.Server
	tokens   int
	devices  int
	events   int
	deviceRC int
	lastFeed feedEvent
}

func newDispatchEnv(t *testing.T) *dispatchEnv {
	t.Helper()

	env := &dispatchEnv{deviceRC: http.StatusCreated}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		env.tokens++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok-1",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/v2/notifications", func(w http.ResponseWriter, r *http.Request) {
		env.devices++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(env.deviceRC)
		if env.deviceRC < 300 {
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "notif-1"})
		}
	})
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		env.events++
		if err := json.NewDecoder(r.Body).Decode(&env.lastFeed); err != nil {
			t.Errorf("decode feed event: %v", err)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("feed event sent with wrong token: %q", got)
		}
		w.WriteHeader(http.StatusAccepted)
	})

	env.server = httptest.NewServer(mux)
	t.Cleanup(env.server.Close)

	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	env.store = st

	cfg := DefaultConfig()
	cfg.TokenURL = env.server.URL + "/token"
	cfg.EventsURL = env.server.URL + "/events"

	env.d = NewDispatcher(st, NewTokenCache(cfg), cfg)
	return env
}

func (env *dispatchEnv) createRequest(t *testing.T) *store.Request {
	t.Helper()
	if _, err := env.store.CreateRequest("Bash", "rm -rf ./build"); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	r, err := env.store.ReadCurrent("")
	if err != nil || r == nil {
		t.Fatalf("ReadCurrent: %v %v", r, err)
	}
	return r
}

func TestDispatchSkippedUnlessVoiceMode(t *testing.T) {
	for _, mode := range []store.Mode{store.ModeRelay, store.ModeDisabled} {
		t.Run(string(mode), func(t *testing.T) {
			env := newDispatchEnv(t)
			if err := env.store.SetMode(mode); err != nil {
				t.Fatalf("SetMode: %v", err)
			}

			env.d.Dispatch(context.Background(), env.createRequest(t))

			if env.tokens+env.devices+env.events != 0 {
				t.Errorf("expected no outbound calls in mode %q, got tokens=%d devices=%d events=%d",
					mode, env.tokens, env.devices, env.events)
			}
		})
	}
}

func TestDispatchFeedEventWhenNoCredential(t *testing.T) {
	env := newDispatchEnv(t)
	if err := env.store.SetMode(store.ModeVoice); err != nil {
		t.Fatalf("SetMode: %v", err)
	}

	req := env.createRequest(t)
	env.d.Dispatch(context.Background(), req)

	if env.devices != 0 {
		t.Errorf("tier 1 attempted without a credential: %d calls", env.devices)
	}
	if env.events != 1 {
		t.Fatalf("expected exactly one feed event, got %d", env.events)
	}
	if env.lastFeed.ReferenceID != req.ID {
		t.Errorf("feed event referenceId = %q, want %q", env.lastFeed.ReferenceID, req.ID)
	}
	if env.lastFeed.RelevantAudience.Type != "Multicast" {
		t.Errorf("expected Multicast audience, got %q", env.lastFeed.RelevantAudience.Type)
	}
}

func TestDispatchTier1FailureFallsBack(t *testing.T) {
	env := newDispatchEnv(t)
	env.deviceRC = http.StatusForbidden
	if err := env.store.SetMode(store.ModeVoice); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if err := env.store.SaveSessionCredential("session-tok", env.server.URL); err != nil {
		t.Fatalf("SaveSessionCredential: %v", err)
	}

	env.d.Dispatch(context.Background(), env.createRequest(t))

	if env.devices != 1 {
		t.Errorf("expected one tier-1 attempt, got %d", env.devices)
	}
	if env.events != 1 {
		t.Errorf("expected tier-2 fallback after tier-1 failure, got %d events", env.events)
	}
}

func TestDispatchTier1SuccessStops(t *testing.T) {
	env := newDispatchEnv(t)
	if err := env.store.SetMode(store.ModeVoice); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if err := env.store.SaveSessionCredential("session-tok", env.server.URL); err != nil {
		t.Fatalf("SaveSessionCredential: %v", err)
	}

	env.d.Dispatch(context.Background(), env.createRequest(t))

	if env.devices != 1 {
		t.Errorf("expected one tier-1 attempt, got %d", env.devices)
	}
	if env.events != 0 {
		t.Errorf("tier 2 attempted after tier-1 success: %d events", env.events)
	}

	n, err := env.store.ActiveNotification()
	if err != nil {
		t.Fatalf("ActiveNotification: %v", err)
	}
	if n == nil || n.NotificationID != "notif-1" {
		t.Fatalf("expected persisted notification id notif-1, got %+v", n)
	}
}

func TestDispatchFeedEventUnicast(t *testing.T) {
	env := newDispatchEnv(t)
	if err := env.store.SetMode(store.ModeVoice); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if err := env.store.SaveUnicastTarget("user-42"); err != nil {
		t.Fatalf("SaveUnicastTarget: %v", err)
	}

	env.d.Dispatch(context.Background(), env.createRequest(t))

	if env.events != 1 {
		t.Fatalf("expected one feed event, got %d", env.events)
	}
	if env.lastFeed.RelevantAudience.Type != "Unicast" {
		t.Errorf("expected Unicast audience, got %q", env.lastFeed.RelevantAudience.Type)
	}
	if env.lastFeed.RelevantAudience.Payload.User != "user-42" {
		t.Errorf("unexpected audience user %q", env.lastFeed.RelevantAudience.Payload.User)
	}
}

func TestRetractDeletesNotification(t *testing.T) {
	var deletes []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			deletes = append(deletes, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	if err := st.SaveActiveNotification(&store.ActiveNotification{
		NotificationID: "notif-9",
		AccessToken:    "session-tok",
		Endpoint:       server.URL,
		ExpiresAt:      time.Now().Add(time.Hour).Unix(),
	}); err != nil {
		t.Fatalf("SaveActiveNotification: %v", err)
	}

	cfg := DefaultConfig()
	d := NewDispatcher(st, NewTokenCache(cfg), cfg)
	d.Retract(context.Background())

	if len(deletes) != 1 || !strings.HasSuffix(deletes[0], "/v2/notifications/notif-9") {
		t.Errorf("unexpected delete calls: %v", deletes)
	}

	if n, _ := st.ActiveNotification(); n != nil {
		t.Errorf("expected notification record removed, got %+v", n)
	}

	// Retracting again with nothing outstanding is a no-op.
	d.Retract(context.Background())
	if len(deletes) != 1 {
		t.Errorf("retract without record still called the endpoint: %v", deletes)
	}
}

func TestRetractRemovesRecordEvenWhenDeleteFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	if err := st.SaveActiveNotification(&store.ActiveNotification{
		NotificationID: "notif-9",
		AccessToken:    "session-tok",
		Endpoint:       server.URL,
		ExpiresAt:      time.Now().Add(time.Hour).Unix(),
	}); err != nil {
		t.Fatalf("SaveActiveNotification: %v", err)
	}

	cfg := DefaultConfig()
	d := NewDispatcher(st, NewTokenCache(cfg), cfg)
	d.Retract(context.Background())

	if n, _ := st.ActiveNotification(); n != nil {
		t.Errorf("record kept after failed external delete: %+v", n)
	}
}
