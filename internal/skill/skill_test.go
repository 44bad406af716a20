package skill

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lizzy-schoen/claude-approve/internal/store"
)

type fakeRetractor struct {
	calls int
}

func (f *fakeRetractor) Retract(ctx context.Context) { f.calls++ }

func newTestSkill(t *testing.T) (*Skill, *store.Store, *fakeRetractor) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	retractor := &fakeRetractor{}
	return New(st, retractor), st, retractor
}

func intentEnvelope(name string) *RequestEnvelope {
	return &RequestEnvelope{
		Version: "1.0",
		Request: RequestPayload{Type: TypeIntent, Intent: &Intent{Name: name}},
	}
}

func spokenText(t *testing.T, resp *ResponseEnvelope) string {
	t.Helper()
	if resp == nil || resp.Response.OutputSpeech == nil {
		t.Fatal("response has no speech")
	}
	return resp.Response.OutputSpeech.Text
}

func TestApproveNothingPending(t *testing.T) {
	s, _, retractor := newTestSkill(t)

	resp := s.HandleRequest(context.Background(), intentEnvelope(IntentApprove))

	if got := spokenText(t, resp); got != "Nothing pending to approve." {
		t.Errorf("unexpected speech %q", got)
	}
	if retractor.calls != 0 {
		t.Errorf("retractor called with nothing pending")
	}
}

func TestApprovePendingRequest(t *testing.T) {
	s, st, retractor := newTestSkill(t)

	if _, err := st.CreateRequest("Bash", "rm -rf ./build"); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	resp := s.HandleRequest(context.Background(), intentEnvelope(IntentApprove))

	if got := spokenText(t, resp); got != "Approved Bash." {
		t.Errorf("unexpected speech %q", got)
	}
	if retractor.calls != 1 {
		t.Errorf("expected one retraction, got %d", retractor.calls)
	}

	r, err := st.ReadCurrent("")
	if err != nil {
		t.Fatalf("ReadCurrent: %v", err)
	}
	if r.Status != store.StatusApproved {
		t.Errorf("expected approved, got %q", r.Status)
	}
}

func TestDenyPendingRequest(t *testing.T) {
	s, st, _ := newTestSkill(t)

	if _, err := st.CreateRequest("Edit", "main.go"); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	resp := s.HandleRequest(context.Background(), intentEnvelope(IntentDeny))

	if got := spokenText(t, resp); got != "Denied." {
		t.Errorf("unexpected speech %q", got)
	}

	r, _ := st.ReadCurrent("")
	if r.Status != store.StatusDenied {
		t.Errorf("expected denied, got %q", r.Status)
	}
}

func TestDecideAlreadyHandled(t *testing.T) {
	s, st, retractor := newTestSkill(t)

	if _, err := st.CreateRequest("Bash", "detail"); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	// Another decision path already handled the request.
	if err := st.Decide(store.StatusDenied); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	resp := s.HandleRequest(context.Background(), intentEnvelope(IntentApprove))

	if got := spokenText(t, resp); got != "Nothing pending to approve." {
		t.Errorf("unexpected speech %q", got)
	}
	if retractor.calls != 0 {
		t.Errorf("retractor called after losing the race")
	}

	r, _ := st.ReadCurrent("")
	if r.Status != store.StatusDenied {
		t.Errorf("late approval changed the stored decision to %q", r.Status)
	}
}

func TestLaunchWithPending(t *testing.T) {
	s, st, _ := newTestSkill(t)

	if _, err := st.CreateRequest("Bash", "detail"); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	env := &RequestEnvelope{Version: "1.0", Request: RequestPayload{Type: TypeLaunch}}
	resp := s.HandleRequest(context.Background(), env)

	if got := spokenText(t, resp); !strings.Contains(got, "Approval needed for Bash") {
		t.Errorf("unexpected speech %q", got)
	}
	if resp.Response.ShouldEndSession {
		t.Error("session should stay open awaiting a decision")
	}
	if resp.Response.Reprompt == nil {
		t.Error("expected a reprompt while awaiting a decision")
	}
}

func TestModeIntents(t *testing.T) {
	tests := []struct {
		intent string
		mode   store.Mode
	}{
		{IntentEnableVoiceMode, store.ModeVoice},
		{IntentEnableTextMode, store.ModeRelay},
		{IntentDisable, store.ModeDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.intent, func(t *testing.T) {
			s, st, _ := newTestSkill(t)

			resp := s.HandleRequest(context.Background(), intentEnvelope(tt.intent))
			if resp.Response.OutputSpeech == nil {
				t.Fatal("expected speech")
			}

			mode, err := st.GetMode()
			if err != nil {
				t.Fatalf("GetMode: %v", err)
			}
			if mode != tt.mode {
				t.Errorf("expected mode %q, got %q", tt.mode, mode)
			}
		})
	}
}

func TestStatusIntent(t *testing.T) {
	s, st, _ := newTestSkill(t)

	if err := st.SetMode(store.ModeVoice); err != nil {
		t.Fatalf("SetMode: %v", err)
	}

	resp := s.HandleRequest(context.Background(), intentEnvelope(IntentStatus))
	if got := spokenText(t, resp); !strings.Contains(got, "voice mode") {
		t.Errorf("unexpected speech %q", got)
	}
}

func TestInterceptorPersistsIdentityAndCredential(t *testing.T) {
	s, st, _ := newTestSkill(t)

	env := intentEnvelope(IntentStatus)
	env.Session = &Session{User: &User{UserID: "user-7"}}
	env.Context = &RequestContext{System: &System{
		User:           &User{UserID: "user-7"},
		APIAccessToken: "session-tok",
		APIEndpoint:    "https://api.example.test",
	}}

	s.HandleRequest(context.Background(), env)

	userID, err := st.UnicastTarget()
	if err != nil {
		t.Fatalf("UnicastTarget: %v", err)
	}
	if userID != "user-7" {
		t.Errorf("expected unicast target saved, got %q", userID)
	}

	cred, err := st.SessionCredential()
	if err != nil {
		t.Fatalf("SessionCredential: %v", err)
	}
	if cred == nil || cred.AccessToken != "session-tok" {
		t.Fatalf("expected credential saved, got %+v", cred)
	}
}

func TestCatchAllHandlesUnknownRequestTypes(t *testing.T) {
	s, _, _ := newTestSkill(t)

	env := &RequestEnvelope{
		Version: "1.0",
		Request: RequestPayload{Type: "AlexaSkillEvent.ProactiveSubscriptionChanged"},
	}
	resp := s.HandleRequest(context.Background(), env)

	if resp == nil {
		t.Fatal("catch-all returned nil response")
	}
	if resp.Response.OutputSpeech != nil {
		t.Errorf("catch-all should not speak, got %q", resp.Response.OutputSpeech.Text)
	}
}

func TestSessionEnded(t *testing.T) {
	s, _, _ := newTestSkill(t)

	env := &RequestEnvelope{Version: "1.0", Request: RequestPayload{Type: TypeSessionEnded}}
	resp := s.HandleRequest(context.Background(), env)
	if resp == nil || resp.Response.OutputSpeech != nil {
		t.Errorf("session ended should return an empty response")
	}
}

func TestServeHTTP(t *testing.T) {
	s, st, _ := newTestSkill(t)

	if _, err := st.CreateRequest("Bash", "detail"); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	body, _ := json.Marshal(intentEnvelope(IntentCheckPending))
	req := httptest.NewRequest(http.MethodPost, "/skill", bytes.NewReader(body))
	w := httptest.NewRecorder()

	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp ResponseEnvelope
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Response.OutputSpeech == nil || !strings.Contains(resp.Response.OutputSpeech.Text, "Bash") {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestServeHTTPRejectsGet(t *testing.T) {
	s, _, _ := newTestSkill(t)

	req := httptest.NewRequest(http.MethodGet, "/skill", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}
