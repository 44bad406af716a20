// Package skill exposes the approve/deny decision gateway to the voice
// channel. Incoming requests are routed through an ordered list of
// (predicate, handler) pairs evaluated in fixed order; the final catch-all
// always matches, so every request type gets a response.
package skill

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lizzy-schoen/claude-approve/internal/logging"
	"github.com/lizzy-schoen/claude-approve/internal/store"
)

// Retractor removes an outstanding device notification after a decision.
type Retractor interface {
	Retract(ctx context.Context)
}

// handlerFunc produces a skill response. A returned error is converted into a
// generic spoken apology by the router.
type handlerFunc func(ctx context.Context, env *RequestEnvelope) (*ResponseEnvelope, error)

// route pairs a predicate with its handler. Routes are evaluated in order;
// the first match wins.
type route struct {
	name   string
	match  func(env *RequestEnvelope) bool
	handle handlerFunc
}

// Skill handles voice-skill requests against the shared store.
type Skill struct {
	store    *store.Store
	notifier Retractor
	routes   []route
	log      *slog.Logger
}

// New creates a Skill over the given store and notification retractor.
func New(st *store.Store, notifier Retractor) *Skill {
	s := &Skill{
		store:    st,
		notifier: notifier,
		log:      logging.WithComponent("skill"),
	}

	isIntent := func(name string) func(*RequestEnvelope) bool {
		return func(env *RequestEnvelope) bool { return intentName(env) == name }
	}
	isType := func(t string) func(*RequestEnvelope) bool {
		return func(env *RequestEnvelope) bool { return env.Request.Type == t }
	}

	s.routes = []route{
		{"launch", isType(TypeLaunch), s.handleLaunch},
		{"check-pending", isIntent(IntentCheckPending), s.handleCheckPending},
		{"approve", isIntent(IntentApprove), s.handleApprove},
		{"deny", isIntent(IntentDeny), s.handleDeny},
		{"enable-voice-mode", isIntent(IntentEnableVoiceMode), s.setModeHandler(store.ModeVoice)},
		{"enable-text-mode", isIntent(IntentEnableTextMode), s.setModeHandler(store.ModeRelay)},
		{"disable", isIntent(IntentDisable), s.setModeHandler(store.ModeDisabled)},
		{"status", isIntent(IntentStatus), s.handleStatus},
		{"help", isIntent(IntentHelp), s.handleHelp},
		{"cancel-stop", func(env *RequestEnvelope) bool {
			n := intentName(env)
			return n == IntentCancel || n == IntentStop
		}, s.handleStop},
		{"fallback", isIntent(IntentFallback), s.handleFallback},
		{"session-ended", isType(TypeSessionEnded), s.handleSessionEnded},
		{"catch-all", func(*RequestEnvelope) bool { return true }, s.handleCatchAll},
	}

	return s
}

// HandleRequest dispatches one skill request and always returns a response.
func (s *Skill) HandleRequest(ctx context.Context, env *RequestEnvelope) *ResponseEnvelope {
	s.intercept(env)

	for _, rt := range s.routes {
		if !rt.match(env) {
			continue
		}

		s.log.Debug("Dispatching skill request",
			slog.String("route", rt.name),
			slog.String("request_type", env.Request.Type))

		resp, err := rt.handle(ctx, env)
		if err != nil {
			s.log.Error("Skill handler failed",
				slog.String("route", rt.name),
				slog.Any("error", err))
			return speak("Sorry, something went wrong. Please try again.")
		}
		return resp
	}

	// Unreachable: the catch-all route matches everything.
	return empty()
}

// intercept persists the interacting user as the unicast target and the
// session credential for device notifications. Both are refresh-on-every-touch
// caches; failures are logged and never block intent handling.
func (s *Skill) intercept(env *RequestEnvelope) {
	userID := ""
	if env.Session != nil && env.Session.User != nil {
		userID = env.Session.User.UserID
	}
	if userID == "" && env.Context != nil && env.Context.System != nil && env.Context.System.User != nil {
		userID = env.Context.System.User.UserID
	}
	if userID != "" {
		if err := s.store.SaveUnicastTarget(userID); err != nil {
			s.log.Warn("Failed to save unicast target", slog.Any("error", err))
		}
	}

	if env.Context != nil && env.Context.System != nil {
		sys := env.Context.System
		if err := s.store.SaveSessionCredential(sys.APIAccessToken, sys.APIEndpoint); err != nil {
			s.log.Warn("Failed to save session credential", slog.Any("error", err))
		}
	}
}

// ServeHTTP decodes a skill request envelope, dispatches it, and encodes the
// response.
func (s *Skill) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var env RequestEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	resp := s.HandleRequest(r.Context(), &env)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
