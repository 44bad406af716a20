package skill

import (
	"context"
	"errors"
	"fmt"

	"github.com/lizzy-schoen/claude-approve/internal/store"
)

func (s *Skill) handleLaunch(ctx context.Context, env *RequestEnvelope) (*ResponseEnvelope, error) {
	pending, err := s.store.Pending()
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return ask(
			fmt.Sprintf("Approval needed for %s. Say approve or deny.", pending.ToolName),
			"Say approve or deny."), nil
	}
	return speak("Claude Approve. No pending requests right now."), nil
}

func (s *Skill) handleCheckPending(ctx context.Context, env *RequestEnvelope) (*ResponseEnvelope, error) {
	pending, err := s.store.Pending()
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return speak("No pending requests right now."), nil
	}
	return ask(
		fmt.Sprintf("Approval needed for %s. Say approve or deny.", pending.ToolName),
		"Say approve or deny."), nil
}

func (s *Skill) handleApprove(ctx context.Context, env *RequestEnvelope) (*ResponseEnvelope, error) {
	return s.decide(ctx, store.StatusApproved)
}

func (s *Skill) handleDeny(ctx context.Context, env *RequestEnvelope) (*ResponseEnvelope, error) {
	return s.decide(ctx, store.StatusDenied)
}

// decide runs the decision gateway: read the pending request, apply the
// compare-and-set transition, then retract any outstanding notification.
// Exactly one concurrent decision wins; the rest hear "already handled".
func (s *Skill) decide(ctx context.Context, decision string) (*ResponseEnvelope, error) {
	pending, err := s.store.Pending()
	if err != nil {
		return nil, err
	}
	if pending == nil {
		if decision == store.StatusApproved {
			return speak("Nothing pending to approve."), nil
		}
		return speak("Nothing pending to deny."), nil
	}

	if err := s.store.Decide(decision); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return speak("That request was already handled."), nil
		}
		return nil, err
	}

	s.notifier.Retract(ctx)

	if decision == store.StatusApproved {
		return speak(fmt.Sprintf("Approved %s.", pending.ToolName)), nil
	}
	return speak("Denied."), nil
}

// setModeHandler returns a handler that persists the given mode.
func (s *Skill) setModeHandler(mode store.Mode) handlerFunc {
	return func(ctx context.Context, env *RequestEnvelope) (*ResponseEnvelope, error) {
		if err := s.store.SetMode(mode); err != nil {
			return nil, err
		}
		switch mode {
		case store.ModeVoice:
			return speak("Voice mode enabled. You'll get notifications here."), nil
		case store.ModeRelay:
			return speak("Text mode enabled. Approvals will go through the chat relay."), nil
		default:
			return speak("Approvals disabled. Requests will fall through to the terminal."), nil
		}
	}
}

func (s *Skill) handleStatus(ctx context.Context, env *RequestEnvelope) (*ResponseEnvelope, error) {
	mode, err := s.store.GetMode()
	if err != nil {
		return nil, err
	}

	name := string(mode)
	switch mode {
	case store.ModeRelay:
		name = "text mode"
	case store.ModeVoice:
		name = "voice mode"
	case store.ModeDisabled:
		name = "disabled"
	}

	return speak(fmt.Sprintf("Claude Approve is currently in %s.", name)), nil
}

func (s *Skill) handleHelp(ctx context.Context, env *RequestEnvelope) (*ResponseEnvelope, error) {
	return ask(
		"You can say check pending to hear what Claude needs, then say approve or deny. "+
			"You can also say enable voice mode, enable text mode, or disable.",
		"Say check pending, approve, deny, or help."), nil
}

func (s *Skill) handleStop(ctx context.Context, env *RequestEnvelope) (*ResponseEnvelope, error) {
	return speak("Goodbye."), nil
}

func (s *Skill) handleFallback(ctx context.Context, env *RequestEnvelope) (*ResponseEnvelope, error) {
	return ask(
		"I didn't understand that. Say check pending, approve, deny, or help.",
		"Say check pending, approve, deny, or help."), nil
}

func (s *Skill) handleSessionEnded(ctx context.Context, env *RequestEnvelope) (*ResponseEnvelope, error) {
	return empty(), nil
}

// handleCatchAll absorbs request types without a dedicated handler, such as
// proactive subscription change notifications.
func (s *Skill) handleCatchAll(ctx context.Context, env *RequestEnvelope) (*ResponseEnvelope, error) {
	s.log.Debug("Catch-all handling request type: " + env.Request.Type)
	return empty(), nil
}
