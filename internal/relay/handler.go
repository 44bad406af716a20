package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/lizzy-schoen/claude-approve/internal/logging"
)

// Short confirmation replies are meant for the approval hook reading the
// same DM channel, never for the agent.
var ynPattern = regexp.MustCompile(`(?i)^(1|y|yes|n|no|allow|ok|deny|reject)$`)

// typingInterval refreshes the typing indicator, which Discord expires
// after about ten seconds.
const typingInterval = 8 * time.Second

// maxErrorLength keeps error replies safely under the message limit.
const maxErrorLength = 1900

// Handler processes incoming Discord events and relays prompts to the agent.
type Handler struct {
	config        *Config
	gatewayClient *GatewayClient
	apiClient     *Client
	runner        Runner
	busy          bool
	mu            sync.Mutex
	stopCh        chan struct{}
	wg            sync.WaitGroup
	log           *slog.Logger
}

// NewHandler creates a new relay event handler.
func NewHandler(config *Config) *Handler {
	return &Handler{
		config:        config,
		gatewayClient: NewGatewayClient(config.BotToken, DefaultIntents),
		apiClient:     NewClient(config.BotToken),
		runner:        NewAgentRunner(config.AgentCommand, config.ProjectDir),
		stopCh:        make(chan struct{}),
		log:           logging.WithComponent("relay.handler"),
	}
}

// StartListening connects to Discord and processes events until ctx ends.
func (h *Handler) StartListening(ctx context.Context) error {
	if err := h.gatewayClient.Connect(ctx); err != nil {
		return fmt.Errorf("connect gateway: %w", err)
	}

	events, err := h.gatewayClient.Listen(ctx)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	h.log.Info("Relay listening for direct messages")

	for {
		select {
		case <-ctx.Done():
			h.log.Info("Relay stopping (context cancelled)")
			return ctx.Err()
		case <-h.stopCh:
			h.log.Info("Relay stopping (stop signal)")
			return nil
		case evt, ok := <-events:
			if !ok {
				h.log.Info("Gateway event channel closed")
				return nil
			}
			h.processEvent(ctx, &evt)
		}
	}
}

// Stop gracefully stops the handler.
func (h *Handler) Stop() {
	close(h.stopCh)
	_ = h.gatewayClient.Close()
	h.wg.Wait()
}

// processEvent handles a single Gateway event.
func (h *Handler) processEvent(ctx context.Context, event *GatewayEvent) {
	if event.T == nil || *event.T != "MESSAGE_CREATE" {
		return
	}
	h.handleMessageCreate(ctx, event)
}

// handleMessageCreate filters incoming messages and dispatches prompts.
func (h *Handler) handleMessageCreate(ctx context.Context, event *GatewayEvent) {
	var msg MessageCreate
	data, _ := json.Marshal(event.D)
	if err := json.Unmarshal(data, &msg); err != nil {
		h.log.Warn("Failed to parse MESSAGE_CREATE", slog.Any("error", err))
		return
	}

	if msg.Author.Bot {
		return
	}

	// Direct messages only.
	if msg.GuildID != "" {
		return
	}

	if h.config.UserID != "" && msg.Author.ID != h.config.UserID {
		h.log.Debug("Ignoring message from unknown user",
			slog.String("author_id", msg.Author.ID))
		return
	}

	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return
	}

	// Y/N replies belong to the approval hook.
	if ynPattern.MatchString(text) {
		h.log.Debug("Ignoring confirmation reply", slog.String("text", text))
		return
	}

	if PendingLock(h.config.LockPath) {
		_ = h.apiClient.SendMessage(ctx, msg.ChannelID,
			"A permission request is pending. Reply Y or N to that first.")
		return
	}

	h.mu.Lock()
	if h.busy {
		h.mu.Unlock()
		_ = h.apiClient.SendMessage(ctx, msg.ChannelID,
			"Still working on the previous message, hang on.")
		return
	}
	h.busy = true
	h.mu.Unlock()

	_ = h.apiClient.CreateReaction(ctx, msg.ChannelID, msg.ID, "🧠")

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.execute(ctx, &msg, text)
	}()
}

// execute runs the agent and relays its output back to the channel.
func (h *Handler) execute(ctx context.Context, msg *MessageCreate, prompt string) {
	defer func() {
		h.mu.Lock()
		h.busy = false
		h.mu.Unlock()
	}()

	typingDone := make(chan struct{})
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.keepTyping(ctx, msg.ChannelID, typingDone)
	}()

	h.log.Info("Running agent",
		slog.String("channel_id", msg.ChannelID),
		slog.Int("prompt_len", len(prompt)))

	output, err := h.runner.Run(ctx, prompt)
	close(typingDone)

	if err != nil {
		h.log.Warn("Agent run failed", slog.Any("error", err))
		_ = h.apiClient.CreateReaction(ctx, msg.ChannelID, msg.ID, "❌")

		errText := "⚠️ " + err.Error()
		if len(errText) > maxErrorLength {
			errText = errText[:maxErrorLength]
		}
		_ = h.apiClient.SendMessage(ctx, msg.ChannelID, errText)
		return
	}

	_ = h.apiClient.CreateReaction(ctx, msg.ChannelID, msg.ID, "✅")

	for _, chunk := range ChunkText(output, DefaultChunkLimit) {
		if err := h.apiClient.SendMessage(ctx, msg.ChannelID, chunk); err != nil {
			h.log.Warn("Failed to send chunk", slog.Any("error", err))
			return
		}
	}
}

// keepTyping refreshes the typing indicator until done closes.
func (h *Handler) keepTyping(ctx context.Context, channelID string, done <-chan struct{}) {
	_ = h.apiClient.TriggerTyping(ctx, channelID)

	ticker := time.NewTicker(typingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case <-ticker.C:
			_ = h.apiClient.TriggerTyping(ctx, channelID)
		}
	}
}
