package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lizzy-schoen/claude-approve/internal/logging"
	"github.com/lizzy-schoen/claude-approve/internal/store"
)

// Dispatcher routes an approval prompt to the voice channel after a request
// is created. Dispatch is gated on the persisted mode and runs both tiers
// synchronously so delivery failures are observable in logs before the
// creating operation returns.
type Dispatcher struct {
	store      *store.Store
	tokens     *TokenCache
	cfg        *Config
	httpClient *http.Client
	log        *slog.Logger
}

// NewDispatcher creates a Dispatcher over the given store and token cache.
func NewDispatcher(st *store.Store, tokens *TokenCache, cfg *Config) *Dispatcher {
	return &Dispatcher{
		store:  st,
		tokens: tokens,
		cfg:    cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: logging.WithComponent("notify.dispatcher"),
	}
}

// Dispatch attempts delivery of the prompt for req. Only the voice channel
// receives proactive delivery; every other mode skips without network calls.
// Failures are logged and swallowed: creating a request never fails because
// its notification could not be delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, req *store.Request) {
	mode, err := d.store.GetMode()
	if err != nil {
		d.log.Error("Failed to read mode, skipping notification", slog.Any("error", err))
		return
	}
	if mode != store.ModeVoice {
		d.log.Debug("Skipping proactive notification",
			slog.String("mode", string(mode)),
			slog.String("request_id", req.ID))
		return
	}

	if d.sendDeviceNotification(ctx, req) {
		return
	}

	d.log.Info("Device notification unavailable, falling back to feed event",
		slog.String("request_id", req.ID))

	if err := d.sendFeedEvent(ctx, req); err != nil {
		d.log.Warn("Feed event delivery failed",
			slog.String("request_id", req.ID),
			slog.Any("error", err))
	}
}

// sendDeviceNotification posts the tier-1 device notification. It reports
// false, never an error: any failure here means "tier 1 unavailable" and the
// dispatcher falls through to the feed event.
func (d *Dispatcher) sendDeviceNotification(ctx context.Context, req *store.Request) bool {
	cred, err := d.store.SessionCredential()
	if err != nil {
		d.log.Warn("Failed to load session credential", slog.Any("error", err))
		return false
	}
	if cred == nil {
		d.log.Info("No session credential on record, skipping device notification")
		return false
	}

	detail := req.ToolName
	if req.ToolDetail != "" {
		detail = req.ToolName + ": " + req.ToolDetail
	}
	if len(detail) > 200 {
		detail = detail[:200]
	}

	now := time.Now()
	payload := deviceNotification{
		DisplayInfo: displayInfo{
			Content: []displayContent{{
				Locale:    "en-US",
				Toast:     toast{PrimaryText: d.cfg.ProviderName},
				Title:     d.cfg.ProviderName,
				BodyItems: []bodyItem{{PrimaryText: detail}},
			}},
		},
		ReferenceID: fmt.Sprintf("claude-approve-%d", now.UnixMilli()),
		ExpiryTime:  now.Add(notificationTTL).Format(time.RFC3339),
		SpokenInfo: spokenInfo{
			Content: []spokenContent{{
				Locale: "en-US",
				Text:   fmt.Sprintf("Approval needed for %s.", req.ToolName),
			}},
		},
	}

	status, body, err := d.post(ctx, cred.Endpoint+"/v2/notifications", cred.AccessToken, payload)
	if err != nil {
		d.log.Warn("Device notification request failed", slog.Any("error", err))
		return false
	}
	if status < 200 || status >= 300 {
		d.log.Warn("Device notification rejected",
			slog.Int("status", status),
			slog.String("body", string(body)))
		return false
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil || created.ID == "" {
		d.log.Warn("Device notification response had no id; retraction will be skipped")
		return true
	}

	if err := d.store.SaveActiveNotification(&store.ActiveNotification{
		NotificationID: created.ID,
		AccessToken:    cred.AccessToken,
		Endpoint:       cred.Endpoint,
		ExpiresAt:      now.Add(notificationTTL).Unix(),
	}); err != nil {
		d.log.Warn("Failed to save active notification", slog.Any("error", err))
	}

	d.log.Info("Device notification sent",
		slog.String("request_id", req.ID),
		slog.String("notification_id", created.ID))

	return true
}

// sendFeedEvent posts the tier-2 feed event, addressed to the stored unicast
// target when one exists and broadcast otherwise.
func (d *Dispatcher) sendFeedEvent(ctx context.Context, req *store.Request) error {
	token, err := d.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("obtain token: %w", err)
	}

	aud := audience{Type: "Multicast"}
	userID, err := d.store.UnicastTarget()
	if err != nil {
		d.log.Warn("Failed to load unicast target, broadcasting", slog.Any("error", err))
	} else if userID != "" {
		aud = audience{Type: "Unicast", Payload: audiencePayload{User: userID}}
	}

	now := time.Now()
	event := feedEvent{
		Timestamp:   now.Format(time.RFC3339),
		ReferenceID: req.ID,
		ExpiryTime:  now.Add(notificationTTL).Format(time.RFC3339),
		Event: messageAlert{
			Name: "AMAZON.MessageAlert.Activated",
			Payload: messageAlertState{
				State: alertState{Status: "UNREAD", Freshness: "NEW"},
				MessageGroup: messageGroup{
					Creator: creator{Name: "Claude"},
					Count:   1,
					Urgency: "URGENT",
				},
			},
		},
		LocalizedAttributes: []localizedAttr{
			{Locale: "en-US", ProviderName: d.cfg.ProviderName},
		},
		RelevantAudience: aud,
	}

	status, body, err := d.post(ctx, d.cfg.EventsURL, token, event)
	if err != nil {
		return fmt.Errorf("post feed event: %w", err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("feed event rejected: HTTP %d: %s", status, string(body))
	}

	d.log.Info("Feed event sent",
		slog.String("request_id", req.ID),
		slog.String("audience", aud.Type))

	return nil
}

// Retract deletes the outstanding device notification after a decision. The
// external delete is best-effort; the stored record is removed regardless.
func (d *Dispatcher) Retract(ctx context.Context) {
	n, err := d.store.ActiveNotification()
	if err != nil {
		d.log.Warn("Failed to load active notification", slog.Any("error", err))
		return
	}
	if n == nil {
		return
	}

	url := n.Endpoint + "/v2/notifications/" + n.NotificationID
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		d.log.Warn("Failed to create retraction request", slog.Any("error", err))
	} else {
		req.Header.Set("Authorization", "Bearer "+n.AccessToken)
		resp, err := d.httpClient.Do(req)
		if err != nil {
			d.log.Warn("Notification retraction failed",
				slog.String("notification_id", n.NotificationID),
				slog.Any("error", err))
		} else {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			d.log.Info("Retracted device notification",
				slog.String("notification_id", n.NotificationID),
				slog.Int("status", resp.StatusCode))
		}
	}

	if err := d.store.DeleteActiveNotification(); err != nil {
		d.log.Warn("Failed to delete active notification record", slog.Any("error", err))
	}
}

// post sends a JSON payload with a bearer token and returns the status and body.
func (d *Dispatcher) post(ctx context.Context, url, token string, payload interface{}) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	return resp.StatusCode, body, nil
}
