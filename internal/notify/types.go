// Package notify delivers approval prompts to the voice channel. Delivery is
// two-tier: a high-salience device notification addressed with the credential
// captured from the last voice session, falling back to a lower-salience feed
// event posted with a client-credentials OAuth token. Delivery is best-effort
// and never fails the request that triggered it.
package notify

import "time"

// Config holds the outbound notification endpoints and OAuth client settings.
type Config struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	TokenURL     string `yaml:"token_url"`
	Scope        string `yaml:"scope"`
	// EventsURL is the proactive feed-event endpoint. Defaults to the
	// development stage; point it at the production stage when the skill
	// is certified.
	EventsURL    string `yaml:"events_url"`
	ProviderName string `yaml:"provider_name"`
}

// DefaultConfig returns a Config with the standard Alexa endpoints.
func DefaultConfig() *Config {
	return &Config{
		TokenURL:     "https://api.amazon.com/auth/o2/token",
		Scope:        "alexa::proactive_events",
		EventsURL:    "https://api.amazonalexa.com/v1/proactiveEvents/stages/development",
		ProviderName: "Claude Approve",
	}
}

// notificationTTL bounds how long a delivered prompt stays visible.
const notificationTTL = time.Hour

// deviceNotification is the tier-1 payload posted to the session endpoint.
type deviceNotification struct {
	DisplayInfo displayInfo `json:"displayInfo"`
	ReferenceID string      `json:"referenceId"`
	ExpiryTime  string      `json:"expiryTime"`
	SpokenInfo  spokenInfo  `json:"spokenInfo"`
}

type displayInfo struct {
	Content []displayContent `json:"content"`
}

type displayContent struct {
	Locale    string     `json:"locale"`
	Toast     toast      `json:"toast"`
	Title     string     `json:"title"`
	BodyItems []bodyItem `json:"bodyItems"`
}

type toast struct {
	PrimaryText string `json:"primaryText"`
}

type bodyItem struct {
	PrimaryText string `json:"primaryText"`
}

type spokenInfo struct {
	Content []spokenContent `json:"content"`
}

type spokenContent struct {
	Locale string `json:"locale"`
	Text   string `json:"text"`
}

// feedEvent is the tier-2 payload posted to the proactive-events endpoint.
type feedEvent struct {
	Timestamp           string              `json:"timestamp"`
	ReferenceID         string              `json:"referenceId"`
	ExpiryTime          string              `json:"expiryTime"`
	Event               messageAlert        `json:"event"`
	LocalizedAttributes []localizedAttr     `json:"localizedAttributes"`
	RelevantAudience    audience            `json:"relevantAudience"`
}

type messageAlert struct {
	Name    string            `json:"name"`
	Payload messageAlertState `json:"payload"`
}

type messageAlertState struct {
	State        alertState   `json:"state"`
	MessageGroup messageGroup `json:"messageGroup"`
}

type alertState struct {
	Status    string `json:"status"`
	Freshness string `json:"freshness"`
}

type messageGroup struct {
	Creator creator `json:"creator"`
	Count   int     `json:"count"`
	Urgency string  `json:"urgency"`
}

type creator struct {
	Name string `json:"name"`
}

type localizedAttr struct {
	Locale       string `json:"locale"`
	ProviderName string `json:"providerName"`
}

// audience selects unicast delivery to one user or multicast to all subscribers.
type audience struct {
	Type    string          `json:"type"`
	Payload audiencePayload `json:"payload"`
}

type audiencePayload struct {
	User string `json:"user,omitempty"`
}
