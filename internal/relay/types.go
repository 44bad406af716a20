// Package relay implements the chat relay channel. A Discord bot listens
// for direct messages from the configured operator, forwards each prompt
// to the local agent CLI, and relays the agent's output back as chat
// messages split to fit the platform's message limit.
package relay

// Config holds relay bot configuration.
type Config struct {
	BotToken     string `yaml:"bot_token"`
	UserID       string `yaml:"user_id"`
	ProjectDir   string `yaml:"project_dir"`
	AgentCommand string `yaml:"agent_command"`
	LockPath     string `yaml:"lock_path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		AgentCommand: "claude",
		LockPath:     "/tmp/claude-approve.lock",
	}
}

// Discord Gateway intents (https://discord.com/developers/docs/topics/gateway#gateway-intents)
const (
	IntentDirectMessages       = 1 << 12
	IntentDirectMessageTyping  = 1 << 14
	IntentMessageContent       = 1 << 15
)

// DefaultIntents for the relay bot: direct messages with content, plus typing.
const DefaultIntents = IntentDirectMessages | IntentDirectMessageTyping | IntentMessageContent

// Discord API constants
const (
	DiscordAPIURL     = "https://discord.com/api/v10"
	DiscordGatewayURL = "wss://gateway.discord.gg"

	// Opcode for DISPATCH (server-to-client, carries events)
	OpcodeDispatch = 0
	// Opcode for HEARTBEAT
	OpcodeHeartbeat = 1
	// Opcode for IDENTIFY
	OpcodeIdentify = 2
	// Opcode for HELLO (server-to-client)
	OpcodeHello = 10
)

// MaxMessageLength is Discord's hard limit for message content.
const MaxMessageLength = 2000

// DefaultChunkLimit leaves headroom under MaxMessageLength so chunk
// boundaries never trip the API limit.
const DefaultChunkLimit = 1990

// GatewayEvent represents a Discord Gateway event.
type GatewayEvent struct {
	Op int         `json:"op"`
	D  interface{} `json:"d"`
	S  *int        `json:"s"`
	T  *string     `json:"t"`
}

// Heartbeat is sent by client to maintain connection.
type Heartbeat struct {
	Op int  `json:"op"`
	D  *int `json:"d"`
}

// Identify is sent by client on connection.
type Identify struct {
	Op int          `json:"op"`
	D  IdentifyData `json:"d"`
}

// IdentifyData contains identify payload.
type IdentifyData struct {
	Token      string            `json:"token"`
	Intents    int               `json:"intents"`
	Properties map[string]string `json:"properties"`
}

// Hello is sent by server.
type Hello struct {
	HeartbeatInterval int `json:"heartbeat_interval"`
}

// MessageCreate event data.
type MessageCreate struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id,omitempty"`
	Author    User   `json:"author"`
	Content   string `json:"content"`
}

// User represents a Discord user.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Bot      bool   `json:"bot,omitempty"`
}
