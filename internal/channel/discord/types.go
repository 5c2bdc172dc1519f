package discord

import "encoding/json"

// Gateway opcodes.
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opResume         = 6
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatACK   = 11
)

// Gateway intent bits. The bot needs guilds for name resolution, guild and
// direct messages for delivery, and message content to read the text.
const (
	intentGuilds         = 1 << 0
	intentGuildMessages  = 1 << 9
	intentDirectMessages = 1 << 12
	intentMessageContent = 1 << 15

	defaultIntents = intentGuilds | intentGuildMessages | intentDirectMessages | intentMessageContent
)

// payload is the gateway wire envelope.
type payload struct {
	Op   int             `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
	Seq  *int64          `json:"s,omitempty"`
	Type string          `json:"t,omitempty"`
}

// helloData is the op 10 payload.
type helloData struct {
	HeartbeatIntervalMS int64 `json:"heartbeat_interval"`
}

// identifyData is the op 2 payload.
type identifyData struct {
	Token      string             `json:"token"`
	Intents    int                `json:"intents"`
	Properties identifyProperties `json:"properties"`
}

type identifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

// readyData is the READY dispatch payload.
type readyData struct {
	User      User   `json:"user"`
	SessionID string `json:"session_id"`
}

// guildCreateData is the GUILD_CREATE dispatch payload, trimmed to the
// fields the bot uses.
type guildCreateData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User is a Discord user object.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name,omitempty"`
	Bot        bool   `json:"bot,omitempty"`
}

// GuildMember carries the per-guild profile attached to message events.
type GuildMember struct {
	Nick string `json:"nick,omitempty"`
}

// Message is a Discord message object, trimmed to the fields the bot uses.
type Message struct {
	ID        string       `json:"id"`
	ChannelID string       `json:"channel_id"`
	GuildID   string       `json:"guild_id,omitempty"`
	Content   string       `json:"content"`
	Timestamp string       `json:"timestamp"`
	Author    User         `json:"author"`
	Member    *GuildMember `json:"member,omitempty"`
	Mentions  []User       `json:"mentions,omitempty"`
}

// GatewayBot is the GET /gateway/bot response.
type GatewayBot struct {
	URL    string `json:"url"`
	Shards int    `json:"shards"`
}
