// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for orb.
package config

// Config is the top-level configuration structure.
type Config struct {
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level"`

	Discord     DiscordConfig     `yaml:"discord"`
	Provider    ProviderConfig    `yaml:"provider"`
	History     HistoryConfig     `yaml:"history"`
	Memory      MemoryConfig      `yaml:"memory"`
	Ops         OpsConfig         `yaml:"ops"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// DiscordConfig holds the Discord gateway credentials.
type DiscordConfig struct {
	// Token is the bot token. Required.
	Token string `yaml:"token"`
}

// ProviderConfig holds the completion API settings.
type ProviderConfig struct {
	// APIKey is the OpenRouter API key. Required.
	APIKey string `yaml:"api_key"`

	// BaseURL is the OpenAI-compatible API root.
	BaseURL string `yaml:"base_url"`

	// Model is the default model used for replies.
	Model string `yaml:"model"`

	// WorkerModel is the cheaper model used for memory merging.
	WorkerModel string `yaml:"worker_model"`

	// Referer and Title are optional OpenRouter attribution headers.
	Referer string `yaml:"referer"`
	Title   string `yaml:"title"`
}

// HistoryConfig controls conversation history storage and retention.
type HistoryConfig struct {
	// Path is the SQLite database file for per-user history.
	Path string `yaml:"path"`

	// MaxTurns is the maximum number of turns kept per user.
	MaxTurns int `yaml:"max_turns"`

	// MaxChars is the maximum cumulative content size kept per user.
	MaxChars int `yaml:"max_chars"`
}

// MemoryConfig controls the layered memory files.
type MemoryConfig struct {
	// Dir is the root directory for user and server memory files.
	Dir string `yaml:"dir"`

	// CorePromptPath is the static core system prompt file.
	CorePromptPath string `yaml:"core_prompt_path"`

	// MaxChars caps each memory file's size.
	MaxChars int `yaml:"max_chars"`
}

// OpsConfig controls the operational HTTP endpoint.
type OpsConfig struct {
	// Addr is the listen address for /health, /metrics and /status.
	// Empty disables the server.
	Addr string `yaml:"addr"`
}

// TelemetryConfig controls optional OTLP trace export.
type TelemetryConfig struct {
	// Endpoint is the OTLP/HTTP collector endpoint (host:port).
	// Empty disables trace export.
	Endpoint string `yaml:"endpoint"`

	// SampleRatio is the trace sampling ratio in [0,1]. Zero means 1.0.
	SampleRatio float64 `yaml:"sample_ratio"`
}

// MaintenanceConfig controls background maintenance jobs.
type MaintenanceConfig struct {
	// VacuumSchedule is a cron expression for history database compaction.
	// Empty disables the job.
	VacuumSchedule string `yaml:"vacuum_schedule"`
}

// Defaults used when fields are unset.
const (
	DefaultBaseURL        = "https://openrouter.ai/api/v1"
	DefaultModel          = "anthropic/claude-sonnet-4.5"
	DefaultWorkerModel    = "anthropic/claude-haiku-4.5"
	DefaultMaxTurns       = 22
	DefaultMaxChars       = 11500
	DefaultMemoryMaxChars = 1200
	DefaultHistoryPath    = "data/orb.sqlite"
	DefaultMemoryDir      = "memories"
	DefaultCorePromptPath = "prompts/core/sysmsg.md"
	DefaultVacuumSchedule = "0 4 * * *"
	DefaultLogLevel       = "info"
)

// applyDefaults fills zero fields with default values.
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = DefaultBaseURL
	}
	if c.Provider.Model == "" {
		c.Provider.Model = DefaultModel
	}
	if c.Provider.WorkerModel == "" {
		c.Provider.WorkerModel = DefaultWorkerModel
	}
	if c.History.Path == "" {
		c.History.Path = DefaultHistoryPath
	}
	if c.History.MaxTurns == 0 {
		c.History.MaxTurns = DefaultMaxTurns
	}
	if c.History.MaxChars == 0 {
		c.History.MaxChars = DefaultMaxChars
	}
	if c.Memory.Dir == "" {
		c.Memory.Dir = DefaultMemoryDir
	}
	if c.Memory.CorePromptPath == "" {
		c.Memory.CorePromptPath = DefaultCorePromptPath
	}
	if c.Memory.MaxChars == 0 {
		c.Memory.MaxChars = DefaultMemoryMaxChars
	}
	if c.Maintenance.VacuumSchedule == "" {
		c.Maintenance.VacuumSchedule = DefaultVacuumSchedule
	}
}
