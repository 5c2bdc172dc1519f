package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Sentinel errors for missing required credentials. Startup treats these
// as fatal: the process must exit non-zero before any network activity.
var (
	ErrMissingDiscordToken = errors.New("config: discord.token is required (set DISCORD_TOKEN)")
	ErrMissingAPIKey       = errors.New("config: provider.api_key is required (set OPENROUTER_API_KEY)")
)

// Validate checks that required fields are present and well-formed.
func Validate(cfg *Config) error {
	if cfg.Discord.Token == "" {
		return ErrMissingDiscordToken
	}
	if cfg.Provider.APIKey == "" {
		return ErrMissingAPIKey
	}

	u, err := url.Parse(cfg.Provider.BaseURL)
	if err != nil {
		return fmt.Errorf("config: invalid provider.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: provider.base_url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("config: provider.base_url must include a host")
	}

	if cfg.History.MaxTurns < 1 {
		return fmt.Errorf("config: history.max_turns must be positive, got %d", cfg.History.MaxTurns)
	}
	if cfg.History.MaxChars < 1 {
		return fmt.Errorf("config: history.max_chars must be positive, got %d", cfg.History.MaxChars)
	}
	if cfg.Memory.MaxChars < 1 {
		return fmt.Errorf("config: memory.max_chars must be positive, got %d", cfg.Memory.MaxChars)
	}

	if r := cfg.Telemetry.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("config: telemetry.sample_ratio must be in [0,1], got %v", r)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log_level %q", cfg.LogLevel)
	}

	return nil
}
