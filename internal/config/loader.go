package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads a YAML configuration file, expands environment variables,
// parses it into a Config, and applies defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("config: expanding variables in %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// FromEnv builds a configuration purely from environment variables, for
// running without a config file. Credentials come from DISCORD_TOKEN and
// OPENROUTER_API_KEY; the remaining knobs use their defaults unless the
// matching variable is set.
func FromEnv() *Config {
	cfg := &Config{
		Discord: DiscordConfig{Token: os.Getenv("DISCORD_TOKEN")},
		Provider: ProviderConfig{
			APIKey:      os.Getenv("OPENROUTER_API_KEY"),
			Model:       os.Getenv("REPLY_MODEL"),
			WorkerModel: os.Getenv("WORKER_MODEL"),
			Referer:     os.Getenv("OPENROUTER_SITE_URL"),
			Title:       os.Getenv("OPENROUTER_APP_NAME"),
		},
		History: HistoryConfig{Path: os.Getenv("SQLITE_PATH")},
		Memory:  MemoryConfig{Dir: os.Getenv("MEMORIES_DIR")},
	}
	cfg.applyDefaults()
	return cfg
}

// expandEnv replaces ${VAR} and ${VAR:-default} patterns in raw YAML bytes.
// Returns an error listing all unresolved variables (no default, no env value).
func expandEnv(raw []byte) ([]byte, error) {
	var errs []error

	result := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		subs := envPattern.FindSubmatch(match)
		name := string(subs[1])
		hasDefault := len(subs) > 2 && subs[2] != nil
		defaultVal := ""
		if hasDefault {
			defaultVal = string(subs[2])
		}

		value, ok := os.LookupEnv(name)
		if ok {
			return []byte(value)
		}

		if hasDefault {
			return []byte(defaultVal)
		}

		errs = append(errs, fmt.Errorf("unresolved variable: %s", name))
		return match
	})

	return result, errors.Join(errs...)
}
