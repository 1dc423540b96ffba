package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent circuitchat configuration stored as
// config.toml in the .circuitchat/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Server      ServerConfig      `toml:"server"`
	Model       ModelConfig       `toml:"model"`
	Prompt      PromptConfig      `toml:"prompt"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Client      ClientConfig      `toml:"client"`
}

// ServerConfig holds relay server settings.
type ServerConfig struct {
	Listen  string `toml:"listen,omitempty"`
	LogFile string `toml:"log_file,omitempty"`

	// MaxFrameBytes bounds one upstream event frame. Zero keeps the decoder
	// default of 1 MiB.
	MaxFrameBytes uint `toml:"max_frame_bytes,omitempty"`
}

// ModelConfig selects the inference provider and model the relay drives.
type ModelConfig struct {
	Provider  string `toml:"provider,omitempty"`
	Upstream  string `toml:"upstream,omitempty"`
	Name      string `toml:"name,omitempty"`
	AccountID string `toml:"account_id,omitempty"`
	APIKey    string `toml:"api_key,omitempty"`

	// Seed fixes sampling. Zero selects the default seed.
	Seed      int  `toml:"seed,omitempty"`
	MaxTokens uint `toml:"max_tokens,omitempty"`
}

// PromptConfig holds prompt preset settings.
type PromptConfig struct {
	Preset    string `toml:"preset,omitempty"`
	Overrides string `toml:"overrides,omitempty"`
	Watch     bool   `toml:"watch,omitempty"`
}

// EventStreamConfig holds relay event publishing settings.
type EventStreamConfig struct {
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma separated list of broker addresses.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// relay server (e.g. circuitchat chat, circuitchat translate).
// Target is a full URL (scheme + host + port).
type ClientConfig struct {
	Target string `toml:"target,omitempty"`
}

// keyOrder is the display order of configKeys, following the TOML layout.
var keyOrder = []string{
	"server.listen",
	"server.log_file",
	"server.max_frame_bytes",
	"model.provider",
	"model.upstream",
	"model.name",
	"model.account_id",
	"model.api_key",
	"model.seed",
	"model.max_tokens",
	"prompt.preset",
	"prompt.overrides",
	"prompt.watch",
	"eventstream.provider",
	"eventstream.brokers",
	"eventstream.topic",
	"client.target",
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"server.log_file": {
		get: func(c *Config) string { return c.Server.LogFile },
		set: func(c *Config, v string) error { c.Server.LogFile = v; return nil },
	},
	"server.max_frame_bytes": {
		get: func(c *Config) string {
			if c.Server.MaxFrameBytes == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Server.MaxFrameBytes), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for server.max_frame_bytes: %w", err)
			}
			c.Server.MaxFrameBytes = uint(n)
			return nil
		},
	},
	"model.provider": {
		get: func(c *Config) string { return c.Model.Provider },
		set: func(c *Config, v string) error { c.Model.Provider = v; return nil },
	},
	"model.upstream": {
		get: func(c *Config) string { return c.Model.Upstream },
		set: func(c *Config, v string) error { c.Model.Upstream = v; return nil },
	},
	"model.name": {
		get: func(c *Config) string { return c.Model.Name },
		set: func(c *Config, v string) error { c.Model.Name = v; return nil },
	},
	"model.account_id": {
		get: func(c *Config) string { return c.Model.AccountID },
		set: func(c *Config, v string) error { c.Model.AccountID = v; return nil },
	},
	"model.api_key": {
		get: func(c *Config) string { return c.Model.APIKey },
		set: func(c *Config, v string) error { c.Model.APIKey = v; return nil },
	},
	"model.seed": {
		get: func(c *Config) string {
			if c.Model.Seed == 0 {
				return ""
			}
			return strconv.Itoa(c.Model.Seed)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for model.seed: %w", err)
			}
			c.Model.Seed = n
			return nil
		},
	},
	"model.max_tokens": {
		get: func(c *Config) string {
			if c.Model.MaxTokens == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Model.MaxTokens), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for model.max_tokens: %w", err)
			}
			c.Model.MaxTokens = uint(n)
			return nil
		},
	},
	"prompt.preset": {
		get: func(c *Config) string { return c.Prompt.Preset },
		set: func(c *Config, v string) error { c.Prompt.Preset = v; return nil },
	},
	"prompt.overrides": {
		get: func(c *Config) string { return c.Prompt.Overrides },
		set: func(c *Config, v string) error { c.Prompt.Overrides = v; return nil },
	},
	"prompt.watch": {
		get: func(c *Config) string { return strconv.FormatBool(c.Prompt.Watch) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for prompt.watch: %w", err)
			}
			c.Prompt.Watch = b
			return nil
		},
	},
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error { c.EventStream.Provider = v; return nil },
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return c.EventStream.Brokers },
		set: func(c *Config, v string) error { c.EventStream.Brokers = v; return nil },
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
	"client.target": {
		get: func(c *Config) string { return c.Client.Target },
		set: func(c *Config, v string) error { c.Client.Target = v; return nil },
	},
}
