package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/circuitchat/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the CIRCUITCHAT_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (CIRCUITCHAT_SERVER_LISTEN, CIRCUITCHAT_MODEL_API_KEY, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: CIRCUITCHAT_SERVER_LISTEN, CIRCUITCHAT_MODEL_ACCOUNT_ID, etc.
	v.SetEnvPrefix("CIRCUITCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Server
	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.log_file", d.Server.LogFile)
	v.SetDefault("server.max_frame_bytes", d.Server.MaxFrameBytes)

	// Model
	v.SetDefault("model.provider", d.Model.Provider)
	v.SetDefault("model.upstream", d.Model.Upstream)
	v.SetDefault("model.name", d.Model.Name)
	v.SetDefault("model.account_id", d.Model.AccountID)
	v.SetDefault("model.api_key", d.Model.APIKey)
	v.SetDefault("model.seed", d.Model.Seed)
	v.SetDefault("model.max_tokens", d.Model.MaxTokens)

	// Prompt
	v.SetDefault("prompt.preset", d.Prompt.Preset)
	v.SetDefault("prompt.overrides", d.Prompt.Overrides)
	v.SetDefault("prompt.watch", d.Prompt.Watch)

	// Event stream
	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)

	// Client
	v.SetDefault("client.target", d.Client.Target)
}
