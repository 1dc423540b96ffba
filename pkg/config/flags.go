package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --target
// on both "circuitchat chat" and "circuitchat translate").
type Flag struct {
	// Name is the long flag name (e.g. "upstream").
	Name string

	// Shorthand is the one-letter short flag (e.g. "u"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "model.upstream").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen      = "listen"
	FlagLogFile     = "log-file"
	FlagMaxFrame    = "max-frame-bytes"
	FlagProvider    = "provider"
	FlagUpstream    = "upstream"
	FlagModel       = "model"
	FlagAccountID   = "account-id"
	FlagAPIKey      = "api-key"
	FlagSeed        = "seed"
	FlagMaxTokens   = "max-tokens"
	FlagPreset      = "preset"
	FlagOverrides   = "prompt-overrides"
	FlagWatch       = "watch-prompts"
	FlagEventStream = "eventstream"
	FlagBrokers     = "brokers"
	FlagTopic       = "topic"
	FlagTarget      = "target"
)

// Flags is the registry of every flag shared across circuitchat commands.
var Flags = FlagSet{
	FlagListen:      {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "Address for the relay server to listen on"},
	FlagLogFile:     {Name: "log-file", ViperKey: "server.log_file", Description: "Also write JSON logs to this file"},
	FlagMaxFrame:    {Name: "max-frame-bytes", ViperKey: "server.max_frame_bytes", Description: "Bound on one upstream event frame in bytes (0: 1 MiB)"},
	FlagProvider:    {Name: "provider", Shorthand: "p", ViperKey: "model.provider", Description: "Inference provider (workersai, ollama, openai)"},
	FlagUpstream:    {Name: "upstream", Shorthand: "u", ViperKey: "model.upstream", Description: "Upstream provider base URL (default: provider default)"},
	FlagModel:       {Name: "model", Shorthand: "m", ViperKey: "model.name", Description: "Upstream model name"},
	FlagAccountID:   {Name: "account-id", ViperKey: "model.account_id", Description: "Workers AI account identifier"},
	FlagAPIKey:      {Name: "api-key", ViperKey: "model.api_key", Description: "Upstream API key, sent as a bearer token"},
	FlagSeed:        {Name: "seed", ViperKey: "model.seed", Description: "Sampling seed sent with every model call"},
	FlagMaxTokens:   {Name: "max-tokens", ViperKey: "model.max_tokens", Description: "Bound on generated tokens per turn (0: upstream default)"},
	FlagPreset:      {Name: "preset", ViperKey: "prompt.preset", Description: "Prompt preset (ascii, schematic, summary, translate)"},
	FlagOverrides:   {Name: "prompt-overrides", ViperKey: "prompt.overrides", Description: "TOML file of prompt preset overrides"},
	FlagWatch:       {Name: "watch-prompts", ViperKey: "prompt.watch", Description: "Reload the prompt overrides file when it changes"},
	FlagEventStream: {Name: "eventstream", ViperKey: "eventstream.provider", Description: "Relay event publisher (none, kafka)"},
	FlagBrokers:     {Name: "brokers", ViperKey: "eventstream.brokers", Description: "Comma separated Kafka broker addresses"},
	FlagTopic:       {Name: "topic", ViperKey: "eventstream.topic", Description: "Kafka topic for relay events"},
	FlagTarget:      {Name: "target", Shorthand: "t", ViperKey: "client.target", Description: "circuitchat server URL"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *int) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// defaultInt returns the default int value for a viper key from NewDefaultConfig.
func defaultInt(viperKey string) int {
	v := viper.New()
	setViperDefaults(v)
	return v.GetInt(viperKey)
}

// defaultBool returns the default bool value for a viper key from NewDefaultConfig.
func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}
