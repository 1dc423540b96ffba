package config

const (
	defaultListen = ":8787"

	defaultProvider = "workersai"
	defaultModel    = "@cf/meta/llama-4-scout-17b-16e-instruct"
	defaultSeed     = 42

	defaultPreset = "ascii"

	defaultEventStreamProvider = "none"
	defaultEventStreamBrokers  = "localhost:9092"
	defaultEventStreamTopic    = "circuitchat.relays"

	defaultClientTarget = "http://localhost:8787"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen: defaultListen,
		},
		Model: ModelConfig{
			Provider: defaultProvider,
			Name:     defaultModel,
			Seed:     defaultSeed,
		},
		Prompt: PromptConfig{
			Preset: defaultPreset,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Brokers:  defaultEventStreamBrokers,
			Topic:    defaultEventStreamTopic,
		},
		Client: ClientConfig{
			Target: defaultClientTarget,
		},
	}
}
