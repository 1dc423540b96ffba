package provider

import (
	"fmt"

	"github.com/papercomputeco/circuitchat/pkg/llm/provider/ollama"
	"github.com/papercomputeco/circuitchat/pkg/llm/provider/openai"
	"github.com/papercomputeco/circuitchat/pkg/llm/provider/workersai"
)

// Supported provider type constants
const (
	WorkersAI = "workersai"
	Ollama    = "ollama"
	OpenAI    = "openai"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{WorkersAI, Ollama, OpenAI}
}

// New creates a new Provider instance for the given provider type.
// Returns an error if the provider type is not recognized.
func New(providerType string, opts Options) (Provider, error) {
	switch providerType {
	case WorkersAI:
		if opts.AccountID == "" {
			return nil, fmt.Errorf("%s provider requires an account id", WorkersAI)
		}
		return workersai.New(workersai.Config{
			Upstream:   opts.Upstream,
			AccountID:  opts.AccountID,
			APIToken:   opts.APIKey,
			HTTPClient: opts.client(),
		}), nil
	case Ollama:
		return ollama.New(ollama.Config{
			Upstream:   opts.Upstream,
			HTTPClient: opts.client(),
		}), nil
	case OpenAI:
		return openai.New(openai.Config{
			Upstream:   opts.Upstream,
			APIKey:     opts.APIKey,
			HTTPClient: opts.client(),
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", providerType, SupportedProviders())
	}
}
