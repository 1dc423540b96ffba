package credentials

// Credentials represents the stored API credentials in credentials.toml.
type Credentials struct {
	Version   int                           `toml:"version"`
	Providers map[string]ProviderCredential `toml:"providers"`
}

// ProviderCredential holds what a single inference provider needs to
// authenticate. AccountID is only used by Workers AI.
type ProviderCredential struct {
	APIKey    string `toml:"api_key"`
	AccountID string `toml:"account_id,omitempty"`
}
