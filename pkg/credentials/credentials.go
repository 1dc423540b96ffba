// Package credentials stores inference provider API keys in credentials.toml
// inside the .circuitchat/ directory, apart from config.toml so the config
// file can be shared.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/circuitchat/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

// providerEnvVars maps provider names to the environment variables their
// own tooling reads.
var providerEnvVars = map[string]string{
	"workersai": "CLOUDFLARE_API_TOKEN",
	"openai":    "OPENAI_API_KEY",
}

// accountEnvVars maps provider names to their account identifier variable.
var accountEnvVars = map[string]string{
	"workersai": "CLOUDFLARE_ACCOUNT_ID",
}

// Manager manages reading and writing credentials.toml in the .circuitchat/ directory.
type Manager struct {
	ddm        *dotdir.Manager
	targetPath string
}

// NewManager creates a new credentials Manager. If override is non-empty it is
// used as the .circuitchat/ directory; otherwise the standard dotdir
// resolution applies.
func NewManager(override string) (*Manager, error) {
	mgr := &Manager{}
	mgr.ddm = dotdir.NewManager()

	target, err := mgr.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	mgr.targetPath = filepath.Join(target, credentialsFile)

	return mgr, nil
}

// Load reads credentials.toml from the target directory.
// Returns an empty Credentials if the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{
				Version:   currentVersion,
				Providers: make(map[string]ProviderCredential),
			}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if creds.Providers == nil {
		creds.Providers = make(map[string]ProviderCredential)
	}

	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// Set stores the credential for the given provider, replacing any previous one.
func (m *Manager) Set(provider string, cred ProviderCredential) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Providers[provider] = cred

	return m.Save(creds)
}

// Get returns the stored credential for the given provider and whether one
// was found.
func (m *Manager) Get(provider string) (ProviderCredential, bool, error) {
	creds, err := m.Load()
	if err != nil {
		return ProviderCredential{}, false, err
	}

	pc, ok := creds.Providers[provider]
	return pc, ok, nil
}

// Remove deletes the stored credential for a provider.
func (m *Manager) Remove(provider string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	delete(creds.Providers, provider)

	return m.Save(creds)
}

// ListProviders returns the names of providers that have stored credentials.
func (m *Manager) ListProviders() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	providers := make([]string, 0, len(creds.Providers))
	for name := range creds.Providers {
		providers = append(providers, name)
	}

	sort.Strings(providers)

	return providers, nil
}

// Resolve fills in whatever explicit leaves empty. Explicit values (flags,
// CIRCUITCHAT_* env, config.toml) win, then the provider's own environment
// variables, then the stored credential.
func (m *Manager) Resolve(provider string, explicit ProviderCredential) (ProviderCredential, error) {
	out := explicit

	if out.APIKey == "" {
		out.APIKey = os.Getenv(EnvVarForProvider(provider))
	}
	if out.AccountID == "" && NeedsAccountID(provider) {
		out.AccountID = os.Getenv(accountEnvVars[provider])
	}
	if out.APIKey != "" && (out.AccountID != "" || !NeedsAccountID(provider)) {
		return out, nil
	}

	stored, ok, err := m.Get(provider)
	if err != nil || !ok {
		return out, err
	}
	if out.APIKey == "" {
		out.APIKey = stored.APIKey
	}
	if out.AccountID == "" {
		out.AccountID = stored.AccountID
	}
	return out, nil
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// EnvVarForProvider returns the environment variable name for a given provider.
// Returns an empty string for unknown providers.
func EnvVarForProvider(provider string) string {
	return providerEnvVars[provider]
}

// NeedsAccountID reports whether the provider requires an account identifier.
func NeedsAccountID(provider string) bool {
	_, ok := accountEnvVars[provider]
	return ok
}

// SupportedProviders returns the list of providers that require API keys.
func SupportedProviders() []string {
	return []string{"workersai", "openai"}
}

// IsSupportedProvider returns true if the given provider is supported.
func IsSupportedProvider(provider string) bool {
	return slices.Contains(SupportedProviders(), provider)
}
