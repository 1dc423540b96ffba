// Package initcmder provides the init command for initializing a local
// .circuitchat directory in the current working directory.
package initcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/circuitchat/pkg/config"
	"github.com/papercomputeco/circuitchat/pkg/dotdir"
)

const (
	configFile = "config.toml"

	fetchTimeout = 30 * time.Second
)

const initLongDesc string = `Initialize a new .circuitchat/ directory in the current working directory.

Creates a local .circuitchat/ directory that takes precedence over the default
~/.circuitchat/ directory, and writes a config.toml into it. An existing
config.toml is left alone unless --preset is given.

--preset takes either a provider preset name (workersai, ollama, openai) or an
http(s) URL pointing at a config.toml to fetch.

Examples:
  circuitchat init
  circuitchat init --preset ollama
  circuitchat init --preset https://example.com/circuitchat/config.toml`

const initShortDesc string = "Initialize a local .circuitchat/ directory"

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		fmt.Sprintf("Provider preset (%s) or URL of a config.toml", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func (c *initCommander) run(ctx context.Context, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Resolve the config before touching the filesystem so a bad preset
	// leaves no half initialized directory behind.
	var cfg *config.Config
	if c.preset != "" {
		var err error
		cfg, err = resolvePreset(ctx, c.preset)
		if err != nil {
			return err
		}
	}

	dir, existed, err := dotdir.NewManager().InitLocal()
	if err != nil {
		return err
	}

	cfgPath := filepath.Join(dir, configFile)
	if cfg == nil {
		_, err := os.Stat(cfgPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			cfg = config.NewDefaultConfig()
		case err != nil:
			return fmt.Errorf("reading config: %w", err)
		}
	}

	if cfg != nil {
		cfger, err := config.NewConfiger(dir)
		if err != nil {
			return err
		}
		if err := cfger.SaveConfig(cfg); err != nil {
			return err
		}
	}

	if existed {
		fmt.Fprintf(w, "Already initialized: %s\n", dir)
		if cfg != nil {
			fmt.Fprintf(w, "Wrote %s\n", cfgPath)
		}
		return nil
	}

	fmt.Fprintf(w, "Initialized %s directory: %s\n", dotdir.DirName, dir)
	return nil
}

// resolvePreset returns the config for a named provider preset, or fetches
// one from a remote URL.
func resolvePreset(ctx context.Context, preset string) (*config.Config, error) {
	if strings.HasPrefix(preset, "http://") || strings.HasPrefix(preset, "https://") {
		return fetchConfig(ctx, preset)
	}
	return config.PresetConfig(preset)
}

func fetchConfig(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
