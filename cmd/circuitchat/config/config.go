// Package configcmder provides the config command for managing persistent
// circuitchat configuration stored in the .circuitchat/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/circuitchat/pkg/cliui"
	"github.com/papercomputeco/circuitchat/pkg/config"
)

const configLongDesc string = `Manage persistent circuitchat configuration.

Configuration is stored as config.toml in the .circuitchat/ directory and
provides default values for command flags. CLI flags and CIRCUITCHAT_*
environment variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  server.listen, server.log_file,
  model.provider, model.upstream, model.name, model.account_id,
  model.api_key, model.seed, model.max_tokens,
  prompt.preset, prompt.overrides, prompt.watch,
  eventstream.provider, eventstream.brokers, eventstream.topic,
  client.target

Use subcommands to get, set, or list configuration values:
  circuitchat config set <key> <value>    Set a configuration value
  circuitchat config get <key>            Get a configuration value
  circuitchat config list                 List all configuration values

Examples:
  circuitchat config set model.provider ollama
  circuitchat config set model.name llama3.2-vision
  circuitchat config get model.provider
  circuitchat config list`

const configShortDesc string = "Manage persistent circuitchat configuration"

// secretKeys are masked when displayed.
var secretKeys = map[string]bool{
	"model.api_key": true,
}

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func validateKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// printTarget reports which config file is in use.
func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

// display returns the value as shown to the user.
func display(key, value string) string {
	if !secretKeys[key] || value == "" {
		return value
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
