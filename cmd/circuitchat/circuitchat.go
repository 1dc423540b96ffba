// Package circuitchatcmder
package circuitchatcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/circuitchat/cmd/circuitchat/auth"
	chatcmder "github.com/papercomputeco/circuitchat/cmd/circuitchat/chat"
	configcmder "github.com/papercomputeco/circuitchat/cmd/circuitchat/config"
	initcmder "github.com/papercomputeco/circuitchat/cmd/circuitchat/init"
	servecmder "github.com/papercomputeco/circuitchat/cmd/circuitchat/serve"
	translatecmder "github.com/papercomputeco/circuitchat/cmd/circuitchat/translate"
	versioncmder "github.com/papercomputeco/circuitchat/cmd/circuitchat/version"
)

const circuitchatLongDesc string = `circuitchat relays multi-turn circuit design conversations to a
vision capable model and streams the answer back as server-sent events.

Run the relay and talk to it using:
  circuitchat serve                  Run the relay server
  circuitchat chat "add a 555 timer" Send one message and render the answer
  circuitchat chat                   Start an interactive session
  circuitchat translate -L Spanish   Translate the last answer`

const circuitchatShortDesc string = "circuitchat - streaming circuit design relay"

func NewCircuitchatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "circuitchat",
		Short:        circuitchatShortDesc,
		Long:         circuitchatLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .circuitchat/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(translatecmder.NewTranslateCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
