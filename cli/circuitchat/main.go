package main

import (
	"os"

	circuitchatcmder "github.com/papercomputeco/circuitchat/cmd/circuitchat"
)

func main() {
	cmd := circuitchatcmder.NewCircuitchatCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
