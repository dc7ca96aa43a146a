// bridgectl - command-line client for the notification bridge gateway
package main

import (
	"fmt"
	"os"

	"notification-bridge/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
