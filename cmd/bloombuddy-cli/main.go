// Package main provides the entry point for bloombuddy-cli.
//
// bloombuddy-cli manages BloomBuddy accounts, sensors and devices, and can
// stand in for a sensor when testing telemetry.
package main

import (
	"fmt"
	"os"

	"github.com/MiaKoring/BloomBuddyServer/internal/cli/command"
)

func main() {
	if err := command.App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
