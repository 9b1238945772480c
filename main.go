// Package main is the entry point for the protocol capture/replay agent.
package main

import (
	"fmt"
	"os"

	"otus.dev/agent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
