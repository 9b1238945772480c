package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"otus.dev/agent/internal/wire/schema"
	"otus.dev/agent/internal/wire/transform"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a protocol schema file",
	Long: `Validate a protocol schema file (JSON) without starting a capture or replay session.

Checks that the header, types, packets, and transform chain are well-formed and
that every cross-reference (count_field, user-type name) resolves.

Examples:
  otus validate -p protocol.json`,
	Run: func(cmd *cobra.Command, args []string) {
		runValidateCommand()
	},
}

func init() {
	validateCmd.MarkPersistentFlagRequired("protocol")
}

func runValidateCommand() {
	if schemaPath == "" {
		exitWithError("a protocol schema is required (-p/--protocol)", nil)
	}

	s, err := schema.Load(schemaPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
		os.Exit(1)
	}
	if _, err := transform.Build(s.Transforms); err != nil {
		fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("VALID: %d packet type(s), %d named type(s), %d transform stage(s)\n",
		len(s.Packets), len(s.Types), len(s.Transforms))
}
