package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RequireGraphName validates that exactly one graph_name argument is provided.
// Returns a helpful error message with usage and examples if missing or too many.
func RequireGraphName(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf(`missing required argument: <graph_name>

Usage: %s

Example:
  %s social --csv-dir ./csv_output`, cmd.UseLine(), cmd.CommandPath())
	}
	if len(args) > 1 {
		return fmt.Errorf("accepts 1 arg(s), received %d", len(args))
	}
	return nil
}
