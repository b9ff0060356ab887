package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "graphload",
	Short: "Bulk-load CSV exports into a graph database",
	Long: `graphload reads nodes_<Label>.csv and edges_<TYPE>.csv files and loads them
into FalkorDB or Apache AGE with batched UNWIND queries.

Node files load first, then edge files. A batch the database rejects is
retried one record at a time, so a single bad row never costs its batch.

Exit Codes:
  0  - Success, every record loaded
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration
  11 - Graph database unreachable or connection lost
  12 - Unreadable or inconsistent CSV input
  13 - Records failed and --fail-fast stopped the run`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output, including query text")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
