package cli

import (
	"github.com/spf13/cobra"

	"github.com/vvka-141/graphload/internal/graphdb"
	"github.com/vvka-141/graphload/internal/logging"
	"github.com/vvka-141/graphload/internal/tui"
)

var statsCmd = &cobra.Command{
	Use:   "stats <graph_name>",
	Short: "Show node and relationship counts of a graph",
	Long: `Stats counts the nodes of every label and the relationships of every type.

Examples:
  graphload stats social
  graphload stats social --backend age --age-dsn postgres://user@pg/db`,
	Args: RequireGraphName,
	RunE: runStats,
}

var statsFlags connectionFlags

func init() {
	rootCmd.AddCommand(statsCmd)
	addConnectionFlags(statsCmd, &statsFlags)
}

func runStats(cmd *cobra.Command, args []string) error {
	graph := args[0]
	verbose := getVerboseFlag(cmd)

	project, err := loadProjectConfig(statsFlags.config, "")
	if err != nil {
		return err
	}
	connConfig, err := resolveConnection(cmd, statsFlags, project, graph)
	if err != nil {
		return err
	}

	logger := logging.NewConsoleLogger(verbose)
	logConnectionVerbose(logger, connConfig)

	connector, err := graphdb.NewConnector(connConfig, logger)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	return showStats(ctx, connector, graph, logger, tui.IsInteractive())
}
