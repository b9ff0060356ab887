package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vvka-141/graphload/internal/graphdb"
	"github.com/vvka-141/graphload/internal/logging"
	"github.com/vvka-141/graphload/internal/services"
	"github.com/vvka-141/graphload/internal/tui"
)

var checkCmd = &cobra.Command{
	Use:   "check <graph_name>",
	Short: "Verify the graph database accepts reads and writes",
	Long: `Check connects, runs RETURN 1, then creates and deletes a probe node.
It is the same health check load runs before writing anything.

Examples:
  graphload check social
  FALKORDB_PASSWORD=secret graphload check social --host db.internal`,
	Args: RequireGraphName,
	RunE: runCheck,
}

var checkFlags connectionFlags

func init() {
	rootCmd.AddCommand(checkCmd)
	addConnectionFlags(checkCmd, &checkFlags)
}

func runCheck(cmd *cobra.Command, args []string) error {
	graph := args[0]
	verbose := getVerboseFlag(cmd)

	project, err := loadProjectConfig(checkFlags.config, "")
	if err != nil {
		return err
	}
	connConfig, err := resolveConnection(cmd, checkFlags, project, graph)
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

	client, err := connector.Connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := services.CheckHealth(ctx, client, logger); err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, tui.SuccessStyle.Render(fmt.Sprintf("%s Graph '%s' (%s) accepts reads and writes", tui.SymbolCheck, graph, connConfig.Backend)))
	return nil
}
