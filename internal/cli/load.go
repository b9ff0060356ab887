package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/graphload/internal/graphdb"
	"github.com/vvka-141/graphload/internal/logging"
	"github.com/vvka-141/graphload/internal/progress"
	"github.com/vvka-141/graphload/internal/services"
	"github.com/vvka-141/graphload/internal/tui"
	"github.com/vvka-141/graphload/pkg/graphload"
)

var loadCmd = &cobra.Command{
	Use:   "load <graph_name>",
	Short: "Load CSV files into a graph",
	Long: `Load reads every nodes_<Label>.csv and edges_<TYPE>.csv file from the CSV
directory (or an S3 prefix) and writes them to the named graph.

The load command:
1. Discovers node and edge files and checks that edge labels name node files
2. Connects and runs a write health check
3. Creates id indexes, plus indexes.csv and constraints.csv when present
4. Loads all node files, then all edge files, in batches

Node files need an id column; edge files need source and target columns.
Optional source_label and target_label columns name the endpoint labels.
Every other column becomes a property.
Files may be gzip or zstd compressed (.csv.gz, .csv.zst).

Password Authentication:
  Prefer $FALKORDB_PASSWORD over --password: flags are visible in shell
  history and the process list.

Examples:
  # Load ./csv_output into graph 'social'
  graphload load social

  # Re-runnable load that merges by id
  graphload load social --csv-dir ./export --merge-mode

  # Remote FalkorDB, four files at a time, stop on the first failure
  graphload load social --url falkor://db.internal:6379 --parallel 4 --fail-fast

  # Apache AGE, reading from S3
  graphload load social --backend age --age-dsn postgres://user@pg/db \
    --s3-bucket exports --s3-prefix graph/2024-06-01`,
	Args: RequireGraphName,
	RunE: runLoad,
}

type loadFlagValues struct {
	conn   connectionFlags
	source sourceFlags

	batchSize           int
	mergeMode           bool
	progressInterval    int
	parallel            int
	failFast            bool
	include, exclude    []string
	retries             int
	timeout             time.Duration
	delimiter           string
	skipLabelCheck      bool
	keepIncompleteEdges bool
	skipSchema          bool
	stats               bool
	noTUI               bool
}

var loadFlags loadFlagValues

func init() {
	rootCmd.AddCommand(loadCmd)

	addConnectionFlags(loadCmd, &loadFlags.conn)
	addSourceFlags(loadCmd, &loadFlags.source)

	flags := loadCmd.Flags()
	flags.IntVar(&loadFlags.batchSize, "batch-size", graphload.DefaultBatchSize,
		"Records per UNWIND query")
	flags.BoolVar(&loadFlags.mergeMode, "merge-mode", false,
		"MERGE by id instead of CREATE, so reruns do not duplicate nodes or edges")
	flags.IntVar(&loadFlags.progressInterval, "progress-interval", graphload.DefaultProgressInterval,
		"Report progress every N records (0 disables)")
	flags.IntVar(&loadFlags.parallel, "parallel", graphload.DefaultParallel,
		"Files loaded concurrently within the node phase and within the edge phase")
	flags.BoolVar(&loadFlags.failFast, "fail-fast", false,
		"Stop after the first file with failed records (exit code 13)")
	flags.StringSliceVar(&loadFlags.include, "include", nil,
		"Only load files matching these glob patterns (can be specified multiple times)\n"+
			"Example: --include 'nodes_*.csv' --include 'edges_KNOWS.csv'")
	flags.StringSliceVar(&loadFlags.exclude, "exclude", nil,
		"Skip files matching these glob patterns (can be specified multiple times)")
	flags.IntVar(&loadFlags.retries, "retries", graphload.DefaultRetryMaxAttempts,
		"Retries per query on transient connection errors (0 disables)")
	flags.DurationVar(&loadFlags.timeout, "timeout", 0,
		"Abort the whole run after this long (default: no limit)\n"+
			"Examples: 30m, 2h")
	flags.StringVar(&loadFlags.delimiter, "delimiter", ",",
		"CSV field separator (a single character, or 'tab')")
	flags.BoolVar(&loadFlags.skipLabelCheck, "skip-label-check", false,
		"Load edges even when their labels match no node file")
	flags.BoolVar(&loadFlags.keepIncompleteEdges, "keep-incomplete-edges", false,
		"Send edge rows with an empty endpoint id instead of skipping them")
	flags.BoolVar(&loadFlags.skipSchema, "skip-schema", false,
		"Do not create indexes or constraints")
	flags.BoolVar(&loadFlags.stats, "stats", false,
		"Print node and relationship counts after loading")
	flags.BoolVar(&loadFlags.noTUI, "no-tui", false,
		"Log progress lines instead of drawing the live progress view")
}

// signalContext cancels on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runLoad(cmd *cobra.Command, args []string) error {
	graph := args[0]
	verbose := getVerboseFlag(cmd)

	project, err := loadProjectConfig(loadFlags.conn.config, csvDirCandidate(cmd, loadFlags.source))
	if err != nil {
		return err
	}
	connConfig, err := resolveConnection(cmd, loadFlags.conn, project, graph)
	if err != nil {
		return err
	}
	loadConfig, err := resolveLoadConfig(cmd, &loadFlags, project, graph, verbose)
	if err != nil {
		return err
	}
	dir, s3Params := resolveSourceParams(cmd, loadFlags.source, project)

	interactive := !loadFlags.noTUI && tui.IsInteractive()

	// Log lines would tear the live view, so they are held until it closes.
	var held bytes.Buffer
	var logOut io.Writer = os.Stderr
	if interactive {
		logOut = &held
	}
	logger := logging.NewConsoleLogger(verbose, logging.WithWriter(logOut))
	logConnectionVerbose(logger, connConfig)

	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	src, err := openSource(ctx, dir, s3Params)
	if err != nil {
		return err
	}
	connector, err := graphdb.NewConnector(connConfig, logger)
	if err != nil {
		return err
	}

	var sink graphload.EventSink = progress.NewLogSink(logger)
	var view *tui.ProgressUI
	if interactive {
		view = tui.NewProgressUI(os.Stderr, cancel)
		sink = view
		view.Start()
	}

	summary, loadErr := services.NewLoadService(connector, logger, sink).Load(ctx, src, loadConfig)

	if view != nil {
		if err := view.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "progress view: %v\n", err)
		}
		_, _ = held.WriteTo(os.Stderr)
		logger = logging.NewConsoleLogger(verbose)
	}

	if summary != nil && len(summary.Files) > 0 {
		if interactive {
			fmt.Fprint(os.Stdout, tui.RenderSummary(summary))
		} else {
			tui.LogSummary(logger, summary)
		}
	}
	if loadErr != nil {
		return fmt.Errorf("load failed: %w", loadErr)
	}

	if loadFlags.stats {
		return showStats(ctx, connector, graph, logger, interactive)
	}
	return nil
}

// showStats connects and prints label and relationship counts.
func showStats(ctx context.Context, connector graphload.Connector, graph string, logger graphload.Logger, interactive bool) error {
	client, err := connector.Connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	stats, err := services.CollectStats(ctx, client)
	if err != nil {
		return err
	}

	if interactive {
		fmt.Fprint(os.Stdout, tui.RenderStats(graph, stats))
	} else {
		tui.LogStats(logger, graph, stats)
	}
	return nil
}
