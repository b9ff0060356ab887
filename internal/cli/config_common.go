package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vvka-141/graphload/internal/config"
	"github.com/vvka-141/graphload/internal/csvsource"
	"github.com/vvka-141/graphload/pkg/graphload"
)

// Environment variables read during load and source resolution.
const (
	envCSVDir      = "GRAPHLOAD_CSV_DIR"
	envBatchSize   = "GRAPHLOAD_BATCH_SIZE"
	envParallel    = "GRAPHLOAD_PARALLEL"
	envS3Bucket    = "GRAPHLOAD_S3_BUCKET"
	envS3Prefix    = "GRAPHLOAD_S3_PREFIX"
	envS3Region    = "GRAPHLOAD_S3_REGION"
	envS3Endpoint  = "GRAPHLOAD_S3_ENDPOINT"
	envS3AccessKey = "GRAPHLOAD_S3_ACCESS_KEY"
	envS3SecretKey = "GRAPHLOAD_S3_SECRET_KEY"
)

// loadProjectConfig loads .env and graphload.yaml. An explicit path must
// exist; otherwise the CSV directory and then the working directory are
// searched. Returns nil config if no file is found.
func loadProjectConfig(explicitPath, csvDir string) (*config.ProjectConfig, error) {
	_ = godotenv.Load()

	if explicitPath != "" {
		cfg, err := config.LoadFile(explicitPath)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				return nil, fmt.Errorf("config file %s not found: %w", explicitPath, graphload.ErrInvalidConfig)
			}
			return nil, fmt.Errorf("failed to load %s: %w: %w", explicitPath, graphload.ErrInvalidConfig, err)
		}
		return cfg, nil
	}

	for _, dir := range []string{csvDir, "."} {
		if dir == "" {
			continue
		}
		cfg, err := config.Load(dir)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("failed to load %s: %w: %w", config.ConfigFileName, graphload.ErrInvalidConfig, err)
		}
	}
	return nil, nil
}

// parseDelimiter accepts a single character, or "tab" / "\t".
func parseDelimiter(s string) (rune, error) {
	switch s {
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q: %w", s, graphload.ErrInvalidConfig)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

func envInt(name string) (int, bool, error) {
	s := os.Getenv(name)
	if s == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, fmt.Errorf("$%s=%q is not a number: %w", name, s, graphload.ErrInvalidConfig)
	}
	return n, true, nil
}

// applyProjectLoadConfig copies the load section of graphload.yaml onto cfg.
func applyProjectLoadConfig(cfg *graphload.LoadConfig, project *config.ProjectConfig) error {
	if project == nil {
		return nil
	}
	l := project.Load

	if l.BatchSize > 0 {
		cfg.BatchSize = l.BatchSize
	}
	if l.Mode != "" {
		mode, err := graphload.ParseLoadMode(l.Mode)
		if err != nil {
			return fmt.Errorf("load.mode in %s: %w", config.ConfigFileName, err)
		}
		cfg.Mode = mode
	}
	if l.ProgressInterval != nil {
		cfg.ProgressInterval = *l.ProgressInterval
	}
	if l.Parallel > 0 {
		cfg.Parallel = l.Parallel
	}
	if l.Retries != nil {
		cfg.Retries = *l.Retries
	}
	if l.Delimiter != "" {
		d, err := parseDelimiter(l.Delimiter)
		if err != nil {
			return fmt.Errorf("load.delimiter in %s: %w", config.ConfigFileName, err)
		}
		cfg.Delimiter = d
	}
	if l.Timeout != "" {
		timeout, err := time.ParseDuration(l.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout in %s: %w: %w", config.ConfigFileName, graphload.ErrInvalidConfig, err)
		}
		cfg.Timeout = timeout
	}
	cfg.FailFast = cfg.FailFast || l.FailFast
	cfg.SkipSchema = cfg.SkipSchema || l.SkipSchema
	cfg.Include = append(cfg.Include, l.Include...)
	cfg.Exclude = append(cfg.Exclude, l.Exclude...)
	return nil
}

// resolveLoadConfig builds the LoadConfig for graph.
// Precedence: flags > environment > graphload.yaml > defaults.
func resolveLoadConfig(cmd *cobra.Command, f *loadFlagValues, project *config.ProjectConfig, graph string, verbose bool) (graphload.LoadConfig, error) {
	cfg := graphload.NewLoadConfig(graph)
	cfg.Verbose = verbose

	if err := applyProjectLoadConfig(&cfg, project); err != nil {
		return cfg, err
	}

	if n, ok, err := envInt(envBatchSize); err != nil {
		return cfg, err
	} else if ok {
		cfg.BatchSize = n
	}
	if n, ok, err := envInt(envParallel); err != nil {
		return cfg, err
	} else if ok {
		cfg.Parallel = n
	}

	changed := cmd.Flags().Changed
	if changed("batch-size") {
		cfg.BatchSize = f.batchSize
	}
	if f.mergeMode {
		cfg.Mode = graphload.LoadModeUpsert
	}
	if changed("progress-interval") {
		cfg.ProgressInterval = f.progressInterval
	}
	if changed("parallel") {
		cfg.Parallel = f.parallel
	}
	if changed("retries") {
		cfg.Retries = f.retries
	}
	if changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if changed("delimiter") {
		d, err := parseDelimiter(f.delimiter)
		if err != nil {
			return cfg, err
		}
		cfg.Delimiter = d
	}
	if changed("include") {
		cfg.Include = f.include
	}
	if changed("exclude") {
		cfg.Exclude = f.exclude
	}
	cfg.FailFast = cfg.FailFast || f.failFast
	cfg.SkipSchema = cfg.SkipSchema || f.skipSchema
	cfg.SkipLabelCheck = f.skipLabelCheck
	cfg.KeepIncompleteEdges = f.keepIncompleteEdges

	return cfg, cfg.Validate()
}

// sourceFlags selects where the CSV files come from.
type sourceFlags struct {
	csvDir     string
	s3Bucket   string
	s3Prefix   string
	s3Region   string
	s3Endpoint string
}

func addSourceFlags(cmd *cobra.Command, f *sourceFlags) {
	flags := cmd.Flags()
	flags.StringVar(&f.csvDir, "csv-dir", graphload.DefaultCSVDir,
		"Directory containing nodes_*.csv and edges_*.csv files\n"+
			"Precedence: --csv-dir > $"+envCSVDir+" > graphload.yaml > csv_output")
	flags.StringVar(&f.s3Bucket, "s3-bucket", "", "Read CSV files from this S3 bucket instead of --csv-dir")
	flags.StringVar(&f.s3Prefix, "s3-prefix", "", "Key prefix of the CSV files within the bucket")
	flags.StringVar(&f.s3Region, "s3-region", "", "AWS region of the bucket (default: AWS configuration)")
	flags.StringVar(&f.s3Endpoint, "s3-endpoint", "", "Endpoint of an S3-compatible store such as MinIO")
}

// csvDirCandidate returns the directory named by flag or environment,
// before graphload.yaml is consulted.
func csvDirCandidate(cmd *cobra.Command, f sourceFlags) string {
	if cmd.Flags().Changed("csv-dir") {
		return f.csvDir
	}
	return firstNonEmpty(os.Getenv(envCSVDir), graphload.DefaultCSVDir)
}

// resolveSourceParams decides between a directory and an S3 bucket.
// It returns the directory when no bucket is configured.
func resolveSourceParams(cmd *cobra.Command, f sourceFlags, project *config.ProjectConfig) (string, *csvsource.S3Params) {
	var src config.SourceConfig
	if project != nil {
		src = project.Source
	}

	bucket := firstNonEmpty(f.s3Bucket, os.Getenv(envS3Bucket), src.S3Bucket)
	if bucket != "" {
		return "", &csvsource.S3Params{
			Bucket:    bucket,
			Prefix:    firstNonEmpty(f.s3Prefix, os.Getenv(envS3Prefix), src.S3Prefix),
			Region:    firstNonEmpty(f.s3Region, os.Getenv(envS3Region), src.S3Region),
			Endpoint:  firstNonEmpty(f.s3Endpoint, os.Getenv(envS3Endpoint), src.S3Endpoint),
			AccessKey: os.Getenv(envS3AccessKey),
			SecretKey: os.Getenv(envS3SecretKey),
		}
	}

	if cmd.Flags().Changed("csv-dir") {
		return f.csvDir, nil
	}
	return firstNonEmpty(os.Getenv(envCSVDir), src.Dir, graphload.DefaultCSVDir), nil
}

// openSource creates the Source chosen by resolveSourceParams.
func openSource(ctx context.Context, dir string, s3Params *csvsource.S3Params) (graphload.Source, error) {
	if s3Params != nil {
		src, err := csvsource.NewS3Source(ctx, *s3Params)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	src, err := csvsource.NewDirSource(dir)
	if err != nil {
		return nil, err
	}
	return src, nil
}
