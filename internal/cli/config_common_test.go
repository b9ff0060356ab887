package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/graphload/internal/config"
	"github.com/vvka-141/graphload/pkg/graphload"
)

// loadCommand returns a command with load and source flags parsed from args.
func loadCommand(t *testing.T, args ...string) (*cobra.Command, *loadFlagValues) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	f := &loadFlagValues{}
	addSourceFlags(cmd, &f.source)
	flags := cmd.Flags()
	flags.IntVar(&f.batchSize, "batch-size", graphload.DefaultBatchSize, "")
	flags.BoolVar(&f.mergeMode, "merge-mode", false, "")
	flags.IntVar(&f.progressInterval, "progress-interval", graphload.DefaultProgressInterval, "")
	flags.IntVar(&f.parallel, "parallel", graphload.DefaultParallel, "")
	flags.BoolVar(&f.failFast, "fail-fast", false, "")
	flags.StringSliceVar(&f.include, "include", nil, "")
	flags.StringSliceVar(&f.exclude, "exclude", nil, "")
	flags.IntVar(&f.retries, "retries", graphload.DefaultRetryMaxAttempts, "")
	flags.DurationVar(&f.timeout, "timeout", 0, "")
	flags.StringVar(&f.delimiter, "delimiter", ",", "")
	flags.BoolVar(&f.skipSchema, "skip-schema", false, "")
	flags.BoolVar(&f.skipLabelCheck, "skip-label-check", false, "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, f
}

func intPtr(n int) *int { return &n }

func TestResolveLoadConfig_Defaults(t *testing.T) {
	clearGraphloadEnv(t)
	cmd, f := loadCommand(t)

	cfg, err := resolveLoadConfig(cmd, f, nil, "social", false)
	require.NoError(t, err)

	assert.Equal(t, graphload.NewLoadConfig("social"), cfg)
}

func TestResolveLoadConfig_ConfigFile(t *testing.T) {
	clearGraphloadEnv(t)
	project := &config.ProjectConfig{Load: config.LoadConfig{
		BatchSize:        250,
		Mode:             "merge",
		ProgressInterval: intPtr(0),
		Parallel:         3,
		FailFast:         true,
		Include:          []string{"nodes_*.csv"},
		Retries:          intPtr(0),
		Delimiter:        "tab",
		Timeout:          "90s",
		SkipSchema:       true,
	}}
	cmd, f := loadCommand(t)

	cfg, err := resolveLoadConfig(cmd, f, project, "g", true)
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.BatchSize)
	assert.Equal(t, graphload.LoadModeUpsert, cfg.Mode)
	assert.Equal(t, 0, cfg.ProgressInterval)
	assert.Equal(t, 3, cfg.Parallel)
	assert.True(t, cfg.FailFast)
	assert.Equal(t, []string{"nodes_*.csv"}, cfg.Include)
	assert.Equal(t, 0, cfg.Retries)
	assert.Equal(t, '\t', cfg.Delimiter)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.True(t, cfg.SkipSchema)
	assert.True(t, cfg.Verbose)
}

func TestResolveLoadConfig_Precedence(t *testing.T) {
	clearGraphloadEnv(t)
	t.Setenv(envBatchSize, "300")
	t.Setenv(envParallel, "2")
	project := &config.ProjectConfig{Load: config.LoadConfig{BatchSize: 250, Parallel: 3, Include: []string{"a*"}}}

	cmd, f := loadCommand(t, "--parallel", "4", "--include", "b*", "--merge-mode", "--delimiter", ";")
	cfg, err := resolveLoadConfig(cmd, f, project, "g", false)
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.BatchSize, "environment overrides config file")
	assert.Equal(t, 4, cfg.Parallel, "flag overrides environment")
	assert.Equal(t, []string{"b*"}, cfg.Include, "flag replaces config patterns")
	assert.Equal(t, graphload.LoadModeUpsert, cfg.Mode)
	assert.Equal(t, ';', cfg.Delimiter)
}

func TestResolveLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		project *config.ProjectConfig
		args    []string
	}{
		{name: "zero batch size flag", args: []string{"--batch-size", "0"}},
		{name: "negative parallel flag", args: []string{"--parallel=-1"}},
		{name: "multi-character delimiter", args: []string{"--delimiter", ";;"}},
		{name: "quote delimiter", args: []string{"--delimiter", `"`}},
		{name: "bad env number", env: map[string]string{envBatchSize: "lots"}},
		{name: "bad mode in config", project: &config.ProjectConfig{Load: config.LoadConfig{Mode: "replace"}}},
		{name: "bad timeout in config", project: &config.ProjectConfig{Load: config.LoadConfig{Timeout: "soon"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearGraphloadEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cmd, f := loadCommand(t, tt.args...)

			_, err := resolveLoadConfig(cmd, f, tt.project, "g", false)
			assert.ErrorIs(t, err, graphload.ErrInvalidConfig)
		})
	}
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{",", ',', false},
		{"|", '|', false},
		{"tab", '\t', false},
		{`\t`, '\t', false},
		{"§", '§', false},
		{"", 0, true},
		{",,", 0, true},
	}
	for _, tt := range tests {
		got, err := parseDelimiter(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDelimiter(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseDelimiter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveSourceParams(t *testing.T) {
	t.Run("default directory", func(t *testing.T) {
		clearGraphloadEnv(t)
		cmd, f := loadCommand(t)
		dir, s3 := resolveSourceParams(cmd, f.source, nil)
		assert.Equal(t, "csv_output", dir)
		assert.Nil(t, s3)
	})

	t.Run("config directory", func(t *testing.T) {
		clearGraphloadEnv(t)
		cmd, f := loadCommand(t)
		dir, _ := resolveSourceParams(cmd, f.source, &config.ProjectConfig{Source: config.SourceConfig{Dir: "export"}})
		assert.Equal(t, "export", dir)
	})

	t.Run("flag directory wins", func(t *testing.T) {
		clearGraphloadEnv(t)
		t.Setenv(envCSVDir, "env-dir")
		cmd, f := loadCommand(t, "--csv-dir", "flag-dir")
		dir, _ := resolveSourceParams(cmd, f.source, nil)
		assert.Equal(t, "flag-dir", dir)
	})

	t.Run("bucket selects s3", func(t *testing.T) {
		clearGraphloadEnv(t)
		t.Setenv(envS3AccessKey, "AKIA")
		t.Setenv(envS3SecretKey, "secret")
		project := &config.ProjectConfig{Source: config.SourceConfig{S3Bucket: "exports", S3Region: "eu-west-1"}}
		cmd, f := loadCommand(t, "--s3-prefix", "graph/", "--s3-endpoint", "http://minio:9000")

		dir, s3 := resolveSourceParams(cmd, f.source, project)
		require.NotNil(t, s3)
		assert.Empty(t, dir)
		assert.Equal(t, "exports", s3.Bucket)
		assert.Equal(t, "graph/", s3.Prefix)
		assert.Equal(t, "eu-west-1", s3.Region)
		assert.Equal(t, "http://minio:9000", s3.Endpoint)
		assert.Equal(t, "AKIA", s3.AccessKey)
		assert.Equal(t, "secret", s3.SecretKey)
	})
}

func TestLoadProjectConfig(t *testing.T) {
	clearGraphloadEnv(t)

	t.Run("found in csv directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte("backend: age\n"), 0o644))

		cfg, err := loadProjectConfig("", dir)
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, "age", cfg.Backend)
	})

	t.Run("absent is not an error", func(t *testing.T) {
		cfg, err := loadProjectConfig("", t.TempDir())
		require.NoError(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("explicit path must exist", func(t *testing.T) {
		_, err := loadProjectConfig(filepath.Join(t.TempDir(), "missing.yaml"), "")
		assert.ErrorIs(t, err, graphload.ErrInvalidConfig)
	})

	t.Run("unknown key is a config error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("bakend: age\n"), 0o644))

		_, err := loadProjectConfig(path, "")
		assert.ErrorIs(t, err, graphload.ErrInvalidConfig)
	})
}
