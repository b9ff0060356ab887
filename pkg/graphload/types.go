package graphload

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// LoadMode governs whether synthesized queries create unconditionally or
// merge by identity key.
type LoadMode int

const (
	// LoadModeInsert creates every record. Duplicate ids produce duplicate nodes.
	LoadModeInsert LoadMode = iota
	// LoadModeUpsert merges by id. Duplicates collapse and properties are overwritten.
	LoadModeUpsert
)

// String returns a human-readable string representation of the LoadMode.
func (m LoadMode) String() string {
	switch m {
	case LoadModeInsert:
		return "insert"
	case LoadModeUpsert:
		return "upsert"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// ParseLoadMode converts a configuration value to a LoadMode.
// "merge" is accepted as an alias of "upsert".
func ParseLoadMode(s string) (LoadMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "insert", "create":
		return LoadModeInsert, nil
	case "upsert", "merge":
		return LoadModeUpsert, nil
	default:
		return LoadModeInsert, fmt.Errorf("unknown load mode %q (valid: insert, upsert): %w", s, ErrInvalidConfig)
	}
}

// Backend identifies the graph database the loader talks to.
type Backend int

const (
	BackendFalkorDB Backend = iota // GRAPH.QUERY over the Redis protocol
	BackendAGE                     // Apache AGE cypher() over PostgreSQL
)

// String returns the configuration name of the Backend.
func (b Backend) String() string {
	switch b {
	case BackendFalkorDB:
		return "falkordb"
	case BackendAGE:
		return "age"
	default:
		return fmt.Sprintf("Unknown(%d)", b)
	}
}

// ParseBackend converts a configuration value to a Backend.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "falkordb", "falkor", "redisgraph":
		return BackendFalkorDB, nil
	case "age", "apache-age", "postgres":
		return BackendAGE, nil
	default:
		return BackendFalkorDB, fmt.Errorf("backend %q: %w", s, ErrUnsupportedBackend)
	}
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID), AGE backend only
	AuthMethodAWSIAM                         // AWS RDS IAM tokens, AGE backend only
	AuthMethodGoogleIAM                      // Google Cloud SQL connector with IAM auth, AGE backend only
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google Cloud SQL IAM"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// RecordKind distinguishes node files from edge files.
type RecordKind int

const (
	KindNode RecordKind = iota
	KindEdge
)

func (k RecordKind) String() string {
	if k == KindEdge {
		return "edge"
	}
	return "node"
}

// LoadOutcome accounts for the records of one batch, one file or a whole run.
type LoadOutcome struct {
	Succeeded    int
	Failed       int
	FallbackUsed bool
	Elapsed      time.Duration
}

// Total returns the number of records accounted for.
func (o LoadOutcome) Total() int {
	return o.Succeeded + o.Failed
}

// Complete reports whether every accounted record succeeded.
func (o LoadOutcome) Complete() bool {
	return o.Failed == 0
}

// Add folds another outcome into o. FallbackUsed is sticky.
func (o *LoadOutcome) Add(other LoadOutcome) {
	o.Succeeded += other.Succeeded
	o.Failed += other.Failed
	o.FallbackUsed = o.FallbackUsed || other.FallbackUsed
	o.Elapsed += other.Elapsed
}

// BatchOutcome is delivered to the EventSink after each batch resolves.
type BatchOutcome struct {
	// Scope names the file the batch came from.
	Scope string
	Kind  RecordKind
	// Index is the zero-based position of the batch within its file.
	Index   int
	Records int
	Outcome LoadOutcome
}

// Progress is a load-progress notification for one file.
type Progress struct {
	Scope   string
	Current int
	Total   int
}

// Percent returns progress as a value in [0, 100].
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 100
	}
	return float64(p.Current) / float64(p.Total) * 100
}

// FileOutcome aggregates every batch of one input file.
type FileOutcome struct {
	File string
	Kind RecordKind
	// Label is the node label or the relationship type of the file.
	Label   string
	Batches int
	Outcome LoadOutcome
}

// RunSummary aggregates a whole load run.
type RunSummary struct {
	RunID   string
	Graph   string
	Mode    LoadMode
	Files   []FileOutcome
	Nodes   LoadOutcome
	Edges   LoadOutcome
	Elapsed time.Duration
	// Aborted is set when the run stopped before every file was processed.
	Aborted bool
}

// Record appends a file outcome and folds it into the node or edge totals.
func (s *RunSummary) Record(f FileOutcome) {
	s.Files = append(s.Files, f)
	if f.Kind == KindEdge {
		s.Edges.Add(f.Outcome)
	} else {
		s.Nodes.Add(f.Outcome)
	}
}

// Total returns nodes and edges combined.
func (s RunSummary) Total() LoadOutcome {
	total := s.Nodes
	total.Add(s.Edges)
	return total
}

// LoadConfig contains all parameters needed for a load run.
type LoadConfig struct {
	// Graph is the target graph name
	Graph string

	// Mode selects insert or upsert semantics for every batch
	Mode LoadMode

	// BatchSize is the maximum number of records per synthesized query
	BatchSize int

	// ProgressInterval is the record interval between progress notifications (0 disables)
	ProgressInterval int

	// Parallel is the number of files loaded concurrently within one phase
	Parallel int

	// FailFast aborts the run after the first file with failed records
	FailFast bool

	// SkipLabelCheck disables node/edge label consistency validation
	SkipLabelCheck bool

	// KeepIncompleteEdges sends edge rows with an empty endpoint id instead of skipping them
	KeepIncompleteEdges bool

	// SkipSchema disables index and constraint bootstrap
	SkipSchema bool

	// Include and Exclude are doublestar glob patterns matched against file names
	Include []string
	Exclude []string

	// Delimiter is the CSV field separator
	Delimiter rune

	// Retries is the number of retries for transient connection failures per query
	Retries int

	// Timeout bounds the whole run (0 means no timeout)
	Timeout time.Duration

	// Verbose enables detailed logging including full query text
	Verbose bool
}

// NewLoadConfig returns a LoadConfig populated with defaults.
func NewLoadConfig(graph string) LoadConfig {
	return LoadConfig{
		Graph:            graph,
		Mode:             LoadModeInsert,
		BatchSize:        DefaultBatchSize,
		ProgressInterval: DefaultProgressInterval,
		Parallel:         DefaultParallel,
		Delimiter:        ',',
		Retries:          DefaultRetryMaxAttempts,
	}
}

// Validate checks if the LoadConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *LoadConfig) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Graph) == "" {
		errs = append(errs, fmt.Errorf("graph name is required: %w", ErrInvalidConfig))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d: %w", c.BatchSize, ErrInvalidConfig))
	}
	if c.ProgressInterval < 0 {
		errs = append(errs, fmt.Errorf("progress interval cannot be negative: %w", ErrInvalidConfig))
	}
	if c.Parallel < 1 {
		errs = append(errs, fmt.Errorf("parallel must be at least 1, got %d: %w", c.Parallel, ErrInvalidConfig))
	}
	if c.Retries < 0 {
		errs = append(errs, fmt.Errorf("retries cannot be negative: %w", ErrInvalidConfig))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}
	switch c.Delimiter {
	case 0, '"', '\r', '\n':
		errs = append(errs, fmt.Errorf("invalid CSV delimiter %q: %w", c.Delimiter, ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// ConnectionConfig describes how to reach the graph database.
type ConnectionConfig struct {
	Backend Backend

	// FalkorDB
	Host     string
	Port     int
	Username string
	Password string
	TLS      bool

	// Graph is the graph name (FalkorDB key or AGE graph)
	Graph string

	// DSN is the PostgreSQL connection string for the AGE backend
	DSN string

	AuthMethod AuthMethod

	// Azure Entra ID parameters (AGE on Azure Database for PostgreSQL)
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	// AWSRegion is the RDS region for AWS IAM authentication
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name (project:region:instance)
	GoogleInstance string
}

// Address returns host:port.
func (c *ConnectionConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks the fields required by the selected backend.
func (c *ConnectionConfig) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Graph) == "" {
		errs = append(errs, fmt.Errorf("graph name is required: %w", ErrInvalidConfig))
	}

	switch c.Backend {
	case BackendFalkorDB:
		if c.Host == "" {
			errs = append(errs, fmt.Errorf("host is required: %w", ErrInvalidConfig))
		}
		if c.Port <= 0 || c.Port > 65535 {
			errs = append(errs, fmt.Errorf("port %d out of range: %w", c.Port, ErrInvalidConfig))
		}
		if c.AuthMethod != AuthMethodStandard {
			errs = append(errs, fmt.Errorf("%s auth is not available for falkordb: %w", c.AuthMethod, ErrUnsupportedAuthMethod))
		}
	case BackendAGE:
		if c.DSN == "" {
			errs = append(errs, fmt.Errorf("AGE backend requires a PostgreSQL connection string: %w", ErrInvalidConfig))
		}
		if c.AuthMethod == AuthMethodGoogleIAM && c.GoogleInstance == "" {
			errs = append(errs, fmt.Errorf("Google Cloud SQL IAM auth requires an instance connection name (project:region:instance): %w", ErrInvalidConfig))
		}
	default:
		errs = append(errs, fmt.Errorf("backend %s: %w", c.Backend, ErrUnsupportedBackend))
	}

	return errors.Join(errs...)
}
