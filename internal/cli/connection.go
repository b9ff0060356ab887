package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vvka-141/graphload/internal/config"
	"github.com/vvka-141/graphload/internal/graphdb"
	"github.com/vvka-141/graphload/pkg/graphload"
)

// Environment variables read during connection resolution.
const (
	envURL           = "GRAPHLOAD_URL"
	envHost          = "GRAPHLOAD_HOST"
	envPort          = "GRAPHLOAD_PORT"
	envUsername      = "GRAPHLOAD_USERNAME"
	envPassword      = "FALKORDB_PASSWORD"
	envBackend       = "GRAPHLOAD_BACKEND"
	envAGEDSN        = "GRAPHLOAD_AGE_DSN"
	envDatabaseURL   = "DATABASE_URL"
	envAzureTenantID = "AZURE_TENANT_ID"
	envAzureClientID = "AZURE_CLIENT_ID"
	envAzureSecret   = "AZURE_CLIENT_SECRET"
	envAWSRegion     = "AWS_REGION"
)

// connectionFlags holds the connection-related flag values shared by every
// command that talks to the database.
type connectionFlags struct {
	url           string
	host          string
	port          int
	username      string
	password      string
	tls           bool
	backend       string
	ageDSN        string
	azure         bool
	azureTenantID string
	azureClientID string
	aws           bool
	awsRegion     string
	google        string
	config        string
}

func addConnectionFlags(cmd *cobra.Command, f *connectionFlags) {
	flags := cmd.Flags()
	flags.StringVar(&f.url, "url", "",
		"FalkorDB address: falkor://[user[:password]@]host[:port]\n"+
			"Alternative: $"+envURL)
	flags.StringVar(&f.host, "host", graphload.DefaultHost,
		"FalkorDB host\n"+
			"Precedence: --host > $"+envHost+" > graphload.yaml > localhost")
	flags.IntVar(&f.port, "port", graphload.DefaultPort,
		"FalkorDB port\n"+
			"Precedence: --port > $"+envPort+" > graphload.yaml > 6379")
	flags.StringVar(&f.username, "username", "", "FalkorDB username (ACL user)")
	flags.StringVar(&f.password, "password", "",
		"FalkorDB password\n"+
			"Prefer $"+envPassword+": flags are visible in shell history and the process list")
	flags.BoolVar(&f.tls, "tls", false, "Connect to FalkorDB over TLS")
	flags.StringVar(&f.backend, "backend", "",
		"Graph database: falkordb|age (default: falkordb, or $"+envBackend+")")
	flags.StringVar(&f.ageDSN, "age-dsn", "",
		"PostgreSQL connection string for the AGE backend\n"+
			"Alternative: $"+envAGEDSN+" or $"+envDatabaseURL)
	flags.BoolVar(&f.azure, "azure", false,
		"Authenticate to AGE on Azure Database for PostgreSQL with Entra ID\n"+
			"Uses a service principal when $"+envAzureSecret+" is set, otherwise DefaultAzureCredential")
	flags.StringVar(&f.azureTenantID, "azure-tenant-id", "", "Azure AD tenant ID (overrides $"+envAzureTenantID+")")
	flags.StringVar(&f.azureClientID, "azure-client-id", "", "Azure AD client ID (overrides $"+envAzureClientID+")")
	flags.BoolVar(&f.aws, "aws", false,
		"Authenticate to AGE on Amazon RDS with IAM tokens (default AWS credential chain)")
	flags.StringVar(&f.awsRegion, "aws-region", "", "RDS region for --aws (overrides $"+envAWSRegion+")")
	flags.StringVar(&f.google, "google-instance", "",
		"Connect to AGE on Cloud SQL through the Cloud SQL connector with IAM auth\n"+
			"Instance connection name: project:region:instance")
	flags.StringVar(&f.config, "config", "", "Path to graphload.yaml (default: the CSV directory, then the working directory)")
}

// connectionLayer is one source of connection settings. Zero values leave
// the settings of lower layers in place.
type connectionLayer struct {
	url      string
	host     string
	port     int
	username string
	password string
	tls      bool
}

func (l connectionLayer) apply(cfg *graphload.ConnectionConfig) error {
	if l.url != "" {
		parsed, err := graphdb.ParseAddress(l.url)
		if err != nil {
			return err
		}
		cfg.Host, cfg.Port, cfg.TLS = parsed.Host, parsed.Port, parsed.TLS
		if parsed.Username != "" {
			cfg.Username = parsed.Username
		}
		if parsed.Password != "" {
			cfg.Password = parsed.Password
		}
	}
	if l.host != "" {
		cfg.Host = l.host
	}
	if l.port != 0 {
		cfg.Port = l.port
	}
	if l.username != "" {
		cfg.Username = l.username
	}
	if l.password != "" {
		cfg.Password = l.password
	}
	if l.tls {
		cfg.TLS = true
	}
	return nil
}

func projectLayer(project *config.ProjectConfig) connectionLayer {
	if project == nil {
		return connectionLayer{}
	}
	c := project.Connection
	return connectionLayer{url: c.URL, host: c.Host, port: c.Port, username: c.Username, tls: c.TLS}
}

func envLayer() (connectionLayer, error) {
	l := connectionLayer{
		url:      os.Getenv(envURL),
		host:     os.Getenv(envHost),
		username: os.Getenv(envUsername),
		password: os.Getenv(envPassword),
	}
	if s := os.Getenv(envPort); s != "" {
		port, err := strconv.Atoi(s)
		if err != nil {
			return l, fmt.Errorf("$%s=%q is not a port: %w", envPort, s, graphload.ErrInvalidConfig)
		}
		l.port = port
	}
	return l, nil
}

func flagLayer(cmd *cobra.Command, f connectionFlags) connectionLayer {
	changed := cmd.Flags().Changed
	l := connectionLayer{url: f.url, username: f.username, password: f.password, tls: f.tls}
	if changed("host") {
		l.host = f.host
	}
	if changed("port") {
		l.port = f.port
	}
	return l
}

// firstNonEmpty returns the first non-empty value.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveConnection builds the connection config for graph.
// Precedence: flags > environment > graphload.yaml > defaults.
func resolveConnection(cmd *cobra.Command, f connectionFlags, project *config.ProjectConfig, graph string) (*graphload.ConnectionConfig, error) {
	var projectBackend string
	var age config.AGEConfig
	if project != nil {
		projectBackend = project.Backend
		age = project.AGE
	}

	backend, err := graphload.ParseBackend(firstNonEmpty(f.backend, os.Getenv(envBackend), projectBackend))
	if err != nil {
		return nil, err
	}

	cfg := &graphload.ConnectionConfig{
		Backend:    backend,
		Host:       graphload.DefaultHost,
		Port:       graphload.DefaultPort,
		Graph:      graph,
		AuthMethod: graphload.AuthMethodStandard,
	}

	switch backend {
	case graphload.BackendFalkorDB:
		env, err := envLayer()
		if err != nil {
			return nil, err
		}
		for _, layer := range []connectionLayer{projectLayer(project), env, flagLayer(cmd, f)} {
			if err := layer.apply(cfg); err != nil {
				return nil, err
			}
		}

	case graphload.BackendAGE:
		cfg.DSN = firstNonEmpty(f.ageDSN, os.Getenv(envAGEDSN), os.Getenv(envDatabaseURL), age.DSN)
		method, err := ageAuthMethod(f, age.AuthMethod)
		if err != nil {
			return nil, err
		}
		cfg.AuthMethod = method
		switch method {
		case graphload.AuthMethodAzureEntraID:
			cfg.AzureTenantID = firstNonEmpty(f.azureTenantID, os.Getenv(envAzureTenantID), age.AzureTenantID)
			cfg.AzureClientID = firstNonEmpty(f.azureClientID, os.Getenv(envAzureClientID), age.AzureClientID)
			cfg.AzureClientSecret = os.Getenv(envAzureSecret)
		case graphload.AuthMethodAWSIAM:
			cfg.AWSRegion = firstNonEmpty(f.awsRegion, os.Getenv(envAWSRegion), age.AWSRegion)
		case graphload.AuthMethodGoogleIAM:
			cfg.GoogleInstance = firstNonEmpty(f.google, age.GoogleInstance)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ageAuthMethod picks the AGE auth method. A flag wins over
// age.auth_method; at most one flag may be given.
func ageAuthMethod(f connectionFlags, configured string) (graphload.AuthMethod, error) {
	var chosen []graphload.AuthMethod
	if f.azure {
		chosen = append(chosen, graphload.AuthMethodAzureEntraID)
	}
	if f.aws {
		chosen = append(chosen, graphload.AuthMethodAWSIAM)
	}
	if f.google != "" {
		chosen = append(chosen, graphload.AuthMethodGoogleIAM)
	}
	switch len(chosen) {
	case 0:
	case 1:
		return chosen[0], nil
	default:
		return 0, fmt.Errorf("--azure, --aws and --google-instance are mutually exclusive: %w", graphload.ErrInvalidConfig)
	}

	switch strings.ToLower(configured) {
	case "", "standard", "password":
		return graphload.AuthMethodStandard, nil
	case "azure", "entra", "entraid":
		return graphload.AuthMethodAzureEntraID, nil
	case "aws", "iam", "rds":
		return graphload.AuthMethodAWSIAM, nil
	case "google", "gcp", "cloudsql":
		return graphload.AuthMethodGoogleIAM, nil
	default:
		return 0, fmt.Errorf("age.auth_method %q in %s: %w", configured, config.ConfigFileName, graphload.ErrUnsupportedAuthMethod)
	}
}

// logConnectionVerbose logs connection details when verbose mode is enabled.
func logConnectionVerbose(logger graphload.Logger, cfg *graphload.ConnectionConfig) {
	switch cfg.Backend {
	case graphload.BackendAGE:
		logger.Verbose("Connection resolved: backend=%s graph=%s auth=%s", cfg.Backend, cfg.Graph, cfg.AuthMethod)
	default:
		user := cfg.Username
		if user == "" {
			user = "(default)"
		}
		logger.Verbose("Connection resolved: backend=%s address=%s user=%s tls=%t graph=%s",
			cfg.Backend, cfg.Address(), user, cfg.TLS, cfg.Graph)
	}
}
