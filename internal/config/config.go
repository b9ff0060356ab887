package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

type ConnectionConfig struct {
	// URL is a falkor:// address; explicit fields below override its parts.
	URL      string `yaml:"url,omitempty"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	TLS      bool   `yaml:"tls,omitempty"`
	Graph    string `yaml:"graph,omitempty"`
}

type LoadConfig struct {
	BatchSize        int      `yaml:"batch_size,omitempty"`
	Mode             string   `yaml:"mode,omitempty"`
	ProgressInterval *int     `yaml:"progress_interval,omitempty"`
	Parallel         int      `yaml:"parallel,omitempty"`
	FailFast         bool     `yaml:"fail_fast,omitempty"`
	Include          []string `yaml:"include,omitempty"`
	Exclude          []string `yaml:"exclude,omitempty"`
	Retries          *int     `yaml:"retries,omitempty"`
	Delimiter        string   `yaml:"delimiter,omitempty"`
	Timeout          string   `yaml:"timeout,omitempty"`
	SkipSchema       bool     `yaml:"skip_schema,omitempty"`
}

type SourceConfig struct {
	Dir        string `yaml:"dir,omitempty"`
	S3Bucket   string `yaml:"s3_bucket,omitempty"`
	S3Prefix   string `yaml:"s3_prefix,omitempty"`
	S3Region   string `yaml:"s3_region,omitempty"`
	S3Endpoint string `yaml:"s3_endpoint,omitempty"`
}

type AGEConfig struct {
	DSN           string `yaml:"dsn,omitempty"`
	AuthMethod    string `yaml:"auth_method,omitempty"`
	AzureTenantID string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID string `yaml:"azure_client_id,omitempty"`
	// AWSRegion applies to auth_method aws
	AWSRegion string `yaml:"aws_region,omitempty"`
	// GoogleInstance applies to auth_method google (project:region:instance)
	GoogleInstance string `yaml:"google_instance,omitempty"`
}

type ProjectConfig struct {
	Backend    string           `yaml:"backend,omitempty"`
	Connection ConnectionConfig `yaml:"connection"`
	Load       LoadConfig       `yaml:"load"`
	Source     SourceConfig     `yaml:"source"`
	AGE        AGEConfig        `yaml:"age"`
}

const ConfigFileName = "graphload.yaml"

// Load reads ConfigFileName from dir.
func Load(dir string) (*ProjectConfig, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads a config file by path. Unknown keys are rejected so
// typos surface instead of being ignored.
func LoadFile(path string) (*ProjectConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	defer f.Close()

	var cfg ProjectConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}
