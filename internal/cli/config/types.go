// Package config provides configuration management for the viewlineage CLI.
//
// Configuration is layered with koanf: built-in defaults, an optional YAML
// file, VIEWLINEAGE_ environment variables and finally command-line flags.
package config

import (
	"time"

	"github.com/leapstack-labs/viewlineage/internal/catalog"
	"github.com/leapstack-labs/viewlineage/internal/graph"
	"github.com/leapstack-labs/viewlineage/internal/instancemeta"
)

// Config holds all CLI configuration options.
type Config struct {
	Redshift       RedshiftConfig `koanf:"redshift"`
	Neo4j          Neo4jConfig    `koanf:"neo4j"`
	AWS            AWSConfig      `koanf:"aws"`
	ExcludeSchemas []string       `koanf:"exclude_schemas"`
	Verbose        bool           `koanf:"verbose"`
	LogFormat      string         `koanf:"log_format"`
	OutputFormat   string         `koanf:"output"`
	// Strict makes a run with skipped edges exit non-zero.
	Strict bool `koanf:"strict"`
}

// RedshiftConfig describes the warehouse connection. Either SecretName or
// Host/Port/Database must be set.
type RedshiftConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	Database   string `koanf:"database"`
	User       string `koanf:"user"`
	Password   string `koanf:"password"`
	SecretName string `koanf:"secret_name"`
	SSLMode    string `koanf:"sslmode"`
}

// Neo4jConfig describes the graph store connection.
type Neo4jConfig struct {
	Hostname string `koanf:"hostname"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
}

// AWSConfig controls region discovery for the secrets store.
type AWSConfig struct {
	Region           string        `koanf:"region"`
	MetadataEndpoint string        `koanf:"metadata_endpoint"`
	ConnectTimeout   time.Duration `koanf:"connect_timeout"`
	ReadTimeout      time.Duration `koanf:"read_timeout"`
	MaxRetries       int           `koanf:"max_retries"`
	BackoffBase      time.Duration `koanf:"backoff_base"`
}

// Default configuration values.
const (
	DefaultLogFormat = "text"
	DefaultOutput    = "table"
	EnvPrefix        = "VIEWLINEAGE_"
)

// UsesSecretsStore reports whether warehouse credentials come from the
// secrets store.
func (c *Config) UsesSecretsStore() bool {
	return c.Redshift.SecretName != ""
}

// ConnParams returns the directly configured warehouse parameters.
func (c *Config) ConnParams() catalog.ConnParams {
	return catalog.ConnParams{
		Host:     c.Redshift.Host,
		Port:     c.Redshift.Port,
		Database: c.Redshift.Database,
		User:     c.Redshift.User,
		Password: c.Redshift.Password,
		SSLMode:  c.Redshift.SSLMode,
	}
}

// GraphConfig returns the graph store connection settings.
func (c *Config) GraphConfig() graph.Config {
	return graph.Config{
		Hostname: c.Neo4j.Hostname,
		Port:     c.Neo4j.Port,
		Username: c.Neo4j.User,
		Password: c.Neo4j.Password,
		Database: c.Neo4j.Database,
	}
}

// MetadataOptions returns the instance metadata resolver options.
func (c *Config) MetadataOptions() instancemeta.Options {
	return instancemeta.Options{
		Endpoint:       c.AWS.MetadataEndpoint,
		ConnectTimeout: c.AWS.ConnectTimeout,
		ReadTimeout:    c.AWS.ReadTimeout,
		MaxRetries:     instancemeta.Retries(uint64(max(c.AWS.MaxRetries, 0))),
		BackoffBase:    c.AWS.BackoffBase,
	}
}
