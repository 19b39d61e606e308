package config

import (
	"errors"
	"fmt"
	"strings"
)

// ValidateSource checks that the warehouse can be located: either a secret
// name, or host, port and database name.
func (c *Config) ValidateSource() error {
	if c.UsesSecretsStore() {
		return nil
	}

	var missing []string
	if c.Redshift.Database == "" {
		missing = append(missing, "--redshift_dbname")
	}
	if c.Redshift.Host == "" {
		missing = append(missing, "--redshift_host")
	}
	if c.Redshift.Port == 0 {
		missing = append(missing, "--redshift_port")
	}
	if len(missing) > 0 {
		return fmt.Errorf("either --redshift_secret_name or %s is required (missing %s)",
			"--redshift_dbname, --redshift_host and --redshift_port", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateRead checks everything reading the catalog needs.
func (c *Config) ValidateRead() error {
	return errors.Join(c.ValidateSource(), c.validateFormats())
}

// Validate checks everything a full load needs.
func (c *Config) Validate() error {
	var errNeo4j error
	if c.Neo4j.Hostname == "" {
		errNeo4j = errors.New("--neo4j_hostname is required")
	}
	return errors.Join(c.ValidateRead(), errNeo4j)
}

func (c *Config) validateFormats() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (expected text or json)", c.LogFormat)
	}
	switch c.OutputFormat {
	case "table", "json":
	default:
		return fmt.Errorf("unknown output format %q (expected table or json)", c.OutputFormat)
	}
	return nil
}
