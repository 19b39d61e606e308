package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/viewlineage/internal/catalog"
	"github.com/leapstack-labs/viewlineage/internal/graph"
	"github.com/leapstack-labs/viewlineage/internal/instancemeta"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// configKey is used to store config in context.
type configKey struct{}

// Package-level config file tracking
var configFileUsed string

// flagKeys maps command-line flag names to config keys. Flags not listed
// here are not configuration (e.g. --config).
var flagKeys = map[string]string{
	"redshift_dbname":      "redshift.database",
	"redshift_host":        "redshift.host",
	"redshift_port":        "redshift.port",
	"redshift_secret_name": "redshift.secret_name",
	"redshift_sslmode":     "redshift.sslmode",
	"neo4j_hostname":       "neo4j.hostname",
	"neo4j_port":           "neo4j.port",
	"neo4j_database":       "neo4j.database",
	"region":               "aws.region",
	"verbose":              "verbose",
	"log-format":           "log_format",
	"output":               "output",
	"strict":               "strict",
}

// ExcludeSchemaFlag is appended to, rather than replacing, exclude_schemas
// from the file and environment.
const ExcludeSchemaFlag = "exclude_schema"

// findConfigFile finds the config file to use.
// Priority: explicit path > viewlineage.yaml > viewlineage.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"viewlineage.yaml", "viewlineage.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"redshift.sslmode":      catalog.DefaultSSLMode,
		"neo4j.port":            graph.DefaultBoltPort,
		"aws.metadata_endpoint": instancemeta.DefaultEndpoint,
		"aws.connect_timeout":   instancemeta.DefaultConnectTimeout,
		"aws.read_timeout":      instancemeta.DefaultReadTimeout,
		"aws.max_retries":       instancemeta.DefaultMaxRetries,
		"aws.backoff_base":      instancemeta.DefaultBackoffBase,
		"exclude_schemas":       []string{},
		"verbose":               false,
		"log_format":            DefaultLogFormat,
		"output":                DefaultOutput,
		"strict":                false,
	}
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment variables (VIEWLINEAGE_ prefix, "__" separates levels)
	// Transform: VIEWLINEAGE_REDSHIFT__SECRET_NAME -> redshift.secret_name
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (only those explicitly set)
	var extraExcludes []string
	if flags != nil {
		if f := flags.Lookup(ExcludeSchemaFlag); f != nil && f.Changed {
			extraExcludes, _ = flags.GetStringSlice(ExcludeSchemaFlag)
		}
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ExcludeSchemas = append(cfg.ExcludeSchemas, extraExcludes...)

	expandCredentialEnvVars(&cfg)
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// envValue maps an environment variable to its config key. List keys are
// comma separated.
func envValue(k, v string) (string, interface{}) {
	key := envKey(k)
	if key == "exclude_schemas" {
		var schemas []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				schemas = append(schemas, s)
			}
		}
		return key, schemas
	}
	return key, v
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFromContext reports the logger stored in ctx, if any.
func LoggerFromContext(ctx context.Context) (*slog.Logger, bool) {
	if ctx == nil {
		return nil, false
	}
	l, ok := ctx.Value(loggerKey{}).(*slog.Logger)
	return l, ok
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := LoggerFromContext(ctx); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the config from the command context. Without one it
// returns the built-in defaults.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return &Config{
		Redshift:     RedshiftConfig{SSLMode: catalog.DefaultSSLMode},
		Neo4j:        Neo4jConfig{Port: graph.DefaultBoltPort},
		LogFormat:    DefaultLogFormat,
		OutputFormat: DefaultOutput,
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandCredentialEnvVars expands environment variables in credential fields.
func expandCredentialEnvVars(c *Config) {
	c.Redshift.User = expandEnvVars(c.Redshift.User)
	c.Redshift.Password = expandEnvVars(c.Redshift.Password)
	c.Neo4j.User = expandEnvVars(c.Neo4j.User)
	c.Neo4j.Password = expandEnvVars(c.Neo4j.Password)
}
