package config

import "github.com/spf13/pflag"

// RegisterFlags adds the connection and output flags to fs. Underscore
// names are kept for compatibility with existing job definitions.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("redshift_dbname", "", "Redshift database name")
	fs.String("redshift_host", "", "Redshift host")
	fs.Int("redshift_port", 0, "Redshift port")
	fs.String("redshift_secret_name", "", "Secrets Manager secret holding the Redshift connection")
	fs.String("redshift_sslmode", "", "Redshift sslmode (disable|prefer|require|verify-full)")
	fs.StringSlice(ExcludeSchemaFlag, nil, "Additional schema to exclude from lineage (repeatable)")
	fs.String("neo4j_hostname", "", "Neo4j hostname")
	fs.Int("neo4j_port", 0, "Neo4j Bolt port")
	fs.String("neo4j_database", "", "Neo4j database name (default: server default)")
	fs.String("region", "", "AWS region (skips the instance metadata lookup)")
	fs.BoolP("verbose", "v", false, "Verbose output")
	fs.String("log-format", "", "Log format (text|json)")
	fs.StringP("output", "o", "", "Output format for listings (table|json)")
	fs.Bool("strict", false, "Exit non-zero when any lineage edge could not be written")
}
