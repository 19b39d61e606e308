package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Defaults for Redshift connections.
const (
	DefaultPort    = 5439
	DefaultSSLMode = "prefer"
)

// ConnParams is the normalized set of warehouse connection parameters every
// credential source resolves to.
type ConnParams struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// Validate checks that the parameters identify a database.
func (p ConnParams) Validate() error {
	var errs []error
	if p.Host == "" {
		errs = append(errs, errors.New("redshift host is required"))
	}
	if p.Database == "" {
		errs = append(errs, errors.New("redshift database name is required"))
	}
	if p.Port <= 0 || p.Port > 65535 {
		errs = append(errs, fmt.Errorf("redshift port %d is out of range", p.Port))
	}
	return errors.Join(errs...)
}

// DSN renders the parameters as a keyword/value connection string.
func (p ConnParams) DSN() string {
	sslmode := p.SSLMode
	if sslmode == "" {
		sslmode = DefaultSSLMode
	}
	port := p.Port
	if port == 0 {
		port = DefaultPort
	}

	parts := []string{
		"host=" + quoteDSNValue(p.Host),
		"port=" + strconv.Itoa(port),
		"dbname=" + quoteDSNValue(p.Database),
		"sslmode=" + quoteDSNValue(sslmode),
		// Redshift does not support the describe round trip pgx uses for
		// its statement cache.
		"default_query_exec_mode=simple_protocol",
	}
	if p.User != "" {
		parts = append(parts, "user="+quoteDSNValue(p.User))
	}
	if p.Password != "" {
		parts = append(parts, "password="+quoteDSNValue(p.Password))
	}
	return strings.Join(parts, " ")
}

// String omits the password.
func (p ConnParams) String() string {
	return fmt.Sprintf("%s@%s:%d/%s", p.User, p.Host, p.Port, p.Database)
}

func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " '\\\t\n") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
