package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// DefaultBoltPort is the port used when Config.Port is unset.
const DefaultBoltPort = 7687

// Config holds graph store connection settings.
type Config struct {
	Hostname string
	Port     int
	Username string
	Password string
	// Database selects a named database; empty uses the server default.
	Database string
}

// URI returns the Bolt endpoint.
func (c Config) URI() string {
	port := c.Port
	if port == 0 {
		port = DefaultBoltPort
	}
	return "bolt://" + c.Hostname + ":" + strconv.Itoa(port)
}

// Validate checks the settings required to connect.
func (c Config) Validate() error {
	if c.Hostname == "" {
		return errors.New("neo4j hostname is required")
	}
	return nil
}

// Open connects to the graph store and starts the write session used for
// the whole run.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI(), neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver for %s: %w", cfg.URI(), err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", cfg.URI(), err)
	}
	logger.Info("connected to neo4j", slog.String("uri", cfg.URI()))

	session := driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: cfg.Database,
	})

	w := NewWriter(sessionRunner{session: session}, logger)
	w.close = func(ctx context.Context) error {
		return errors.Join(session.Close(ctx), driver.Close(ctx))
	}
	return w, nil
}

// sessionRunner runs statements in auto-commit transactions.
type sessionRunner struct {
	session neo4j.SessionWithContext
}

func (r sessionRunner) Run(ctx context.Context, cypher string, params map[string]any) error {
	result, err := r.session.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}
