// Package catalog reads view dependency edges from a Redshift-compatible
// system catalog.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/leapstack-labs/viewlineage/internal/lineage"
)

// Reader runs the dependency query against an open connection pool.
type Reader struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to the warehouse described by params.
// If logger is nil, a discard logger is used.
func Open(ctx context.Context, params ConnParams, logger *slog.Logger) (*Reader, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Debug("connecting to redshift", slog.String("host", params.Host), slog.String("database", params.Database))

	db, err := sql.Open("pgx", params.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open redshift connection: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to redshift %s: %w", params, err)
	}

	logger.Info("connected to redshift", slog.String("host", params.Host), slog.String("database", params.Database))
	return NewReader(db, logger), nil
}

// NewReader wraps an existing connection pool.
func NewReader(db *sql.DB, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reader{db: db, logger: logger}
}

// Close releases the connection pool.
func (r *Reader) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	r.logger.Info("disconnected from redshift")
	return err
}

// ViewDependencies returns every (source object, dependent view) pair whose
// view schema is not excluded.
func (r *Reader) ViewDependencies(ctx context.Context, excluded ExclusionSet) ([]lineage.DependencyEdge, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	query := buildDependencyQuery(len(excluded))
	rows, err := r.db.QueryContext(ctx, query, excluded.args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to query view dependencies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var edges []lineage.DependencyEdge
	for rows.Next() {
		var row dependencyRow
		if err := rows.Scan(
			&row.srcOID, &row.srcType, &row.srcSchema, &row.srcName,
			&row.tgtOID, &row.tgtType, &row.tgtSchema, &row.tgtName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan view dependency: %w", err)
		}

		edge, err := row.edge(excluded)
		if err != nil {
			r.logger.Warn("skipping catalog row", slog.Any("error", err))
			continue
		}
		edges = append(edges, edge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating view dependencies: %w", err)
	}

	r.logger.Info("view dependencies read", slog.Int("edges", len(edges)))
	return edges, nil
}

type dependencyRow struct {
	srcOID    int64
	srcType   sql.NullString
	srcSchema sql.NullString
	srcName   string
	tgtOID    int64
	tgtType   sql.NullString
	tgtSchema sql.NullString
	tgtName   string
}

// edge converts the row, rejecting rows that break the query's guarantees.
func (d dependencyRow) edge(excluded ExclusionSet) (lineage.DependencyEdge, error) {
	if d.srcOID == d.tgtOID {
		return lineage.DependencyEdge{}, fmt.Errorf("self dependency on oid %d", d.srcOID)
	}
	if lineage.ObjectType(d.tgtType.String) != lineage.ObjectView {
		return lineage.DependencyEdge{}, fmt.Errorf("dependent object %s.%s is not a view", d.tgtSchema.String, d.tgtName)
	}
	if excluded.Contains(d.tgtSchema.String) {
		return lineage.DependencyEdge{}, fmt.Errorf("dependent schema %q is excluded", d.tgtSchema.String)
	}

	srcType, err := lineage.ParseObjectType(d.srcType.String)
	if err != nil {
		return lineage.DependencyEdge{}, fmt.Errorf("source %s.%s: %w", d.srcSchema.String, d.srcName, err)
	}

	edge := lineage.DependencyEdge{
		SourceType:   srcType,
		SourceSchema: d.srcSchema.String,
		SourceName:   d.srcName,
		TargetType:   lineage.ObjectView,
		TargetSchema: d.tgtSchema.String,
		TargetName:   d.tgtName,
	}
	if err := edge.Validate(); err != nil {
		return lineage.DependencyEdge{}, err
	}
	return edge, nil
}
