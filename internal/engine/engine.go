// Package engine runs one lineage extraction: read the dependency catalog,
// then clear and reload the lineage graph.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/viewlineage/internal/catalog"
	"github.com/leapstack-labs/viewlineage/internal/credentials"
	"github.com/leapstack-labs/viewlineage/internal/graph"
	"github.com/leapstack-labs/viewlineage/internal/lineage"
)

// CatalogReader reads dependency edges from the warehouse.
type CatalogReader interface {
	ViewDependencies(ctx context.Context, excluded catalog.ExclusionSet) ([]lineage.DependencyEdge, error)
	Close() error
}

// LineageWriter loads dependency edges into the graph store.
type LineageWriter interface {
	Load(ctx context.Context, edges []lineage.DependencyEdge) (graph.LoadSummary, error)
	Close(ctx context.Context) error
}

// CatalogOpener connects a CatalogReader.
type CatalogOpener func(ctx context.Context, params catalog.ConnParams, logger *slog.Logger) (CatalogReader, error)

// GraphOpener connects a LineageWriter.
type GraphOpener func(ctx context.Context, cfg graph.Config, logger *slog.Logger) (LineageWriter, error)

// Config holds engine configuration.
type Config struct {
	// Credentials resolves the warehouse connection parameters.
	Credentials credentials.Source
	// Graph is the graph store connection.
	Graph graph.Config
	// ExcludeSchemas is added to catalog.DefaultExcludedSchemas.
	ExcludeSchemas []string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger

	// OpenCatalog and OpenGraph default to the pgx and neo4j implementations.
	OpenCatalog CatalogOpener
	OpenGraph   GraphOpener
}

// Result describes a completed run.
type Result struct {
	Edges       int
	GraphLoaded bool
	Load        graph.LoadSummary
}

// Engine orchestrates the reader and the writer.
type Engine struct {
	creds       credentials.Source
	graphCfg    graph.Config
	excluded    catalog.ExclusionSet
	openCatalog CatalogOpener
	openGraph   GraphOpener
	logger      *slog.Logger
}

// New validates cfg and creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Credentials == nil {
		return nil, errors.New("engine: credential source is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	openCatalog := cfg.OpenCatalog
	if openCatalog == nil {
		openCatalog = openPgxCatalog
	}
	openGraph := cfg.OpenGraph
	if openGraph == nil {
		openGraph = openNeo4jGraph
	}

	return &Engine{
		creds:       cfg.Credentials,
		graphCfg:    cfg.Graph,
		excluded:    catalog.NewExclusionSet(cfg.ExcludeSchemas...),
		openCatalog: openCatalog,
		openGraph:   openGraph,
		logger:      logger,
	}, nil
}

// ExcludedSchemas returns the schemas in effect for this engine.
func (e *Engine) ExcludedSchemas() catalog.ExclusionSet {
	return e.excluded
}

// ReadDependencies resolves credentials, reads the catalog and disconnects.
func (e *Engine) ReadDependencies(ctx context.Context) ([]lineage.DependencyEdge, error) {
	params, err := e.creds.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve redshift credentials: %w", err)
	}

	reader, err := e.openCatalog(ctx, params, e.logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := reader.Close(); cerr != nil {
			e.logger.Error("failed to close redshift connection", slog.Any("error", cerr))
		}
	}()

	e.logger.Debug("reading view dependencies", slog.Any("excluded_schemas", []string(e.excluded)))
	return reader.ViewDependencies(ctx, e.excluded)
}

// Run reads the catalog and, when it yields any edges, rebuilds the graph.
// An empty catalog leaves the graph untouched.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	edges, err := e.ReadDependencies(ctx)
	if err != nil {
		return Result{}, err
	}

	result := Result{Edges: len(edges)}
	if len(edges) == 0 {
		e.logger.Info("no view dependencies found, graph left unchanged")
		return result, nil
	}

	writer, err := e.openGraph(ctx, e.graphCfg, e.logger)
	if err != nil {
		return result, err
	}
	defer func() {
		if cerr := writer.Close(context.WithoutCancel(ctx)); cerr != nil {
			e.logger.Error("failed to close neo4j connection", slog.Any("error", cerr))
		}
	}()

	summary, err := writer.Load(ctx, edges)
	result.Load = summary
	if err != nil {
		return result, err
	}
	result.GraphLoaded = true
	return result, nil
}

func openPgxCatalog(ctx context.Context, params catalog.ConnParams, logger *slog.Logger) (CatalogReader, error) {
	reader, err := catalog.Open(ctx, params, logger)
	if err != nil {
		return nil, err
	}
	return reader, nil
}

func openNeo4jGraph(ctx context.Context, cfg graph.Config, logger *slog.Logger) (LineageWriter, error) {
	writer, err := graph.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return writer, nil
}
