// Package graph materializes dependency edges as a lineage graph in a
// Bolt-protocol graph store.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/leapstack-labs/viewlineage/internal/lineage"
)

// RelSourceToTarget is the relationship type of every lineage edge.
const RelSourceToTarget = "source_to_target"

const clearGraphCypher = `MATCH (n) DETACH DELETE n`

// Runner executes one Cypher statement to completion.
type Runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) error
}

// Writer applies dependency edges to the graph store.
type Writer struct {
	runner Runner
	close  func(ctx context.Context) error
	logger *slog.Logger
}

// LoadSummary reports how many edges a Load wrote.
type LoadSummary struct {
	Written int
	Failed  int
}

// NewWriter creates a writer on top of runner.
// If logger is nil, a discard logger is used.
func NewWriter(runner Runner, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Writer{runner: runner, logger: logger}
}

// ClearGraph deletes every node and relationship.
func (w *Writer) ClearGraph(ctx context.Context) error {
	if err := w.runner.Run(ctx, clearGraphCypher, nil); err != nil {
		return fmt.Errorf("failed to clear graph: %w", err)
	}
	w.logger.Info("graph has been cleaned")
	return nil
}

// AddPair merges both endpoint nodes and the edge between them.
func (w *Writer) AddPair(ctx context.Context, edge lineage.DependencyEdge) error {
	if err := edge.Validate(); err != nil {
		return fmt.Errorf("lineage %s: %w", edge, err)
	}

	if err := w.runner.Run(ctx, mergePairCypher(edge), mergePairParams(edge)); err != nil {
		return fmt.Errorf("failed to create lineage %s: %w", edge, err)
	}
	w.logger.Info("lineage created", slog.String("edge", edge.String()))
	return nil
}

// Load clears the graph and adds every edge. A failed clear aborts the
// load; a failed edge is logged and skipped.
func (w *Writer) Load(ctx context.Context, edges []lineage.DependencyEdge) (LoadSummary, error) {
	var summary LoadSummary
	if err := w.ClearGraph(ctx); err != nil {
		return summary, err
	}

	for _, edge := range edges {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := w.AddPair(ctx, edge); err != nil {
			summary.Failed++
			w.logger.Error("skipping lineage edge", slog.String("edge", edge.String()), slog.Any("error", err))
			continue
		}
		summary.Written++
	}

	w.logger.Info("lineage load finished", slog.Int("written", summary.Written), slog.Int("failed", summary.Failed))
	return summary, nil
}

// Close releases the underlying session and driver, if any.
func (w *Writer) Close(ctx context.Context) error {
	if w.close == nil {
		return nil
	}
	err := w.close(ctx)
	w.close = nil
	w.logger.Info("disconnected from neo4j")
	return err
}

// mergePairCypher builds the upsert statement. Labels cannot be bound as
// parameters, so they come from the validated object type only.
func mergePairCypher(edge lineage.DependencyEdge) string {
	return fmt.Sprintf(`MERGE (src:%s {type: $src_type, schema: $src_schema, name: $src_name, fullname: $src_fullname})
MERGE (tgt:%s {type: $tgt_type, schema: $tgt_schema, name: $tgt_name, fullname: $tgt_fullname})
MERGE (src)-[:%s]->(tgt)`, label(edge.SourceType), label(edge.TargetType), RelSourceToTarget)
}

func mergePairParams(edge lineage.DependencyEdge) map[string]any {
	src, tgt := edge.Source(), edge.Target()
	return map[string]any{
		"src_type":     src.Type.String(),
		"src_schema":   src.Schema,
		"src_name":     src.Name,
		"src_fullname": src.FullName(),
		"tgt_type":     tgt.Type.String(),
		"tgt_schema":   tgt.Schema,
		"tgt_name":     tgt.Name,
		"tgt_fullname": tgt.FullName(),
	}
}

func label(t lineage.ObjectType) string {
	if !t.Valid() {
		panic("graph: unvalidated object type " + strconv.Quote(string(t)))
	}
	return t.String()
}
