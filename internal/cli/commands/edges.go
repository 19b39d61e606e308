package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/viewlineage/internal/lineage"
)

// NewEdgesCommand creates the edges command.
func NewEdgesCommand() *cobra.Command {
	return newEdgesCommand(engineHooks{})
}

func newEdgesCommand(hooks engineHooks) *cobra.Command {
	return &cobra.Command{
		Use:   "edges",
		Short: "List view dependencies without touching the graph",
		Long: `Read view dependencies from the Redshift catalog and print them.

The graph store is not contacted, so no Neo4j settings are needed.`,
		Example: `  # Print dependencies as a table
  viewlineage edges --redshift_secret_name redshift/lineage

  # Print dependencies as JSON, excluding a scratch schema
  viewlineage edges -o json --exclude_schema scratch \
    --redshift_host cluster.example.com --redshift_port 5439 --redshift_dbname dev`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEdges(cmd, hooks)
		},
	}
}

func runEdges(cmd *cobra.Command, hooks engineHooks) error {
	cmdCtx := NewCommandContext(cmd)
	if err := cmdCtx.Cfg.ValidateRead(); err != nil {
		return err
	}

	eng, err := cmdCtx.NewEngine(hooks, false)
	if err != nil {
		return err
	}

	edges, err := eng.ReadDependencies(cmd.Context())
	if err != nil {
		return err
	}

	if cmdCtx.Cfg.OutputFormat == "json" {
		return renderEdgesJSON(cmd.OutOrStdout(), edges)
	}
	renderEdgesTable(cmd.OutOrStdout(), edges)
	return nil
}

func renderEdgesTable(w io.Writer, edges []lineage.DependencyEdge) {
	if len(edges) == 0 {
		_, _ = fmt.Fprintln(w, "(0 edges)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Source", "Source Type", "Target", "Target Type"})
	for _, e := range edges {
		t.AppendRow(table.Row{e.Source().FullName(), e.SourceType, e.Target().FullName(), e.TargetType})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d edges)\n", len(edges))
}

func renderEdgesJSON(w io.Writer, edges []lineage.DependencyEdge) error {
	if edges == nil {
		edges = []lineage.DependencyEdge{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(edges)
}
