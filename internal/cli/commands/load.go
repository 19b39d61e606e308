package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// RunLoad rebuilds the lineage graph from the warehouse catalog. It is the
// root command's action.
func RunLoad(cmd *cobra.Command, _ []string) error {
	return runLoad(cmd, engineHooks{})
}

func runLoad(cmd *cobra.Command, hooks engineHooks) error {
	cmdCtx := NewCommandContext(cmd)
	if err := cmdCtx.Cfg.Validate(); err != nil {
		return err
	}

	eng, err := cmdCtx.NewEngine(hooks, true)
	if err != nil {
		return err
	}

	result, err := eng.Run(cmd.Context())
	if err != nil {
		return err
	}

	if !result.GraphLoaded {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No view dependencies found")
		return nil
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d of %d lineage edges\n", result.Load.Written, result.Edges)
	if result.Load.Failed > 0 {
		cmdCtx.Logger.Warn("some lineage edges were skipped", slog.Int("failed", result.Load.Failed))
		if cmdCtx.Cfg.Strict {
			return fmt.Errorf("%d of %d lineage edges could not be written", result.Load.Failed, result.Edges)
		}
	}
	return nil
}
