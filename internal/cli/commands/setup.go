package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/viewlineage/internal/cli/config"
	"github.com/leapstack-labs/viewlineage/internal/credentials"
	"github.com/leapstack-labs/viewlineage/internal/engine"
	"github.com/leapstack-labs/viewlineage/internal/instancemeta"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Prompter *credentials.Prompter
}

// engineHooks replaces the store connections in tests.
type engineHooks struct {
	openCatalog engine.CatalogOpener
	openGraph   engine.GraphOpener
	newClient   credentials.ClientFactory
}

// NewCommandContext creates a CommandContext from the command's context.
// Prompts read from the command's input and are written to its error stream.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	return &CommandContext{
		Cfg:      config.GetConfig(cmd.Context()),
		Logger:   config.GetLogger(cmd.Context()),
		Prompter: credentials.NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()),
	}
}

// CredentialSource picks the secrets store when a secret name is configured
// and the directly supplied parameters otherwise.
func (c *CommandContext) CredentialSource(hooks engineHooks) credentials.Source {
	if c.Cfg.UsesSecretsStore() {
		newClient := hooks.newClient
		if newClient == nil {
			newClient = credentials.NewAWSClient
		}
		opts := c.Cfg.MetadataOptions()
		opts.Logger = c.Logger
		return credentials.SecretsManager{
			SecretName: c.Cfg.Redshift.SecretName,
			Region:     c.Cfg.AWS.Region,
			Regions:    instancemeta.NewResolver(opts),
			NewClient:  newClient,
			SSLMode:    c.Cfg.Redshift.SSLMode,
			Logger:     c.Logger,
		}
	}
	return credentials.Direct{Params: c.Cfg.ConnParams(), Prompter: c.Prompter}
}

// NewEngine builds an engine for the current configuration. withGraph
// prompts for any missing graph credentials first.
func (c *CommandContext) NewEngine(hooks engineHooks, withGraph bool) (*engine.Engine, error) {
	graphCfg := c.Cfg.GraphConfig()
	if withGraph {
		if err := c.Prompter.FillLogin("Neo4j", &graphCfg.Username, &graphCfg.Password); err != nil {
			return nil, err
		}
	}

	return engine.New(engine.Config{
		Credentials:    c.CredentialSource(hooks),
		Graph:          graphCfg,
		ExcludeSchemas: c.Cfg.ExcludeSchemas,
		Logger:         c.Logger,
		OpenCatalog:    hooks.openCatalog,
		OpenGraph:      hooks.openGraph,
	})
}
