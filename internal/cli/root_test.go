package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/viewlineage/internal/cli/config"
	"github.com/leapstack-labs/viewlineage/internal/graph"
)

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "viewlineage", cmd.Use)
	assert.Contains(t, cmd.Long, graph.RelSourceToTarget+" relationship")
	assert.NotNil(t, cmd.RunE, "root command should load the graph")

	flags := []string{
		"config", "redshift_dbname", "redshift_host", "redshift_port", "redshift_secret_name",
		"redshift_sslmode", "neo4j_hostname", "neo4j_port", "neo4j_database", "exclude_schema",
		"region", "verbose", "log-format", "output", "strict",
	}
	for _, flag := range flags {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"version", "edges", "completion"})
}

func TestRoot_RequiresSource(t *testing.T) {
	_, err := executeRoot(t, "--neo4j_hostname", "graph.internal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "either --redshift_secret_name or")
}

func TestRoot_RequiresGraph(t *testing.T) {
	_, err := executeRoot(t, "--redshift_secret_name", "redshift/lineage")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--neo4j_hostname is required")
}

func TestRoot_RejectsArgs(t *testing.T) {
	_, err := executeRoot(t, "unexpected")
	assert.Error(t, err)
}

func TestEdges_InvalidOutput(t *testing.T) {
	_, err := executeRoot(t, "edges", "--redshift_secret_name", "s", "-o", "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestVersion(t *testing.T) {
	out, err := executeRoot(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "viewlineage v"+Version)
}

func TestCompletion(t *testing.T) {
	out, err := executeRoot(t, "completion", "bash")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "viewlineage"), "completion script should name the binary")

	_, err = executeRoot(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	buf := new(bytes.Buffer)

	logger := newLogger(buf, &config.Config{LogFormat: "json", Verbose: true})
	logger.Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	logger = newLogger(buf, &config.Config{LogFormat: "text"})
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}
