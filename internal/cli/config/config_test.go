package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/peerwatch/peerwatch/internal/config"
)

// newTestRoot mimics the root command: a persistent --config flag and a
// loader that reads it.
func newTestRoot() *cobra.Command {
	root := &cobra.Command{Use: "peerwatch", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().StringP("config", "c", "", "")

	load := func(cmd *cobra.Command) (*config.Config, error) {
		path, _ := cmd.Flags().GetString("config")
		return config.Load(path)
	}
	root.AddCommand(NewConfigCmd(load))
	return root
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newTestRoot()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewConfigCmd(t *testing.T) {
	cmd := NewConfigCmd(nil)
	assert.Equal(t, "config", cmd.Use)

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"view", "validate"}, names)
}

func TestView(t *testing.T) {
	path := writeConfig(t, "store:\n  ttl: 6h\n")

	out, _, err := run(t, "config", "view", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "# Config file: "+path+" (loaded)")
	assert.Contains(t, out, "ttl: 6h0m0s")

	out, _, err = run(t, "config", "view", "--raw", "--config", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "#")

	var cfg map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Contains(t, cfg, "store")
}

func TestView_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	out, _, err := run(t, "config", "view", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "not present, using defaults")
}

func TestValidate(t *testing.T) {
	out, _, err := run(t, "config", "validate", "--config", writeConfig(t, "store:\n  ttl: 1h\n"))
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration OK")

	_, errOut, err := run(t, "config", "validate", "--config", writeConfig(t, "store:\n  ttl: 0s\nsource:\n  kind: netstat\n"))
	require.Error(t, err)
	assert.Contains(t, errOut, "store.ttl")
	assert.Contains(t, errOut, "source.kind")
}
