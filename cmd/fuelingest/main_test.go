package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets keys for the duration of the test and restores them afterwards.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func executeRoot(t *testing.T, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	root := newRootCmd()
	root.AddCommand(&cobra.Command{
		Use:  "noop",
		RunE: func(cmd *cobra.Command, args []string) error { return nil },
	})

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	return &out, root.Execute()
}

func TestEnvFileFlag(t *testing.T) {
	clearEnv(t, "ENV_FILE", "CONFIG_FILE", "LOG_LEVEL", "LOG_FORMAT", "SCHEDULE")

	path := filepath.Join(t.TempDir(), "ingest.env")
	require.NoError(t, os.WriteFile(path, []byte("CONFIG_FILE=/etc/fuel/settings.json\nLOG_LEVEL=debug\nLOG_FORMAT=console\nSCHEDULE=*/5 * * * *\n"), 0o600))

	_, err := executeRoot(t, "--env-file", path, "--log-level", "warn", "noop")
	require.NoError(t, err)

	assert.Equal(t, "/etc/fuel/settings.json", cfg.ConfigFile)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "*/5 * * * *", cfg.Schedule)
	// explicit flags win over the env file
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestEnvFileFlagMissingFile(t *testing.T) {
	clearEnv(t, "ENV_FILE")

	_, err := executeRoot(t, "--env-file", filepath.Join(t.TempDir(), "missing.env"), "noop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading env file")
}

func TestVersionCommand(t *testing.T) {
	clearEnv(t, "ENV_FILE")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	out, err := executeRoot(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "fuelingest dev (commit none, built unknown)\n", out.String())

	out, err = executeRoot(t, "version", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"dev","commit":"none","buildDate":"unknown"}`, out.String())
}
