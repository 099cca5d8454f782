package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newhook/triage/internal/config"
)

func TestRunConfigInit(t *testing.T) {
	stateDir := useTestState(t, &config.Config{})
	prevForce := flagConfigForce
	t.Cleanup(func() { flagConfigForce = prevForce })
	flagConfigForce = false

	var out bytes.Buffer
	configInitCmd.SetOut(&out)
	t.Cleanup(func() { configInitCmd.SetOut(nil) })

	require.NoError(t, runConfigInit(configInitCmd, nil))
	assert.Contains(t, out.String(), config.DefaultPath(stateDir))

	cfg, err := config.LoadConfig(config.DefaultPath(stateDir))
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Output.GetFormat())

	err = runConfigInit(configInitCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	flagConfigForce = true
	require.NoError(t, runConfigInit(configInitCmd, nil))
}

func TestConfigInit_WritesToNewConfigFlagPath(t *testing.T) {
	stateDir := useTestState(t, nil)
	prevConfig, prevForce := flagConfig, flagConfigForce
	t.Cleanup(func() {
		flagConfig, flagConfigForce = prevConfig, prevForce
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})

	path := filepath.Join(t.TempDir(), "mine.toml")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--state-dir", stateDir, "--config", path, "config", "init"})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), path)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 80, cfg.Output.GetWidth())
}

func TestLoadConfig_MissingConfigFlagFile(t *testing.T) {
	prevConfig := flagConfig
	t.Cleanup(func() { flagConfig = prevConfig })
	flagConfig = filepath.Join(t.TempDir(), "absent.toml")

	_, err := loadConfig(false)
	assert.Error(t, err)

	cfg, err := loadConfig(true)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Output.GetFormat())
}
