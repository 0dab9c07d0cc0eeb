package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse([]string{"simids"}, &out)
		require.NoError(t, err)
		require.False(t, exit)

		assert.Equal(t, "simids", cfg.Command)
		assert.Equal(t, "simflow-config.hcl", cfg.ConfigPath)
		assert.Equal(t, "stp", cfg.Tier)
		assert.Equal(t, "0000", cfg.Jobid)
		assert.Equal(t, 4, cfg.Workers)
		assert.Empty(t, cfg.Simlist)
		assert.False(t, cfg.DryRun)
	})

	t.Run("all flags", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse([]string{
			"-config", "prod.hcl",
			"-log-format", "json",
			"-log-level", "debug",
			"-tier", "ver",
			"-simlist", "ver.birds, stp.gamma-lines",
			"-jobid", "0003",
			"-threads", "8",
			"-workers", "16",
			"-max-files", "2",
			"-macro-free",
			"-dry-run",
			"-force",
			"-json",
			"run",
		}, &out)
		require.NoError(t, err)
		require.False(t, exit)

		assert.Equal(t, "run", cfg.Command)
		assert.Equal(t, "prod.hcl", cfg.ConfigPath)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "ver", cfg.Tier)
		assert.Equal(t, []string{"ver.birds", "stp.gamma-lines"}, cfg.Simlist)
		assert.Equal(t, "0003", cfg.Jobid)
		assert.Equal(t, 8, cfg.Threads)
		assert.Equal(t, 16, cfg.Workers)
		assert.Equal(t, 2, cfg.MaxFiles)
		assert.True(t, cfg.MacroFree)
		assert.True(t, cfg.DryRun)
		assert.True(t, cfg.Force)
		assert.True(t, cfg.JSON)
	})

	t.Run("no command shows usage and exits cleanly", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse(nil, &out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	})

	t.Run("help exits cleanly", func(t *testing.T) {
		var out bytes.Buffer
		_, exit, err := Parse([]string{"-h"}, &out)
		require.NoError(t, err)
		assert.True(t, exit)
	})

	t.Run("unknown command", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"frobnicate"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
	})

	t.Run("invalid log settings", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"-log-format", "xml", "simids"}, &out)
		assert.ErrorContains(t, err, "invalid log-format")

		_, _, err = Parse([]string{"-log-level", "loud", "simids"}, &out)
		assert.ErrorContains(t, err, "invalid log-level")
	})

	t.Run("unknown flag", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"-nope", "simids"}, &out)
		var exitErr *ExitError
		assert.ErrorAs(t, err, &exitErr)
	})
}
