package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("flags and step", func(t *testing.T) {
		var out bytes.Buffer
		cfg, step, exit, err := Parse([]string{
			"-config", "rig.hcl",
			"-data-dir", "/tmp/data",
			"-log-level", "DEBUG",
			"-skip-missing",
			"-skip-mesh", "L_cheek_mesh, R_cheek_mesh",
			"import-weights",
		}, &out)
		require.NoError(t, err)
		require.False(t, exit)

		assert.Equal(t, "rig.hcl", cfg.ConfigPath)
		assert.Equal(t, "/tmp/data", cfg.DataDir)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.True(t, cfg.SkipMissing)
		assert.Equal(t, []string{"L_cheek_mesh", "R_cheek_mesh"}, cfg.SkipMeshes)
		assert.Equal(t, "import-weights", step)
	})

	t.Run("shorthand config flag wins", func(t *testing.T) {
		var out bytes.Buffer
		cfg, _, _, err := Parse([]string{"-config", "a.hcl", "-c", "b.hcl", "export-data"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "b.hcl", cfg.ConfigPath)
	})

	t.Run("environment supplies the config default", func(t *testing.T) {
		t.Setenv("FACERIG_CONFIG", "env.hcl")
		t.Setenv("FACERIG_LOG_FORMAT", "json")

		var out bytes.Buffer
		cfg, _, _, err := Parse([]string{"export-data"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "env.hcl", cfg.ConfigPath)
		assert.Equal(t, "json", cfg.LogFormat)
	})

	t.Run("no arguments prints usage and exits cleanly", func(t *testing.T) {
		var out bytes.Buffer
		_, _, exit, err := Parse([]string{}, &out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Contains(t, out.String(), "Steps")
	})

	t.Run("missing config is an exit error", func(t *testing.T) {
		t.Setenv("FACERIG_CONFIG", "")
		var out bytes.Buffer
		_, _, _, err := Parse([]string{"export-data"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
	})

	t.Run("invalid log level is rejected", func(t *testing.T) {
		var out bytes.Buffer
		_, _, _, err := Parse([]string{"-config", "a.hcl", "-log-level", "loud", "export-data"}, &out)
		assert.ErrorContains(t, err, "invalid log-level")
	})

	t.Run("more than one step is rejected", func(t *testing.T) {
		var out bytes.Buffer
		_, _, _, err := Parse([]string{"-config", "a.hcl", "export-data", "import-data"}, &out)
		assert.ErrorContains(t, err, "exactly one step")
	})
}
