package config_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drumondpe/APS-LogComp/pkg/config"
	"github.com/drumondpe/APS-LogComp/pkg/diagnostics"
	"github.com/drumondpe/APS-LogComp/pkg/evaluator"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// isolate points HOME at an empty directory so the user file never leaks in.
func isolate(t *testing.T) (project, home string) {
	t.Helper()
	project, home = t.TempDir(), t.TempDir()
	t.Setenv("HOME", home)
	return project, home
}

func TestLoad_Defaults(t *testing.T) {
	project, _ := isolate(t)

	cfg, src, err := config.Load("", project)
	require.NoError(t, err)
	assert.Equal(t, "", src)
	assert.Equal(t, config.Defaults, cfg)
	assert.Equal(t, evaluator.DefaultMaxCallDepth, cfg.Interpreter.MaxCallDepth)
	assert.True(t, cfg.Output.Pretty)
}

func TestLoad_ProjectOverridesUser(t *testing.T) {
	project, home := isolate(t)
	writeFile(t, filepath.Join(home, ".aps", "config.toml"), "[Interpreter]\nMaxCallDepth = 10\n")
	writeFile(t, filepath.Join(project, "aps.toml"), "[Interpreter]\nMaxIterations = 500\n")

	cfg, src, err := config.Load("", project)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(project, "aps.toml"), src)
	assert.Equal(t, int64(500), cfg.Interpreter.MaxIterations)
	// Files do not merge; unset keys keep their defaults.
	assert.Equal(t, evaluator.DefaultMaxCallDepth, cfg.Interpreter.MaxCallDepth)
}

func TestLoad_UserFile(t *testing.T) {
	project, home := isolate(t)
	writeFile(t, filepath.Join(home, ".aps", "config.toml"), "[Log]\nLevel = \"debug\"\nFormat = \"json\"\n")

	cfg, src, err := config.Load("", project)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".aps", "config.toml"), src)
	assert.Equal(t, config.Log{Level: "debug", Format: "json"}, cfg.Log)
}

func TestLoad_ExplicitPath(t *testing.T) {
	project, _ := isolate(t)
	writeFile(t, filepath.Join(project, "aps.toml"), "[Output]\nColor = \"always\"\n")
	explicit := filepath.Join(t.TempDir(), "custom.toml")
	writeFile(t, explicit, "[Output]\nPretty = false\n")

	cfg, src, err := config.Load(explicit, project)
	require.NoError(t, err)
	assert.Equal(t, explicit, src)
	assert.False(t, cfg.Output.Pretty)
	assert.Equal(t, "auto", cfg.Output.Color)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown key", "[Interpreter]\nBogus = 1\n", "Bogus"},
		{"bad color", "[Output]\nColor = \"rainbow\"\n", "Output.Color"},
		{"bad level", "[Log]\nLevel = \"loud\"\n", "Log.Level"},
		{"bad format", "[Log]\nFormat = \"xml\"\n", "Log.Format"},
		{"zero depth", "[Interpreter]\nMaxCallDepth = 0\n", "MaxCallDepth"},
		{"syntax", "[Interpreter\n", "aps.toml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project, _ := isolate(t)
			writeFile(t, filepath.Join(project, "aps.toml"), tt.content)

			_, _, err := config.Load("", project)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			var cerr *config.Error
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, diagnostics.EConfig, cerr.Diagnostic().Code)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	project, _ := isolate(t)
	_, _, err := config.Load(filepath.Join(project, "nope.toml"), project)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	var cerr *config.Error
	assert.True(t, errors.As(err, &cerr))
}

func TestDumpRoundTrip(t *testing.T) {
	cfg := config.Defaults
	cfg.Interpreter.MaxIterations = 42
	cfg.Log.Format = "logfmt"

	var buf bytes.Buffer
	require.NoError(t, config.Dump(&buf, cfg))
	assert.Contains(t, buf.String(), "MaxCallDepth")
	assert.Contains(t, buf.String(), "[Log]")

	path := filepath.Join(t.TempDir(), "dump.toml")
	writeFile(t, path, buf.String())
	var loaded config.Config
	require.NoError(t, config.LoadFile(path, &loaded))
	assert.Equal(t, cfg, loaded)
}

func TestLimits(t *testing.T) {
	cfg := config.Defaults
	cfg.Interpreter.MaxIterations = 7
	assert.Equal(t, evaluator.Limits{MaxCallDepth: evaluator.DefaultMaxCallDepth, MaxIterations: 7}, cfg.Limits())
}
