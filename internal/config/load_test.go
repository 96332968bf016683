package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headlamp-run/headlamp/internal/config"
	"github.com/headlamp-run/headlamp/internal/headlamperr"
)

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, path, err := config.Load(dir)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_JSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "headlamp.config.json", `{
		"runner": "cargo-nextest",
		"ci": true,
		"coverage": { "coverage": true, "coverageUi": "both" }
	}`)

	cfg, path, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "headlamp.config.json"), path)
	assert.Equal(t, "cargo-nextest", cfg.Runner)
	assert.True(t, cfg.CI)
	assert.True(t, cfg.Coverage.Enabled)
	assert.Equal(t, "both", cfg.Coverage.UI)
}

func TestLoad_JSON5(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "headlamp.config.json5", `{
		// pick the rust runner
		"runner": "cargo-test",
		"changedDepth": 3,
	}`)

	cfg, _, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "cargo-test", cfg.Runner)
	assert.Equal(t, 3, cfg.ChangedDepth)
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "headlamp.config.yaml", "runner: pytest\nverbose: true\n")

	cfg, _, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "pytest", cfg.Runner)
	assert.True(t, cfg.Verbose)
}

func TestLoad_TOML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "headlamp.config.toml", "runner = \"jest\"\nsequential = true\n")

	cfg, _, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "jest", cfg.Runner)
	assert.True(t, cfg.Sequential)
}

func TestLoad_TypedJSConfigRejected(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "headlamp.config.js", "module.exports = { runner: 'jest' }")

	_, _, err := config.Load(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, headlamperr.ErrConfigParse))
}

func TestLoad_InvalidEnumValueFailsSchema(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "headlamp.config.json", `{"runner": "mocha"}`)

	_, _, err := config.Load(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, headlamperr.ErrConfigParse))
}

func TestLoad_MalformedJSONFailsParse(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "headlamp.config.json", `{ not valid json`)

	_, _, err := config.Load(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, headlamperr.ErrConfigParse))
}

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o600))
}
