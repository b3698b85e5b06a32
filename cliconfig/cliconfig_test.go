package cliconfig

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, []string{CollectorNone}, cfg.Collectors)
	assert.Equal(t, 3, cfg.FormatVersion)
	assert.Equal(t, "all", cfg.AliasModel)
	assert.False(t, cfg.WholeProgram)
	assert.False(t, cfg.Prune)
	assert.NoError(t, Validate(cfg))
}

func TestLoadFromPath_Missing(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFromPath_Overrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	contents := "collectors: [NumStatements, OverrideMD]\nalias_model: none\nwhole_program: true\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"NumStatements", "OverrideMD"}, cfg.Collectors)
	assert.Equal(t, "none", cfg.AliasModel)
	assert.True(t, cfg.WholeProgram)
	assert.Equal(t, 3, cfg.FormatVersion, "unset fields fall back to defaults")
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFromPath_InvalidAliasModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("alias_model: bogus\n"), 0o644))

	_, err := LoadFromPath(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFindConfigDir_WalksUp(t *testing.T) {
	root := t.TempDir()
	configDir := filepath.Join(root, ConfigDirName)
	require.NoError(t, os.MkdirAll(configDir, 0o755))

	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindConfigDir(nested)
	require.NoError(t, err)
	assert.Equal(t, configDir, found)
}

func TestFindConfigDir_NotFound(t *testing.T) {
	_, err := FindConfigDir(t.TempDir())
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestResolveCollectors_None(t *testing.T) {
	cfg := DefaultConfig()
	descriptors, wantOverride := cfg.ResolveCollectors()
	assert.Nil(t, descriptors)
	assert.False(t, wantOverride)
}

func TestResolveCollectors_All(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Collectors = []string{CollectorAll}
	descriptors, wantOverride := cfg.ResolveCollectors()
	assert.True(t, wantOverride)
	names := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, "NumStatementsCollector")
	assert.Contains(t, names, "UniqueTypeCollector")
	assert.NotContains(t, names, "OverrideCollector", "OverrideMD is reported via wantOverride, not a descriptor")
}

func TestResolveCollectors_Explicit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Collectors = []string{CollectorLoopDepth, CollectorOverrideMD}
	descriptors, wantOverride := cfg.ResolveCollectors()
	require.Len(t, descriptors, 1)
	assert.Equal(t, "LoopDepthCollector", descriptors[0].Name)
	assert.True(t, wantOverride)
}

func TestValidate_UnknownCollector(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Collectors = []string{"NotACollector"}
	assert.ErrorIs(t, Validate(cfg), ErrInvalidConfig)
}

func TestLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "warn"
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}
