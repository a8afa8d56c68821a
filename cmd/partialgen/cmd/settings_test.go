package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/syssam/partialgen/compiler/diag"
	"github.com/syssam/partialgen/compiler/gen"
)

func parseSettings(t *testing.T, args ...string) (*Settings, error) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addFlags(fs)
	require.NoError(t, fs.Parse(args))
	return loadSettings(fs)
}

func TestSettingsDefaults(t *testing.T) {
	s, err := parseSettings(t, "--dir", t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, s.Workers)
	assert.False(t, s.DryRun)
	assert.Empty(t, s.Tags)
	assert.Equal(t, 300*time.Millisecond, s.Debounce)
	assert.Nil(t, s.buildFlags())
	sev, err := s.severity()
	require.NoError(t, err)
	assert.Equal(t, diag.SevInfo, sev)
}

func TestSettingsSeverity(t *testing.T) {
	t.Setenv("PARTIALGEN_MIN_SEVERITY", "warning")
	s, err := parseSettings(t, "--dir", t.TempDir())
	require.NoError(t, err)
	sev, err := s.severity()
	require.NoError(t, err)
	assert.Equal(t, diag.SevWarning, sev)

	s, err = parseSettings(t, "--dir", t.TempDir(), "--min-severity", "loud")
	require.NoError(t, err)
	_, err = s.severity()
	assert.ErrorContains(t, err, `min-severity: unknown severity "loud"`)
}

func TestSettingsPrecedence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigName+".yaml"), []byte(`workers: 3
dry-run: true
prune: true
tags: [integration, e2e]
debounce: 1s
marker: example.com/model.Entity
mapper-name: CopyChangesTo
fold-names: true
`), 0o644))

	t.Run("configuration file", func(t *testing.T) {
		s, err := parseSettings(t, "--dir", dir)
		require.NoError(t, err)
		assert.Equal(t, 3, s.Workers)
		assert.True(t, s.DryRun)
		assert.True(t, s.Prune)
		assert.Equal(t, []string{"integration", "e2e"}, s.Tags)
		assert.Equal(t, []string{"-tags=integration,e2e"}, s.buildFlags())
		assert.Equal(t, time.Second, s.Debounce)
		assert.Equal(t, "example.com/model.Entity", s.Marker)
		assert.Equal(t, "CopyChangesTo", s.MapperName)
		assert.True(t, s.FoldNames)
	})

	t.Run("environment over file", func(t *testing.T) {
		t.Setenv("PARTIALGEN_WORKERS", "5")
		t.Setenv("PARTIALGEN_DRY_RUN", "false")
		t.Setenv("PARTIALGEN_MAPPER_NAME", "ApplyTo")
		s, err := parseSettings(t, "--dir", dir)
		require.NoError(t, err)
		assert.Equal(t, 5, s.Workers)
		assert.False(t, s.DryRun)
		assert.Equal(t, "ApplyTo", s.MapperName)
		assert.True(t, s.Prune)
	})

	t.Run("flags over environment", func(t *testing.T) {
		t.Setenv("PARTIALGEN_WORKERS", "5")
		s, err := parseSettings(t, "--dir", dir, "-j", "7", "--tags", "ci")
		require.NoError(t, err)
		assert.Equal(t, 7, s.Workers)
		assert.Equal(t, []string{"ci"}, s.Tags)
	})

	t.Run("explicit file", func(t *testing.T) {
		other := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(other, []byte("workers: 9\n"), 0o644))
		s, err := parseSettings(t, "--dir", dir, "--config", other)
		require.NoError(t, err)
		assert.Equal(t, 9, s.Workers)
		assert.False(t, s.DryRun)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := parseSettings(t, "--config", filepath.Join(dir, "missing.yaml"))
		assert.Error(t, err)
	})
}

func TestSettingsOptions(t *testing.T) {
	s := &Settings{
		Workers:    2,
		Debug:      true,
		Marker:     "example.com/model.Entity",
		MapperName: "CopyChangesTo",
		FileSuffix: ".gen.go",
		Cache:      filepath.Join(t.TempDir(), "cache"),
	}
	opts, err := s.options(zap.NewNop())
	require.NoError(t, err)
	cfg, err := gen.NewConfig(opts...)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "example.com/model.Entity", cfg.Marker)
	assert.Equal(t, "CopyChangesTo", cfg.MapperName)
	assert.Equal(t, ".gen.go", cfg.FileSuffix)
	assert.Equal(t, gen.DefaultHeader, cfg.Header)
	require.IsType(t, &gen.FileCache{}, cfg.Cache)
	assert.DirExists(t, s.Cache)

	_, err = gen.NewConfig(mustOptions(t, &Settings{Marker: "nodot"})...)
	assert.True(t, gen.IsConfigError(err))
}

func mustOptions(t *testing.T, s *Settings) []gen.Option {
	t.Helper()
	opts, err := s.options(zap.NewNop())
	require.NoError(t, err)
	return opts
}
