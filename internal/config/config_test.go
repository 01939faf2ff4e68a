package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMergedDefaultsWhenNoFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("APPDATA", "")

	cfg, src, err := LoadMerged(Options{})
	require.NoError(t, err)

	assert.Contains(t, src, "default config in memory")
	assert.Equal(t, ".", cfg.Output)
	assert.Equal(t, "auto", cfg.Browser)
	assert.True(t, cfg.SkipTiny)
	assert.True(t, cfg.CBZ)
}

func TestLoadMergedFlagOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("APPDATA", "")

	cfg, _, err := LoadMerged(Options{
		Output:   "/tmp/out",
		Browser:  "never",
		KeepTiny: true,
		PDF:      true,
	})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/out", cfg.Output)
	assert.Equal(t, "never", cfg.Browser)
	assert.False(t, cfg.SkipTiny, "keep-tiny turns the default off")
	assert.True(t, cfg.PDF)
	assert.True(t, cfg.CBZ, "file default survives")
}

func TestLoadMergedReadsFile(t *testing.T) {
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", root)
	t.Setenv("APPDATA", "")

	dir := filepath.Join(root, "comicgrab")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "config.yaml"),
		[]byte("output: /media/comics\nbrowser: always\nepub: true\n"),
		0644,
	))

	cfg, src, err := LoadMerged(Options{})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "config.yaml"), src)
	assert.Equal(t, "/media/comics", cfg.Output)
	assert.Equal(t, "always", cfg.Browser)
	assert.True(t, cfg.EPUB)
	assert.True(t, cfg.SkipTiny, "unset key keeps its default")
}

func TestLoadMergedInvalidBrowserFallsBack(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("APPDATA", "")

	cfg, _, err := LoadMerged(Options{Browser: "sometimes"})
	require.NoError(t, err)
	assert.Equal(t, "auto", cfg.Browser)
}

func TestInitCreatesOnce(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("APPDATA", "")

	path, err := Init()
	require.NoError(t, err)
	assert.FileExists(t, path)

	again, err := Init()
	assert.ErrorIs(t, err, os.ErrExist)
	assert.Equal(t, path, again)
}
