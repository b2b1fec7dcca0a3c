package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvCatalog, EnvRules, EnvImages, EnvDataDir} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kiln.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

// --- DefaultConfig ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "glaze_inventory.csv", cfg.Data.CatalogPath)
	assert.Equal(t, "glaze_rules.csv", cfg.Data.RulesPath)
	assert.Equal(t, "images", cfg.Data.ImagesDir)
	assert.Equal(t, ".kiln", filepath.Base(cfg.Data.DataDir))
	assert.Equal(t, 220, cfg.Preview.Size)
	assert.Equal(t, 4, cfg.Preview.Margin)
	assert.NoError(t, cfg.Validate())
}

// --- LoadConfigWithInfo ---

func TestLoad_MissingDefaultFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, info, err := LoadConfigWithInfo("")
	require.NoError(t, err)
	assert.False(t, info.FileFound)
	assert.Equal(t, DefaultFile, info.Path)
	assert.Equal(t, DefaultConfig().Data, cfg.Data)
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	clearEnv(t)
	_, _, err := LoadConfigWithInfo(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[data]
catalog_path = "/studio/inventory.csv"

[preview]
size = 300

[log]
level = "debug"
`)
	cfg, info, err := LoadConfigWithInfo(path)
	require.NoError(t, err)
	assert.True(t, info.FileFound)
	assert.Equal(t, "/studio/inventory.csv", cfg.Data.CatalogPath)
	assert.Equal(t, "glaze_rules.csv", cfg.Data.RulesPath, "unset keys keep defaults")
	assert.Equal(t, 300, cfg.Preview.Size)
	assert.Equal(t, 4, cfg.Preview.Margin)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[data]\nrules_path = \"file_rules.csv\"\n")
	t.Setenv(EnvRules, "env_rules.csv")
	t.Setenv(EnvImages, "/tmp/pics")

	cfg, info, err := LoadConfigWithInfo(path)
	require.NoError(t, err)
	assert.Equal(t, "env_rules.csv", cfg.Data.RulesPath)
	assert.Equal(t, "/tmp/pics", cfg.Data.ImagesDir)
	assert.ElementsMatch(t, []string{EnvRules, EnvImages}, info.EnvKeys)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	for name, body := range map[string]string{
		"syntax":     "[data\n",
		"size":       "[preview]\nsize = 0\n",
		"margin":     "[preview]\nmargin = -1\n",
		"level":      "[log]\nlevel = \"loud\"\n",
		"empty path": "[data]\ncatalog_path = \"\"\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := LoadConfigWithInfo(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "kiln.toml")
	cfg := DefaultConfig()
	cfg.Preview.Size = 128

	require.NoError(t, SaveConfig(cfg, path))
	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

// --- Helpers ---

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, l)

	l, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestEnsureDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Data.DataDir = filepath.Join(t.TempDir(), "nested", "kiln")

	dir, err := EnsureDataDir(cfg)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))
	st, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, st.IsDir())
}
