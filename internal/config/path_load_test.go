package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.jsonc"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "hark", "config.jsonc"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "hark", "config.jsonc"), resolved)
}

func TestLoadFSMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	loaded, err := LoadFS(afero.NewMemMapFs(), "/etc/hark/config.jsonc")
	require.NoError(t, err)
	require.Equal(t, "/etc/hark/config.jsonc", loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadFSParsesAndValidates(t *testing.T) {
	fsys := afero.NewMemMapFs()
	contents := `
{
  "language": "ja-JP",
  "recognizer": {"cmd": "hark-vosk"},
  "commands": [{"phrases": {"ja": "こんにちは"}, "say": "こんにちは"}]
}
`
	require.NoError(t, afero.WriteFile(fsys, "/cfg/config.jsonc", []byte(contents), 0o600))

	loaded, err := LoadFS(fsys, "/cfg/config.jsonc")
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, "ja-JP", loaded.Config.Language)
	require.Equal(t, []string{"hark-vosk"}, loaded.Config.Recognizer.Cmd.Argv)
	require.Empty(t, loaded.Warnings)
}

func TestLoadFSParseErrorIncludesPath(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/broken.jsonc", []byte("{ not-json }"), 0o600))

	_, err := LoadFS(fsys, "/broken.jsonc")
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
	require.Contains(t, err.Error(), "/broken.jsonc")
}

func TestLoadReadsOSFileAndAppliesEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"language": "en-GB"}`), 0o600))
	t.Setenv("HARK_LANGUAGE", "")
	t.Setenv("HARK_DEBUG", "true")
	t.Setenv("HARK_RECOGNIZER_CMD", "")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, "en-GB", loaded.Config.Language)
	require.True(t, loaded.Config.Debug)
}

func TestApplyEnv(t *testing.T) {
	cfg, err := ApplyEnv(Default(), map[string]string{
		"HARK_LANGUAGE":       "de",
		"HARK_DEBUG":          "1",
		"HARK_RECOGNIZER_CMD": "hark-vosk --model '/opt/de model'",
	})
	require.NoError(t, err)
	require.Equal(t, "de", cfg.Language)
	require.True(t, cfg.Debug)
	require.Equal(t, []string{"hark-vosk", "--model", "/opt/de model"}, cfg.Recognizer.Cmd.Argv)

	cfg, err = ApplyEnv(cfg, map[string]string{})
	require.NoError(t, err)
	require.Equal(t, "de", cfg.Language)
	require.True(t, cfg.Debug)

	cfg, err = ApplyEnv(cfg, map[string]string{"HARK_DEBUG": "false"})
	require.NoError(t, err)
	require.False(t, cfg.Debug)
}

func TestApplyEnvRejectsInvalidValues(t *testing.T) {
	_, err := ApplyEnv(Default(), map[string]string{"HARK_DEBUG": "maybe"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse env")

	_, err = ApplyEnv(Default(), map[string]string{"HARK_RECOGNIZER_CMD": "x 'oops"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "HARK_RECOGNIZER_CMD")

	_, err = ApplyEnv(Default(), map[string]string{"HARK_LANGUAGE": "not a tag!"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "env overrides")
}
