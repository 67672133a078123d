package svcrelay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service: agent
journalctl_path: /opt/systemd/bin/journalctl
unit_dir: /tmp/units
backlog_lines: 50
listen: 127.0.0.1:9999
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "agent", cfg.Service)
	require.Equal(t, "/opt/systemd/bin/journalctl", cfg.JournalctlPath)
	require.Equal(t, "/tmp/units", cfg.UnitDir)
	require.Equal(t, 50, cfg.BacklogLines)
	require.Equal(t, "127.0.0.1:9999", cfg.Listen)

	// Unset fields keep their defaults
	require.Equal(t, DefaultSystemctlPath, cfg.SystemctlPath)
	require.Equal(t, DefaultLaunchPrefix, cfg.LaunchPrefix)
	require.Equal(t, 4, cfg.Concurrency)

	require.Equal(t, "/opt/systemd/bin/journalctl", cfg.Supervisor(nil).JournalctlPath)
	require.Equal(t, 50, cfg.Supervisor(nil).BacklogLines)
	require.Equal(t, "/tmp/units", cfg.FlagsCodec().UnitDir)
	require.Equal(t, DefaultSystemctlPath, cfg.Controller().SystemctlPath)
	require.Equal(t, 4, cfg.Manager().Concurrency)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backlog_lines: [not, a, number]\n"), 0o644))

	_, err := LoadConfig(path)
	require.ErrorContains(t, err, "parse config")
}

func TestDefaultConfigPath(t *testing.T) {
	RequireLinux(t)
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)

	path, err := DefaultConfigPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "svcrelay", "config.yaml"), path)
}
