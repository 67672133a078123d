package svcrelay

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config describes the managed service and the tools used to reach it
type Config struct {
	// Service is the unit managed when a command names none
	Service string `yaml:"service"`
	// SystemctlPath is the path to the systemctl binary
	SystemctlPath string `yaml:"systemctl_path"`
	// JournalctlPath is the path to the journalctl binary
	JournalctlPath string `yaml:"journalctl_path"`
	// UnitDir overrides the user unit directory
	UnitDir string `yaml:"unit_dir"`
	// LaunchPrefix is the fixed base invocation in the unit's ExecStart
	LaunchPrefix string `yaml:"launch_prefix"`
	// BacklogLines is the journal backlog printed before live tailing
	BacklogLines int `yaml:"backlog_lines"`
	// Concurrency bounds bulk operations
	Concurrency int `yaml:"concurrency"`
	// Listen is the address of the control API
	Listen string `yaml:"listen"`
}

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig() Config {
	return Config{
		Service:        DefaultService,
		SystemctlPath:  DefaultSystemctlPath,
		JournalctlPath: DefaultJournalctlPath,
		LaunchPrefix:   DefaultLaunchPrefix,
		BacklogLines:   DefaultBacklogLines,
		Concurrency:    4,
		Listen:         "127.0.0.1:7465",
	}
}

// DefaultConfigPath returns <user config dir>/svcrelay/config.yaml
func DefaultConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return "", ErrNoConfigDir
	}
	return filepath.Join(base, "svcrelay", "config.yaml"), nil
}

// LoadConfig reads configuration from a YAML file. A missing file is not
// an error and yields DefaultConfig; fields left empty keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Service == "" {
		c.Service = def.Service
	}
	if c.SystemctlPath == "" {
		c.SystemctlPath = def.SystemctlPath
	}
	if c.JournalctlPath == "" {
		c.JournalctlPath = def.JournalctlPath
	}
	if c.LaunchPrefix == "" {
		c.LaunchPrefix = def.LaunchPrefix
	}
	if c.BacklogLines <= 0 {
		c.BacklogLines = def.BacklogLines
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Listen == "" {
		c.Listen = def.Listen
	}
}

// Controller returns a systemctl client for this configuration
func (c Config) Controller() *ClientSystemd {
	return NewClientSystemd().WithSystemctlPath(c.SystemctlPath)
}

// Manager returns a bulk manager over Controller
func (c Config) Manager() *Manager {
	return NewManager(c.Controller(), WithConcurrency(c.Concurrency))
}

// FlagsCodec returns a flags codec for this configuration
func (c Config) FlagsCodec() *FlagsCodec {
	return NewFlagsCodec().WithUnitDir(c.UnitDir).WithLaunchPrefix(c.LaunchPrefix)
}

// Supervisor returns a log stream supervisor relaying to sink
func (c Config) Supervisor(sink Sink) *Supervisor {
	return NewSupervisor(sink,
		WithJournalctlPath(c.JournalctlPath),
		WithBacklogLines(c.BacklogLines),
	)
}
