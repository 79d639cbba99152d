package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/slurmgate/pkg/nodelist"
	"gopkg.in/yaml.v3"
)

const (
	// BinariesDirEnv selects the directory holding the scheduler binaries
	BinariesDirEnv = "SLURM_BINARIES_DIR"

	// DefaultBinariesDir is used when BinariesDirEnv is not set
	DefaultBinariesDir = "/opt/slurm/bin"

	// DefaultInfoTimeout bounds read-only status queries
	DefaultInfoTimeout = 30 * time.Second

	// DefaultUpdateTimeout bounds update commands, which may touch more entities
	DefaultUpdateTimeout = 60 * time.Second

	// DefaultDataDir holds the command journal
	DefaultDataDir = "/var/lib/slurmgate"

	mappingFile = "pcluster/parallelcluster_partition_nodelist_mapping.json"
)

// Config holds the scheduler paths and command settings
type Config struct {
	// BinariesDir is the directory of scontrol and sinfo. The scheduler
	// config directory is the sibling "etc" directory.
	BinariesDir string `yaml:"binaries_dir"`

	// MappingFile overrides the partition-nodelist mapping path derived from BinariesDir
	MappingFile string `yaml:"mapping_file"`

	// UseSudo runs scontrol through sudo
	UseSudo bool `yaml:"use_sudo"`

	InfoTimeout   time.Duration `yaml:"info_timeout"`
	UpdateTimeout time.Duration `yaml:"update_timeout"`

	// BatchSize is the number of node range tokens per update command
	BatchSize int `yaml:"batch_size"`

	// DataDir holds the command journal database
	DataDir string `yaml:"data_dir"`

	Log   LogConfig   `yaml:"log"`
	Watch WatchConfig `yaml:"watch"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// WatchConfig holds settings of the status poller
type WatchConfig struct {
	Interval   time.Duration `yaml:"interval"`
	ListenAddr string        `yaml:"listen_addr"`

	// JournalKeep is the number of journaled commands kept after each poll
	JournalKeep int `yaml:"journal_keep"`
}

// DefaultConfig returns a Config with defaults and the environment override applied
func DefaultConfig() *Config {
	cfg := &Config{
		BinariesDir:   DefaultBinariesDir,
		UseSudo:       true,
		InfoTimeout:   DefaultInfoTimeout,
		UpdateTimeout: DefaultUpdateTimeout,
		BatchSize:     nodelist.DefaultBatchSize,
		DataDir:       DefaultDataDir,
		Log: LogConfig{
			Level: "info",
		},
		Watch: WatchConfig{
			Interval:    time.Minute,
			ListenAddr:  "127.0.0.1:9810",
			JournalKeep: 1000,
		},
	}
	cfg.applyEnv()
	return cfg
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if dir := os.Getenv(BinariesDirEnv); dir != "" {
		c.BinariesDir = dir
	}
}

// Validate checks the settings that would make every command fail
func (c *Config) Validate() error {
	if c.BinariesDir == "" {
		return fmt.Errorf("binaries_dir must not be empty")
	}
	if c.InfoTimeout <= 0 || c.UpdateTimeout <= 0 {
		return fmt.Errorf("command timeouts must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	return nil
}

// ScontrolPath returns the path of the administration tool
func (c *Config) ScontrolPath() string {
	return filepath.Join(c.BinariesDir, "scontrol")
}

// SinfoPath returns the path of the node listing tool
func (c *Config) SinfoPath() string {
	return filepath.Join(c.BinariesDir, "sinfo")
}

// ConfDir returns the scheduler configuration directory
func (c *Config) ConfDir() string {
	return filepath.Join(filepath.Dir(filepath.Clean(c.BinariesDir)), "etc")
}

// MappingPath returns the partition-nodelist mapping file
func (c *Config) MappingPath() string {
	if c.MappingFile != "" {
		return c.MappingFile
	}
	return filepath.Join(c.ConfDir(), mappingFile)
}

// JournalPath returns the command journal database file
func (c *Config) JournalPath() string {
	return filepath.Join(c.DataDir, "slurmgate.db")
}
