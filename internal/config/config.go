package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// InputConfig selects the traces to process.
type InputConfig struct {
	Dir           string `yaml:"dir" toml:"dir"`
	TraceDir      string `yaml:"trace_dir" toml:"trace_dir"`
	Pattern       string `yaml:"pattern" toml:"pattern"`
	CleanLoopback bool   `yaml:"clean_loopback" toml:"clean_loopback"`
}

// TracerConfig describes the external trace tool.
type TracerConfig struct {
	Path string   `yaml:"path" toml:"path"`
	Args []string `yaml:"args" toml:"args"`
}

// AnalyzerConfig holds the configuration of the reconstruction pipeline.
type AnalyzerConfig struct {
	NumWorkers   int          `yaml:"num_workers" toml:"num_workers"`
	MinBytes     int64        `yaml:"min_bytes" toml:"min_bytes"`
	WiFiPrefixes []string     `yaml:"wifi_prefixes" toml:"wifi_prefixes"`
	Tracer       TracerConfig `yaml:"tracer" toml:"tracer"`
	GraphDir     string       `yaml:"graph_dir" toml:"graph_dir"`
	StatDir      string       `yaml:"stat_dir" toml:"stat_dir"`
	Purge        bool         `yaml:"purge" toml:"purge"`
}

// ClickHouseConfig holds the connection settings of the ClickHouse writer.
type ClickHouseConfig struct {
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port"`
	Database string `yaml:"database" toml:"database"`
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`
}

// NATSConfig holds the settings of the NATS publisher.
type NATSConfig struct {
	URL     string `yaml:"url" toml:"url"`
	Subject string `yaml:"subject" toml:"subject"`
}

// WriterDef defines a single writer from the config file.
type WriterDef struct {
	Type       string           `yaml:"type" toml:"type"`
	Enabled    bool             `yaml:"enabled" toml:"enabled"`
	Dir        string           `yaml:"dir" toml:"dir"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse" toml:"clickhouse"`
	NATS       NATSConfig       `yaml:"nats" toml:"nats"`
}

// LoggingConfig holds the log destination and rotation policy.
type LoggingConfig struct {
	Level      string `yaml:"level" toml:"level"`
	File       string `yaml:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
	Compress   bool   `yaml:"compress" toml:"compress"`
}

// MetricsConfig holds the batch metrics output.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" toml:"textfile"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Input    InputConfig    `yaml:"input" toml:"input"`
	Analyzer AnalyzerConfig `yaml:"analyzer" toml:"analyzer"`
	Writers  []WriterDef    `yaml:"writers" toml:"writers"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
}

// LoadConfig reads the configuration from a YAML file, or a TOML file when
// the path ends in .toml, and fills unset values with defaults.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(filePath), ".toml") {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config TOML: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills the values left unset by the config file.
func (c *Config) ApplyDefaults() {
	if c.Input.Dir == "" {
		c.Input.Dir = "."
	}
	if c.Input.TraceDir == "" {
		c.Input.TraceDir = filepath.Join(c.Input.Dir, "traces")
	}
	if c.Analyzer.NumWorkers <= 0 {
		c.Analyzer.NumWorkers = 1
	}
	if c.Analyzer.MinBytes < 0 {
		c.Analyzer.MinBytes = 0
	}
	if len(c.Analyzer.WiFiPrefixes) == 0 {
		c.Analyzer.WiFiPrefixes = []string{"192.168."}
	}
	if c.Analyzer.Tracer.Path == "" {
		c.Analyzer.Tracer.Path = "mptcptrace"
	}
	if c.Analyzer.Tracer.Args == nil {
		c.Analyzer.Tracer.Args = []string{"-s", "-S", "-w", "2"}
	}
	if c.Analyzer.GraphDir == "" {
		c.Analyzer.GraphDir = filepath.Join(c.Input.Dir, "graphs")
	}
	if c.Analyzer.StatDir == "" {
		c.Analyzer.StatDir = filepath.Join(c.Input.Dir, "stats")
	}
	if len(c.Writers) == 0 {
		c.Writers = []WriterDef{
			{Type: "gob", Enabled: true},
			{Type: "csv", Enabled: true},
			{Type: "chart", Enabled: true},
		}
	}
	for i := range c.Writers {
		w := &c.Writers[i]
		if w.ClickHouse.Port == 0 {
			w.ClickHouse.Port = 9000
		}
		if w.ClickHouse.Database == "" {
			w.ClickHouse.Database = "default"
		}
		if w.NATS.Subject == "" {
			w.NATS.Subject = "mptcp.connections"
		}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = 100
	}
	if c.Logging.MaxBackups <= 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Logging.MaxAgeDays <= 0 {
		c.Logging.MaxAgeDays = 28
	}
}

// Writer returns the enabled definition of the given writer type.
func (c *Config) Writer(typ string) (WriterDef, bool) {
	for _, w := range c.Writers {
		if w.Type == typ && w.Enabled {
			return w, true
		}
	}
	return WriterDef{}, false
}
