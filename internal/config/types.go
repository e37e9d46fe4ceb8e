package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the merged, effective configuration for a running httpcored
// process.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Queue    QueueConfig    `yaml:"queue"`
	Table    TableConfig    `yaml:"table"`
	Logging  LoggingConfig  `yaml:"logging"`
	Reporter ReporterConfig `yaml:"reporter"`
	Admin    AdminConfig    `yaml:"admin"`
}

// ServerConfig holds the raw TCP accept/worker-pool tunables: listen
// address, worker count, read buffer size, timeouts, and accept-side
// admission limits.
type ServerConfig struct {
	Listen         string    `yaml:"listen"`
	Workers        int       `yaml:"workers"`
	ReadBufferSize SizeBytes `yaml:"read_buffer_size"`
	ReadTimeout    Duration  `yaml:"read_timeout"`
	IdleTimeout    Duration  `yaml:"idle_timeout"`
	AcceptRPS      float64   `yaml:"accept_rps"`
	AcceptBurst    int       `yaml:"accept_burst"`
}

// QueueConfig configures the bounded blocking queue (BQ) coupling the
// accept loop to the worker pool.
type QueueConfig struct {
	Capacity int `yaml:"capacity"`
}

// TableConfig configures the per-request header table (HT).
type TableConfig struct {
	InitialCapacity int    `yaml:"initial_capacity"`
	Hash            string `yaml:"hash"` // "fnv1a" (default) or "xxhash"
}

// LoggingConfig holds the logging section of the merged config. obslog.Init
// does not read it: the global logger takes its level and sink from the
// HTTPCORED_LOG_LEVEL and HTTPCORED_LOG_SINK environment variables.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Sink  string `yaml:"sink"` // "" (stdout) or "file:<path>"
}

// ReporterConfig controls the cron-scheduled stats reporter.
type ReporterConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// AdminConfig controls the operator-facing HTTP surface.
type AdminConfig struct {
	Listen string `yaml:"listen"`
}

// SizeBytes unmarshals human-friendly byte-size strings ("2KiB", "64MB")
// or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*s = 0
		return nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		*s = SizeBytes(v)
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = SizeBytes(i)
		return nil
	}
	return fmt.Errorf("invalid size value: %q", node.Value)
}

func (s SizeBytes) Int() int { return int(s) }

// Duration unmarshals strings like "500ms" or plain numbers (seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = 0
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

// Default returns the baseline configuration applied before file/env/flag
// overrides.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Listen:         ":8080",
			Workers:        8,
			ReadBufferSize: 4096,
			ReadTimeout:    Duration(10 * time.Second),
			IdleTimeout:    Duration(30 * time.Second),
			AcceptRPS:      500,
			AcceptBurst:    100,
		},
		Queue: QueueConfig{Capacity: 256},
		Table: TableConfig{InitialCapacity: 16, Hash: "fnv1a"},
		Logging: LoggingConfig{
			Level: "info",
		},
		Reporter: ReporterConfig{
			Enabled: true,
			Cron:    "*/30 * * * * *",
		},
		Admin: AdminConfig{Listen: ":9090"},
	}
}
