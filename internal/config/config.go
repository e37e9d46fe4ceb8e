// Package config implements the three-source layered configuration for
// httpcored: CLI flags, a YAML file, and environment variables (including
// a .env file), merged with flag > env > file > default precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Flags holds parsed command-line flag values and which flags the caller
// explicitly set (so LoadEffectiveConfig can tell "set to the default
// value" apart from "not set at all").
type Flags struct {
	ConfigPath string
	Listen     string
	Workers    int
	QueueCap   int
	Set        map[string]bool
}

// ParseConfigFlags parses os.Args[1:] with pflag.
func ParseConfigFlags() Flags {
	configPath := pflag.String("config", "./httpcored.yaml", "path to YAML config file")
	listen := pflag.String("listen", "", "protocol listen address, e.g. :8080")
	workers := pflag.Int("workers", 0, "worker pool size")
	queueCap := pflag.Int("queue-capacity", 0, "bounded queue capacity (power of two)")
	pflag.Parse()

	set := make(map[string]bool)
	pflag.Visit(func(f *pflag.Flag) { set[f.Name] = true })

	return Flags{
		ConfigPath: *configPath,
		Listen:     *listen,
		Workers:    *workers,
		QueueCap:   *queueCap,
		Set:        set,
	}
}

// ParseConfigFile loads and parses the YAML file at path. A missing file
// is not an error: it returns a zero-value Config and exists=false so the
// caller merges in defaults and other sources instead.
func ParseConfigFile(path string) (cfg Config, exists bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, false, nil
		}
		return Config{}, false, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, true, nil
}

// envOverrides captures only the env vars that were actually present, so
// LoadEffectiveConfig can distinguish "unset" from "set to empty/zero".
type envOverrides struct {
	listen   *string
	workers  *int
	queueCap *int
	logLevel *string
}

// ParseConfigEnvs loads a .env file (if present, best-effort) and reads
// HTTPCORED_* environment variables.
func ParseConfigEnvs() envOverrides {
	_ = godotenv.Load(".env")

	var e envOverrides
	if v, ok := os.LookupEnv("HTTPCORED_LISTEN"); ok {
		e.listen = &v
	}
	if v, ok := os.LookupEnv("HTTPCORED_WORKERS"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			e.workers = &n
		}
	}
	if v, ok := os.LookupEnv("HTTPCORED_QUEUE_CAPACITY"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			e.queueCap = &n
		}
	}
	if v, ok := os.LookupEnv("HTTPCORED_LOG_LEVEL"); ok {
		e.logLevel = &v
	}
	return e
}

// LoadEffectiveConfig merges defaults, the file config, env overrides, and
// flags, in that precedence order (later wins), and returns the single
// Config the rest of the process should use.
func LoadEffectiveConfig(flags Flags) (Config, error) {
	cfg := Default()

	fileCfg, exists, err := ParseConfigFile(flags.ConfigPath)
	if err != nil {
		return Config{}, err
	}
	if exists {
		mergeNonZero(&cfg, fileCfg)
	}

	env := ParseConfigEnvs()
	if env.listen != nil {
		cfg.Server.Listen = *env.listen
	}
	if env.workers != nil {
		cfg.Server.Workers = *env.workers
	}
	if env.queueCap != nil {
		cfg.Queue.Capacity = *env.queueCap
	}
	if env.logLevel != nil {
		cfg.Logging.Level = *env.logLevel
	}

	if flags.Set["listen"] {
		cfg.Server.Listen = flags.Listen
	}
	if flags.Set["workers"] {
		cfg.Server.Workers = flags.Workers
	}
	if flags.Set["queue-capacity"] {
		cfg.Queue.Capacity = flags.QueueCap
	}

	return cfg, nil
}

// mergeNonZero overlays every non-zero-value field of src onto dst. The
// config file is expected to set only the sections an operator cares
// about, leaving the rest at Default()'s values.
func mergeNonZero(dst *Config, src Config) {
	if src.Server.Listen != "" {
		dst.Server.Listen = src.Server.Listen
	}
	if src.Server.Workers != 0 {
		dst.Server.Workers = src.Server.Workers
	}
	if src.Server.ReadBufferSize != 0 {
		dst.Server.ReadBufferSize = src.Server.ReadBufferSize
	}
	if src.Server.ReadTimeout != 0 {
		dst.Server.ReadTimeout = src.Server.ReadTimeout
	}
	if src.Server.IdleTimeout != 0 {
		dst.Server.IdleTimeout = src.Server.IdleTimeout
	}
	if src.Server.AcceptRPS != 0 {
		dst.Server.AcceptRPS = src.Server.AcceptRPS
	}
	if src.Server.AcceptBurst != 0 {
		dst.Server.AcceptBurst = src.Server.AcceptBurst
	}
	if src.Queue.Capacity != 0 {
		dst.Queue.Capacity = src.Queue.Capacity
	}
	if src.Table.InitialCapacity != 0 {
		dst.Table.InitialCapacity = src.Table.InitialCapacity
	}
	if src.Table.Hash != "" {
		dst.Table.Hash = src.Table.Hash
	}
	if src.Logging.Level != "" {
		dst.Logging.Level = src.Logging.Level
	}
	if src.Logging.Sink != "" {
		dst.Logging.Sink = src.Logging.Sink
	}
	if src.Reporter.Cron != "" {
		dst.Reporter.Cron = src.Reporter.Cron
	}
	dst.Reporter.Enabled = src.Reporter.Enabled || dst.Reporter.Enabled
	if src.Admin.Listen != "" {
		dst.Admin.Listen = src.Admin.Listen
	}
}

// Validate reports the first configuration error found: queue/table
// capacities that are not powers of two, a non-positive worker count, and
// so on.
func (c Config) Validate() error {
	if c.Server.Workers <= 0 {
		return fmt.Errorf("config: server.workers must be > 0, got %d", c.Server.Workers)
	}
	if !isPowerOfTwo(c.Queue.Capacity) {
		return fmt.Errorf("config: queue.capacity must be a power of two >= 2, got %d", c.Queue.Capacity)
	}
	if !isPowerOfTwo(c.Table.InitialCapacity) {
		return fmt.Errorf("config: table.initial_capacity must be a power of two >= 2, got %d", c.Table.InitialCapacity)
	}
	return nil
}

func isPowerOfTwo(n int) bool {
	return n >= 2 && n&(n-1) == 0
}
