package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime parameters for modelrun.
// Durations are Go duration strings ("30s", "2m").
type Config struct {
	LogLevel string        `json:"log_level" yaml:"log_level" toml:"log_level"`
	Catalog  CatalogConfig `json:"catalog" yaml:"catalog" toml:"catalog"`
	Device   DeviceConfig  `json:"device" yaml:"device" toml:"device"`
	Planner  PlannerConfig `json:"planner" yaml:"planner" toml:"planner"`
	Worker   WorkerConfig  `json:"worker" yaml:"worker" toml:"worker"`
	Metrics  MetricsConfig `json:"metrics" yaml:"metrics" toml:"metrics"`
	Server   ServerConfig  `json:"server" yaml:"server" toml:"server"`
}

type CatalogConfig struct {
	URL     string `json:"url" yaml:"url" toml:"url"`
	Timeout string `json:"timeout" yaml:"timeout" toml:"timeout"`
	// Retries is the number of extra attempts after the first failed fetch.
	Retries int `json:"retries" yaml:"retries" toml:"retries"`
}

type DeviceConfig struct {
	SMIPath string   `json:"smi_path" yaml:"smi_path" toml:"smi_path"`
	SMIArgs []string `json:"smi_args" yaml:"smi_args" toml:"smi_args"`
	Timeout string   `json:"timeout" yaml:"timeout" toml:"timeout"`
	// FreeMB replaces the device query with fixed values (index order).
	FreeMB []int `json:"free_mb" yaml:"free_mb" toml:"free_mb"`
}

// RuleConfig mirrors planner.Rule.
type RuleConfig struct {
	Family      string `json:"family" yaml:"family" toml:"family"`
	ThresholdMB int    `json:"threshold_mb" yaml:"threshold_mb" toml:"threshold_mb"`
	ReservedMB  int    `json:"reserved_mb" yaml:"reserved_mb" toml:"reserved_mb"`
}

type PlannerConfig struct {
	// Rules replaces the built-in tier table when non-empty.
	Rules             []RuleConfig `json:"rules" yaml:"rules" toml:"rules"`
	DefaultCapMB      int          `json:"default_cap_mb" yaml:"default_cap_mb" toml:"default_cap_mb"`
	DefaultReservedMB int          `json:"default_reserved_mb" yaml:"default_reserved_mb" toml:"default_reserved_mb"`
}

type WorkerConfig struct {
	// Path is the worker entry point. When empty it is located in Dir using Pattern.
	Path        string            `json:"path" yaml:"path" toml:"path"`
	Dir         string            `json:"dir" yaml:"dir" toml:"dir"`
	Pattern     string            `json:"pattern" yaml:"pattern" toml:"pattern"`
	Interpreter string            `json:"interpreter" yaml:"interpreter" toml:"interpreter"`
	Env         map[string]string `json:"env" yaml:"env" toml:"env"`
	EnvFile     string            `json:"env_file" yaml:"env_file" toml:"env_file"`
	StopGrace   string            `json:"stop_grace" yaml:"stop_grace" toml:"stop_grace"`
	LockDir     string            `json:"lock_dir" yaml:"lock_dir" toml:"lock_dir"`
	DryRun      bool              `json:"dry_run" yaml:"dry_run" toml:"dry_run"`
}

type MetricsConfig struct {
	// Textfile, if set, receives the run metrics in node-exporter textfile format.
	Textfile string `json:"textfile" yaml:"textfile" toml:"textfile"`
}

type ServerConfig struct {
	Addr        string   `json:"addr" yaml:"addr" toml:"addr"`
	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	// PlanTimeout bounds a single planning request.
	PlanTimeout string `json:"plan_timeout" yaml:"plan_timeout" toml:"plan_timeout"`
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		LogLevel: "info",
		Catalog:  CatalogConfig{Timeout: "30s"},
		Device: DeviceConfig{
			SMIPath: "nvidia-smi",
			SMIArgs: []string{"--query-gpu=memory.free", "--format=csv,noheader,nounits"},
			Timeout: "10s",
		},
		Planner: PlannerConfig{DefaultCapMB: 12000, DefaultReservedMB: 1000},
		Worker: WorkerConfig{
			Dir:         ".",
			Pattern:     "*miner*.py",
			Interpreter: "python3",
			StopGrace:   "10s",
		},
		Server: ServerConfig{Addr: ":8090", PlanTimeout: "60s"},
	}
}

// ApplyEnv overlays MODELRUN_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("MODELRUN_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("MODELRUN_CATALOG_URL"); v != "" {
		c.Catalog.URL = v
	}
	if v := getenv("MODELRUN_CATALOG_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MODELRUN_CATALOG_RETRIES: %w", err)
		}
		c.Catalog.Retries = n
	}
	if v := getenv("MODELRUN_SMI_PATH"); v != "" {
		c.Device.SMIPath = v
	}
	if v := getenv("MODELRUN_FREE_MB"); v != "" {
		free, err := parseIntList(v)
		if err != nil {
			return fmt.Errorf("MODELRUN_FREE_MB: %w", err)
		}
		c.Device.FreeMB = free
	}
	if v := getenv("MODELRUN_WORKER"); v != "" {
		c.Worker.Path = v
	}
	if v := getenv("MODELRUN_WORKER_DIR"); v != "" {
		c.Worker.Dir = v
	}
	if v, ok := lookup(getenv, "MODELRUN_INTERPRETER"); ok {
		c.Worker.Interpreter = v
	}
	if v := getenv("MODELRUN_ENV_FILE"); v != "" {
		c.Worker.EnvFile = v
	}
	if v := getenv("MODELRUN_LOCK_DIR"); v != "" {
		c.Worker.LockDir = v
	}
	if v := getenv("MODELRUN_DRY_RUN"); v != "" {
		s := strings.ToLower(v)
		c.Worker.DryRun = s == "1" || s == "true" || s == "yes"
	}
	if v := getenv("MODELRUN_METRICS_TEXTFILE"); v != "" {
		c.Metrics.Textfile = v
	}
	if v := getenv("MODELRUN_ADDR"); v != "" {
		c.Server.Addr = v
	}
	return nil
}

// lookup treats the literal "-" as an explicit empty value so the interpreter can be disabled from env.
func lookup(getenv func(string) string, key string) (string, bool) {
	v := getenv(key)
	if v == "" {
		return "", false
	}
	if v == "-" {
		return "", true
	}
	return v, true
}

// Validate checks values that would otherwise fail deep inside the pipeline.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Catalog.URL) == "" {
		return fmt.Errorf("catalog url is not set (catalog.url or MODELRUN_CATALOG_URL)")
	}
	return c.ValidateLocal()
}

// ValidateLocal is Validate without the catalog url requirement, for
// commands that never contact the catalog.
func (c Config) ValidateLocal() error {
	if c.Catalog.Retries < 0 {
		return fmt.Errorf("catalog retries must be >= 0, got %d", c.Catalog.Retries)
	}
	for name, d := range map[string]string{
		"catalog.timeout":     c.Catalog.Timeout,
		"device.timeout":      c.Device.Timeout,
		"worker.stop_grace":   c.Worker.StopGrace,
		"server.plan_timeout": c.Server.PlanTimeout,
	} {
		if _, err := parseDuration(d); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	for i, r := range c.Planner.Rules {
		if r.Family == "" {
			return fmt.Errorf("planner rule %d: empty family", i)
		}
		if r.ThresholdMB <= 0 || r.ReservedMB < 0 {
			return fmt.Errorf("planner rule %d (%s): threshold must be > 0 and reserved >= 0", i, r.Family)
		}
	}
	for _, v := range c.Device.FreeMB {
		if v < 0 {
			return fmt.Errorf("device free_mb values must be >= 0")
		}
	}
	return nil
}

// CatalogTimeout bounds one catalog fetch; zero means no bound.
func (c Config) CatalogTimeout() time.Duration {
	d, _ := parseDuration(c.Catalog.Timeout)
	return d
}

func (c Config) DeviceTimeout() time.Duration {
	d, _ := parseDuration(c.Device.Timeout)
	return d
}

func (c Config) StopGrace() time.Duration {
	d, _ := parseDuration(c.Worker.StopGrace)
	return d
}

func (c Config) PlanTimeout() time.Duration {
	d, _ := parseDuration(c.Server.PlanTimeout)
	return d
}

// parseDuration accepts "" as zero (no bound).
func parseDuration(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

func parseIntList(s string) ([]int, error) {
	var out []int
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
