package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	errs "github.com/c360/ringbuff/errors"
	"github.com/c360/ringbuff/pkg/buffer"
)

// Sampler sources
const (
	SourceSynthetic = "synthetic" // Random walk generated in-process
	SourceStdin     = "stdin"     // One float per line on standard input
)

// DefaultEnvPrefix is prepended to every environment override, e.g. RINGWATCH_BUFFER_CAPACITY.
const DefaultEnvPrefix = "RINGWATCH"

// Config represents the complete ringwatch configuration
type Config struct {
	Buffer  BufferConfig  `json:"buffer" yaml:"buffer"`
	Window  WindowConfig  `json:"window" yaml:"window"`
	Sampler SamplerConfig `json:"sampler" yaml:"sampler"`
	Report  ReportConfig  `json:"report" yaml:"report"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// BufferConfig sizes the buffer between the sampler and the window.
type BufferConfig struct {
	Capacity       int    `json:"capacity" yaml:"capacity"`
	OverflowPolicy string `json:"overflow_policy" yaml:"overflow_policy"` // drop_oldest, drop_newest, block
}

// WindowConfig bounds the sliding window by count and age.
type WindowConfig struct {
	Capacity int           `json:"capacity" yaml:"capacity"`
	MaxAge   time.Duration `json:"max_age" yaml:"max_age"` // 0 = keep until evicted by count
}

// SamplerConfig selects and paces the sample source.
type SamplerConfig struct {
	Source string  `json:"source" yaml:"source"`
	Rate   float64 `json:"rate" yaml:"rate"`   // samples per second (synthetic only)
	Burst  int     `json:"burst" yaml:"burst"` // limiter burst (synthetic only)
	Start  float64 `json:"start" yaml:"start"` // random walk origin
	Step   float64 `json:"step" yaml:"step"`   // random walk max step
}

// ReportConfig controls the periodic summary log line.
type ReportConfig struct {
	Interval time.Duration `json:"interval" yaml:"interval"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    int    `json:"port" yaml:"port"`
	Path    string `json:"path" yaml:"path"`
}

// SafeConfig provides thread-safe access to configuration
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = &Config{}
	}
	return &SafeConfig{
		config: cfg,
	}
}

// Get returns a copy of the current configuration
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically replaces the configuration after validation
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg.Clone()
	return nil
}

// Clone creates a copy of the configuration. Config holds no reference types,
// so a value copy is deep.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}
	copied := *c
	return &copied
}

// Validate checks if the config is valid. Errors wrap errors.ErrInvalidConfig.
func (c *Config) Validate() error {
	var problems []string

	if c.Buffer.Capacity <= 0 {
		problems = append(problems, "buffer.capacity must be greater than 0")
	}
	if _, err := buffer.ParseOverflowPolicy(c.Buffer.OverflowPolicy); err != nil {
		problems = append(problems, "buffer.overflow_policy: "+err.Error())
	}
	if c.Window.Capacity <= 0 {
		problems = append(problems, "window.capacity must be greater than 0")
	}
	if c.Window.MaxAge < 0 {
		problems = append(problems, "window.max_age must not be negative")
	}

	switch c.Sampler.Source {
	case SourceSynthetic:
		if c.Sampler.Rate <= 0 {
			problems = append(problems, "sampler.rate must be greater than 0")
		}
		if c.Sampler.Burst <= 0 {
			problems = append(problems, "sampler.burst must be greater than 0")
		}
	case SourceStdin:
	default:
		problems = append(problems, fmt.Sprintf("sampler.source %q is not one of %s, %s",
			c.Sampler.Source, SourceSynthetic, SourceStdin))
	}

	if c.Report.Interval <= 0 {
		problems = append(problems, "report.interval must be greater than 0")
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
			problems = append(problems, fmt.Sprintf("metrics.port %d out of range", c.Metrics.Port))
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			problems = append(problems, "metrics.path must start with /")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", errs.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Policy returns the parsed overflow policy. Call after Validate.
func (c *Config) Policy() buffer.OverflowPolicy {
	p, _ := buffer.ParseOverflowPolicy(c.Buffer.OverflowPolicy)
	return p
}

// Defaults returns the built-in configuration every Loader starts from.
func Defaults() *Config {
	return &Config{
		Buffer: BufferConfig{
			Capacity:       1024,
			OverflowPolicy: "drop_oldest",
		},
		Window: WindowConfig{
			Capacity: 256,
			MaxAge:   time.Minute,
		},
		Sampler: SamplerConfig{
			Source: SourceSynthetic,
			Rate:   50,
			Burst:  10,
			Start:  100,
			Step:   1,
		},
		Report: ReportConfig{
			Interval: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	lookupEnv  func(string) (string, bool)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: false,
		envPrefix:  DefaultEnvPrefix,
		lookupEnv:  os.LookupEnv,
	}
}

// AddLayer adds a configuration file layer. Later layers override earlier ones.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// SetEnvPrefix changes the environment override prefix.
func (l *Loader) SetEnvPrefix(prefix string) {
	l.envPrefix = prefix
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges defaults, every file layer, then environment overrides, and
// validates the result when validation is enabled.
func (l *Loader) Load() (*Config, error) {
	cfg := Defaults()

	for _, path := range l.layers {
		rawConfig, err := l.loadRaw(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		if cfg, err = l.mergeFromMap(cfg, rawConfig); err != nil {
			return nil, fmt.Errorf("failed to merge %s: %w", path, err)
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// loadRaw reads one layer into a generic map, decoded by its extension.
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}

	rawConfig, err := decodeLayer(format, data)
	if err != nil {
		return nil, err
	}
	if err := parseDurations(rawConfig); err != nil {
		return nil, err
	}

	return rawConfig, nil
}

// mergeFromMap merges configuration from a raw map, only overriding fields present in the map
func (l *Loader) mergeFromMap(base *Config, override map[string]any) (*Config, error) {
	if override == nil {
		return base, nil
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}

	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return nil, err
	}

	mergedJSON, err := json.Marshal(deepMergeMaps(baseMap, override))
	if err != nil {
		return nil, err
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrParsingFailed, err)
	}

	return &merged, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}

		if baseMap, baseOk := base[k].(map[string]any); baseOk {
			if overrideMap, overrideOk := v.(map[string]any); overrideOk {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}

		result[k] = v
	}

	return result
}

// durationKeys lists the fields written as duration strings ("30s", "2d") in files.
var durationKeys = [][]string{
	{"window", "max_age"},
	{"report", "interval"},
}

// parseDurations converts duration strings to nanoseconds so the merged map
// unmarshals into time.Duration fields.
func parseDurations(data map[string]any) error {
	for _, keys := range durationKeys {
		s, ok := GetNestedString(data, keys)
		if !ok {
			continue
		}
		d, err := parseDurationWithDays(s)
		if err != nil {
			return fmt.Errorf("%s: %w", strings.Join(keys, "."), err)
		}
		parent, _ := GetNestedMap(data, keys[:len(keys)-1])
		parent[keys[len(keys)-1]] = d.Nanoseconds()
	}
	return nil
}

// parseDurationWithDays parses durations that may include days (e.g., "14d")
func parseDurationWithDays(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		days := strings.TrimSuffix(s, "d")
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// applyEnvOverrides applies PREFIX_SECTION_FIELD environment variables.
// Malformed values are errors rather than silently ignored.
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	overrides := []struct {
		key   string
		apply func(string) error
	}{
		{"BUFFER_CAPACITY", intSetter(&cfg.Buffer.Capacity)},
		{"BUFFER_OVERFLOW_POLICY", stringSetter(&cfg.Buffer.OverflowPolicy)},
		{"WINDOW_CAPACITY", intSetter(&cfg.Window.Capacity)},
		{"WINDOW_MAX_AGE", durationSetter(&cfg.Window.MaxAge)},
		{"SAMPLER_SOURCE", stringSetter(&cfg.Sampler.Source)},
		{"SAMPLER_RATE", floatSetter(&cfg.Sampler.Rate)},
		{"SAMPLER_BURST", intSetter(&cfg.Sampler.Burst)},
		{"REPORT_INTERVAL", durationSetter(&cfg.Report.Interval)},
		{"METRICS_ENABLED", boolSetter(&cfg.Metrics.Enabled)},
		{"METRICS_PORT", intSetter(&cfg.Metrics.Port)},
		{"METRICS_PATH", stringSetter(&cfg.Metrics.Path)},
	}

	for _, o := range overrides {
		name := l.envPrefix + "_" + o.key
		val, ok := l.lookupEnv(name)
		if !ok || val == "" {
			continue
		}
		if err := checkEnvValue(name, val); err != nil {
			return err
		}
		if err := o.apply(val); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func stringSetter(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

func intSetter(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func floatSetter(dst *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func boolSetter(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func durationSetter(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := parseDurationWithDays(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}

// SaveToFile writes the configuration as YAML or JSON depending on the
// extension, replacing any existing file atomically.
func (c *Config) SaveToFile(path string) error {
	format, err := formatOf(path)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case formatYAML:
		data, err = yaml.Marshal(c.fileView())
	default:
		data, err = json.MarshalIndent(c.fileView(), "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return err
	}

	return writeConfigFile(path, data)
}

// fileView renders durations as strings so saved files load back unchanged
// and stay readable.
func (c *Config) fileView() map[string]any {
	return map[string]any{
		"buffer": map[string]any{
			"capacity":        c.Buffer.Capacity,
			"overflow_policy": c.Buffer.OverflowPolicy,
		},
		"window": map[string]any{
			"capacity": c.Window.Capacity,
			"max_age":  c.Window.MaxAge.String(),
		},
		"sampler": map[string]any{
			"source": c.Sampler.Source,
			"rate":   c.Sampler.Rate,
			"burst":  c.Sampler.Burst,
			"start":  c.Sampler.Start,
			"step":   c.Sampler.Step,
		},
		"report": map[string]any{
			"interval": c.Report.Interval.String(),
		},
		"metrics": map[string]any{
			"enabled": c.Metrics.Enabled,
			"port":    c.Metrics.Port,
			"path":    c.Metrics.Path,
		},
	}
}

// String returns a YAML representation of the config
func (c *Config) String() string {
	data, err := yaml.Marshal(c.fileView())
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}

// IsConfigError reports whether err came from configuration loading or validation.
func IsConfigError(err error) bool {
	return errors.Is(err, errs.ErrInvalidConfig) || errors.Is(err, errs.ErrParsingFailed)
}
