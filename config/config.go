package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/usenocturne/headunitd/bluetooth"
	"github.com/usenocturne/headunitd/logger"
)

const (
	DefaultHTTPAddr    = ":5000"
	DefaultVersionFile = "/etc/nocturne/version.txt"
)

type Config struct {
	HTTP        HTTPConfig      `yaml:"http"`
	Log         logger.Config   `yaml:"log"`
	Bluetooth   BluetoothConfig `yaml:"bluetooth"`
	VersionFile string          `yaml:"version_file"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type BluetoothConfig struct {
	Binary             string         `yaml:"binary"`
	DefaultPIN         string         `yaml:"default_pin"`
	MaxPromptReplies   int            `yaml:"max_prompt_replies"`
	AutoConnectOnStart bool           `yaml:"auto_connect_on_start"`
	ScanWindow         Duration       `yaml:"scan_window"`
	CacheDir           string         `yaml:"cache_dir"`
	ServiceName        string         `yaml:"service_name"`
	Timeouts           TimeoutsConfig `yaml:"timeouts"`
}

type TimeoutsConfig struct {
	List       Duration `yaml:"list"`
	StepDelay  Duration `yaml:"step_delay"`
	Prompt     Duration `yaml:"prompt"`
	Agent      Duration `yaml:"agent"`
	Pair       Duration `yaml:"pair"`
	Trust      Duration `yaml:"trust"`
	Connect    Duration `yaml:"connect"`
	CloseGrace Duration `yaml:"close_grace"`
	ProbePause Duration `yaml:"probe_pause"`
	SpawnCheck Duration `yaml:"spawn_check"`
}

// Duration unmarshals from "3s"-style strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

// Default is used when no config file is given.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func (c *Config) setDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
	if port := os.Getenv("PORT"); port != "" {
		c.HTTP.Addr = ":" + port
	}
	if c.VersionFile == "" {
		c.VersionFile = DefaultVersionFile
	}
	logDefaults := logger.DefaultConfig()
	if c.Log.Level == "" {
		c.Log.Level = logDefaults.Level
	}
	if c.Log.Output == "" {
		c.Log.Output = logDefaults.Output
	}
	if c.Log.Format == "" {
		c.Log.Format = logDefaults.Format
	}

	b := &c.Bluetooth
	if b.Binary == "" {
		b.Binary = bluetooth.DefaultBinary
	}
	if b.DefaultPIN == "" {
		b.DefaultPIN = bluetooth.DefaultPIN
	}
	if b.MaxPromptReplies <= 0 {
		b.MaxPromptReplies = bluetooth.DefaultMaxPromptReplies
	}
	if b.CacheDir == "" {
		b.CacheDir = bluetooth.DefaultCacheDir
	}
	if b.ServiceName == "" {
		b.ServiceName = bluetooth.DefaultServiceName
	}
	setDuration(&b.ScanWindow, bluetooth.DefaultScanWindow)

	t := &b.Timeouts
	setDuration(&t.List, bluetooth.DefaultListTimeout)
	setDuration(&t.StepDelay, bluetooth.DefaultStepDelay)
	setDuration(&t.Prompt, bluetooth.DefaultPromptTimeout)
	setDuration(&t.Agent, bluetooth.DefaultAgentTimeout)
	setDuration(&t.Pair, bluetooth.DefaultPairTimeout)
	setDuration(&t.Trust, bluetooth.DefaultTrustTimeout)
	setDuration(&t.Connect, bluetooth.DefaultConnectTimeout)
	setDuration(&t.CloseGrace, bluetooth.DefaultCloseGrace)
	setDuration(&t.ProbePause, bluetooth.DefaultProbePause)
	setDuration(&t.SpawnCheck, bluetooth.DefaultSpawnCheck)
}

func setDuration(d *Duration, def time.Duration) {
	if *d <= 0 {
		*d = Duration(def)
	}
}

func (b *BluetoothConfig) Options() bluetooth.Options {
	return bluetooth.Options{
		Binary:           b.Binary,
		DefaultPIN:       b.DefaultPIN,
		MaxPromptReplies: b.MaxPromptReplies,
		CacheDir:         b.CacheDir,
		ServiceName:      b.ServiceName,
		ListTimeout:      b.Timeouts.List.Std(),
		StepDelay:        b.Timeouts.StepDelay.Std(),
		PromptTimeout:    b.Timeouts.Prompt.Std(),
		AgentTimeout:     b.Timeouts.Agent.Std(),
		PairTimeout:      b.Timeouts.Pair.Std(),
		TrustTimeout:     b.Timeouts.Trust.Std(),
		ConnectTimeout:   b.Timeouts.Connect.Std(),
		CloseGrace:       b.Timeouts.CloseGrace.Std(),
		ProbePause:       b.Timeouts.ProbePause.Std(),
		SpawnCheck:       b.Timeouts.SpawnCheck.Std(),
		ScanWindow:       b.ScanWindow.Std(),
	}.WithDefaults()
}
