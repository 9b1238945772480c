// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// GlobalConfig is the top-level static configuration for the agent.
// Its sections are top-level keys of the YAML document; env vars use the
// AGENT_ prefix (e.g. AGENT_LOG_LEVEL overrides log.level).
type GlobalConfig struct {
	Log     LogConfig     `mapstructure:"log"`
	Schema  string        `mapstructure:"schema"` // path to the protocol schema JSON
	Capture CaptureConfig `mapstructure:"capture"`
	Replay  ReplayConfig  `mapstructure:"replay"`
}

// LogConfig contains logging settings understood by internal/log.
type LogConfig struct {
	Level   string `mapstructure:"level"`   // trace/debug/info/warn/error
	Pattern string `mapstructure:"pattern"` // logrus formatter pattern
	Time    string `mapstructure:"time"`    // time.Format layout
	File    string `mapstructure:"file"`    // rotating file path, empty = console only
}

// CaptureConfig holds settings for the live-capture collaborator and the
// connection-reassembly sweep (§4.8, §5 of the spec). They are loaded and
// returned by Load; the capture command takes its settings from its own
// flags and does not read this section.
type CaptureConfig struct {
	Interface   string `mapstructure:"interface"`   // NIC name for pcap.OpenLive
	Port        int    `mapstructure:"port"`        // BPF filter port; also the SEND/RECV heuristic
	SnapLen     int    `mapstructure:"snap_len"`     // pcap snapshot length
	IdleTimeout string `mapstructure:"idle_timeout"` // e.g. "5m"; buffers older than this are swept
	SweepPeriod string `mapstructure:"sweep_period"` // e.g. "30s"
	LogPath     string `mapstructure:"log_path"`     // formatter output sink
}

// ReplayConfig holds replay-driver settings. They are loaded and validated
// by Load; the replay command takes its settings from its own flags and
// does not read this section.
type ReplayConfig struct {
	Target  string  `mapstructure:"target"`
	Mode    string  `mapstructure:"mode"` // timing | response | hybrid
	Timeout string  `mapstructure:"timeout"`
	Speed   float64 `mapstructure:"speed"`
}

// Load reads configuration from path, applies defaults for unset fields, and
// validates it. A missing path is not fatal: defaults alone are a usable
// configuration, matching the fact that schema-load-failure is the only
// truly fatal startup error per §7 of the spec.
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg GlobalConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pattern", "%time [%level] %caller: %msg%n")
	v.SetDefault("log.time", "2006-01-02 15:04:05.000")

	v.SetDefault("capture.snap_len", 65535)
	v.SetDefault("capture.idle_timeout", "5m")
	v.SetDefault("capture.sweep_period", "30s")

	v.SetDefault("replay.mode", "timing")
	v.SetDefault("replay.timeout", "2s")
	v.SetDefault("replay.speed", 1.0)
}

// Validate checks the subset of fields that can be wrong regardless of which
// subcommand runs; per-command required fields (schema, interface, target)
// are checked by the command itself.
func (cfg *GlobalConfig) Validate() error {
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", cfg.Log.Level)
	}
	switch cfg.Replay.Mode {
	case "timing", "response", "hybrid", "":
	default:
		return fmt.Errorf("invalid replay mode: %s (must be timing/response/hybrid)", cfg.Replay.Mode)
	}
	if cfg.Replay.Speed < 0 {
		return fmt.Errorf("replay speed must be >= 0")
	}
	return nil
}
