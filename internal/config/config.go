// Package config manages sparkd daemon configuration using koanf/v2.
//
// Supports YAML files and environment variables, layered over defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete sparkd configuration.
type Config struct {
	GRPC    GRPCConfig    `koanf:"grpc"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	Node    NodeConfig    `koanf:"node"`
	Spark2  Spark2Config  `koanf:"spark2"`
	Areas   []AreaConfig  `koanf:"areas"`
	BGP     BGPConfig     `koanf:"bgp"`
}

// BGPConfig controls the optional GoBGP notification bridge
// (internal/fib.BGPNotifier), re-exporting Spark2 neighbor lifecycle
// events as BGP peer enable/disable calls (RFC 5882 §4.3-style
// liveness-to-BGP coupling, adapted from BFD to Spark2).
type BGPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`

	DampeningEnabled           bool          `koanf:"dampening_enabled"`
	DampeningSuppressThreshold float64       `koanf:"dampening_suppress_threshold"`
	DampeningReuseThreshold    float64       `koanf:"dampening_reuse_threshold"`
	DampeningMaxSuppressTime   time.Duration `koanf:"dampening_max_suppress_time"`
	DampeningHalfLife          time.Duration `koanf:"dampening_half_life"`
}

// GRPCConfig holds the ConnectRPC server configuration (health checks and
// the FIB façade's debug endpoint).
type GRPCConfig struct {
	Addr string `koanf:"addr"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// NodeConfig identifies this process within the routing domain (spec.md §6
// "nodeName, domainName, enableV4, enableSpark2, increaseHelloInterval").
type NodeConfig struct {
	NodeName              string `koanf:"node_name"`
	DomainName            string `koanf:"domain_name"`
	EnableV4              bool   `koanf:"enable_v4"`
	EnableSpark2          bool   `koanf:"enable_spark2"`
	IncreaseHelloInterval bool   `koanf:"increase_hello_interval"`
}

// Spark2Config holds the default Spark2 neighbor engine timer parameters
// (spec.md §4.1 "Timers").
type Spark2Config struct {
	HelloTime             time.Duration `koanf:"hello_time"`
	KeepAliveTime         time.Duration `koanf:"keep_alive_time"`
	FastInitKeepAliveTime time.Duration `koanf:"fast_init_keep_alive_time"`
	HandshakeTime         time.Duration `koanf:"handshake_time"`
	HeartbeatTime         time.Duration `koanf:"heartbeat_time"`
	NegotiateHoldTime     time.Duration `koanf:"negotiate_hold_time"`
	HeartbeatHoldTime     time.Duration `koanf:"heartbeat_hold_time"`
	GRHoldTime            time.Duration `koanf:"gr_hold_time"`
	Version               uint32        `koanf:"version"`
	SupportedVersion      uint32        `koanf:"supported_version"`
	RTTChangeTolerance    float64       `koanf:"rtt_change_tolerance"`
}

// AreaConfig is one ordered entry of the area-negotiation table (spec.md
// §3 AreaConfig).
type AreaConfig struct {
	AreaID           string   `koanf:"area_id"`
	NeighborRegexes  []string `koanf:"neighbor_regexes"`
	InterfaceRegexes []string `koanf:"interface_regexes"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults, mirroring
// internal/spark2.DefaultConfig's timer values.
func DefaultConfig() *Config {
	return &Config{
		GRPC: GRPCConfig{
			Addr: ":50051",
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Node: NodeConfig{
			EnableV4:     true,
			EnableSpark2: false,
		},
		Spark2: Spark2Config{
			HelloTime:             20 * time.Second,
			KeepAliveTime:         1 * time.Second,
			FastInitKeepAliveTime: 100 * time.Millisecond,
			HandshakeTime:         500 * time.Millisecond,
			HeartbeatTime:         1 * time.Second,
			NegotiateHoldTime:     5 * time.Second,
			HeartbeatHoldTime:     5 * time.Second,
			GRHoldTime:            30 * time.Second,
			Version:               1,
			SupportedVersion:      1,
			RTTChangeTolerance:    0.10,
		},
		BGP: BGPConfig{
			Enabled:                    false,
			DampeningEnabled:           true,
			DampeningSuppressThreshold: 3,
			DampeningReuseThreshold:    0.75,
			DampeningMaxSuppressTime:   15 * time.Minute,
			DampeningHalfLife:          5 * time.Minute,
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for sparkd configuration.
// Variables are named SPARKD_<section>_<key>, e.g., SPARKD_NODE_NODE_NAME.
const envPrefix = "SPARKD_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (SPARKD_ prefix), and merges on top of DefaultConfig().
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms SPARKD_NODE_NODE_NAME -> node.node_name.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.Replace(s, "_", ".", 1)
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"grpc.addr":                             defaults.GRPC.Addr,
		"metrics.addr":                          defaults.Metrics.Addr,
		"metrics.path":                          defaults.Metrics.Path,
		"log.level":                             defaults.Log.Level,
		"log.format":                            defaults.Log.Format,
		"node.enable_v4":                        defaults.Node.EnableV4,
		"node.enable_spark2":                    defaults.Node.EnableSpark2,
		"spark2.hello_time":                     defaults.Spark2.HelloTime.String(),
		"spark2.keep_alive_time":                defaults.Spark2.KeepAliveTime.String(),
		"spark2.fast_init_keep_alive_time":      defaults.Spark2.FastInitKeepAliveTime.String(),
		"spark2.handshake_time":                 defaults.Spark2.HandshakeTime.String(),
		"spark2.heartbeat_time":                 defaults.Spark2.HeartbeatTime.String(),
		"spark2.negotiate_hold_time":            defaults.Spark2.NegotiateHoldTime.String(),
		"spark2.heartbeat_hold_time":            defaults.Spark2.HeartbeatHoldTime.String(),
		"spark2.gr_hold_time":                   defaults.Spark2.GRHoldTime.String(),
		"spark2.version":                        defaults.Spark2.Version,
		"spark2.supported_version":              defaults.Spark2.SupportedVersion,
		"spark2.rtt_change_tolerance":           defaults.Spark2.RTTChangeTolerance,
		"bgp.enabled":                           defaults.BGP.Enabled,
		"bgp.dampening_enabled":                 defaults.BGP.DampeningEnabled,
		"bgp.dampening_suppress_threshold":      defaults.BGP.DampeningSuppressThreshold,
		"bgp.dampening_reuse_threshold":         defaults.BGP.DampeningReuseThreshold,
		"bgp.dampening_max_suppress_time":       defaults.BGP.DampeningMaxSuppressTime.String(),
		"bgp.dampening_half_life":               defaults.BGP.DampeningHalfLife.String(),
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

var (
	ErrEmptyGRPCAddr      = errors.New("grpc.addr must not be empty")
	ErrEmptyNodeName      = errors.New("node.node_name must not be empty")
	ErrEmptyDomainName    = errors.New("node.domain_name must not be empty")
	ErrInvalidRTTTolerance = errors.New("spark2.rtt_change_tolerance must be > 0")
	ErrEmptyBGPAddr        = errors.New("bgp.addr must not be empty when bgp.enabled is true")
)

// Validate checks the configuration for logical errors. Returns the first
// validation error encountered.
func Validate(cfg *Config) error {
	if cfg.GRPC.Addr == "" {
		return ErrEmptyGRPCAddr
	}
	if cfg.BGP.Enabled && cfg.BGP.Addr == "" {
		return ErrEmptyBGPAddr
	}
	if !cfg.Node.EnableSpark2 {
		return nil
	}
	if cfg.Node.NodeName == "" {
		return ErrEmptyNodeName
	}
	if cfg.Node.DomainName == "" {
		return ErrEmptyDomainName
	}
	if cfg.Spark2.RTTChangeTolerance <= 0 {
		return ErrInvalidRTTTolerance
	}
	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
