package config_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openr-go/sparkd/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()

	if cfg.GRPC.Addr != ":50051" {
		t.Errorf("GRPC.Addr = %q, want %q", cfg.GRPC.Addr, ":50051")
	}

	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9100")
	}

	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, "/metrics")
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}

	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}

	if cfg.Spark2.HelloTime != 20*time.Second {
		t.Errorf("Spark2.HelloTime = %v, want %v", cfg.Spark2.HelloTime, 20*time.Second)
	}

	if cfg.Spark2.KeepAliveTime != 1*time.Second {
		t.Errorf("Spark2.KeepAliveTime = %v, want %v", cfg.Spark2.KeepAliveTime, 1*time.Second)
	}

	if cfg.Spark2.RTTChangeTolerance != 0.10 {
		t.Errorf("Spark2.RTTChangeTolerance = %v, want %v", cfg.Spark2.RTTChangeTolerance, 0.10)
	}

	// Defaults disable Spark2 validation gates (no node name set) so they
	// must still pass validation.
	if err := config.Validate(cfg); err != nil {
		t.Errorf("DefaultConfig() failed validation: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	t.Parallel()

	yamlContent := `
grpc:
  addr: ":60000"
metrics:
  addr: ":9200"
  path: "/custom-metrics"
log:
  level: "debug"
  format: "text"
node:
  node_name: "node-a"
  domain_name: "domain-1"
  enable_spark2: true
spark2:
  hello_time: "10s"
  keep_alive_time: "500ms"
  rtt_change_tolerance: 0.2
`

	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.GRPC.Addr != ":60000" {
		t.Errorf("GRPC.Addr = %q, want %q", cfg.GRPC.Addr, ":60000")
	}

	if cfg.Metrics.Addr != ":9200" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9200")
	}

	if cfg.Metrics.Path != "/custom-metrics" {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, "/custom-metrics")
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}

	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "text")
	}

	if cfg.Node.NodeName != "node-a" {
		t.Errorf("Node.NodeName = %q, want %q", cfg.Node.NodeName, "node-a")
	}

	if cfg.Spark2.HelloTime != 10*time.Second {
		t.Errorf("Spark2.HelloTime = %v, want %v", cfg.Spark2.HelloTime, 10*time.Second)
	}

	if cfg.Spark2.KeepAliveTime != 500*time.Millisecond {
		t.Errorf("Spark2.KeepAliveTime = %v, want %v", cfg.Spark2.KeepAliveTime, 500*time.Millisecond)
	}

	if cfg.Spark2.RTTChangeTolerance != 0.2 {
		t.Errorf("Spark2.RTTChangeTolerance = %v, want %v", cfg.Spark2.RTTChangeTolerance, 0.2)
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	t.Parallel()

	// Partial YAML: only override grpc.addr and log.level.
	// Everything else should inherit from defaults.
	yamlContent := `
grpc:
  addr: ":55555"
log:
  level: "warn"
`

	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	// Overridden values.
	if cfg.GRPC.Addr != ":55555" {
		t.Errorf("GRPC.Addr = %q, want %q", cfg.GRPC.Addr, ":55555")
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}

	// Default values should be preserved.
	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("Metrics.Addr = %q, want default %q", cfg.Metrics.Addr, ":9100")
	}

	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want default %q", cfg.Metrics.Path, "/metrics")
	}

	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want default %q", cfg.Log.Format, "json")
	}

	if cfg.Spark2.HelloTime != 20*time.Second {
		t.Errorf("Spark2.HelloTime = %v, want default %v", cfg.Spark2.HelloTime, 20*time.Second)
	}

	if cfg.Spark2.RTTChangeTolerance != 0.10 {
		t.Errorf("Spark2.RTTChangeTolerance = %v, want default %v", cfg.Spark2.RTTChangeTolerance, 0.10)
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*config.Config)
		wantErr error
	}{
		{
			name: "empty grpc addr",
			modify: func(cfg *config.Config) {
				cfg.GRPC.Addr = ""
			},
			wantErr: config.ErrEmptyGRPCAddr,
		},
		{
			name: "spark2 enabled without node name",
			modify: func(cfg *config.Config) {
				cfg.Node.EnableSpark2 = true
				cfg.Node.DomainName = "domain-1"
			},
			wantErr: config.ErrEmptyNodeName,
		},
		{
			name: "spark2 enabled without domain name",
			modify: func(cfg *config.Config) {
				cfg.Node.EnableSpark2 = true
				cfg.Node.NodeName = "node-a"
			},
			wantErr: config.ErrEmptyDomainName,
		},
		{
			name: "zero rtt change tolerance",
			modify: func(cfg *config.Config) {
				cfg.Node.EnableSpark2 = true
				cfg.Node.NodeName = "node-a"
				cfg.Node.DomainName = "domain-1"
				cfg.Spark2.RTTChangeTolerance = 0
			},
			wantErr: config.ErrInvalidRTTTolerance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			tt.modify(cfg)

			err := config.Validate(cfg)
			if err == nil {
				t.Fatal("Validate() returned nil, want error")
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  slog.Level
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "DEBUG", want: slog.LevelDebug},
		{input: "info", want: slog.LevelInfo},
		{input: "INFO", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "WARN", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "Error", want: slog.LevelError},
		{input: "unknown", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
		{input: "trace", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got := config.ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoadNonexistentFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load("/nonexistent/path/config.yml")
	if err == nil {
		t.Fatal("Load() returned nil error for nonexistent file")
	}
}

// writeTemp creates a temporary YAML file and returns its path.
// The file is automatically cleaned up when the test finishes.
func writeTemp(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "sparkd.yml")

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	return path
}
