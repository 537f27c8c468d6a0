package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is everything an embedding program needs to construct and
// observe a rest server. Values resolve in precedence order: built-in
// defaults, then the YAML file, then environment variables (a .env
// file is honored when present).
type Config struct {
	Server struct {
		Host       string `yaml:"host"`
		Port       uint16 `yaml:"port"`
		BufferSize int    `yaml:"buffer_size"`
	} `yaml:"server"`
	Telemetry struct {
		Enabled      bool   `yaml:"enabled"`
		ServiceName  string `yaml:"service_name"`
		OTLPEndpoint string `yaml:"otlp_endpoint"`
	} `yaml:"telemetry"`
}

const (
	DefaultHost       = "0.0.0.0"
	DefaultPort       = 8080
	DefaultBufferSize = 2048
)

func defaults() *Config {
	var cfg Config
	cfg.Server.Host = DefaultHost
	cfg.Server.Port = DefaultPort
	cfg.Server.BufferSize = DefaultBufferSize
	cfg.Telemetry.ServiceName = "embeddable-rest-server"
	return &cfg
}

// Load resolves the configuration. path may be empty to skip the file
// layer; a missing .env file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.Server.BufferSize <= 0 {
		return nil, fmt.Errorf("config: buffer_size must be positive, got %d", cfg.Server.BufferSize)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("REST_SERVER_HOST"); ok {
		cfg.Server.Host = v
	}
	if v, ok := os.LookupEnv("REST_SERVER_PORT"); ok {
		port, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return fmt.Errorf("config: REST_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = uint16(port)
	}
	if v, ok := os.LookupEnv("REST_SERVER_BUFFER_SIZE"); ok {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: REST_SERVER_BUFFER_SIZE: %w", err)
		}
		cfg.Server.BufferSize = size
	}
	if v, ok := os.LookupEnv("REST_SERVER_TELEMETRY"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: REST_SERVER_TELEMETRY: %w", err)
		}
		cfg.Telemetry.Enabled = enabled
	}
	if v, ok := os.LookupEnv("OTEL_SERVICE_NAME"); ok {
		cfg.Telemetry.ServiceName = v
	}
	if v, ok := os.LookupEnv("OTEL_EXPORTER_OTLP_ENDPOINT"); ok {
		cfg.Telemetry.OTLPEndpoint = v
	}
	return nil
}
