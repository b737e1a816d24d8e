package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Server holds all configuration for the combat server process.
type Server struct {
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"` // debug|info|warn|error

	// HTTP listener for websocket combat text subscribers
	HTTPAddr      string        `yaml:"http_addr" env:"HTTP_ADDR"`
	WriteTimeout  time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`     // per-write deadline (default: 5s)
	SendQueueSize int           `yaml:"send_queue_size" env:"SEND_QUEUE_SIZE"` // per-subscriber outbox capacity (default: 64)

	// SkillsPath overrides the embedded skill catalog when set.
	SkillsPath string `yaml:"skills_path" env:"SKILLS_PATH"`

	// Database is optional: with an empty host and URL, results are only logged.
	Database DatabaseConfig `yaml:"database" envPrefix:"DB_"`

	Telemetry Telemetry `yaml:"telemetry" envPrefix:"OTEL_"`

	Combat Combat `yaml:"combat"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	// URL wins over the individual fields when set.
	URL      string `yaml:"url" env:"URL"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	DBName   string `yaml:"dbname" env:"NAME"`
	SSLMode  string `yaml:"sslmode" env:"SSLMODE"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != "" || d.Host != ""
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Telemetry configures the OpenTelemetry trace exporter.
// An empty endpoint keeps tracing disabled.
type Telemetry struct {
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	Insecure    bool   `yaml:"insecure" env:"INSECURE"`
}

// DefaultServer returns Server config with sensible defaults.
func DefaultServer() Server {
	return Server{
		LogLevel:      "info",
		HTTPAddr:      "0.0.0.0:8080",
		WriteTimeout:  5 * time.Second,
		SendQueueSize: 64,
		Database: DatabaseConfig{
			Port:    5432,
			User:    "qimud",
			DBName:  "qimud",
			SSLMode: "disable",
		},
		Telemetry: Telemetry{
			ServiceName: "qimud-combat",
		},
		Combat: DefaultCombat(),
	}
}

// LoadServer loads server config from a YAML file, then applies QIMUD_*
// environment overrides. If the file doesn't exist, defaults are used.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Combat.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid combat config: %w", err)
	}

	return cfg, nil
}
