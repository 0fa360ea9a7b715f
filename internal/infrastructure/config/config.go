package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	OTLP       OTLPConfig       `yaml:"otlp"`
	Log        LogConfig        `yaml:"log"`
	Repository RepositoryConfig `yaml:"repository"`
	Mongo      MongoConfig      `yaml:"mongo"`
	Upload     UploadConfig     `yaml:"upload"`
	Auth       AuthConfig       `yaml:"auth"`
}

type ServerConfig struct {
	Host               string        `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port               string        `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	PublicBaseURL      string        `yaml:"public_base_url" env:"PUBLIC_BASE_URL" env-default:"http://localhost:8080"`
	ReadTimeout        time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout       time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"30s"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	HideInternalErrors bool          `yaml:"hide_internal_errors" env:"HTTP_HIDE_INTERNAL_ERRORS" env-default:"false"`
}

type OTLPConfig struct {
	Endpoint       string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4317"`
	ServiceName    string `yaml:"service_name" env:"OTEL_SERVICE_NAME" env-default:"catalog-api"`
	Environment    string `yaml:"environment" env:"OTEL_ENVIRONMENT" env-default:"development"`
	ExportEnabled  bool   `yaml:"export_enabled" env:"OTEL_EXPORT_ENABLED" env-default:"false"`
	DurationMillis bool   `yaml:"duration_millis" env:"OTEL_DURATION_MILLIS" env-default:"false"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type RepositoryConfig struct {
	Driver string `yaml:"driver" env:"REPOSITORY_DRIVER" env-default:"mongo"`
}

type MongoConfig struct {
	URI            string        `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database       string        `yaml:"database" env:"MONGO_DATABASE" env-default:"catalog"`
	Collection     string        `yaml:"collection" env:"MONGO_COLLECTION" env-default:"products"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"MONGO_CONNECT_TIMEOUT" env-default:"10s"`
}

type UploadConfig struct {
	Dir          string   `yaml:"dir" env:"UPLOAD_DIR" env-default:"uploads"`
	MaxBytes     int64    `yaml:"max_bytes" env:"UPLOAD_MAX_BYTES" env-default:"5242880"`
	AllowedTypes []string `yaml:"allowed_types" env:"UPLOAD_ALLOWED_TYPES" env-separator:"," env-default:"image/jpeg,image/png"`
	SniffContent bool     `yaml:"sniff_content" env:"UPLOAD_SNIFF_CONTENT" env-default:"true"`
}

type AuthConfig struct {
	JWTKey string `yaml:"jwt_key" env:"JWT_KEY"`
}

// LoadConfig loads configuration from the YAML file named by CONFIG_PATH,
// if set, and from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}

	cfg.Server.PublicBaseURL = strings.TrimRight(cfg.Server.PublicBaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values cleanenv cannot check on its own
func (c *Config) Validate() error {
	switch c.Repository.Driver {
	case DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unknown repository driver %q", c.Repository.Driver)
	}

	if c.Upload.MaxBytes <= 0 {
		return errors.New("upload max bytes must be positive")
	}
	if len(c.Upload.AllowedTypes) == 0 {
		return errors.New("at least one upload content type must be allowed")
	}
	if c.Upload.Dir == "" {
		return errors.New("upload dir is required")
	}

	u, err := url.Parse(c.Server.PublicBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid public base url %q", c.Server.PublicBaseURL)
	}

	return nil
}

// Addr returns the listen address of the HTTP server
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}
