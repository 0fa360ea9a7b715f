package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "http://localhost:8080", cfg.Server.PublicBaseURL)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DriverMongo, cfg.Repository.Driver)
	assert.Equal(t, "catalog", cfg.Mongo.Database)
	assert.Equal(t, "products", cfg.Mongo.Collection)
	assert.Equal(t, "uploads", cfg.Upload.Dir)
	assert.Equal(t, int64(5*1024*1024), cfg.Upload.MaxBytes)
	assert.Equal(t, []string{"image/jpeg", "image/png"}, cfg.Upload.AllowedTypes)
	assert.True(t, cfg.Upload.SniffContent)
	assert.Equal(t, "catalog-api", cfg.OTLP.ServiceName)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("PUBLIC_BASE_URL", "https://shop.example.com/")
	t.Setenv("REPOSITORY_DRIVER", "memory")
	t.Setenv("UPLOAD_MAX_BYTES", "1024")
	t.Setenv("UPLOAD_ALLOWED_TYPES", "image/png")
	t.Setenv("JWT_KEY", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com", cfg.Server.PublicBaseURL, "trailing slash is trimmed")
	assert.Equal(t, DriverMemory, cfg.Repository.Driver)
	assert.Equal(t, int64(1024), cfg.Upload.MaxBytes)
	assert.Equal(t, []string{"image/png"}, cfg.Upload.AllowedTypes)
	assert.Equal(t, "secret", cfg.Auth.JWTKey)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: "9090"
  public_base_url: "http://catalog.internal:9090"
repository:
  driver: memory
upload:
  dir: /var/lib/catalog/uploads
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "http://catalog.internal:9090", cfg.Server.PublicBaseURL)
	assert.Equal(t, DriverMemory, cfg.Repository.Driver)
	assert.Equal(t, "/var/lib/catalog/uploads", cfg.Upload.Dir)
	assert.Equal(t, int64(5*1024*1024), cfg.Upload.MaxBytes)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:     ServerConfig{PublicBaseURL: "http://localhost:8080"},
			Repository: RepositoryConfig{Driver: DriverMemory},
			Upload:     UploadConfig{Dir: "uploads", MaxBytes: 10, AllowedTypes: []string{"image/png"}},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Repository.Driver = "postgres" }},
		{"zero max bytes", func(c *Config) { c.Upload.MaxBytes = 0 }},
		{"no allowed types", func(c *Config) { c.Upload.AllowedTypes = nil }},
		{"no upload dir", func(c *Config) { c.Upload.Dir = "" }},
		{"relative base url", func(c *Config) { c.Server.PublicBaseURL = "/products" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestServerConfig_Addr(t *testing.T) {
	assert.Equal(t, "0.0.0.0:8080", ServerConfig{Host: "0.0.0.0", Port: "8080"}.Addr())
}
