package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "MealSync", cfg.App.Name)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "local", cfg.Storage.Provider)
	assert.Equal(t, "mealImages", cfg.Storage.KeyPrefix)
	assert.Equal(t, 90*time.Second, cfg.Pipeline.StageTimeout)
	assert.Equal(t, "gpt-4o", cfg.AI.ChatModel)
	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddr())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
app:
  environment: staging
server:
  port: 9000
pipeline:
  stage_timeout: 30s
  estimate_nutrition: true
storage:
  provider: s3
  s3:
    region: eu-west-3
    bucket: meals
`)
	t.Setenv("MEALSYNC_SERVER_PORT", "9100")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.StageTimeout)
	assert.True(t, cfg.Pipeline.EstimateNutrition)
	assert.Equal(t, "meals", cfg.Storage.S3.Bucket)
	assert.Equal(t, "sk-env", cfg.AI.APIKey)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cases := map[string]func(*Config){
		"bad port":                  func(c *Config) { c.Server.Port = 0 },
		"unknown driver":            func(c *Config) { c.Database.Driver = "mysql" },
		"production without secret": func(c *Config) { c.App.Environment = "production" },
		"dev tokens in production": func(c *Config) {
			c.App.Environment = "production"
			c.Auth.JWTSecret = "s"
			c.Auth.AllowDevTokens = true
		},
		"s3 without bucket":    func(c *Config) { c.Storage.Provider = "s3" },
		"unknown storage":      func(c *Config) { c.Storage.Provider = "ftp" },
		"redis cache disabled": func(c *Config) { c.AI.ClassifierCache = "redis" },
		"zero stage timeout":   func(c *Config) { c.Pipeline.StageTimeout = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, base().Validate())
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "app:\n  log_level: info\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	var (
		mu     sync.Mutex
		latest *Config
	)
	require.True(t, cfg.Watch(zap.NewNop(), func(next *Config) {
		mu.Lock()
		defer mu.Unlock()
		latest = next
	}))

	writeConfig(t, dir, "app:\n  log_level: debug\n")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return latest != nil && latest.App.LogLevel == "debug"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatch_WithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.False(t, cfg.Watch(zap.NewNop(), func(*Config) {}))
}
