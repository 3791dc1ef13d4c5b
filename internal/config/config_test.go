package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "main", cfg.World.Instance)
	assert.Equal(t, 50*time.Millisecond, cfg.Server.TickInterval())
	assert.False(t, cfg.World.LazyChunks, "lazy chunks выключены по умолчанию")
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  tick_rate: 10
  scenario: resource_pack
world:
  instance: lobby
  lazy_chunks: true
sync:
  compression: gzip
storage:
  backend: redis
  redis_addr: redis:6379
admin:
  jwt_secret: s3cret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 100*time.Millisecond, cfg.Server.TickInterval())
	assert.Equal(t, "resource_pack", cfg.Server.Scenario)
	assert.Equal(t, "lobby", cfg.World.Instance)
	assert.True(t, cfg.World.LazyChunks)
	assert.Equal(t, int32(384), cfg.World.Height, "незаданные поля берутся из Default()")
	assert.Equal(t, "gzip", cfg.Sync.Compression)
	assert.Equal(t, "redis:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, "s3cret", cfg.Admin.JWTSecret)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"высота не кратна 16", "world:\n  height: 100\n"},
		{"неизвестное сжатие", "sync:\n  compression: lz4\n"},
		{"неизвестное хранилище", "storage:\n  backend: cassandra\n"},
		{"битый yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvPath(t *testing.T) {
	path := writeConfig(t, "world:\n  instance: from-env\n")
	t.Setenv("GAME_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.World.Instance)
}

func TestLoad_NoPathReturnsDefault(t *testing.T) {
	t.Setenv("GAME_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestPortFallback(t *testing.T) {
	s := ServerConfig{}
	t.Setenv("GAME_ADMIN_PORT", "9090")
	t.Setenv("GAME_METRICS_PORT", "abc")

	assert.Equal(t, 9090, s.GetAdminPort(), "порт из окружения")
	assert.Equal(t, 2112, s.GetMetricsPort(), "невалидное значение окружения игнорируется")

	s.AdminPort = 7000
	assert.Equal(t, 7000, s.GetAdminPort(), "конфиг важнее окружения")
}

func TestLoad_ExampleFileMatchesDefault(t *testing.T) {
	cfg, err := Load("../../configs/blockworld.yml")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg, "пример конфигурации должен совпадать со значениями по умолчанию")
}
