package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервера.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	World        WorldConfig        `yaml:"world"`
	Router       RouterConfig       `yaml:"router"`
	ResourcePack ResourcePackConfig `yaml:"resource_pack"`
	EventBus     EventBusConfig     `yaml:"eventbus"`
	Sync         SyncConfig         `yaml:"sync"`
	Storage      StorageConfig      `yaml:"storage"`
	Admin        AdminConfig        `yaml:"admin"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type ServerConfig struct {
	TickRate    int    `yaml:"tick_rate"` // Тиков в секунду
	Scenario    string `yaml:"scenario"`  // block_entities | resource_pack
	AdminPort   int    `yaml:"admin_port"`
	MetricsPort int    `yaml:"metrics_port"`
}

type WorldConfig struct {
	Instance     string `yaml:"instance"`
	MinY         int32  `yaml:"min_y"`
	Height       int32  `yaml:"height"`
	LazyChunks   bool   `yaml:"lazy_chunks"`
	PreloadRange int32  `yaml:"preload_radius"` // Радиус загрузки чанков вокруг (0,0)
}

type RouterConfig struct {
	BroadcastChat bool `yaml:"broadcast_chat"`
}

type ResourcePackConfig struct {
	URL    string `yaml:"url"`
	SHA1   string `yaml:"sha1"`
	Forced bool   `yaml:"forced"`
	Prompt string `yaml:"prompt"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"` // Пусто: шина в памяти
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type SyncConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Source      string `yaml:"source"`
	BatchSize   int    `yaml:"batch_size"`
	FlushEvery  int    `yaml:"flush_every_seconds"`
	Compression string `yaml:"compression"` // none | gzip | zstd
	Mirror      bool   `yaml:"mirror"`
}

type StorageConfig struct {
	Backend       string `yaml:"backend"` // memory | redis | maria
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	MariaDSN      string `yaml:"maria_dsn"`
}

type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	ToFile bool   `yaml:"to_file"`
}

// Default возвращает полную конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			TickRate: 20,
			Scenario: "block_entities",
		},
		World: WorldConfig{
			Instance:     "main",
			MinY:         -64,
			Height:       384,
			PreloadRange: 5,
		},
		ResourcePack: ResourcePackConfig{
			URL:  "https://github.com/valence-rs/valence/raw/main/assets/example_pack.zip",
			SHA1: "d7c6108849fb190ec2a49f2d38b7f1f897d9ce9f",
		},
		EventBus: EventBusConfig{
			Stream:    "BLOCKWORLD",
			Retention: 24,
			Buffer:    1024,
		},
		Sync: SyncConfig{
			Source:      "node-1",
			BatchSize:   256,
			FlushEvery:  1,
			Compression: "zstd",
		},
		Storage: StorageConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "blockworld",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// TickInterval длительность одного тика
func (s *ServerConfig) TickInterval() time.Duration {
	rate := s.TickRate
	if rate <= 0 {
		rate = 20
	}
	return time.Second / time.Duration(rate)
}

// GetAdminPort возвращает порт admin API с поддержкой fallback значений
func (s *ServerConfig) GetAdminPort() int {
	return getPortWithEnvFallback(s.AdminPort, "GAME_ADMIN_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "GAME_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Validate проверяет значения, без которых сервер не стартует
func (c *Config) Validate() error {
	if c.World.Instance == "" {
		return fmt.Errorf("world.instance не задан")
	}
	if c.World.Height <= 0 || c.World.Height%16 != 0 {
		return fmt.Errorf("world.height=%d должен быть положительным и кратным 16", c.World.Height)
	}
	if c.World.PreloadRange < 0 {
		return fmt.Errorf("world.preload_radius=%d отрицательный", c.World.PreloadRange)
	}
	switch c.Sync.Compression {
	case "", "none", "gzip", "zstd":
	default:
		return fmt.Errorf("sync.compression=%q не поддерживается", c.Sync.Compression)
	}
	switch c.Storage.Backend {
	case "", "memory", "redis", "maria", "mysql":
	default:
		return fmt.Errorf("storage.backend=%q не поддерживается", c.Storage.Backend)
	}
	return nil
}

// Load читает YAML файл поверх Default().
// Если path == "", берёт путь из ENV GAME_CONFIG; без него возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("GAME_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфига %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфига %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
