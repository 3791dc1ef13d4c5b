package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/annel0/blockworld/internal/logging"
)

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни записей (0 без ограничения)
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "blockworld:transform:",
		TTL:       24 * time.Hour,
	}
}

// RedisTransformRepo хранит положения сессий в Redis в виде JSON
type RedisTransformRepo struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisTransformRepo подключается к Redis и проверяет соединение
func NewRedisTransformRepo(config *RedisConfig) (*RedisTransformRepo, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	logging.Info("🔴 Подключение к Redis %s установлено", config.Addr)
	return newRedisTransformRepo(client, config), nil
}

func newRedisTransformRepo(client *redis.Client, config *RedisConfig) *RedisTransformRepo {
	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = DefaultRedisConfig().KeyPrefix
	}
	return &RedisTransformRepo{client: client, keyPrefix: prefix, ttl: config.TTL}
}

func (r *RedisTransformRepo) key(id uuid.UUID) string {
	return r.keyPrefix + id.String()
}

// Save сохраняет положение игрока
func (r *RedisTransformRepo) Save(ctx context.Context, id uuid.UUID, rec TransformRecord) error {
	if err := validate(id, rec); err != nil {
		return err
	}

	data, err := json.Marshal(stamp(rec))
	if err != nil {
		return fmt.Errorf("ошибка сериализации положения: %w", err)
	}
	if err := r.client.Set(ctx, r.key(id), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("ошибка сохранения положения сессии %s: %w", id, err)
	}
	return nil
}

// Load получает положение игрока
func (r *RedisTransformRepo) Load(ctx context.Context, id uuid.UUID) (TransformRecord, bool, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return TransformRecord{}, false, nil
	}
	if err != nil {
		return TransformRecord{}, false, fmt.Errorf("ошибка загрузки положения сессии %s: %w", id, err)
	}

	var rec TransformRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return TransformRecord{}, false, fmt.Errorf("ошибка десериализации положения: %w", err)
	}
	return rec, true, nil
}

// Delete удаляет положение игрока
func (r *RedisTransformRepo) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return fmt.Errorf("ошибка удаления положения сессии %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: положение сессии %s", ErrNotFound, id)
	}
	return nil
}

// BatchSave записывает все положения одним MULTI/EXEC
func (r *RedisTransformRepo) BatchSave(ctx context.Context, records map[uuid.UUID]TransformRecord) error {
	if len(records) == 0 {
		return nil
	}

	payloads := make(map[string][]byte, len(records))
	for id, rec := range records {
		if err := validate(id, rec); err != nil {
			return fmt.Errorf("batch: %w", err)
		}
		data, err := json.Marshal(stamp(rec))
		if err != nil {
			return fmt.Errorf("ошибка сериализации положения %s: %w", id, err)
		}
		payloads[r.key(id)] = data
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, data := range payloads {
			pipe.Set(ctx, key, data, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка пакетного сохранения: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func (r *RedisTransformRepo) Close() error {
	return r.client.Close()
}

func stamp(rec TransformRecord) TransformRecord {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	return rec
}
