package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/blockworld/internal/vec"
)

// ErrNotFound запись не найдена
var ErrNotFound = errors.New("запись не найдена")

// TransformRecord последнее известное положение сессии.
// Привязано к ID сессии (стабильный UUID игрока), а не к соединению,
// поэтому переживает переподключение.
type TransformRecord struct {
	Instance  string        `json:"instance"`
	Position  vec.Vec3Float `json:"position"`
	Yaw       float32       `json:"yaw"`
	Pitch     float32       `json:"pitch"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// TransformRepo определяет интерфейс для сохранения и загрузки положения игроков.
type TransformRepo interface {
	// Save сохраняет положение игрока.
	Save(ctx context.Context, id uuid.UUID, rec TransformRecord) error

	// Load загружает положение. bool == false при первом входе.
	Load(ctx context.Context, id uuid.UUID) (TransformRecord, bool, error)

	// Delete удаляет сохранённое положение (ErrNotFound, если его нет).
	Delete(ctx context.Context, id uuid.UUID) error

	// BatchSave сохраняет положения нескольких игроков (автосохранение).
	BatchSave(ctx context.Context, records map[uuid.UUID]TransformRecord) error

	// Close освобождает соединения хранилища.
	Close() error
}

// validate общая проверка входных данных для всех реализаций
func validate(id uuid.UUID, rec TransformRecord) error {
	if id == uuid.Nil {
		return fmt.Errorf("недействительный ID сессии: %s", id)
	}
	if rec.Instance == "" {
		return fmt.Errorf("пустой инстанс для %s", id)
	}
	for _, c := range []float64{rec.Position.X, rec.Position.Y, rec.Position.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("недействительная позиция %+v для %s", rec.Position, id)
		}
	}
	return nil
}

// Config параметры выбора хранилища
type Config struct {
	Backend       string // memory|redis|maria
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MariaDSN      string
}

// Open создаёт репозиторий по конфигу. Если внешнее хранилище недоступно,
// возвращается in-memory репозиторий и ошибка подключения для лога.
func Open(cfg Config) (TransformRepo, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryTransformRepo(), nil
	case "redis":
		rc := DefaultRedisConfig()
		rc.Addr = cfg.RedisAddr
		rc.Password = cfg.RedisPassword
		rc.DB = cfg.RedisDB
		repo, err := NewRedisTransformRepo(rc)
		if err != nil {
			return NewMemoryTransformRepo(), err
		}
		return repo, nil
	case "maria", "mysql":
		repo, err := NewMariaTransformRepo(cfg.MariaDSN)
		if err != nil {
			return NewMemoryTransformRepo(), err
		}
		return repo, nil
	default:
		return NewMemoryTransformRepo(), fmt.Errorf("неизвестное хранилище %q", cfg.Backend)
	}
}
