package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryTransformRepo реализует TransformRepo в памяти.
// Используется как fallback, когда внешнее хранилище недоступно,
// или для CI/локальной разработки без БД.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryTransformRepo struct {
	mu   sync.RWMutex
	data map[uuid.UUID]TransformRecord
}

// NewMemoryTransformRepo создает новый репозиторий в памяти.
func NewMemoryTransformRepo() *MemoryTransformRepo {
	return &MemoryTransformRepo{
		data: make(map[uuid.UUID]TransformRecord),
	}
}

// Save сохраняет положение игрока в памяти.
func (r *MemoryTransformRepo) Save(ctx context.Context, id uuid.UUID, rec TransformRecord) error {
	if err := validate(id, rec); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[id] = stamp(rec)
	return nil
}

// Load загружает положение игрока из памяти.
func (r *MemoryTransformRepo) Load(ctx context.Context, id uuid.UUID) (TransformRecord, bool, error) {
	if id == uuid.Nil {
		return TransformRecord{}, false, fmt.Errorf("недействительный ID сессии: %s", id)
	}
	if err := ctx.Err(); err != nil {
		return TransformRecord{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, exists := r.data[id]
	return rec, exists, nil
}

// Delete удаляет сохраненное положение игрока из памяти.
func (r *MemoryTransformRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[id]; !exists {
		return fmt.Errorf("%w: положение сессии %s", ErrNotFound, id)
	}
	delete(r.data, id)
	return nil
}

// BatchSave сохраняет положения нескольких игроков. Либо все, либо ни одного.
func (r *MemoryTransformRepo) BatchSave(ctx context.Context, records map[uuid.UUID]TransformRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Валидация всех записей перед сохранением
	for id, rec := range records {
		if err := validate(id, rec); err != nil {
			return fmt.Errorf("batch: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rec := range records {
		r.data[id] = stamp(rec)
	}
	return nil
}

// Count возвращает количество сохраненных записей (для отладки).
func (r *MemoryTransformRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Close ничего не делает
func (r *MemoryTransformRepo) Close() error { return nil }
