package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// MariaTransformRepo реализует TransformRepo для MariaDB/MySQL.
type MariaTransformRepo struct {
	db *sql.DB
}

// NewMariaTransformRepo создает новый репозиторий для работы с MariaDB.
//
// Параметры:
//
//	dsn - строка подключения (например, "user:password@tcp(localhost:3306)/blockworld?parseTime=true")
//
// Возвращает:
//
//	*MariaTransformRepo - экземпляр репозитория
//	error - ошибка при подключении или создании таблицы
func NewMariaTransformRepo(dsn string) (*MariaTransformRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaTransformRepo{db: db}

	if err := repo.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}

	return repo, nil
}

// createTable создает таблицу session_transforms, если она не существует.
func (r *MariaTransformRepo) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS session_transforms (
			session_id CHAR(36)    PRIMARY KEY,
			instance   VARCHAR(64) NOT NULL,
			x          DOUBLE      NOT NULL,
			y          DOUBLE      NOT NULL,
			z          DOUBLE      NOT NULL,
			yaw        FLOAT       NOT NULL DEFAULT 0,
			pitch      FLOAT       NOT NULL DEFAULT 0,
			updated_at TIMESTAMP   DEFAULT CURRENT_TIMESTAMP
			           ON UPDATE   CURRENT_TIMESTAMP,
			INDEX idx_updated_at (updated_at)
		) ENGINE=InnoDB
	`

	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("ошибка создания таблицы session_transforms: %w", err)
	}
	return nil
}

const upsertTransform = `
	INSERT INTO session_transforms (session_id, instance, x, y, z, yaw, pitch)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		instance = VALUES(instance),
		x = VALUES(x),
		y = VALUES(y),
		z = VALUES(z),
		yaw = VALUES(yaw),
		pitch = VALUES(pitch),
		updated_at = CURRENT_TIMESTAMP
`

// Save сохраняет положение через INSERT ... ON DUPLICATE KEY UPDATE.
func (r *MariaTransformRepo) Save(ctx context.Context, id uuid.UUID, rec TransformRecord) error {
	if err := validate(id, rec); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, upsertTransform, id.String(), rec.Instance,
		rec.Position.X, rec.Position.Y, rec.Position.Z, rec.Yaw, rec.Pitch)
	if err != nil {
		return fmt.Errorf("ошибка сохранения положения сессии %s: %w", id, err)
	}
	return nil
}

// Load загружает положение из базы данных.
func (r *MariaTransformRepo) Load(ctx context.Context, id uuid.UUID) (TransformRecord, bool, error) {
	query := `SELECT instance, x, y, z, yaw, pitch, updated_at FROM session_transforms WHERE session_id = ?`

	var rec TransformRecord
	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(
		&rec.Instance, &rec.Position.X, &rec.Position.Y, &rec.Position.Z,
		&rec.Yaw, &rec.Pitch, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return TransformRecord{}, false, nil
	}
	if err != nil {
		return TransformRecord{}, false, fmt.Errorf("ошибка загрузки положения сессии %s: %w", id, err)
	}
	return rec, true, nil
}

// Delete удаляет сохраненное положение.
func (r *MariaTransformRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM session_transforms WHERE session_id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("ошибка удаления положения сессии %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка проверки результата удаления: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: положение сессии %s", ErrNotFound, id)
	}
	return nil
}

// BatchSave сохраняет положения нескольких игроков в одной транзакции.
func (r *MariaTransformRepo) BatchSave(ctx context.Context, records map[uuid.UUID]TransformRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback() // Откат в случае ошибки

	stmt, err := tx.PrepareContext(ctx, upsertTransform)
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса: %w", err)
	}
	defer stmt.Close()

	for id, rec := range records {
		if err := validate(id, rec); err != nil {
			return fmt.Errorf("batch: %w", err)
		}
		_, err = stmt.ExecContext(ctx, id.String(), rec.Instance,
			rec.Position.X, rec.Position.Y, rec.Position.Z, rec.Yaw, rec.Pitch)
		if err != nil {
			return fmt.Errorf("ошибка сохранения положения сессии %s в batch: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// Close закрывает соединение с базой данных.
func (r *MariaTransformRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
