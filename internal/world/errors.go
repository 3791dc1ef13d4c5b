package world

import "errors"

var (
	// ErrOutOfBounds координаты вне допустимых границ чанка. Ошибка вызывающего кода.
	ErrOutOfBounds = errors.New("координаты вне границ чанка")

	// ErrChunkNotLoaded целевой чанк не загружен. Вызывающий может загрузить чанк
	// или отбросить запись.
	ErrChunkNotLoaded = errors.New("чанк не загружен")

	// ErrInvariantViolation нарушена связь block entity и состояния блока.
	// Всегда означает ошибку в коде, а не во входных данных.
	ErrInvariantViolation = errors.New("нарушение инварианта block entity")

	// ErrDuplicateInstance инстанс с таким именем уже зарегистрирован
	ErrDuplicateInstance = errors.New("инстанс уже зарегистрирован")
)
