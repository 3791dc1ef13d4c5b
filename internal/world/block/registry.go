package block

import (
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[BlockID]BlockBehavior)
	byName     = make(map[string]BlockID)
)

// Register добавляет поведение блока в регистр
func Register(id BlockID, behavior BlockBehavior) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry[id] = behavior
	byName[behavior.Name()] = id
}

// Get возвращает поведение для указанного ID
func Get(id BlockID) (BlockBehavior, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	behavior, exists := registry[id]
	return behavior, exists
}

// ByName ищет ID блока по имени ("minecraft:oak_sign")
func ByName(name string) (BlockID, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	id, ok := byName[name]
	return id, ok
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	_, exists := Get(id)
	return exists
}

// Registered возвращает все зарегистрированные ID по возрастанию
func Registered() []BlockID {
	registryMu.RLock()
	defer registryMu.RUnlock()

	ids := make([]BlockID, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// BlockID представляет идентификатор типа блока
type BlockID uint16

// Константы ID блоков
const (
	// Базовые типы блоков
	AirBlockID           BlockID = iota // 0
	StoneBlockID                        // 1
	GrassBlockID                        // 2
	DirtBlockID                         // 3
	BedrockBlockID                      // 4
	WhiteConcreteBlockID                // 5

	// Блоки с block entity (начиная с 200)
	ChestBlockID      BlockID = 200 // Сундук
	OakSignBlockID    BlockID = 201 // Табличка
	PlayerHeadBlockID BlockID = 202 // Голова игрока
)
