package world

import (
	"sort"

	"github.com/annel0/blockworld/internal/nbt"
)

// BlockEntityTable соответствие мировой позиции и документа block entity.
// Принадлежит Instance, своей синхронизации не имеет.
type BlockEntityTable struct {
	docs map[BlockPos]*nbt.Compound
}

// NewBlockEntityTable создаёт пустую таблицу
func NewBlockEntityTable() *BlockEntityTable {
	return &BlockEntityTable{docs: make(map[BlockPos]*nbt.Compound)}
}

// Get возвращает указатель на документ для изменения на месте
func (t *BlockEntityTable) Get(pos BlockPos) (*nbt.Compound, bool) {
	doc, ok := t.docs[pos]
	return doc, ok
}

// Insert записывает документ (заменяя существующий). Таблица владеет doc.
func (t *BlockEntityTable) Insert(pos BlockPos, doc nbt.Compound) {
	if doc == nil {
		doc = nbt.NewCompound()
	}
	t.docs[pos] = &doc
}

// Remove удаляет документ, возвращает true если он был
func (t *BlockEntityTable) Remove(pos BlockPos) bool {
	if _, ok := t.docs[pos]; !ok {
		return false
	}
	delete(t.docs, pos)
	return true
}

// RemoveChunk удаляет все документы чанка и возвращает их позиции
func (t *BlockEntityTable) RemoveChunk(cp ChunkPos) []BlockPos {
	var removed []BlockPos
	for pos := range t.docs {
		if pos.ChunkPos() == cp {
			removed = append(removed, pos)
		}
	}
	for _, pos := range removed {
		delete(t.docs, pos)
	}
	sort.Slice(removed, func(i, j int) bool { return lessBlockPos(removed[i], removed[j]) })
	return removed
}

// Len количество документов
func (t *BlockEntityTable) Len() int {
	return len(t.docs)
}

// Positions возвращает позиции всех документов по порядку
func (t *BlockEntityTable) Positions() []BlockPos {
	out := make([]BlockPos, 0, len(t.docs))
	for pos := range t.docs {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return lessBlockPos(out[i], out[j]) })
	return out
}
