package world

import (
	"sort"

	"github.com/annel0/blockworld/internal/nbt"
	"github.com/annel0/blockworld/internal/world/block"
)

// BlockChange итоговое состояние изменённой ячейки
type BlockChange struct {
	Pos   BlockPos         `json:"pos"`
	State block.BlockState `json:"state"`
}

// BlockEntityChange итоговый документ block entity или его удаление
type BlockEntityChange struct {
	Pos     BlockPos     `json:"pos"`
	Removed bool         `json:"removed,omitempty"`
	Data    nbt.Compound `json:"data,omitempty"`
}

// Changes все изменения инстанса с предыдущего TakeChanges.
// Каждая позиция встречается не больше одного раза, с итоговым значением.
type Changes struct {
	Instance      string              `json:"instance"`
	Blocks        []BlockChange       `json:"blocks,omitempty"`
	BlockEntities []BlockEntityChange `json:"block_entities,omitempty"`
}

// Empty true, если изменений нет
func (c Changes) Empty() bool {
	return len(c.Blocks) == 0 && len(c.BlockEntities) == 0
}

// changeJournal накапливает изменённые позиции между тиками
type changeJournal struct {
	blocks   map[BlockPos]struct{}
	entities map[BlockPos]struct{}
}

func newChangeJournal() *changeJournal {
	return &changeJournal{
		blocks:   make(map[BlockPos]struct{}),
		entities: make(map[BlockPos]struct{}),
	}
}

func (j *changeJournal) markBlock(pos BlockPos)  { j.blocks[pos] = struct{}{} }
func (j *changeJournal) markEntity(pos BlockPos) { j.entities[pos] = struct{}{} }

func (j *changeJournal) pending() int {
	return len(j.blocks) + len(j.entities)
}

func (j *changeJournal) reset() {
	j.blocks = make(map[BlockPos]struct{})
	j.entities = make(map[BlockPos]struct{})
}

func sortedPositions(set map[BlockPos]struct{}) []BlockPos {
	out := make([]BlockPos, 0, len(set))
	for pos := range set {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return lessBlockPos(out[i], out[j]) })
	return out
}
