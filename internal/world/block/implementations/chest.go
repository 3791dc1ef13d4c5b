package implementations

import (
	"github.com/annel0/blockworld/internal/nbt"
	"github.com/annel0/blockworld/internal/world/block"
)

// ChestBehavior сундук: ориентирован по сторонам света, хранит содержимое в block entity
type ChestBehavior struct{}

func (b *ChestBehavior) ID() block.BlockID { return block.ChestBlockID }
func (b *ChestBehavior) Name() string      { return "minecraft:chest" }

func (b *ChestBehavior) Properties() []block.PropName {
	return []block.PropName{block.PropFacing}
}

func (b *ChestBehavior) HasBlockEntity() bool { return true }

// CreateMetadata содержимое нового сундука пустое
func (b *ChestBehavior) CreateMetadata() nbt.Compound { return nbt.NewCompound() }
