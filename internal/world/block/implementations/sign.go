package implementations

import (
	"github.com/annel0/blockworld/internal/nbt"
	"github.com/annel0/blockworld/internal/world/block"
)

// SignBehavior стоячая табличка. Строки текста хранятся в ключах Text1..Text4
// block entity в виде JSON text component.
type SignBehavior struct{}

func (b *SignBehavior) ID() block.BlockID { return block.OakSignBlockID }
func (b *SignBehavior) Name() string      { return "minecraft:oak_sign" }

func (b *SignBehavior) Properties() []block.PropName {
	return []block.PropName{block.PropRotation}
}

func (b *SignBehavior) HasBlockEntity() bool         { return true }
func (b *SignBehavior) CreateMetadata() nbt.Compound { return nbt.NewCompound() }
