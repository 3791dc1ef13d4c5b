package implementations

import (
	"github.com/annel0/blockworld/internal/nbt"
	"github.com/annel0/blockworld/internal/world/block"
)

// PlayerHeadBehavior голова игрока. Владелец скина (SkullOwner) хранится в block entity.
type PlayerHeadBehavior struct{}

func (b *PlayerHeadBehavior) ID() block.BlockID { return block.PlayerHeadBlockID }
func (b *PlayerHeadBehavior) Name() string      { return "minecraft:player_head" }

func (b *PlayerHeadBehavior) Properties() []block.PropName {
	return []block.PropName{block.PropRotation}
}

func (b *PlayerHeadBehavior) HasBlockEntity() bool         { return true }
func (b *PlayerHeadBehavior) CreateMetadata() nbt.Compound { return nbt.NewCompound() }
