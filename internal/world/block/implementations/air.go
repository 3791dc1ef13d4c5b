package implementations

import (
	"github.com/annel0/blockworld/internal/nbt"
	"github.com/annel0/blockworld/internal/world/block"
)

// AirBehavior реализует поведение воздуха
type AirBehavior struct{}

func (b *AirBehavior) ID() block.BlockID            { return block.AirBlockID }
func (b *AirBehavior) Name() string                 { return "minecraft:air" }
func (b *AirBehavior) Properties() []block.PropName { return nil }
func (b *AirBehavior) HasBlockEntity() bool         { return false }
func (b *AirBehavior) CreateMetadata() nbt.Compound { return nil }
