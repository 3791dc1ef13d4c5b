package implementations

import (
	"github.com/annel0/blockworld/internal/nbt"
	"github.com/annel0/blockworld/internal/world/block"
)

// SolidBehavior простой непрозрачный блок без свойств и метаданных
// (камень, земля, бетон, бедрок).
type SolidBehavior struct {
	id   block.BlockID
	name string
}

// NewSolidBehavior создаёт поведение простого блока
func NewSolidBehavior(id block.BlockID, name string) *SolidBehavior {
	return &SolidBehavior{id: id, name: name}
}

func (b *SolidBehavior) ID() block.BlockID            { return b.id }
func (b *SolidBehavior) Name() string                 { return b.name }
func (b *SolidBehavior) Properties() []block.PropName { return nil }
func (b *SolidBehavior) HasBlockEntity() bool         { return false }
func (b *SolidBehavior) CreateMetadata() nbt.Compound { return nil }
