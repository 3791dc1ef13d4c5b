package scenario

import (
	"fmt"

	"github.com/annel0/blockworld/internal/game"
	"github.com/annel0/blockworld/internal/nbt"
	"github.com/annel0/blockworld/internal/router"
	"github.com/annel0/blockworld/internal/text"
	"github.com/annel0/blockworld/internal/world"
	"github.com/annel0/blockworld/internal/world/block"
)

const floorY = 64

// BlockEntities табличка, которая показывает последнее сообщение чата,
// голова игрока, которая принимает скин ударившего, и сундук.
type BlockEntities struct {
	Sign  world.BlockPos
	Skull world.BlockPos
	Chest world.BlockPos
}

// NewBlockEntities сценарий с позициями по умолчанию
func NewBlockEntities() *BlockEntities {
	return &BlockEntities{
		Sign:  world.BlockPos{X: 3, Y: floorY + 1, Z: 2},
		Skull: world.BlockPos{X: 3, Y: floorY + 1, Z: 3},
		Chest: world.BlockPos{X: 3, Y: floorY + 1, Z: 1},
	}
}

func (s *BlockEntities) Name() string { return NameBlockEntities }

func (s *BlockEntities) Spawn() game.Spawn {
	return game.DefaultSpawn()
}

func (s *BlockEntities) Build(inst *world.Instance, preloadRadius int32) error {
	preload(inst, preloadRadius)

	if err := fillFloor(inst, floorY, 0, 8, 0, 16, block.WhiteConcrete); err != nil {
		return err
	}

	if err := place(inst, s.Chest, block.Chest.Set(block.PropFacing, block.FacingWest)); err != nil {
		return err
	}

	inst.InsertChunk(s.Sign.ChunkPos())
	signDoc := nbt.C(router.SignText1, nbt.String(text.Plain("Type in chat:").WithColor(text.ColorRed).JSON()))
	if _, err := inst.SetBlock(s.Sign, block.OakSign.Set(block.PropRotation, 4), &signDoc); err != nil {
		return fmt.Errorf("табличка в %s: %w", s.Sign, err)
	}

	if err := place(inst, s.Skull, block.PlayerHead.Set(block.PropRotation, 12)); err != nil {
		return err
	}
	return inst.Validate()
}

func (s *BlockEntities) Wire(r *router.Router) {
	r.AddChatSink(router.SignBoard{Pos: s.Sign})
	r.Interactions().Register(s.Skull, router.HandMain, router.InteractAttack, router.SkullOwner{})
}
