package scenario

import (
	"github.com/annel0/blockworld/internal/game"
	"github.com/annel0/blockworld/internal/router"
	"github.com/annel0/blockworld/internal/session"
	"github.com/annel0/blockworld/internal/world"
	"github.com/annel0/blockworld/internal/world/block"
)

// DefaultPackOffer пример ресурспака
func DefaultPackOffer() session.PackOffer {
	return session.PackOffer{
		URL:  "https://github.com/valence-rs/valence/raw/main/assets/example_pack.zip",
		SHA1: "d7c6108849fb190ec2a49f2d38b7f1f897d9ce9f",
	}
}

// ResourcePack пол из бедрока и блок, удар по которому предлагает ресурспак
type ResourcePack struct {
	Offer  session.PackOffer
	Target world.BlockPos
}

// NewResourcePack сценарий с блоком-мишенью в центре пола
func NewResourcePack(offer session.PackOffer) *ResourcePack {
	return &ResourcePack{
		Offer:  offer,
		Target: world.BlockPos{X: 0, Y: floorY + 1, Z: 0},
	}
}

func (s *ResourcePack) Name() string { return NameResourcePack }

func (s *ResourcePack) Spawn() game.Spawn {
	spawn := game.DefaultSpawn()
	spawn.Welcome = "Hit the stone block to prompt for the resource pack."
	return spawn
}

func (s *ResourcePack) Build(inst *world.Instance, preloadRadius int32) error {
	preload(inst, preloadRadius)

	if err := fillFloor(inst, floorY, -25, 25, -25, 25, block.Bedrock); err != nil {
		return err
	}
	return place(inst, s.Target, block.Stone)
}

func (s *ResourcePack) Wire(r *router.Router) {
	r.Interactions().Register(s.Target, router.HandMain, router.InteractAttack, router.PackPrompter{Offer: s.Offer})
}
