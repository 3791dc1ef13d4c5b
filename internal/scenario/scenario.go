// Package scenario содержит готовые сценарии мира: постройку инстанса
// и регистрацию обработчиков событий.
package scenario

import (
	"fmt"
	"sort"

	"github.com/annel0/blockworld/internal/game"
	"github.com/annel0/blockworld/internal/router"
	"github.com/annel0/blockworld/internal/session"
	"github.com/annel0/blockworld/internal/world"
	"github.com/annel0/blockworld/internal/world/block"
)

// Scenario сценарий мира
type Scenario interface {
	Name() string
	// Spawn точка появления и подсказка для новых сессий
	Spawn() game.Spawn
	// Build загружает чанки и ставит блоки
	Build(inst *world.Instance, preloadRadius int32) error
	// Wire регистрирует получателей чата и обработчики взаимодействий
	Wire(r *router.Router)
}

// Имена сценариев в конфиге
const (
	NameBlockEntities = "block_entities"
	NameResourcePack  = "resource_pack"
)

// ByName создаёт сценарий по имени из конфига
func ByName(name string, offer session.PackOffer) (Scenario, error) {
	switch name {
	case "", NameBlockEntities:
		return NewBlockEntities(), nil
	case NameResourcePack:
		if err := offer.Validate(); err != nil {
			return nil, err
		}
		return NewResourcePack(offer), nil
	default:
		return nil, fmt.Errorf("неизвестный сценарий %q (доступны: %v)", name, Names())
	}
}

// Names доступные сценарии
func Names() []string {
	names := []string{NameBlockEntities, NameResourcePack}
	sort.Strings(names)
	return names
}

// preload загружает квадрат чанков [-radius, radius) по X и Z
func preload(inst *world.Instance, radius int32) {
	for x := -radius; x < radius; x++ {
		for z := -radius; z < radius; z++ {
			inst.InsertChunk(world.ChunkPos{X: x, Z: z})
		}
	}
}

// fillFloor ставит state на высоте y в прямоугольнике [x0,x1)x[z0,z1),
// загружая недостающие чанки
func fillFloor(inst *world.Instance, y, x0, x1, z0, z1 int32, state block.BlockState) error {
	for x := x0; x < x1; x++ {
		for z := z0; z < z1; z++ {
			pos := world.BlockPos{X: x, Y: y, Z: z}
			inst.InsertChunk(pos.ChunkPos())
			if _, err := inst.SetBlock(pos, state, nil); err != nil {
				return fmt.Errorf("пол в %s: %w", pos, err)
			}
		}
	}
	return nil
}

func place(inst *world.Instance, pos world.BlockPos, state block.BlockState) error {
	inst.InsertChunk(pos.ChunkPos())
	if _, err := inst.SetBlock(pos, state, nil); err != nil {
		return fmt.Errorf("%s в %s: %w", state, pos, err)
	}
	return nil
}
