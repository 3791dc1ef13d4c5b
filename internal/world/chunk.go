package world

import (
	"fmt"

	"github.com/annel0/blockworld/internal/world/block"
)

// SectionHeight высота секции чанка в блоках
const SectionHeight = 16

const sectionVolume = ChunkWidth * ChunkWidth * SectionHeight

// section секция 16x16x16. Выделяется при первой записи не-воздуха.
type section struct {
	blocks [sectionVolume]block.BlockState
	nonAir int
}

func sectionIndex(x, y, z int32) int {
	return int((y&(SectionHeight-1))<<8 | z<<4 | x)
}

// ChunkStore хранит состояния блоков одной колонны 16 x Height x 16.
// Ничего не знает о block entity: метаданные адресуются глобально и живут в Instance.
type ChunkStore struct {
	Coords ChunkPos // Координаты чанка в мире

	minY     int32
	height   int32
	sections []*section
	nonAir   int
}

// NewChunkStore создаёт пустой (заполненный воздухом) чанк.
// height должен быть кратен SectionHeight.
func NewChunkStore(coords ChunkPos, minY, height int32) *ChunkStore {
	if height <= 0 || height%SectionHeight != 0 {
		panic(fmt.Sprintf("высота чанка %d должна быть положительной и кратной %d", height, SectionHeight))
	}
	return &ChunkStore{
		Coords:   coords,
		minY:     minY,
		height:   height,
		sections: make([]*section, height/SectionHeight),
	}
}

// MinY нижняя граница по вертикали (включительно)
func (c *ChunkStore) MinY() int32 { return c.minY }

// Height высота чанка в блоках
func (c *ChunkStore) Height() int32 { return c.height }

// InBounds проверяет локальные координаты
func (c *ChunkStore) InBounds(x, y, z int32) bool {
	return x >= 0 && x < ChunkWidth &&
		z >= 0 && z < ChunkWidth &&
		y >= c.minY && y < c.minY+c.height
}

// Get возвращает состояние блока по локальным x/z и мировому y
func (c *ChunkStore) Get(x, y, z int32) (block.BlockState, error) {
	if !c.InBounds(x, y, z) {
		return block.Air, c.boundsError(x, y, z)
	}

	sec := c.sections[(y-c.minY)/SectionHeight]
	if sec == nil {
		return block.Air, nil
	}
	return sec.blocks[sectionIndex(x, y-c.minY, z)], nil
}

// Set записывает состояние блока и возвращает предыдущее
func (c *ChunkStore) Set(x, y, z int32, state block.BlockState) (block.BlockState, error) {
	if !c.InBounds(x, y, z) {
		return block.Air, c.boundsError(x, y, z)
	}

	si := (y - c.minY) / SectionHeight
	sec := c.sections[si]
	if sec == nil {
		if state.IsAir() {
			return block.Air, nil
		}
		sec = &section{}
		c.sections[si] = sec
	}

	idx := sectionIndex(x, y-c.minY, z)
	prev := sec.blocks[idx]
	sec.blocks[idx] = state

	switch {
	case prev.IsAir() && !state.IsAir():
		sec.nonAir++
		c.nonAir++
	case !prev.IsAir() && state.IsAir():
		sec.nonAir--
		c.nonAir--
	}

	// Пустую секцию освобождаем
	if sec.nonAir == 0 {
		c.sections[si] = nil
	}

	return prev, nil
}

// NonAirCount количество блоков, отличных от воздуха
func (c *ChunkStore) NonAirCount() int {
	return c.nonAir
}

// ForEach обходит все блоки, отличные от воздуха, снизу вверх.
// Возврат false из fn прекращает обход.
func (c *ChunkStore) ForEach(fn func(x, y, z int32, state block.BlockState) bool) {
	for si, sec := range c.sections {
		if sec == nil {
			continue
		}
		baseY := c.minY + int32(si)*SectionHeight
		for i, state := range sec.blocks {
			if state.IsAir() {
				continue
			}
			x := int32(i & 0xF)
			z := int32((i >> 4) & 0xF)
			y := baseY + int32(i>>8)
			if !fn(x, y, z, state) {
				return
			}
		}
	}
}

func (c *ChunkStore) boundsError(x, y, z int32) error {
	return fmt.Errorf("%w: %s локальные (%d,%d,%d), высота [%d,%d)",
		ErrOutOfBounds, c.Coords, x, y, z, c.minY, c.minY+c.height)
}
