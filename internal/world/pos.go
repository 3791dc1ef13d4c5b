package world

import (
	"fmt"

	"github.com/annel0/blockworld/internal/vec"
)

// ChunkWidth горизонтальный размер чанка в блоках
const ChunkWidth = 16

// ChunkPos координаты чанка (колонны блоков) в мире
type ChunkPos struct {
	X int32 `json:"x"`
	Z int32 `json:"z"`
}

// String форматирует координаты чанка
func (c ChunkPos) String() string {
	return fmt.Sprintf("chunk(%d,%d)", c.X, c.Z)
}

// Origin возвращает мировые X/Z угла чанка с минимальными координатами
func (c ChunkPos) Origin() (x, z int32) {
	return c.X * ChunkWidth, c.Z * ChunkWidth
}

// BlockPos мировые координаты блока
type BlockPos struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
	Z int32 `json:"z"`
}

// NewBlockPos создаёт позицию блока
func NewBlockPos(x, y, z int32) BlockPos {
	return BlockPos{X: x, Y: y, Z: z}
}

// ChunkPos возвращает чанк, в котором лежит блок.
// Деление с округлением вниз: (-1, y, -1) лежит в чанке (-1, -1).
func (p BlockPos) ChunkPos() ChunkPos {
	return ChunkPos{
		X: vec.FloorDiv(p.X, ChunkWidth),
		Z: vec.FloorDiv(p.Z, ChunkWidth),
	}
}

// Local возвращает координаты блока внутри его чанка.
// Y не меняется: вертикальные границы проверяет ChunkStore.
func (p BlockPos) Local() (x, y, z int32) {
	return vec.FloorMod(p.X, ChunkWidth), p.Y, vec.FloorMod(p.Z, ChunkWidth)
}

// Offset возвращает позицию, сдвинутую на (dx, dy, dz)
func (p BlockPos) Offset(dx, dy, dz int32) BlockPos {
	return BlockPos{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

// Vec возвращает позицию как vec.Vec3
func (p BlockPos) Vec() vec.Vec3 {
	return vec.Vec3{X: p.X, Y: p.Y, Z: p.Z}
}

// String форматирует позицию
func (p BlockPos) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}

// lessBlockPos порядок X, затем Y, затем Z
func lessBlockPos(a, b BlockPos) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

// lessChunkPos порядок X, затем Z
func lessChunkPos(a, b ChunkPos) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Z < b.Z
}
