package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockPos_ChunkPos(t *testing.T) {
	cases := []struct {
		pos   BlockPos
		chunk ChunkPos
		lx    int32
		lz    int32
	}{
		{NewBlockPos(0, 64, 0), ChunkPos{0, 0}, 0, 0},
		{NewBlockPos(15, 64, 15), ChunkPos{0, 0}, 15, 15},
		{NewBlockPos(16, 64, 31), ChunkPos{1, 1}, 0, 15},
		{NewBlockPos(-1, 64, -1), ChunkPos{-1, -1}, 15, 15},
		{NewBlockPos(-16, 0, -17), ChunkPos{-1, -2}, 0, 15},
		{NewBlockPos(-17, 0, 5), ChunkPos{-2, 0}, 15, 5},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.chunk, tc.pos.ChunkPos(), "Чанк для %s", tc.pos)

		x, y, z := tc.pos.Local()
		assert.Equal(t, tc.lx, x, "Локальный X для %s", tc.pos)
		assert.Equal(t, tc.pos.Y, y, "Y не должен меняться")
		assert.Equal(t, tc.lz, z, "Локальный Z для %s", tc.pos)
	}
}

func TestChunkPos_Origin(t *testing.T) {
	x, z := ChunkPos{X: -1, Z: 2}.Origin()
	assert.Equal(t, int32(-16), x)
	assert.Equal(t, int32(32), z)
}
