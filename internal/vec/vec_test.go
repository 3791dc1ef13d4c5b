package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloorDiv(t *testing.T) {
	tests := []struct {
		a, b, want int32
	}{
		{0, 16, 0},
		{15, 16, 0},
		{16, 16, 1},
		{-1, 16, -1},
		{-16, 16, -1},
		{-17, 16, -2},
		{33, 16, 2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FloorDiv(tt.a, tt.b), "FloorDiv(%d, %d)", tt.a, tt.b)
	}
}

func TestFloorMod(t *testing.T) {
	assert.Equal(t, int32(15), FloorMod(-1, 16))
	assert.Equal(t, int32(0), FloorMod(-16, 16))
	assert.Equal(t, int32(3), FloorMod(19, 16))
	assert.Equal(t, int32(15), FloorMod(-17, 16))
}

func TestVec3FloatFloor(t *testing.T) {
	p := Vec3Float{X: -0.5, Y: 65.2, Z: 1.5}
	assert.Equal(t, Vec3{X: -1, Y: 65, Z: 1}, p.Floor())
	assert.InDelta(t, 5.0, Vec3Float{}.DistanceTo(Vec3Float{X: 3, Y: 4}), 1e-9)
}
