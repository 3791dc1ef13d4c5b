package world

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	overworld := NewInstance("overworld", WithLogger(nil))

	require.NoError(t, r.Register(overworld))
	err := r.Register(NewInstance("overworld", WithLogger(nil)))
	assert.True(t, errors.Is(err, ErrDuplicateInstance))

	got, ok := r.Resolve("overworld")
	require.True(t, ok)
	assert.Same(t, overworld, got)

	require.NoError(t, r.Register(NewInstance("lobby", WithLogger(nil))))
	assert.Equal(t, []string{"lobby", "overworld"}, r.Names())

	assert.True(t, r.Unregister("overworld"))
	_, ok = r.Resolve("overworld")
	assert.False(t, ok, "Ключ удалённого инстанса больше не разрешается")
}
