package session

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Textures(t *testing.T) {
	s := New(uuid.New(), "Alice", []Property{{Name: TexturesProperty, Value: "abc"}})
	p, ok := s.Textures()
	require.True(t, ok)
	assert.Equal(t, "abc", p.Value)

	empty := New(uuid.New(), "Bob", []Property{{Name: TexturesProperty}})
	_, ok = empty.Textures()
	assert.False(t, ok, "Пустое значение textures не считается")
}

func TestParseGameMode(t *testing.T) {
	m, err := ParseGameMode("Creative")
	require.NoError(t, err)
	assert.Equal(t, Creative, m)

	_, err = ParseGameMode("god")
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	alice := New(uuid.New(), "Alice", nil)
	bob := New(uuid.New(), "Bob", nil)
	bob.ConnectedAt = alice.ConnectedAt.Add(time.Second)

	require.NoError(t, r.Add(bob))
	require.NoError(t, r.Add(alice))
	assert.True(t, errors.Is(r.Add(alice), ErrDuplicateSession))
	assert.Equal(t, 2, r.Len())

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "Alice", all[0].Username, "Сессии упорядочены по времени подключения")

	found, ok := r.ByName("Bob")
	require.True(t, ok)
	assert.Equal(t, bob.ID, found.ID)

	_, err := r.Remove(alice.ID)
	require.NoError(t, err)
	_, err = r.Remove(alice.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	_, ok = r.Get(alice.ID)
	assert.False(t, ok)
}

func TestSession_Snapshot(t *testing.T) {
	s := New(uuid.New(), "Alice", nil)
	s.InstanceKey = "overworld"
	s.GameMode = Creative

	info := s.Snapshot()
	assert.Equal(t, "overworld", info.Instance)
	assert.Equal(t, Creative, info.GameMode)
	assert.Equal(t, PackIdle, info.ResourcePack)
}
