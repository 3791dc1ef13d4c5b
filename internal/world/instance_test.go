package world

import (
	"errors"
	"testing"

	"github.com/annel0/blockworld/internal/logging"
	"github.com/annel0/blockworld/internal/nbt"
	"github.com/annel0/blockworld/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInstance(opts ...Option) *Instance {
	opts = append([]Option{WithLogger(nil)}, opts...)
	inst := NewInstance("test", opts...)
	inst.InsertChunk(ChunkPos{0, 0})
	return inst
}

func TestInstance_SetBlockThenGet(t *testing.T) {
	inst := newTestInstance()
	pos := NewBlockPos(3, 65, 2)

	states := []block.BlockState{
		block.Stone,
		block.Chest.Set(block.PropFacing, block.FacingWest),
		block.OakSign.Set(block.PropRotation, 4),
		block.PlayerHead.Set(block.PropRotation, 12),
		block.Air,
	}

	for _, s := range states {
		_, err := inst.SetBlock(pos, s, nil)
		require.NoError(t, err)

		got, err := inst.Block(pos)
		require.NoError(t, err)
		assert.Equal(t, s, got, "После SetBlock должно читаться то же состояние (%s)", s)
	}
}

func TestInstance_BlockEntityPresence(t *testing.T) {
	inst := newTestInstance()
	pos := NewBlockPos(1, 64, 1)

	for _, s := range []block.BlockState{block.Chest, block.OakSign, block.PlayerHead} {
		_, err := inst.SetBlock(pos, s, nil)
		require.NoError(t, err)

		doc, ok := inst.BlockEntityMut(pos)
		assert.True(t, ok, "Для %s должен существовать документ", s)
		assert.NotNil(t, doc)
	}

	for _, s := range []block.BlockState{block.Air, block.Stone, block.WhiteConcrete} {
		_, err := inst.SetBlock(pos, s, nil)
		require.NoError(t, err)

		_, ok := inst.BlockEntityMut(pos)
		assert.False(t, ok, "Для %s документа быть не должно", s)
	}

	assert.NoError(t, inst.Validate())
}

func TestInstance_ReplacedEntityNotResurrected(t *testing.T) {
	inst := newTestInstance()
	pos := NewBlockPos(3, 65, 2)

	_, err := inst.SetBlock(pos, block.OakSign, nil)
	require.NoError(t, err)

	doc, ok := inst.BlockEntityMut(pos)
	require.True(t, ok)
	doc.Set("Text1", nbt.String("привет"))

	_, err = inst.SetBlock(pos, block.Stone, nil)
	require.NoError(t, err)
	_, ok = inst.BlockEntity(pos)
	assert.False(t, ok, "Документ должен быть удалён вместе с табличкой")

	_, err = inst.SetBlock(pos, block.OakSign, nil)
	require.NoError(t, err)
	fresh, ok := inst.BlockEntity(pos)
	require.True(t, ok)
	assert.Empty(t, fresh, "Новая табличка должна начинаться с пустого документа")
}

func TestInstance_SameKindKeepsDocument(t *testing.T) {
	inst := newTestInstance()
	pos := NewBlockPos(3, 65, 3)

	_, err := inst.SetBlock(pos, block.PlayerHead, nil)
	require.NoError(t, err)
	doc, _ := inst.BlockEntityMut(pos)
	doc.Set("note", nbt.String("x"))

	_, err = inst.SetBlock(pos, block.PlayerHead.Set(block.PropRotation, 12), nil)
	require.NoError(t, err)
	kept, ok := inst.BlockEntity(pos)
	require.True(t, ok)
	assert.Equal(t, nbt.C("note", nbt.String("x")), kept, "Поворот того же блока не должен сбрасывать документ")

	_, err = inst.SetBlock(pos, block.Chest, nil)
	require.NoError(t, err)
	reset, ok := inst.BlockEntity(pos)
	require.True(t, ok)
	assert.Empty(t, reset, "Другой тип блока получает документ по умолчанию")
}

func TestInstance_InitialDocument(t *testing.T) {
	inst := newTestInstance()
	pos := NewBlockPos(3, 65, 2)

	initial := nbt.C("Text1", nbt.String("Type in chat:"))
	_, err := inst.SetBlock(pos, block.OakSign, &initial)
	require.NoError(t, err)

	initial.Set("Text1", nbt.String("изменено"))
	doc, ok := inst.BlockEntity(pos)
	require.True(t, ok)
	text, _ := doc.GetString("Text1")
	assert.Equal(t, "Type in chat:", text, "Инстанс должен хранить копию initial")

	bad := nbt.C("x", nbt.Int(1))
	_, err = inst.SetBlock(NewBlockPos(4, 65, 2), block.Stone, &bad)
	assert.True(t, errors.Is(err, ErrInvariantViolation), "initial для блока без block entity это нарушение инварианта")

	state, err := inst.Block(NewBlockPos(4, 65, 2))
	require.NoError(t, err)
	assert.True(t, state.IsAir(), "При нарушении инварианта запись не выполняется")
}

func TestInstance_BlockEntityIsCopy(t *testing.T) {
	inst := newTestInstance()
	pos := NewBlockPos(0, 64, 0)
	_, err := inst.SetBlock(pos, block.Chest, nil)
	require.NoError(t, err)

	doc, _ := inst.BlockEntity(pos)
	doc.Set("Items", nbt.L())

	again, _ := inst.BlockEntity(pos)
	assert.Empty(t, again, "Изменение копии не должно влиять на мир")

	mut, _ := inst.BlockEntityMut(pos)
	mut.Set("Lock", nbt.String("key"))
	again, _ = inst.BlockEntity(pos)
	lock, _ := again.GetString("Lock")
	assert.Equal(t, "key", lock, "Изменения через BlockEntityMut видны сразу")
}

func TestInstance_ReplaceBlockEntity(t *testing.T) {
	inst := newTestInstance()
	pos := NewBlockPos(3, 65, 3)

	_, err := inst.SetBlock(pos, block.PlayerHead, nil)
	require.NoError(t, err)
	mut, _ := inst.BlockEntityMut(pos)
	mut.Set("old", nbt.Int(1))

	err = inst.ReplaceBlockEntity(pos, nbt.C("new", nbt.Int(2)))
	require.NoError(t, err)
	doc, _ := inst.BlockEntity(pos)
	assert.Equal(t, nbt.C("new", nbt.Int(2)), doc, "Документ заменяется, а не сливается")

	err = inst.ReplaceBlockEntity(NewBlockPos(5, 65, 5), nbt.NewCompound())
	assert.True(t, errors.Is(err, ErrInvariantViolation))

	err = inst.ReplaceBlockEntity(NewBlockPos(100, 65, 5), nbt.NewCompound())
	assert.True(t, errors.Is(err, ErrChunkNotLoaded))
}

func TestInstance_NegativeCoordinates(t *testing.T) {
	inst := NewInstance("neg", WithLogger(nil))
	inst.InsertChunk(ChunkPos{-1, -1})

	pos := NewBlockPos(-1, 64, -1)
	_, err := inst.SetBlock(pos, block.Stone, nil)
	require.NoError(t, err, "(-1,64,-1) должен попасть в чанк (-1,-1)")

	c, ok := inst.Chunk(ChunkPos{-1, -1})
	require.True(t, ok)
	state, err := c.Get(15, 64, 15)
	require.NoError(t, err)
	assert.Equal(t, block.Stone, state)

	_, ok = inst.Chunk(ChunkPos{0, 0})
	assert.False(t, ok, "Чанк (0,0) не должен создаваться")
}

func TestInstance_ChunkNotLoaded(t *testing.T) {
	inst := newTestInstance()
	pos := NewBlockPos(40, 64, 40)

	_, err := inst.SetBlock(pos, block.Stone, nil)
	assert.True(t, errors.Is(err, ErrChunkNotLoaded))
	assert.Equal(t, 1, inst.ChunkCount(), "Без lazy chunks чанк не создаётся")

	_, err = inst.Block(pos)
	assert.True(t, errors.Is(err, ErrChunkNotLoaded))
}

func TestInstance_LazyChunks(t *testing.T) {
	inst := newTestInstance(WithLazyChunks(true))
	pos := NewBlockPos(40, 64, -40)

	_, err := inst.SetBlock(pos, block.Chest, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, inst.ChunkCount())

	state, err := inst.Block(pos)
	require.NoError(t, err)
	assert.Equal(t, block.Chest, state)

	_, err = inst.SetBlock(NewBlockPos(100, 10000, 0), block.Stone, nil)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
	assert.Equal(t, 2, inst.ChunkCount(), "Запись вне высоты не должна создавать чанк")
}

func TestInstance_InsertChunkIdempotent(t *testing.T) {
	inst := newTestInstance()
	pos := NewBlockPos(5, 70, 5)
	_, err := inst.SetBlock(pos, block.Stone, nil)
	require.NoError(t, err)

	assert.False(t, inst.InsertChunk(ChunkPos{0, 0}), "Повторная загрузка должна вернуть false")

	state, err := inst.Block(pos)
	require.NoError(t, err)
	assert.Equal(t, block.Stone, state, "Повторная загрузка не должна менять содержимое")
}

func TestInstance_RemoveChunkDropsEntities(t *testing.T) {
	inst := newTestInstance()
	inst.InsertChunk(ChunkPos{1, 0})

	_, err := inst.SetBlock(NewBlockPos(3, 65, 2), block.OakSign, nil)
	require.NoError(t, err)
	_, err = inst.SetBlock(NewBlockPos(20, 65, 2), block.Chest, nil)
	require.NoError(t, err)
	inst.TakeChanges()

	assert.True(t, inst.RemoveChunk(ChunkPos{0, 0}))
	assert.False(t, inst.RemoveChunk(ChunkPos{0, 0}))

	_, ok := inst.BlockEntity(NewBlockPos(3, 65, 2))
	assert.False(t, ok, "Документы выгруженного чанка недоступны")
	_, ok = inst.BlockEntity(NewBlockPos(20, 65, 2))
	assert.True(t, ok, "Документы других чанков остаются")
	assert.Equal(t, 1, inst.BlockEntityCount())
	assert.NoError(t, inst.Validate())

	changes := inst.TakeChanges()
	require.Len(t, changes.BlockEntities, 1)
	assert.True(t, changes.BlockEntities[0].Removed)
}

func TestInstance_TakeChanges(t *testing.T) {
	inst := newTestInstance()

	sign := NewBlockPos(3, 65, 2)
	floor := NewBlockPos(0, 64, 0)

	_, _ = inst.SetBlock(floor, block.Stone, nil)
	_, _ = inst.SetBlock(floor, block.WhiteConcrete, nil)
	_, _ = inst.SetBlock(sign, block.OakSign, nil)
	doc, _ := inst.BlockEntityMut(sign)
	doc.Set("Text2", nbt.String("hello"))

	changes := inst.TakeChanges()
	assert.Equal(t, "test", changes.Instance)
	assert.Equal(t, []BlockChange{
		{Pos: floor, State: block.WhiteConcrete},
		{Pos: sign, State: block.OakSign},
	}, changes.Blocks, "Каждая позиция один раз, с итоговым состоянием")

	require.Len(t, changes.BlockEntities, 1)
	assert.Equal(t, sign, changes.BlockEntities[0].Pos)
	assert.Equal(t, nbt.C("Text2", nbt.String("hello")), changes.BlockEntities[0].Data)

	assert.True(t, inst.TakeChanges().Empty(), "Журнал очищается после TakeChanges")

	// Запись того же состояния изменением не считается
	_, _ = inst.SetBlock(floor, block.WhiteConcrete, nil)
	assert.True(t, inst.TakeChanges().Empty())

	_, _ = inst.SetBlock(sign, block.Air, nil)
	changes = inst.TakeChanges()
	require.Len(t, changes.BlockEntities, 1)
	assert.True(t, changes.BlockEntities[0].Removed, "Удалённый документ сообщается как удаление")
	assert.Nil(t, changes.BlockEntities[0].Data)
}

func TestInstance_ForEachChunkOrder(t *testing.T) {
	inst := NewInstance("order", WithLogger(nil))
	for _, cp := range []ChunkPos{{1, 0}, {-1, 2}, {0, 0}, {-1, -1}} {
		inst.InsertChunk(cp)
	}

	var order []ChunkPos
	inst.ForEachChunk(func(c *ChunkStore) bool {
		order = append(order, c.Coords)
		return true
	})
	assert.Equal(t, []ChunkPos{{-1, -1}, {-1, 2}, {0, 0}, {1, 0}}, order)
}

func TestInstance_ValidateDetectsCorruption(t *testing.T) {
	inst := newTestInstance()
	pos := NewBlockPos(2, 64, 2)

	// Ломаем связь напрямую, минуя SetBlock
	inst.entities.Insert(pos, nbt.NewCompound())
	err := inst.Validate()
	assert.True(t, errors.Is(err, ErrInvariantViolation))

	inst.entities.Remove(pos)
	c, _ := inst.Chunk(ChunkPos{0, 0})
	_, _ = c.Set(2, 64, 2, block.Chest)
	err = inst.Validate()
	assert.True(t, errors.Is(err, ErrInvariantViolation), "Блок с block entity без документа тоже нарушение")
}

func TestInstance_WithLoggerNilIsSilent(t *testing.T) {
	var l *logging.Logger
	inst := NewInstance("silent", WithLogger(l))
	assert.True(t, inst.InsertChunk(ChunkPos{}))
}

func TestInstance_RequeueChanges(t *testing.T) {
	inst := newTestInstance()
	stone := NewBlockPos(1, 64, 1)
	chest := NewBlockPos(2, 64, 1)

	_, err := inst.SetBlock(stone, block.Stone, nil)
	require.NoError(t, err)
	_, err = inst.SetBlock(chest, block.Chest, nil)
	require.NoError(t, err)

	lost := inst.TakeChanges()
	require.Zero(t, inst.PendingChanges())

	// Между потерей снимка и повтором блок успели заменить
	_, err = inst.SetBlock(stone, block.Dirt, nil)
	require.NoError(t, err)
	inst.RequeueChanges(lost)

	again := inst.TakeChanges()
	require.Len(t, again.Blocks, 2, "каждая позиция перечисляется один раз")
	assert.Equal(t, block.Dirt, again.Blocks[0].State, "повтор несёт текущее значение")
	require.Len(t, again.BlockEntities, 1)
	assert.Equal(t, chest, again.BlockEntities[0].Pos)
}
