package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/annel0/blockworld/internal/logging"
	"github.com/annel0/blockworld/internal/nbt"
	"github.com/annel0/blockworld/internal/world/block"

	// Регистрация всех типов блоков
	_ "github.com/annel0/blockworld/internal/world/block/implementations"
)

// Вертикальные границы инстанса по умолчанию
const (
	DefaultMinY   int32 = -64
	DefaultHeight int32 = 384
)

// Option настраивает Instance при создании
type Option func(*Instance)

// WithBounds задаёт вертикальные границы. height должен быть кратен 16.
func WithBounds(minY, height int32) Option {
	return func(i *Instance) {
		i.minY = minY
		i.height = height
	}
}

// WithLazyChunks включает создание чанка при записи в незагруженный чанк.
// По умолчанию выключено: запись в незагруженный чанк возвращает ErrChunkNotLoaded.
func WithLazyChunks(enabled bool) Option {
	return func(i *Instance) {
		i.lazyChunks = enabled
	}
}

// WithLogger задаёт логгер инстанса
func WithLogger(logger *logging.Logger) Option {
	return func(i *Instance) {
		i.logger = logger
	}
}

// Instance полное адресуемое состояние одного мира: загруженные чанки
// и block entity. Один писатель: все методы вызываются из тика сервера.
type Instance struct {
	name       string
	minY       int32
	height     int32
	lazyChunks bool

	chunks   map[ChunkPos]*ChunkStore
	entities *BlockEntityTable
	journal  *changeJournal
	logger   *logging.Logger
}

// NewInstance создаёт пустой инстанс без загруженных чанков
func NewInstance(name string, opts ...Option) *Instance {
	inst := &Instance{
		name:     name,
		minY:     DefaultMinY,
		height:   DefaultHeight,
		chunks:   make(map[ChunkPos]*ChunkStore),
		entities: NewBlockEntityTable(),
		journal:  newChangeJournal(),
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// Name имя инстанса (ключ в реестре)
func (i *Instance) Name() string { return i.name }

// MinY нижняя граница мира
func (i *Instance) MinY() int32 { return i.minY }

// Height высота мира
func (i *Instance) Height() int32 { return i.height }

// LazyChunks политика создания чанков при записи
func (i *Instance) LazyChunks() bool { return i.lazyChunks }

// InsertChunk загружает пустой чанк. Повторный вызов ничего не меняет
// и возвращает false.
func (i *Instance) InsertChunk(pos ChunkPos) bool {
	if _, ok := i.chunks[pos]; ok {
		return false
	}
	i.chunks[pos] = NewChunkStore(pos, i.minY, i.height)
	i.logger.Trace("чанк %s загружен в %s", pos, i.name)
	return true
}

// RemoveChunk выгружает чанк вместе со всеми block entity внутри него
func (i *Instance) RemoveChunk(pos ChunkPos) bool {
	if _, ok := i.chunks[pos]; !ok {
		return false
	}
	delete(i.chunks, pos)

	removed := i.entities.RemoveChunk(pos)
	for _, p := range removed {
		i.journal.markEntity(p)
	}
	for p := range i.journal.blocks {
		if p.ChunkPos() == pos {
			delete(i.journal.blocks, p)
		}
	}

	i.logger.Debug("чанк %s выгружен из %s, удалено block entity: %d", pos, i.name, len(removed))
	return true
}

// Chunk возвращает загруженный чанк
func (i *Instance) Chunk(pos ChunkPos) (*ChunkStore, bool) {
	c, ok := i.chunks[pos]
	return c, ok
}

// ChunkCount количество загруженных чанков
func (i *Instance) ChunkCount() int {
	return len(i.chunks)
}

// ForEachChunk обходит загруженные чанки в порядке X, затем Z
func (i *Instance) ForEachChunk(fn func(*ChunkStore) bool) {
	keys := make([]ChunkPos, 0, len(i.chunks))
	for pos := range i.chunks {
		keys = append(keys, pos)
	}
	sort.Slice(keys, func(a, b int) bool { return lessChunkPos(keys[a], keys[b]) })

	for _, pos := range keys {
		if !fn(i.chunks[pos]) {
			return
		}
	}
}

// Block возвращает состояние блока
func (i *Instance) Block(pos BlockPos) (block.BlockState, error) {
	c, ok := i.chunks[pos.ChunkPos()]
	if !ok {
		return block.Air, fmt.Errorf("%w: %s для блока %s", ErrChunkNotLoaded, pos.ChunkPos(), pos)
	}
	x, y, z := pos.Local()
	return c.Get(x, y, z)
}

// SetBlock записывает блок и поддерживает связь с block entity:
//   - новый тип несёт block entity: непустой initial заменяет документ своей
//     копией; иначе документ сохраняется, если прежний блок того же типа,
//     а для другого типа создаётся документ по умолчанию.
//   - новый тип без block entity: документ удаляется.
//
// initial для типа без block entity это ErrInvariantViolation, запись не выполняется.
func (i *Instance) SetBlock(pos BlockPos, state block.BlockState, initial *nbt.Compound) (block.BlockState, error) {
	bearing := state.HasBlockEntity()
	if initial != nil && !bearing {
		return block.Air, fmt.Errorf("%w: документ для %s в %s", ErrInvariantViolation, state, pos)
	}

	c, err := i.chunkForWrite(pos)
	if err != nil {
		return block.Air, err
	}

	x, y, z := pos.Local()
	prev, err := c.Set(x, y, z, state)
	if err != nil {
		return block.Air, err
	}
	if prev != state {
		i.journal.markBlock(pos)
	}

	if !bearing {
		if i.entities.Remove(pos) {
			i.journal.markEntity(pos)
		}
		return prev, nil
	}

	_, exists := i.entities.Get(pos)
	switch {
	case initial != nil:
		i.entities.Insert(pos, initial.Clone())
	case exists && prev.ID() == state.ID():
		return prev, nil
	default:
		i.entities.Insert(pos, state.DefaultBlockEntity())
	}
	i.journal.markEntity(pos)
	return prev, nil
}

// BlockEntity возвращает копию документа. Изменения копии не влияют на мир.
func (i *Instance) BlockEntity(pos BlockPos) (nbt.Compound, bool) {
	doc, ok := i.entities.Get(pos)
	if !ok {
		return nil, false
	}
	return doc.Clone(), true
}

// BlockEntityMut возвращает документ для изменения на месте. Позиция
// попадает в журнал изменений. Если документа нет, возвращает false:
// блок должен быть поставлен до того, как его метаданные можно менять.
func (i *Instance) BlockEntityMut(pos BlockPos) (*nbt.Compound, bool) {
	doc, ok := i.entities.Get(pos)
	if !ok {
		return nil, false
	}
	i.journal.markEntity(pos)
	return doc, true
}

// ReplaceBlockEntity заменяет документ целиком (без слияния)
func (i *Instance) ReplaceBlockEntity(pos BlockPos, doc nbt.Compound) error {
	state, err := i.Block(pos)
	if err != nil {
		return err
	}
	if !state.HasBlockEntity() {
		return fmt.Errorf("%w: %s в %s не несёт block entity", ErrInvariantViolation, state, pos)
	}

	i.entities.Insert(pos, doc.Clone())
	i.journal.markEntity(pos)
	return nil
}

// BlockEntityCount количество документов в инстансе
func (i *Instance) BlockEntityCount() int {
	return i.entities.Len()
}

// Validate проверяет инвариант block entity по всему инстансу:
// документ есть ровно у блоков, которые его несут.
func (i *Instance) Validate() error {
	var errs []error

	for _, pos := range i.entities.Positions() {
		state, err := i.Block(pos)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: документ в %s: %v", ErrInvariantViolation, pos, err))
			continue
		}
		if !state.HasBlockEntity() {
			errs = append(errs, fmt.Errorf("%w: документ в %s на блоке %s", ErrInvariantViolation, pos, state))
		}
	}

	i.ForEachChunk(func(c *ChunkStore) bool {
		ox, oz := c.Coords.Origin()
		c.ForEach(func(x, y, z int32, state block.BlockState) bool {
			if !state.HasBlockEntity() {
				return true
			}
			pos := BlockPos{X: ox + x, Y: y, Z: oz + z}
			if _, ok := i.entities.Get(pos); !ok {
				errs = append(errs, fmt.Errorf("%w: нет документа для %s в %s", ErrInvariantViolation, state, pos))
			}
			return true
		})
		return true
	})

	return errors.Join(errs...)
}

// PendingChanges количество позиций в журнале изменений
func (i *Instance) PendingChanges() int {
	return i.journal.pending()
}

// TakeChanges возвращает итоговые значения всех позиций, изменённых с
// прошлого вызова, и очищает журнал. Порядок детерминирован.
func (i *Instance) TakeChanges() Changes {
	changes := Changes{Instance: i.name}

	for _, pos := range sortedPositions(i.journal.blocks) {
		state, err := i.Block(pos)
		if err != nil {
			continue
		}
		changes.Blocks = append(changes.Blocks, BlockChange{Pos: pos, State: state})
	}

	for _, pos := range sortedPositions(i.journal.entities) {
		doc, ok := i.entities.Get(pos)
		if !ok {
			changes.BlockEntities = append(changes.BlockEntities, BlockEntityChange{Pos: pos, Removed: true})
			continue
		}
		changes.BlockEntities = append(changes.BlockEntities, BlockEntityChange{Pos: pos, Data: doc.Clone()})
	}

	i.journal.reset()
	return changes
}

// RequeueChanges возвращает позиции неотправленного снимка в журнал.
// Следующий TakeChanges перечислит их снова с текущими значениями.
func (i *Instance) RequeueChanges(changes Changes) {
	for _, b := range changes.Blocks {
		if _, ok := i.chunks[b.Pos.ChunkPos()]; ok {
			i.journal.markBlock(b.Pos)
		}
	}
	for _, e := range changes.BlockEntities {
		i.journal.markEntity(e.Pos)
	}
}

// chunkForWrite возвращает чанк для записи с учётом политики lazy chunks
func (i *Instance) chunkForWrite(pos BlockPos) (*ChunkStore, error) {
	cp := pos.ChunkPos()
	if c, ok := i.chunks[cp]; ok {
		return c, nil
	}
	if !i.lazyChunks {
		return nil, fmt.Errorf("%w: %s для блока %s", ErrChunkNotLoaded, cp, pos)
	}
	if pos.Y < i.minY || pos.Y >= i.minY+i.height {
		return nil, fmt.Errorf("%w: блок %s, высота [%d,%d)", ErrOutOfBounds, pos, i.minY, i.minY+i.height)
	}
	i.InsertChunk(cp)
	return i.chunks[cp], nil
}
