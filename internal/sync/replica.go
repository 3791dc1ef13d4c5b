package sync

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/annel0/blockworld/internal/eventbus"
	"github.com/annel0/blockworld/internal/nbt"
	"github.com/annel0/blockworld/internal/world"
)

// snapshotWire форма world.Changes на шине. Состояние блока передаётся строкой.
type snapshotWire struct {
	Instance string `json:"instance"`
	Blocks   []struct {
		Pos   world.BlockPos `json:"pos"`
		State string         `json:"state"`
	} `json:"blocks"`
	BlockEntities []struct {
		Pos     world.BlockPos `json:"pos"`
		Removed bool           `json:"removed"`
		Data    nbt.Compound   `json:"data"`
	} `json:"block_entities"`
}

// Replica собирает итоговое состояние из потока BlockSnapshot.
// Используется как зеркало для проверки репликации и отладки.
// Записи разных узлов в одну позицию сводит ConflictResolver.
type Replica struct {
	mu           sync.RWMutex
	resolver     ConflictResolver
	blocks       map[world.BlockPos]string
	blockStamps  map[world.BlockPos]Stamp
	entities     map[world.BlockPos]nbt.Compound
	entityStamps map[world.BlockPos]Stamp
	applied      int
	conflicts    int
}

// NewReplica создаёт пустое зеркало с LWW-разрешением конфликтов
func NewReplica() *Replica {
	return NewReplicaWithResolver(LWWResolver{})
}

// NewReplicaWithResolver создаёт пустое зеркало с заданной стратегией
func NewReplicaWithResolver(resolver ConflictResolver) *Replica {
	return &Replica{
		resolver:     resolver,
		blocks:       make(map[world.BlockPos]string),
		blockStamps:  make(map[world.BlockPos]Stamp),
		entities:     make(map[world.BlockPos]nbt.Compound),
		entityStamps: make(map[world.BlockPos]Stamp),
	}
}

// Apply применяет одно изменение типа BlockSnapshot
func (r *Replica) Apply(change Change) error {
	if change.ChangeType != eventbus.TypeBlockSnapshot {
		return fmt.Errorf("неподдерживаемый тип изменения %q", change.ChangeType)
	}

	var snap snapshotWire
	if err := json.Unmarshal(change.Data, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	stamp := Stamp{At: change.Timestamp, Source: change.Source}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range snap.Blocks {
		if !r.accept(r.blockStamps, b.Pos, stamp) {
			continue
		}
		r.blocks[b.Pos] = b.State
	}
	for _, e := range snap.BlockEntities {
		if !r.accept(r.entityStamps, e.Pos, stamp) {
			continue
		}
		if e.Removed {
			delete(r.entities, e.Pos)
			continue
		}
		r.entities[e.Pos] = e.Data
	}
	r.applied++
	return nil
}

// accept проверяет запись по штампу позиции и запоминает победителя
func (r *Replica) accept(stamps map[world.BlockPos]Stamp, pos world.BlockPos, remote Stamp) bool {
	local, seen := stamps[pos]
	if seen && !r.resolver.Accept(local, remote) {
		r.conflicts++
		return false
	}
	stamps[pos] = remote
	return true
}

// Block возвращает последнее известное состояние блока
func (r *Replica) Block(pos world.BlockPos) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.blocks[pos]
	return s, ok
}

// BlockEntity возвращает копию последнего известного документа
func (r *Replica) BlockEntity(pos world.BlockPos) (nbt.Compound, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.entities[pos]
	if !ok {
		return nil, false
	}
	return doc.Clone(), true
}

// Applied количество применённых снимков
func (r *Replica) Applied() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.applied
}

// Conflicts количество записей, отклонённых резолвером
func (r *Replica) Conflicts() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conflicts
}
