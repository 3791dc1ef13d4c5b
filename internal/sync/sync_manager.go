package sync

import (
	"time"

	"github.com/annel0/blockworld/internal/eventbus"
	"github.com/annel0/blockworld/internal/logging"
)

// SyncManager координирует работу всех компонентов синхронизации:
// BatchManager, SyncProducer и (опционально) SyncConsumer с зеркалом.
type SyncManager struct {
	bm       *BatchManager
	producer *SyncProducer
	consumer *SyncConsumer
	replica  *Replica
}

type SyncConfig struct {
	Source      string
	Bus         eventbus.EventBus
	BatchSize   int
	FlushEvery  time.Duration
	Compression string // none|gzip|zstd
	Mirror      bool   // поднять локальное зеркало (SyncConsumer + Replica)
	Logger      *logging.Logger
}

func NewSyncManager(cfg SyncConfig) (*SyncManager, error) {
	compressor, err := NewCompressor(cfg.Compression)
	if err != nil {
		return nil, err
	}
	logging.Info("🔄 SyncManager: компрессия %s", compressor.Name())

	bm := NewBatchManager(cfg.Bus, cfg.Source, cfg.BatchSize, cfg.FlushEvery, compressor, WithBatchLogger(cfg.Logger))
	producer, err := NewSyncProducer(cfg.Bus, bm)
	if err != nil {
		bm.Stop()
		return nil, err
	}

	sm := &SyncManager{bm: bm, producer: producer}

	if cfg.Mirror {
		sm.replica = NewReplica()
		consumer, err := newSyncConsumer(cfg.Bus, sm.replica, cfg.Logger, compressor)
		if err != nil {
			producer.Stop()
			bm.Stop()
			return nil, err
		}
		sm.consumer = consumer
	}

	logging.Info("✅ SyncManager инициализирован: source=%s, batch=%d, flush=%v, mirror=%v",
		cfg.Source, cfg.BatchSize, cfg.FlushEvery, cfg.Mirror)
	return sm, nil
}

// Batches менеджер пачек
func (sm *SyncManager) Batches() *BatchManager { return sm.bm }

// Replica локальное зеркало (nil, если не включено)
func (sm *SyncManager) Replica() *Replica { return sm.replica }

func (sm *SyncManager) Stop() {
	sm.producer.Stop()
	sm.bm.Stop()
	if sm.consumer != nil {
		sm.consumer.Stop()
	}
	logging.Info("🔄 SyncManager остановлен")
}
