package sync

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/annel0/blockworld/internal/eventbus"
	"github.com/annel0/blockworld/internal/logging"
)

// Change содержит сериализованное изменение состояния.
type Change struct {
	Data       []byte    // Сериализованные данные изменения (JSON)
	Priority   int       // приоритизация для сброса при перегрузке
	Timestamp  time.Time // Время создания изменения
	Source     string    // Узел-источник изменения
	ChangeType string    // Тип изменения: "BlockSnapshot"
}

// BatchManager накапливает изменения и отправляет их пакетами SyncBatch через EventBus.
type BatchManager struct {
	mu       sync.Mutex
	buf      []Change
	capacity int
	seq      uint64

	flushEvery time.Duration
	bus        eventbus.EventBus
	source     string
	compressor DeltaCompressor
	logger     *logging.Logger

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// BatchOption настраивает BatchManager при создании
type BatchOption func(*BatchManager)

// WithBatchLogger задаёт логгер менеджера
func WithBatchLogger(logger *logging.Logger) BatchOption {
	return func(bm *BatchManager) {
		if logger != nil {
			bm.logger = logger
		}
	}
}

// NewBatchManager создаёт менеджер с указанным лимитом буфера и интервалом отправки.
// flushEvery <= 0 отключает фоновую отправку (только Flush/Stop).
func NewBatchManager(bus eventbus.EventBus, source string, capacity int, flushEvery time.Duration, compressor DeltaCompressor, opts ...BatchOption) *BatchManager {
	if compressor == nil {
		compressor = NewPassthroughCompressor()
	}
	if capacity <= 0 {
		capacity = 256
	}
	bm := &BatchManager{
		capacity:   capacity,
		flushEvery: flushEvery,
		bus:        bus,
		source:     source,
		compressor: compressor,
		logger:     logging.Default(),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(bm)
	}
	if flushEvery > 0 {
		go bm.loop()
	} else {
		close(bm.done)
	}
	return bm
}

// AddChange добавляет изменение в буфер; при переполнении низкоприоритетные изменения отбрасываются.
func (bm *BatchManager) AddChange(ch Change) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if len(bm.buf) < bm.capacity {
		bm.buf = append(bm.buf, ch)
		return
	}

	// ищем самое низкое Priority и заменяем, если новый выше.
	lowIdx := -1
	lowPri := ch.Priority
	for i, c := range bm.buf {
		if c.Priority < lowPri {
			lowPri = c.Priority
			lowIdx = i
		}
	}
	if lowIdx >= 0 {
		bm.buf[lowIdx] = ch
		return
	}
	// все изменения >= чем новый: дропаём новый
	bm.logger.Warn("BatchManager: буфер заполнен (%d), изменение %s отброшено", bm.capacity, ch.ChangeType)
}

// Pending количество изменений в буфере
func (bm *BatchManager) Pending() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return len(bm.buf)
}

func (bm *BatchManager) loop() {
	defer close(bm.done)
	ticker := time.NewTicker(bm.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			_ = bm.Flush(ctx)
			cancel()
		case <-bm.quit:
			return
		}
	}
}

// Flush отсылает накопленные изменения единым сообщением.
func (bm *BatchManager) Flush(ctx context.Context) error {
	bm.mu.Lock()
	if len(bm.buf) == 0 {
		bm.mu.Unlock()
		return nil
	}
	changes := make([]Change, len(bm.buf))
	copy(changes, bm.buf)
	bm.buf = bm.buf[:0]
	bm.seq++
	seq := bm.seq
	bm.mu.Unlock()

	batchPayload, err := bm.compressor.Compress(changes)
	if err != nil {
		bm.logger.Warn("BatchManager compress error: %v", err)
		return err
	}

	env := eventbus.NewEnvelope(bm.source, eventbus.TypeSyncBatch, batchPayload)
	env.Priority = 5
	env.CorrelationID = strconv.FormatUint(seq, 10)
	env.Metadata[MetaCompression] = bm.compressor.Name()
	env.Metadata["changes"] = strconv.Itoa(len(changes))

	if err := bm.bus.Publish(ctx, env); err != nil {
		bm.logger.Warn("BatchManager publish error: %v", err)
		return err
	}
	bm.logger.Trace("BatchManager: отправлено %d изменений (%d байт, %s)", len(changes), len(batchPayload), bm.compressor.Name())
	return nil
}

// Stop завершает работу менеджера и отправляет оставшиеся изменения.
func (bm *BatchManager) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.quit)
		<-bm.done
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = bm.Flush(ctx)
	})
}
