package sync

import (
	"context"
	"fmt"

	"github.com/annel0/blockworld/internal/eventbus"
	"github.com/annel0/blockworld/internal/logging"
)

// Applier применяет одно изменение из пачки (например, Replica.Apply)
type Applier interface {
	Apply(change Change) error
}

// SyncConsumer слушает SyncBatch сообщения и передаёт изменения Applier'у.
// Компрессор выбирается по метаданным конверта.
type SyncConsumer struct {
	sub         eventbus.Subscription
	compressors map[string]DeltaCompressor
	applier     Applier
	logger      *logging.Logger
}

func NewSyncConsumer(bus eventbus.EventBus, applier Applier, compressors ...DeltaCompressor) (*SyncConsumer, error) {
	return newSyncConsumer(bus, applier, logging.Default(), compressors...)
}

func newSyncConsumer(bus eventbus.EventBus, applier Applier, logger *logging.Logger, compressors ...DeltaCompressor) (*SyncConsumer, error) {
	if logger == nil {
		logger = logging.Default()
	}
	sc := &SyncConsumer{
		compressors: make(map[string]DeltaCompressor),
		applier:     applier,
		logger:      logger,
	}
	sc.compressors[CompressionNone] = NewPassthroughCompressor()
	for _, c := range compressors {
		sc.compressors[c.Name()] = c
	}

	sub, err := bus.Subscribe(context.Background(), eventbus.Filter{Types: []string{eventbus.TypeSyncBatch}}, sc.handle)
	if err != nil {
		return nil, err
	}
	sc.sub = sub
	return sc, nil
}

func (sc *SyncConsumer) handle(ctx context.Context, ev *eventbus.Envelope) {
	if err := sc.decodeAndApply(ev); err != nil {
		sc.logger.Warn("SyncConsumer: пачка %s от %s: %v", ev.CorrelationID, ev.Source, err)
	}
}

func (sc *SyncConsumer) decodeAndApply(ev *eventbus.Envelope) error {
	name := ev.Metadata[MetaCompression]
	if name == "" {
		name = CompressionNone
	}
	compressor, ok := sc.compressors[name]
	if !ok {
		return fmt.Errorf("нет декодера для компрессии %q", name)
	}

	changes, err := compressor.Decompress(ev.Payload)
	if err != nil {
		return fmt.Errorf("decompress: %w", err)
	}
	sc.logger.Debug("SyncConsumer: batch %d bytes from %s, %d changes", len(ev.Payload), ev.Source, len(changes))

	for i := range changes {
		changes[i].Source = ev.Source
		if err := sc.applier.Apply(changes[i]); err != nil {
			sc.logger.Warn("SyncConsumer: ошибка применения изменения %d: %v", i, err)
		}
	}
	return nil
}

func (sc *SyncConsumer) Stop() { sc.sub.Unsubscribe() }
