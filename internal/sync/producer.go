package sync

import (
	"context"

	"github.com/annel0/blockworld/internal/eventbus"
)

// SyncProducer подписывается на снимки изменений мира и передаёт их BatchManager'у.
type SyncProducer struct {
	bm  *BatchManager
	sub eventbus.Subscription
}

func NewSyncProducer(bus eventbus.EventBus, bm *BatchManager) (*SyncProducer, error) {
	sp := &SyncProducer{bm: bm}
	sub, err := bus.Subscribe(context.Background(), eventbus.Filter{Types: []string{eventbus.TypeBlockSnapshot}}, sp.handle)
	if err != nil {
		return nil, err
	}
	sp.sub = sub
	return sp, nil
}

func (sp *SyncProducer) handle(ctx context.Context, ev *eventbus.Envelope) {
	sp.bm.AddChange(Change{
		Data:       ev.Payload,
		Priority:   ev.Priority,
		Timestamp:  ev.Timestamp,
		Source:     ev.Source,
		ChangeType: ev.EventType,
	})
}

func (sp *SyncProducer) Stop() { sp.sub.Unsubscribe() }
