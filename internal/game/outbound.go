package game

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/annel0/blockworld/internal/eventbus"
	"github.com/annel0/blockworld/internal/router"
	"github.com/annel0/blockworld/internal/text"
	"github.com/annel0/blockworld/internal/world"
)

// ChatPayload полезная нагрузка OutboundChat
type ChatPayload struct {
	Target  string    `json:"target,omitempty"` // пусто: всем
	Message text.Text `json:"message"`
}

// ResourcePackPayload полезная нагрузка OutboundResourcePack
type ResourcePackPayload struct {
	Target        string     `json:"target"`
	URL           string     `json:"url"`
	SHA1          string     `json:"sha1"`
	Forced        bool       `json:"forced"`
	PromptMessage *text.Text `json:"prompt_message,omitempty"`
}

func targetString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

// effectEnvelope превращает эффект outbox в конверт шины
func effectEnvelope(source string, tick uint64, effect router.Effect) (*eventbus.Envelope, error) {
	var (
		eventType string
		payload   interface{}
	)

	switch e := effect.(type) {
	case router.Chat:
		eventType = eventbus.TypeOutboundChat
		payload = ChatPayload{Target: targetString(e.Target), Message: e.Message}
	case router.ResourcePackPrompt:
		eventType = eventbus.TypeOutboundResourcePack
		payload = ResourcePackPayload{
			Target:        targetString(e.Target),
			URL:           e.URL,
			SHA1:          e.SHA1,
			Forced:        e.Forced,
			PromptMessage: e.PromptMessage,
		}
	default:
		return nil, fmt.Errorf("неизвестный эффект %T", effect)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("сериализация %s: %w", eventType, err)
	}

	env := eventbus.NewEnvelope(source, eventType, data)
	env.CorrelationID = fmt.Sprintf("tick-%d", tick)
	env.Priority = eventbus.PriorityBlocking
	if target := targetString(effect.Recipient()); target != "" {
		env.Metadata[eventbus.MetaTarget] = target
	}
	return env, nil
}

// snapshotEnvelope упаковывает изменения мира за тик
func snapshotEnvelope(source string, tick uint64, changes world.Changes) (*eventbus.Envelope, error) {
	data, err := json.Marshal(changes)
	if err != nil {
		return nil, fmt.Errorf("сериализация изменений %s: %w", changes.Instance, err)
	}
	env := eventbus.NewEnvelope(source, eventbus.TypeBlockSnapshot, data)
	env.CorrelationID = fmt.Sprintf("tick-%d", tick)
	// Снимок нельзя терять: журнал уже очищен
	env.Priority = eventbus.PriorityBlocking + 2
	env.Metadata["instance"] = changes.Instance
	return env, nil
}
