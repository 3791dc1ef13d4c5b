package router

import (
	"github.com/google/uuid"

	"github.com/annel0/blockworld/internal/text"
)

// Effect исходящий эффект для транспорта
type Effect interface {
	Kind() string
	Recipient() uuid.UUID
}

// Chat сообщение в чат одному клиенту или всем (Target == uuid.Nil)
type Chat struct {
	Target  uuid.UUID `json:"target"`
	Message text.Text `json:"message"`
}

func (c Chat) Kind() string         { return "chat" }
func (c Chat) Recipient() uuid.UUID { return c.Target }

// Broadcast true, если сообщение адресовано всем
func (c Chat) Broadcast() bool { return c.Target == uuid.Nil }

// ResourcePackPrompt запрос на загрузку ресурспака
type ResourcePackPrompt struct {
	Target        uuid.UUID  `json:"target"`
	URL           string     `json:"url"`
	SHA1          string     `json:"sha1"`
	Forced        bool       `json:"forced"`
	PromptMessage *text.Text `json:"prompt_message,omitempty"`
}

func (p ResourcePackPrompt) Kind() string         { return "resource_pack" }
func (p ResourcePackPrompt) Recipient() uuid.UUID { return p.Target }

// Outbox очередь исходящих эффектов одного тика.
// Принадлежит тику сервера, синхронизации не имеет.
type Outbox struct {
	items []Effect
}

// NewOutbox создаёт пустую очередь
func NewOutbox() *Outbox {
	return &Outbox{}
}

// Push добавляет эффект в конец очереди
func (o *Outbox) Push(e Effect) {
	o.items = append(o.items, e)
}

// Len количество эффектов в очереди
func (o *Outbox) Len() int {
	return len(o.items)
}

// Drain возвращает эффекты в порядке добавления и очищает очередь
func (o *Outbox) Drain() []Effect {
	items := o.items
	o.items = nil
	return items
}
