package router

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/annel0/blockworld/internal/session"
	"github.com/annel0/blockworld/internal/world"
)

// Event входящее событие клиента. Всегда несёт ID сессии-отправителя.
type Event interface {
	SessionID() uuid.UUID
	Type() string
}

// ChatMessage сообщение в чат
type ChatMessage struct {
	Session uuid.UUID `json:"session"`
	Text    string    `json:"text"`
}

func (e ChatMessage) SessionID() uuid.UUID { return e.Session }
func (e ChatMessage) Type() string         { return "chat" }

// Hand рука, которой выполнено взаимодействие
type Hand uint8

const (
	HandMain Hand = iota
	HandOff
)

// String возвращает имя руки
func (h Hand) String() string {
	switch h {
	case HandMain:
		return "main"
	case HandOff:
		return "off"
	default:
		return fmt.Sprintf("hand(%d)", uint8(h))
	}
}

// InteractKind вид взаимодействия с блоком
type InteractKind uint8

const (
	InteractAttack InteractKind = iota
	InteractUseItem
)

// String возвращает имя вида взаимодействия
func (k InteractKind) String() string {
	switch k {
	case InteractAttack:
		return "attack"
	case InteractUseItem:
		return "use_item"
	default:
		return fmt.Sprintf("interact(%d)", uint8(k))
	}
}

// BlockInteract взаимодействие клиента с блоком
type BlockInteract struct {
	Session  uuid.UUID      `json:"session"`
	Position world.BlockPos `json:"position"`
	Hand     Hand           `json:"hand"`
	Kind     InteractKind   `json:"kind"`
}

func (e BlockInteract) SessionID() uuid.UUID { return e.Session }
func (e BlockInteract) Type() string         { return "block_interact" }

// ResourcePackStatus ответ клиента на предложение ресурспака
type ResourcePackStatus struct {
	Session uuid.UUID          `json:"session"`
	Status  session.PackStatus `json:"status"`
}

func (e ResourcePackStatus) SessionID() uuid.UUID { return e.Session }
func (e ResourcePackStatus) Type() string         { return "resource_pack_status" }
