package router

import (
	"errors"

	"github.com/annel0/blockworld/internal/session"
	"github.com/annel0/blockworld/internal/world"
)

// ErrTargetGone цель события (документ, блок) больше не существует.
// Событие отбрасывается, это не ошибка.
var ErrTargetGone = errors.New("цель события не существует")

// Scope то, с чем работает обработчик события: инстанс сессии и очередь эффектов
type Scope struct {
	Instance *world.Instance
	Outbox   *Outbox
	Session  *session.Session
}

// ChatSink реагирует на сообщения чата
type ChatSink interface {
	OnChat(scope Scope, message string) error
}

// ChatSinkFunc адаптер функции к ChatSink
type ChatSinkFunc func(scope Scope, message string) error

func (f ChatSinkFunc) OnChat(scope Scope, message string) error { return f(scope, message) }

// InteractionHandler реагирует на взаимодействие с зарегистрированной позицией
type InteractionHandler interface {
	Interact(scope Scope, ev BlockInteract) error
}

// InteractionFunc адаптер функции к InteractionHandler
type InteractionFunc func(scope Scope, ev BlockInteract) error

func (f InteractionFunc) Interact(scope Scope, ev BlockInteract) error { return f(scope, ev) }

type interactionKey struct {
	pos  world.BlockPos
	hand Hand
	kind InteractKind
}

// Interactions реестр "интересных" позиций: позиция + рука + вид взаимодействия
type Interactions struct {
	handlers map[interactionKey]InteractionHandler
}

// NewInteractions создаёт пустой реестр
func NewInteractions() *Interactions {
	return &Interactions{handlers: make(map[interactionKey]InteractionHandler)}
}

// Register назначает обработчик. Повторная регистрация заменяет обработчик.
func (r *Interactions) Register(pos world.BlockPos, hand Hand, kind InteractKind, h InteractionHandler) {
	r.handlers[interactionKey{pos: pos, hand: hand, kind: kind}] = h
}

// Unregister снимает обработчик
func (r *Interactions) Unregister(pos world.BlockPos, hand Hand, kind InteractKind) {
	delete(r.handlers, interactionKey{pos: pos, hand: hand, kind: kind})
}

// Lookup возвращает обработчик для события
func (r *Interactions) Lookup(ev BlockInteract) (InteractionHandler, bool) {
	h, ok := r.handlers[interactionKey{pos: ev.Position, hand: ev.Hand, kind: ev.Kind}]
	return h, ok
}

// Len количество зарегистрированных обработчиков
func (r *Interactions) Len() int {
	return len(r.handlers)
}
