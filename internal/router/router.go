package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/blockworld/internal/logging"
	"github.com/annel0/blockworld/internal/session"
	"github.com/annel0/blockworld/internal/text"
	"github.com/annel0/blockworld/internal/world"
)

// DropReason причина, по которой событие отброшено
type DropReason string

const (
	DropUnknownSession  DropReason = "unknown_session"
	DropUnknownInstance DropReason = "unknown_instance"
	DropTargetGone      DropReason = "target_gone"
	DropUnsolicited     DropReason = "unsolicited_status"
	DropHandlerError    DropReason = "handler_error"
	DropCancelled       DropReason = "cancelled"
	DropUnknownEvent    DropReason = "unknown_event"
)

// Result итог обработки пачки событий
type Result struct {
	Applied    int                // Событий, изменивших состояние или поставивших эффект
	Ignored    int                // Взаимодействий с незарегистрированными позициями
	Dropped    map[DropReason]int // Отброшенные события по причинам
	Violations []error            // Нарушения инварианта (ошибки в коде обработчиков)
}

// DroppedTotal общее число отброшенных событий
func (r Result) DroppedTotal() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}

func (r *Result) drop(reason DropReason) {
	if r.Dropped == nil {
		r.Dropped = make(map[DropReason]int)
	}
	r.Dropped[reason]++
}

// Option настраивает Router
type Option func(*Router)

// WithBroadcastChat включает рассылку сообщений чата всем сессиям
func WithBroadcastChat(enabled bool) Option {
	return func(r *Router) { r.broadcastChat = enabled }
}

// WithLogger задаёт логгер маршрутизатора
func WithLogger(logger *logging.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

// WithMetrics задаёт Prometheus-метрики
func WithMetrics(m *Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// Router раздаёт входящие события сессий обработчикам мира и сессий.
// Вызывается только из тика сервера.
type Router struct {
	sessions     *session.Registry
	worlds       *world.Registry
	outbox       *Outbox
	interactions *Interactions
	chatSinks    []ChatSink

	broadcastChat bool
	logger        *logging.Logger
	metrics       *Metrics
}

// New создаёт маршрутизатор
func New(sessions *session.Registry, worlds *world.Registry, outbox *Outbox, opts ...Option) *Router {
	r := &Router{
		sessions:     sessions,
		worlds:       worlds,
		outbox:       outbox,
		interactions: NewInteractions(),
		logger:       logging.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Outbox очередь исходящих эффектов
func (r *Router) Outbox() *Outbox { return r.outbox }

// Interactions реестр обработчиков взаимодействий
func (r *Router) Interactions() *Interactions { return r.interactions }

// AddChatSink добавляет получателя сообщений чата
func (r *Router) AddChatSink(sink ChatSink) {
	r.chatSinks = append(r.chatSinks, sink)
}

// Dispatch обрабатывает события строго в порядке поступления.
// Плохие события отбрасываются, нарушения инварианта логируются и
// возвращаются в Result.Violations. Паники нет ни в одном случае.
func (r *Router) Dispatch(ctx context.Context, batch []Event) Result {
	res := Result{}
	r.metrics.observeBatch(len(batch))

	for idx, ev := range batch {
		if err := ctx.Err(); err != nil {
			for _, rest := range batch[idx:] {
				res.drop(DropCancelled)
				r.metrics.observe(rest.Type(), string(DropCancelled))
			}
			r.logger.Warn("⚠️ Обработка пачки прервана: %v, отброшено событий: %d", err, len(batch)-idx)
			break
		}

		outcome := r.dispatchOne(ev, &res)
		r.metrics.observe(ev.Type(), outcome)
	}

	return res
}

// dispatchOne обрабатывает одно событие и возвращает метку результата
func (r *Router) dispatchOne(ev Event, res *Result) string {
	s, ok := r.sessions.Get(ev.SessionID())
	if !ok {
		r.logger.Debug("событие %s от неизвестной сессии %s отброшено", ev.Type(), ev.SessionID())
		res.drop(DropUnknownSession)
		return string(DropUnknownSession)
	}

	inst, ok := r.worlds.Resolve(s.InstanceKey)
	if !ok {
		r.logger.Warn("инстанс %q сессии %s не найден", s.InstanceKey, s.Username)
		res.drop(DropUnknownInstance)
		return string(DropUnknownInstance)
	}

	scope := Scope{Instance: inst, Outbox: r.outbox, Session: s}

	var err error
	switch e := ev.(type) {
	case ChatMessage:
		err = r.handleChat(scope, e)
	case BlockInteract:
		handler, found := r.interactions.Lookup(e)
		if !found {
			res.Ignored++
			return "ignored"
		}
		err = handler.Interact(scope, e)
	case ResourcePackStatus:
		err = r.handlePackStatus(scope, e)
	default:
		r.logger.Warn("неизвестный тип события %T", ev)
		res.drop(DropUnknownEvent)
		return string(DropUnknownEvent)
	}

	if err == nil {
		res.Applied++
		return "applied"
	}
	return r.classify(ev, err, res)
}

// classify раскладывает ошибку обработчика по причинам
func (r *Router) classify(ev Event, err error, res *Result) string {
	switch {
	case errors.Is(err, world.ErrInvariantViolation):
		r.logger.Error("❌ Нарушение инварианта при обработке %s от %s: %v", ev.Type(), ev.SessionID(), err)
		res.Violations = append(res.Violations, err)
		return "violation"
	case errors.Is(err, ErrTargetGone), errors.Is(err, world.ErrChunkNotLoaded):
		r.logger.Debug("событие %s отброшено: %v", ev.Type(), err)
		res.drop(DropTargetGone)
		return string(DropTargetGone)
	case errors.Is(err, session.ErrUnsolicitedStatus):
		r.logger.Debug("статус ресурспака отброшен: %v", err)
		res.drop(DropUnsolicited)
		return string(DropUnsolicited)
	default:
		r.logger.Warn("ошибка обработки %s от %s: %v", ev.Type(), ev.SessionID(), err)
		res.drop(DropHandlerError)
		return string(DropHandlerError)
	}
}

func (r *Router) handleChat(scope Scope, e ChatMessage) error {
	var firstErr error
	for _, sink := range r.chatSinks {
		if err := sink.OnChat(scope, e.Text); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if r.broadcastChat {
		r.outbox.Push(Chat{Message: text.Plainf("<%s> %s", scope.Session.Username, e.Text)})
	}
	return firstErr
}

func (r *Router) handlePackStatus(scope Scope, e ResourcePackStatus) error {
	notice, err := scope.Session.ResourcePack.Report(e.Status)
	if err != nil {
		return err
	}

	r.logger.Info("📦 %s: ресурспак %s", scope.Session.Username, e.Status)
	r.outbox.Push(Chat{Target: scope.Session.ID, Message: notice})
	return nil
}

// String краткое описание результата для логов
func (r Result) String() string {
	return fmt.Sprintf("applied=%d ignored=%d dropped=%d violations=%d",
		r.Applied, r.Ignored, r.DroppedTotal(), len(r.Violations))
}
