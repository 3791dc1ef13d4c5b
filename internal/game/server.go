// Package game хостит тик сервера: очередь подключений, команды,
// маршрутизацию событий и публикацию результатов в шину.
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/blockworld/internal/eventbus"
	"github.com/annel0/blockworld/internal/logging"
	"github.com/annel0/blockworld/internal/observability"
	"github.com/annel0/blockworld/internal/router"
	"github.com/annel0/blockworld/internal/session"
	"github.com/annel0/blockworld/internal/storage"
	"github.com/annel0/blockworld/internal/world"
)

// ErrServerStopped сервер остановлен, команда не будет выполнена
var ErrServerStopped = errors.New("сервер остановлен")

// Config параметры сервера
type Config struct {
	Source         string        // Имя узла в конвертах шины
	TickInterval   time.Duration // 0: 50ms
	PublishTimeout time.Duration // Таймаут одной публикации, 0: 1s
	StorageTimeout time.Duration // Таймаут операций с хранилищем, 0: 2s
	Spawn          Spawn
	BroadcastChat  bool

	Bus        eventbus.EventBus     // nil: шина в памяти
	Transforms storage.TransformRepo // nil: без сохранения положения
	Registerer prometheus.Registerer // nil: без метрик
	Logger     *logging.Logger
}

// Scope доступ команды к состоянию сервера внутри тика
type Scope struct {
	Instance *world.Instance
	Sessions *session.Registry
	Outbox   *router.Outbox
	Router   *router.Router
}

// CommandFunc выполняется на горутине тика
type CommandFunc func(scope Scope) error

type command struct {
	fn   CommandFunc
	done chan error
}

// TickReport итог одного тика
type TickReport struct {
	Tick          uint64
	Connected     int
	Disconnected  int
	Commands      int
	Dispatch      router.Result
	Published     int
	PublishErrors int
	Changes       int // Позиций в снимке изменений
	Requeued      int // Позиций, возвращённых в журнал после неудачной публикации
	Duration      time.Duration
}

// Server владеет инстансом: все изменения мира происходят в Tick.
// Внешние производители только ставят работу в очереди.
type Server struct {
	cfg      Config
	instance *world.Instance
	worlds   *world.Registry
	sessions *session.Registry
	outbox   *router.Outbox
	router   *router.Router
	bus      eventbus.EventBus
	ownsBus  bool

	logger  *logging.Logger
	metrics *Metrics
	tracer  trace.Tracer

	queueMu   sync.Mutex
	lifecycle []lifecycleOp
	commands  []command
	events    []router.Event

	// stateMu удерживается тиком на запись, читатели (admin API) берут RLock
	stateMu sync.RWMutex
	tick    atomic.Uint64

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  atomic.Bool
}

// New создаёт сервер вокруг уже построенного инстанса
func New(instance *world.Instance, cfg Config) (*Server, error) {
	if instance == nil {
		return nil, fmt.Errorf("инстанс не задан")
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 50 * time.Millisecond
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = time.Second
	}
	if cfg.StorageTimeout <= 0 {
		cfg.StorageTimeout = 2 * time.Second
	}
	if cfg.Source == "" {
		cfg.Source = "blockworld"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Spawn == (Spawn{}) {
		cfg.Spawn = DefaultSpawn()
	}

	worlds := world.NewRegistry()
	if err := worlds.Register(instance); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		instance: instance,
		worlds:   worlds,
		sessions: session.NewRegistry(),
		outbox:   router.NewOutbox(),
		bus:      cfg.Bus,
		logger:   cfg.Logger,
		metrics:  NewMetrics(cfg.Registerer),
		tracer:   observability.Tracer("game"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	if s.bus == nil {
		s.bus = eventbus.NewMemoryBus(0)
		s.ownsBus = true
	}

	s.router = router.New(s.sessions, worlds, s.outbox,
		router.WithBroadcastChat(cfg.BroadcastChat),
		router.WithLogger(cfg.Logger),
		router.WithMetrics(router.NewMetrics(cfg.Registerer)),
	)
	return s, nil
}

// Router маршрутизатор событий (для регистрации обработчиков до старта)
func (s *Server) Router() *router.Router { return s.router }

// Sessions реестр сессий
func (s *Server) Sessions() *session.Registry { return s.sessions }

// Worlds реестр инстансов
func (s *Server) Worlds() *world.Registry { return s.worlds }

// Bus шина, в которую публикуются результаты тиков
func (s *Server) Bus() eventbus.EventBus { return s.bus }

// CurrentTick номер последнего выполненного тика
func (s *Server) CurrentTick() uint64 { return s.tick.Load() }

// Submit ставит входящие события в очередь следующего тика
func (s *Server) Submit(events ...router.Event) {
	if len(events) == 0 {
		return
	}
	s.queueMu.Lock()
	s.events = append(s.events, events...)
	s.queueMu.Unlock()
}

// Command ставит функцию в очередь тика. Канал получает её результат
// или ErrServerStopped.
func (s *Server) Command(fn CommandFunc) <-chan error {
	done := make(chan error, 1)

	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	select {
	case <-s.stopCh:
		done <- ErrServerStopped
	default:
		s.commands = append(s.commands, command{fn: fn, done: done})
	}
	return done
}

// Read выполняет fn под блокировкой чтения состояния. Для admin API.
func (s *Server) Read(fn func(inst *world.Instance, sessions *session.Registry)) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	fn(s.instance, s.sessions)
}

// Run крутит тики до отмены ctx или Stop
func (s *Server) Run(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.logger.Info("🚀 Игровой цикл запущен: инстанс %s, тик %v", s.instance.Name(), s.cfg.TickInterval)

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case <-s.stopCh:
			s.shutdown()
			return
		case <-ticker.C:
			report := s.Tick(ctx)
			if len(report.Dispatch.Violations) > 0 || report.PublishErrors > 0 {
				s.logger.Warn("⚠️ Тик %d: %s, ошибок публикации %d", report.Tick, report.Dispatch, report.PublishErrors)
			}
		}
	}
}

// Stop останавливает Run и ждёт его завершения. Без Run сразу
// выполняет завершение: сохранение положений и закрытие своей шины.
func (s *Server) Stop() {
	if s.running.Load() {
		s.stopOnce.Do(func() { close(s.stopCh) })
		<-s.doneCh
		return
	}
	s.shutdown()
}

// shutdown сохраняет положение всех сессий и отменяет необработанные команды
func (s *Server) shutdown() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	s.queueMu.Lock()
	pending := s.commands
	s.commands = nil
	s.queueMu.Unlock()
	for _, cmd := range pending {
		cmd.done <- ErrServerStopped
	}

	s.stateMu.RLock()
	records := make(map[uuid.UUID]storage.TransformRecord)
	for _, sess := range s.sessions.All() {
		records[sess.ID] = recordOf(sess)
	}
	s.stateMu.RUnlock()
	s.saveTransforms(records)

	if s.ownsBus {
		_ = s.bus.Close()
	}
	s.logger.Info("🛑 Игровой цикл остановлен на тике %d", s.CurrentTick())
}

// Tick выполняет один тик: жизненный цикл сессий, команды, события,
// публикация эффектов и снимка изменений.
func (s *Server) Tick(ctx context.Context) TickReport {
	start := time.Now()
	tick := s.tick.Add(1)

	ctx, span := s.tracer.Start(ctx, "game.tick", trace.WithAttributes(attribute.Int64("tick", int64(tick))))
	defer span.End()

	s.queueMu.Lock()
	lifecycle, commands, events := s.lifecycle, s.commands, s.events
	s.lifecycle, s.commands, s.events = nil, nil, nil
	s.queueMu.Unlock()

	report := TickReport{Tick: tick}

	// Загрузка сохранённых положений до захвата состояния
	restored := s.loadTransforms(ctx, lifecycle)

	s.stateMu.Lock()
	saved := s.applyLifecycle(lifecycle, restored, &report)

	for _, cmd := range commands {
		cmd.done <- s.runCommand(cmd.fn)
		report.Commands++
	}

	report.Dispatch = s.router.Dispatch(ctx, events)

	envelopes, changes := s.collectEnvelopes(tick, &report)
	sessionCount := s.sessions.Len()
	s.stateMu.Unlock()

	for _, env := range envelopes {
		if err := s.publish(ctx, env); err != nil {
			report.PublishErrors++
			s.metrics.publishErrors.Inc()
			s.logger.Warn("ошибка публикации %s: %v", env.EventType, err)
			if env.EventType == eventbus.TypeBlockSnapshot {
				s.requeue(changes, &report)
			}
			continue
		}
		report.Published++
		s.metrics.published.WithLabelValues(env.EventType).Inc()
	}

	s.saveTransforms(saved)

	report.Duration = time.Since(start)
	s.metrics.ticks.Inc()
	s.metrics.tickDuration.Observe(report.Duration.Seconds())
	s.metrics.sessions.Set(float64(sessionCount))
	s.metrics.violations.Add(float64(len(report.Dispatch.Violations)))

	span.SetAttributes(
		attribute.Int("events", len(events)),
		attribute.Int("applied", report.Dispatch.Applied),
		attribute.Int("published", report.Published),
	)
	if report.Dispatch.DroppedTotal() > 0 || len(events) > 0 {
		s.logger.Debug("тик %d: %s", tick, report.Dispatch)
	}
	return report
}

func (s *Server) runCommand(fn CommandFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("❌ Паника в команде: %v", r)
			err = fmt.Errorf("паника в команде: %v", r)
		}
	}()
	return fn(Scope{Instance: s.instance, Sessions: s.sessions, Outbox: s.outbox, Router: s.router})
}

// requeue возвращает неотправленный снимок в журнал инстанса
func (s *Server) requeue(changes world.Changes, report *TickReport) {
	s.stateMu.Lock()
	s.instance.RequeueChanges(changes)
	s.stateMu.Unlock()
	report.Requeued = len(changes.Blocks) + len(changes.BlockEntities)
}

// collectEnvelopes забирает outbox и журнал изменений. Вызывается под stateMu.
func (s *Server) collectEnvelopes(tick uint64, report *TickReport) ([]*eventbus.Envelope, world.Changes) {
	effects := s.outbox.Drain()
	envelopes := make([]*eventbus.Envelope, 0, len(effects)+1)

	for _, effect := range effects {
		env, err := effectEnvelope(s.cfg.Source, tick, effect)
		if err != nil {
			s.logger.Error("❌ %v", err)
			continue
		}
		envelopes = append(envelopes, env)
	}

	changes := s.instance.TakeChanges()
	if !changes.Empty() {
		report.Changes = len(changes.Blocks) + len(changes.BlockEntities)
		env, err := snapshotEnvelope(s.cfg.Source, tick, changes)
		if err != nil {
			s.logger.Error("❌ %v", err)
		} else {
			envelopes = append(envelopes, env)
		}
	}
	return envelopes, changes
}

func (s *Server) publish(ctx context.Context, env *eventbus.Envelope) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PublishTimeout)
	defer cancel()
	return s.bus.Publish(ctx, env)
}
