// Package app собирает сервер из конфигурации: шина, репликация,
// хранилище, мир, игровой цикл и admin API.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	gosync "sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/annel0/blockworld/internal/api"
	"github.com/annel0/blockworld/internal/auth"
	"github.com/annel0/blockworld/internal/config"
	"github.com/annel0/blockworld/internal/eventbus"
	"github.com/annel0/blockworld/internal/game"
	"github.com/annel0/blockworld/internal/logging"
	"github.com/annel0/blockworld/internal/observability"
	"github.com/annel0/blockworld/internal/scenario"
	"github.com/annel0/blockworld/internal/session"
	"github.com/annel0/blockworld/internal/storage"
	"github.com/annel0/blockworld/internal/sync"
	"github.com/annel0/blockworld/internal/text"
	"github.com/annel0/blockworld/internal/world"
)

// App собранный сервер
type App struct {
	cfg      *config.Config
	registry *prometheus.Registry

	bus        eventbus.EventBus
	busLog     eventbus.Subscription
	exporter   *eventbus.MetricsExporter
	exporting  bool
	closeOnce  gosync.Once
	syncMgr    *sync.SyncManager
	transforms storage.TransformRepo
	server     *game.Server
	rest       *api.RestServer
	telemetry  observability.Shutdown
}

// PackOffer предложение ресурспака из конфига
func PackOffer(cfg config.ResourcePackConfig) session.PackOffer {
	offer := session.PackOffer{URL: cfg.URL, SHA1: cfg.SHA1, Forced: cfg.Forced}
	if cfg.Prompt != "" {
		prompt := text.Plain(cfg.Prompt)
		offer.PromptMessage = &prompt
	}
	return offer
}

// componentLogger логгер компонента: с файлом в logs/ или только консоль
func componentLogger(cfg config.LoggingConfig, component string) *logging.Logger {
	level := logging.ParseLevel(cfg.Level)
	if cfg.ToFile {
		logger := logging.GetComponentLogger(component)
		if err := logging.GetLoggerManager().SetLogLevel(component, level, logging.TRACE); err != nil {
			// Запасной консольный логгер в менеджере не зарегистрирован
			logger.SetLevels(level, logging.ERROR)
		}
		return logger
	}
	logger := logging.NewConsoleLogger(component)
	logger.SetLevels(level, logging.ERROR)
	return logger
}

// New собирает все компоненты, но ничего не запускает
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	telemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.telemetry = telemetry

	if err := a.initBus(); err != nil {
		return nil, err
	}

	if cfg.Sync.Enabled {
		a.syncMgr, err = sync.NewSyncManager(sync.SyncConfig{
			Source:      cfg.Sync.Source,
			Bus:         a.bus,
			BatchSize:   cfg.Sync.BatchSize,
			FlushEvery:  time.Duration(cfg.Sync.FlushEvery) * time.Second,
			Compression: cfg.Sync.Compression,
			Mirror:      cfg.Sync.Mirror,
			Logger:      componentLogger(cfg.Logging, "sync"),
		})
		if err != nil {
			return nil, fmt.Errorf("sync: %w", err)
		}
	}

	a.transforms, err = storage.Open(storage.Config{
		Backend:       cfg.Storage.Backend,
		RedisAddr:     cfg.Storage.RedisAddr,
		RedisPassword: cfg.Storage.RedisPassword,
		RedisDB:       cfg.Storage.RedisDB,
		MariaDSN:      cfg.Storage.MariaDSN,
	})
	if err != nil {
		logging.Warn("⚠️ Хранилище %s недоступно, используется память: %v", cfg.Storage.Backend, err)
	}

	sc, err := scenario.ByName(cfg.Server.Scenario, PackOffer(cfg.ResourcePack))
	if err != nil {
		return nil, err
	}

	worldLogger := componentLogger(cfg.Logging, "world")
	inst := world.NewInstance(cfg.World.Instance,
		world.WithBounds(cfg.World.MinY, cfg.World.Height),
		world.WithLazyChunks(cfg.World.LazyChunks),
		world.WithLogger(worldLogger),
	)
	if err := sc.Build(inst, cfg.World.PreloadRange); err != nil {
		return nil, fmt.Errorf("сценарий %s: %w", sc.Name(), err)
	}
	// Постройка мира не реплицируется как изменения
	inst.TakeChanges()
	worldLogger.Info("🌍 Мир %s построен: сценарий %s, чанков %d, block entity %d",
		inst.Name(), sc.Name(), inst.ChunkCount(), inst.BlockEntityCount())

	a.server, err = game.New(inst, game.Config{
		Source:        cfg.Sync.Source,
		TickInterval:  cfg.Server.TickInterval(),
		Spawn:         sc.Spawn(),
		BroadcastChat: cfg.Router.BroadcastChat,
		Bus:           a.bus,
		Transforms:    a.transforms,
		Registerer:    a.registry,
		Logger:        componentLogger(cfg.Logging, "server"),
	})
	if err != nil {
		return nil, err
	}
	sc.Wire(a.server.Router())

	issuer, err := auth.NewIssuer(cfg.Admin.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("admin: %w", err)
	}
	if cfg.Admin.JWTSecret == "" {
		logging.Warn("⚠️ admin.jwt_secret не задан: используется случайный секрет")
	}

	gin.SetMode(gin.ReleaseMode)
	a.rest, err = api.NewRestServer(api.Config{
		Addr:         fmt.Sprintf(":%d", cfg.Server.GetAdminPort()),
		Game:         a.server,
		Issuer:       issuer,
		DefaultOffer: PackOffer(cfg.ResourcePack),
		Registerer:   a.registry,
		Gatherer:     a.registry,
		Logger:       componentLogger(cfg.Logging, "api"),
	})
	if err != nil {
		return nil, err
	}

	ok = true
	return a, nil
}

func (a *App) initBus() error {
	cfg := a.cfg.EventBus
	if cfg.URL == "" {
		a.bus = eventbus.NewMemoryBus(cfg.Buffer)
		logging.Info("🚌 Шина событий: в памяти (буфер %d)", cfg.Buffer)
	} else {
		js, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, time.Duration(cfg.Retention)*time.Hour)
		if err != nil {
			return fmt.Errorf("eventbus: %w", err)
		}
		a.bus = js
		logging.Info("🚌 Шина событий: JetStream %s, стрим %s", cfg.URL, cfg.Stream)
	}

	sub, err := eventbus.StartLoggingListener(a.bus, componentLogger(a.cfg.Logging, "eventbus"))
	if err != nil {
		return err
	}
	a.busLog = sub
	a.exporter = eventbus.NewMetricsExporter(a.bus, a.registry)
	return nil
}

// Server игровой сервер
func (a *App) Server() *game.Server { return a.server }

// Run запускает игровой цикл, admin API и /metrics и ждёт отмены ctx.
// По выходе ресурсы освобождены, повторный Close ничего не делает.
func (a *App) Run(ctx context.Context) error {
	a.exporter.StartHTTP(fmt.Sprintf(":%d", a.cfg.Server.GetMetricsPort()), a.registry)
	a.exporting = true

	apiErr := make(chan error, 1)
	go func() { apiErr <- a.rest.Start() }()

	tickDone := make(chan struct{})
	go func() {
		a.server.Run(ctx)
		close(tickDone)
	}()

	logging.Info("✅ Все сервисы запущены: admin API :%d, метрики :%d",
		a.cfg.Server.GetAdminPort(), a.cfg.Server.GetMetricsPort())

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-apiErr:
		if err != nil {
			runErr = fmt.Errorf("admin API: %w", err)
		}
	}

	a.server.Stop()
	<-tickDone
	a.Close()
	return runErr
}

// Close останавливает компоненты в обратном порядке создания
func (a *App) Close() {
	a.closeOnce.Do(a.close)
}

func (a *App) close() {
	var errs []string

	if a.rest != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.rest.Stop(ctx); err != nil {
			errs = append(errs, "admin API: "+err.Error())
		}
		cancel()
	}
	if a.server != nil {
		a.server.Stop()
	}
	if a.exporting {
		a.exporter.Stop()
	}
	// Stop отправляет оставшиеся изменения до закрытия шины
	if a.syncMgr != nil {
		a.syncMgr.Stop()
	}
	if a.busLog != nil {
		a.busLog.Unsubscribe()
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil && !errors.Is(err, eventbus.ErrBusClosed) {
			errs = append(errs, "bus: "+err.Error())
		}
	}
	if a.transforms != nil {
		if err := a.transforms.Close(); err != nil {
			errs = append(errs, "storage: "+err.Error())
		}
	}
	if a.telemetry != nil {
		if err := a.telemetry(context.Background()); err != nil {
			errs = append(errs, "telemetry: "+err.Error())
		}
	}

	if len(errs) > 0 {
		logging.Warn("⚠️ Ошибки при остановке: %s", strings.Join(errs, "; "))
	}
	logging.Info("👋 Сервер остановлен")
}
