// Package api admin REST API сервера: состояние мира и сессий,
// управление предложением ресурспака.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/blockworld/internal/auth"
	"github.com/annel0/blockworld/internal/game"
	"github.com/annel0/blockworld/internal/logging"
	"github.com/annel0/blockworld/internal/middleware"
	"github.com/annel0/blockworld/internal/nbt"
	"github.com/annel0/blockworld/internal/router"
	"github.com/annel0/blockworld/internal/session"
	"github.com/annel0/blockworld/internal/text"
	"github.com/annel0/blockworld/internal/world"
	"github.com/annel0/blockworld/internal/world/block"
)

// RestServer представляет REST API сервер
type RestServer struct {
	router         *gin.Engine
	httpServer     *http.Server
	game           *game.Server
	issuer         *auth.Issuer
	defaultOffer   session.PackOffer
	metrics        *ServerMetrics
	logger         *logging.Logger
	commandTimeout time.Duration
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Addr           string       // адрес для запуска сервера (":8088")
	Game           *game.Server // игровой сервер
	Issuer         *auth.Issuer // проверка токенов admin-группы
	DefaultOffer   session.PackOffer
	CommandTimeout time.Duration // ожидание выполнения команды тиком, 0: 2s

	Registerer prometheus.Registerer // nil: prometheus.DefaultRegisterer
	Gatherer   prometheus.Gatherer   // nil: prometheus.DefaultGatherer
	Logger     *logging.Logger
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) (*RestServer, error) {
	if config.Game == nil {
		return nil, errors.New("игровой сервер не задан")
	}
	if config.Issuer == nil {
		return nil, errors.New("issuer токенов не задан")
	}
	if config.Addr == "" {
		config.Addr = ":8088"
	}
	if config.CommandTimeout <= 0 {
		config.CommandTimeout = 2 * time.Second
	}
	if config.Logger == nil {
		config.Logger = logging.Default()
	}

	engine := gin.New()        // без стандартного logger/recovery
	engine.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	engine.Use(otelgin.Middleware("admin_api"))
	engine.Use(middleware.NewRequestLogger(config.Logger).Handler())

	promMw := middleware.NewPrometheusMiddleware("admin_api", config.Registerer)
	engine.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(engine, config.Gatherer)

	rs := &RestServer{
		router:         engine,
		game:           config.Game,
		issuer:         config.Issuer,
		defaultOffer:   config.DefaultOffer,
		metrics:        NewServerMetrics(),
		logger:         config.Logger,
		commandTimeout: config.CommandTimeout,
	}
	rs.httpServer = &http.Server{
		Addr:              config.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	rs.setupRoutes()
	return rs, nil
}

// Handler http.Handler сервера (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler { return rs.router }

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/stats", rs.handleStats)
		api.GET("/sessions", rs.handleSessions)
		api.GET("/blocks/:x/:y/:z", rs.handleGetBlock)
	}

	// Административные эндпоинты (JWT + is_admin)
	admin := api.Group("/")
	admin.Use(rs.jwtMiddleware(), rs.adminMiddleware())
	{
		admin.POST("/sessions/:id/resource-pack", rs.handlePromptPack)
		admin.PUT("/blocks/:x/:y/:z", rs.handleSetBlock)
	}
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"tick":   rs.game.CurrentTick(),
		"time":   time.Now().Unix(),
	})
}

// handleStats состояние мира, шины и процесса
func (rs *RestServer) handleStats(c *gin.Context) {
	stats := gin.H{}

	rs.game.Read(func(inst *world.Instance, sessions *session.Registry) {
		stats["world"] = gin.H{
			"instance":        inst.Name(),
			"chunks":          inst.ChunkCount(),
			"block_entities":  inst.BlockEntityCount(),
			"pending_changes": inst.PendingChanges(),
		}
		stats["sessions"] = sessions.Len()
	})
	stats["tick"] = rs.game.CurrentTick()
	stats["bus"] = rs.game.Bus().Metrics()
	stats["process"] = rs.metrics.Snapshot()

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data:    stats,
	})
}

func (rs *RestServer) handleSessions(c *gin.Context) {
	var infos []session.Info
	rs.game.Read(func(_ *world.Instance, sessions *session.Registry) {
		for _, s := range sessions.All() {
			infos = append(infos, s.Snapshot())
		}
	})
	if infos == nil {
		infos = []session.Info{}
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Сессии получены", Data: infos})
}

// BlockView ответ /api/blocks
type BlockView struct {
	Pos         world.BlockPos `json:"pos"`
	State       string         `json:"state"`
	BlockEntity nbt.Compound   `json:"block_entity,omitempty"`
}

func (rs *RestServer) handleGetBlock(c *gin.Context) {
	pos, err := parseBlockPos(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	var (
		view    BlockView
		readErr error
	)
	rs.game.Read(func(inst *world.Instance, _ *session.Registry) {
		state, err := inst.Block(pos)
		if err != nil {
			readErr = err
			return
		}
		view = BlockView{Pos: pos, State: state.String()}
		if doc, ok := inst.BlockEntity(pos); ok {
			view.BlockEntity = doc
		}
	})

	if readErr != nil {
		rs.fail(c, readErr)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Блок получен", Data: view})
}

// PromptPackRequest тело POST /api/sessions/:id/resource-pack.
// Пустой URL означает предложение по умолчанию.
type PromptPackRequest struct {
	URL    string `json:"url"`
	SHA1   string `json:"sha1"`
	Forced bool   `json:"forced"`
	Prompt string `json:"prompt"`
}

func (rs *RestServer) handlePromptPack(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неверный ID сессии"})
		return
	}

	var req PromptPackRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неверный формат запроса"})
			return
		}
	}

	offer := rs.defaultOffer
	if req.URL != "" {
		offer = session.PackOffer{URL: req.URL, SHA1: req.SHA1, Forced: req.Forced}
	}
	if req.Prompt != "" {
		prompt := text.Plain(req.Prompt)
		offer.PromptMessage = &prompt
	}

	err = rs.command(c.Request.Context(), func(scope game.Scope) error {
		s, ok := scope.Sessions.Get(id)
		if !ok {
			return fmt.Errorf("%w: %s", session.ErrSessionNotFound, id)
		}
		return router.PromptPack(s, scope.Outbox, offer)
	})
	if err != nil {
		rs.fail(c, err)
		return
	}

	rs.logger.Info("📦 Ресурспак предложен сессии %s (%s)", id, c.GetString("username"))
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Ресурспак предложен"})
}

// SetBlockRequest тело PUT /api/blocks/:x/:y/:z
type SetBlockRequest struct {
	State       string        `json:"state" binding:"required"` // minecraft:chest[facing=west]
	BlockEntity *nbt.Compound `json:"block_entity"`
}

func (rs *RestServer) handleSetBlock(c *gin.Context) {
	pos, err := parseBlockPos(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	var req SetBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неверный формат запроса"})
		return
	}
	state, err := block.ParseState(req.State)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	var prev block.BlockState
	err = rs.command(c.Request.Context(), func(scope game.Scope) error {
		var setErr error
		prev, setErr = scope.Instance.SetBlock(pos, state, req.BlockEntity)
		return setErr
	})
	if err != nil {
		rs.fail(c, err)
		return
	}

	rs.logger.Info("🧱 %s: %s → %s (%s)", pos, prev, state, c.GetString("username"))
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Блок установлен",
		Data:    gin.H{"pos": pos, "previous": prev.String(), "state": state.String()},
	})
}

// command ставит функцию в очередь тика и ждёт результат.
// Если запрос уже завершился по таймауту, функция в тике не выполняется.
func (rs *RestServer) command(ctx context.Context, fn game.CommandFunc) error {
	ctx, cancel := context.WithTimeout(ctx, rs.commandTimeout)
	defer cancel()

	guarded := func(scope game.Scope) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(scope)
	}

	select {
	case err := <-rs.game.Command(guarded):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fail переводит доменные ошибки в HTTP-статусы
func (rs *RestServer) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, world.ErrChunkNotLoaded):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrInvalidOffer), errors.Is(err, world.ErrOutOfBounds):
		status = http.StatusBadRequest
	case errors.Is(err, world.ErrInvariantViolation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, game.ErrServerStopped):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		rs.logger.Error("❌ Ошибка admin API %s: %v", c.FullPath(), err)
	}
	c.JSON(status, GenericResponse{Success: false, Message: err.Error()})
}

func parseBlockPos(c *gin.Context) (world.BlockPos, error) {
	var coords [3]int32
	for i, name := range []string{"x", "y", "z"} {
		v, err := strconv.ParseInt(c.Param(name), 10, 32)
		if err != nil {
			return world.BlockPos{}, fmt.Errorf("неверная координата %s=%q", name, c.Param(name))
		}
		coords[i] = int32(v)
	}
	return world.NewBlockPos(coords[0], coords[1], coords[2]), nil
}

// Start запускает HTTP сервер. Возвращает nil после Stop.
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 Admin API слушает %s", rs.httpServer.Addr)
	if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop корректно завершает HTTP сервер
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.httpServer.Shutdown(ctx)
}
