package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/annel0/blockworld/internal/app"
	"github.com/annel0/blockworld/internal/config"
	"github.com/annel0/blockworld/internal/logging"
	"github.com/annel0/blockworld/internal/scenario"
)

func main() {
	cliApp := &cli.App{
		Name:  "blockworld-server",
		Usage: "сервер мира с block entity и ресурспаками",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "путь к YAML конфигурации",
				EnvVars: []string{"GAME_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "scenario",
				Usage: fmt.Sprintf("сценарий мира %v", scenario.Names()),
			},
			&cli.IntFlag{Name: "admin-port", Usage: "порт admin API"},
			&cli.IntFlag{Name: "metrics-port", Usage: "порт Prometheus /metrics"},
			&cli.StringFlag{Name: "log-level", Usage: "trace|debug|info|warn|error"},
			&cli.BoolFlag{Name: "lazy-chunks", Usage: "создавать чанк при записи в незагруженный"},
			&cli.StringFlag{Name: "nats-url", Usage: "адрес NATS JetStream (пусто: шина в памяти)", EnvVars: []string{"NATS_URL"}},
		},
		Action: run,
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.Logging.ToFile {
		if err := logging.InitDefaultLogger("server"); err != nil {
			return fmt.Errorf("ошибка инициализации логирования: %w", err)
		}
		defer logging.CloseDefaultLogger()
		defer func() { _ = logging.GetLoggerManager().CloseAll() }()
	}
	logging.Default().SetLevels(logging.ParseLevel(cfg.Logging.Level), logging.TRACE)

	logging.Info("🎮 Запуск blockworld: сценарий %s, инстанс %s, тик %v",
		cfg.Server.Scenario, cfg.World.Instance, cfg.Server.TickInterval())

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	if cfg.Logging.ToFile {
		logging.Info("📝 Логи компонентов в logs/: %v", logging.GetLoggerManager().ListComponents())
	}
	return a.Run(ctx)
}

// applyFlags переопределяет конфигурацию явно заданными флагами
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("scenario") {
		cfg.Server.Scenario = c.String("scenario")
	}
	if c.IsSet("admin-port") {
		cfg.Server.AdminPort = c.Int("admin-port")
	}
	if c.IsSet("metrics-port") {
		cfg.Server.MetricsPort = c.Int("metrics-port")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if c.IsSet("lazy-chunks") {
		cfg.World.LazyChunks = c.Bool("lazy-chunks")
	}
	if c.IsSet("nats-url") {
		cfg.EventBus.URL = c.String("nats-url")
	}
}
