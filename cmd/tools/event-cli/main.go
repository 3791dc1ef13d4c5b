package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/annel0/blockworld/internal/eventbus"
	"github.com/annel0/blockworld/internal/game"
	"github.com/annel0/blockworld/internal/sync"
	"github.com/annel0/blockworld/internal/world"
)

func main() {
	app := &cli.App{
		Name:  "event-cli",
		Usage: "просмотр событий blockworld в NATS JetStream",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "nats-url", Value: "nats://localhost:4222", EnvVars: []string{"NATS_URL"}},
			&cli.StringFlag{Name: "stream", Value: "BLOCKWORLD", Usage: "имя стрима"},
		},
		Commands: []*cli.Command{
			{
				Name:  "tail",
				Usage: "вывести события стрима (с начала хранения)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "types", Usage: "типы событий через запятую"},
					&cli.StringFlag{Name: "sources", Usage: "источники через запятую"},
					&cli.IntFlag{Name: "limit", Value: 100, Usage: "остановиться после N событий (0: без ограничения)"},
					&cli.BoolFlag{Name: "follow", Aliases: []string{"f"}, Usage: "ждать новые события, как tail -f"},
					&cli.DurationFlag{Name: "idle", Value: 2 * time.Second, Usage: "без --follow: выход после паузы"},
				},
				Action: tailEvents,
			},
			{
				Name:  "types",
				Usage: "перечислить типы событий сервера",
				Action: func(c *cli.Context) error {
					for _, t := range knownTypes {
						fmt.Printf("%-22s %s\n", t.name, t.description)
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

var knownTypes = []struct{ name, description string }{
	{eventbus.TypeOutboundChat, "сообщение чата сессии или всем"},
	{eventbus.TypeOutboundResourcePack, "предложение ресурспака сессии"},
	{eventbus.TypeBlockSnapshot, "изменения блоков и block entity за тик"},
	{eventbus.TypeSyncBatch, "сжатая пачка снимков для реплик"},
}

func tailEvents(c *cli.Context) error {
	bus, err := eventbus.NewJetStreamBus(c.String("nats-url"), c.String("stream"), 0)
	if err != nil {
		return fmt.Errorf("подключение к %s: %w", c.String("nats-url"), err)
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events := make(chan *eventbus.Envelope, 64)
	filter := eventbus.Filter{
		Types:   parseStringList(c.String("types")),
		Sources: parseStringList(c.String("sources")),
	}
	sub, err := bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	limit := c.Int("limit")
	idle := c.Duration("idle")
	count := 0
	for limit <= 0 || count < limit {
		var timeout <-chan time.Time
		if !c.Bool("follow") {
			timeout = time.After(idle)
		}

		select {
		case ev := <-events:
			fmt.Println(describe(ev))
			count++
		case <-timeout:
			fmt.Printf("\n📊 Всего событий: %d\n", count)
			return nil
		case <-ctx.Done():
			fmt.Printf("\n📊 Всего событий: %d\n", count)
			return nil
		}
	}
	fmt.Printf("\n📊 Всего событий: %d\n", count)
	return nil
}

// describe форматирует конверт и его полезную нагрузку в одну-две строки
func describe(ev *eventbus.Envelope) string {
	head := fmt.Sprintf("[%s] %s [%s] %s %s",
		ev.Timestamp.Format("15:04:05.000"), ev.Source, ev.EventType, ev.CorrelationID, ev.ID)

	detail, err := payloadDetail(ev)
	if err != nil {
		return head + "\n  ⚠️ " + err.Error()
	}
	if detail == "" {
		return head
	}
	return head + "\n  " + detail
}

func payloadDetail(ev *eventbus.Envelope) (string, error) {
	switch ev.EventType {
	case eventbus.TypeOutboundChat:
		var p game.ChatPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return "", err
		}
		return fmt.Sprintf("chat → %s: %s", targetOrAll(p.Target), p.Message.String()), nil

	case eventbus.TypeOutboundResourcePack:
		var p game.ResourcePackPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return "", err
		}
		return fmt.Sprintf("pack → %s: %s sha1=%s forced=%v", p.Target, p.URL, p.SHA1, p.Forced), nil

	case eventbus.TypeBlockSnapshot:
		var ch world.Changes
		if err := json.Unmarshal(ev.Payload, &ch); err != nil {
			return "", err
		}
		return fmt.Sprintf("instance %s: блоков %d, block entity %d", ch.Instance, len(ch.Blocks), len(ch.BlockEntities)), nil

	case eventbus.TypeSyncBatch:
		compressor, err := sync.NewCompressor(ev.Metadata[sync.MetaCompression])
		if err != nil {
			return "", err
		}
		changes, err := compressor.Decompress(ev.Payload)
		if err != nil {
			return "", fmt.Errorf("распаковка %s: %w", compressor.Name(), err)
		}
		return fmt.Sprintf("batch %s: изменений %d, %d байт", compressor.Name(), len(changes), len(ev.Payload)), nil
	}
	return "", nil
}

func targetOrAll(target string) string {
	if target == "" {
		return "всем"
	}
	return target
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
