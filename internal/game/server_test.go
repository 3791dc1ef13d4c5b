package game

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockworld/internal/eventbus"
	"github.com/annel0/blockworld/internal/logging"
	"github.com/annel0/blockworld/internal/router"
	"github.com/annel0/blockworld/internal/session"
	"github.com/annel0/blockworld/internal/storage"
	"github.com/annel0/blockworld/internal/vec"
	"github.com/annel0/blockworld/internal/world"
	"github.com/annel0/blockworld/internal/world/block"
)

var signPos = world.NewBlockPos(3, 65, 2)

// collector собирает конверты шины
type collector struct {
	mu        sync.Mutex
	envelopes []*eventbus.Envelope
}

func (c *collector) handle(_ context.Context, ev *eventbus.Envelope) {
	c.mu.Lock()
	c.envelopes = append(c.envelopes, ev)
	c.mu.Unlock()
}

func (c *collector) ofType(eventType string) []*eventbus.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*eventbus.Envelope
	for _, ev := range c.envelopes {
		if ev.EventType == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	server *Server
	inst   *world.Instance
	repo   *storage.MemoryTransformRepo
	bus    eventbus.EventBus
	seen   *collector
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()

	inst := world.NewInstance("main", world.WithLogger(nil))
	inst.InsertChunk(world.ChunkPos{X: 0, Z: 0})
	bus := eventbus.NewMemoryBus(64)
	repo := storage.NewMemoryTransformRepo()

	cfg := Config{
		Source:     "test",
		Bus:        bus,
		Transforms: repo,
		Registerer: prometheus.NewRegistry(),
		Logger:     logging.NewWriterLogger("game", io.Discard, logging.ERROR),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	server, err := New(inst, cfg)
	require.NoError(t, err)

	seen := &collector{}
	_, err = bus.Subscribe(context.Background(), eventbus.Filter{}, seen.handle)
	require.NoError(t, err)

	t.Cleanup(func() { _ = bus.Close() })
	return &fixture{server: server, inst: inst, repo: repo, bus: bus, seen: seen}
}

func (f *fixture) connect(t *testing.T, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	f.server.Connect(SessionConnected{ID: id, Username: name})
	f.server.Tick(context.Background())
	_, ok := f.server.Sessions().Get(id)
	require.True(t, ok, "сессия %s должна появиться после тика", name)
	return id
}

func TestServer_ConnectInitializesSession(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		cfg.Spawn = DefaultSpawn()
		cfg.Spawn.Welcome = "Добро пожаловать"
	})

	id := f.connect(t, "alice")
	sess, _ := f.server.Sessions().Get(id)

	assert.Equal(t, "main", sess.InstanceKey)
	assert.Equal(t, vec.Vec3Float{X: 1.5, Y: 65, Z: 1.5}, sess.Transform.Position)
	assert.Equal(t, float32(-90), sess.Transform.Look.Yaw)
	assert.Equal(t, "creative", sess.GameMode.String())

	require.Eventually(t, func() bool { return len(f.seen.ofType(eventbus.TypeOutboundChat)) == 1 },
		time.Second, 5*time.Millisecond, "приветствие должно уйти в шину")

	env := f.seen.ofType(eventbus.TypeOutboundChat)[0]
	assert.Equal(t, id.String(), env.Metadata[eventbus.MetaTarget])

	var payload ChatPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "Добро пожаловать", payload.Message.Content)
	assert.True(t, payload.Message.Italic)
}

func TestServer_DisconnectAppliedBeforeDispatch(t *testing.T) {
	f := newFixture(t, nil)
	id := f.connect(t, "alice")

	f.server.Submit(router.ChatMessage{Session: id, Text: "прощай"})
	f.server.Disconnect(id)

	report := f.server.Tick(context.Background())

	assert.Equal(t, 1, report.Disconnected)
	assert.Equal(t, 1, report.Dispatch.Dropped[router.DropUnknownSession],
		"событие отключённой сессии должно быть отброшено")
	assert.Equal(t, 0, f.server.Sessions().Len())
}

func TestServer_ConnectThenDisconnectSameTick(t *testing.T) {
	f := newFixture(t, nil)
	id := uuid.New()

	f.server.Connect(SessionConnected{ID: id, Username: "bob"})
	f.server.Disconnect(id)
	report := f.server.Tick(context.Background())

	assert.Equal(t, 1, report.Connected)
	assert.Equal(t, 1, report.Disconnected)
	_, ok := f.server.Sessions().Get(id)
	assert.False(t, ok, "порядок подключения и отключения сохраняется")
}

func TestServer_DuplicateConnectRejected(t *testing.T) {
	f := newFixture(t, nil)
	id := f.connect(t, "alice")

	f.server.Connect(SessionConnected{ID: id, Username: "alice"})
	report := f.server.Tick(context.Background())

	assert.Equal(t, 0, report.Connected)
	assert.Equal(t, 1, f.server.Sessions().Len())
}

func TestServer_ChatUpdatesSignAndPublishesSnapshot(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.inst.SetBlock(signPos, block.OakSign, nil)
	require.NoError(t, err)
	f.inst.TakeChanges()

	f.server.Router().AddChatSink(router.SignBoard{Pos: signPos})
	id := f.connect(t, "alice")

	f.server.Submit(router.ChatMessage{Session: id, Text: "hello"})
	report := f.server.Tick(context.Background())

	assert.Equal(t, 1, report.Dispatch.Applied)
	assert.Equal(t, 1, report.Changes, "одна изменённая табличка")

	require.Eventually(t, func() bool { return len(f.seen.ofType(eventbus.TypeBlockSnapshot)) == 1 },
		time.Second, 5*time.Millisecond)

	var changes world.Changes
	env := f.seen.ofType(eventbus.TypeBlockSnapshot)[0]
	require.NoError(t, json.Unmarshal(env.Payload, &changes))
	require.Len(t, changes.BlockEntities, 1)
	assert.Equal(t, signPos, changes.BlockEntities[0].Pos)

	text2, ok := changes.BlockEntities[0].Data.GetString(router.SignText2)
	require.True(t, ok)
	assert.Contains(t, text2, "hello")
	assert.Equal(t, "main", env.Metadata["instance"])
}

func TestServer_RestoresAndSavesTransform(t *testing.T) {
	f := newFixture(t, nil)
	id := uuid.New()
	ctx := context.Background()

	require.NoError(t, f.repo.Save(ctx, id, storage.TransformRecord{
		Instance: "main",
		Position: vec.Vec3Float{X: 10, Y: 70, Z: -4},
		Yaw:      45,
	}))

	f.server.Connect(SessionConnected{ID: id, Username: "carol"})
	f.server.Tick(ctx)

	sess, ok := f.server.Sessions().Get(id)
	require.True(t, ok)
	assert.Equal(t, vec.Vec3Float{X: 10, Y: 70, Z: -4}, sess.Transform.Position, "положение из хранилища")
	assert.Equal(t, float32(45), sess.Transform.Look.Yaw)

	done := f.server.Command(func(scope Scope) error {
		s, _ := scope.Sessions.Get(id)
		s.Transform.Position = vec.Vec3Float{X: 1, Y: 66, Z: 1}
		return nil
	})
	f.server.Tick(ctx)
	require.NoError(t, <-done)

	f.server.Disconnect(id)
	f.server.Tick(ctx)

	rec, found, err := f.repo.Load(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, vec.Vec3Float{X: 1, Y: 66, Z: 1}, rec.Position, "при отключении сохраняется последнее положение")
}

func TestServer_RestoreIgnoresOtherInstance(t *testing.T) {
	f := newFixture(t, nil)
	id := uuid.New()
	require.NoError(t, f.repo.Save(context.Background(), id, storage.TransformRecord{
		Instance: "nether",
		Position: vec.Vec3Float{X: 100, Y: 30, Z: 100},
	}))

	f.server.Connect(SessionConnected{ID: id, Username: "dave"})
	f.server.Tick(context.Background())

	sess, _ := f.server.Sessions().Get(id)
	assert.Equal(t, DefaultSpawn().Position, sess.Transform.Position)
}

func TestServer_CommandErrorsAndPanics(t *testing.T) {
	f := newFixture(t, nil)
	boom := errors.New("boom")

	failed := f.server.Command(func(Scope) error { return boom })
	panicked := f.server.Command(func(Scope) error { panic("ой") })
	report := f.server.Tick(context.Background())

	assert.Equal(t, 2, report.Commands)
	assert.ErrorIs(t, <-failed, boom)
	assert.Error(t, <-panicked, "паника в команде превращается в ошибку")
}

func TestServer_RunAndStop(t *testing.T) {
	f := newFixture(t, func(cfg *Config) { cfg.TickInterval = 2 * time.Millisecond })
	id := uuid.New()
	f.server.Connect(SessionConnected{ID: id, Username: "erin"})

	go f.server.Run(context.Background())
	require.Eventually(t, func() bool { return f.server.CurrentTick() >= 2 }, time.Second, time.Millisecond)
	f.server.Stop()

	assert.ErrorIs(t, <-f.server.Command(func(Scope) error { return nil }), ErrServerStopped)

	_, found, err := f.repo.Load(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, found, "при остановке положение онлайн-сессий сохраняется")
}

func TestServer_ReadSeesCommittedState(t *testing.T) {
	f := newFixture(t, nil)
	pos := world.NewBlockPos(1, 64, 1)

	done := f.server.Command(func(scope Scope) error {
		_, err := scope.Instance.SetBlock(pos, block.Chest, nil)
		return err
	})
	f.server.Tick(context.Background())
	require.NoError(t, <-done)

	f.server.Read(func(inst *world.Instance, sessions *session.Registry) {
		state, err := inst.Block(pos)
		require.NoError(t, err)
		assert.Equal(t, block.Chest, state)
		_, ok := inst.BlockEntity(pos)
		assert.True(t, ok, "сундук получает документ по умолчанию")
		assert.Equal(t, 0, sessions.Len())
	})
}

func TestServer_SnapshotRequeuedWhenBusIsFull(t *testing.T) {
	inst := world.NewInstance("main", world.WithLogger(nil))
	inst.InsertChunk(world.ChunkPos{X: 0, Z: 0})
	bus := eventbus.NewMemoryBus(1)
	t.Cleanup(func() { _ = bus.Close() })

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	seen := &collector{}
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{Types: []string{eventbus.TypeBlockSnapshot}},
		func(ctx context.Context, ev *eventbus.Envelope) {
			once.Do(func() { close(started) })
			<-release
			seen.handle(ctx, ev)
		})
	require.NoError(t, err)

	server, err := New(inst, Config{
		Source:         "test",
		Bus:            bus,
		PublishTimeout: 20 * time.Millisecond,
		Registerer:     prometheus.NewRegistry(),
		Logger:         logging.NewWriterLogger("game", io.Discard, logging.ERROR),
	})
	require.NoError(t, err)

	setStone := func(x int32) {
		_, err := inst.SetBlock(world.NewBlockPos(x, 64, 1), block.Stone, nil)
		require.NoError(t, err)
	}

	setStone(1)
	require.Equal(t, 1, server.Tick(context.Background()).Published)
	<-started

	setStone(2)
	require.Equal(t, 1, server.Tick(context.Background()).Published, "второй снимок занимает буфер")

	setStone(3)
	report := server.Tick(context.Background())
	assert.Equal(t, 0, report.Published, "неотправленный снимок не считается опубликованным")
	assert.Equal(t, 1, report.PublishErrors)
	assert.Equal(t, 1, report.Requeued)
	assert.Equal(t, 1, inst.PendingChanges(), "изменение должно вернуться в журнал")

	close(release)
	require.Eventually(t, func() bool { return len(seen.ofType(eventbus.TypeBlockSnapshot)) == 2 },
		time.Second, 5*time.Millisecond)

	report = server.Tick(context.Background())
	require.Equal(t, 1, report.Published)
	assert.Equal(t, 1, report.Changes)

	require.Eventually(t, func() bool { return len(seen.ofType(eventbus.TypeBlockSnapshot)) == 3 },
		time.Second, 5*time.Millisecond)
	var changes world.Changes
	require.NoError(t, json.Unmarshal(seen.ofType(eventbus.TypeBlockSnapshot)[2].Payload, &changes))
	require.Len(t, changes.Blocks, 1)
	assert.Equal(t, world.NewBlockPos(3, 64, 1), changes.Blocks[0].Pos, "повторный снимок содержит потерянную позицию")
}
