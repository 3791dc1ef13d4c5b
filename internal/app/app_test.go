package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockworld/internal/config"
	"github.com/annel0/blockworld/internal/game"
	"github.com/annel0/blockworld/internal/router"
	"github.com/annel0/blockworld/internal/scenario"
	"github.com/annel0/blockworld/internal/session"
	"github.com/annel0/blockworld/internal/world"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.World.PreloadRange = 1
	cfg.Logging.Level = "error"
	return cfg
}

func TestNewBuildsScenarioWorld(t *testing.T) {
	a, err := New(context.Background(), testConfig())
	require.NoError(t, err)
	defer a.Close()

	sc := scenario.NewBlockEntities()
	a.Server().Read(func(inst *world.Instance, sessions *session.Registry) {
		assert.Equal(t, 4, inst.ChunkCount(), "радиус 1 даёт чанки -1..0 по обеим осям")
		_, ok := inst.BlockEntity(sc.Sign)
		assert.True(t, ok, "табличка должна быть поставлена")
		assert.Zero(t, inst.PendingChanges(), "постройка мира не попадает в журнал")
		assert.Zero(t, sessions.Len())
	})
}

func TestNewRejectsUnknownScenario(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Scenario = "parkour"

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewRejectsShortJWTSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Admin.JWTSecret = "short"

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestSyncMirrorReceivesChanges(t *testing.T) {
	cfg := testConfig()
	cfg.Sync.Enabled = true
	cfg.Sync.Mirror = true
	cfg.Sync.FlushEvery = 0

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	id := uuid.New()
	a.Server().Connect(game.SessionConnected{ID: id, Username: "alice"})
	a.Server().Submit(router.ChatMessage{Session: id, Text: "hello"})
	report := a.Server().Tick(context.Background())
	require.Equal(t, 1, report.Dispatch.Applied)
	require.Positive(t, report.Changes, "чат должен изменить табличку")

	batches := a.syncMgr.Batches()
	require.Eventually(t, func() bool { return batches.Pending() > 0 }, time.Second, 5*time.Millisecond,
		"снимок изменений должен дойти до менеджера пачек")
	require.NoError(t, batches.Flush(context.Background()))

	sign := scenario.NewBlockEntities().Sign
	replica := a.syncMgr.Replica()
	require.Eventually(t, func() bool {
		_, ok := replica.BlockEntity(sign)
		return ok
	}, time.Second, 5*time.Millisecond, "зеркало должно получить табличку")
}

func TestPackOfferPrompt(t *testing.T) {
	offer := PackOffer(config.ResourcePackConfig{URL: "https://example.com/p.zip", SHA1: "x", Prompt: "Установить?"})
	require.NotNil(t, offer.PromptMessage)
	assert.Equal(t, "https://example.com/p.zip", offer.URL)

	assert.Nil(t, PackOffer(config.ResourcePackConfig{}).PromptMessage)
}

func TestCloseIsIdempotent(t *testing.T) {
	a, err := New(context.Background(), testConfig())
	require.NoError(t, err)

	a.Close()
	assert.NotPanics(t, a.Close)
}
