package router

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockworld/internal/nbt"
	"github.com/annel0/blockworld/internal/session"
	"github.com/annel0/blockworld/internal/text"
	"github.com/annel0/blockworld/internal/world"
	"github.com/annel0/blockworld/internal/world/block"
)

var (
	signPos  = world.NewBlockPos(3, 65, 2)
	skullPos = world.NewBlockPos(3, 65, 3)
	sheepPos = world.NewBlockPos(0, 64, 0)
)

type fixture struct {
	inst     *world.Instance
	sessions *session.Registry
	router   *Router
	outbox   *Outbox
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	inst := world.NewInstance("overworld", world.WithLogger(nil))
	inst.InsertChunk(world.ChunkPos{X: 0, Z: 0})
	worlds := world.NewRegistry()
	require.NoError(t, worlds.Register(inst))

	sessions := session.NewRegistry()
	outbox := NewOutbox()
	opts = append([]Option{WithLogger(nil), WithMetrics(NewMetrics(prometheus.NewRegistry()))}, opts...)
	r := New(sessions, worlds, outbox, opts...)

	return &fixture{inst: inst, sessions: sessions, router: r, outbox: outbox}
}

func (f *fixture) connect(t *testing.T, name, textures string) *session.Session {
	t.Helper()
	var props []session.Property
	if textures != "" {
		props = append(props, session.Property{Name: session.TexturesProperty, Value: textures})
	}
	s := session.New(uuid.New(), name, props)
	s.InstanceKey = f.inst.Name()
	require.NoError(t, f.sessions.Add(s))
	return s
}

func TestDispatch_ChatWritesSign(t *testing.T) {
	f := newFixture(t)
	f.router.AddChatSink(SignBoard{Pos: signPos})

	_, err := f.inst.SetBlock(signPos, block.OakSign, nil)
	require.NoError(t, err)
	alice := f.connect(t, "Alice", "")

	res := f.router.Dispatch(context.Background(), []Event{ChatMessage{Session: alice.ID, Text: "hello"}})
	assert.Equal(t, 1, res.Applied)
	assert.Empty(t, res.Violations)

	doc, ok := f.inst.BlockEntity(signPos)
	require.True(t, ok)

	line2, _ := doc.GetString(SignText2)
	line3, _ := doc.GetString(SignText3)
	assert.Contains(t, line2, "hello")
	assert.Contains(t, line3, "~Alice")

	parsed, err := text.Parse(line2)
	require.NoError(t, err)
	assert.Equal(t, text.ColorDarkGreen, parsed.Color)
	italic, err := text.Parse(line3)
	require.NoError(t, err)
	assert.True(t, italic.Italic)
}

func TestDispatch_ChatFromUnknownSession(t *testing.T) {
	f := newFixture(t)
	f.router.AddChatSink(SignBoard{Pos: signPos})
	_, err := f.inst.SetBlock(signPos, block.OakSign, nil)
	require.NoError(t, err)
	f.inst.TakeChanges()

	res := f.router.Dispatch(context.Background(), []Event{ChatMessage{Session: uuid.New(), Text: "hello"}})
	assert.Equal(t, 0, res.Applied)
	assert.Equal(t, 1, res.Dropped[DropUnknownSession])
	assert.Empty(t, res.Violations)

	doc, _ := f.inst.BlockEntity(signPos)
	assert.Empty(t, doc, "Событие неизвестной сессии не меняет мир")
	assert.True(t, f.inst.TakeChanges().Empty())
}

func TestDispatch_ChatWithoutSignDropped(t *testing.T) {
	f := newFixture(t)
	f.router.AddChatSink(SignBoard{Pos: signPos})
	alice := f.connect(t, "Alice", "")

	res := f.router.Dispatch(context.Background(), []Event{ChatMessage{Session: alice.ID, Text: "hi"}})
	assert.Equal(t, 1, res.Dropped[DropTargetGone], "Без таблички сообщение отбрасывается")
	_, ok := f.inst.BlockEntity(signPos)
	assert.False(t, ok, "Документ не должен создаваться сам")
}

func TestDispatch_ChatOrderLastWins(t *testing.T) {
	f := newFixture(t)
	f.router.AddChatSink(SignBoard{Pos: signPos})
	_, err := f.inst.SetBlock(signPos, block.OakSign, nil)
	require.NoError(t, err)

	alice := f.connect(t, "Alice", "")
	bob := f.connect(t, "Bob", "")

	res := f.router.Dispatch(context.Background(), []Event{
		ChatMessage{Session: alice.ID, Text: "first"},
		ChatMessage{Session: bob.ID, Text: "second"},
	})
	assert.Equal(t, 2, res.Applied)

	doc, _ := f.inst.BlockEntity(signPos)
	line2, _ := doc.GetString(SignText2)
	line3, _ := doc.GetString(SignText3)
	assert.Contains(t, line2, "second", "События применяются в порядке поступления")
	assert.Contains(t, line3, "~Bob")
}

func TestDispatch_BroadcastChat(t *testing.T) {
	f := newFixture(t, WithBroadcastChat(true))
	alice := f.connect(t, "Alice", "")

	f.router.Dispatch(context.Background(), []Event{ChatMessage{Session: alice.ID, Text: "hi all"}})
	effects := f.outbox.Drain()
	require.Len(t, effects, 1)

	chat, ok := effects[0].(Chat)
	require.True(t, ok)
	assert.True(t, chat.Broadcast())
	assert.Equal(t, "<Alice> hi all", chat.Message.Content)
}

func TestDispatch_SkullAttackReplacesDocument(t *testing.T) {
	f := newFixture(t)
	f.router.Interactions().Register(skullPos, HandMain, InteractAttack, SkullOwner{})

	_, err := f.inst.SetBlock(skullPos, block.PlayerHead.Set(block.PropRotation, 12), nil)
	require.NoError(t, err)
	mut, _ := f.inst.BlockEntityMut(skullPos)
	mut.Set("stale", nbt.Int(1))

	alice := f.connect(t, "Alice", "ewogICJ0aW1lc3RhbXAiIDog")

	res := f.router.Dispatch(context.Background(), []Event{
		BlockInteract{Session: alice.ID, Position: skullPos, Hand: HandMain, Kind: InteractAttack},
	})
	assert.Equal(t, 1, res.Applied)

	doc, ok := f.inst.BlockEntity(skullPos)
	require.True(t, ok)
	assert.Equal(t, SkullOwnerDoc(alice, "ewogICJ0aW1lc3RhbXAiIDog"), doc, "Документ заменяется целиком")

	owner, _ := doc.GetCompound("SkullOwner")
	props, _ := owner.GetCompound("Properties")
	list, _ := props.GetList(session.TexturesProperty)
	require.Len(t, list, 1)
	value, _ := list[0].(nbt.Compound).GetString("Value")
	assert.Equal(t, "ewogICJ0aW1lc3RhbXAiIDog", value)
}

func TestDispatch_SkullUseItemIsNoop(t *testing.T) {
	f := newFixture(t)
	f.router.Interactions().Register(skullPos, HandMain, InteractAttack, SkullOwner{})

	_, err := f.inst.SetBlock(skullPos, block.PlayerHead, nil)
	require.NoError(t, err)
	f.inst.TakeChanges()
	alice := f.connect(t, "Alice", "textures")

	res := f.router.Dispatch(context.Background(), []Event{
		BlockInteract{Session: alice.ID, Position: skullPos, Hand: HandMain, Kind: InteractUseItem},
		BlockInteract{Session: alice.ID, Position: skullPos, Hand: HandOff, Kind: InteractAttack},
		BlockInteract{Session: alice.ID, Position: signPos, Hand: HandMain, Kind: InteractAttack},
	})
	assert.Equal(t, 0, res.Applied)
	assert.Equal(t, 3, res.Ignored, "Незарегистрированные взаимодействия не ошибки")
	assert.Zero(t, res.DroppedTotal())

	doc, _ := f.inst.BlockEntity(skullPos)
	assert.Empty(t, doc)
	assert.True(t, f.inst.TakeChanges().Empty())
}

func TestDispatch_SkullWithoutTextures(t *testing.T) {
	f := newFixture(t)
	f.router.Interactions().Register(skullPos, HandMain, InteractAttack, SkullOwner{})
	_, err := f.inst.SetBlock(skullPos, block.PlayerHead, nil)
	require.NoError(t, err)
	bob := f.connect(t, "Bob", "")

	f.router.Dispatch(context.Background(), []Event{
		BlockInteract{Session: bob.ID, Position: skullPos, Hand: HandMain, Kind: InteractAttack},
	})
	doc, _ := f.inst.BlockEntity(skullPos)
	assert.Empty(t, doc, "Без скина документ не меняется")
}

func TestDispatch_InvariantViolationReported(t *testing.T) {
	f := newFixture(t)
	// Голова убрана, а обработчик остался зарегистрирован
	f.router.Interactions().Register(skullPos, HandMain, InteractAttack, SkullOwner{})
	_, err := f.inst.SetBlock(skullPos, block.Stone, nil)
	require.NoError(t, err)
	alice := f.connect(t, "Alice", "textures")

	var res Result
	assert.NotPanics(t, func() {
		res = f.router.Dispatch(context.Background(), []Event{
			BlockInteract{Session: alice.ID, Position: skullPos, Hand: HandMain, Kind: InteractAttack},
			ChatMessage{Session: alice.ID, Text: "after"},
		})
	})
	require.Len(t, res.Violations, 1)
	assert.ErrorIs(t, res.Violations[0], world.ErrInvariantViolation)
	assert.Equal(t, 1, res.Applied, "Остальные события пачки обрабатываются")
	assert.NoError(t, f.inst.Validate())
}

func TestDispatch_ResourcePackFlow(t *testing.T) {
	f := newFixture(t)
	offer := session.PackOffer{
		URL:  "https://github.com/valence-rs/valence/raw/main/assets/example_pack.zip",
		SHA1: "D7C6108849FB190EC2A49F2D38B7F1F897D9CE9F",
	}
	f.router.Interactions().Register(sheepPos, HandMain, InteractAttack, PackPrompter{Offer: offer})
	alice := f.connect(t, "Alice", "")

	res := f.router.Dispatch(context.Background(), []Event{
		ResourcePackStatus{Session: alice.ID, Status: session.StatusAccepted},
		BlockInteract{Session: alice.ID, Position: sheepPos, Hand: HandMain, Kind: InteractAttack},
		ResourcePackStatus{Session: alice.ID, Status: session.StatusSuccessfullyLoaded},
		ResourcePackStatus{Session: alice.ID, Status: session.StatusAccepted},
	})
	assert.Equal(t, 2, res.Dropped[DropUnsolicited], "Статус вне Prompted отбрасывается")
	assert.Equal(t, 2, res.Applied)
	assert.Equal(t, session.PackSuccessfullyLoaded, alice.ResourcePack.State())

	effects := f.outbox.Drain()
	require.Len(t, effects, 2)

	prompt, ok := effects[0].(ResourcePackPrompt)
	require.True(t, ok)
	assert.Equal(t, alice.ID, prompt.Target)
	assert.Equal(t, strings.ToLower(offer.SHA1), prompt.SHA1)
	assert.False(t, prompt.Forced)

	loaded := effects[1].(Chat)
	assert.Equal(t, alice.ID, loaded.Target)
	assert.Equal(t, "Resource pack successfully downloaded.", loaded.Message.Content)
	assert.Equal(t, text.ColorBlue, loaded.Message.Color)

	assert.Equal(t, 0, f.outbox.Len(), "Drain очищает очередь")
}

func TestDispatch_DeclinedGetsAcknowledgement(t *testing.T) {
	f := newFixture(t)
	alice := f.connect(t, "Alice", "")
	require.NoError(t, PromptPack(alice, f.outbox, session.PackOffer{
		URL:  "https://example.com/pack.zip",
		SHA1: "d7c6108849fb190ec2a49f2d38b7f1f897d9ce9f",
	}))
	f.outbox.Drain()

	f.router.Dispatch(context.Background(), []Event{ResourcePackStatus{Session: alice.ID, Status: session.StatusDeclined}})
	effects := f.outbox.Drain()
	require.Len(t, effects, 1)
	assert.Equal(t, "Resource pack declined.", effects[0].(Chat).Message.Content)

	_, ok := f.sessions.Get(alice.ID)
	assert.True(t, ok, "Отказ от ресурспака не отключает клиента")
}

func TestDispatch_UnknownInstance(t *testing.T) {
	f := newFixture(t)
	alice := f.connect(t, "Alice", "")
	alice.InstanceKey = "nether"

	res := f.router.Dispatch(context.Background(), []Event{ChatMessage{Session: alice.ID, Text: "x"}})
	assert.Equal(t, 1, res.Dropped[DropUnknownInstance])
}

func TestDispatch_Cancelled(t *testing.T) {
	f := newFixture(t)
	alice := f.connect(t, "Alice", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := f.router.Dispatch(ctx, []Event{
		ChatMessage{Session: alice.ID, Text: "a"},
		ChatMessage{Session: alice.ID, Text: "b"},
	})
	assert.Equal(t, 2, res.Dropped[DropCancelled])
	assert.Equal(t, 0, res.Applied)
}
