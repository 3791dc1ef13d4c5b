package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockworld/internal/eventbus"
	"github.com/annel0/blockworld/internal/game"
	"github.com/annel0/blockworld/internal/sync"
	"github.com/annel0/blockworld/internal/text"
)

func TestDescribeChat(t *testing.T) {
	data, err := json.Marshal(game.ChatPayload{Message: text.Plain("привет")})
	require.NoError(t, err)
	ev := eventbus.NewEnvelope("node-1", eventbus.TypeOutboundChat, data)

	out := describe(ev)
	assert.Contains(t, out, "[OutboundChat]")
	assert.Contains(t, out, "chat → всем: привет")
}

func TestDescribeSyncBatch(t *testing.T) {
	compressor, err := sync.NewCompressor(sync.CompressionGzip)
	require.NoError(t, err)
	payload, err := compressor.Compress([]sync.Change{
		{Data: []byte(`{"instance":"main"}`), Timestamp: time.Now(), Source: "node-1", ChangeType: eventbus.TypeBlockSnapshot},
	})
	require.NoError(t, err)

	ev := eventbus.NewEnvelope("node-1", eventbus.TypeSyncBatch, payload)
	ev.Metadata[sync.MetaCompression] = compressor.Name()

	assert.Contains(t, describe(ev), "batch gzip: изменений 1")
}

func TestDescribeBrokenPayload(t *testing.T) {
	ev := eventbus.NewEnvelope("node-1", eventbus.TypeBlockSnapshot, []byte("{"))
	assert.Contains(t, describe(ev), "⚠️", "ошибка разбора выводится, а не роняет утилиту")
}

func TestParseStringList(t *testing.T) {
	assert.Nil(t, parseStringList(""))
	assert.Equal(t, []string{"a", "b"}, parseStringList(" a, ,b "))
}
