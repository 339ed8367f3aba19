package output

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowtransfer/snowtransfer/internal/rest"
)

func sampleSnapshot() Snapshot {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return Snapshot{
		TakenAt: now,
		Global:  rest.GlobalLock{Active: true, ResetAt: now.Add(1500 * time.Millisecond)},
		Buckets: []rest.BucketState{
			{Key: "/channels/1/messages", Remaining: 0, Limit: 5, ResetAt: now.Add(2 * time.Second), Queued: 3, Draining: true},
			{Key: "/gateway", Remaining: 1, Limit: 1},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]Format{"": FormatTable, "JSON": FormatJSON, "md": FormatMarkdown} {
		got, err := ParseFormat(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("yaml")
	assert.Error(t, err)
}

func TestTableFormatter(t *testing.T) {
	rendered, err := NewFormatter(FormatTable).FormatSnapshot(sampleSnapshot())
	require.NoError(t, err)

	assert.Contains(t, rendered, "/channels/1/messages")
	assert.Contains(t, rendered, "2s")
	assert.Contains(t, rendered, "2 buckets")
	assert.Contains(t, rendered, "locked for 1.5s")
}

func TestMarkdownFormatter(t *testing.T) {
	rendered, err := NewFormatter(FormatMarkdown).FormatSnapshot(sampleSnapshot())
	require.NoError(t, err)
	assert.Contains(t, rendered, "| /gateway |")
}

func TestJSONFormatter(t *testing.T) {
	rendered, err := NewFormatter(FormatJSON).FormatSnapshot(sampleSnapshot())
	require.NoError(t, err)

	var decoded Snapshot
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	assert.Len(t, decoded.Buckets, 2)
	assert.True(t, decoded.Global.Active)
}

func TestFormatResponse(t *testing.T) {
	assert.Equal(t, "(no content)", FormatResponse(nil))
	assert.Equal(t, "{\n  \"url\": \"wss://x\"\n}", FormatResponse(json.RawMessage(`{"url":"wss://x"}`)))
	assert.Equal(t, "not json", FormatResponse(json.RawMessage("not json")))
}

func TestSnapshotOf(t *testing.T) {
	limiter := rest.NewRatelimiter()
	limiter.Bucket("/gateway")

	snap := SnapshotOf(limiter, time.Now())
	require.Len(t, snap.Buckets, 1)
	assert.Equal(t, "/gateway", snap.Buckets[0].Key)
}
