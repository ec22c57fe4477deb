package journal

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Reason string `json:"reason"`
}

func stores(t *testing.T) map[string]Journal {
	t.Helper()

	wal, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	db, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = wal.Close()
		_ = db.Close()
	})
	return map[string]Journal{"wal": wal, "sqlite": db}
}

func TestJournal_AppendAndAfter(t *testing.T) {
	for name, j := range stores(t) {
		t.Run(name, func(t *testing.T) {
			at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

			first, err := NewEntry(TypeTrade, "BTC_USDT", at, payload{Reason: "opened"})
			require.NoError(t, err)
			first, err = j.Append(first)
			require.NoError(t, err)
			assert.NotEmpty(t, first.ID)
			assert.Equal(t, uint64(1), first.Index)

			second, err := NewEntry(TypeError, "BTC_USDT", at.Add(time.Second), payload{Reason: "timeout"})
			require.NoError(t, err)
			second, err = j.Append(second)
			require.NoError(t, err)
			assert.Greater(t, second.Index, first.Index)
			assert.Greater(t, second.ID, first.ID)

			all, err := j.After(0)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, TypeTrade, all[0].Type)
			assert.Equal(t, TypeError, all[1].Type)
			assert.True(t, all[0].At.Equal(at))

			var p payload
			require.NoError(t, json.Unmarshal(all[1].Payload, &p))
			assert.Equal(t, "timeout", p.Reason)

			tail, err := j.After(first.Index)
			require.NoError(t, err)
			require.Len(t, tail, 1)
			assert.Equal(t, second.ID, tail[0].ID)

			none, err := j.After(second.Index)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestJournal_RequiresType(t *testing.T) {
	for name, j := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := j.Append(Entry{Pair: "BTC_USDT"})
			assert.Error(t, err)
		})
	}
}
