// Package journal keeps an append-only audit log of trade and error events.
// Entries are never replayed into position state.
package journal

import (
	"encoding/json"
	"time"
)

// Entry types.
const (
	TypeTrade = "trade"
	TypeError = "error"
)

// Entry is one journal record.
type Entry struct {
	// Index is assigned by the store and increases with every append.
	Index   uint64          `json:"index"`
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Pair    string          `json:"pair"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

// Journal is implemented by WALStore and SQLiteStore.
type Journal interface {
	// Append stores e, filling ID and Index, and returns the stored entry.
	Append(e Entry) (Entry, error)
	// After returns entries with Index greater than index, oldest first.
	After(index uint64) ([]Entry, error)
	Close() error
}

// NewEntry marshals payload into an entry of the given type.
func NewEntry(typ, pair string, at time.Time, payload any) (Entry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Type: typ, Pair: pair, At: at, Payload: raw}, nil
}
