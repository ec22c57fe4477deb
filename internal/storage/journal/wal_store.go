package journal

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
)

const (
	defaultWALDir    = "./wal/journal"
	segmentLimit     = 1000
	maxSegments      = 100
	journalKeyPrefix = "journal_"
)

// WALStore persists journal entries in a write-ahead log.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed journal under dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultWALDir
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "journal_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init journal WAL")
	}

	return &WALStore{wal: wal}, nil
}

func (s *WALStore) Append(e Entry) (Entry, error) {
	if s == nil || s.wal == nil {
		return Entry{}, errors.New("journal store is not initialized")
	}
	if e.Type == "" {
		return Entry{}, errors.New("journal entry type is required")
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = newID(e.At)
	e.Index = s.wal.CurrentIndex() + 1

	payload, err := json.Marshal(e)
	if err != nil {
		return Entry{}, errors.Wrap(err, "marshal journal entry")
	}
	if err := s.wal.Write(e.Index, journalKeyPrefix+e.Type, payload); err != nil {
		return Entry{}, errors.Wrap(err, "write journal entry")
	}
	return e, nil
}

func (s *WALStore) After(index uint64) ([]Entry, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("journal store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	entries := make([]Entry, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, journalKeyPrefix) {
			continue
		}
		var e Entry
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, errors.Wrap(err, "decode journal entry")
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("journal store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
