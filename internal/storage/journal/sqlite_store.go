package journal

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS journal (
	idx INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	type TEXT NOT NULL,
	pair TEXT NOT NULL,
	at DATETIME NOT NULL,
	payload BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_journal_type ON journal(type);
`

// SQLiteStore persists journal entries in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open journal database")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create journal schema")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(e Entry) (Entry, error) {
	if e.Type == "" {
		return Entry{}, errors.New("journal entry type is required")
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if len(e.Payload) == 0 {
		e.Payload = []byte("null")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = newID(e.At)
	res, err := s.db.Exec(`INSERT INTO journal (id, type, pair, at, payload) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Type, e.Pair, e.At.UTC(), []byte(e.Payload))
	if err != nil {
		return Entry{}, errors.Wrap(err, "insert journal entry")
	}
	idx, err := res.LastInsertId()
	if err != nil {
		return Entry{}, errors.Wrap(err, "read journal index")
	}
	e.Index = uint64(idx)
	return e, nil
}

func (s *SQLiteStore) After(index uint64) ([]Entry, error) {
	rows, err := s.db.Query(`SELECT idx, id, type, pair, at, payload FROM journal WHERE idx > ? ORDER BY idx`, index)
	if err != nil {
		return nil, errors.Wrap(err, "query journal")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			payload []byte
		)
		if err := rows.Scan(&e.Index, &e.ID, &e.Type, &e.Pair, &e.At, &payload); err != nil {
			return nil, errors.Wrap(err, "scan journal entry")
		}
		e.Payload = payload
		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "iterate journal")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
