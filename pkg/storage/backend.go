package storage

import (
	"database/sql"
	"sync"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"historydb/pkg/common"
	"historydb/pkg/core"
)

// Decoder turns a stored record body into a record. A nil record with a nil
// error means the body holds nothing usable.
type Decoder[R any] func(id string, body []byte) (*R, error)

// Store is a Source that can also be written to.
type Store[R any] interface {
	core.Source[R]
	Save(id string, number int, body []byte) error
	Link(number int, id string) error
	Delete(id string) error
	Close() error
}

// Entry is one record row for BatchSave.
type Entry struct {
	ID     string
	Number int
	Body   []byte
}

// SQLiteSource keeps records in a single SQLite file: a records table keyed by
// ID and a shortcuts table mapping numbers to IDs.
type SQLiteSource[R any] struct {
	db     *sql.DB
	mu     sync.Mutex
	decode Decoder[R]
}

var _ Store[struct{}] = (*SQLiteSource[struct{}])(nil)

func NewSQLiteSource[R any](path string, decode Decoder[R]) (*SQLiteSource[R], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", path)
	}

	query := `
	CREATE TABLE IF NOT EXISTS records (
		id     TEXT PRIMARY KEY,
		number INTEGER NOT NULL,
		body   BLOB
	);
	CREATE TABLE IF NOT EXISTS shortcuts (
		number INTEGER PRIMARY KEY,
		id     TEXT NOT NULL
	);`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "init tables")
	}

	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
	`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set pragmas")
	}

	return &SQLiteSource[R]{db: db, decode: decode}, nil
}

func (s *SQLiteSource[R]) ListIDs() ([]string, error) {
	rows, err := s.db.Query("SELECT id FROM records ORDER BY id ASC")
	if err != nil {
		return nil, errors.Wrap(err, "list record ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan record id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteSource[R]) ListShortcuts() ([]int, error) {
	rows, err := s.db.Query("SELECT number FROM shortcuts ORDER BY number ASC")
	if err != nil {
		return nil, errors.Wrap(err, "list shortcuts")
	}
	defer rows.Close()

	var numbers []int
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, errors.Wrap(err, "scan shortcut")
		}
		numbers = append(numbers, int(n))
	}
	return numbers, rows.Err()
}

func (s *SQLiteSource[R]) Retrieve(id string) (*R, error) {
	var body []byte
	err := s.db.QueryRow("SELECT body FROM records WHERE id = ?", id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(common.ErrRetrieval, "no record %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(common.ErrRetrieval, "read record %s: %v", id, err)
	}
	return s.decodeBody(id, body)
}

func (s *SQLiteSource[R]) RetrieveShortcut(number int) (*R, error) {
	var id string
	var body []byte
	err := s.db.QueryRow(
		"SELECT r.id, r.body FROM shortcuts s JOIN records r ON r.id = s.id WHERE s.number = ?",
		int64(number)).Scan(&id, &body)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(common.ErrRetrieval, "shortcut %d leads nowhere", number)
	}
	if err != nil {
		return nil, errors.Wrapf(common.ErrRetrieval, "read shortcut %d: %v", number, err)
	}
	return s.decodeBody(id, body)
}

func (s *SQLiteSource[R]) decodeBody(id string, body []byte) (*R, error) {
	if len(body) == 0 {
		return nil, nil
	}
	r, err := s.decode(id, body)
	if err != nil {
		return nil, errors.Wrapf(common.ErrRetrieval, "decode record %s: %v", id, err)
	}
	return r, nil
}

func (s *SQLiteSource[R]) Save(id string, number int, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("INSERT OR REPLACE INTO records (id, number, body) VALUES (?, ?, ?)", id, int64(number), body)
	return errors.Wrapf(err, "save record %s", id)
}

// BatchSave writes all entries in one transaction.
func (s *SQLiteSource[R]) BatchSave(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin batch")
	}

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO records (id, number, body) VALUES (?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "prepare batch")
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.ID, int64(e.Number), e.Body); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "save record %s", e.ID)
		}
	}

	return errors.Wrap(tx.Commit(), "commit batch")
}

// Link points the shortcut for number at id, replacing any earlier target.
func (s *SQLiteSource[R]) Link(number int, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("INSERT OR REPLACE INTO shortcuts (number, id) VALUES (?, ?)", int64(number), id)
	return errors.Wrapf(err, "link %d", number)
}

// Delete removes the record. Shortcuts that pointed at it are left dangling, as
// they would be on disk.
func (s *SQLiteSource[R]) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("DELETE FROM records WHERE id = ?", id)
	return errors.Wrapf(err, "delete record %s", id)
}

func (s *SQLiteSource[R]) Close() error {
	return s.db.Close()
}
