package index

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
)

// schemaVersion is stored in PRAGMA user_version. A mismatch on open drops
// the FTS table and rebuilds it empty; callers reindex from storage.
const schemaVersion = 2

const createTableSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS items_fts USING fts5(
	id UNINDEXED,
	title,
	tags,
	collection,
	content,
	annotations,
	ai_summary,
	type,
	source,
	tokenize = 'unicode61 remove_diacritics 2'
);`

// Store is the SQLite-backed ItemIndex. A single run goroutine owns the
// database handle; every operation is a job submitted to it. When the index
// cannot be opened the store stays usable in a degraded mode: writes are
// dropped and searches return nothing.
type Store struct {
	logger  *slog.Logger
	jobs    chan func(db *sql.DB)
	stopCh  chan struct{}
	stopped atomic.Bool
	closed  atomic.Bool
	done    chan struct{}
}

// Open creates the index store at path and starts its writer goroutine. It
// never fails: if the database cannot be opened or the schema cannot be
// applied, the error is logged and the store runs degraded.
func Open(path string, logger *slog.Logger) *Store {
	s := &Store{
		logger: logger,
		jobs:   make(chan func(db *sql.DB), 256),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}

	db, err := setup(path)
	if err != nil {
		s.logger.Warn("search index unavailable, running degraded", "path", path, "error", err)
		db = nil
	}
	go s.run(db)
	return s
}

func setup(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	// One connection only. The run goroutine serializes access anyway, and a
	// single connection keeps SQLite locking out of the picture.
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// applySchema checks the stored schema version and destructively rebuilds
// the FTS table when it does not match the current one.
func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("index: read user_version: %w", err)
	}
	if version != schemaVersion {
		if _, err := db.Exec("DROP TABLE IF EXISTS items_fts"); err != nil {
			return fmt.Errorf("index: drop stale table: %w", err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("index: set user_version: %w", err)
		}
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("index: create table: %w", err)
	}
	return nil
}

// run owns the database handle. It applies jobs in submission order, and on
// stop drains anything already queued before closing the handle.
func (s *Store) run(db *sql.DB) {
	defer close(s.done)
	defer func() {
		if db != nil {
			db.Close()
		}
	}()
	for {
		select {
		case job := <-s.jobs:
			job(db)
		case <-s.stopCh:
			for {
				select {
				case job := <-s.jobs:
					job(db)
				default:
					return
				}
			}
		}
	}
}

// submit queues a job for the run goroutine. After Close it is a no-op.
func (s *Store) submit(job func(db *sql.DB)) {
	if s.stopped.Load() {
		return
	}
	select {
	case s.jobs <- job:
	case <-s.stopCh:
	}
}

// Flush blocks until every write submitted before it has been applied.
func (s *Store) Flush() {
	if s.stopped.Load() {
		return
	}
	ready := make(chan struct{})
	s.submit(func(db *sql.DB) {
		close(ready)
	})
	select {
	case <-ready:
	case <-s.stopCh:
	}
}

// Close stops the writer goroutine after draining queued jobs. Safe to call
// more than once.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.stopped.Store(true)
	close(s.stopCh)
	<-s.done
	return nil
}
