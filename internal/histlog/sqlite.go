package histlog

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Schema creates the history table. Applied through the app migrator and
// reused directly by tests.
const Schema = `
	CREATE TABLE IF NOT EXISTS history_entries (
		id INTEGER PRIMARY KEY,
		directory TEXT NOT NULL,
		path TEXT NOT NULL,
		position INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_dir_pos
		ON history_entries (directory, position);
`

// SQLStore keeps one history log per directory in a shared sqlite
// database. Chronological order is the position column; prepended entries
// take positions below the current minimum so the tail stays intact.
type SQLStore struct {
	DB        *sqlx.DB
	Directory string
	Logger    *slog.Logger
}

// NewSQLStore creates a store for the history log of directory.
func NewSQLStore(db *sqlx.DB, directory string, logger *slog.Logger) *SQLStore {
	return &SQLStore{
		DB:        db,
		Directory: directory,
		Logger:    logger,
	}
}

func (s *SQLStore) Read() ([]string, error) {
	var paths []string
	err := s.DB.Select(&paths,
		"SELECT path FROM history_entries WHERE directory = ? ORDER BY position ASC, id ASC",
		s.Directory,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return paths, nil
}

func (s *SQLStore) Append(entries []string) error {
	if len(entries) == 0 {
		return nil
	}
	return s.inTx(func(tx *sqlx.Tx) error {
		var pos int64
		err := tx.Get(&pos,
			"SELECT COALESCE(MAX(position), 0) FROM history_entries WHERE directory = ?",
			s.Directory,
		)
		if err != nil {
			return fmt.Errorf("failed to get max position: %w", err)
		}
		for _, e := range entries {
			pos++
			if err := s.insert(tx, e, pos); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) Prepend(entries []string) error {
	if len(entries) == 0 {
		return nil
	}
	return s.inTx(func(tx *sqlx.Tx) error {
		var pos int64
		err := tx.Get(&pos,
			"SELECT COALESCE(MIN(position), 0) FROM history_entries WHERE directory = ?",
			s.Directory,
		)
		if err != nil {
			return fmt.Errorf("failed to get min position: %w", err)
		}
		for _, e := range entries {
			pos--
			if err := s.insert(tx, e, pos); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) Rewrite(entries []string) error {
	return s.inTx(func(tx *sqlx.Tx) error {
		_, err := tx.Exec("DELETE FROM history_entries WHERE directory = ?", s.Directory)
		if err != nil {
			return fmt.Errorf("failed to delete history: %w", err)
		}
		for i, e := range entries {
			if err := s.insert(tx, e, int64(i+1)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) Clear() error {
	_, err := s.DB.Exec("DELETE FROM history_entries WHERE directory = ?", s.Directory)
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func (s *SQLStore) insert(tx *sqlx.Tx, path string, position int64) error {
	_, err := tx.Exec(
		"INSERT INTO history_entries (directory, path, position, created_at) VALUES (?, ?, ?, ?)",
		s.Directory, path, position, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

func (s *SQLStore) inTx(fn func(tx *sqlx.Tx) error) error {
	tx, err := s.DB.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
