package postgres

import (
	"context"
	"database/sql"

	"library-ledger/internal/logger"
	"library-ledger/internal/repository"
)

const schema = `CREATE TABLE IF NOT EXISTS books (
	isbn      TEXT PRIMARY KEY,
	title     TEXT NOT NULL,
	author    TEXT,
	publisher TEXT,
	year      INTEGER,
	status    TEXT NOT NULL DEFAULT 'Available'
)`

type Store struct {
	db *sql.DB
	repository.CatalogRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                db,
		CatalogRepository: NewBookRepository(db),
	}
}

// Open connects to the catalog database and makes sure the books table exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s := NewStore(db)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	logger.DatabaseCall("EnsureSchema", schema)
	_, err := s.db.ExecContext(ctx, schema)
	logger.DatabaseResult("EnsureSchema", 0, err)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
