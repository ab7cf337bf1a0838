package repository

import (
	"context"
	"errors"

	"library-ledger/internal/domain"
	"library-ledger/internal/ledger"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrBookExists   = errors.New("book already exists")

	ErrInvalidBookStatus = errors.New("invalid book status")
)

// AccountRepository bulk-loads every account at session start and bulk-saves at the end.
type AccountRepository interface {
	LoadAll(ctx context.Context) ([]*ledger.Account, error)
	SaveAll(ctx context.Context, accounts []*ledger.Account) error
}

type CatalogRepository interface {
	GetByISBN(ctx context.Context, isbn string) (*domain.Book, error)
	List(ctx context.Context) ([]domain.Book, error)
	Create(ctx context.Context, book *domain.Book) error
	Delete(ctx context.Context, isbn string) error
	UpdateStatus(ctx context.Context, isbn string, status domain.BookStatus) error
	// Flush persists pending changes. Stores that write through return nil.
	Flush(ctx context.Context) error
}
