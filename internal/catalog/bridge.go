// Package catalog adapts the book catalog to the three questions a lending session asks of it.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"library-ledger/internal/domain"
	"library-ledger/internal/repository"
)

// Bridge is the lending session's view of the catalog. Catalog and ledger updates are not
// transactional; callers follow the loan and return protocols and accept best-effort consistency.
type Bridge interface {
	IsAvailable(ctx context.Context, isbn string) (bool, error)
	MarkBorrowed(ctx context.Context, isbn string) error
	MarkAvailable(ctx context.Context, isbn string) error
}

type bridge struct {
	books repository.CatalogRepository
}

func New(books repository.CatalogRepository) Bridge {
	return &bridge{books: books}
}

// IsAvailable is false for unknown ISBNs and for books that are borrowed or reserved.
func (b *bridge) IsAvailable(ctx context.Context, isbn string) (bool, error) {
	book, err := b.books.GetByISBN(ctx, isbn)
	if errors.Is(err, repository.ErrBookNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up book %s: %w", isbn, err)
	}
	return book.IsLendable(), nil
}

func (b *bridge) MarkBorrowed(ctx context.Context, isbn string) error {
	return b.setStatus(ctx, isbn, domain.BookStatusBorrowed)
}

func (b *bridge) MarkAvailable(ctx context.Context, isbn string) error {
	return b.setStatus(ctx, isbn, domain.BookStatusAvailable)
}

func (b *bridge) setStatus(ctx context.Context, isbn string, status domain.BookStatus) error {
	if err := b.books.UpdateStatus(ctx, isbn, status); err != nil {
		return fmt.Errorf("mark book %s %s: %w", isbn, status, err)
	}
	return nil
}
