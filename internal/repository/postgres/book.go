package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"library-ledger/internal/domain"
	"library-ledger/internal/logger"
	"library-ledger/internal/repository"
)

const uniqueViolation = "23505"

type bookRepository struct {
	db *sql.DB
}

func NewBookRepository(db *sql.DB) repository.CatalogRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) GetByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	b := &domain.Book{}
	query := `SELECT isbn, title, COALESCE(author, ''), COALESCE(publisher, ''), COALESCE(year, 0), status FROM books WHERE isbn = $1`
	logger.DatabaseCall("GetByISBN", query, "isbn", isbn)
	err := r.db.QueryRowContext(ctx, query, isbn).Scan(&b.ISBN, &b.Title, &b.Author, &b.Publisher, &b.Year, &b.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrBookNotFound
	}
	if err != nil {
		logger.DatabaseResult("GetByISBN", 0, err)
		return nil, err
	}
	if !b.Status.Valid() {
		return nil, fmt.Errorf("%w: %q for %s", repository.ErrInvalidBookStatus, b.Status, isbn)
	}
	return b, nil
}

func (r *bookRepository) List(ctx context.Context) ([]domain.Book, error) {
	query := `SELECT isbn, title, COALESCE(author, ''), COALESCE(publisher, ''), COALESCE(year, 0), status FROM books ORDER BY title, isbn`
	logger.DatabaseCall("List", query)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.DatabaseResult("List", 0, err)
		return nil, err
	}
	defer rows.Close()

	var books []domain.Book
	for rows.Next() {
		var b domain.Book
		if err := rows.Scan(&b.ISBN, &b.Title, &b.Author, &b.Publisher, &b.Year, &b.Status); err != nil {
			return nil, err
		}
		if !b.Status.Valid() {
			logger.Warn("Skipping book with unknown status", "isbn", b.ISBN, "status", b.Status)
			continue
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.DatabaseResult("List", int64(len(books)), nil)
	return books, nil
}

func (r *bookRepository) Create(ctx context.Context, b *domain.Book) error {
	if b.Status == "" {
		b.Status = domain.BookStatusAvailable
	}
	if !b.Status.Valid() {
		return fmt.Errorf("%w: %q", repository.ErrInvalidBookStatus, b.Status)
	}
	query := `INSERT INTO books (isbn, title, author, publisher, year, status) VALUES ($1, $2, $3, $4, $5, $6)`
	logger.DatabaseCall("Create", query, "isbn", b.ISBN)
	res, err := r.db.ExecContext(ctx, query, b.ISBN, b.Title, b.Author, b.Publisher, b.Year, b.Status)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", repository.ErrBookExists, b.ISBN)
		}
		logger.DatabaseResult("Create", 0, err)
		return err
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("Create", n, nil)
	return nil
}

func (r *bookRepository) Delete(ctx context.Context, isbn string) error {
	query := `DELETE FROM books WHERE isbn = $1`
	return r.execOne(ctx, "Delete", query, isbn)
}

func (r *bookRepository) UpdateStatus(ctx context.Context, isbn string, status domain.BookStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", repository.ErrInvalidBookStatus, status)
	}
	query := `UPDATE books SET status = $1 WHERE isbn = $2`
	return r.execOne(ctx, "UpdateStatus", query, status, isbn)
}

// Flush is a no-op: every change is written when it is made.
func (r *bookRepository) Flush(ctx context.Context) error {
	return nil
}

func (r *bookRepository) execOne(ctx context.Context, operation, query string, args ...any) error {
	logger.DatabaseCall(operation, query, "args", args)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.DatabaseResult(operation, 0, err)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	logger.DatabaseResult(operation, n, nil)
	if n == 0 {
		return repository.ErrBookNotFound
	}
	return nil
}
