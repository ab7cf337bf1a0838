package file

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"library-ledger/internal/domain"
	"library-ledger/internal/logger"
	"library-ledger/internal/repository"
)

// CatalogStore keeps the catalog in memory and writes it back to a CSV file on Flush.
// Rows are ISBN,title,author,publisher,year,status.
type CatalogStore struct {
	path  string
	books []domain.Book
	dirty bool
}

var _ repository.CatalogRepository = (*CatalogStore)(nil)

// OpenCatalog loads path. A missing file is an empty catalog.
func OpenCatalog(path string) (*CatalogStore, error) {
	s := &CatalogStore{path: path}

	logger.FileCall("OpenCatalog", path)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.FileResult("OpenCatalog", path, 0, nil, "missing", true)
		return s, nil
	}
	if err != nil {
		logger.FileResult("OpenCatalog", path, 0, err)
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	for line := 1; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.FileResult("OpenCatalog", path, len(s.books), err)
			return nil, err
		}
		book, err := parseBookRow(row)
		if err != nil {
			logger.Warn("Skipping unreadable catalog row", "path", path, "line", line, "error", err)
			continue
		}
		s.books = append(s.books, book)
	}

	logger.FileResult("OpenCatalog", path, len(s.books), nil)
	return s, nil
}

func parseBookRow(row []string) (domain.Book, error) {
	if len(row) < 5 {
		return domain.Book{}, fmt.Errorf("expected at least 5 fields, got %d", len(row))
	}
	year, err := strconv.Atoi(strings.TrimSpace(row[4]))
	if err != nil {
		return domain.Book{}, fmt.Errorf("invalid year %q", row[4])
	}
	book := domain.Book{
		ISBN:      strings.TrimSpace(row[0]),
		Title:     row[1],
		Author:    row[2],
		Publisher: row[3],
		Year:      year,
		Status:    domain.BookStatusAvailable,
	}
	if book.ISBN == "" {
		return domain.Book{}, errors.New("empty isbn")
	}
	if len(row) > 5 {
		status := domain.BookStatus(strings.TrimSpace(row[5]))
		if !status.Valid() {
			return domain.Book{}, fmt.Errorf("invalid status %q", row[5])
		}
		book.Status = status
	}
	return book, nil
}

func (s *CatalogStore) find(isbn string) int {
	return slices.IndexFunc(s.books, func(b domain.Book) bool { return b.ISBN == isbn })
}

func (s *CatalogStore) GetByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	i := s.find(isbn)
	if i < 0 {
		return nil, repository.ErrBookNotFound
	}
	b := s.books[i]
	return &b, nil
}

func (s *CatalogStore) List(ctx context.Context) ([]domain.Book, error) {
	return slices.Clone(s.books), nil
}

func (s *CatalogStore) Create(ctx context.Context, b *domain.Book) error {
	if s.find(b.ISBN) >= 0 {
		return fmt.Errorf("%w: %s", repository.ErrBookExists, b.ISBN)
	}
	if b.Status == "" {
		b.Status = domain.BookStatusAvailable
	}
	if !b.Status.Valid() {
		return fmt.Errorf("%w: %q", repository.ErrInvalidBookStatus, b.Status)
	}
	s.books = append(s.books, *b)
	s.dirty = true
	return nil
}

func (s *CatalogStore) Delete(ctx context.Context, isbn string) error {
	i := s.find(isbn)
	if i < 0 {
		return repository.ErrBookNotFound
	}
	s.books = slices.Delete(s.books, i, i+1)
	s.dirty = true
	return nil
}

func (s *CatalogStore) UpdateStatus(ctx context.Context, isbn string, status domain.BookStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", repository.ErrInvalidBookStatus, status)
	}
	i := s.find(isbn)
	if i < 0 {
		return repository.ErrBookNotFound
	}
	s.books[i].Status = status
	s.dirty = true
	return nil
}

// Flush writes the catalog back to disk if anything changed since it was loaded.
func (s *CatalogStore) Flush(ctx context.Context) error {
	if !s.dirty {
		return nil
	}
	logger.FileCall("Flush", s.path)
	err := writeAtomic(s.path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		for _, b := range s.books {
			row := []string{b.ISBN, b.Title, b.Author, b.Publisher, strconv.Itoa(b.Year), string(b.Status)}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	logger.FileResult("Flush", s.path, len(s.books), err)
	if err == nil {
		s.dirty = false
	}
	return err
}
