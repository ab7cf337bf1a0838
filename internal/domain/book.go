package domain

type BookStatus string

const (
	BookStatusAvailable BookStatus = "Available"
	BookStatusBorrowed  BookStatus = "Borrowed"
	BookStatusReserved  BookStatus = "Reserved"
)

// Valid reports whether s is one of the statuses a librarian may set.
func (s BookStatus) Valid() bool {
	switch s {
	case BookStatusAvailable, BookStatusBorrowed, BookStatusReserved:
		return true
	}
	return false
}

type Book struct {
	ISBN      string     `json:"isbn"`
	Title     string     `json:"title"`
	Author    string     `json:"author"`
	Publisher string     `json:"publisher"`
	Year      int        `json:"year"`
	Status    BookStatus `json:"status"`
}

// IsLendable is true only for books on the shelf; reserved copies are held back.
func (b *Book) IsLendable() bool {
	return b.Status == BookStatusAvailable
}
