// Package ledger holds the per-account borrowing state: the append-only loan history,
// the index of loans still out, and the fine balance.
//
// A Ledger is not safe for concurrent use. The lending session owns it for the lifetime
// of the account and serializes every call.
package ledger

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"library-ledger/internal/domain"
)

// FineRatePerDay is charged for every whole day a book comes back late.
const FineRatePerDay = 10

var (
	fineRate = decimal.NewFromInt(FineRatePerDay)

	// ForgivenessThreshold is the smallest balance worth collecting. Anything below is written off.
	ForgivenessThreshold = decimal.NewFromInt(1)
)

var ErrInvalidAmount = errors.New("fine payment amount must not be negative")

// Clock supplies the current time for overdue checks.
type Clock func() time.Time

type Option func(*Ledger)

// WithClock replaces the wall clock used by HasOverdue and the overdue reports.
func WithClock(clock Clock) Option {
	return func(l *Ledger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

type Ledger struct {
	history []domain.LoanRecord
	active  map[string]int // isbn -> index into history
	fine    decimal.Decimal
	clock   Clock
}

// New returns an empty ledger with no loans and a zero fine.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		active: make(map[string]int),
		fine:   decimal.Zero,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Restore rebuilds a ledger from persisted history, the persisted active-loan list and a
// fine balance. Open history records are indexed as active loans. An active entry with no
// open history record gets one appended so the two views agree.
func Restore(history []domain.LoanRecord, active []domain.ActiveLoan, fine decimal.Decimal, opts ...Option) *Ledger {
	l := New(opts...)
	l.history = make([]domain.LoanRecord, 0, len(history))
	for _, rec := range history {
		rec.DueDate = normalize(rec.DueDate)
		if rec.ReturnDate != nil {
			rd := normalize(*rec.ReturnDate)
			rec.ReturnDate = &rd
		}
		l.history = append(l.history, rec)
		if !rec.IsReturned() {
			l.active[rec.ISBN] = len(l.history) - 1
		}
	}
	for _, loan := range active {
		if idx, ok := l.active[loan.ISBN]; ok {
			if l.history[idx].DueDate.IsZero() {
				l.history[idx].DueDate = normalize(loan.DueDate)
			}
			continue
		}
		l.RecordLoan(loan.ISBN, loan.DueDate)
	}
	l.fine = fine
	l.forgive()
	return l
}

// RecordLoan appends an open loan for isbn due at dueDate. The caller guarantees that no
// loan for isbn is currently open.
func (l *Ledger) RecordLoan(isbn string, dueDate time.Time) {
	l.history = append(l.history, domain.LoanRecord{
		ISBN:    isbn,
		DueDate: normalize(dueDate),
	})
	l.active[isbn] = len(l.history) - 1
}

// RecordReturn closes the open loan for isbn and charges FineRatePerDay for each whole day
// past due. It reports false, leaving the ledger untouched, when nothing is out under isbn.
func (l *Ledger) RecordReturn(isbn string, returnDate time.Time) bool {
	idx, ok := l.active[isbn]
	if !ok {
		return false
	}

	returned := normalize(returnDate)
	rec := &l.history[idx]
	rec.ReturnDate = &returned
	delete(l.active, isbn)

	if fine := FineFor(rec.DueDate, returned); fine.IsPositive() {
		l.fine = l.fine.Add(fine)
		l.forgive()
	}
	return true
}

// FineFor is the fine for a book due at dueDate and returned at returnDate. Early returns
// and loans with no recorded due date cost nothing.
func FineFor(dueDate, returnDate time.Time) decimal.Decimal {
	days := domain.DaysOverdue(dueDate, returnDate)
	if days <= 0 {
		return decimal.Zero
	}
	return fineRate.Mul(decimal.NewFromInt(days))
}

// SetClock replaces the time source of a ledger that was built elsewhere, typically one
// loaded from storage into a session that runs on its own clock.
func (l *Ledger) SetClock(clock Clock) {
	if clock != nil {
		l.clock = clock
	}
}

// PayFine reduces the balance by amount, never below zero. A remainder under the
// forgiveness threshold is written off.
func (l *Ledger) PayFine(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	l.fine = l.fine.Sub(amount)
	l.forgive()
	return nil
}

func (l *Ledger) FineBalance() decimal.Decimal {
	return l.fine
}

// ActiveLoans returns the loans still out, earliest due first.
func (l *Ledger) ActiveLoans() []domain.ActiveLoan {
	loans := make([]domain.ActiveLoan, 0, len(l.active))
	for isbn, idx := range l.active {
		loans = append(loans, domain.ActiveLoan{ISBN: isbn, DueDate: l.history[idx].DueDate})
	}
	slices.SortFunc(loans, func(a, b domain.ActiveLoan) int {
		if c := a.DueDate.Compare(b.DueDate); c != 0 {
			return c
		}
		return strings.Compare(a.ISBN, b.ISBN)
	})
	return loans
}

func (l *Ledger) ActiveCount() int {
	return len(l.active)
}

func (l *Ledger) IsActive(isbn string) bool {
	_, ok := l.active[isbn]
	return ok
}

// History returns a copy of every loan in the order it was made.
func (l *Ledger) History() []domain.LoanRecord {
	out := make([]domain.LoanRecord, len(l.history))
	for i, rec := range l.history {
		if rec.ReturnDate != nil {
			rd := *rec.ReturnDate
			rec.ReturnDate = &rd
		}
		out[i] = rec
	}
	return out
}

// HasOverdue reports whether any active loan has been past due for longer than graceDays.
func (l *Ledger) HasOverdue(graceDays int) bool {
	return len(l.OverdueLoans(graceDays)) > 0
}

// OverdueLoans returns the active loans past due for longer than graceDays. Loans with no
// recorded due date are left out.
func (l *Ledger) OverdueLoans(graceDays int) []domain.ActiveLoan {
	now := l.clock()
	grace := time.Duration(graceDays) * 24 * time.Hour

	var overdue []domain.ActiveLoan
	for _, loan := range l.ActiveLoans() {
		if loan.DueDate.IsZero() {
			continue
		}
		if now.Sub(loan.DueDate) > grace {
			overdue = append(overdue, loan)
		}
	}
	return overdue
}

// ProjectedFine is what returning every active loan right now would add to the balance.
func (l *Ledger) ProjectedFine() decimal.Decimal {
	now := l.clock()
	total := decimal.Zero
	for _, idx := range l.active {
		total = total.Add(FineFor(l.history[idx].DueDate, now))
	}
	return total
}

// Now is the ledger's view of the current time.
func (l *Ledger) Now() time.Time {
	return l.clock()
}

func (l *Ledger) forgive() {
	if l.fine.LessThan(ForgivenessThreshold) {
		l.fine = decimal.Zero
	}
}

// normalize drops sub-second precision and the monotonic reading so a ledger compares equal
// to itself after a trip through the text format.
func normalize(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Second)
}
