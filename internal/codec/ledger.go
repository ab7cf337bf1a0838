// Package codec converts ledgers and account records to and from the flat text format
// kept in the users file.
//
// A ledger is written as
//
//	<activeCount>;[<isbn>,<dueEpoch>;]*<historyCount>;[<isbn>|<dueEpoch>|<returnEpoch>;]*<fine>;
//
// with "Not Returned" in place of the return timestamp of an open loan. Older files carry
// YYYY-MM-DD dates in history entries and sometimes a blank due date; both still load.
package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"library-ledger/internal/domain"
	"library-ledger/internal/ledger"
	"library-ledger/internal/logger"
)

const (
	sectionSep = ';'
	activeSep  = ','
	historySep = '|'

	unknownDueText = "Unknown"
)

var ErrMalformedLedgerRecord = errors.New("malformed ledger record")

// ParseError describes the first value of a ledger record that could not be read.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s %q: %v", ErrMalformedLedgerRecord, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("%s: %s %q", ErrMalformedLedgerRecord, e.Field, e.Value)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedLedgerRecord
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MarshalLedger renders l in the persisted format.
func MarshalLedger(l *ledger.Ledger) string {
	var b strings.Builder

	active := l.ActiveLoans()
	b.WriteString(strconv.Itoa(len(active)))
	b.WriteByte(sectionSep)
	for _, loan := range active {
		b.WriteString(escape(loan.ISBN))
		b.WriteByte(activeSep)
		b.WriteString(formatEpoch(loan.DueDate))
		b.WriteByte(sectionSep)
	}

	history := l.History()
	b.WriteString(strconv.Itoa(len(history)))
	b.WriteByte(sectionSep)
	for _, rec := range history {
		b.WriteString(escape(rec.ISBN))
		b.WriteByte(historySep)
		b.WriteString(formatEpoch(rec.DueDate))
		b.WriteByte(historySep)
		if rec.ReturnDate == nil {
			b.WriteString(domain.NotReturnedText)
		} else {
			b.WriteString(formatEpoch(*rec.ReturnDate))
		}
		b.WriteByte(sectionSep)
	}

	b.WriteString(l.FineBalance().String())
	b.WriteByte(sectionSep)
	return b.String()
}

// UnmarshalLedger parses text written by MarshalLedger or by older writers. Blank text is an
// empty ledger. A count, timestamp or amount that does not parse yields a *ParseError
// matching ErrMalformedLedgerRecord and no ledger.
func UnmarshalLedger(text string, opts ...ledger.Option) (*ledger.Ledger, error) {
	var parts []string
	for _, p := range split(text, sectionSep, 0) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ledger.New(opts...), nil
	}

	idx := 0
	next := func() (string, bool) {
		if idx >= len(parts) {
			return "", false
		}
		idx++
		return parts[idx-1], true
	}

	var active []domain.ActiveLoan
	if p, ok := next(); ok {
		count, err := parseCount("active loan count", p)
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			entry, ok := next()
			if !ok {
				break
			}
			fields := split(entry, activeSep, 2)
			if len(fields) < 2 {
				continue
			}
			loan := domain.ActiveLoan{ISBN: unescape(fields[0])}
			if dueText := strings.TrimSpace(fields[1]); dueText != "" {
				if loan.DueDate, err = parseEpoch("active loan due date", dueText); err != nil {
					return nil, err
				}
			}
			active = append(active, loan)
		}
	}

	var history []domain.LoanRecord
	if p, ok := next(); ok {
		count, err := parseCount("history count", p)
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			entry, ok := next()
			if !ok {
				break
			}
			rec, err := parseHistoryEntry(entry, active)
			if err != nil {
				return nil, err
			}
			history = append(history, rec)
		}
	}

	fine := decimal.Zero
	if p, ok := next(); ok {
		amount, err := decimal.NewFromString(p)
		if err != nil {
			return nil, &ParseError{Field: "fine", Value: p, Err: err}
		}
		fine = amount
	}

	return ledger.Restore(history, active, fine, opts...), nil
}

// LoadLedger is UnmarshalLedger for session start-up: a record that cannot be read is
// logged and replaced by an empty ledger so one bad line never stops the session.
func LoadLedger(text string, opts ...ledger.Option) *ledger.Ledger {
	l, err := UnmarshalLedger(text, opts...)
	if err != nil {
		logger.Warn("Discarding unreadable ledger record", "error", err)
		return ledger.New(opts...)
	}
	return l
}

func parseHistoryEntry(entry string, active []domain.ActiveLoan) (domain.LoanRecord, error) {
	fields := split(entry, historySep, 3)
	for len(fields) < 3 {
		fields = append(fields, "")
	}

	rec := domain.LoanRecord{ISBN: unescape(fields[0])}

	switch dueText := strings.TrimSpace(fields[1]); dueText {
	case "", unknownDueText:
		for _, loan := range active {
			if loan.ISBN == rec.ISBN {
				rec.DueDate = loan.DueDate
				break
			}
		}
	default:
		due, err := parseTimestamp("history due date", dueText)
		if err != nil {
			return rec, err
		}
		rec.DueDate = due
	}

	switch returnText := strings.TrimSpace(fields[2]); returnText {
	case "", domain.NotReturnedText:
	default:
		returned, err := parseTimestamp("history return date", returnText)
		if err != nil {
			return rec, err
		}
		rec.ReturnDate = &returned
	}
	return rec, nil
}

func parseCount(field, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &ParseError{Field: field, Value: s, Err: err}
	}
	if n < 0 {
		return 0, &ParseError{Field: field, Value: s}
	}
	return n, nil
}

func parseEpoch(field, s string) (time.Time, error) {
	secs, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, &ParseError{Field: field, Value: s, Err: err}
	}
	return time.Unix(secs, 0).UTC(), nil
}

// parseTimestamp accepts epoch seconds and, for files from older writers, a local calendar date.
func parseTimestamp(field, s string) (time.Time, error) {
	if t, err := parseEpoch(field, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(domain.DisplayDateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, &ParseError{Field: field, Value: s, Err: err}
	}
	return t, nil
}

func formatEpoch(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.Unix(), 10)
}
