package domain

import "time"

// DisplayDateLayout is the calendar format used when a loan is shown to a reader.
const DisplayDateLayout = "2006-01-02"

// NotReturnedText marks an open loan in history listings and in legacy ledger files.
const NotReturnedText = "Not Returned"

// LoanRecord is one borrowing event. ReturnDate is nil until the book comes back.
type LoanRecord struct {
	ISBN       string     `json:"isbn"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
}

func (r LoanRecord) IsReturned() bool {
	return r.ReturnDate != nil
}

// DueDateText formats the due date for display.
func (r LoanRecord) DueDateText() string {
	if r.DueDate.IsZero() {
		return "Not Available"
	}
	return r.DueDate.Local().Format(DisplayDateLayout)
}

// ReturnDateText formats the return date for display, or NotReturnedText for open loans.
func (r LoanRecord) ReturnDateText() string {
	if r.ReturnDate == nil {
		return NotReturnedText
	}
	return r.ReturnDate.Local().Format(DisplayDateLayout)
}

// ActiveLoan is an outstanding loan as seen by the borrower.
type ActiveLoan struct {
	ISBN    string    `json:"isbn"`
	DueDate time.Time `json:"due_date"`
}

// DaysOverdue returns whole days past due at now, truncated toward zero.
// Negative values mean the loan is not yet due. A loan whose due date was never recorded
// (zero time) is never overdue.
func DaysOverdue(dueDate, at time.Time) int64 {
	if dueDate.IsZero() {
		return 0
	}
	return int64(at.Sub(dueDate) / (24 * time.Hour))
}
