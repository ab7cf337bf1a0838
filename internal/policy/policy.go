// Package policy holds the borrowing rules for each member role.
package policy

import (
	"fmt"
	"time"

	"library-ledger/internal/domain"
	"library-ledger/internal/ledger"
)

// Policy is the immutable rule set for one role.
type Policy struct {
	Role            domain.Role
	MaxLoans        int
	LoanPeriodDays  int
	GracePeriodDays int // 0: any overdue loan blocks borrowing
	Label           string
}

// Librarians manage the collection and never hold personal loans, hence MaxLoans 0.
var policies = map[domain.Role]Policy{
	domain.RoleStudent: {
		Role:            domain.RoleStudent,
		MaxLoans:        3,
		LoanPeriodDays:  15,
		GracePeriodDays: 0,
		Label:           "Student",
	},
	domain.RoleFaculty: {
		Role:            domain.RoleFaculty,
		MaxLoans:        5,
		LoanPeriodDays:  30,
		GracePeriodDays: 60,
		Label:           "Faculty",
	},
	domain.RoleLibrarian: {
		Role:            domain.RoleLibrarian,
		MaxLoans:        0,
		LoanPeriodDays:  0,
		GracePeriodDays: 0,
		Label:           "Librarian",
	},
}

// For returns the policy of role.
func For(role domain.Role) (Policy, error) {
	p, ok := policies[role]
	if !ok {
		return Policy{}, fmt.Errorf("unknown role %q", role)
	}
	return p, nil
}

// ParseRole maps a persisted role label back to its role.
func ParseRole(label string) (domain.Role, error) {
	for role, p := range policies {
		if p.Label == label {
			return role, nil
		}
	}
	return "", fmt.Errorf("unknown role label %q", label)
}

// DueDate is the due date of a loan granted at now.
func (p Policy) DueDate(now time.Time) time.Time {
	return now.Add(time.Duration(p.LoanPeriodDays) * 24 * time.Hour)
}

// Ineligibility names the first rule that blocks a new loan.
type Ineligibility string

const (
	Eligible           Ineligibility = ""
	ReasonNoLoans      Ineligibility = "role may not borrow"
	ReasonUnpaidFine   Ineligibility = "unpaid fine"
	ReasonLoanLimit    Ineligibility = "loan limit reached"
	ReasonOverdueLoans Ineligibility = "overdue loans past grace period"
)

// Evaluate applies the eligibility rules to l and reports the first one that fails.
func (p Policy) Evaluate(l *ledger.Ledger) Ineligibility {
	switch {
	case p.MaxLoans == 0:
		return ReasonNoLoans
	case !l.FineBalance().IsZero():
		return ReasonUnpaidFine
	case l.ActiveCount() >= p.MaxLoans:
		return ReasonLoanLimit
	case l.HasOverdue(p.GracePeriodDays):
		return ReasonOverdueLoans
	}
	return Eligible
}

// CanBorrow is true when the fine is cleared, the loan limit is not reached and no active
// loan is overdue past the grace period.
func (p Policy) CanBorrow(l *ledger.Ledger) bool {
	return p.Evaluate(l) == Eligible
}
