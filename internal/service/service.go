package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"library-ledger/internal/domain"
	"library-ledger/internal/ledger"
	"library-ledger/internal/policy"
)

var (
	ErrBookUnavailable    = errors.New("book is not available")
	ErrIneligibleToBorrow = errors.New("not eligible to borrow")
	ErrNoSuchActiveLoan   = errors.New("book is not on loan to this account")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
)

// AccountService is the session's registry of accounts. It is loaded in bulk when the session
// starts and saved in bulk when it ends; changes in between live only in memory.
type AccountService interface {
	Load(ctx context.Context) error
	Save(ctx context.Context) error
	GetAccount(ctx context.Context, id int) (*ledger.Account, error)
	ListAccounts(ctx context.Context) []*ledger.Account
	AddAccount(ctx context.Context, id int, name string, role domain.Role) (*ledger.Account, error)
	RemoveAccount(ctx context.Context, id int) error
}

// LendingService runs the loan, return and fine payment protocols against the account registry
// and the catalog. Neither service is safe for concurrent use: one session, one caller.
type LendingService interface {
	Borrow(ctx context.Context, accountID int, isbn string) (*domain.ActiveLoan, error)
	Return(ctx context.Context, accountID int, isbn string) (*ReturnReceipt, error)
	PayFine(ctx context.Context, accountID int, amount decimal.Decimal) (decimal.Decimal, error)
	Eligibility(ctx context.Context, accountID int) (policy.Ineligibility, error)
}

// ReturnReceipt is the closed loan and what it added to the fine balance.
type ReturnReceipt struct {
	Record      domain.LoanRecord
	FineCharged decimal.Decimal
	FineBalance decimal.Decimal
}

type Option func(*options)

type options struct {
	clock     func() time.Time
	sessionID string
}

// WithClock sets the time source for due dates and returns.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithSessionID tags the service's log lines with id.
func WithSessionID(id string) Option {
	return func(o *options) { o.sessionID = id }
}

func buildOptions(opts []Option) options {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
