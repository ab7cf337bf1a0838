package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"library-ledger/internal/catalog"
	"library-ledger/internal/domain"
	"library-ledger/internal/ledger"
	"library-ledger/internal/logger"
	"library-ledger/internal/policy"
)

type lendingService struct {
	accounts AccountService
	catalog  catalog.Bridge
	clock    func() time.Time
	log      *slog.Logger
}

func NewLendingService(accounts AccountService, bridge catalog.Bridge, opts ...Option) LendingService {
	o := buildOptions(opts)
	return &lendingService{
		accounts: accounts,
		catalog:  bridge,
		clock:    o.clock,
		log:      logger.WithSession(o.sessionID).With("service", "lending"),
	}
}

// Borrow checks the catalog first, then the account's eligibility, and only then marks the
// book borrowed and records the loan.
func (s *lendingService) Borrow(ctx context.Context, accountID int, isbn string) (*domain.ActiveLoan, error) {
	logger.EnterMethod("lendingService.Borrow", "account_id", accountID, "isbn", isbn)

	account, pol, err := s.accountPolicy(ctx, accountID)
	if err != nil {
		logger.ExitMethodWithError("lendingService.Borrow", err)
		return nil, err
	}

	available, err := s.catalog.IsAvailable(ctx, isbn)
	if err != nil {
		logger.ExitMethodWithError("lendingService.Borrow", err)
		return nil, err
	}
	if !available {
		err := fmt.Errorf("%w: %s", ErrBookUnavailable, isbn)
		s.log.Info("Loan refused", "account_id", accountID, "isbn", isbn, "reason", ErrBookUnavailable)
		logger.ExitMethodWithError("lendingService.Borrow", err)
		return nil, err
	}

	if account.Ledger.IsActive(isbn) {
		err := fmt.Errorf("%w: %s is already on loan to this account", ErrIneligibleToBorrow, isbn)
		s.log.Info("Loan refused", "account_id", accountID, "isbn", isbn, "reason", "already borrowed")
		logger.ExitMethodWithError("lendingService.Borrow", err)
		return nil, err
	}
	if reason := pol.Evaluate(account.Ledger); reason != policy.Eligible {
		err := fmt.Errorf("%w: %s", ErrIneligibleToBorrow, reason)
		s.log.Info("Loan refused", "account_id", accountID, "isbn", isbn, "reason", reason)
		logger.ExitMethodWithError("lendingService.Borrow", err)
		return nil, err
	}

	due := pol.DueDate(s.clock())
	if err := s.catalog.MarkBorrowed(ctx, isbn); err != nil {
		logger.ExitMethodWithError("lendingService.Borrow", err)
		return nil, err
	}
	account.Ledger.RecordLoan(isbn, due)

	loan := activeLoan(account.Ledger, isbn)
	s.log.Info("Book lent", "account_id", accountID, "isbn", isbn, "due_date", loan.DueDate)
	logger.ExitMethod("lendingService.Borrow")
	return loan, nil
}

// Return closes the loan and puts the book back on the shelf. If the catalog update fails the
// return is still recorded; the receipt comes back together with the error.
func (s *lendingService) Return(ctx context.Context, accountID int, isbn string) (*ReturnReceipt, error) {
	logger.EnterMethod("lendingService.Return", "account_id", accountID, "isbn", isbn)

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		logger.ExitMethodWithError("lendingService.Return", err)
		return nil, err
	}

	before := account.Ledger.FineBalance()
	if !account.Ledger.RecordReturn(isbn, s.clock()) {
		err := fmt.Errorf("%w: %s", ErrNoSuchActiveLoan, isbn)
		s.log.Info("Return refused", "account_id", accountID, "isbn", isbn)
		logger.ExitMethodWithError("lendingService.Return", err)
		return nil, err
	}

	receipt := &ReturnReceipt{
		Record:      lastRecord(account.Ledger, isbn),
		FineBalance: account.Ledger.FineBalance(),
	}
	receipt.FineCharged = decimal.Max(receipt.FineBalance.Sub(before), decimal.Zero)
	s.log.Info("Book returned", "account_id", accountID, "isbn", isbn, "fine_charged", receipt.FineCharged)

	if err := s.catalog.MarkAvailable(ctx, isbn); err != nil {
		s.log.Warn("Catalog out of step with ledger after return", "isbn", isbn, "error", err)
		logger.ExitMethodWithError("lendingService.Return", err)
		return receipt, err
	}
	logger.ExitMethod("lendingService.Return")
	return receipt, nil
}

func (s *lendingService) PayFine(ctx context.Context, accountID int, amount decimal.Decimal) (decimal.Decimal, error) {
	logger.EnterMethod("lendingService.PayFine", "account_id", accountID, "amount", amount)

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		logger.ExitMethodWithError("lendingService.PayFine", err)
		return decimal.Zero, err
	}
	if err := account.Ledger.PayFine(amount); err != nil {
		logger.ExitMethodWithError("lendingService.PayFine", err)
		return account.Ledger.FineBalance(), err
	}
	s.log.Info("Fine paid", "account_id", accountID, "amount", amount, "balance", account.Ledger.FineBalance())
	logger.ExitMethod("lendingService.PayFine")
	return account.Ledger.FineBalance(), nil
}

func (s *lendingService) Eligibility(ctx context.Context, accountID int) (policy.Ineligibility, error) {
	logger.EnterMethod("lendingService.Eligibility", "account_id", accountID)

	account, pol, err := s.accountPolicy(ctx, accountID)
	if err != nil {
		logger.ExitMethodWithError("lendingService.Eligibility", err)
		return policy.Eligible, err
	}
	reason := pol.Evaluate(account.Ledger)
	logger.ExitMethod("lendingService.Eligibility", "reason", reason)
	return reason, nil
}

func (s *lendingService) accountPolicy(ctx context.Context, accountID int) (*ledger.Account, policy.Policy, error) {
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, policy.Policy{}, err
	}
	pol, err := policy.For(account.Role)
	if err != nil {
		return nil, policy.Policy{}, err
	}
	return account, pol, nil
}

func activeLoan(l *ledger.Ledger, isbn string) *domain.ActiveLoan {
	for _, loan := range l.ActiveLoans() {
		if loan.ISBN == isbn {
			return &loan
		}
	}
	return nil
}

// lastRecord finds the most recent history entry for isbn.
func lastRecord(l *ledger.Ledger, isbn string) domain.LoanRecord {
	history := l.History()
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].ISBN == isbn {
			return history[i]
		}
	}
	return domain.LoanRecord{ISBN: isbn}
}
