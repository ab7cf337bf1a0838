package service_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-ledger/internal/domain"
	"library-ledger/internal/ledger"
	"library-ledger/internal/logger"
	"library-ledger/internal/policy"
	"library-ledger/internal/service"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(days int) {
	c.now = c.now.Add(time.Duration(days) * 24 * time.Hour)
}

type lendingFixture struct {
	clock    *fakeClock
	accounts service.AccountService
	bridge   *MockBridge
	svc      service.LendingService
}

func newLendingFixture(t *testing.T) *lendingFixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	accounts := service.NewAccountService(new(MockAccountRepo), service.WithClock(clock.Now))
	bridge := new(MockBridge)

	for id, role := range map[int]domain.Role{1: domain.RoleStudent, 2: domain.RoleFaculty, 3: domain.RoleLibrarian} {
		_, err := accounts.AddAccount(context.Background(), id, role.String(), role)
		require.NoError(t, err)
	}

	return &lendingFixture{
		clock:    clock,
		accounts: accounts,
		bridge:   bridge,
		svc:      service.NewLendingService(accounts, bridge, service.WithClock(clock.Now), service.WithSessionID("test")),
	}
}

func (f *lendingFixture) ledger(t *testing.T, id int) *ledger.Ledger {
	t.Helper()
	a, err := f.accounts.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return a.Ledger
}

func TestLendingService_Borrow(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newLendingFixture(t)
		f.bridge.On("IsAvailable", ctx, "A").Return(true, nil)
		f.bridge.On("MarkBorrowed", ctx, "A").Return(nil)

		loan, err := f.svc.Borrow(ctx, 1, "A")
		require.NoError(t, err)
		assert.Equal(t, "A", loan.ISBN)
		assert.Equal(t, f.clock.now.Add(15*24*time.Hour), loan.DueDate)
		assert.True(t, f.ledger(t, 1).IsActive("A"))
		f.bridge.AssertExpectations(t)
	})

	t.Run("Faculty loan period", func(t *testing.T) {
		f := newLendingFixture(t)
		f.bridge.On("IsAvailable", ctx, "A").Return(true, nil)
		f.bridge.On("MarkBorrowed", ctx, "A").Return(nil)

		loan, err := f.svc.Borrow(ctx, 2, "A")
		require.NoError(t, err)
		assert.Equal(t, f.clock.now.Add(30*24*time.Hour), loan.DueDate)
	})

	t.Run("Book unavailable", func(t *testing.T) {
		f := newLendingFixture(t)
		f.bridge.On("IsAvailable", ctx, "A").Return(false, nil)

		_, err := f.svc.Borrow(ctx, 1, "A")
		assert.ErrorIs(t, err, service.ErrBookUnavailable)
		f.bridge.AssertNotCalled(t, "MarkBorrowed", ctx, "A")
		assert.Equal(t, 0, f.ledger(t, 1).ActiveCount())
	})

	t.Run("Librarian may not borrow", func(t *testing.T) {
		f := newLendingFixture(t)
		f.bridge.On("IsAvailable", ctx, "A").Return(true, nil)

		_, err := f.svc.Borrow(ctx, 3, "A")
		assert.ErrorIs(t, err, service.ErrIneligibleToBorrow)
		assert.Contains(t, err.Error(), string(policy.ReasonNoLoans))
		f.bridge.AssertNotCalled(t, "MarkBorrowed", ctx, "A")
	})

	t.Run("Student limit", func(t *testing.T) {
		f := newLendingFixture(t)
		for _, isbn := range []string{"A", "B", "C", "D"} {
			f.bridge.On("IsAvailable", ctx, isbn).Return(true, nil)
			f.bridge.On("MarkBorrowed", ctx, isbn).Return(nil)
		}
		for _, isbn := range []string{"A", "B", "C"} {
			_, err := f.svc.Borrow(ctx, 1, isbn)
			require.NoError(t, err)
		}

		_, err := f.svc.Borrow(ctx, 1, "D")
		assert.ErrorIs(t, err, service.ErrIneligibleToBorrow)
		assert.Contains(t, err.Error(), string(policy.ReasonLoanLimit))
		assert.Equal(t, 3, f.ledger(t, 1).ActiveCount())
	})

	t.Run("Already holding the book", func(t *testing.T) {
		f := newLendingFixture(t)
		f.ledger(t, 1).RecordLoan("A", f.clock.now.Add(24*time.Hour))
		f.bridge.On("IsAvailable", ctx, "A").Return(true, nil)

		_, err := f.svc.Borrow(ctx, 1, "A")
		assert.ErrorIs(t, err, service.ErrIneligibleToBorrow)
		assert.Len(t, f.ledger(t, 1).History(), 1)
	})

	t.Run("Unknown account", func(t *testing.T) {
		f := newLendingFixture(t)

		_, err := f.svc.Borrow(ctx, 99, "A")
		assert.ErrorIs(t, err, service.ErrAccountNotFound)
		f.bridge.AssertNotCalled(t, "IsAvailable", ctx, "A")
	})

	t.Run("Catalog failure leaves ledger untouched", func(t *testing.T) {
		f := newLendingFixture(t)
		f.bridge.On("IsAvailable", ctx, "A").Return(true, nil)
		f.bridge.On("MarkBorrowed", ctx, "A").Return(errors.New("catalog offline"))

		_, err := f.svc.Borrow(ctx, 1, "A")
		assert.Error(t, err)
		assert.Equal(t, 0, f.ledger(t, 1).ActiveCount())
	})
}

func TestLendingService_Return(t *testing.T) {
	ctx := context.Background()

	t.Run("Late return charges a fine and blocks borrowing", func(t *testing.T) {
		f := newLendingFixture(t)
		f.bridge.On("IsAvailable", ctx, "A").Return(true, nil)
		f.bridge.On("IsAvailable", ctx, "B").Return(true, nil)
		f.bridge.On("MarkBorrowed", ctx, "A").Return(nil)
		f.bridge.On("MarkAvailable", ctx, "A").Return(nil)

		_, err := f.svc.Borrow(ctx, 1, "A")
		require.NoError(t, err)

		f.clock.advance(20)
		receipt, err := f.svc.Return(ctx, 1, "A")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(50).Equal(receipt.FineCharged))
		assert.True(t, decimal.NewFromInt(50).Equal(receipt.FineBalance))
		require.NotNil(t, receipt.Record.ReturnDate)
		assert.Equal(t, f.clock.now, *receipt.Record.ReturnDate)

		_, err = f.svc.Borrow(ctx, 1, "B")
		assert.ErrorIs(t, err, service.ErrIneligibleToBorrow)
		assert.Contains(t, err.Error(), string(policy.ReasonUnpaidFine))
	})

	t.Run("On time return", func(t *testing.T) {
		f := newLendingFixture(t)
		f.bridge.On("IsAvailable", ctx, "A").Return(true, nil)
		f.bridge.On("MarkBorrowed", ctx, "A").Return(nil)
		f.bridge.On("MarkAvailable", ctx, "A").Return(nil)

		_, err := f.svc.Borrow(ctx, 2, "A")
		require.NoError(t, err)
		f.clock.advance(10)

		receipt, err := f.svc.Return(ctx, 2, "A")
		require.NoError(t, err)
		assert.True(t, receipt.FineCharged.IsZero())
		assert.True(t, f.ledger(t, 2).FineBalance().IsZero())
	})

	t.Run("Nothing on loan", func(t *testing.T) {
		f := newLendingFixture(t)

		_, err := f.svc.Return(ctx, 1, "A")
		assert.ErrorIs(t, err, service.ErrNoSuchActiveLoan)
		f.bridge.AssertNotCalled(t, "MarkAvailable", ctx, "A")
	})

	t.Run("Catalog failure still records the return", func(t *testing.T) {
		f := newLendingFixture(t)
		f.ledger(t, 1).RecordLoan("A", f.clock.now.Add(24*time.Hour))
		f.bridge.On("MarkAvailable", ctx, "A").Return(errors.New("catalog offline"))

		receipt, err := f.svc.Return(ctx, 1, "A")
		assert.Error(t, err)
		require.NotNil(t, receipt)
		assert.False(t, f.ledger(t, 1).IsActive("A"))
	})
}

func TestLendingService_PayFine(t *testing.T) {
	ctx := context.Background()
	f := newLendingFixture(t)
	l := f.ledger(t, 1)
	l.RecordLoan("A", f.clock.now.Add(-5*24*time.Hour))
	require.True(t, l.RecordReturn("A", f.clock.now))

	balance, err := f.svc.PayFine(ctx, 1, decimal.NewFromInt(20))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(30).Equal(balance))

	balance, err = f.svc.PayFine(ctx, 1, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	assert.True(t, decimal.NewFromInt(30).Equal(balance))

	balance, err = f.svc.PayFine(ctx, 1, decimal.RequireFromString("29.5"))
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	_, err = f.svc.PayFine(ctx, 42, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, service.ErrAccountNotFound)
}

func TestLendingService_Eligibility(t *testing.T) {
	ctx := context.Background()
	f := newLendingFixture(t)

	reason, err := f.svc.Eligibility(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, policy.Eligible, reason)

	f.ledger(t, 1).RecordLoan("A", f.clock.now.Add(-2*24*time.Hour))
	reason, err = f.svc.Eligibility(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, policy.ReasonOverdueLoans, reason)

	// Faculty keeps borrowing through the grace period.
	f.ledger(t, 2).RecordLoan("A", f.clock.now.Add(-30*24*time.Hour))
	reason, err = f.svc.Eligibility(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, policy.Eligible, reason)

	reason, err = f.svc.Eligibility(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, policy.ReasonNoLoans, reason)
}

func TestLendingService_LoadedLedgersFollowSessionClock(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}

	stored := ledger.NewAccount(1, "Ada", domain.RoleStudent)
	stored.Ledger.RecordLoan("A", time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC))

	repo := new(MockAccountRepo)
	repo.On("LoadAll", ctx).Return([]*ledger.Account{stored}, nil)
	accounts := service.NewAccountService(repo, service.WithClock(clock.Now))
	require.NoError(t, accounts.Load(ctx))
	svc := service.NewLendingService(accounts, new(MockBridge), service.WithClock(clock.Now))

	reason, err := svc.Eligibility(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, policy.Eligible, reason)

	clock.advance(11)
	reason, err = svc.Eligibility(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, policy.ReasonOverdueLoans, reason)
}

func TestLendingService_RefusalsCloseMethodTrace(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger.InitializeWriter(&buf, "debug", "text")
	defer logger.Initialize("info", "text")

	f := newLendingFixture(t)
	f.bridge.On("IsAvailable", ctx, "A").Return(false, nil)

	_, err := f.svc.Borrow(ctx, 1, "A")
	require.ErrorIs(t, err, service.ErrBookUnavailable)
	_, err = f.svc.Return(ctx, 1, "A")
	require.ErrorIs(t, err, service.ErrNoSuchActiveLoan)
	_, err = f.svc.PayFine(ctx, 1, decimal.NewFromInt(-5))
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)

	for _, method := range []string{"lendingService.Borrow", "lendingService.Return", "lendingService.PayFine"} {
		assert.Equal(t, 1, strings.Count(buf.String(), "method="+method+" event=enter"), method)
		assert.Equal(t, 1, strings.Count(buf.String(), "method="+method+" event=exit"), method)
	}
}
