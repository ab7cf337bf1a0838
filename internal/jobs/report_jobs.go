package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"library-ledger/internal/domain"
	"library-ledger/internal/ledger"
	"library-ledger/internal/logger"
	"library-ledger/internal/policy"
)

// OverdueEntry is one loan that is past its due date.
type OverdueEntry struct {
	AccountID     int
	Name          string
	Role          domain.Role
	ISBN          string
	DueDate       time.Time
	DaysOverdue   int64
	ProjectedFine decimal.Decimal
	PastGrace     bool
}

// FineEntry is one account carrying a fine. Projected is what its overdue books would add
// if they came back now.
type FineEntry struct {
	AccountID int
	Name      string
	Balance   decimal.Decimal
	Projected decimal.Decimal
}

// OverdueLoans lists every active loan past its due date, most overdue first. PastGrace marks
// the loans that currently block their holder from borrowing.
func (jr *JobRunner) OverdueLoans(ctx context.Context) ([]OverdueEntry, error) {
	accounts, err := jr.loadAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	var entries []OverdueEntry
	for _, a := range accounts {
		pol, err := policy.For(a.Role)
		if err != nil {
			continue
		}
		blocking := make(map[string]bool)
		for _, loan := range a.Ledger.OverdueLoans(pol.GracePeriodDays) {
			blocking[loan.ISBN] = true
		}
		for _, loan := range a.Ledger.OverdueLoans(0) {
			now := a.Ledger.Now()
			entries = append(entries, OverdueEntry{
				AccountID:     a.ID,
				Name:          a.Name,
				Role:          a.Role,
				ISBN:          loan.ISBN,
				DueDate:       loan.DueDate,
				DaysOverdue:   domain.DaysOverdue(loan.DueDate, now),
				ProjectedFine: ledger.FineFor(loan.DueDate, now),
				PastGrace:     blocking[loan.ISBN],
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DueDate.Before(entries[j].DueDate)
	})
	return entries, nil
}

// OutstandingFines lists the accounts with a non-zero balance, largest first, and the total.
func (jr *JobRunner) OutstandingFines(ctx context.Context) ([]FineEntry, decimal.Decimal, error) {
	accounts, err := jr.loadAccounts(ctx)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to load accounts: %w", err)
	}

	var entries []FineEntry
	total := decimal.Zero
	for _, a := range accounts {
		balance := a.Ledger.FineBalance()
		if balance.IsZero() {
			continue
		}
		entries = append(entries, FineEntry{
			AccountID: a.ID,
			Name:      a.Name,
			Balance:   balance,
			Projected: a.Ledger.ProjectedFine(),
		})
		total = total.Add(balance)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Balance.GreaterThan(entries[j].Balance)
	})
	return entries, total, nil
}

// ReportOverdueLoans logs every overdue loan
func (jr *JobRunner) ReportOverdueLoans() {
	jr.runWithRecovery("ReportOverdueLoans", func() {
		entries, err := jr.OverdueLoans(context.Background())
		if err != nil {
			logger.Error("Failed to build overdue report", "error", err)
			return
		}

		blocked := 0
		for _, e := range entries {
			if e.PastGrace {
				blocked++
			}
			logger.Info("Overdue loan",
				"account_id", e.AccountID,
				"name", e.Name,
				"role", e.Role,
				"isbn", e.ISBN,
				"due_date", e.DueDate.Format(domain.DisplayDateLayout),
				"days_overdue", e.DaysOverdue,
				"projected_fine", e.ProjectedFine,
				"past_grace", e.PastGrace)
		}
		logger.Info("Overdue report complete", "overdue_loans", len(entries), "past_grace", blocked)
	})
}

// ReportOutstandingFines logs every unpaid fine and the total owed
func (jr *JobRunner) ReportOutstandingFines() {
	jr.runWithRecovery("ReportOutstandingFines", func() {
		entries, total, err := jr.OutstandingFines(context.Background())
		if err != nil {
			logger.Error("Failed to build fine report", "error", err)
			return
		}

		for _, e := range entries {
			logger.Info("Outstanding fine", "account_id", e.AccountID, "name", e.Name, "balance", e.Balance, "projected", e.Projected)
		}
		logger.Info("Fine report complete", "accounts", len(entries), "total", total)
	})
}
