package jobs

import (
	"context"

	"library-ledger/internal/config"
	"library-ledger/internal/ledger"
	"library-ledger/internal/logger"
	"library-ledger/internal/repository"
)

// JobRunner coordinates the scheduled reports. Reports read a fresh snapshot of the account
// file and never write it back.
type JobRunner struct {
	accounts repository.AccountRepository
	config   *config.Config
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(accounts repository.AccountRepository, cfg *config.Config) *JobRunner {
	return &JobRunner{
		accounts: accounts,
		config:   cfg,
	}
}

// Config returns the configuration the runner was built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

func (jr *JobRunner) loadAccounts(ctx context.Context) ([]*ledger.Account, error) {
	return jr.accounts.LoadAll(ctx)
}

// RunAllReports runs every report once (for manual execution)
func (jr *JobRunner) RunAllReports() {
	jr.ReportOverdueLoans()
	jr.ReportOutstandingFines()
}
