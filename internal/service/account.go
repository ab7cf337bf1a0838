package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"library-ledger/internal/domain"
	"library-ledger/internal/ledger"
	"library-ledger/internal/logger"
	"library-ledger/internal/policy"
	"library-ledger/internal/repository"
)

type accountService struct {
	accountRepo repository.AccountRepository
	accounts    []*ledger.Account
	clock       ledger.Clock
	log         *slog.Logger
}

func NewAccountService(accountRepo repository.AccountRepository, opts ...Option) AccountService {
	o := buildOptions(opts)
	return &accountService{
		accountRepo: accountRepo,
		clock:       o.clock,
		log:         logger.WithSession(o.sessionID).With("service", "account"),
	}
}

// Load replaces the registry with the stored accounts. When an id appears twice the first
// line wins. Every loaded ledger is switched to the service clock.
func (s *accountService) Load(ctx context.Context) error {
	loaded, err := s.accountRepo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}

	s.accounts = s.accounts[:0]
	seen := make(map[int]bool, len(loaded))
	for _, a := range loaded {
		if seen[a.ID] {
			s.log.Warn("Ignoring duplicate account", "account_id", a.ID)
			continue
		}
		seen[a.ID] = true
		a.Ledger.SetClock(s.clock)
		s.accounts = append(s.accounts, a)
	}
	s.log.Info("Accounts loaded", "count", len(s.accounts))
	return nil
}

func (s *accountService) Save(ctx context.Context) error {
	if err := s.accountRepo.SaveAll(ctx, s.accounts); err != nil {
		return fmt.Errorf("save accounts: %w", err)
	}
	s.log.Info("Accounts saved", "count", len(s.accounts))
	return nil
}

func (s *accountService) GetAccount(ctx context.Context, id int) (*ledger.Account, error) {
	if i := s.index(id); i >= 0 {
		return s.accounts[i], nil
	}
	return nil, fmt.Errorf("%w: %d", ErrAccountNotFound, id)
}

func (s *accountService) ListAccounts(ctx context.Context) []*ledger.Account {
	return slices.Clone(s.accounts)
}

func (s *accountService) AddAccount(ctx context.Context, id int, name string, role domain.Role) (*ledger.Account, error) {
	if _, err := policy.For(role); err != nil {
		return nil, err
	}
	if s.index(id) >= 0 {
		return nil, fmt.Errorf("%w: %d", ErrAccountExists, id)
	}
	a := ledger.NewAccount(id, name, role, ledger.WithClock(s.clock))
	s.accounts = append(s.accounts, a)
	s.log.Info("Account added", "account_id", id, "role", role)
	return a, nil
}

// RemoveAccount drops the account and its ledger. Books it still holds stay marked borrowed
// in the catalog.
func (s *accountService) RemoveAccount(ctx context.Context, id int) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrAccountNotFound, id)
	}
	if n := s.accounts[i].Ledger.ActiveCount(); n > 0 {
		s.log.Warn("Removing account with books still out", "account_id", id, "active_loans", n)
	}
	s.accounts = slices.Delete(s.accounts, i, i+1)
	s.log.Info("Account removed", "account_id", id)
	return nil
}

func (s *accountService) index(id int) int {
	return slices.IndexFunc(s.accounts, func(a *ledger.Account) bool { return a.ID == id })
}
