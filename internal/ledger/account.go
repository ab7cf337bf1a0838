package ledger

import "library-ledger/internal/domain"

// Account is a library member. Each account owns exactly one ledger.
type Account struct {
	ID     int
	Name   string
	Role   domain.Role
	Ledger *Ledger
}

func NewAccount(id int, name string, role domain.Role, opts ...Option) *Account {
	return &Account{
		ID:     id,
		Name:   name,
		Role:   role,
		Ledger: New(opts...),
	}
}
