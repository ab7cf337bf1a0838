package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"library-ledger/internal/domain"
	"library-ledger/internal/ledger"
	"library-ledger/internal/policy"
)

var (
	errUsage        = errors.New("bad arguments; run ledgerctl -h for usage")
	errNotLibrarian = errors.New("only librarians may change the catalog or remove accounts")
	errBookOnLoan   = errors.New("book is on loan")
)

func (s *session) run(ctx context.Context, args []string, out io.Writer) error {
	cmd, args := args[0], args[1:]
	switch cmd {
	case "show":
		return s.withAccount(ctx, args, 1, func(a *ledger.Account) error { return s.show(ctx, a, out) })
	case "history":
		return s.withAccount(ctx, args, 1, func(a *ledger.Account) error { return history(a, out) })
	case "borrow":
		return s.withAccount(ctx, args, 2, func(a *ledger.Account) error {
			loan, err := s.lending.Borrow(ctx, a.ID, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s lent to %s, due %s\n", loan.ISBN, a.Name, loan.DueDate.Local().Format(domain.DisplayDateLayout))
			return nil
		})
	case "return":
		return s.withAccount(ctx, args, 2, func(a *ledger.Account) error {
			receipt, err := s.lending.Return(ctx, a.ID, args[1])
			if receipt != nil {
				fmt.Fprintf(out, "%s returned by %s, fine charged %s, balance %s\n",
					args[1], a.Name, receipt.FineCharged.StringFixed(2), receipt.FineBalance.StringFixed(2))
			}
			return err
		})
	case "pay":
		return s.withAccount(ctx, args, 2, func(a *ledger.Account) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}
			balance, err := s.lending.PayFine(ctx, a.ID, amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "balance for %s is now %s\n", a.Name, balance.StringFixed(2))
			return nil
		})
	case "add-user":
		if len(args) < 3 {
			return errUsage
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid account id %q", args[0])
		}
		role, err := policy.ParseRole(args[1])
		if err != nil {
			return err
		}
		a, err := s.accounts.AddAccount(ctx, id, strings.Join(args[2:], " "), role)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "added %s (%s) as account %d\n", a.Name, a.Role, a.ID)
		return nil
	case "add-book", "remove-book", "set-status", "remove-user":
		return s.withAccount(ctx, args, 2, func(a *ledger.Account) error {
			if a.Role != domain.RoleLibrarian {
				return fmt.Errorf("%w: %s is a %s", errNotLibrarian, a.Name, a.Role)
			}
			return s.librarian(ctx, cmd, args[1:], out)
		})
	case "accounts":
		return s.listAccounts(ctx, out)
	case "books":
		return s.listBooks(ctx, out)
	}
	return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
}

// librarian runs a catalog or account maintenance command. args excludes the librarian id.
func (s *session) librarian(ctx context.Context, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "add-book":
		if len(args) < 5 {
			return errUsage
		}
		year, err := strconv.Atoi(args[4])
		if err != nil {
			return fmt.Errorf("invalid year %q", args[4])
		}
		book := &domain.Book{ISBN: args[0], Title: args[1], Author: args[2], Publisher: args[3], Year: year}
		if err := s.books.Create(ctx, book); err != nil {
			return err
		}
		fmt.Fprintf(out, "added %s (%s)\n", book.Title, book.ISBN)
	case "remove-book":
		book, err := s.books.GetByISBN(ctx, args[0])
		if err != nil {
			return err
		}
		if book.Status == domain.BookStatusBorrowed {
			return fmt.Errorf("%w: %s", errBookOnLoan, book.ISBN)
		}
		if err := s.books.Delete(ctx, book.ISBN); err != nil {
			return err
		}
		fmt.Fprintf(out, "removed %s (%s)\n", book.Title, book.ISBN)
	case "set-status":
		if len(args) < 2 {
			return errUsage
		}
		status := domain.BookStatus(args[1])
		if err := s.books.UpdateStatus(ctx, args[0], status); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s is now %s\n", args[0], status)
	case "remove-user":
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid account id %q", args[0])
		}
		if err := s.accounts.RemoveAccount(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(out, "removed account %d\n", id)
	}
	return nil
}

func (s *session) withAccount(ctx context.Context, args []string, want int, fn func(*ledger.Account) error) error {
	if len(args) < want {
		return errUsage
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid account id %q", args[0])
	}
	a, err := s.accounts.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	return fn(a)
}

func (s *session) show(ctx context.Context, a *ledger.Account, out io.Writer) error {
	reason, err := s.lending.Eligibility(ctx, a.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s (%s, account %d)\n", a.Name, a.Role, a.ID)
	fmt.Fprintf(out, "fine balance: %s\n", a.Ledger.FineBalance().StringFixed(2))
	if reason == policy.Eligible {
		fmt.Fprintln(out, "may borrow: yes")
	} else {
		fmt.Fprintf(out, "may borrow: no (%s)\n", reason)
	}

	loans := a.Ledger.ActiveLoans()
	if len(loans) == 0 {
		fmt.Fprintln(out, "no books out")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ISBN\tDUE")
	for _, loan := range loans {
		fmt.Fprintf(w, "%s\t%s\n", loan.ISBN, loan.DueDate.Local().Format(domain.DisplayDateLayout))
	}
	return w.Flush()
}

func history(a *ledger.Account, out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ISBN\tDUE\tRETURNED")
	for _, rec := range a.Ledger.History() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", rec.ISBN, rec.DueDateText(), rec.ReturnDateText())
	}
	return w.Flush()
}

func (s *session) listAccounts(ctx context.Context, out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROLE\tOUT\tFINE")
	for _, a := range s.accounts.ListAccounts(ctx) {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", a.ID, a.Name, a.Role, a.Ledger.ActiveCount(), a.Ledger.FineBalance().StringFixed(2))
	}
	return w.Flush()
}

func (s *session) listBooks(ctx context.Context, out io.Writer) error {
	books, err := s.books.List(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ISBN\tTITLE\tAUTHOR\tYEAR\tSTATUS")
	for _, b := range books {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", b.ISBN, b.Title, b.Author, b.Year, b.Status)
	}
	return w.Flush()
}
