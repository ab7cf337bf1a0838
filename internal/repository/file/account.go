package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"library-ledger/internal/codec"
	"library-ledger/internal/ledger"
	"library-ledger/internal/logger"
	"library-ledger/internal/repository"
)

type accountStore struct {
	path string
	opts []ledger.Option
}

// NewAccountStore stores one account per line of path. opts are applied to every ledger loaded.
func NewAccountStore(path string, opts ...ledger.Option) repository.AccountRepository {
	return &accountStore{path: path, opts: opts}
}

// LoadAll reads every account. A missing file is an empty registry. Lines with an unknown role
// or a bad id are skipped; an account whose ledger cannot be read is kept with an empty ledger.
func (s *accountStore) LoadAll(ctx context.Context) ([]*ledger.Account, error) {
	logger.FileCall("LoadAll", s.path)
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		logger.FileResult("LoadAll", s.path, 0, nil, "missing", true)
		return nil, nil
	}
	if err != nil {
		logger.FileResult("LoadAll", s.path, 0, err)
		return nil, err
	}
	defer f.Close()

	var accounts []*ledger.Account
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		account, err := codec.UnmarshalAccount(line, s.opts...)
		if err != nil {
			logger.Warn("Skipping unreadable account line", "path", s.path, "line", lineNo, "error", err)
			continue
		}
		accounts = append(accounts, account)
	}
	if err := scanner.Err(); err != nil {
		logger.FileResult("LoadAll", s.path, len(accounts), err)
		return nil, err
	}

	logger.FileResult("LoadAll", s.path, len(accounts), nil)
	return accounts, nil
}

func (s *accountStore) SaveAll(ctx context.Context, accounts []*ledger.Account) error {
	logger.FileCall("SaveAll", s.path)
	err := writeAtomic(s.path, func(w io.Writer) error {
		for _, a := range accounts {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w, codec.MarshalAccount(a)); err != nil {
				return err
			}
		}
		return nil
	})
	logger.FileResult("SaveAll", s.path, len(accounts), err)
	return err
}
