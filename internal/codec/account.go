package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"library-ledger/internal/ledger"
	"library-ledger/internal/policy"
)

const accountSep = '|'

var ErrMalformedAccountRecord = errors.New("malformed account record")

// MarshalAccount renders a users file line: <roleLabel>|<name>|<id>|<ledger>.
func MarshalAccount(a *ledger.Account) string {
	label := a.Role.String()
	if p, err := policy.For(a.Role); err == nil {
		label = p.Label
	}

	var b strings.Builder
	b.WriteString(escape(label))
	b.WriteByte(accountSep)
	b.WriteString(escape(a.Name))
	b.WriteByte(accountSep)
	b.WriteString(strconv.Itoa(a.ID))
	b.WriteByte(accountSep)
	b.WriteString(MarshalLedger(a.Ledger))
	return b.String()
}

// UnmarshalAccount parses one users file line. A line with only three fields is an account
// with an empty ledger. The identity fields must parse; a ledger that does not is logged and
// replaced by an empty one (see LoadLedger).
func UnmarshalAccount(line string, opts ...ledger.Option) (*ledger.Account, error) {
	fields := split(strings.TrimRight(line, "\r\n"), accountSep, 4)
	if len(fields) < 3 {
		return nil, fmt.Errorf("%w: expected at least 3 fields, got %d", ErrMalformedAccountRecord, len(fields))
	}

	role, err := policy.ParseRole(unescape(fields[0]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAccountRecord, err)
	}

	id, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id %q", ErrMalformedAccountRecord, fields[2])
	}

	account := ledger.NewAccount(id, unescape(fields[1]), role, opts...)
	if len(fields) == 4 && fields[3] != "" {
		account.Ledger = LoadLedger(fields[3], opts...)
	}
	return account, nil
}
