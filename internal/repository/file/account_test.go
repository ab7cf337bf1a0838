package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-ledger/internal/domain"
	"library-ledger/internal/ledger"
)

func TestAccountStore_LoadAll(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing file", func(t *testing.T) {
		store := NewAccountStore(filepath.Join(t.TempDir(), "users.txt"))
		accounts, err := store.LoadAll(ctx)
		assert.NoError(t, err)
		assert.Empty(t, accounts)
	})

	t.Run("Mixed content", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "users.txt")
		content := "Student|Alice|1|1;A,1710000000;1;A|1710000000|Not Returned;0;\n" +
			"\n" +
			"Visitor|Mallory|2|0;0;0;\n" +
			"Faculty|Bob|x|0;0;0;\n" +
			"Faculty|Carol|3|oops;\n" +
			"Librarian|Dave|4\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		accounts, err := NewAccountStore(path).LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, accounts, 3)

		assert.Equal(t, "Alice", accounts[0].Name)
		assert.True(t, accounts[0].Ledger.IsActive("A"))

		assert.Equal(t, 3, accounts[1].ID)
		assert.Empty(t, accounts[1].Ledger.History())

		assert.Equal(t, domain.RoleLibrarian, accounts[2].Role)
	})
}

func TestAccountStore_SaveAll(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.txt")
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := ledger.WithClock(func() time.Time { return now })

	alice := ledger.NewAccount(1, "Alice", domain.RoleStudent, clock)
	alice.Ledger.RecordLoan("A", now.Add(-2*24*time.Hour))
	alice.Ledger.RecordLoan("B", now.Add(24*time.Hour))
	alice.Ledger.RecordReturn("A", now)
	bob := ledger.NewAccount(2, "Bob|Builder", domain.RoleFaculty, clock)

	store := NewAccountStore(path, clock)
	require.NoError(t, store.SaveAll(ctx, []*ledger.Account{alice, bob}))

	loaded, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, "20", loaded[0].Ledger.FineBalance().String())
	assert.Len(t, loaded[0].Ledger.History(), 2)
	assert.True(t, loaded[0].Ledger.IsActive("B"))
	assert.True(t, loaded[0].Ledger.Now().Equal(now))
	assert.Equal(t, "Bob|Builder", loaded[1].Name)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}
