package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"library-ledger/internal/catalog"
	"library-ledger/internal/config"
	"library-ledger/internal/logger"
	"library-ledger/internal/repository"
	"library-ledger/internal/repository/file"
	"library-ledger/internal/repository/postgres"
	"library-ledger/internal/service"
)

const usage = `usage: ledgerctl [-config path] <command> [args]

commands:
  show <account-id>                 fine balance, active loans and eligibility
  history <account-id>              every loan the account has taken
  borrow <account-id> <isbn>        lend a book
  return <account-id> <isbn>        take a book back
  pay <account-id> <amount>         pay toward the fine
  add-user <account-id> <role> <name>
  accounts                          list accounts
  books                             list the catalog

librarian commands (the first argument is the librarian's account id):
  add-book <librarian-id> <isbn> <title> <author> <publisher> <year>
  remove-book <librarian-id> <isbn>
  set-status <librarian-id> <isbn> <Available|Borrowed|Reserved>
  remove-user <librarian-id> <account-id>
`

func main() {
	configPath := flag.String("config", "", "Path to configuration file (defaults apply when empty)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	sess, err := openSession(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open session", "error", err)
		log.Fatalf("Failed to open session: %v", err)
	}

	runErr := sess.run(ctx, flag.Args(), os.Stdout)
	if err := sess.close(ctx); err != nil {
		logger.Error("Failed to save session", "error", err)
		log.Fatalf("Failed to save session: %v", err)
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}

// session is one bulk load, one command and one bulk save.
type session struct {
	id       string
	accounts service.AccountService
	lending  service.LendingService
	books    repository.CatalogRepository
	closeDB  func() error
}

func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	sess := &session{id: uuid.NewString(), closeDB: func() error { return nil }}

	switch cfg.Catalog.Backend {
	case config.CatalogBackendPostgres:
		logger.Info("Connecting to catalog database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
		store, err := postgres.Open(ctx, cfg.GetDatabaseConnectionString())
		if err != nil {
			return nil, err
		}
		sess.books = store
		sess.closeDB = store.Close
	default:
		store, err := file.OpenCatalog(cfg.Data.BooksFile)
		if err != nil {
			return nil, err
		}
		sess.books = store
	}

	sess.accounts = service.NewAccountService(file.NewAccountStore(cfg.Data.UsersFile), service.WithSessionID(sess.id))
	if err := sess.accounts.Load(ctx); err != nil {
		sess.closeDB()
		return nil, err
	}
	sess.lending = service.NewLendingService(sess.accounts, catalog.New(sess.books), service.WithSessionID(sess.id))

	logger.Info("Session opened", "session_id", sess.id, "catalog_backend", cfg.Catalog.Backend)
	return sess, nil
}

// close saves accounts and the catalog even when the command failed; a refused loan leaves
// nothing to undo.
func (s *session) close(ctx context.Context) error {
	defer s.closeDB()

	if err := s.accounts.Save(ctx); err != nil {
		return err
	}
	if err := s.books.Flush(ctx); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	logger.Info("Session closed", "session_id", s.id)
	return nil
}
