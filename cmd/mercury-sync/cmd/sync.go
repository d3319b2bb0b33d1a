package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/mercury-sync/pkg/config"
	"github.com/shunichi-ikebuchi/mercury-sync/pkg/db"
	"github.com/shunichi-ikebuchi/mercury-sync/pkg/ledger"
	"github.com/shunichi-ikebuchi/mercury-sync/pkg/mercury"
	"github.com/shunichi-ikebuchi/mercury-sync/pkg/pathutil"
	"github.com/shunichi-ikebuchi/mercury-sync/pkg/reconcile"
)

var dryRun bool

// syncCmd represents the sync command.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import new Mercury transactions into the ledger",
	Long: `Import settled Mercury transactions into monthly Beancount files.

This command:
1. Reads the ledger and its account bindings (external_account_id)
2. Fetches settled transactions for every bound Mercury account
3. Skips transactions whose id is already in the ledger (external_id)
4. Appends the rest to {root}/YYYY/YYYY-MM.beancount, balanced against
   the uncategorized account
5. Makes sure the main ledger includes the monthly files
6. Records the run in SQLite

Example:
  mercury-sync sync --dry-run
  mercury-sync sync`,
	Run: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Dry run mode (no file writes)")
}

func runSync(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	exitOnError(err, "failed to load configuration")

	if err := cfg.Validate(
		[]string{"mercury", "apiUrl"},
		[]string{"mercury", "apiKey"},
		[]string{"ledger", "file"},
	); err != nil {
		exitOnError(err, "invalid configuration")
	}

	summary, err := syncLedger(cmd.Context(), cfg, dryRun, cmd.OutOrStdout())
	exitOnError(err, "sync failed")

	if !dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "\n=== Sync Summary ===")
		fmt.Fprintf(cmd.OutOrStdout(), "Run:               %s\n", summary.RunID)
		fmt.Fprintf(cmd.OutOrStdout(), "Accounts touched:  %d\n", len(summary.Touched))
		fmt.Fprintf(cmd.OutOrStdout(), "Imported:          %d\n", summary.Imported)
		fmt.Fprintf(cmd.OutOrStdout(), "Already present:   %d\n", summary.Skipped)
		fmt.Fprintf(cmd.OutOrStdout(), "Failed:            %d\n", summary.Failed)
		for _, file := range summary.FilesWritten {
			fmt.Fprintf(cmd.OutOrStdout(), "Updated:           %s\n", file)
		}
		fmt.Fprintln(cmd.OutOrStdout())
	}
}

// syncSummary describes what a sync run did.
type syncSummary struct {
	RunID        string
	Touched      []string
	Imported     int
	Skipped      int
	Failed       int
	FilesWritten []string
}

// syncLedger runs one import. In dry-run mode the pending entries are
// printed to out instead of being written.
func syncLedger(ctx context.Context, cfg *config.Config, dryRun bool, out io.Writer) (*syncSummary, error) {
	slog.Info("Starting sync", "ledger", cfg.Ledger.File, "dry_run", dryRun)

	pathResolver := pathutil.New(pathutil.Config{
		LedgerFile:   cfg.Ledger.File,
		ImportRoot:   cfg.Ledger.Root,
		DatabasePath: cfg.Ledger.DBPath,
	})

	dbPath := pathResolver.GetDatabasePath()
	slog.Debug("Opening database", "path", dbPath)
	conn, err := db.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer conn.Close()

	history := db.NewSyncHistory(conn)
	run, err := history.StartRun(dryRun)
	if err != nil {
		return nil, err
	}

	summary, err := importTransactions(ctx, cfg, pathResolver, history, run, dryRun, out)
	if finishErr := history.FinishRun(run, err); finishErr != nil {
		slog.Error("Failed to record run", "run_id", run.ID, "error", finishErr)
	}
	if err != nil {
		return nil, err
	}

	if !dryRun {
		if err := history.SetMetadata("last_run_id", run.ID); err != nil {
			slog.Error("Failed to record last run", "run_id", run.ID, "error", err)
		}
	}

	slog.Info("Sync completed",
		"run_id", run.ID,
		"imported", summary.Imported,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"files_written", len(summary.FilesWritten),
	)

	return summary, nil
}

func importTransactions(
	ctx context.Context,
	cfg *config.Config,
	pathResolver *pathutil.PathResolver,
	history *db.SyncHistory,
	run *db.Run,
	dryRun bool,
	out io.Writer,
) (*syncSummary, error) {
	summary := &syncSummary{RunID: run.ID}

	// Load ledger
	slog.Info("Loading ledger", "path", pathResolver.GetLedgerFile())
	current, err := ledger.Load(pathResolver.GetLedgerFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	bindings, err := reconcile.BuildBindings(current.Opens)
	if err != nil {
		return nil, err
	}
	slog.Info("Loaded ledger",
		"transactions", len(current.Transactions),
		"bound_accounts", len(bindings.ByExternalID),
	)
	if len(bindings.ByExternalID) == 0 {
		slog.Warn("No ledger account is bound to Mercury", "metadata_key", reconcile.AccountIDKey)
		return summary, nil
	}

	// Fetch from Mercury
	client := newClient(cfg)
	accountIDs, err := boundRemoteAccounts(ctx, client, bindings, current.Opens)
	if err != nil {
		return nil, err
	}

	slog.Info("Fetching transactions from Mercury", "accounts", len(accountIDs))
	data, err := client.FetchAll(ctx, accountIDs, cfg.Mercury.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	// Reconcile
	result, err := reconcile.Reconcile(current, data, reconcile.Options{
		UncategorizedAccount: cfg.Ledger.UncategorizedAccount,
		Currency:             cfg.Ledger.Currency,
	})
	if err != nil {
		return nil, err
	}

	summary.Touched = result.Touched
	summary.Skipped = result.Skipped
	summary.Failed = len(result.Failures)
	run.AccountsTouched = len(result.Touched)
	run.SkippedCount = result.Skipped
	run.FailedCount = len(result.Failures)

	for _, failure := range result.Failures {
		slog.Warn("Failed to convert transaction",
			"account_id", failure.AccountID,
			"transaction_id", failure.TransactionID,
			"error", failure.Err,
		)
	}
	if len(result.Failures) > 0 {
		failures := make([]db.FailedTransaction, 0, len(result.Failures))
		for _, f := range result.Failures {
			failures = append(failures, db.FailedTransaction{
				AccountID:     f.AccountID,
				TransactionID: f.TransactionID,
				Message:       f.Err.Error(),
			})
		}
		if err := history.RecordFailures(run.ID, failures); err != nil {
			slog.Error("Failed to record conversion failures", "error", err)
		}
	}

	slog.Info("New transactions to import",
		"new", len(result.Pending),
		"skipped", result.Skipped,
		"touched_accounts", len(result.Touched),
	)

	if len(result.Pending) == 0 {
		fmt.Fprintln(out, "No new transactions to import")
		return summary, nil
	}

	// Write monthly files
	repo := ledger.NewFileSystemRepository(pathResolver)
	byMonth, months := groupByMonth(result.Pending)

	// The include must exist before the first write, otherwise a run that
	// fails halfway leaves months the next run cannot see.
	if !dryRun {
		if err := repo.EnsureIncluded(); err != nil {
			return nil, fmt.Errorf("failed to include monthly files in ledger: %w", err)
		}
	}

	for _, month := range months {
		entries := byMonth[month]

		if dryRun {
			filePath, err := pathResolver.GetMonthFilePath(month)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(out, "[DRY RUN] Would append to %s\n", filePath)
			for _, entry := range entries {
				fmt.Fprintln(out, ledger.FormatTransaction(entry))
			}
			continue
		}

		comment := fmt.Sprintf("Imported by run %s at %s", run.ID, time.Now().Format(time.RFC3339))
		filePath, err := repo.AppendTransactions(month, entries, comment)
		if err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", month, err)
		}

		summary.Imported += len(entries)
		summary.FilesWritten = append(summary.FilesWritten, filePath)
		run.ImportedCount = summary.Imported
		slog.Info("Updated file", "path", filePath, "transactions", len(entries))

		if err := history.RecordImported(run.ID, importRecords(entries, bindings, filePath)); err != nil {
			slog.Error("Failed to record imported transactions", "month", month, "error", err)
		}
	}

	return summary, nil
}

// boundRemoteAccounts returns the ids of Mercury accounts that are bound to
// a ledger account, in the order Mercury lists them.
func boundRemoteAccounts(ctx context.Context, client *mercury.Client, bindings *reconcile.Bindings, opens []*ledger.Open) ([]string, error) {
	accounts, err := client.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	remote := make(map[string]bool, len(accounts))
	var ids []string
	for _, account := range accounts {
		remote[account.ID] = true
		if _, ok := bindings.Account(account.ID); ok {
			ids = append(ids, account.ID)
			continue
		}
		slog.Debug("Skipping unbound Mercury account", "account_id", account.ID, "name", account.Name)
	}

	for _, id := range bindings.ExternalIDs(opens) {
		if !remote[id] {
			binding, _ := bindings.Account(id)
			slog.Warn("Bound account not found in Mercury", "account_id", id, "ledger_account", binding.Account)
		}
	}

	return ids, nil
}

func groupByMonth(entries []*ledger.Transaction) (map[string][]*ledger.Transaction, []string) {
	groups := make(map[string][]*ledger.Transaction)
	for _, entry := range entries {
		month := entry.YearMonth()
		groups[month] = append(groups[month], entry)
	}

	months := make([]string, 0, len(groups))
	for month := range groups {
		months = append(months, month)
	}
	sort.Strings(months)

	return groups, months
}

func importRecords(entries []*ledger.Transaction, bindings *reconcile.Bindings, filePath string) []db.ImportedTransaction {
	records := make([]db.ImportedTransaction, 0, len(entries))
	for _, entry := range entries {
		primary := entry.Postings[0]
		records = append(records, db.ImportedTransaction{
			TransactionID: primary.Meta.Get(reconcile.TransactionIDKey),
			AccountID:     bindings.ByAccount[primary.Account].ExternalID,
			LedgerAccount: primary.Account,
			PostedDate:    entry.Date,
			Amount:        primary.Amount.Number.String(),
			Currency:      primary.Amount.Currency,
			LedgerFile:    filePath,
		})
	}
	return records
}
