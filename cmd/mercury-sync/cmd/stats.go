package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/mercury-sync/pkg/config"
	"github.com/shunichi-ikebuchi/mercury-sync/pkg/db"
	"github.com/shunichi-ikebuchi/mercury-sync/pkg/pathutil"
)

var recentRuns int

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display sync statistics",
	Long: `Display statistics about previous sync runs.

Shows:
- Number of runs and failed runs
- Number of imported transactions per ledger account
- Number of transactions that could not be converted
- The most recent runs

Example:
  mercury-sync stats
  mercury-sync stats --runs 20`,
	Run: runStats,
}

func init() {
	statsCmd.Flags().IntVar(&recentRuns, "runs", 5, "number of recent runs to show")
}

func runStats(cmd *cobra.Command, args []string) {
	slog.Info("Loading configuration")

	cfg, err := loadConfig()
	exitOnError(err, "failed to load configuration")

	if err := cfg.Validate([]string{"ledger", "file"}); err != nil {
		exitOnError(err, "invalid configuration")
	}

	err = printStats(cfg, recentRuns, cmd.OutOrStdout())
	exitOnError(err, "failed to get statistics")

	slog.Info("Statistics displayed successfully")
}

func printStats(cfg *config.Config, runs int, out io.Writer) error {
	pathResolver := pathutil.New(pathutil.Config{
		LedgerFile:   cfg.Ledger.File,
		ImportRoot:   cfg.Ledger.Root,
		DatabasePath: cfg.Ledger.DBPath,
	})

	dbPath := pathResolver.GetDatabasePath()
	slog.Debug("Opening database", "path", dbPath)

	conn, err := db.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer conn.Close()

	history := db.NewSyncHistory(conn)

	stats, err := history.GetStats()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\n=== Sync Statistics ===")
	fmt.Fprintf(out, "Total runs:             %d\n", stats.TotalRuns)
	fmt.Fprintf(out, "Failed runs:            %d\n", stats.FailedRuns)
	fmt.Fprintf(out, "Imported transactions:  %d\n", stats.TotalImported)
	fmt.Fprintf(out, "Conversion failures:    %d\n", stats.TotalFailures)

	accounts := make([]string, 0, len(stats.ImportedByAccount))
	for account := range stats.ImportedByAccount {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	for _, account := range accounts {
		fmt.Fprintf(out, "  %-30s %d\n", account, stats.ImportedByAccount[account])
	}

	if stats.LastRun.Valid {
		fmt.Fprintf(out, "Last run:               %s\n", stats.LastRun.String)
	} else {
		fmt.Fprintf(out, "Last run:               (never)\n")
	}

	if runs > 0 {
		recent, err := history.ListRuns(runs)
		if err != nil {
			return err
		}
		if len(recent) > 0 {
			fmt.Fprintln(out, "\n=== Recent Runs ===")
		}
		for _, run := range recent {
			mode := ""
			if run.DryRun {
				mode = " (dry run)"
			}
			fmt.Fprintf(out, "%s  %s  %-9s imported=%d skipped=%d failed=%d%s\n",
				run.StartedAt.Local().Format("2006-01-02 15:04:05"),
				run.ID,
				run.Status,
				run.ImportedCount,
				run.SkippedCount,
				run.FailedCount,
				mode,
			)
		}
	}

	fmt.Fprintln(out)
	return nil
}
