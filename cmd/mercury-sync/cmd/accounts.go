package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/mercury-sync/pkg/config"
	"github.com/shunichi-ikebuchi/mercury-sync/pkg/ledger"
	"github.com/shunichi-ikebuchi/mercury-sync/pkg/reconcile"
)

// accountsCmd represents the accounts command.
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List Mercury accounts and their ledger bindings",
	Long: `List the Mercury accounts visible to the API key together with the
ledger account each one is bound to.

Bind an account by adding its id to the open directive:

  2024-01-01 open Assets:Mercury:Checking USD
    external_account_id: "<id>"

Example:
  mercury-sync accounts`,
	Run: runAccounts,
}

func runAccounts(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	exitOnError(err, "failed to load configuration")

	if err := cfg.Validate(
		[]string{"mercury", "apiUrl"},
		[]string{"mercury", "apiKey"},
		[]string{"ledger", "file"},
	); err != nil {
		exitOnError(err, "invalid configuration")
	}

	err = listAccounts(cmd.Context(), cfg, cmd.OutOrStdout())
	exitOnError(err, "failed to list accounts")
}

func listAccounts(ctx context.Context, cfg *config.Config, out io.Writer) error {
	current, err := ledger.Load(cfg.Ledger.File)
	if err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}

	bindings, err := reconcile.BuildBindings(current.Opens)
	if err != nil {
		return err
	}

	accounts, err := newClient(cfg).ListAccounts(ctx)
	if err != nil {
		return err
	}
	slog.Debug("Listed Mercury accounts", "count", len(accounts))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tKIND\tSTATUS\tBALANCE\tLEDGER ACCOUNT")
	for _, account := range accounts {
		bound := "(unbound)"
		if binding, ok := bindings.Account(account.ID); ok {
			bound = binding.Account
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			account.ID,
			account.Name,
			account.Kind,
			account.Status,
			ledger.FormatNumber(account.CurrentBalance),
			bound,
		)
	}
	return w.Flush()
}
