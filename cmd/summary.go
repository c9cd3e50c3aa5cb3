package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"repairdesk/internal/money"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print shop totals",
	Long: `Print totals over all records: sales, profit, purchases, expenses,
invoiced amount, money still to be collected and open job sheets.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().Bool("json", false, "Print as JSON")
}

func runSummary(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		t := money.Summarize(money.Ledger{
			Sales:     a.store.Sales.Value(),
			Purchases: a.store.Purchases.Value(),
			Expenses:  a.store.Expenses.Value(),
			JobSheets: a.store.JobSheets.Value(),
			Invoices:  a.store.Invoices.Value(),
		})
		if asJSON {
			return printJSON(cmd, t)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintf(w, "Sales\t%.2f\t\n", t.Sales)
		fmt.Fprintf(w, "Profit\t%.2f\t\n", t.Profit)
		fmt.Fprintf(w, "Purchases\t%.2f\t\n", t.Purchases)
		fmt.Fprintf(w, "Expenses\t%.2f\t\n", t.Expenses)
		fmt.Fprintf(w, "Net\t%.2f\t\n", t.Net)
		fmt.Fprintf(w, "Invoiced\t%.2f\t\n", t.Invoiced)
		fmt.Fprintf(w, "Receivable\t%.2f\t\n", t.Receivable)
		fmt.Fprintf(w, "Open jobs\t%d\t\n", t.OpenJobs)
		return w.Flush()
	})
}
