package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"repairdesk/internal/reconciliation"
)

var customerCmd = &cobra.Command{
	Use:   "customer",
	Short: "Look up customers",
}

var customerFindCmd = &cobra.Command{
	Use:   "find",
	Short: "Find the customer a name and phone resolve to",
	Long: `Find the customer a sale or job sheet with this name and phone would be
linked to. Names match trimmed and case-insensitively; a phone, when given,
must match the customer's mobile exactly.`,
	Example: `  repairdesk customer find --name "asha " --phone 9800000000`,
	RunE:    runCustomerFind,
}

func init() {
	rootCmd.AddCommand(customerCmd)
	customerCmd.AddCommand(customerFindCmd)

	customerFindCmd.Flags().String("name", "", "Customer name")
	customerFindCmd.Flags().String("phone", "", "Customer phone")
	_ = customerFindCmd.MarkFlagRequired("name")
}

func runCustomerFind(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	phone, _ := cmd.Flags().GetString("phone")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		c, ok := reconciliation.Find(a.store.Customers.Value(), reconciliation.Candidate{Name: name, Phone: phone})
		if !ok {
			return fmt.Errorf("no customer matches %q", name)
		}
		return printJSON(cmd, c)
	})
}
