package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var supplierCmd = &cobra.Command{
	Use:   "supplier",
	Short: "Manage the supplier list",
}

var supplierAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a supplier unless the name exists",
	Args:  cobra.ExactArgs(1),
	RunE:  runSupplierAdd,
}

var supplierRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a supplier by name",
	Args:    cobra.ExactArgs(1),
	RunE:    runSupplierRemove,
}

var supplierListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print supplier names in order",
	Args:  cobra.NoArgs,
	RunE:  runSupplierList,
}

func init() {
	rootCmd.AddCommand(supplierCmd)
	supplierCmd.AddCommand(supplierAddCmd, supplierRemoveCmd, supplierListCmd)

	supplierAddCmd.Flags().String("contact", "", "Contact details")
}

func runSupplierAdd(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	if name == "" {
		return fmt.Errorf("supplier name is required")
	}
	contact, _ := cmd.Flags().GetString("contact")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		sp, added, err := a.store.AddSupplier(ctx, name, contact)
		if err != nil {
			return fmt.Errorf("failed to add supplier: %w", err)
		}
		if !added {
			fmt.Fprintf(cmd.OutOrStdout(), "Supplier %q already exists (%s)\n", sp.Name, sp.ID)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s\n", sp.ID, sp.Name)
		return nil
	})
}

func runSupplierRemove(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		removed, err := a.store.DeleteSupplierByName(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to remove supplier: %w", err)
		}
		if !removed {
			return fmt.Errorf("no supplier named %q", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		return nil
	})
}

func runSupplierList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		for _, sp := range a.store.Suppliers.Value() {
			fmt.Fprintln(cmd.OutOrStdout(), sp.Name)
		}
		return nil
	})
}
