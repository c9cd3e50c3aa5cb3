package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"repairdesk/internal/logger"
	"repairdesk/internal/money"
	"repairdesk/internal/store"
	"repairdesk/pkg/models"
)

// kind adapts one typed collection to the untyped record commands.
type kind struct {
	name   string
	list   func(a *app) interface{}
	get    func(a *app, id string) (interface{}, bool)
	add    func(ctx context.Context, a *app, data []byte, raw bool) (interface{}, error)
	update func(ctx context.Context, a *app, data []byte, raw bool) (bool, error)
	delete func(ctx context.Context, a *app, id string) (bool, error)
}

func newKind[T models.Record[T]](name string, coll func(*store.Store) *store.Collection[T], fill func(*T)) kind {
	decode := func(data []byte, raw bool) (T, error) {
		var item T
		if err := json.Unmarshal(data, &item); err != nil {
			return item, fmt.Errorf("invalid %s record: %w", name, err)
		}
		if fill != nil && !raw {
			fill(&item)
		}
		return item, nil
	}

	return kind{
		name: name,
		list: func(a *app) interface{} { return coll(a.store).Value() },
		get: func(a *app, id string) (interface{}, bool) {
			return coll(a.store).Find(id)
		},
		add: func(ctx context.Context, a *app, data []byte, raw bool) (interface{}, error) {
			item, err := decode(data, raw)
			if err != nil {
				return nil, err
			}
			return coll(a.store).Add(ctx, item)
		},
		update: func(ctx context.Context, a *app, data []byte, raw bool) (bool, error) {
			item, err := decode(data, raw)
			if err != nil {
				return false, err
			}
			if item.GetID() == "" {
				return false, fmt.Errorf("%s record has no id", name)
			}
			return coll(a.store).Update(ctx, item)
		},
		delete: func(ctx context.Context, a *app, id string) (bool, error) {
			return coll(a.store).Delete(ctx, id)
		},
	}
}

var kinds = map[string]kind{
	store.KeyCustomers: newKind(store.KeyCustomers,
		func(s *store.Store) *store.Collection[models.Customer] { return s.Customers }, nil),
	store.KeySuppliers: supplierKind(),
	store.KeyPurchases: newKind(store.KeyPurchases,
		func(s *store.Store) *store.Collection[models.Purchase] { return s.Purchases }, money.FillPurchase),
	store.KeySales: newKind(store.KeySales,
		func(s *store.Store) *store.Collection[models.Sale] { return s.Sales }, money.FillSale),
	store.KeyExpenses: newKind(store.KeyExpenses,
		func(s *store.Store) *store.Collection[models.Expense] { return s.Expenses }, nil),
	store.KeyJobSheets: newKind(store.KeyJobSheets,
		func(s *store.Store) *store.Collection[models.JobSheet] { return s.JobSheets }, money.FillJobSheet),
	store.KeyInvoices: newKind(store.KeyInvoices,
		func(s *store.Store) *store.Collection[models.Invoice] { return s.Invoices }, money.FillInvoice),
}

// supplierKind adds by name so supplier names stay unique.
func supplierKind() kind {
	k := newKind(store.KeySuppliers,
		func(s *store.Store) *store.Collection[models.Supplier] { return s.Suppliers }, nil)
	k.add = func(ctx context.Context, a *app, data []byte, _ bool) (interface{}, error) {
		var sp models.Supplier
		if err := json.Unmarshal(data, &sp); err != nil {
			return nil, fmt.Errorf("invalid suppliers record: %w", err)
		}
		if strings.TrimSpace(sp.Name) == "" {
			return nil, fmt.Errorf("supplier name is required")
		}
		added, _, err := a.store.AddSupplier(ctx, sp.Name, sp.ContactInfo)
		return added, err
	}
	return k
}

var kindAliases = map[string]string{
	"customer":  store.KeyCustomers,
	"supplier":  store.KeySuppliers,
	"purchase":  store.KeyPurchases,
	"sale":      store.KeySales,
	"expense":   store.KeyExpenses,
	"job":       store.KeyJobSheets,
	"jobs":      store.KeyJobSheets,
	"jobsheet":  store.KeyJobSheets,
	"jobsheets": store.KeyJobSheets,
	"invoice":   store.KeyInvoices,
}

func lookupKind(name string) (kind, error) {
	if canonical, ok := kindAliases[strings.ToLower(name)]; ok {
		name = canonical
	}
	if k, ok := kinds[name]; ok {
		return k, nil
	}
	names := make([]string, 0, len(kinds))
	for n := range kinds {
		names = append(names, n)
	}
	sort.Strings(names)
	return kind{}, fmt.Errorf("unknown record kind %q (one of %s)", name, strings.Join(names, ", "))
}

const kindsHelp = `Record kinds: customers, suppliers, purchases, sales, expenses, jobSheets,
invoices. Singular forms are accepted.`

var addCmd = &cobra.Command{
	Use:   "add <kind>",
	Short: "Add a record",
	Long: `Add a record read as JSON from --file or stdin.

A missing id is generated. Derived amounts (sale profit, job sheet pending
amount, invoice totals) are recomputed unless --raw is given. Sales and job
sheets are linked to a customer, which is created when none matches.

` + kindsHelp,
	Example: `  repairdesk add sale --file sale.json
  echo '{"name":"Asha","mobile":"9800000000"}' | repairdesk add customer`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var updateCmd = &cobra.Command{
	Use:   "update <kind>",
	Short: "Replace a record by id",
	Long: `Replace the record whose id matches the JSON read from --file or stdin.
Nothing is written when no record has that id.

` + kindsHelp,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

var getCmd = &cobra.Command{
	Use:   "get <kind> <id>",
	Short: "Print a record",
	Args:  cobra.ExactArgs(2),
	RunE:  runGet,
}

var listCmd = &cobra.Command{
	Use:   "list <kind>",
	Short: "Print all records of a kind",
	Long: `Print all records of a kind as a JSON array. Dated records are listed
newest first.

` + kindsHelp,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

var deleteCmd = &cobra.Command{
	Use:     "delete <kind> <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a record by id",
	Args:    cobra.ExactArgs(2),
	RunE:    runDelete,
}

func init() {
	rootCmd.AddCommand(addCmd, updateCmd, getCmd, listCmd, deleteCmd)

	for _, c := range []*cobra.Command{addCmd, updateCmd} {
		c.Flags().StringP("file", "f", "", "JSON record file (default: stdin)")
		c.Flags().Bool("raw", false, "Store amounts as given without recomputing them")
	}
}

func runAdd(cmd *cobra.Command, args []string) error {
	k, err := lookupKind(args[0])
	if err != nil {
		return err
	}
	raw, _ := cmd.Flags().GetBool("raw")
	data, err := readInput(cmd)
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		added, err := k.add(ctx, a, data, raw)
		if err != nil {
			return fmt.Errorf("failed to add %s record: %w", k.name, err)
		}
		return printJSON(cmd, added)
	})
}

func runUpdate(cmd *cobra.Command, args []string) error {
	k, err := lookupKind(args[0])
	if err != nil {
		return err
	}
	raw, _ := cmd.Flags().GetBool("raw")
	data, err := readInput(cmd)
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		updated, err := k.update(ctx, a, data, raw)
		if err != nil {
			return fmt.Errorf("failed to update %s record: %w", k.name, err)
		}
		if !updated {
			log := logger.WithComponent("records")
			log.Warn().Str("kind", k.name).Msg("No record with that id, nothing updated")
			return fmt.Errorf("%s record not found", k.name)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Updated")
		return nil
	})
}

func runGet(cmd *cobra.Command, args []string) error {
	k, err := lookupKind(args[0])
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		rec, ok := k.get(a, args[1])
		if !ok {
			return fmt.Errorf("%s record %q not found", k.name, args[1])
		}
		return printJSON(cmd, rec)
	})
}

func runList(cmd *cobra.Command, args []string) error {
	k, err := lookupKind(args[0])
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		return printJSON(cmd, k.list(a))
	})
}

func runDelete(cmd *cobra.Command, args []string) error {
	k, err := lookupKind(args[0])
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		deleted, err := k.delete(ctx, a, args[1])
		if err != nil {
			return fmt.Errorf("failed to delete %s record: %w", k.name, err)
		}
		if !deleted {
			return fmt.Errorf("%s record %q not found", k.name, args[1])
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Deleted", args[1])
		return nil
	})
}
