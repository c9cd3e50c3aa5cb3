// Package store owns the in-memory state of every entity collection.
//
// A Store is constructed once per process over a kv.Store, loaded, and then
// mutated only through its collections. Each successful mutation persists
// the whole list of that kind, publishes it to subscribers and sends a
// non-blocking signal on the change channel given to WithChangeSignal. The
// backup scheduler consumes that channel; the store does not know about it.
//
// Collections persist independently: there is no atomicity across kinds.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"repairdesk/internal/kv"
	"repairdesk/internal/logger"
	"repairdesk/internal/reconciliation"
	"repairdesk/pkg/models"
)

// Storage keys, one per entity kind.
const (
	KeyCustomers = "customers"
	KeySuppliers = "suppliers"
	KeyPurchases = "purchases"
	KeySales     = "sales"
	KeyExpenses  = "expenses"
	KeyJobSheets = "jobSheets"
	KeyInvoices  = "invoices"
)

// Identifier prefixes.
const (
	PrefixCustomer = "CUST"
	PrefixSupplier = "SUP"
	PrefixPurchase = "PUR"
	PrefixSale     = "SAL"
	PrefixExpense  = "EXP"
	PrefixJobSheet = "DM"
	PrefixInvoice  = "INV"
)

// TimestampLayout is used for createdAt/updatedAt: UTC with milliseconds.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Store groups the collections of every entity kind.
type Store struct {
	Customers *Collection[models.Customer]
	Suppliers *Collection[models.Supplier]
	Purchases *Collection[models.Purchase]
	Sales     *Collection[models.Sale]
	Expenses  *Collection[models.Expense]
	JobSheets *Collection[models.JobSheet]
	Invoices  *Collection[models.Invoice]

	kv      kv.Store
	seq     *sequences
	policy  *reconciliation.Policy
	changes chan<- struct{}
	now     func() time.Time
	log     zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithChangeSignal makes every successful mutation send on ch without
// blocking. A buffered channel of size one coalesces bursts.
func WithChangeSignal(ch chan<- struct{}) Option {
	return func(s *Store) { s.changes = ch }
}

// WithClock overrides time.Now for job sheet timestamps and invoice years.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New builds an empty store over kvStore. Call Load before use.
func New(kvStore kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:  kvStore,
		now: time.Now,
		log: logger.WithComponent("store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.seq = newSequences(kvStore, s.log)

	s.Customers = newCollection[models.Customer](KeyCustomers, kvStore, prefixScheme{PrefixCustomer, s.seq}, s.signal)
	s.Suppliers = newCollection[models.Supplier](KeySuppliers, kvStore, prefixScheme{PrefixSupplier, s.seq}, s.signal)
	s.Purchases = newCollection[models.Purchase](KeyPurchases, kvStore, prefixScheme{PrefixPurchase, s.seq}, s.signal)
	s.Sales = newCollection[models.Sale](KeySales, kvStore, prefixScheme{PrefixSale, s.seq}, s.signal)
	s.Expenses = newCollection[models.Expense](KeyExpenses, kvStore, prefixScheme{PrefixExpense, s.seq}, s.signal)
	s.JobSheets = newCollection[models.JobSheet](KeyJobSheets, kvStore, prefixScheme{PrefixJobSheet, s.seq}, s.signal)
	s.Invoices = newCollection[models.Invoice](KeyInvoices, kvStore, yearScheme{PrefixInvoice, s.seq, s.clock}, s.signal)

	s.Suppliers.insert = insertSorted(func(sp models.Supplier) string { return sp.Name })
	s.Purchases.order = newestFirst[models.Purchase]
	s.Sales.order = newestFirst[models.Sale]
	s.Expenses.order = newestFirst[models.Expense]
	s.JobSheets.order = newestFirst[models.JobSheet]
	s.Invoices.order = newestFirst[models.Invoice]

	s.policy = reconciliation.NewPolicy(s.Customers)
	s.Sales.hooks.BeforeAdd = s.reconcileSale
	s.JobSheets.hooks.BeforeAdd = s.stampNewJobSheet
	s.JobSheets.hooks.BeforeUpdate = s.stampUpdatedJobSheet

	return s
}

func (s *Store) clock() time.Time {
	return s.now()
}

// Load reads every collection from the kv store.
func (s *Store) Load(ctx context.Context) error {
	const op = "Load"

	if err := s.seq.load(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	loaders := []func(context.Context) error{
		s.Suppliers.load,
		s.Customers.load,
		s.Purchases.load,
		s.Sales.load,
		s.Expenses.load,
		s.JobSheets.load,
		s.Invoices.load,
	}
	for _, load := range loaders {
		if err := load(ctx); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	s.log.Info().
		Int("customers", s.Customers.Len()).
		Int("sales", s.Sales.Len()).
		Int("job_sheets", s.JobSheets.Len()).
		Int("invoices", s.Invoices.Len()).
		Msg("Store loaded")
	return nil
}

// AddSupplier adds a supplier by name unless one with that name exists.
func (s *Store) AddSupplier(ctx context.Context, name, contactInfo string) (models.Supplier, bool, error) {
	name = strings.TrimSpace(name)
	return s.Suppliers.AddUnique(ctx, models.Supplier{Name: name, ContactInfo: contactInfo},
		func(existing, item models.Supplier) bool { return existing.Name == item.Name })
}

// DeleteSupplierByName removes the supplier with name.
func (s *Store) DeleteSupplierByName(ctx context.Context, name string) (bool, error) {
	for _, sp := range s.Suppliers.Value() {
		if sp.Name == name {
			return s.Suppliers.Delete(ctx, sp.ID)
		}
	}
	return false, nil
}

// Clear removes every collection and the sequence marks.
func (s *Store) Clear(ctx context.Context) error {
	const op = "Clear"

	clears := []func(context.Context) error{
		s.Purchases.Clear,
		s.Sales.Clear,
		s.Expenses.Clear,
		s.Customers.Clear,
		s.JobSheets.Clear,
		s.Invoices.Clear,
		s.Suppliers.Clear,
	}
	var errs []error
	for _, clear := range clears {
		if err := clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.seq.reset(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Warn().Msg("All collections cleared")
	return nil
}

func (s *Store) signal() {
	if s.changes == nil {
		return
	}
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func (s *Store) reconcileSale(ctx context.Context, sale *models.Sale) (func(context.Context), error) {
	customer, created, err := s.policy.Resolve(ctx, reconciliation.Candidate{
		Name:   sale.Customer,
		Phone:  sale.CustomerMobile,
		Origin: reconciliation.OriginSale,
	})
	if errors.Is(err, reconciliation.ErrNoIdentity) {
		s.log.Debug().Msg("Sale without customer name, reconciliation skipped")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sale.CustomerID = customer.ID
	return s.dropCreated(customer, created), nil
}

func (s *Store) stampNewJobSheet(ctx context.Context, job *models.JobSheet) (func(context.Context), error) {
	ts := s.now().UTC().Format(TimestampLayout)
	job.CreatedAt = ts
	job.UpdatedAt = ts

	customer, created, err := s.policy.Resolve(ctx, reconciliation.Candidate{
		Name:    job.CustomerName,
		Phone:   job.CustomerMobile,
		Address: job.CustomerAddress,
		Origin:  reconciliation.OriginJobSheet,
	})
	if errors.Is(err, reconciliation.ErrNoIdentity) {
		s.log.Debug().Msg("Job sheet without customer name, reconciliation skipped")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	job.CustomerID = customer.ID
	return s.dropCreated(customer, created), nil
}

// dropCreated removes a customer that reconciliation created for a record
// that was then not stored.
func (s *Store) dropCreated(customer models.Customer, created bool) func(context.Context) {
	if !created {
		return nil
	}
	return func(ctx context.Context) {
		if _, err := s.Customers.Delete(ctx, customer.ID); err != nil {
			s.log.Warn().Err(err).Str("customer_id", customer.ID).Msg("Failed to remove customer of rejected record")
			return
		}
		s.log.Debug().Str("customer_id", customer.ID).Msg("Removed customer of rejected record")
	}
}

func (s *Store) stampUpdatedJobSheet(_ context.Context, job *models.JobSheet) error {
	job.UpdatedAt = s.now().UTC().Format(TimestampLayout)
	return nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	TimestampLayout,
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseDate(v string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// newestFirst orders records by date descending. Unparseable dates go last.
func newestFirst[T models.Dated](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		return parseDate(items[i].RecordDate()).After(parseDate(items[j].RecordDate()))
	})
}
