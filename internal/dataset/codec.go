// Package dataset serializes the whole store into a single JSON document and
// restores a store from one. The document is what the backup scheduler
// uploads and what the export and import commands read and write.
package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"repairdesk/internal/logger"
	"repairdesk/internal/settings"
	"repairdesk/internal/store"
	"repairdesk/pkg/models"
)

// ErrMalformedDocument is returned by Import when the input is not a JSON object.
var ErrMalformedDocument = errors.New("malformed dataset document")

// Document is the exported dataset. AppPin is null when no PIN was ever set.
type Document struct {
	Purchases []models.Purchase `json:"purchases"`
	Sales     []models.Sale     `json:"sales"`
	Expenses  []models.Expense  `json:"expenses"`
	Customers []models.Customer `json:"customers"`
	JobSheets []models.JobSheet `json:"jobSheets"`
	Invoices  []models.Invoice  `json:"invoices"`
	Suppliers []models.Supplier `json:"suppliers"`
	AppPin    *string           `json:"appPin"`
}

// ImportResult lists the sections an import applied and the ones it skipped
// because they failed to decode or persist.
type ImportResult struct {
	Applied []string
	Failed  map[string]error
}

// Err joins the section failures, or returns nil when every section applied.
func (r *ImportResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	keys := make([]string, 0, len(r.Failed))
	for k := range r.Failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	errs := make([]error, 0, len(keys))
	for _, k := range keys {
		errs = append(errs, fmt.Errorf("%s: %w", k, r.Failed[k]))
	}
	return errors.Join(errs...)
}

// Codec exports and imports a store together with its settings.
type Codec struct {
	store    *store.Store
	settings *settings.Settings
	log      zerolog.Logger
}

// NewCodec creates a codec over st and prefs.
func NewCodec(st *store.Store, prefs *settings.Settings) *Codec {
	return &Codec{
		store:    st,
		settings: prefs,
		log:      logger.WithComponent("dataset"),
	}
}

// Snapshot collects the current state of every collection.
func (c *Codec) Snapshot(ctx context.Context) (*Document, error) {
	const op = "Snapshot"

	doc := &Document{
		Purchases: c.store.Purchases.Value(),
		Sales:     c.store.Sales.Value(),
		Expenses:  c.store.Expenses.Value(),
		Customers: c.store.Customers.Value(),
		JobSheets: c.store.JobSheets.Value(),
		Invoices:  c.store.Invoices.Value(),
		Suppliers: c.store.Suppliers.Value(),
	}

	pin, ok, err := c.settings.AppPin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if ok {
		doc.AppPin = &pin
	}
	return doc, nil
}

// Export renders the current state as a JSON document.
func (c *Codec) Export(ctx context.Context) ([]byte, error) {
	const op = "Export"

	doc, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to encode document: %w", op, err)
	}

	c.log.Debug().Int("bytes", len(data)).Msg("Dataset exported")
	return data, nil
}

// Import applies a document produced by Export. A document that is not a
// JSON object is rejected before anything changes. Otherwise every section
// present and not null replaces its collection on its own: sections applied
// before a failing one stay applied.
func (c *Codec) Import(ctx context.Context, data []byte) (*ImportResult, error) {
	const op = "Import"

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil || sections == nil {
		if err == nil {
			err = errors.New("document is null")
		}
		return nil, fmt.Errorf("%s: %w: %v", op, ErrMalformedDocument, err)
	}

	result := &ImportResult{Failed: make(map[string]error)}
	apply := func(key string, fn func(json.RawMessage) error) {
		raw, ok := sections[key]
		if !ok || isNull(raw) {
			return
		}
		if err := fn(raw); err != nil {
			c.log.Error().Err(err).Str("section", key).Msg("Failed to import section")
			result.Failed[key] = err
			return
		}
		result.Applied = append(result.Applied, key)
	}

	apply(store.KeyPurchases, func(raw json.RawMessage) error { return replace(ctx, c.store.Purchases, raw) })
	apply(store.KeySales, func(raw json.RawMessage) error { return replace(ctx, c.store.Sales, raw) })
	apply(store.KeyExpenses, func(raw json.RawMessage) error { return replace(ctx, c.store.Expenses, raw) })
	apply(store.KeyCustomers, func(raw json.RawMessage) error { return replace(ctx, c.store.Customers, raw) })
	apply(store.KeyJobSheets, func(raw json.RawMessage) error { return replace(ctx, c.store.JobSheets, raw) })
	apply(store.KeyInvoices, func(raw json.RawMessage) error { return replace(ctx, c.store.Invoices, raw) })
	apply(store.KeySuppliers, func(raw json.RawMessage) error { return replace(ctx, c.store.Suppliers, raw) })
	apply(settings.KeyAppPin, func(raw json.RawMessage) error {
		var pin string
		if err := json.Unmarshal(raw, &pin); err != nil {
			return err
		}
		if pin == "" {
			return nil
		}
		return c.settings.SetAppPin(ctx, pin)
	})

	c.log.Info().
		Strs("applied", result.Applied).
		Int("failed", len(result.Failed)).
		Msg("Dataset imported")
	return result, nil
}

func replace[T models.Record[T]](ctx context.Context, c *store.Collection[T], raw json.RawMessage) error {
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}
	if items == nil {
		items = []T{}
	}
	return c.Replace(ctx, items)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
