package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"repairdesk/internal/kv"
	"repairdesk/internal/logger"
	"repairdesk/pkg/models"
)

var (
	// ErrDuplicateID is returned by Add when the supplied identifier is already in use.
	ErrDuplicateID = errors.New("identifier already exists")

	// ErrIDRequired is returned by Add on collections without an identifier scheme.
	ErrIDRequired = errors.New("identifier required")
)

// Hooks run before a mutation takes the collection lock. A hook error aborts
// the mutation. The undo returned by BeforeAdd, when not nil, is called if the
// record is then rejected or fails to persist.
type Hooks[T any] struct {
	BeforeAdd    func(ctx context.Context, item *T) (undo func(context.Context), err error)
	BeforeUpdate func(ctx context.Context, item *T) error
}

// Collection is the authoritative list of one entity kind. Every mutation
// rewrites the whole list under its key, then publishes the new list to
// subscribers and raises the change signal. Persisted and published values
// are always identical once a mutation returns.
type Collection[T models.Record[T]] struct {
	key     string
	kv      kv.Store
	ids     idScheme
	insert  func(items []T, item T) []T
	order   func(items []T)
	hooks   Hooks[T]
	changed func()
	log     zerolog.Logger

	mu     sync.Mutex
	items  []T
	subs   map[int]chan []T
	nextID int
}

func newCollection[T models.Record[T]](key string, store kv.Store, ids idScheme, changed func()) *Collection[T] {
	return &Collection[T]{
		key:     key,
		kv:      store,
		ids:     ids,
		insert:  prepend[T],
		changed: changed,
		log:     logger.WithComponent("store").With().Str("collection", key).Logger(),
		items:   []T{},
		subs:    make(map[int]chan []T),
	}
}

// Key returns the storage key of the collection.
func (c *Collection[T]) Key() string {
	return c.key
}

// Value returns a copy of the current list, newest first.
func (c *Collection[T]) Value() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneAll(c.items)
}

// Len returns the number of records.
func (c *Collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Find returns a copy of the record with id.
func (c *Collection[T]) Find(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(id); i >= 0 {
		return cloneOne(c.items[i]), true
	}
	var zero T
	return zero, false
}

// Subscribe returns a channel that immediately holds the current list and
// afterwards always holds the most recently published one. A slow reader
// skips intermediate lists but never observes an older list after a newer
// one. cancel closes the channel.
func (c *Collection[T]) Subscribe() (updates <-chan []T, cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan []T, 1)
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	ch <- cloneAll(c.items)

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(ch)
		}
	}
}

// Add assigns an identifier when item has none, inserts it and persists the list.
// A duplicate identifier is rejected before any hook runs.
func (c *Collection[T]) Add(ctx context.Context, item T) (T, error) {
	var zero T
	if id := item.GetID(); id != "" {
		c.mu.Lock()
		exists := c.indexOf(id) >= 0
		c.mu.Unlock()
		if exists {
			return zero, fmt.Errorf("%s add %s: %w", c.key, id, ErrDuplicateID)
		}
	}

	var undo func(context.Context)
	if c.hooks.BeforeAdd != nil {
		var err error
		if undo, err = c.hooks.BeforeAdd(ctx, &item); err != nil {
			return zero, fmt.Errorf("%s add: %w", c.key, err)
		}
	}

	c.mu.Lock()
	added, err := c.addLocked(ctx, item)
	c.mu.Unlock()

	if err != nil && undo != nil {
		undo(ctx)
	}
	return added, err
}

// AddUnique adds item unless a record for which same returns true exists, in
// which case that record is returned with added false.
func (c *Collection[T]) AddUnique(ctx context.Context, item T, same func(existing, item T) bool) (result T, added bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.items {
		if same(existing, item) {
			return cloneOne(existing), false, nil
		}
	}
	result, err = c.addLocked(ctx, item)
	return result, err == nil, err
}

func (c *Collection[T]) addLocked(ctx context.Context, item T) (T, error) {
	var zero T

	if item.GetID() == "" {
		if c.ids == nil {
			return zero, fmt.Errorf("%s add: %w", c.key, ErrIDRequired)
		}
		item = item.WithID(c.ids.next(c.idsLocked()))
	} else if c.indexOf(item.GetID()) >= 0 {
		return zero, fmt.Errorf("%s add %s: %w", c.key, item.GetID(), ErrDuplicateID)
	}

	item = cloneOne(item)
	if err := c.commitLocked(ctx, c.insert(c.items, item)); err != nil {
		return zero, err
	}
	if c.ids != nil {
		c.ids.observe(ctx, item.GetID())
	}
	return cloneOne(item), nil
}

// Update replaces the record with the same identifier. A missing record is
// a no-op reported as updated == false.
func (c *Collection[T]) Update(ctx context.Context, item T) (updated bool, err error) {
	if c.hooks.BeforeUpdate != nil {
		if err := c.hooks.BeforeUpdate(ctx, &item); err != nil {
			return false, fmt.Errorf("%s update: %w", c.key, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(item.GetID())
	if i < 0 {
		c.log.Debug().Str("id", item.GetID()).Msg("Update of unknown record ignored")
		return false, nil
	}

	next := make([]T, len(c.items))
	copy(next, c.items)
	next[i] = cloneOne(item)
	if err := c.commitLocked(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the record with id. A missing record is a no-op reported as
// deleted == false.
func (c *Collection[T]) Delete(ctx context.Context, id string) (deleted bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.indexOf(id) < 0 {
		c.log.Debug().Str("id", id).Msg("Delete of unknown record ignored")
		return false, nil
	}

	next := make([]T, 0, len(c.items))
	for _, item := range c.items {
		if item.GetID() != id {
			next = append(next, item)
		}
	}
	if err := c.commitLocked(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// Replace swaps the whole list, as a restore does. The order of items is kept;
// records without an identifier get one.
func (c *Collection[T]) Replace(ctx context.Context, items []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := cloneAll(items)
	if c.ids != nil {
		for i, item := range next {
			if item.GetID() == "" {
				next[i] = item.WithID(c.ids.next(idsOf(next)))
			}
		}
	}
	if err := c.commitLocked(ctx, next); err != nil {
		return err
	}
	if c.ids != nil {
		for _, item := range next {
			c.ids.observe(ctx, item.GetID())
		}
	}
	return nil
}

// Clear deletes the stored key and publishes an empty list.
func (c *Collection[T]) Clear(ctx context.Context) error {
	const op = "Clear"

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.kv.Delete(ctx, c.key); err != nil {
		c.log.Error().Err(err).Msg("Failed to delete collection")
		return fmt.Errorf("%s %s: %w", op, c.key, err)
	}
	c.items = []T{}
	c.publishLocked()
	c.signal()
	return nil
}

// load reads the persisted list and publishes it.
func (c *Collection[T]) load(ctx context.Context) error {
	const op = "load"

	var items []T
	if _, err := kv.GetJSON(ctx, c.kv, c.key, &items); err != nil {
		return fmt.Errorf("%s %s: %w", op, c.key, err)
	}
	if items == nil {
		items = []T{}
	}
	if c.order != nil {
		c.order(items)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = items
	c.publishLocked()

	c.log.Debug().Int("records", len(items)).Msg("Collection loaded")
	return nil
}

// commitLocked persists next and, only when that succeeds, makes it the
// current list. On failure the in-memory list is left untouched.
func (c *Collection[T]) commitLocked(ctx context.Context, next []T) error {
	if err := kv.PutJSON(ctx, c.kv, c.key, next); err != nil {
		c.log.Error().Err(err).Int("records", len(next)).Msg("Failed to persist collection")
		return err
	}
	c.items = next
	c.publishLocked()
	c.signal()
	return nil
}

func (c *Collection[T]) publishLocked() {
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- cloneAll(c.items)
	}
}

func (c *Collection[T]) signal() {
	if c.changed != nil {
		c.changed()
	}
}

func (c *Collection[T]) indexOf(id string) int {
	for i, item := range c.items {
		if item.GetID() == id {
			return i
		}
	}
	return -1
}

func (c *Collection[T]) idsLocked() []string {
	return idsOf(c.items)
}

func idsOf[T models.Record[T]](items []T) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.GetID()
	}
	return out
}

func prepend[T any](items []T, item T) []T {
	next := make([]T, 0, len(items)+1)
	next = append(next, item)
	return append(next, items...)
}

// insertSorted keeps items ordered by key.
func insertSorted[T any](key func(T) string) func(items []T, item T) []T {
	return func(items []T, item T) []T {
		i := sort.Search(len(items), func(i int) bool { return key(items[i]) > key(item) })
		next := make([]T, 0, len(items)+1)
		next = append(next, items[:i]...)
		next = append(next, item)
		return append(next, items[i:]...)
	}
}

func cloneOne[T any](item T) T {
	if c, ok := any(item).(models.Cloner[T]); ok {
		return c.Clone()
	}
	return item
}

func cloneAll[T any](items []T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = cloneOne(item)
	}
	return out
}
