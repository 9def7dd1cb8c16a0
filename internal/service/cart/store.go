package cart

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"glow-storefront/internal/domain"
	"glow-storefront/internal/logging"
	"glow-storefront/internal/repository/kv"
)

// DefaultStorageKey is where the cart blob lives unless overridden.
const DefaultStorageKey = "@glow_cart"

// Catalog resolves product ids to live product records.
type Catalog interface {
	Lookup(id string) (domain.Product, bool)
}

// Store owns the cart entries and the selection. Every operation runs as one
// critical section and leaves selection a subset of the entry ids.
//
// Mutations made before Restore completes are applied in memory but never
// persisted, and Restore replaces them.
type Store struct {
	catalog Catalog
	kv      kv.Store
	key     string
	logger  logrus.FieldLogger
	saver   *saver

	mu             sync.Mutex
	entries        []domain.CartEntry
	selected       map[string]struct{}
	ready          bool
	restoreStarted bool
}

type options struct {
	key          string
	logger       logrus.FieldLogger
	writeTimeout time.Duration
}

type Option func(*options)

func WithStorageKey(key string) Option {
	return func(o *options) {
		if key != "" {
			o.key = key
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.logger = l }
}

// WithWriteTimeout bounds each background write. Zero means no timeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) { o.writeTimeout = d }
}

// New returns an empty, not yet ready store. Call Restore before serving it
// and Close on shutdown.
func New(store kv.Store, catalog Catalog, opts ...Option) *Store {
	o := options{key: DefaultStorageKey}
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.OrDiscard(o.logger).WithField("component", "cart_store")
	return &Store{
		catalog:  catalog,
		kv:       store,
		key:      o.key,
		logger:   logger,
		saver:    newSaver(store, o.key, o.writeTimeout, logger),
		selected: make(map[string]struct{}),
	}
}

// Restore loads the persisted cart and marks the store ready. Failures fall
// back to an empty cart and are only logged. Only the first call does work.
func (s *Store) Restore(ctx context.Context) {
	s.mu.Lock()
	if s.restoreStarted {
		s.mu.Unlock()
		return
	}
	s.restoreStarted = true
	s.mu.Unlock()

	state, raw := s.load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = state.entries
	s.selected = state.selected
	s.ready = true
	s.logger.WithFields(logrus.Fields{
		"entries":  len(state.entries),
		"selected": len(state.selected),
		"missing":  state.missing,
		"invalid":  state.invalid,
	}).Info("cart restored")

	// Rewrite only when pruning changed what is stored.
	if raw != "" && (state.missing > 0 || state.invalid > 0) {
		s.persistLocked()
	}
}

func (s *Store) load(ctx context.Context) (rehydrated, string) {
	empty := rehydrated{selected: make(map[string]struct{})}

	blob, found, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.logger.WithError(err).Warn("read cart failed, starting empty")
		return empty, ""
	}
	if !found || blob == "" {
		return empty, ""
	}
	records, err := decode(blob)
	if err != nil {
		s.logger.WithError(err).Warn("stored cart unreadable, starting empty")
		return empty, ""
	}
	return rehydrate(records, s.catalog), blob
}

func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Flush waits for in-flight writes scheduled so far.
func (s *Store) Flush(ctx context.Context) error {
	return s.saver.flush(ctx)
}

// Close flushes pending writes and stops the background saver. Mutations
// after Close are kept in memory only.
func (s *Store) Close(ctx context.Context) error {
	return s.saver.close(ctx)
}

// mutate runs fn under the lock and schedules a save when fn reports a change.
func (s *Store) mutate(fn func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn() {
		s.persistLocked()
	}
}

func (s *Store) persistLocked() {
	if !s.ready {
		return
	}
	blob, err := encode(s.entries, s.selected)
	if err != nil {
		s.logger.WithError(err).Error("encode cart")
		return
	}
	s.saver.schedule(blob)
}

func (s *Store) indexOf(id string) int {
	for i, e := range s.entries {
		if e.Product.ID == id {
			return i
		}
	}
	return -1
}

// removeLocked drops the entry and its selection in one step.
func (s *Store) removeLocked(id string) bool {
	_, wasSelected := s.selected[id]
	delete(s.selected, id)
	i := s.indexOf(id)
	if i < 0 {
		return wasSelected
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return true
}

// AddToCart merges quantity into an existing entry or appends a new one, and
// selects the product. The stored product is replaced by the one passed in.
func (s *Store) AddToCart(product domain.Product, quantity int) error {
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}
	s.mutate(func() bool {
		if i := s.indexOf(product.ID); i >= 0 {
			s.entries[i] = domain.CartEntry{Product: product, Quantity: s.entries[i].Quantity + quantity}
		} else {
			s.entries = append(s.entries, domain.CartEntry{Product: product, Quantity: quantity})
		}
		s.selected[product.ID] = struct{}{}
		return true
	})
	s.logger.WithFields(logrus.Fields{"productId": product.ID, "quantity": quantity}).Debug("added to cart")
	return nil
}

func (s *Store) RemoveFromCart(productID string) {
	s.mutate(func() bool {
		return s.removeLocked(productID)
	})
}

// IncrementQuantity is a no-op for products not in the cart.
func (s *Store) IncrementQuantity(productID string) {
	s.mutate(func() bool {
		i := s.indexOf(productID)
		if i < 0 {
			return false
		}
		s.entries[i].Quantity++
		return true
	})
}

// DecrementQuantity removes the entry when its quantity is one.
func (s *Store) DecrementQuantity(productID string) {
	s.mutate(func() bool {
		i := s.indexOf(productID)
		if i < 0 {
			return false
		}
		if s.entries[i].Quantity <= 1 {
			return s.removeLocked(productID)
		}
		s.entries[i].Quantity--
		return true
	})
}

// ToggleSelection flips selection of a product in the cart. Ids not in the
// cart are ignored.
func (s *Store) ToggleSelection(productID string) {
	s.mutate(func() bool {
		if s.indexOf(productID) < 0 {
			return false
		}
		if _, ok := s.selected[productID]; ok {
			delete(s.selected, productID)
		} else {
			s.selected[productID] = struct{}{}
		}
		return true
	})
}

func (s *Store) SelectAll() {
	s.mutate(func() bool {
		if len(s.selected) == len(s.entries) {
			return false
		}
		for _, e := range s.entries {
			s.selected[e.Product.ID] = struct{}{}
		}
		return true
	})
}

func (s *Store) DeselectAll() {
	s.mutate(func() bool {
		if len(s.selected) == 0 {
			return false
		}
		s.selected = make(map[string]struct{})
		return true
	})
}

// RemoveSelected drops every selected entry and clears the selection.
func (s *Store) RemoveSelected() {
	s.mutate(func() bool {
		return len(s.takeSelectedLocked()) > 0
	})
}

// TakeSelected is RemoveSelected that also returns the removed entries in
// cart order.
func (s *Store) TakeSelected() []domain.CartEntry {
	var taken []domain.CartEntry
	s.mutate(func() bool {
		taken = s.takeSelectedLocked()
		return len(taken) > 0
	})
	return taken
}

func (s *Store) takeSelectedLocked() []domain.CartEntry {
	if len(s.selected) == 0 {
		return nil
	}
	kept := make([]domain.CartEntry, 0, len(s.entries))
	var taken []domain.CartEntry
	for _, e := range s.entries {
		if _, ok := s.selected[e.Product.ID]; ok {
			taken = append(taken, e)
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	s.selected = make(map[string]struct{})
	return taken
}

func (s *Store) ClearCart() {
	s.mutate(func() bool {
		if len(s.entries) == 0 && len(s.selected) == 0 {
			return false
		}
		s.entries = nil
		s.selected = make(map[string]struct{})
		return true
	})
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	selected := make(map[string]struct{}, len(s.selected))
	for id := range s.selected {
		selected[id] = struct{}{}
	}
	return Snapshot{
		Entries:  s.cloneEntries(),
		Ready:    s.ready,
		selected: selected,
	}
}

func (s *Store) cloneEntries() []domain.CartEntry {
	out := make([]domain.CartEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
