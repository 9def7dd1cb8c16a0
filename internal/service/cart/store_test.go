package cart

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glow-storefront/internal/domain"
	"glow-storefront/internal/repository/kv"
)

type stubCatalog map[string]domain.Product

func (c stubCatalog) Lookup(id string) (domain.Product, bool) {
	p, ok := c[id]
	return p, ok
}

func product(id string, price int64) domain.Product {
	return domain.Product{ID: id, Name: "Product " + id, Price: decimal.NewFromInt(price), Category: "Skincare"}
}

func testCatalog() stubCatalog {
	return stubCatalog{
		"A": product("A", 100),
		"B": product("B", 50),
		"C": product("C", 25),
		"D": product("D", 10),
	}
}

// recordingKV wraps a memory store and counts writes.
type recordingKV struct {
	kv.Store
	mu     sync.Mutex
	sets   int
	getErr error
	setErr error
}

func newRecordingKV() *recordingKV {
	return &recordingKV{Store: kv.NewMemory()}
}

func (r *recordingKV) Get(ctx context.Context, key string) (string, bool, error) {
	if r.getErr != nil {
		return "", false, r.getErr
	}
	return r.Store.Get(ctx, key)
}

func (r *recordingKV) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	r.sets++
	r.mu.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	return r.Store.Set(ctx, key, value)
}

func (r *recordingKV) setCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sets
}

func newReadyStore(t *testing.T, store kv.Store, catalog Catalog) *Store {
	t.Helper()
	s := New(store, catalog)
	s.Restore(context.Background())
	require.True(t, s.Ready())
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func flush(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Flush(ctx))
}

func stored(t *testing.T, store kv.Store) string {
	t.Helper()
	v, found, err := store.Get(context.Background(), DefaultStorageKey)
	require.NoError(t, err)
	require.True(t, found)
	return v
}

func ids(entries []domain.CartEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Product.ID)
	}
	return out
}

func assertInvariants(t *testing.T, snap Snapshot) {
	t.Helper()
	seen := map[string]bool{}
	for _, e := range snap.Entries {
		assert.False(t, seen[e.Product.ID], "duplicate entry %s", e.Product.ID)
		seen[e.Product.ID] = true
		assert.GreaterOrEqual(t, e.Quantity, 1, "quantity floor for %s", e.Product.ID)
	}
	for id := range snap.selected {
		assert.True(t, seen[id], "selected id %s not in cart", id)
	}
}

func TestAddToCart_MergesOnReadd(t *testing.T) {
	cat := testCatalog()
	s := newReadyStore(t, kv.NewMemory(), cat)

	require.NoError(t, s.AddToCart(cat["A"], 2))
	require.NoError(t, s.AddToCart(cat["A"], 3))

	snap := s.Snapshot()
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, 5, snap.Entries[0].Quantity)
	assert.True(t, snap.IsSelected("A"))
}

func TestAddToCart_PreservesFirstAddOrder(t *testing.T) {
	cat := testCatalog()
	s := newReadyStore(t, kv.NewMemory(), cat)

	require.NoError(t, s.AddToCart(cat["B"], 1))
	require.NoError(t, s.AddToCart(cat["A"], 1))
	require.NoError(t, s.AddToCart(cat["B"], 1))

	assert.Equal(t, []string{"B", "A"}, ids(s.Snapshot().Entries))
}

func TestAddToCart_RefreshesProductSnapshot(t *testing.T) {
	cat := testCatalog()
	s := newReadyStore(t, kv.NewMemory(), cat)

	require.NoError(t, s.AddToCart(cat["A"], 1))
	repriced := cat["A"]
	repriced.Price = decimal.NewFromInt(120)
	require.NoError(t, s.AddToCart(repriced, 1))

	snap := s.Snapshot()
	require.Len(t, snap.Entries, 1)
	assert.True(t, snap.Entries[0].Product.Price.Equal(decimal.NewFromInt(120)))
	assert.True(t, snap.Subtotal().Equal(decimal.NewFromInt(240)))
}

func TestAddToCart_RejectsNonPositiveQuantity(t *testing.T) {
	cat := testCatalog()
	rec := newRecordingKV()
	s := newReadyStore(t, rec, cat)

	assert.ErrorIs(t, s.AddToCart(cat["A"], 0), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, s.AddToCart(cat["A"], -2), domain.ErrInvalidQuantity)

	flush(t, s)
	assert.Empty(t, s.Snapshot().Entries)
	assert.Zero(t, rec.setCount())
}

func TestAddToCart_ReselectsDeselectedItem(t *testing.T) {
	cat := testCatalog()
	s := newReadyStore(t, kv.NewMemory(), cat)

	require.NoError(t, s.AddToCart(cat["A"], 1))
	s.ToggleSelection("A")
	assert.False(t, s.Snapshot().IsSelected("A"))

	require.NoError(t, s.AddToCart(cat["A"], 1))
	assert.True(t, s.Snapshot().IsSelected("A"))
}

func TestRemoveFromCart(t *testing.T) {
	cat := testCatalog()
	s := newReadyStore(t, kv.NewMemory(), cat)
	require.NoError(t, s.AddToCart(cat["A"], 1))
	require.NoError(t, s.AddToCart(cat["B"], 1))

	s.RemoveFromCart("A")
	snap := s.Snapshot()
	assert.Equal(t, []string{"B"}, ids(snap.Entries))
	assert.False(t, snap.IsSelected("A"))

	s.RemoveFromCart("missing")
	assert.Equal(t, []string{"B"}, ids(s.Snapshot().Entries))
}

func TestIncrementQuantity(t *testing.T) {
	cat := testCatalog()
	s := newReadyStore(t, kv.NewMemory(), cat)
	require.NoError(t, s.AddToCart(cat["A"], 1))

	s.IncrementQuantity("A")
	s.IncrementQuantity("missing")

	snap := s.Snapshot()
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, 2, snap.Entries[0].Quantity)
}

func TestDecrementQuantity_FloorRemovesEntry(t *testing.T) {
	cat := testCatalog()
	s := newReadyStore(t, kv.NewMemory(), cat)
	require.NoError(t, s.AddToCart(cat["A"], 2))
	require.NoError(t, s.AddToCart(cat["B"], 1))

	s.DecrementQuantity("A")
	snap := s.Snapshot()
	assert.Equal(t, 1, snap.Entries[0].Quantity)

	s.DecrementQuantity("A")
	snap = s.Snapshot()
	assert.Equal(t, []string{"B"}, ids(snap.Entries))
	assert.False(t, snap.IsSelected("A"))

	s.DecrementQuantity("missing")
	assert.Len(t, s.Snapshot().Entries, 1)
}

func TestToggleSelection(t *testing.T) {
	cat := testCatalog()
	s := newReadyStore(t, kv.NewMemory(), cat)
	require.NoError(t, s.AddToCart(cat["A"], 1))

	s.ToggleSelection("A")
	assert.False(t, s.Snapshot().IsSelected("A"))
	s.ToggleSelection("A")
	assert.True(t, s.Snapshot().IsSelected("A"))

	s.ToggleSelection("not-in-cart")
	snap := s.Snapshot()
	assert.False(t, snap.IsSelected("not-in-cart"))
	assertInvariants(t, snap)
}

func TestSelectAllDeselectAll_Idempotent(t *testing.T) {
	cat := testCatalog()
	s := newReadyStore(t, kv.NewMemory(), cat)
	require.NoError(t, s.AddToCart(cat["A"], 1))
	require.NoError(t, s.AddToCart(cat["B"], 1))
	s.DeselectAll()

	s.SelectAll()
	first := s.Snapshot().SelectedIDs()
	s.SelectAll()
	assert.Equal(t, first, s.Snapshot().SelectedIDs())
	assert.Equal(t, []string{"A", "B"}, first)

	s.DeselectAll()
	assert.Empty(t, s.Snapshot().SelectedIDs())
	s.DeselectAll()
	assert.Empty(t, s.Snapshot().SelectedIDs())
}

func TestRemoveSelected_Atomic(t *testing.T) {
	cat := testCatalog()
	s := newReadyStore(t, kv.NewMemory(), cat)
	for _, id := range []string{"A", "B", "C"} {
		require.NoError(t, s.AddToCart(cat[id], 1))
	}
	s.ToggleSelection("B")

	s.RemoveSelected()
	snap := s.Snapshot()
	assert.Equal(t, []string{"B"}, ids(snap.Entries))
	assert.Empty(t, snap.SelectedIDs())
}

func TestTakeSelected(t *testing.T) {
	cat := testCatalog()
	s := newReadyStore(t, kv.NewMemory(), cat)
	require.NoError(t, s.AddToCart(cat["A"], 2))
	require.NoError(t, s.AddToCart(cat["B"], 1))
	require.NoError(t, s.AddToCart(cat["C"], 3))
	s.ToggleSelection("B")

	taken := s.TakeSelected()
	assert.Equal(t, []string{"A", "C"}, ids(taken))
	assert.Equal(t, 5, CountItems(taken))
	assert.True(t, SumLines(taken).Equal(decimal.NewFromInt(275)))
	assert.Equal(t, []string{"B"}, ids(s.Snapshot().Entries))

	assert.Empty(t, s.TakeSelected())
}

func TestClearCart(t *testing.T) {
	cat := testCatalog()
	s := newReadyStore(t, kv.NewMemory(), cat)
	require.NoError(t, s.AddToCart(cat["A"], 1))

	s.ClearCart()
	snap := s.Snapshot()
	assert.Empty(t, snap.Entries)
	assert.Empty(t, snap.SelectedIDs())
	assert.True(t, snap.Ready)
}

func TestSnapshot_Aggregates(t *testing.T) {
	cat := testCatalog()
	s := newReadyStore(t, kv.NewMemory(), cat)
	require.NoError(t, s.AddToCart(cat["A"], 2))
	require.NoError(t, s.AddToCart(cat["B"], 1))
	s.ToggleSelection("B")

	snap := s.Snapshot()
	assert.Equal(t, 3, snap.TotalItems())
	assert.Equal(t, 2, snap.SelectedItems())
	assert.True(t, snap.Subtotal().Equal(decimal.NewFromInt(250)))
	assert.True(t, snap.Total().Equal(decimal.NewFromInt(250)))
	assert.True(t, snap.SelectedSubtotal().Equal(decimal.NewFromInt(200)))
	assert.True(t, snap.SelectedTotal().Equal(decimal.NewFromInt(200)))
	assert.Equal(t, []string{"A"}, ids(snap.SelectedEntries()))
}

func TestSnapshot_IsolatedFromLaterMutations(t *testing.T) {
	cat := testCatalog()
	s := newReadyStore(t, kv.NewMemory(), cat)
	require.NoError(t, s.AddToCart(cat["A"], 1))

	snap := s.Snapshot()
	s.IncrementQuantity("A")
	s.ToggleSelection("A")

	assert.Equal(t, 1, snap.Entries[0].Quantity)
	assert.True(t, snap.IsSelected("A"))
}

func TestInvariants_RandomOperations(t *testing.T) {
	cat := testCatalog()
	s := newReadyStore(t, kv.NewMemory(), cat)
	productIDs := []string{"A", "B", "C", "D", "ghost"}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		id := productIDs[rng.Intn(len(productIDs))]
		switch rng.Intn(10) {
		case 0, 1:
			if p, ok := cat[id]; ok {
				require.NoError(t, s.AddToCart(p, 1+rng.Intn(3)))
			}
		case 2:
			s.RemoveFromCart(id)
		case 3:
			s.IncrementQuantity(id)
		case 4:
			s.DecrementQuantity(id)
		case 5:
			s.ToggleSelection(id)
		case 6:
			s.SelectAll()
		case 7:
			s.DeselectAll()
		case 8:
			s.RemoveSelected()
		case 9:
			if rng.Intn(5) == 0 {
				s.ClearCart()
			}
		}
		assertInvariants(t, s.Snapshot())
	}
}

func TestConcurrentAdds(t *testing.T) {
	cat := testCatalog()
	s := newReadyStore(t, kv.NewMemory(), cat)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := []string{"A", "B"}[i%2]
			_ = s.AddToCart(cat[id], 1)
			s.ToggleSelection(id)
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Len(t, snap.Entries, 2)
	assert.Equal(t, 50, snap.TotalItems())
	assertInvariants(t, snap)
}

func TestPersist_FormatAndOrder(t *testing.T) {
	cat := testCatalog()
	mem := kv.NewMemory()
	s := newReadyStore(t, mem, cat)

	require.NoError(t, s.AddToCart(cat["B"], 2))
	require.NoError(t, s.AddToCart(cat["A"], 1))
	s.ToggleSelection("A")
	flush(t, s)

	assert.JSONEq(t,
		`[{"productId":"B","quantity":2,"selected":true},{"productId":"A","quantity":1,"selected":false}]`,
		stored(t, mem))
}

func TestPersist_FinalWriteReflectsLatestState(t *testing.T) {
	cat := testCatalog()
	mem := kv.NewMemory()
	s := newReadyStore(t, mem, cat)

	for i := 0; i < 200; i++ {
		require.NoError(t, s.AddToCart(cat["A"], 1))
		if i%3 == 0 {
			s.DecrementQuantity("A")
		}
	}
	s.ToggleSelection("A")
	flush(t, s)

	snap := s.Snapshot()
	want, err := encode(snap.Entries, snap.selected)
	require.NoError(t, err)
	assert.Equal(t, want, stored(t, mem))
}

func TestPersist_NoWriteBeforeReady(t *testing.T) {
	cat := testCatalog()
	rec := newRecordingKV()
	s := New(rec, cat)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	require.NoError(t, s.AddToCart(cat["A"], 1))
	s.ClearCart()
	assert.False(t, s.Ready())
	flush(t, s)
	assert.Zero(t, rec.setCount())

	s.Restore(context.Background())
	flush(t, s)
	assert.Zero(t, rec.setCount())

	require.NoError(t, s.AddToCart(cat["A"], 1))
	flush(t, s)
	assert.Equal(t, 1, rec.setCount())
}

func TestPersist_SkipsNoops(t *testing.T) {
	cat := testCatalog()
	rec := newRecordingKV()
	s := newReadyStore(t, rec, cat)

	s.RemoveFromCart("A")
	s.IncrementQuantity("A")
	s.DecrementQuantity("A")
	s.DeselectAll()
	s.ClearCart()
	s.RemoveSelected()
	flush(t, s)
	assert.Zero(t, rec.setCount())
}

func TestPersist_WriteFailureIsAbsorbed(t *testing.T) {
	cat := testCatalog()
	rec := newRecordingKV()
	rec.setErr = errors.New("disk full")
	s := newReadyStore(t, rec, cat)

	require.NoError(t, s.AddToCart(cat["A"], 2))
	s.IncrementQuantity("A")
	flush(t, s)

	assert.GreaterOrEqual(t, rec.setCount(), 1)
	snap := s.Snapshot()
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, 3, snap.Entries[0].Quantity)
}

func TestRestore_RoundTrip(t *testing.T) {
	cat := testCatalog()
	mem := kv.NewMemory()
	first := newReadyStore(t, mem, cat)
	require.NoError(t, first.AddToCart(cat["C"], 3))
	require.NoError(t, first.AddToCart(cat["A"], 1))
	require.NoError(t, first.AddToCart(cat["B"], 2))
	first.ToggleSelection("A")
	flush(t, first)
	want := first.Snapshot()

	second := newReadyStore(t, mem, cat)
	got := second.Snapshot()
	assert.Equal(t, want.Entries, got.Entries)
	assert.Equal(t, want.SelectedIDs(), got.SelectedIDs())
}

func TestRestore_UsesLiveCatalogData(t *testing.T) {
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(context.Background(), DefaultStorageKey, `[{"productId":"A","quantity":2,"selected":true}]`))

	cat := testCatalog()
	repriced := cat["A"]
	repriced.Price = decimal.NewFromInt(80)
	cat["A"] = repriced

	s := newReadyStore(t, mem, cat)
	snap := s.Snapshot()
	require.Len(t, snap.Entries, 1)
	assert.True(t, snap.Subtotal().Equal(decimal.NewFromInt(160)))
}

func TestRestore_PrunesCatalogMisses(t *testing.T) {
	mem := kv.NewMemory()
	blob := `[{"productId":"A","quantity":1,"selected":true},{"productId":"gone","quantity":4,"selected":true},{"productId":"B","quantity":2,"selected":false}]`
	require.NoError(t, mem.Set(context.Background(), DefaultStorageKey, blob))

	s := newReadyStore(t, mem, testCatalog())
	snap := s.Snapshot()
	assert.Equal(t, []string{"A", "B"}, ids(snap.Entries))
	assert.Equal(t, []string{"A"}, snap.SelectedIDs())
	assert.False(t, snap.IsSelected("gone"))

	flush(t, s)
	assert.JSONEq(t,
		`[{"productId":"A","quantity":1,"selected":true},{"productId":"B","quantity":2,"selected":false}]`,
		stored(t, mem))
}

func TestRestore_DropsInvalidRecords(t *testing.T) {
	mem := kv.NewMemory()
	blob := `[{"productId":"A","quantity":0,"selected":true},{"productId":"B","quantity":1,"selected":true},{"productId":"B","quantity":7,"selected":false},{"productId":"C","quantity":-3,"selected":false}]`
	require.NoError(t, mem.Set(context.Background(), DefaultStorageKey, blob))

	s := newReadyStore(t, mem, testCatalog())
	snap := s.Snapshot()
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, "B", snap.Entries[0].Product.ID)
	assert.Equal(t, 1, snap.Entries[0].Quantity)
	assert.True(t, snap.IsSelected("B"))
	assertInvariants(t, snap)
}

func TestRestore_CleanBlobIsNotRewritten(t *testing.T) {
	rec := newRecordingKV()
	require.NoError(t, rec.Store.Set(context.Background(), DefaultStorageKey, `[{"productId":"A","quantity":1,"selected":true}]`))

	s := newReadyStore(t, rec, testCatalog())
	flush(t, s)
	assert.Zero(t, rec.setCount())
	assert.Len(t, s.Snapshot().Entries, 1)
}

func TestRestore_FallsBackToEmpty(t *testing.T) {
	cases := map[string]func(*recordingKV){
		"read error": func(r *recordingKV) { r.getErr = errors.New("storage unavailable") },
		"malformed": func(r *recordingKV) {
			_ = r.Store.Set(context.Background(), DefaultStorageKey, `{not json`)
		},
		"wrong shape": func(r *recordingKV) {
			_ = r.Store.Set(context.Background(), DefaultStorageKey, `{"productId":"A"}`)
		},
		"wrong types": func(r *recordingKV) {
			_ = r.Store.Set(context.Background(), DefaultStorageKey, `[{"productId":"A","quantity":"2","selected":true}]`)
		},
		"absent": func(*recordingKV) {},
		"null":   func(r *recordingKV) { _ = r.Store.Set(context.Background(), DefaultStorageKey, `null`) },
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			rec := newRecordingKV()
			setup(rec)
			s := newReadyStore(t, rec, testCatalog())
			snap := s.Snapshot()
			assert.True(t, snap.Ready)
			assert.Empty(t, snap.Entries)
			assert.Empty(t, snap.SelectedIDs())
		})
	}
}

func TestRestore_ReplacesPreReadyState(t *testing.T) {
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(context.Background(), DefaultStorageKey, `[{"productId":"B","quantity":1,"selected":false}]`))
	cat := testCatalog()
	s := New(mem, cat)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	require.NoError(t, s.AddToCart(cat["A"], 1))
	s.Restore(context.Background())

	snap := s.Snapshot()
	assert.Equal(t, []string{"B"}, ids(snap.Entries))
	assert.Empty(t, snap.SelectedIDs())
}

func TestRestore_RunsOnce(t *testing.T) {
	mem := kv.NewMemory()
	cat := testCatalog()
	s := newReadyStore(t, mem, cat)
	require.NoError(t, s.AddToCart(cat["A"], 1))
	flush(t, s)

	require.NoError(t, mem.Set(context.Background(), DefaultStorageKey, `[]`))
	s.Restore(context.Background())
	assert.Len(t, s.Snapshot().Entries, 1)
}

func TestCustomStorageKey(t *testing.T) {
	mem := kv.NewMemory()
	cat := testCatalog()
	s := New(mem, cat, WithStorageKey("@other_cart"), WithWriteTimeout(time.Second))
	s.Restore(context.Background())
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	require.NoError(t, s.AddToCart(cat["A"], 1))
	flush(t, s)

	_, found, err := mem.Get(context.Background(), DefaultStorageKey)
	require.NoError(t, err)
	assert.False(t, found)
	v, found, err := mem.Get(context.Background(), "@other_cart")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Contains(t, v, `"productId":"A"`)
}

func TestClose_FlushesAndStopsWrites(t *testing.T) {
	cat := testCatalog()
	rec := newRecordingKV()
	s := New(rec, cat)
	s.Restore(context.Background())

	require.NoError(t, s.AddToCart(cat["A"], 1))
	require.NoError(t, s.Close(context.Background()))
	assert.Contains(t, stored(t, rec.Store), `"productId":"A"`)
	count := rec.setCount()

	require.NoError(t, s.AddToCart(cat["B"], 1))
	flush(t, s)
	assert.Equal(t, count, rec.setCount())
	assert.Len(t, s.Snapshot().Entries, 2)
	require.NoError(t, s.Close(context.Background()))
}
