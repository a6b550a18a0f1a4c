package service

import (
	"math"
	"sync"
	"testing"

	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPersister struct {
	mu        sync.Mutex
	snapshots []model.Snapshot
}

func (p *recordingPersister) Persist(snapshot model.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, snapshot)
}

func (p *recordingPersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snapshots)
}

func (p *recordingPersister) last() model.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshots[len(p.snapshots)-1]
}

func setupCartStoreTest(t *testing.T) (CartStore, *recordingPersister) {
	persister := &recordingPersister{}
	return NewCartStore(persister), persister
}

var (
	ring     = model.Product{ID: "p1", Name: "Ring", Price: 10}
	necklace = model.Product{ID: "p2", Name: "Necklace", Price: 2.5, Vendor: "v1"}
)

func assertInvariants(t *testing.T, state model.CartState) {
	t.Helper()
	count, total := 0, 0.0
	seen := map[string]bool{}
	for _, item := range state.Items {
		assert.GreaterOrEqual(t, item.Quantity, 1)
		assert.False(t, seen[item.Product.ID], "duplicate product %s", item.Product.ID)
		seen[item.Product.ID] = true
		assert.InDelta(t, item.UnitPrice*float64(item.Quantity), item.TotalPrice, 1e-9)
		count += item.Quantity
		total += item.UnitPrice * float64(item.Quantity)
	}
	assert.Equal(t, count, state.ItemCount)
	assert.InDelta(t, total, state.Total, 1e-9)
}

func TestCartStore_StartsEmpty(t *testing.T) {
	store, persister := setupCartStoreTest(t)

	state := store.GetState()
	assert.NotNil(t, state.Items)
	assert.Empty(t, state.Items)
	assert.Zero(t, state.ItemCount)
	assert.Zero(t, state.Total)
	assert.Zero(t, persister.count())
}

func TestCartStore_AddItem(t *testing.T) {
	store, persister := setupCartStoreTest(t)

	state := store.AddItem(ring, 2)
	require.Len(t, state.Items, 1)
	assert.Equal(t, "p1", state.Items[0].Product.ID)
	assert.Equal(t, 2, state.Items[0].Quantity)
	assert.Equal(t, 10.0, state.Items[0].UnitPrice)
	assert.Equal(t, 20.0, state.Items[0].TotalPrice)
	assert.Equal(t, 2, state.ItemCount)
	assert.Equal(t, 20.0, state.Total)

	require.Equal(t, 1, persister.count())
	assert.Equal(t, state.Snapshot(), persister.last())
}

func TestCartStore_AddItemMergesAndKeepsUnitPrice(t *testing.T) {
	store, _ := setupCartStoreTest(t)

	store.AddItem(ring, 1)
	repriced := ring
	repriced.Price = 99
	state := store.AddItem(repriced, 3)

	require.Len(t, state.Items, 1)
	assert.Equal(t, 4, state.Items[0].Quantity)
	assert.Equal(t, 10.0, state.Items[0].UnitPrice)
	assert.Equal(t, 40.0, state.Total)
}

func TestCartStore_AddItemClampsQuantity(t *testing.T) {
	store, _ := setupCartStoreTest(t)

	state := store.AddItem(ring, 0)
	assert.Equal(t, 1, state.ItemCount)

	state = store.AddItem(ring, -4)
	assert.Equal(t, 2, state.ItemCount)
}

func TestCartStore_AddItemIgnoresInvalidProducts(t *testing.T) {
	store, persister := setupCartStoreTest(t)

	_, changed := store.Dispatch(AddItemAction(model.Product{Name: "no id", Price: 1}, 1))
	assert.False(t, changed)

	_, changed = store.Dispatch(AddItemAction(model.Product{ID: "nan", Price: math.NaN()}, 1))
	assert.False(t, changed)

	_, changed = store.Dispatch(AddItemAction(model.Product{ID: "neg", Price: -1}, 1))
	assert.False(t, changed)

	assert.Empty(t, store.GetState().Items)
	assert.Zero(t, persister.count())
}

func TestCartStore_AddItemPreservesOrder(t *testing.T) {
	store, _ := setupCartStoreTest(t)

	store.AddItem(ring, 1)
	store.AddItem(necklace, 1)
	state := store.AddItem(ring, 1)

	require.Len(t, state.Items, 2)
	assert.Equal(t, "p1", state.Items[0].Product.ID)
	assert.Equal(t, "p2", state.Items[1].Product.ID)
}

func TestCartStore_RemoveItem(t *testing.T) {
	store, persister := setupCartStoreTest(t)
	store.AddItem(ring, 2)
	store.AddItem(necklace, 2)

	state := store.RemoveItem("p1")
	require.Len(t, state.Items, 1)
	assert.Equal(t, "p2", state.Items[0].Product.ID)
	assert.Equal(t, 2, state.ItemCount)
	assert.Equal(t, 5.0, state.Total)
	assert.Equal(t, 3, persister.count())

	again := store.RemoveItem("p1")
	assert.Equal(t, state, again)
	assert.Equal(t, 3, persister.count(), "no-op remove must not persist")
}

func TestCartStore_UpdateQuantity(t *testing.T) {
	store, persister := setupCartStoreTest(t)
	store.AddItem(ring, 2)
	store.AddItem(necklace, 1)

	state := store.UpdateQuantity("p1", 5)
	assert.Equal(t, 5, state.Items[0].Quantity)
	assert.Equal(t, 50.0, state.Items[0].TotalPrice)
	assert.Equal(t, 6, state.ItemCount)
	assert.Equal(t, 52.5, state.Total)

	state = store.UpdateQuantity("p1", 0)
	require.Len(t, state.Items, 1)
	assert.Equal(t, 1, state.ItemCount)
	assert.Equal(t, 2.5, state.Total)

	state = store.UpdateQuantity("p2", -3)
	assert.Empty(t, state.Items)
	assert.Equal(t, 5, persister.count())
}

func TestCartStore_UpdateQuantityMissingIsNoop(t *testing.T) {
	store, persister := setupCartStoreTest(t)
	before := store.AddItem(ring, 2)

	after, changed := store.Dispatch(UpdateQuantityAction("missing", 5))
	assert.False(t, changed)
	assert.Equal(t, before, after)

	_, changed = store.Dispatch(UpdateQuantityAction("p1", 2))
	assert.False(t, changed)
	assert.Equal(t, 1, persister.count())
}

func TestCartStore_Clear(t *testing.T) {
	store, persister := setupCartStoreTest(t)
	store.AddItem(ring, 2)
	store.AddItem(necklace, 1)

	state := store.Clear()
	assert.NotNil(t, state.Items)
	assert.Empty(t, state.Items)
	assert.Zero(t, state.ItemCount)
	assert.Zero(t, state.Total)
	assert.Equal(t, 3, persister.count())
	assert.Empty(t, persister.last().Items)

	_, changed := store.Dispatch(ClearAction())
	assert.False(t, changed)
}

func TestCartStore_Hydrate(t *testing.T) {
	store, persister := setupCartStoreTest(t)

	ok := store.Hydrate(&model.Snapshot{
		Items: []model.LineItem{
			{Product: model.Product{ID: "p2", Price: 5}, Quantity: 1, UnitPrice: 5},
		},
		ItemCount: 1,
		Total:     5,
	})
	require.True(t, ok)

	state := store.GetState()
	require.Len(t, state.Items, 1)
	assert.Equal(t, 5.0, state.Items[0].TotalPrice)
	assert.Equal(t, 1, state.ItemCount)
	assert.Equal(t, 5.0, state.Total)
	assert.Zero(t, persister.count(), "hydrate must not persist")
}

func TestCartStore_HydrateRecomputesDrift(t *testing.T) {
	store, _ := setupCartStoreTest(t)

	ok := store.Hydrate(&model.Snapshot{
		Items: []model.LineItem{
			{Product: model.Product{ID: "p1"}, Quantity: 3, UnitPrice: 2},
		},
		ItemCount: 99,
		Total:     1,
	})
	require.True(t, ok)

	state := store.GetState()
	assert.Equal(t, 3, state.ItemCount)
	assert.Equal(t, 6.0, state.Total)
}

func TestCartStore_HydrateMalformedIsNoop(t *testing.T) {
	tests := []struct {
		name     string
		snapshot *model.Snapshot
	}{
		{"nil snapshot", nil},
		{"missing items", &model.Snapshot{ItemCount: 1, Total: 1}},
		{"zero quantity", &model.Snapshot{Items: []model.LineItem{{Product: model.Product{ID: "p1"}, Quantity: 0}}}},
		{"duplicate ids", &model.Snapshot{Items: []model.LineItem{
			{Product: model.Product{ID: "p1"}, Quantity: 1},
			{Product: model.Product{ID: "p1"}, Quantity: 1},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := setupCartStoreTest(t)
			before := store.AddItem(ring, 1)

			assert.NotPanics(t, func() {
				assert.False(t, store.Hydrate(tt.snapshot))
			})
			assert.Equal(t, before, store.GetState())
		})
	}
}

func TestCartStore_HydrateDoesNotAliasSnapshot(t *testing.T) {
	store, _ := setupCartStoreTest(t)
	snap := &model.Snapshot{Items: []model.LineItem{{Product: model.Product{ID: "p1"}, Quantity: 1, UnitPrice: 1}}}

	require.True(t, store.Hydrate(snap))
	snap.Items[0].Quantity = 50

	assert.Equal(t, 1, store.GetState().Items[0].Quantity)
}

func TestCartStore_GetStateIsACopy(t *testing.T) {
	store, _ := setupCartStoreTest(t)
	store.AddItem(ring, 1)

	state := store.GetState()
	state.Items[0].Quantity = 100

	assert.Equal(t, 1, store.GetState().Items[0].Quantity)
}

func TestCartStore_VersionIncreasesPerChange(t *testing.T) {
	store, _ := setupCartStoreTest(t)

	s1 := store.AddItem(ring, 1)
	s2 := store.RemoveItem("missing")
	s3 := store.AddItem(ring, 1)

	assert.Equal(t, uint64(1), s1.Version)
	assert.Equal(t, uint64(1), s2.Version)
	assert.Equal(t, uint64(2), s3.Version)
}

func TestCartStore_Subscribe(t *testing.T) {
	store, _ := setupCartStoreTest(t)

	var got []model.CartState
	unsubscribe := store.Subscribe(func(state model.CartState) {
		got = append(got, state)
	})

	store.AddItem(ring, 1)
	store.RemoveItem("missing")
	store.Hydrate(&model.Snapshot{Items: []model.LineItem{}})

	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ItemCount)
	assert.Empty(t, got[1].Items)

	unsubscribe()
	unsubscribe()
	store.AddItem(ring, 1)
	assert.Len(t, got, 2)
}

func TestCartStore_PersistsBeforeNotifying(t *testing.T) {
	store, persister := setupCartStoreTest(t)

	var persistedAtNotify int
	store.Subscribe(func(model.CartState) {
		persistedAtNotify = persister.count()
	})

	store.AddItem(ring, 1)
	assert.Equal(t, 1, persistedAtNotify)
}

func TestCartStore_ConcurrentMutationsKeepInvariants(t *testing.T) {
	store, persister := setupCartStoreTest(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.AddItem(ring, 1)
			store.AddItem(necklace, 2)
			if i%2 == 0 {
				store.UpdateQuantity("p2", 1)
			}
			assertInvariants(t, store.GetState())
		}(i)
	}
	wg.Wait()

	state := store.GetState()
	assertInvariants(t, state)
	assert.Equal(t, 20, state.Items[state.IndexOf("p1")].Quantity)
	assert.Equal(t, int(state.Version), persister.count())
	assert.Equal(t, state.Snapshot(), persister.last())
}

func TestCartStore_InvariantsAfterEverySequence(t *testing.T) {
	store, _ := setupCartStoreTest(t)

	actions := []Action{
		AddItemAction(ring, 3),
		AddItemAction(necklace, 1),
		UpdateQuantityAction("p2", 7),
		RemoveItemAction("p1"),
		AddItemAction(model.Product{ID: "p3", Price: 0.1}, 3),
		UpdateQuantityAction("p3", 0),
		ClearAction(),
		AddItemAction(ring, 1),
	}
	for _, a := range actions {
		state, _ := store.Dispatch(a)
		assertInvariants(t, state)
	}
}

func TestCartStore_LineQuantityIsCapped(t *testing.T) {
	store, persister := setupCartStoreTest(t)

	store.AddItem(ring, math.MaxInt)
	state := store.AddItem(ring, 1)

	require.Len(t, state.Items, 1)
	assert.Equal(t, model.MaxLineQuantity, state.Items[0].Quantity)
	assert.Equal(t, model.MaxLineQuantity, state.ItemCount)
	assertInvariants(t, state)
	// 이미 상한이면 변화 없음
	assert.Equal(t, 1, persister.count())

	state = store.UpdateQuantity(ring.ID, math.MaxInt)
	assert.Equal(t, model.MaxLineQuantity, state.Items[0].Quantity)

	store.UpdateQuantity(ring.ID, 5)
	state = store.AddItem(ring, model.MaxLineQuantity)
	assert.Equal(t, model.MaxLineQuantity, state.Items[0].Quantity)
	assertInvariants(t, state)

	snap := persister.last()
	assert.NoError(t, snap.Validate())
}
